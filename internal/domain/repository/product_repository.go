package repository

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// ProductRepository define el puerto de persistencia para Product (DIP).
// GetByID y GetForUpdate devuelven (nil, nil) si el producto no existe.
type ProductRepository interface {
	Create(ctx context.Context, product *entity.Product) error
	GetByID(ctx context.Context, id int64) (*entity.Product, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, id int64) (*entity.Product, error)
	List(ctx context.Context) ([]*entity.Product, error)
	// Update sobrescribe todos los campos mutables, incluido Stock.
	Update(ctx context.Context, product *entity.Product) error
	UpdateStock(ctx context.Context, productID int64, stock int) error
	Delete(ctx context.Context, id int64) error
}
