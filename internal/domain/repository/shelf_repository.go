package repository

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// ShelfRepository define el puerto de persistencia para Shelf.
// Create devuelve domain.ErrDuplicate si (name, section_id) ya existe.
type ShelfRepository interface {
	Create(ctx context.Context, shelf *entity.Shelf) error
	GetByID(ctx context.Context, id int64) (*entity.Shelf, error)
	GetByNameAndSection(ctx context.Context, name string, sectionID int64) (*entity.Shelf, error)
	ListBySection(ctx context.Context, sectionID int64) ([]*entity.Shelf, error)
	List(ctx context.Context) ([]*entity.Shelf, error)
}
