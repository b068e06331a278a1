package repository

import (
	"context"
	"time"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// MovementFilter criterios opcionales para listar movimientos. Valores cero = sin filtro.
type MovementFilter struct {
	ProductID int64
	Type      entity.MovementType
	From      *time.Time
	To        *time.Time
	Limit     int
	Offset    int
}

// StockMovementRepository define el puerto del ledger de movimientos (solo inserción).
type StockMovementRepository interface {
	Append(ctx context.Context, movement *entity.StockMovement) error
	// List ordena por fecha descendente y, a igual fecha, por orden de inserción inverso.
	List(ctx context.Context, filter MovementFilter) ([]*entity.StockMovementView, error)
}
