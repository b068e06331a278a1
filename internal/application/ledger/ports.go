package ledger

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor de ledger: si fn devuelve error no queda nada aplicado.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		sectionRepo repository.SectionRepository,
		shelfRepo repository.ShelfRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
	) error) error
}

// CacheInvalidator invalida las lecturas cacheadas después de cada commit.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// Recorder recibe métricas de las operaciones del motor.
type Recorder interface {
	ObserveOperation(op string, err error)
	ObserveMovement(movementType entity.MovementType, quantity int)
	ObserveRetry(op string)
}

type noopRecorder struct{}

func (noopRecorder) ObserveOperation(string, error)           {}
func (noopRecorder) ObserveMovement(entity.MovementType, int) {}
func (noopRecorder) ObserveRetry(string)                      {}
