package repository

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
)

// SectionRepository define el puerto de persistencia para Section.
// Create devuelve domain.ErrDuplicate si el nombre ya existe.
type SectionRepository interface {
	Create(ctx context.Context, section *entity.Section) error
	GetByID(ctx context.Context, id int64) (*entity.Section, error)
	GetByName(ctx context.Context, name string) (*entity.Section, error)
	List(ctx context.Context) ([]*entity.Section, error)
}
