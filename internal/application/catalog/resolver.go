package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// maxResolveAttempts intentos de buscar-o-crear antes de rendirse ante duplicados repetidos.
const maxResolveAttempts = 3

// Resolver convierte nombres escritos a mano en secciones/estantes estables, creándolos en el primer uso.
// La comparación es literal (sin normalizar mayúsculas ni espacios).
type Resolver struct {
	sections repository.SectionRepository
	shelves  repository.ShelfRepository
}

// NewResolver construye el resolver. Pasar repos atados a la tx del llamador si debe ser atómico con ella.
func NewResolver(sections repository.SectionRepository, shelves repository.ShelfRepository) *Resolver {
	return &Resolver{sections: sections, shelves: shelves}
}

// ResolveSection busca la sección por nombre exacto; si no existe la crea sin descripción.
func (r *Resolver) ResolveSection(ctx context.Context, name string) (*entity.Section, error) {
	return r.EnsureSection(ctx, name, nil)
}

// EnsureSection igual que ResolveSection pero usa description al crear. Una sección existente no se modifica.
func (r *Resolver) EnsureSection(ctx context.Context, name string, description *string) (*entity.Section, error) {
	if name == "" {
		return nil, domain.NewValidationError("section_name", "es requerido")
	}
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		existing, err := r.sections.GetByName(ctx, name)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		section := &entity.Section{Name: name, Description: description}
		err = r.sections.Create(ctx, section)
		if err == nil {
			return section, nil
		}
		// Otra petición creó la misma sección entre la búsqueda y el insert: volver a buscar.
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resolver sección %q: %w", name, domain.ErrConflict)
}

// ResolveShelf busca el estante por (nombre, sección); si no existe lo crea.
func (r *Resolver) ResolveShelf(ctx context.Context, name string, sectionID int64) (*entity.Shelf, error) {
	if name == "" {
		return nil, domain.NewValidationError("shelf_name", "es requerido")
	}
	if sectionID <= 0 {
		return nil, domain.NewValidationError("section_id", "debe ser positivo")
	}
	for attempt := 0; attempt < maxResolveAttempts; attempt++ {
		existing, err := r.shelves.GetByNameAndSection(ctx, name, sectionID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
		shelf := &entity.Shelf{Name: name, SectionID: sectionID}
		err = r.shelves.Create(ctx, shelf)
		if err == nil {
			return shelf, nil
		}
		if !errors.Is(err, domain.ErrDuplicate) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("resolver estante %q: %w", name, domain.ErrConflict)
}

// Resolve resuelve sección y luego el estante dentro de ella.
func (r *Resolver) Resolve(ctx context.Context, sectionName, shelfName string) (*entity.Section, *entity.Shelf, error) {
	section, err := r.ResolveSection(ctx, sectionName)
	if err != nil {
		return nil, nil, err
	}
	shelf, err := r.ResolveShelf(ctx, shelfName, section.ID)
	if err != nil {
		return nil, nil, err
	}
	return section, shelf, nil
}
