package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.ShelfRepository = (*ShelfRepo)(nil)

// ShelfRepo implementación de ShelfRepository sobre PostgreSQL (usable con pool o tx).
type ShelfRepo struct {
	q Querier
}

// NewShelfRepository construye el adaptador de estantes. Pasar pool o tx (Querier).
func NewShelfRepository(q Querier) *ShelfRepo {
	return &ShelfRepo{q: q}
}

// Create inserta el estante en un savepoint. UNIQUE(name, section_id) → ErrDuplicate; sección inexistente → ErrNotFound.
func (r *ShelfRepo) Create(ctx context.Context, shelf *entity.Shelf) error {
	return withSavepoint(ctx, r.q, func(q Querier) error {
		err := q.QueryRow(ctx,
			`INSERT INTO shelves (name, section_id) VALUES ($1, $2) RETURNING id`,
			shelf.Name, shelf.SectionID,
		).Scan(&shelf.ID)
		return wrapErr("insert shelf", err)
	})
}

// GetByID obtiene un estante por ID.
func (r *ShelfRepo) GetByID(ctx context.Context, id int64) (*entity.Shelf, error) {
	var s entity.Shelf
	err := r.q.QueryRow(ctx, `SELECT id, name, section_id FROM shelves WHERE id = $1`, id).
		Scan(&s.ID, &s.Name, &s.SectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get shelf", err)
	}
	return &s, nil
}

// GetByNameAndSection busca por la clave natural (nombre, sección).
func (r *ShelfRepo) GetByNameAndSection(ctx context.Context, name string, sectionID int64) (*entity.Shelf, error) {
	var s entity.Shelf
	err := r.q.QueryRow(ctx,
		`SELECT id, name, section_id FROM shelves WHERE name = $1 AND section_id = $2`,
		name, sectionID,
	).Scan(&s.ID, &s.Name, &s.SectionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr("get shelf by name", err)
	}
	return &s, nil
}

// ListBySection estantes de una sección.
func (r *ShelfRepo) ListBySection(ctx context.Context, sectionID int64) ([]*entity.Shelf, error) {
	return r.list(ctx, `SELECT id, name, section_id FROM shelves WHERE section_id = $1 ORDER BY id`, sectionID)
}

// List todos los estantes.
func (r *ShelfRepo) List(ctx context.Context) ([]*entity.Shelf, error) {
	return r.list(ctx, `SELECT id, name, section_id FROM shelves ORDER BY id`)
}

func (r *ShelfRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Shelf, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list shelves", err)
	}
	defer rows.Close()
	var list []*entity.Shelf
	for rows.Next() {
		var s entity.Shelf
		if err := rows.Scan(&s.ID, &s.Name, &s.SectionID); err != nil {
			return nil, wrapErr("scan shelf", err)
		}
		list = append(list, &s)
	}
	return list, wrapErr("list shelves", rows.Err())
}
