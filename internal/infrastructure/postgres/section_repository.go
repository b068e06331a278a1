package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.SectionRepository = (*SectionRepo)(nil)

// SectionRepo implementación de SectionRepository sobre PostgreSQL (usable con pool o tx).
type SectionRepo struct {
	q Querier
}

// NewSectionRepository construye el adaptador de secciones. Pasar pool o tx (Querier).
func NewSectionRepository(q Querier) *SectionRepo {
	return &SectionRepo{q: q}
}

// Create inserta la sección dentro de un savepoint; un nombre repetido devuelve domain.ErrDuplicate
// sin abortar la transacción del llamador.
func (r *SectionRepo) Create(ctx context.Context, section *entity.Section) error {
	return withSavepoint(ctx, r.q, func(q Querier) error {
		err := q.QueryRow(ctx,
			`INSERT INTO sections (name, description) VALUES ($1, $2) RETURNING id`,
			section.Name, section.Description,
		).Scan(&section.ID)
		return wrapErr("insert section", err)
	})
}

// GetByID obtiene una sección por ID.
func (r *SectionRepo) GetByID(ctx context.Context, id int64) (*entity.Section, error) {
	return r.getOne(ctx, "get section", `SELECT id, name, description FROM sections WHERE id = $1`, id)
}

// GetByName obtiene una sección por nombre exacto.
func (r *SectionRepo) GetByName(ctx context.Context, name string) (*entity.Section, error) {
	return r.getOne(ctx, "get section by name", `SELECT id, name, description FROM sections WHERE name = $1`, name)
}

func (r *SectionRepo) getOne(ctx context.Context, op, query string, arg any) (*entity.Section, error) {
	var s entity.Section
	err := r.q.QueryRow(ctx, query, arg).Scan(&s.ID, &s.Name, &s.Description)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return &s, nil
}

// List devuelve todas las secciones por ID.
func (r *SectionRepo) List(ctx context.Context) ([]*entity.Section, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, description FROM sections ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list sections", err)
	}
	defer rows.Close()
	var list []*entity.Section
	for rows.Next() {
		var s entity.Section
		if err := rows.Scan(&s.ID, &s.Name, &s.Description); err != nil {
			return nil, wrapErr("scan section", err)
		}
		list = append(list, &s)
	}
	return list, wrapErr("list sections", rows.Err())
}
