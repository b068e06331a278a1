package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/parts-ledger/internal/domain"
)

// Códigos SQLSTATE que el adaptador traduce a errores de dominio.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeLockNotAvailable     = "55P03"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	return pgCode(err) == codeUniqueViolation
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// wrapErr clasifica un error del driver: conflictos de concurrencia → domain.ErrConflict (reintentable),
// únicos → ErrDuplicate, FK → ErrNotFound; el resto es StorageError.
func wrapErr(op string, err error) error {
	if err == nil {
		return nil
	}
	switch pgCode(err) {
	case codeSerializationFailure, codeDeadlockDetected, codeLockNotAvailable:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrConflict, err)
	case codeUniqueViolation:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrDuplicate, err)
	case codeForeignKeyViolation:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrNotFound, err)
	}
	return &domain.StorageError{Op: op, Err: err}
}

// withSavepoint ejecuta fn dentro de un SAVEPOINT de q. Si fn falla solo se deshace el savepoint
// y la tx exterior sigue usable (un 23505 en Postgres aborta la tx completa si no).
func withSavepoint(ctx context.Context, q Querier, fn func(q Querier) error) error {
	sp, err := q.Begin(ctx)
	if err != nil {
		return wrapErr("savepoint", err)
	}
	if err := fn(sp); err != nil {
		_ = sp.Rollback(ctx)
		return err
	}
	if err := sp.Commit(ctx); err != nil {
		return wrapErr("release savepoint", err)
	}
	return nil
}
