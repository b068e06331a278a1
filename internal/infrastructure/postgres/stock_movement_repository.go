package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo ledger de movimientos sobre PostgreSQL (solo inserción).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el repositorio de movimientos. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// movementAppendLock clave del advisory lock que serializa las inserciones del ledger.
const movementAppendLock int64 = 0x6c6564676572

// appendMovementSQL toma la fecha pedida o, si es anterior, la última registrada: con el lock tomado
// el orden de id coincide con el de movement_date aunque varios procesos escriban a la vez.
const appendMovementSQL = `
		INSERT INTO stock_movements (product_id, quantity, movement_type, movement_date, unit_price, total_price, notes)
		VALUES ($1, $2, $3,
			GREATEST($4::timestamptz, COALESCE((SELECT max(movement_date) FROM stock_movements), $4::timestamptz)),
			$5, $6, $7)
		RETURNING id, movement_date`

// Append inserta el movimiento y asigna su ID. El advisory lock dura hasta el fin de la transacción;
// va en una sentencia aparte porque en READ COMMITTED el snapshot del INSERT se toma al empezar.
func (r *StockMovementRepo) Append(ctx context.Context, m *entity.StockMovement) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, movementAppendLock); err != nil {
		return wrapErr("lock stock movements", err)
	}
	err := r.q.QueryRow(ctx, appendMovementSQL,
		m.ProductID, m.Quantity, string(m.Type), m.MovementDate, m.UnitPrice, m.TotalPrice, m.Notes,
	).Scan(&m.ID, &m.MovementDate)
	if err != nil {
		return wrapErr("insert stock movement", err)
	}
	m.MovementDate = m.MovementDate.UTC()
	return nil
}

// List movimientos con código y nombre del producto. LEFT JOIN: los movimientos de productos
// eliminados siguen apareciendo con código y nombre vacíos.
func (r *StockMovementRepo) List(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovementView, error) {
	query, args := buildMovementQuery(filter)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapErr("list stock movements", err)
	}
	defer rows.Close()

	list := make([]*entity.StockMovementView, 0)
	for rows.Next() {
		var v entity.StockMovementView
		var movementType string
		if err := rows.Scan(
			&v.ID, &v.ProductID, &v.Quantity, &movementType, &v.MovementDate,
			&v.UnitPrice, &v.TotalPrice, &v.Notes, &v.ProductCode, &v.ProductName,
		); err != nil {
			return nil, wrapErr("scan stock movement", err)
		}
		v.Type = entity.MovementType(movementType)
		list = append(list, &v)
	}
	return list, wrapErr("list stock movements", rows.Err())
}

func buildMovementQuery(filter repository.MovementFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT m.id, m.product_id, m.quantity, m.movement_type, m.movement_date,
			m.unit_price, m.total_price, m.notes,
			COALESCE(p.product_code, ''), COALESCE(p.name, '')
		FROM stock_movements m
		LEFT JOIN products p ON p.id = m.product_id`)

	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ProductID != 0 {
		add("m.product_id = $%d", filter.ProductID)
	}
	if filter.Type != "" {
		add("m.movement_type = $%d", string(filter.Type))
	}
	if filter.From != nil {
		add("m.movement_date >= $%d", *filter.From)
	}
	if filter.To != nil {
		add("m.movement_date <= $%d", *filter.To)
	}
	if len(conds) > 0 {
		sb.WriteString("\n\t\tWHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString("\n\t\tORDER BY m.movement_date DESC, m.id DESC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		fmt.Fprintf(&sb, " LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		fmt.Fprintf(&sb, " OFFSET $%d", len(args))
	}
	return sb.String(), args
}
