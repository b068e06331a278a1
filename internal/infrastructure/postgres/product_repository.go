package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ repository.ProductRepository = (*ProductRepo)(nil)

const productColumns = `id, product_code, name, section_id, shelf_id, stock, minimum_stock, price, description`

// ProductRepo implementación del puerto ProductRepository sobre PostgreSQL (usable con pool o tx).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador de persistencia para productos. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Create persiste un nuevo producto y asigna su ID.
func (r *ProductRepo) Create(ctx context.Context, product *entity.Product) error {
	query := `
		INSERT INTO products (product_code, name, section_id, shelf_id, stock, minimum_stock, price, description)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`
	err := r.q.QueryRow(ctx, query,
		product.ProductCode, product.Name, product.SectionID, product.ShelfID,
		product.Stock, product.MinimumStock, product.Price, product.Description,
	).Scan(&product.ID)
	return wrapErr("insert product", err)
}

// GetByID obtiene un producto por ID.
func (r *ProductRepo) GetByID(ctx context.Context, id int64) (*entity.Product, error) {
	return r.getOne(ctx, "get product", `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
}

// GetForUpdate obtiene el producto y bloquea la fila hasta el fin de la tx (SELECT FOR UPDATE).
func (r *ProductRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	return r.getOne(ctx, "get product for update", `SELECT `+productColumns+` FROM products WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductRepo) getOne(ctx context.Context, op, query string, id int64) (*entity.Product, error) {
	p, err := scanProduct(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, wrapErr(op, err)
	}
	return p, nil
}

// List devuelve todos los productos por ID.
func (r *ProductRepo) List(ctx context.Context) ([]*entity.Product, error) {
	rows, err := r.q.Query(ctx, `SELECT `+productColumns+` FROM products ORDER BY id`)
	if err != nil {
		return nil, wrapErr("list products", err)
	}
	defer rows.Close()
	var list []*entity.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, wrapErr("scan product", err)
		}
		list = append(list, p)
	}
	return list, wrapErr("list products", rows.Err())
}

// Update sobrescribe todos los campos mutables, incluido stock.
func (r *ProductRepo) Update(ctx context.Context, product *entity.Product) error {
	query := `
		UPDATE products SET product_code = $2, name = $3, section_id = $4, shelf_id = $5,
			stock = $6, minimum_stock = $7, price = $8, description = $9
		WHERE id = $1`
	cmd, err := r.q.Exec(ctx, query,
		product.ID, product.ProductCode, product.Name, product.SectionID, product.ShelfID,
		product.Stock, product.MinimumStock, product.Price, product.Description,
	)
	if err != nil {
		return wrapErr("update product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("product", product.ID)
	}
	return nil
}

// UpdateStock fija el stock (usado solo por el motor de ledger con la fila bloqueada).
func (r *ProductRepo) UpdateStock(ctx context.Context, productID int64, stock int) error {
	cmd, err := r.q.Exec(ctx, `UPDATE products SET stock = $2 WHERE id = $1`, productID, stock)
	if err != nil {
		return wrapErr("update product stock", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("product", productID)
	}
	return nil
}

// Delete elimina el producto; stock_movements no tiene FK y conserva el historial.
func (r *ProductRepo) Delete(ctx context.Context, id int64) error {
	cmd, err := r.q.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return wrapErr("delete product", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.NewNotFoundError("product", id)
	}
	return nil
}

func scanProduct(row pgx.Row) (*entity.Product, error) {
	var p entity.Product
	err := row.Scan(
		&p.ID, &p.ProductCode, &p.Name, &p.SectionID, &p.ShelfID,
		&p.Stock, &p.MinimumStock, &p.Price, &p.Description,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
