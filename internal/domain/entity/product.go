package entity

import "github.com/shopspring/decimal"

// Product representa un repuesto del inventario.
// Stock solo lo modifica el motor de ledger; cada cambio va acompañado de un StockMovement,
// salvo la corrección explícita de UpdateProduct.
type Product struct {
	ID           int64
	ProductCode  string
	Name         string
	SectionID    int64
	ShelfID      int64
	Stock        int
	MinimumStock int
	Price        *decimal.Decimal // precio de lista (opcional)
	Description  *string
}

// BelowMinimum indica si el stock actual está por debajo del mínimo configurado.
func (p *Product) BelowMinimum() bool {
	return p.Stock < p.MinimumStock
}
