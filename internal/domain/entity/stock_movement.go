package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento de stock.
type MovementType string

// Tipos de movimiento de stock.
const (
	MovementInbound  MovementType = "INBOUND"  // entrada
	MovementOutbound MovementType = "OUTBOUND" // salida
)

// Valid indica si el tipo es uno de los soportados.
func (t MovementType) Valid() bool {
	return t == MovementInbound || t == MovementOutbound
}

// Sign devuelve +1 para entradas y -1 para salidas.
func (t MovementType) Sign() int {
	if t == MovementOutbound {
		return -1
	}
	return 1
}

// StockMovement registro inmutable de un cambio de stock.
// Quantity siempre es positiva; el sentido lo da Type.
type StockMovement struct {
	ID           int64
	ProductID    int64
	Quantity     int
	Type         MovementType
	MovementDate time.Time
	UnitPrice    *decimal.Decimal
	TotalPrice   *decimal.Decimal // Quantity * UnitPrice cuando hay precio
	Notes        *string
}

// SignedQuantity cantidad con signo según el tipo.
func (m *StockMovement) SignedQuantity() int {
	return m.Type.Sign() * m.Quantity
}

// StockMovementView movimiento con el código y nombre del producto.
// ProductCode y ProductName quedan vacíos si el producto fue eliminado.
type StockMovementView struct {
	StockMovement
	ProductCode string
	ProductName string
}
