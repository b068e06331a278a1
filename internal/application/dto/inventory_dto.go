package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockChangeRequest body para POST /api/products/:id/sell y /replenish.
type StockChangeRequest struct {
	Quantity  int             `json:"quantity" validate:"required,gt=0,max=2147483647"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Notes     string          `json:"notes" validate:"max=500"`
}

// AdjustStockRequest body para POST /api/products/:id/adjust. Delta con signo, distinto de cero.
type AdjustStockRequest struct {
	Delta int    `json:"delta" validate:"required,ne=0,min=-2147483647,max=2147483647"`
	Notes string `json:"notes" validate:"max=500"`
}

// StockChangeResponse stock resultante tras una operación del ledger.
type StockChangeResponse struct {
	ProductID int64 `json:"product_id"`
	Stock     int   `json:"stock"`
}

// MovementListRequest filtros de GET /api/movements.
type MovementListRequest struct {
	ProductID int64  `query:"product_id" validate:"min=0"`
	Type      string `query:"type" validate:"omitempty,oneof=INBOUND OUTBOUND"`
	From      string `query:"from" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	To        string `query:"to" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	Limit     int    `query:"limit" validate:"min=0,max=500"`
	Offset    int    `query:"offset" validate:"min=0"`
}

// MovementResponse movimiento del ledger con los datos del producto.
type MovementResponse struct {
	ID           int64            `json:"id"`
	ProductID    int64            `json:"product_id"`
	ProductCode  string           `json:"product_code"`
	ProductName  string           `json:"product_name"`
	Quantity     int              `json:"quantity"`
	Type         string           `json:"movement_type"`
	MovementDate time.Time        `json:"movement_date"`
	UnitPrice    *decimal.Decimal `json:"unit_price,omitempty"`
	TotalPrice   *decimal.Decimal `json:"total_price,omitempty"`
	Notes        *string          `json:"notes,omitempty"`
}

// MovementListResponse lista paginada de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
