package dto

import "github.com/shopspring/decimal"

// CreateProductRequest entrada para crear un producto. Sección y estante se indican por nombre
// y se crean si no existen.
type CreateProductRequest struct {
	ProductCode  string           `json:"product_code" validate:"required,max=100"`
	Name         string           `json:"name" validate:"required,max=200"`
	SectionName  string           `json:"section_name" validate:"required,max=100"`
	ShelfName    string           `json:"shelf_name" validate:"required,max=100"`
	Stock        int              `json:"stock" validate:"min=0,max=2147483647"`
	MinimumStock int              `json:"minimum_stock" validate:"min=0,max=2147483647"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

// UpdateProductRequest sobrescribe todos los campos; stock se corrige sin movimiento.
type UpdateProductRequest struct {
	ProductCode  string           `json:"product_code" validate:"required,max=100"`
	Name         string           `json:"name" validate:"required,max=200"`
	SectionName  string           `json:"section_name" validate:"required,max=100"`
	ShelfName    string           `json:"shelf_name" validate:"required,max=100"`
	Stock        int              `json:"stock" validate:"min=0,max=2147483647"`
	MinimumStock int              `json:"minimum_stock" validate:"min=0,max=2147483647"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

// ProductResponse salida de un producto con los nombres de sección y estante.
type ProductResponse struct {
	ID           int64            `json:"id"`
	ProductCode  string           `json:"product_code"`
	Name         string           `json:"name"`
	SectionID    int64            `json:"section_id"`
	SectionName  string           `json:"section_name"`
	ShelfID      int64            `json:"shelf_id"`
	ShelfName    string           `json:"shelf_name"`
	Stock        int              `json:"stock"`
	MinimumStock int              `json:"minimum_stock"`
	BelowMinimum bool             `json:"below_minimum"`
	Price        *decimal.Decimal `json:"price,omitempty"`
	Description  *string          `json:"description,omitempty"`
}

// ProductListResponse lista de productos.
type ProductListResponse struct {
	Items []ProductResponse `json:"items"`
	Page  PageResponse      `json:"page"`
}
