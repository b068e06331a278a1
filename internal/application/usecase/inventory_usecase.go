package usecase

import (
	"context"
	"time"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// InventoryUseCase traduce los DTOs HTTP a operaciones del motor de ledger.
type InventoryUseCase struct {
	engine   *ledger.LedgerEngine
	products *ProductQueryUseCase
}

// NewInventoryUseCase construye el caso de uso.
func NewInventoryUseCase(engine *ledger.LedgerEngine, products *ProductQueryUseCase) *InventoryUseCase {
	return &InventoryUseCase{engine: engine, products: products}
}

// CreateProduct crea el producto; con stock > 0 queda registrada la entrada inicial.
func (uc *InventoryUseCase) CreateProduct(ctx context.Context, in dto.CreateProductRequest) (*dto.ProductResponse, error) {
	p, err := uc.engine.CreateProduct(ctx, ledger.CreateProductInput{
		ProductCode:  in.ProductCode,
		Name:         in.Name,
		SectionName:  in.SectionName,
		ShelfName:    in.ShelfName,
		InitialStock: in.Stock,
		MinimumStock: in.MinimumStock,
		Price:        in.Price,
		Description:  in.Description,
	})
	if err != nil {
		return nil, err
	}
	return uc.products.Describe(ctx, p)
}

// UpdateProduct sobrescribe el producto (stock incluido, sin movimiento).
func (uc *InventoryUseCase) UpdateProduct(ctx context.Context, id int64, in dto.UpdateProductRequest) (*dto.ProductResponse, error) {
	p, err := uc.engine.UpdateProduct(ctx, ledger.UpdateProductInput{
		ID:           id,
		ProductCode:  in.ProductCode,
		Name:         in.Name,
		SectionName:  in.SectionName,
		ShelfName:    in.ShelfName,
		Stock:        in.Stock,
		MinimumStock: in.MinimumStock,
		Price:        in.Price,
		Description:  in.Description,
	})
	if err != nil {
		return nil, err
	}
	return uc.products.Describe(ctx, p)
}

// DeleteProduct elimina el producto conservando sus movimientos.
func (uc *InventoryUseCase) DeleteProduct(ctx context.Context, id int64) error {
	return uc.engine.DeleteProduct(ctx, id)
}

// Sell registra una venta.
func (uc *InventoryUseCase) Sell(ctx context.Context, id int64, in dto.StockChangeRequest) (*dto.StockChangeResponse, error) {
	stock, err := uc.engine.Sell(ctx, ledger.StockInput{ProductID: id, Quantity: in.Quantity, UnitPrice: in.UnitPrice, Notes: in.Notes})
	if err != nil {
		return nil, err
	}
	return &dto.StockChangeResponse{ProductID: id, Stock: stock}, nil
}

// Replenish registra una entrada de mercadería.
func (uc *InventoryUseCase) Replenish(ctx context.Context, id int64, in dto.StockChangeRequest) (*dto.StockChangeResponse, error) {
	stock, err := uc.engine.Replenish(ctx, ledger.StockInput{ProductID: id, Quantity: in.Quantity, UnitPrice: in.UnitPrice, Notes: in.Notes})
	if err != nil {
		return nil, err
	}
	return &dto.StockChangeResponse{ProductID: id, Stock: stock}, nil
}

// AdjustStock aplica un ajuste con signo.
func (uc *InventoryUseCase) AdjustStock(ctx context.Context, id int64, in dto.AdjustStockRequest) (*dto.StockChangeResponse, error) {
	stock, err := uc.engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: id, Delta: in.Delta, Notes: in.Notes})
	if err != nil {
		return nil, err
	}
	return &dto.StockChangeResponse{ProductID: id, Stock: stock}, nil
}

// ListMovements historial filtrado, del más reciente al más antiguo.
func (uc *InventoryUseCase) ListMovements(ctx context.Context, in dto.MovementListRequest) (*dto.MovementListResponse, error) {
	page := dto.PageRequest{Limit: in.Limit, Offset: in.Offset}
	page.DefaultPage()
	filter := repository.MovementFilter{
		ProductID: in.ProductID,
		Type:      entity.MovementType(in.Type),
		Limit:     page.Limit,
		Offset:    page.Offset,
	}
	var err error
	if filter.From, err = parseTime("from", in.From); err != nil {
		return nil, err
	}
	if filter.To, err = parseTime("to", in.To); err != nil {
		return nil, err
	}
	views, err := uc.engine.ListMovements(ctx, filter)
	if err != nil {
		return nil, err
	}
	items := make([]dto.MovementResponse, 0, len(views))
	for _, v := range views {
		items = append(items, toMovementResponse(v))
	}
	return &dto.MovementListResponse{Items: items, Page: dto.PageResponse{Limit: page.Limit, Offset: page.Offset}}, nil
}

func parseTime(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, domain.NewValidationError(field, "debe tener formato RFC3339")
	}
	return &t, nil
}
