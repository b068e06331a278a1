package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
)

// InventoryHandler maneja ventas, reposiciones, ajustes y el historial de movimientos.
type InventoryHandler struct {
	uc *usecase.InventoryUseCase
}

// NewInventoryHandler construye el handler.
func NewInventoryHandler(uc *usecase.InventoryUseCase) *InventoryHandler {
	return &InventoryHandler{uc: uc}
}

// Sell godoc
// @Summary      Registrar venta
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del producto"
// @Param        body  body  dto.StockChangeRequest  true  "quantity, unit_price, notes"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/sell [post]
func (h *InventoryHandler) Sell(c *fiber.Ctx) error {
	id, in, err := h.stockChange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Sell(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Replenish godoc
// @Summary      Registrar entrada de stock
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del producto"
// @Param        body  body  dto.StockChangeRequest  true  "quantity, unit_price, notes"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/replenish [post]
func (h *InventoryHandler) Replenish(c *fiber.Ctx) error {
	id, in, err := h.stockChange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.Replenish(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajustar stock
// @Description  delta positivo registra una entrada, negativo una salida. El stock no puede quedar negativo.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        id    path  int  true  "ID del producto"
// @Param        body  body  dto.AdjustStockRequest  true  "delta, notes"
// @Success      200   {object}  dto.StockChangeResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/products/{id}/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var in dto.AdjustStockRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.AdjustStock(c.UserContext(), id, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListMovements godoc
// @Summary      Historial de movimientos
// @Tags         inventory
// @Produce      json
// @Param        product_id  query  int     false  "Filtrar por producto"
// @Param        type        query  string  false  "INBOUND | OUTBOUND"
// @Param        from        query  string  false  "Desde (RFC3339)"
// @Param        to          query  string  false  "Hasta (RFC3339)"
// @Param        limit       query  int     false  "Límite"  default(50)
// @Param        offset      query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/movements [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	var in dto.MovementListRequest
	if err := bindQuery(c, &in); err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListMovements(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

func (h *InventoryHandler) stockChange(c *fiber.Ctx) (int64, dto.StockChangeRequest, error) {
	var in dto.StockChangeRequest
	id, err := paramID(c, "id")
	if err != nil {
		return 0, in, err
	}
	if err := bindBody(c, &in); err != nil {
		return 0, in, err
	}
	return id, in, nil
}
