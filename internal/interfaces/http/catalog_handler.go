package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
)

// CatalogHandler secciones y estantes.
type CatalogHandler struct {
	uc *usecase.CatalogUseCase
}

// NewCatalogHandler construye el handler.
func NewCatalogHandler(uc *usecase.CatalogUseCase) *CatalogHandler {
	return &CatalogHandler{uc: uc}
}

// ListSections godoc
// @Summary      Listar secciones
// @Tags         catalog
// @Produce      json
// @Success      200  {array}  dto.SectionResponse
// @Router       /api/sections [get]
func (h *CatalogHandler) ListSections(c *fiber.Ctx) error {
	out, err := h.uc.ListSections(c.UserContext())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// EnsureSection godoc
// @Summary      Buscar o crear sección
// @Description  201 si se creó, 200 si ya existía (no se modifica).
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EnsureSectionRequest  true  "name, description"
// @Success      200   {object}  dto.SectionResponse
// @Success      201   {object}  dto.SectionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/sections [post]
func (h *CatalogHandler) EnsureSection(c *fiber.Ctx) error {
	var in dto.EnsureSectionRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, created, err := h.uc.EnsureSection(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(createdStatus(created)).JSON(out)
}

// ListShelves godoc
// @Summary      Listar estantes de una sección
// @Tags         catalog
// @Produce      json
// @Param        id   path  int  true  "ID de la sección"
// @Success      200  {array}   dto.ShelfResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/sections/{id}/shelves [get]
func (h *CatalogHandler) ListShelves(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.uc.ListShelves(c.UserContext(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// EnsureShelf godoc
// @Summary      Buscar o crear estante
// @Tags         catalog
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EnsureShelfRequest  true  "name, section_id"
// @Success      200   {object}  dto.ShelfResponse
// @Success      201   {object}  dto.ShelfResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/shelves [post]
func (h *CatalogHandler) EnsureShelf(c *fiber.Ctx) error {
	var in dto.EnsureShelfRequest
	if err := bindBody(c, &in); err != nil {
		return writeError(c, err)
	}
	out, created, err := h.uc.EnsureShelf(c.UserContext(), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(createdStatus(created)).JSON(out)
}

func createdStatus(created bool) int {
	if created {
		return fiber.StatusCreated
	}
	return fiber.StatusOK
}
