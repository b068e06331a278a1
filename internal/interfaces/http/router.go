package http

import (
	nethttp "net/http"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/rs/zerolog"

	"github.com/jhoicas/parts-ledger/internal/application/usecase"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName   string
	Inventory *usecase.InventoryUseCase
	Products  *usecase.ProductQueryUseCase
	Catalog   *usecase.CatalogUseCase
	Metrics   nethttp.Handler // nil = sin /metrics
	Log       zerolog.Logger
}

// Router registra middlewares de petición y las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestID())
	app.Use(RequestLogger(deps.Log))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.AppName})
	})
	if deps.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics))
	}

	api := app.Group("/api")

	// Catálogo
	catalogHandler := NewCatalogHandler(deps.Catalog)
	api.Get("/sections", catalogHandler.ListSections)
	api.Post("/sections", catalogHandler.EnsureSection)
	api.Get("/sections/:id/shelves", catalogHandler.ListShelves)
	api.Post("/shelves", catalogHandler.EnsureShelf)

	// Productos
	products := api.Group("/products")
	productHandler := NewProductHandler(deps.Inventory, deps.Products)
	products.Get("/", productHandler.List)
	products.Post("/", productHandler.Create)
	products.Get("/:id", productHandler.GetByID)
	products.Put("/:id", productHandler.Update)
	products.Delete("/:id", productHandler.Delete)

	// Ledger
	inventoryHandler := NewInventoryHandler(deps.Inventory)
	products.Post("/:id/sell", inventoryHandler.Sell)
	products.Post("/:id/replenish", inventoryHandler.Replenish)
	products.Post("/:id/adjust", inventoryHandler.Adjust)
	api.Get("/movements", inventoryHandler.ListMovements)
}
