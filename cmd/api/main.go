package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"golang.org/x/text/language"

	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/postgres"
	httpRouter "github.com/jhoicas/parts-ledger/internal/interfaces/http"
	"github.com/jhoicas/parts-ledger/pkg/config"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// storage agrupa los repositorios y el TxRunner del backend elegido.
type storage struct {
	tx        ledger.TxRunner
	sections  repository.SectionRepository
	shelves   repository.ShelfRepository
	products  repository.ProductRepository
	movements repository.StockMovementRepository
	close     func()
}

func openStorage(ctx context.Context, cfg *config.Config) (*storage, error) {
	if cfg.Storage.Driver == config.StorageMemory {
		store := memory.NewStore()
		return &storage{
			tx:        store,
			sections:  store.Sections(),
			shelves:   store.Shelves(),
			products:  store.Products(),
			movements: store.Movements(),
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &storage{
		tx:        postgres.NewTxRunner(pool),
		sections:  postgres.NewSectionRepository(pool),
		shelves:   postgres.NewShelfRepository(pool),
		products:  postgres.NewProductRepository(pool),
		movements: postgres.NewStockMovementRepository(pool),
		close:     pool.Close,
	}, nil
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Service: cfg.App.Name,
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("storage", cfg.Storage.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer store.close()

	locale, err := language.Parse(cfg.Ledger.CatalogLocale)
	if err != nil {
		log.Warn().Err(err).Str("locale", cfg.Ledger.CatalogLocale).Msg("CATALOG_LOCALE inválido, se usa und")
		locale = language.Und
	}

	// Caché de listados opcional: sin REDIS_ADDR (o si Redis no responde) se lee siempre del almacenamiento.
	var (
		listing     usecase.ListingCache
		invalidator ledger.CacheInvalidator
	)
	if cfg.Cache.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Cache.RedisAddr).Msg("Redis no disponible al iniciar")
		}
		c := cache.NewListingCache(client, time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		listing, invalidator = c, c
	}

	ledgerMetrics := metrics.NewLedgerMetrics("parts")
	engine := ledger.NewLedgerEngine(store.tx, store.movements, ledger.Config{
		MaxAttempts: cfg.Ledger.MaxAttempts,
		Cache:       invalidator,
		Metrics:     ledgerMetrics,
		Log:         log.Component("ledger"),
	})

	productsUC := usecase.NewProductQueryUseCase(store.products, store.sections, store.shelves, listing, locale, log.Component("products"))
	catalogUC := usecase.NewCatalogUseCase(store.sections, store.shelves, listing, locale, log.Component("catalog"))
	inventoryUC := usecase.NewInventoryUseCase(engine, productsUC)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat("./docs/swagger.json"); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: "./docs/swagger.json",
			Path:     "docs",
			Title:    "Parts Ledger API",
		}))
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:   cfg.App.Name,
		Inventory: inventoryUC,
		Products:  productsUC,
		Catalog:   catalogUC,
		Metrics:   ledgerMetrics.Handler(),
		Log:       log.Zerolog(),
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
