// Comando seed: carga un catálogo de demostración (o un CSV) a través del motor de ledger,
// de modo que cada stock inicial queda registrado como movimiento INBOUND.
//
//	go run ./cmd/seed
//	go run ./cmd/seed -csv stok.csv -encoding windows-1254
package main

import (
	"context"
	"flag"
	"os"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/application/catalog"
	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/parts-ledger/pkg/config"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

var demoSections = map[string]string{
	"A": "Motor Parçaları",
	"B": "Hidrolik Sistem",
	"C": "Şanzıman",
}

func demoProducts() []ledger.CreateProductInput {
	price := func(s string) *decimal.Decimal {
		d := decimal.RequireFromString(s)
		return &d
	}
	return []ledger.CreateProductInput{
		{ProductCode: "CAT-1R0750", Name: "Yakıt Filtresi", SectionName: "A", ShelfName: "1. Raf", InitialStock: 24, MinimumStock: 5, Price: price("450.00")},
		{ProductCode: "CAT-1R0739", Name: "Yağ Filtresi", SectionName: "A", ShelfName: "1. Raf", InitialStock: 30, MinimumStock: 8, Price: price("380.00")},
		{ProductCode: "CAT-7W2326", Name: "Hava Filtresi", SectionName: "A", ShelfName: "2. Raf", InitialStock: 4, MinimumStock: 5, Price: price("920.00")},
		{ProductCode: "CAT-1U3352", Name: "Kova Dişi", SectionName: "B", ShelfName: "1. Raf", InitialStock: 60, MinimumStock: 20, Price: price("210.00")},
		{ProductCode: "CAT-093-7521", Name: "Hidrolik Hortum", SectionName: "B", ShelfName: "2. Raf", InitialStock: 12, MinimumStock: 4, Price: price("1350.00")},
		{ProductCode: "CAT-6V8397", Name: "O-Ring Seti", SectionName: "C", ShelfName: "1. Raf", InitialStock: 0, MinimumStock: 10, Price: price("95.50")},
		{ProductCode: "CAT-9X7567", Name: "Şanzıman Contası", SectionName: "C", ShelfName: "2. Raf", InitialStock: 7, MinimumStock: 2, Price: price("640.00")},
	}
}

func main() {
	csvPath := flag.String("csv", "", "archivo CSV a importar (vacío = datos de demostración)")
	encoding := flag.String("encoding", "utf-8", "codificación del CSV: utf-8 | windows-1254")
	force := flag.Bool("force", false, "cargar aunque ya existan productos")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}
	log := logger.New(logger.Config{Service: cfg.App.Name + "-seed", Env: cfg.App.Env, Level: cfg.App.LogLevel})

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()
	if err := postgres.EnsureSchema(ctx, pool); err != nil {
		log.Fatal().Err(err).Msg("crear esquema")
	}

	products := postgres.NewProductRepository(pool)
	existing, err := products.List(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("listar productos")
	}
	if len(existing) > 0 && !*force {
		log.Info().Int("productos", len(existing)).Msg("la base ya tiene productos; usar -force para cargar igual")
		return
	}

	inputs := demoProducts()
	sections := demoSections
	if *csvPath != "" {
		f, err := os.Open(*csvPath)
		if err != nil {
			log.Fatal().Err(err).Msg("abrir CSV")
		}
		defer f.Close()
		if inputs, err = parseCSV(f, *encoding); err != nil {
			log.Fatal().Err(err).Str("archivo", *csvPath).Msg("leer CSV")
		}
		sections = nil
	}

	sectionRepo := postgres.NewSectionRepository(pool)
	resolver := catalog.NewResolver(sectionRepo, postgres.NewShelfRepository(pool))
	for name, desc := range sections {
		if _, err := resolver.EnsureSection(ctx, name, &desc); err != nil {
			log.Fatal().Err(err).Str("section", name).Msg("crear sección")
		}
	}

	engine := ledger.NewLedgerEngine(postgres.NewTxRunner(pool), postgres.NewStockMovementRepository(pool), ledger.Config{
		MaxAttempts: cfg.Ledger.MaxAttempts,
		Log:         log.Component("seed"),
	})

	created := 0
	for _, in := range inputs {
		p, err := engine.CreateProduct(ctx, in)
		if err != nil {
			log.Error().Err(err).Str("product_code", in.ProductCode).Msg("crear producto")
			continue
		}
		created++
		log.Info().Str("product_code", p.ProductCode).Int("stock", p.Stock).Msg("producto creado")
	}
	log.Info().Int("productos", created).Int("errores", len(inputs)-created).Msg("seed completado")
}
