package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

func newEngine(t *testing.T) (*ledger.LedgerEngine, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	return ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{}), store
}

func createFilter(t *testing.T, engine *ledger.LedgerEngine, initialStock int) *entity.Product {
	t.Helper()
	price := decimal.NewFromInt(450)
	p, err := engine.CreateProduct(context.Background(), ledger.CreateProductInput{
		ProductCode:  "CAT-100",
		Name:         "Filter",
		SectionName:  "A",
		ShelfName:    "1.Raf",
		InitialStock: initialStock,
		MinimumStock: 5,
		Price:        &price,
	})
	require.NoError(t, err)
	return p
}

func movementsOf(t *testing.T, store *memory.Store, productID int64) []*entity.StockMovementView {
	t.Helper()
	list, err := store.Movements().List(context.Background(), repository.MovementFilter{ProductID: productID})
	require.NoError(t, err)
	return list
}

func stockOf(t *testing.T, store *memory.Store, productID int64) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), productID)
	require.NoError(t, err)
	require.NotNil(t, p, "el producto debe existir")
	return p.Stock
}

// requireLedgerConsistent verifica que el stock sea la suma con signo de todos sus movimientos.
func requireLedgerConsistent(t *testing.T, store *memory.Store, productID int64) {
	t.Helper()
	sum := 0
	for _, m := range movementsOf(t, store, productID) {
		require.Positive(t, m.Quantity, "ningún movimiento puede tener cantidad cero o negativa")
		sum += m.SignedQuantity()
	}
	require.Equal(t, sum, stockOf(t, store, productID), "stock debe ser igual a la suma del ledger")
}

// flakyRunner devuelve conflicto en las primeras `failures` transacciones, después de ejecutar fn,
// para comprobar que las escrituras de un intento fallido no quedan aplicadas.
type flakyRunner struct {
	inner    ledger.TxRunner
	failures int
	err      error
	calls    int
}

func (f *flakyRunner) Run(ctx context.Context, fn func(
	sectionRepo repository.SectionRepository,
	shelfRepo repository.ShelfRepository,
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	f.calls++
	call := f.calls
	return f.inner.Run(ctx, func(
		sectionRepo repository.SectionRepository,
		shelfRepo repository.ShelfRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
	) error {
		if err := fn(sectionRepo, shelfRepo, productRepo, movRepo); err != nil {
			return err
		}
		if call <= f.failures {
			return f.err
		}
		return nil
	})
}

// ──────────────────────────────────────────────────────────────────────────────
// CreateProduct
// ──────────────────────────────────────────────────────────────────────────────

func TestCreateProduct_RegistraEntradaInicial(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 10)

	assert.Equal(t, 10, p.Stock)
	assert.NotZero(t, p.SectionID)
	assert.NotZero(t, p.ShelfID)

	movs := movementsOf(t, store, p.ID)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementInbound, movs[0].Type)
	assert.Equal(t, 10, movs[0].Quantity)
	require.NotNil(t, movs[0].Notes)
	assert.Equal(t, ledger.NoteInitialStock, *movs[0].Notes)
	assert.Nil(t, movs[0].UnitPrice, "la entrada inicial no lleva precio")
	assert.Equal(t, "CAT-100", movs[0].ProductCode)
	requireLedgerConsistent(t, store, p.ID)
}

func TestCreateProduct_SinStockInicialNoRegistraMovimiento(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 0)

	assert.Empty(t, movementsOf(t, store, p.ID))
	assert.Equal(t, 0, stockOf(t, store, p.ID))
}

func TestCreateProduct_ReutilizaSeccionYEstante(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	first := createFilter(t, engine, 1)
	second, err := engine.CreateProduct(ctx, ledger.CreateProductInput{
		ProductCode: "CAT-200", Name: "Pump", SectionName: "A", ShelfName: "1.Raf",
	})
	require.NoError(t, err)

	assert.Equal(t, first.SectionID, second.SectionID)
	assert.Equal(t, first.ShelfID, second.ShelfID)
	sections, _ := store.Sections().List(ctx)
	shelves, _ := store.Shelves().List(ctx)
	assert.Len(t, sections, 1, "no debe duplicar la sección")
	assert.Len(t, shelves, 1, "no debe duplicar el estante")
}

func TestCreateProduct_Validaciones(t *testing.T) {
	negative := decimal.NewFromInt(-1)
	cases := []struct {
		name  string
		in    ledger.CreateProductInput
		field string
	}{
		{"sin código", ledger.CreateProductInput{Name: "x", SectionName: "A", ShelfName: "1"}, "product_code"},
		{"sin nombre", ledger.CreateProductInput{ProductCode: "c", SectionName: "A", ShelfName: "1"}, "name"},
		{"stock negativo", ledger.CreateProductInput{ProductCode: "c", Name: "x", SectionName: "A", ShelfName: "1", InitialStock: -1}, "stock"},
		{"mínimo negativo", ledger.CreateProductInput{ProductCode: "c", Name: "x", SectionName: "A", ShelfName: "1", MinimumStock: -1}, "minimum_stock"},
		{"precio negativo", ledger.CreateProductInput{ProductCode: "c", Name: "x", SectionName: "A", ShelfName: "1", Price: &negative}, "price"},
		{"sin sección", ledger.CreateProductInput{ProductCode: "c", Name: "x", ShelfName: "1"}, "section_name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			engine, store := newEngine(t)
			_, err := engine.CreateProduct(context.Background(), tc.in)
			require.ErrorIs(t, err, domain.ErrInvalidInput)
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)

			products, _ := store.Products().List(context.Background())
			assert.Empty(t, products, "no debe haber mutación ante entrada inválida")
		})
	}
}

// ──────────────────────────────────────────────────────────────────────────────
// Sell / Replenish
// ──────────────────────────────────────────────────────────────────────────────

// Escenario: stock 10 → venta de 4 a 50 → stock 6 y salida {OUTBOUND, 4, 200.00}.
// Luego una venta de 10 falla con InsufficientStockError{6, 10} y el stock sigue en 6.
func TestSell_EscenarioVentaYStockInsuficiente(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 10)

	stock, err := engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, 6, stock)

	movs := movementsOf(t, store, p.ID)
	require.Len(t, movs, 2)
	sale := movs[0]
	assert.Equal(t, entity.MovementOutbound, sale.Type)
	assert.Equal(t, 4, sale.Quantity)
	require.NotNil(t, sale.TotalPrice)
	assert.True(t, decimal.RequireFromString("200.00").Equal(*sale.TotalPrice), "total = 4 × 50")
	require.NotNil(t, sale.Notes)
	assert.Equal(t, ledger.NoteSale, *sale.Notes)

	_, err = engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 10, UnitPrice: decimal.NewFromInt(50)})
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	var stockErr *domain.InsufficientStockError
	require.ErrorAs(t, err, &stockErr)
	assert.Equal(t, 6, stockErr.Available)
	assert.Equal(t, 10, stockErr.Requested)

	assert.Equal(t, 6, stockOf(t, store, p.ID))
	assert.Len(t, movementsOf(t, store, p.ID), 2, "el rechazo no debe registrar movimiento")
	requireLedgerConsistent(t, store, p.ID)
}

func TestSell_ProductoInexistente(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.Sell(context.Background(), ledger.StockInput{ProductID: 99, Quantity: 1, UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrNotFound)
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, int64(99), nf.ID)
}

func TestSell_CantidadInvalida(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 5)
	for _, qty := range []int{0, -3} {
		_, err := engine.Sell(context.Background(), ledger.StockInput{ProductID: p.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(1)})
		require.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Len(t, movementsOf(t, store, p.ID), 1)
}

// Escenario: stock 6 → reposición de 20 a 10 con nota "restock" → stock 26, entrada {INBOUND, 20, 200.00}.
func TestReplenish_Escenario(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 10)
	_, err := engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(50)})
	require.NoError(t, err)

	stock, err := engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 20, UnitPrice: decimal.NewFromInt(10), Notes: "restock"})
	require.NoError(t, err)
	assert.Equal(t, 26, stock)

	last := movementsOf(t, store, p.ID)[0]
	assert.Equal(t, entity.MovementInbound, last.Type)
	assert.Equal(t, 20, last.Quantity)
	assert.True(t, decimal.NewFromInt(200).Equal(*last.TotalPrice))
	assert.True(t, decimal.NewFromInt(10).Equal(*last.UnitPrice))
	assert.Equal(t, "restock", *last.Notes)
	requireLedgerConsistent(t, store, p.ID)
}

func TestReplenish_NotaPorDefecto(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 0)
	_, err := engine.Replenish(context.Background(), ledger.StockInput{ProductID: p.ID, Quantity: 3, UnitPrice: decimal.Zero})
	require.NoError(t, err)
	assert.Equal(t, ledger.NoteStockEntry, *movementsOf(t, store, p.ID)[0].Notes)
}

// ──────────────────────────────────────────────────────────────────────────────
// AdjustStock
// ──────────────────────────────────────────────────────────────────────────────

func TestAdjustStock_DeltaCeroRechazado(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 4)

	_, err := engine.AdjustStock(context.Background(), ledger.AdjustInput{ProductID: p.ID, Delta: 0})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "delta", vErr.Field)
	assert.Len(t, movementsOf(t, store, p.ID), 1, "no debe existir movimiento con cantidad 0")
}

func TestAdjustStock_TipoSegunSigno(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 4)

	stock, err := engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: -3, Notes: "conteo físico"})
	require.NoError(t, err)
	assert.Equal(t, 1, stock)
	out := movementsOf(t, store, p.ID)[0]
	assert.Equal(t, entity.MovementOutbound, out.Type)
	assert.Equal(t, 3, out.Quantity, "la cantidad registrada es el valor absoluto del delta")
	assert.Nil(t, out.TotalPrice)

	stock, err = engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: 7})
	require.NoError(t, err)
	assert.Equal(t, 8, stock)
	in := movementsOf(t, store, p.ID)[0]
	assert.Equal(t, entity.MovementInbound, in.Type)
	assert.Nil(t, in.Notes, "el ajuste sin nota no inventa una")
	requireLedgerConsistent(t, store, p.ID)
}

func TestAdjustStock_NoPermiteStockNegativo(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 2)

	_, err := engine.AdjustStock(context.Background(), ledger.AdjustInput{ProductID: p.ID, Delta: -3})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "delta", vErr.Field)
	assert.Equal(t, 2, stockOf(t, store, p.ID))
}

// ──────────────────────────────────────────────────────────────────────────────
// UpdateProduct / DeleteProduct
// ──────────────────────────────────────────────────────────────────────────────

func TestMovimientos_ExcedenElMaximoDeStock(t *testing.T) {
	engine, store := newEngine(t)
	p := createFilter(t, engine, 10)
	ctx := context.Background()

	cases := []struct {
		name  string
		call  func() (int, error)
		field string
	}{
		{"entrada enorme", func() (int, error) {
			return engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: math.MaxInt, UnitPrice: decimal.NewFromInt(1)})
		}, "quantity"},
		{"entrada que supera el tope", func() (int, error) {
			return engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: ledger.MaxStock})
		}, "quantity"},
		{"ajuste enorme", func() (int, error) {
			return engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: math.MaxInt})
		}, "delta"},
		{"ajuste negativo enorme", func() (int, error) {
			return engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: math.MinInt})
		}, "delta"},
		{"ajuste que supera el tope", func() (int, error) {
			return engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: ledger.MaxStock})
		}, "delta"},
		{"venta enorme", func() (int, error) {
			return engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: math.MaxInt})
		}, "quantity"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.call()
			var vErr *domain.ValidationError
			require.ErrorAs(t, err, &vErr)
			assert.Equal(t, tc.field, vErr.Field)
			assert.NotErrorIs(t, err, domain.ErrInsufficientStock)
			assert.NotErrorIs(t, err, domain.ErrStorage)
		})
	}
	assert.Equal(t, 10, stockOf(t, store, p.ID), "ningún intento modifica el stock")
	assert.Len(t, movementsOf(t, store, p.ID), 1)

	stock, err := engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: ledger.MaxStock - 10})
	require.NoError(t, err)
	assert.Equal(t, ledger.MaxStock, stock, "el tope exacto es válido")
	requireLedgerConsistent(t, store, p.ID)

	_, err = engine.CreateProduct(ctx, ledger.CreateProductInput{
		ProductCode: "CAT-200", Name: "Seal", SectionName: "A", ShelfName: "1.Raf", InitialStock: math.MaxInt,
	})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "stock", vErr.Field)
}

func TestUpdateProduct_SobrescribeStockSinMovimiento(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 10)

	desc := "revisado"
	updated, err := engine.UpdateProduct(ctx, ledger.UpdateProductInput{
		ID: p.ID, ProductCode: "CAT-101", Name: "Filter v2", SectionName: "B", ShelfName: "2.Raf",
		Stock: 3, MinimumStock: 1, Description: &desc,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.Stock)
	assert.Equal(t, "CAT-101", updated.ProductCode)
	assert.NotEqual(t, p.SectionID, updated.SectionID, "debe resolver la nueva sección")
	assert.Nil(t, updated.Price, "los campos opcionales también se sobrescriben")

	assert.Len(t, movementsOf(t, store, p.ID), 1, "la corrección no pasa por el ledger")
	assert.Equal(t, 3, stockOf(t, store, p.ID))
}

func TestUpdateProduct_NoEncontrado(t *testing.T) {
	engine, store := newEngine(t)
	_, err := engine.UpdateProduct(context.Background(), ledger.UpdateProductInput{
		ID: 42, ProductCode: "X", Name: "X", SectionName: "Z", ShelfName: "9",
	})
	require.ErrorIs(t, err, domain.ErrNotFound)
	sections, _ := store.Sections().List(context.Background())
	assert.Empty(t, sections, "no debe crear catálogo para un producto inexistente")
}

func TestDeleteProduct_ConservaMovimientos(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 10)
	_, err := engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 2, UnitPrice: decimal.NewFromInt(5)})
	require.NoError(t, err)

	require.NoError(t, engine.DeleteProduct(ctx, p.ID))

	got, _ := store.Products().GetByID(ctx, p.ID)
	assert.Nil(t, got)
	movs, err := engine.ListMovements(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movs, 2, "el historial sobrevive al producto")
	for _, m := range movs {
		assert.Equal(t, p.ID, m.ProductID)
		assert.Empty(t, m.ProductCode, "la referencia queda huérfana")
	}

	err = engine.DeleteProduct(ctx, p.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// ListMovements
// ──────────────────────────────────────────────────────────────────────────────

func TestListMovements_OrdenDescendenteConDesempatePorInsercion(t *testing.T) {
	store := memory.NewStore()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	engine := ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{Now: func() time.Time { return fixed }})
	ctx := context.Background()
	p := createFilter(t, engine, 1)
	for i := 1; i <= 3; i++ {
		_, err := engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: i, UnitPrice: decimal.NewFromInt(1)})
		require.NoError(t, err)
	}

	movs, err := engine.ListMovements(ctx, repository.MovementFilter{})
	require.NoError(t, err)
	require.Len(t, movs, 4)
	for i := 1; i < len(movs); i++ {
		assert.Greater(t, movs[i-1].ID, movs[i].ID, "a igual fecha, el más reciente primero")
	}
	assert.Equal(t, 3, movs[0].Quantity)

	limited, err := engine.ListMovements(ctx, repository.MovementFilter{Type: entity.MovementInbound, Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, 2, limited[0].Quantity)
}

func TestListMovements_FiltroInvalido(t *testing.T) {
	engine, _ := newEngine(t)
	_, err := engine.ListMovements(context.Background(), repository.MovementFilter{Type: "SIDEWAYS"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = engine.ListMovements(context.Background(), repository.MovementFilter{Limit: -1})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

// ──────────────────────────────────────────────────────────────────────────────
// Propiedades y concurrencia
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_SecuenciaAleatoriaMantieneConsistencia(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 20)
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		qty := rng.Intn(8) + 1
		var err error
		switch rng.Intn(3) {
		case 0:
			_, err = engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(2)})
		case 1:
			_, err = engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: qty, UnitPrice: decimal.NewFromInt(1)})
		default:
			_, err = engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: qty - 5})
		}
		if err != nil {
			require.True(t, errors.Is(err, domain.ErrInvalidInput) || errors.Is(err, domain.ErrInsufficientStock),
				"solo se esperan rechazos de validación o stock: %v", err)
		}
		require.GreaterOrEqual(t, stockOf(t, store, p.ID), 0)
	}
	requireLedgerConsistent(t, store, p.ID)
}

func TestSell_ConcurrenteAgotaStockExacto(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 10)

	var ok, insufficient int32
	var g errgroup.Group
	for i := 0; i < 25; i++ {
		g.Go(func() error {
			_, err := engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(3)})
			switch {
			case err == nil:
				atomic.AddInt32(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt32(&insufficient, 1)
			default:
				return err
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, int32(10), ok, "exactamente el stock disponible se vende")
	assert.Equal(t, int32(15), insufficient)
	assert.Equal(t, 0, stockOf(t, store, p.ID))
	requireLedgerConsistent(t, store, p.ID)
}

func TestAdjustStock_ConcurrenteSinActualizacionesPerdidas(t *testing.T) {
	engine, store := newEngine(t)
	ctx := context.Background()
	p := createFilter(t, engine, 100)

	var g errgroup.Group
	for i := 0; i < 40; i++ {
		delta := 2
		if i%2 == 0 {
			delta = -1
		}
		g.Go(func() error {
			_, err := engine.AdjustStock(ctx, ledger.AdjustInput{ProductID: p.ID, Delta: delta})
			return err
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 100+20*2-20, stockOf(t, store, p.ID))
	requireLedgerConsistent(t, store, p.ID)
}

// ──────────────────────────────────────────────────────────────────────────────
// Reintentos
// ──────────────────────────────────────────────────────────────────────────────

func TestRun_ReintentaConflictoYConfirma(t *testing.T) {
	store := memory.NewStore()
	seed := ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{})
	p := createFilter(t, seed, 10)

	runner := &flakyRunner{inner: store, failures: 2, err: fmt.Errorf("commit: %w", domain.ErrConflict)}
	engine := ledger.NewLedgerEngine(runner, store.Movements(), ledger.Config{})

	stock, err := engine.Sell(context.Background(), ledger.StockInput{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)
	assert.Equal(t, 6, stock)
	assert.Equal(t, 3, runner.calls)
	assert.Len(t, movementsOf(t, store, p.ID), 2, "los intentos fallidos no dejan movimientos")
	requireLedgerConsistent(t, store, p.ID)
}

func TestRun_AgotaReintentosYDevuelveConflicto(t *testing.T) {
	store := memory.NewStore()
	p := createFilter(t, ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{}), 10)

	runner := &flakyRunner{inner: store, failures: 5, err: fmt.Errorf("commit: %w", domain.ErrConflict)}
	engine := ledger.NewLedgerEngine(runner, store.Movements(), ledger.Config{MaxAttempts: 3})

	_, err := engine.Sell(context.Background(), ledger.StockInput{ProductID: p.ID, Quantity: 4, UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrConflict)
	var cErr *domain.ConcurrencyConflictError
	require.ErrorAs(t, err, &cErr)
	assert.Equal(t, 3, cErr.Attempts)
	assert.Equal(t, 3, runner.calls)
	assert.Equal(t, 10, stockOf(t, store, p.ID), "sin efecto parcial")
	assert.Len(t, movementsOf(t, store, p.ID), 1)
}

func TestRun_ErrorDeAlmacenamientoNoSeReintenta(t *testing.T) {
	store := memory.NewStore()
	p := createFilter(t, ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{}), 10)

	runner := &flakyRunner{inner: store, failures: 1, err: &domain.StorageError{Op: "commit", Err: fmt.Errorf("conexión perdida")}}
	engine := ledger.NewLedgerEngine(runner, store.Movements(), ledger.Config{})

	_, err := engine.Replenish(context.Background(), ledger.StockInput{ProductID: p.ID, Quantity: 1, UnitPrice: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrStorage)
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 10, stockOf(t, store, p.ID))
}

type countingCache struct{ bumps int32 }

func (c *countingCache) Bump(context.Context) error {
	atomic.AddInt32(&c.bumps, 1)
	return nil
}

func TestEngine_InvalidaCacheSoloTrasCommit(t *testing.T) {
	store := memory.NewStore()
	cache := &countingCache{}
	engine := ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{Cache: cache})
	ctx := context.Background()
	p := createFilter(t, engine, 1)

	_, err := engine.Sell(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(1)})
	require.Error(t, err)
	_, err = engine.Replenish(ctx, ledger.StockInput{ProductID: p.ID, Quantity: 5, UnitPrice: decimal.NewFromInt(1)})
	require.NoError(t, err)

	assert.Equal(t, int32(2), atomic.LoadInt32(&cache.bumps), "create + replenish; la venta rechazada no invalida")
}
