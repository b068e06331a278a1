package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/application/usecase"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/cache"
	"github.com/jhoicas/parts-ledger/internal/infrastructure/memory"
)

type fixture struct {
	store     *memory.Store
	cache     *cache.ListingCache
	products  *usecase.ProductQueryUseCase
	catalog   *usecase.CatalogUseCase
	inventory *usecase.InventoryUseCase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.NewStore()
	c := cache.NewListingCache(client, time.Minute)
	engine := ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{Cache: c})
	products := usecase.NewProductQueryUseCase(store.Products(), store.Sections(), store.Shelves(), c, language.Turkish, nil)
	return &fixture{
		store:     store,
		cache:     c,
		products:  products,
		catalog:   usecase.NewCatalogUseCase(store.Sections(), store.Shelves(), c, language.Turkish, nil),
		inventory: usecase.NewInventoryUseCase(engine, products),
	}
}

func (f *fixture) create(t *testing.T, code, section, shelf string, stock int) *dto.ProductResponse {
	t.Helper()
	p, err := f.inventory.CreateProduct(context.Background(), dto.CreateProductRequest{
		ProductCode: code, Name: "Parça " + code, SectionName: section, ShelfName: shelf, Stock: stock, MinimumStock: 2,
	})
	require.NoError(t, err)
	return p
}

func TestProductQuery_ListOrdenaPorSeccionEstanteYCodigo(t *testing.T) {
	f := newFixture(t)
	f.create(t, "CAT-3", "Şanzıman", "1. Raf", 1)
	f.create(t, "CAT-2", "Motor", "10. Raf", 1)
	f.create(t, "CAT-1", "Motor", "2. Raf", 1)
	f.create(t, "CAT-0", "Hidrolik", "1. Raf", 1)

	list, err := f.products.List(context.Background(), dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 4)
	codes := []string{}
	for _, p := range list.Items {
		codes = append(codes, p.ProductCode)
	}
	assert.Equal(t, []string{"CAT-0", "CAT-1", "CAT-2", "CAT-3"}, codes, "2. Raf antes que 10. Raf (orden numérico)")
	assert.Equal(t, "Motor", list.Items[1].SectionName)
	assert.Equal(t, "2. Raf", list.Items[1].ShelfName)
	assert.Equal(t, 4, list.Page.Total)
	assert.True(t, list.Items[0].BelowMinimum)
}

func TestProductQuery_ListSeInvalidaTrasCommit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "CAT-100", "A", "1.Raf", 10)

	before, err := f.products.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 10, before.Items[0].Stock)

	_, err = f.inventory.Sell(ctx, p.ID, dto.StockChangeRequest{Quantity: 4, UnitPrice: decimal.NewFromInt(50)})
	require.NoError(t, err)

	after, err := f.products.List(ctx, dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 6, after.Items[0].Stock, "la venta incrementa la versión de la caché")
}

func TestProductQuery_ListPaginado(t *testing.T) {
	f := newFixture(t)
	for _, code := range []string{"A-1", "A-2", "A-3"} {
		f.create(t, code, "A", "1", 0)
	}
	page, err := f.products.List(context.Background(), dto.PageRequest{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "A-3", page.Items[0].ProductCode)
	assert.Equal(t, 3, page.Page.Total)
}

func TestProductQuery_GetNoEncontrado(t *testing.T) {
	f := newFixture(t)
	_, err := f.products.Get(context.Background(), 404)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCatalog_EnsureYListados(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	desc := "Hidrolik Sistem"

	section, created, err := f.catalog.EnsureSection(ctx, dto.EnsureSectionRequest{Name: "B", Description: &desc})
	require.NoError(t, err)
	assert.True(t, created)
	again, created, err := f.catalog.EnsureSection(ctx, dto.EnsureSectionRequest{Name: "B"})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, section.ID, again.ID)

	_, _, err = f.catalog.EnsureShelf(ctx, dto.EnsureShelfRequest{Name: "1. Raf", SectionID: section.ID})
	require.NoError(t, err)
	shelves, err := f.catalog.ListShelves(ctx, section.ID)
	require.NoError(t, err)
	require.Len(t, shelves, 1)

	_, _, err = f.catalog.EnsureShelf(ctx, dto.EnsureShelfRequest{Name: "2. Raf", SectionID: section.ID})
	require.NoError(t, err)
	shelves, err = f.catalog.ListShelves(ctx, section.ID)
	require.NoError(t, err)
	assert.Len(t, shelves, 2, "crear un estante invalida el listado cacheado")

	sections, err := f.catalog.ListSections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 1)
	assert.Equal(t, desc, *sections[0].Description)
}

func TestCatalog_SeccionInexistente(t *testing.T) {
	f := newFixture(t)
	_, err := f.catalog.ListShelves(context.Background(), 9)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = f.catalog.EnsureShelf(context.Background(), dto.EnsureShelfRequest{Name: "1", SectionID: 9})
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventory_ListMovementsFiltros(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.create(t, "CAT-100", "A", "1.Raf", 10)
	_, err := f.inventory.Sell(ctx, p.ID, dto.StockChangeRequest{Quantity: 4, UnitPrice: decimal.NewFromInt(50)})
	require.NoError(t, err)

	out, err := f.inventory.ListMovements(ctx, dto.MovementListRequest{Type: "OUTBOUND"})
	require.NoError(t, err)
	require.Len(t, out.Items, 1)
	assert.Equal(t, "CAT-100", out.Items[0].ProductCode)
	assert.True(t, decimal.NewFromInt(200).Equal(*out.Items[0].TotalPrice))

	_, err = f.inventory.ListMovements(ctx, dto.MovementListRequest{From: "ayer"})
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "from", vErr.Field)
}

func TestProductQuery_SinCache(t *testing.T) {
	store := memory.NewStore()
	engine := ledger.NewLedgerEngine(store, store.Movements(), ledger.Config{})
	_, err := engine.CreateProduct(context.Background(), ledger.CreateProductInput{
		ProductCode: "X", Name: "X", SectionName: "A", ShelfName: "1", InitialStock: 1,
	})
	require.NoError(t, err)

	uc := usecase.NewProductQueryUseCase(store.Products(), store.Sections(), store.Shelves(), nil, language.English, nil)
	list, err := uc.List(context.Background(), dto.PageRequest{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	assert.Equal(t, "A", list.Items[0].SectionName)
}
