package usecase

import (
	"context"
	"sort"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// ProductQueryUseCase lecturas de productos con nombres de sección y estante.
type ProductQueryUseCase struct {
	products repository.ProductRepository
	sections repository.SectionRepository
	shelves  repository.ShelfRepository
	cache    ListingCache
	locale   language.Tag
	log      zerolog.Logger
}

// NewProductQueryUseCase construye el caso de uso. cache puede ser nil.
func NewProductQueryUseCase(
	products repository.ProductRepository,
	sections repository.SectionRepository,
	shelves repository.ShelfRepository,
	cache ListingCache,
	locale language.Tag,
	log *zerolog.Logger,
) *ProductQueryUseCase {
	uc := &ProductQueryUseCase{products: products, sections: sections, shelves: shelves, cache: cache, locale: locale, log: zerolog.Nop()}
	if log != nil {
		uc.log = *log
	}
	return uc
}

// List devuelve los productos ordenados por sección, estante y código según el idioma del catálogo.
func (uc *ProductQueryUseCase) List(ctx context.Context, page dto.PageRequest) (*dto.ProductListResponse, error) {
	page.DefaultPage()
	all, err := uc.all(ctx)
	if err != nil {
		return nil, err
	}
	return &dto.ProductListResponse{
		Items: paginate(all, page.Limit, page.Offset),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: len(all)},
	}, nil
}

// Get obtiene un producto por ID.
func (uc *ProductQueryUseCase) Get(ctx context.Context, id int64) (*dto.ProductResponse, error) {
	product, err := uc.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, domain.NewNotFoundError("product", id)
	}
	return uc.Describe(ctx, product)
}

// Describe completa un producto con los nombres de su sección y estante.
func (uc *ProductQueryUseCase) Describe(ctx context.Context, product *entity.Product) (*dto.ProductResponse, error) {
	var sectionName, shelfName string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s, err := uc.sections.GetByID(gctx, product.SectionID)
		if s != nil {
			sectionName = s.Name
		}
		return err
	})
	g.Go(func() error {
		s, err := uc.shelves.GetByID(gctx, product.ShelfID)
		if s != nil {
			shelfName = s.Name
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out := toProductResponse(product, sectionName, shelfName)
	return &out, nil
}

// all listado completo ya ordenado, vía caché.
func (uc *ProductQueryUseCase) all(ctx context.Context) ([]dto.ProductResponse, error) {
	var all []dto.ProductResponse
	if err := cachedFetch(ctx, uc.cache, &all, uc.loadAll, uc.cacheErr, "products", uc.locale.String()); err != nil {
		return nil, err
	}
	return all, nil
}

func (uc *ProductQueryUseCase) loadAll(ctx context.Context) (any, error) {
	var (
		products []*entity.Product
		sections []*entity.Section
		shelves  []*entity.Shelf
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		products, err = uc.products.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		sections, err = uc.sections.List(gctx)
		return err
	})
	g.Go(func() (err error) {
		shelves, err = uc.shelves.List(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sectionNames := make(map[int64]string, len(sections))
	for _, s := range sections {
		sectionNames[s.ID] = s.Name
	}
	shelfNames := make(map[int64]string, len(shelves))
	for _, s := range shelves {
		shelfNames[s.ID] = s.Name
	}
	out := make([]dto.ProductResponse, 0, len(products))
	for _, p := range products {
		out = append(out, toProductResponse(p, sectionNames[p.SectionID], shelfNames[p.ShelfID]))
	}

	col := collate.New(uc.locale, collate.Numeric)
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if c := col.CompareString(a.SectionName, b.SectionName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.ShelfName, b.ShelfName); c != 0 {
			return c < 0
		}
		if c := col.CompareString(a.ProductCode, b.ProductCode); c != 0 {
			return c < 0
		}
		return a.ID < b.ID
	})
	return out, nil
}

func (uc *ProductQueryUseCase) cacheErr(err error) {
	uc.log.Warn().Err(err).Msg("caché de productos no disponible, leyendo del almacenamiento")
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
