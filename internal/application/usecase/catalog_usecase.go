package usecase

import (
	"context"
	"sort"
	"strconv"

	"github.com/rs/zerolog"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/jhoicas/parts-ledger/internal/application/catalog"
	"github.com/jhoicas/parts-ledger/internal/application/dto"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// CatalogUseCase listados y alta directa de secciones y estantes.
type CatalogUseCase struct {
	sections repository.SectionRepository
	shelves  repository.ShelfRepository
	resolver *catalog.Resolver
	cache    ListingCache
	locale   language.Tag
	log      zerolog.Logger
}

// NewCatalogUseCase construye el caso de uso. cache puede ser nil.
func NewCatalogUseCase(
	sections repository.SectionRepository,
	shelves repository.ShelfRepository,
	cache ListingCache,
	locale language.Tag,
	log *zerolog.Logger,
) *CatalogUseCase {
	uc := &CatalogUseCase{
		sections: sections,
		shelves:  shelves,
		resolver: catalog.NewResolver(sections, shelves),
		cache:    cache,
		locale:   locale,
		log:      zerolog.Nop(),
	}
	if log != nil {
		uc.log = *log
	}
	return uc
}

// ListSections secciones ordenadas por nombre según el idioma del catálogo.
func (uc *CatalogUseCase) ListSections(ctx context.Context) ([]dto.SectionResponse, error) {
	var out []dto.SectionResponse
	err := cachedFetch(ctx, uc.cache, &out, func(ctx context.Context) (any, error) {
		list, err := uc.sections.List(ctx)
		if err != nil {
			return nil, err
		}
		items := make([]dto.SectionResponse, 0, len(list))
		for _, s := range list {
			items = append(items, toSectionResponse(s))
		}
		col := collate.New(uc.locale, collate.Numeric)
		sort.SliceStable(items, func(i, j int) bool { return col.CompareString(items[i].Name, items[j].Name) < 0 })
		return items, nil
	}, uc.cacheErr, "sections", uc.locale.String())
	return out, err
}

// ListShelves estantes de una sección. NotFoundError si la sección no existe.
func (uc *CatalogUseCase) ListShelves(ctx context.Context, sectionID int64) ([]dto.ShelfResponse, error) {
	section, err := uc.sections.GetByID(ctx, sectionID)
	if err != nil {
		return nil, err
	}
	if section == nil {
		return nil, domain.NewNotFoundError("section", sectionID)
	}
	var out []dto.ShelfResponse
	err = cachedFetch(ctx, uc.cache, &out, func(ctx context.Context) (any, error) {
		list, err := uc.shelves.ListBySection(ctx, sectionID)
		if err != nil {
			return nil, err
		}
		items := make([]dto.ShelfResponse, 0, len(list))
		for _, s := range list {
			items = append(items, toShelfResponse(s))
		}
		col := collate.New(uc.locale, collate.Numeric)
		sort.SliceStable(items, func(i, j int) bool { return col.CompareString(items[i].Name, items[j].Name) < 0 })
		return items, nil
	}, uc.cacheErr, "shelves", strconv.FormatInt(sectionID, 10), uc.locale.String())
	return out, err
}

// EnsureSection busca o crea la sección. created indica si se insertó ahora.
func (uc *CatalogUseCase) EnsureSection(ctx context.Context, in dto.EnsureSectionRequest) (*dto.SectionResponse, bool, error) {
	existing, err := uc.sections.GetByName(ctx, in.Name)
	if err != nil {
		return nil, false, err
	}
	section, err := uc.resolver.EnsureSection(ctx, in.Name, in.Description)
	if err != nil {
		return nil, false, err
	}
	created := existing == nil
	if created {
		uc.bump(ctx)
	}
	out := toSectionResponse(section)
	return &out, created, nil
}

// EnsureShelf busca o crea el estante en una sección existente.
func (uc *CatalogUseCase) EnsureShelf(ctx context.Context, in dto.EnsureShelfRequest) (*dto.ShelfResponse, bool, error) {
	section, err := uc.sections.GetByID(ctx, in.SectionID)
	if err != nil {
		return nil, false, err
	}
	if section == nil {
		return nil, false, domain.NewNotFoundError("section", in.SectionID)
	}
	existing, err := uc.shelves.GetByNameAndSection(ctx, in.Name, in.SectionID)
	if err != nil {
		return nil, false, err
	}
	shelf, err := uc.resolver.ResolveShelf(ctx, in.Name, in.SectionID)
	if err != nil {
		return nil, false, err
	}
	created := existing == nil
	if created {
		uc.bump(ctx)
	}
	out := toShelfResponse(shelf)
	return &out, created, nil
}

func (uc *CatalogUseCase) bump(ctx context.Context) {
	if uc.cache == nil {
		return
	}
	if err := uc.cache.Bump(ctx); err != nil {
		uc.log.Error().Err(err).Msg("invalidar caché de catálogo")
	}
}

func (uc *CatalogUseCase) cacheErr(err error) {
	uc.log.Warn().Err(err).Msg("caché de catálogo no disponible, leyendo del almacenamiento")
}
