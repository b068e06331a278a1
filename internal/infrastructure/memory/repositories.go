package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var (
	_ repository.SectionRepository       = (*sectionRepo)(nil)
	_ repository.ShelfRepository         = (*shelfRepo)(nil)
	_ repository.ProductRepository       = (*productRepo)(nil)
	_ repository.StockMovementRepository = (*movementRepo)(nil)
)

type sectionRepo struct{ s *Store }

func (r *sectionRepo) Create(_ context.Context, section *entity.Section) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.sections {
		if existing.Name == section.Name {
			return fmt.Errorf("insert section: %w", domain.ErrDuplicate)
		}
	}
	r.s.sectionSeq++
	section.ID = r.s.sectionSeq
	r.s.sections[section.ID] = *section
	return nil
}

func (r *sectionRepo) GetByID(_ context.Context, id int64) (*entity.Section, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s, ok := r.s.sections[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *sectionRepo) GetByName(_ context.Context, name string) (*entity.Section, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.sections {
		if s.Name == name {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *sectionRepo) List(_ context.Context) ([]*entity.Section, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]*entity.Section, 0, len(r.s.sections))
	for _, s := range r.s.sections {
		s := s
		list = append(list, &s)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

type shelfRepo struct{ s *Store }

func (r *shelfRepo) Create(_ context.Context, shelf *entity.Shelf) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.sections[shelf.SectionID]; !ok {
		return domain.NewNotFoundError("section", shelf.SectionID)
	}
	for _, existing := range r.s.shelves {
		if existing.Name == shelf.Name && existing.SectionID == shelf.SectionID {
			return fmt.Errorf("insert shelf: %w", domain.ErrDuplicate)
		}
	}
	r.s.shelfSeq++
	shelf.ID = r.s.shelfSeq
	r.s.shelves[shelf.ID] = *shelf
	return nil
}

func (r *shelfRepo) GetByID(_ context.Context, id int64) (*entity.Shelf, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if s, ok := r.s.shelves[id]; ok {
		return &s, nil
	}
	return nil, nil
}

func (r *shelfRepo) GetByNameAndSection(_ context.Context, name string, sectionID int64) (*entity.Shelf, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, s := range r.s.shelves {
		if s.Name == name && s.SectionID == sectionID {
			found := s
			return &found, nil
		}
	}
	return nil, nil
}

func (r *shelfRepo) ListBySection(_ context.Context, sectionID int64) ([]*entity.Shelf, error) {
	return r.list(func(s entity.Shelf) bool { return s.SectionID == sectionID }), nil
}

func (r *shelfRepo) List(_ context.Context) ([]*entity.Shelf, error) {
	return r.list(func(entity.Shelf) bool { return true }), nil
}

func (r *shelfRepo) list(keep func(entity.Shelf) bool) []*entity.Shelf {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	list := make([]*entity.Shelf, 0)
	for _, s := range r.s.shelves {
		if keep(s) {
			s := s
			list = append(list, &s)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// productRepo con tx == nil escribe directo sobre el estado confirmado.
type productRepo struct {
	s  *Store
	tx *memTx
}

func (r *productRepo) Create(_ context.Context, product *entity.Product) error {
	r.s.mu.Lock()
	r.s.productSeq++
	product.ID = r.s.productSeq
	if r.tx == nil {
		r.s.products[product.ID] = cloneProduct(*product)
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		r.tx.products[product.ID] = cloneProduct(*product)
	}
	return nil
}

func (r *productRepo) GetByID(_ context.Context, id int64) (*entity.Product, error) {
	if r.tx != nil {
		if r.tx.deleted[id] {
			return nil, nil
		}
		if p, ok := r.tx.products[id]; ok {
			cp := cloneProduct(p)
			return &cp, nil
		}
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, _ := r.s.productLocked(id)
	return p, nil
}

func (r *productRepo) GetForUpdate(ctx context.Context, id int64) (*entity.Product, error) {
	if r.tx == nil {
		return nil, &domain.StorageError{Op: "get product for update", Err: fmt.Errorf("requiere transacción")}
	}
	if err := r.tx.lock(ctx, id); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *productRepo) List(_ context.Context) ([]*entity.Product, error) {
	r.s.mu.Lock()
	merged := make(map[int64]entity.Product, len(r.s.products))
	for id, p := range r.s.products {
		merged[id] = cloneProduct(p)
	}
	r.s.mu.Unlock()
	if r.tx != nil {
		for id := range r.tx.deleted {
			delete(merged, id)
		}
		for id, p := range r.tx.products {
			merged[id] = cloneProduct(p)
		}
	}
	list := make([]*entity.Product, 0, len(merged))
	for _, p := range merged {
		p := p
		list = append(list, &p)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *productRepo) Update(ctx context.Context, product *entity.Product) error {
	existing, _ := r.GetByID(ctx, product.ID)
	if existing == nil {
		return domain.NewNotFoundError("product", product.ID)
	}
	r.put(*product)
	return nil
}

func (r *productRepo) UpdateStock(ctx context.Context, productID int64, stock int) error {
	p, _ := r.GetByID(ctx, productID)
	if p == nil {
		return domain.NewNotFoundError("product", productID)
	}
	p.Stock = stock
	r.put(*p)
	return nil
}

func (r *productRepo) Delete(_ context.Context, id int64) error {
	if r.tx != nil {
		delete(r.tx.products, id)
		r.tx.deleted[id] = true
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	delete(r.s.products, id)
	return nil
}

func (r *productRepo) put(p entity.Product) {
	if r.tx != nil {
		delete(r.tx.deleted, p.ID)
		r.tx.products[p.ID] = cloneProduct(p)
		return
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.products[p.ID] = cloneProduct(p)
}

// movementRepo con tx == nil inserta directo; dentro de una tx el ID se asigna al commit.
type movementRepo struct {
	s  *Store
	tx *memTx
}

func (r *movementRepo) Append(_ context.Context, movement *entity.StockMovement) error {
	if movement.Quantity <= 0 {
		return domain.NewValidationError("quantity", "debe ser mayor que cero")
	}
	if r.tx != nil {
		r.tx.movements = append(r.tx.movements, movement)
		return nil
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.appendMovementLocked(movement)
	return nil
}

func (r *movementRepo) List(_ context.Context, filter repository.MovementFilter) ([]*entity.StockMovementView, error) {
	return r.s.listMovements(filter), nil
}
