// Package memory implementa los puertos de persistencia en memoria.
// Sirve para desarrollo local (STORAGE_DRIVER=memory) y para los tests de aplicación y HTTP.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

// Store guarda el estado confirmado. Las escrituras de productos y movimientos dentro de Run
// quedan en staging hasta el commit; secciones y estantes se confirman al instante
// (buscar-o-crear es idempotente, igual que una secuencia).
type Store struct {
	mu        sync.Mutex
	sections  map[int64]entity.Section
	shelves   map[int64]entity.Shelf
	products  map[int64]entity.Product
	movements []entity.StockMovement

	sectionSeq  int64
	shelfSeq    int64
	productSeq  int64
	movementSeq int64
	lastMovedAt time.Time

	rowLocks map[int64]*rowLock
}

// rowLock canal de capacidad 1 más el número de transacciones que lo tienen o lo esperan.
// La entrada se borra cuando refs llega a cero, así ids inexistentes o borrados no quedan en el mapa.
type rowLock struct {
	ch   chan struct{}
	refs int
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		sections: make(map[int64]entity.Section),
		shelves:  make(map[int64]entity.Shelf),
		products: make(map[int64]entity.Product),
		rowLocks: make(map[int64]*rowLock),
	}
}

// Sections repo de secciones sobre el estado confirmado.
func (s *Store) Sections() repository.SectionRepository { return &sectionRepo{s: s} }

// Shelves repo de estantes sobre el estado confirmado.
func (s *Store) Shelves() repository.ShelfRepository { return &shelfRepo{s: s} }

// Products repo de productos en modo autocommit.
func (s *Store) Products() repository.ProductRepository { return &productRepo{s: s} }

// Movements repo del ledger en modo autocommit.
func (s *Store) Movements() repository.StockMovementRepository { return &movementRepo{s: s} }

// lockRow toma el lock exclusivo de un producto respetando la cancelación del contexto.
func (s *Store) lockRow(ctx context.Context, id int64) error {
	s.mu.Lock()
	l, ok := s.rowLocks[id]
	if !ok {
		l = &rowLock{ch: make(chan struct{}, 1)}
		s.rowLocks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.mu.Lock()
		s.dropRowLockLocked(id, l)
		s.mu.Unlock()
		return &domain.StorageError{Op: "lock product", Err: ctx.Err()}
	}
}

// unlockRow libera un lock tomado con lockRow.
func (s *Store) unlockRow(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l := s.rowLocks[id]
	<-l.ch
	s.dropRowLockLocked(id, l)
}

func (s *Store) dropRowLockLocked(id int64, l *rowLock) {
	l.refs--
	if l.refs == 0 {
		delete(s.rowLocks, id)
	}
}

// appendMovementLocked asigna ID y fecha no decreciente. Requiere s.mu.
func (s *Store) appendMovementLocked(m *entity.StockMovement) {
	s.movementSeq++
	m.ID = s.movementSeq
	if m.MovementDate.Before(s.lastMovedAt) {
		m.MovementDate = s.lastMovedAt
	}
	s.lastMovedAt = m.MovementDate
	s.movements = append(s.movements, cloneMovement(*m))
}

func (s *Store) productLocked(id int64) (*entity.Product, bool) {
	p, ok := s.products[id]
	if !ok {
		return nil, false
	}
	cp := cloneProduct(p)
	return &cp, true
}

func (s *Store) listMovements(filter repository.MovementFilter) []*entity.StockMovementView {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.StockMovementView, 0)
	for i := len(s.movements) - 1; i >= 0; i-- {
		m := s.movements[i]
		if filter.ProductID != 0 && m.ProductID != filter.ProductID {
			continue
		}
		if filter.Type != "" && m.Type != filter.Type {
			continue
		}
		if filter.From != nil && m.MovementDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && m.MovementDate.After(*filter.To) {
			continue
		}
		view := &entity.StockMovementView{StockMovement: cloneMovement(m)}
		if p, ok := s.products[m.ProductID]; ok {
			view.ProductCode = p.ProductCode
			view.ProductName = p.Name
		}
		out = append(out, view)
	}
	// Inserción inversa ya es el desempate; ordenar solo por fecha de forma estable.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].MovementDate.After(out[j].MovementDate)
	})
	return paginate(out, filter.Limit, filter.Offset)
}

func paginate[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}

func cloneProduct(p entity.Product) entity.Product {
	if p.Price != nil {
		price := *p.Price
		p.Price = &price
	}
	if p.Description != nil {
		desc := *p.Description
		p.Description = &desc
	}
	return p
}

func cloneMovement(m entity.StockMovement) entity.StockMovement {
	if m.UnitPrice != nil {
		v := *m.UnitPrice
		m.UnitPrice = &v
	}
	if m.TotalPrice != nil {
		v := *m.TotalPrice
		m.TotalPrice = &v
	}
	if m.Notes != nil {
		v := *m.Notes
		m.Notes = &v
	}
	return m
}
