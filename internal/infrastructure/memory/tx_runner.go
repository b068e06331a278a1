package memory

import (
	"context"

	"github.com/jhoicas/parts-ledger/internal/application/ledger"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
)

var _ ledger.TxRunner = (*Store)(nil)

// memTx escrituras en staging de una transacción y locks de fila tomados.
type memTx struct {
	s         *Store
	held      map[int64]bool
	products  map[int64]entity.Product
	deleted   map[int64]bool
	movements []*entity.StockMovement
}

// Run ejecuta fn con repos atados a una transacción en memoria y aplica el staging si fn no falla.
// Los locks de producto (GetForUpdate) se liberan al terminar, con commit o rollback.
func (s *Store) Run(ctx context.Context, fn func(
	sectionRepo repository.SectionRepository,
	shelfRepo repository.ShelfRepository,
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
) error) error {
	tx := &memTx{
		s:        s,
		held:     make(map[int64]bool),
		products: make(map[int64]entity.Product),
		deleted:  make(map[int64]bool),
	}
	defer tx.release()

	if err := fn(&sectionRepo{s: s}, &shelfRepo{s: s}, &productRepo{s: s, tx: tx}, &movementRepo{s: s, tx: tx}); err != nil {
		return err
	}
	tx.commit()
	return nil
}

func (tx *memTx) lock(ctx context.Context, id int64) error {
	if tx.held[id] {
		return nil
	}
	if err := tx.s.lockRow(ctx, id); err != nil {
		return err
	}
	tx.held[id] = true
	return nil
}

func (tx *memTx) commit() {
	tx.s.mu.Lock()
	defer tx.s.mu.Unlock()
	for id := range tx.deleted {
		delete(tx.s.products, id)
	}
	for id, p := range tx.products {
		tx.s.products[id] = cloneProduct(p)
	}
	for _, m := range tx.movements {
		tx.s.appendMovementLocked(m)
	}
}

func (tx *memTx) release() {
	for id := range tx.held {
		tx.s.unlockRow(id)
		delete(tx.held, id)
	}
}
