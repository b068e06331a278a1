package ledger

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/parts-ledger/internal/application/catalog"
	"github.com/jhoicas/parts-ledger/internal/domain"
	"github.com/jhoicas/parts-ledger/internal/domain/entity"
	"github.com/jhoicas/parts-ledger/internal/domain/repository"
	"github.com/jhoicas/parts-ledger/pkg/logger"
)

// Notas por defecto de los movimientos generados por el motor.
const (
	NoteInitialStock = "initial stock entry"
	NoteSale         = "sale"
	NoteStockEntry   = "stock entry"
)

// MaxStock tope de stock y de cantidad por movimiento (columnas INTEGER).
const MaxStock = math.MaxInt32

// DefaultMaxAttempts intentos por operación ante conflictos de concurrencia.
const DefaultMaxAttempts = 3

// Nombres de operación usados en logs y métricas.
const (
	OpCreateProduct = "create_product"
	OpUpdateProduct = "update_product"
	OpDeleteProduct = "delete_product"
	OpSell          = "sell"
	OpReplenish     = "replenish"
	OpAdjustStock   = "adjust_stock"
)

// Config opciones del motor. Los campos nil usan implementaciones nulas.
type Config struct {
	MaxAttempts int
	Now         func() time.Time
	Cache       CacheInvalidator
	Metrics     Recorder
	Log         *zerolog.Logger
}

// LedgerEngine es el único escritor de Product.Stock: cada cambio de stock y su StockMovement
// se confirman en la misma transacción, con la fila del producto bloqueada durante
// la verificación y la escritura.
type LedgerEngine struct {
	tx          TxRunner
	movements   repository.StockMovementRepository
	maxAttempts int
	clock       *monotonicClock
	cache       CacheInvalidator
	metrics     Recorder
	log         zerolog.Logger
}

// NewLedgerEngine construye el motor. movements se usa solo para lecturas fuera de transacción.
func NewLedgerEngine(tx TxRunner, movements repository.StockMovementRepository, cfg Config) *LedgerEngine {
	e := &LedgerEngine{
		tx:          tx,
		movements:   movements,
		maxAttempts: cfg.MaxAttempts,
		clock:       newMonotonicClock(cfg.Now),
		cache:       cfg.Cache,
		metrics:     cfg.Metrics,
		log:         zerolog.Nop(),
	}
	if e.maxAttempts <= 0 {
		e.maxAttempts = DefaultMaxAttempts
	}
	if e.metrics == nil {
		e.metrics = noopRecorder{}
	}
	if cfg.Log != nil {
		e.log = *cfg.Log
	}
	return e
}

// CreateProductInput datos para crear un producto. SectionName/ShelfName se resuelven (o crean) por nombre exacto.
type CreateProductInput struct {
	ProductCode  string
	Name         string
	SectionName  string
	ShelfName    string
	InitialStock int
	MinimumStock int
	Price        *decimal.Decimal
	Description  *string
}

// UpdateProductInput sobrescribe todos los campos mutables, incluido Stock, sin registrar movimiento.
type UpdateProductInput struct {
	ID           int64
	ProductCode  string
	Name         string
	SectionName  string
	ShelfName    string
	Stock        int
	MinimumStock int
	Price        *decimal.Decimal
	Description  *string
}

// StockInput entrada para Sell y Replenish. Notes vacío usa la nota por defecto de la operación.
type StockInput struct {
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
	Notes     string
}

// AdjustInput ajuste genérico: Delta positivo es entrada, negativo es salida.
type AdjustInput struct {
	ProductID int64
	Delta     int
	Notes     string
}

type txFunc = func(
	sectionRepo repository.SectionRepository,
	shelfRepo repository.ShelfRepository,
	productRepo repository.ProductRepository,
	movRepo repository.StockMovementRepository,
) error

// CreateProduct resuelve sección/estante, inserta el producto y, si InitialStock > 0,
// registra la entrada inicial en la misma transacción.
func (e *LedgerEngine) CreateProduct(ctx context.Context, in CreateProductInput) (*entity.Product, error) {
	if err := validateProductFields(in.ProductCode, in.Name, in.SectionName, in.ShelfName, in.MinimumStock, in.Price); err != nil {
		return nil, err
	}
	if err := validateStockLevel(in.InitialStock); err != nil {
		return nil, err
	}

	var created *entity.Product
	err := e.run(ctx, OpCreateProduct, func(
		sectionRepo repository.SectionRepository,
		shelfRepo repository.ShelfRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
	) error {
		section, shelf, err := catalog.NewResolver(sectionRepo, shelfRepo).Resolve(ctx, in.SectionName, in.ShelfName)
		if err != nil {
			return err
		}
		product := &entity.Product{
			ProductCode:  in.ProductCode,
			Name:         in.Name,
			SectionID:    section.ID,
			ShelfID:      shelf.ID,
			Stock:        in.InitialStock,
			MinimumStock: in.MinimumStock,
			Price:        in.Price,
			Description:  in.Description,
		}
		if err := productRepo.Create(ctx, product); err != nil {
			return err
		}
		if in.InitialStock > 0 {
			if err := e.appendMovement(ctx, movRepo, product.ID, entity.MovementInbound, in.InitialStock, nil, NoteInitialStock); err != nil {
				return err
			}
		}
		created = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	if in.InitialStock > 0 {
		e.metrics.ObserveMovement(entity.MovementInbound, in.InitialStock)
	}
	e.invalidate(ctx)
	return created, nil
}

// UpdateProduct corrige los datos de catálogo del producto. Stock se sobrescribe directamente
// y NO genera movimiento: es el camino de corrección, fuera del ledger.
func (e *LedgerEngine) UpdateProduct(ctx context.Context, in UpdateProductInput) (*entity.Product, error) {
	if err := validateProductFields(in.ProductCode, in.Name, in.SectionName, in.ShelfName, in.MinimumStock, in.Price); err != nil {
		return nil, err
	}
	if err := validateStockLevel(in.Stock); err != nil {
		return nil, err
	}

	var updated *entity.Product
	err := e.run(ctx, OpUpdateProduct, func(
		sectionRepo repository.SectionRepository,
		shelfRepo repository.ShelfRepository,
		productRepo repository.ProductRepository,
		_ repository.StockMovementRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, in.ID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFoundError("product", in.ID)
		}
		section, shelf, err := catalog.NewResolver(sectionRepo, shelfRepo).Resolve(ctx, in.SectionName, in.ShelfName)
		if err != nil {
			return err
		}
		product.ProductCode = in.ProductCode
		product.Name = in.Name
		product.SectionID = section.ID
		product.ShelfID = shelf.ID
		product.Stock = in.Stock
		product.MinimumStock = in.MinimumStock
		product.Price = in.Price
		product.Description = in.Description
		if err := productRepo.Update(ctx, product); err != nil {
			return err
		}
		updated = product
		return nil
	})
	if err != nil {
		return nil, err
	}
	e.invalidate(ctx)
	return updated, nil
}

// Sell descuenta stock y registra una salida con precio. Si el stock no alcanza
// devuelve InsufficientStockError sin modificar nada.
func (e *LedgerEngine) Sell(ctx context.Context, in StockInput) (int, error) {
	if err := validateStockInput(in); err != nil {
		return 0, err
	}
	return e.move(ctx, OpSell, in.ProductID, entity.MovementOutbound, in.Quantity, &in.UnitPrice, notesOrDefault(in.Notes, NoteSale))
}

// Replenish suma stock y registra una entrada con precio.
func (e *LedgerEngine) Replenish(ctx context.Context, in StockInput) (int, error) {
	if err := validateStockInput(in); err != nil {
		return 0, err
	}
	return e.move(ctx, OpReplenish, in.ProductID, entity.MovementInbound, in.Quantity, &in.UnitPrice, notesOrDefault(in.Notes, NoteStockEntry))
}

// AdjustStock aplica un delta con signo. Delta 0 no es un movimiento registrable.
func (e *LedgerEngine) AdjustStock(ctx context.Context, in AdjustInput) (int, error) {
	if in.ProductID <= 0 {
		return 0, domain.NewValidationError("product_id", "debe ser positivo")
	}
	if in.Delta == 0 {
		return 0, domain.NewValidationError("delta", "debe ser distinto de cero")
	}
	if in.Delta > MaxStock || in.Delta < -MaxStock {
		return 0, domain.NewValidationError("delta", "excede el máximo permitido")
	}
	movementType := entity.MovementInbound
	quantity := in.Delta
	if in.Delta < 0 {
		movementType = entity.MovementOutbound
		quantity = -in.Delta
	}
	return e.move(ctx, OpAdjustStock, in.ProductID, movementType, quantity, nil, in.Notes)
}

// DeleteProduct elimina el producto. Sus movimientos se conservan como historial
// (quedan con una referencia huérfana).
func (e *LedgerEngine) DeleteProduct(ctx context.Context, productID int64) error {
	if productID <= 0 {
		return domain.NewValidationError("product_id", "debe ser positivo")
	}
	err := e.run(ctx, OpDeleteProduct, func(
		_ repository.SectionRepository,
		_ repository.ShelfRepository,
		productRepo repository.ProductRepository,
		_ repository.StockMovementRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFoundError("product", productID)
		}
		return productRepo.Delete(ctx, productID)
	})
	if err != nil {
		return err
	}
	e.invalidate(ctx)
	return nil
}

// ListMovements devuelve movimientos con código y nombre de producto, del más reciente al más antiguo.
func (e *LedgerEngine) ListMovements(ctx context.Context, filter repository.MovementFilter) ([]*entity.StockMovementView, error) {
	if filter.Type != "" && !filter.Type.Valid() {
		return nil, domain.NewValidationError("type", "debe ser INBOUND u OUTBOUND")
	}
	if filter.Limit < 0 {
		return nil, domain.NewValidationError("limit", "no puede ser negativo")
	}
	if filter.Offset < 0 {
		return nil, domain.NewValidationError("offset", "no puede ser negativo")
	}
	if filter.From != nil && filter.To != nil && filter.From.After(*filter.To) {
		return nil, domain.NewValidationError("from", "debe ser anterior a to")
	}
	return e.movements.List(ctx, filter)
}

// move bloquea la fila del producto (GetForUpdate), verifica que el stock resultante no sea negativo,
// actualiza el stock y guarda el movimiento, todo en la misma transacción.
func (e *LedgerEngine) move(
	ctx context.Context,
	op string,
	productID int64,
	movementType entity.MovementType,
	quantity int,
	unitPrice *decimal.Decimal,
	notes string,
) (int, error) {
	var newStock int
	err := e.run(ctx, op, func(
		_ repository.SectionRepository,
		_ repository.ShelfRepository,
		productRepo repository.ProductRepository,
		movRepo repository.StockMovementRepository,
	) error {
		product, err := productRepo.GetForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product == nil {
			return domain.NewNotFoundError("product", productID)
		}
		next := product.Stock + movementType.Sign()*quantity
		if next > MaxStock {
			field := "quantity"
			if op == OpAdjustStock {
				field = "delta"
			}
			return domain.NewValidationError(field, "el stock resultante excede el máximo permitido")
		}
		if next < 0 {
			if op == OpAdjustStock {
				return domain.NewValidationError("delta", "el stock resultante sería negativo")
			}
			return &domain.InsufficientStockError{Available: product.Stock, Requested: quantity}
		}
		if err := productRepo.UpdateStock(ctx, productID, next); err != nil {
			return err
		}
		if err := e.appendMovement(ctx, movRepo, productID, movementType, quantity, unitPrice, notes); err != nil {
			return err
		}
		newStock = next
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.metrics.ObserveMovement(movementType, quantity)
	e.invalidate(ctx)
	return newStock, nil
}

func (e *LedgerEngine) appendMovement(
	ctx context.Context,
	movRepo repository.StockMovementRepository,
	productID int64,
	movementType entity.MovementType,
	quantity int,
	unitPrice *decimal.Decimal,
	notes string,
) error {
	movement := &entity.StockMovement{
		ProductID:    productID,
		Quantity:     quantity,
		Type:         movementType,
		MovementDate: e.clock.Now(),
	}
	if unitPrice != nil {
		price := *unitPrice
		total := price.Mul(decimal.NewFromInt(int64(quantity)))
		movement.UnitPrice = &price
		movement.TotalPrice = &total
	}
	if notes != "" {
		movement.Notes = &notes
	}
	return movRepo.Append(ctx, movement)
}

// run ejecuta fn en una transacción y la repite completa (lectura-verificación-escritura)
// mientras el almacenamiento reporte domain.ErrConflict, hasta maxAttempts.
func (e *LedgerEngine) run(ctx context.Context, op string, fn txFunc) error {
	var err error
	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		err = e.tx.Run(ctx, fn)
		if err == nil || !errors.Is(err, domain.ErrConflict) {
			break
		}
		if attempt == e.maxAttempts {
			err = &domain.ConcurrencyConflictError{Op: op, Attempts: attempt, Err: err}
			break
		}
		e.metrics.ObserveRetry(op)
		e.loggerFor(ctx).Warn().Err(err).Str("op", op).Int("attempt", attempt).Msg("conflicto de concurrencia, reintentando")
		if ctx.Err() != nil {
			err = &domain.StorageError{Op: op, Err: ctx.Err()}
			break
		}
	}
	e.metrics.ObserveOperation(op, err)
	return err
}

// invalidate marca las lecturas cacheadas como obsoletas. Un fallo de caché no deshace el commit.
func (e *LedgerEngine) invalidate(ctx context.Context) {
	if e.cache == nil {
		return
	}
	if err := e.cache.Bump(ctx); err != nil {
		e.loggerFor(ctx).Error().Err(err).Msg("invalidar caché de listados")
	}
}

// logger prefiere el logger de la petición (con request_id) si viene en el contexto.
func (e *LedgerEngine) loggerFor(ctx context.Context) *zerolog.Logger {
	return logger.FromContext(ctx, &e.log)
}

func validateProductFields(code, name, sectionName, shelfName string, minimumStock int, price *decimal.Decimal) error {
	switch {
	case code == "":
		return domain.NewValidationError("product_code", "es requerido")
	case name == "":
		return domain.NewValidationError("name", "es requerido")
	case sectionName == "":
		return domain.NewValidationError("section_name", "es requerido")
	case shelfName == "":
		return domain.NewValidationError("shelf_name", "es requerido")
	case minimumStock < 0:
		return domain.NewValidationError("minimum_stock", "no puede ser negativo")
	case minimumStock > MaxStock:
		return domain.NewValidationError("minimum_stock", "excede el máximo permitido")
	case price != nil && price.IsNegative():
		return domain.NewValidationError("price", "no puede ser negativo")
	}
	return nil
}

func validateStockLevel(stock int) error {
	switch {
	case stock < 0:
		return domain.NewValidationError("stock", "no puede ser negativo")
	case stock > MaxStock:
		return domain.NewValidationError("stock", "excede el máximo permitido")
	}
	return nil
}

func validateStockInput(in StockInput) error {
	switch {
	case in.ProductID <= 0:
		return domain.NewValidationError("product_id", "debe ser positivo")
	case in.Quantity <= 0:
		return domain.NewValidationError("quantity", "debe ser mayor que cero")
	case in.Quantity > MaxStock:
		return domain.NewValidationError("quantity", "excede el máximo permitido")
	case in.UnitPrice.IsNegative():
		return domain.NewValidationError("unit_price", "no puede ser negativo")
	}
	return nil
}

func notesOrDefault(notes, def string) string {
	if notes == "" {
		return def
	}
	return notes
}
