package service

import (
	"context"
	"errors"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"
	"stockpos/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// StockKey identifies one ledger entry. Multi-row operations sort their keys
// so row locks are always acquired in the same order, which keeps two sales
// confirming overlapping product/warehouse sets from deadlocking each other.
type StockKey struct {
	ProductID   uuid.UUID
	WarehouseID uuid.UUID
}

func (k StockKey) less(o StockKey) bool {
	if k.ProductID != o.ProductID {
		return k.ProductID.String() < o.ProductID.String()
	}
	return k.WarehouseID.String() < o.WarehouseID.String()
}

// SortKeys orders keys ascending by (product, warehouse) — the canonical
// lock-acquisition order.
func SortKeys(keys []StockKey) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j].less(keys[j-1]); j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// StockService is the only code path permitted to mutate quantity/reserved on
// a ledger entry. The ...Tx methods participate in the caller's transaction:
// SaleService and TransferService call them line by line inside their own
// transaction scope so a failure rolls back every prior row mutation.
type StockService interface {
	// ReserveTx places a hold for a pending sale: reserved += qty, guarded by
	// availability in a single conditional update.
	ReserveTx(tx *gorm.DB, key StockKey, qty int) error

	// ReleaseTx returns a hold: reserved -= qty, floored at zero.
	ReleaseTx(tx *gorm.DB, key StockKey, qty int) error

	// WithdrawTx commits a reservation into a permanent deduction:
	// quantity -= qty and reserved -= qty under the entry's row lock.
	WithdrawTx(tx *gorm.DB, key StockKey, qty int) error

	// ApplyMovementTx applies a non-sale, non-transfer movement effect and
	// returns the before/after quantities for the audit snapshot.
	ApplyMovementTx(tx *gorm.DB, key StockKey, movementType string, qty int) (before, after int, err error)

	// DebitTx removes qty from the entry's available stock under its row
	// lock. Unlike WithdrawTx it does not touch reservations; it is the
	// outbound half of a transfer.
	DebitTx(tx *gorm.DB, key StockKey, qty int) error

	// CreditTx adds qty to the entry, creating it on first use. The inbound
	// half of a transfer.
	CreditTx(tx *gorm.DB, key StockKey, qty, alertThreshold int) error

	// GetOrCreateTx lazily creates the entry with quantity=0 on first use.
	GetOrCreateTx(tx *gorm.DB, key StockKey, alertThreshold int) (*model.StockEntry, error)

	List(ctx context.Context, filter dto.StockFilter) (*dto.StockListResponse, error)
	Availability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error)

	// NotifyIfLow enqueues a low-stock alert for every key at or below its
	// threshold. Called after the owning transaction commits; best-effort.
	NotifyIfLow(ctx context.Context, keys []StockKey)
}

type stockService struct {
	repo       repository.StockRepository
	dispatcher *worker.Dispatcher
}

func NewStockService(repo repository.StockRepository, dispatcher *worker.Dispatcher) StockService {
	return &stockService{repo: repo, dispatcher: dispatcher}
}

func (s *stockService) ReserveTx(tx *gorm.DB, key StockKey, qty int) error {
	if qty <= 0 {
		return apierror.Validationf("quantity", "reserve quantity must be positive, got %d", qty)
	}
	entry, err := s.repo.FindTx(tx, key.ProductID, key.WarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.InsufficientStock(key.ProductID, key.WarehouseID, qty, 0)
		}
		return err
	}

	ok, err := s.repo.ReserveTx(tx, entry.ID, qty)
	if err != nil {
		return err
	}
	if !ok {
		// Guard failed — re-read for accurate availability in the error.
		fresh, ferr := s.repo.FindTx(tx, key.ProductID, key.WarehouseID)
		available := 0
		if ferr == nil {
			available = fresh.Available()
		}
		return apierror.InsufficientStock(key.ProductID, key.WarehouseID, qty, available)
	}
	return nil
}

func (s *stockService) ReleaseTx(tx *gorm.DB, key StockKey, qty int) error {
	if qty <= 0 {
		return apierror.Validationf("quantity", "release quantity must be positive, got %d", qty)
	}
	entry, err := s.repo.FindTx(tx, key.ProductID, key.WarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("stock entry", key.ProductID)
		}
		return err
	}

	clamped, err := s.repo.ReleaseTx(tx, entry.ID, qty)
	if err != nil {
		return err
	}
	if clamped {
		// The caller passed a stale amount. The floor keeps the invariant but
		// the mismatch itself points at a reservation bookkeeping bug.
		log.Warn().
			Str("product_id", key.ProductID.String()).
			Str("warehouse_id", key.WarehouseID.String()).
			Int("requested", qty).
			Int("reserved", entry.Reserved).
			Msg("release exceeded reserved quantity, floored at zero")
	}
	return nil
}

func (s *stockService) WithdrawTx(tx *gorm.DB, key StockKey, qty int) error {
	if qty <= 0 {
		return apierror.Validationf("quantity", "withdraw quantity must be positive, got %d", qty)
	}
	entry, err := s.repo.LockTx(tx, key.ProductID, key.WarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.NotFound("stock entry", key.ProductID)
		}
		return err
	}
	if qty > entry.Reserved {
		return apierror.OverWithdraw(key.ProductID, key.WarehouseID, qty, entry.Reserved)
	}
	return s.repo.WithdrawTx(tx, entry.ID, qty)
}

func (s *stockService) ApplyMovementTx(tx *gorm.DB, key StockKey, movementType string, qty int) (int, int, error) {
	entry, err := s.repo.LockTx(tx, key.ProductID, key.WarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, 0, apierror.NotFound("stock entry", key.ProductID)
		}
		return 0, 0, err
	}

	before := entry.Quantity
	var after int
	switch movementType {
	case model.MovementEntry:
		after = before + qty
		err = s.repo.AddQuantityTx(tx, entry.ID, qty)
	case model.MovementExit:
		after = before - qty
		if after < 0 {
			after = 0
		}
		// Reserved stock belongs to open drafts; an exit may only consume
		// what is actually available.
		if after < entry.Reserved {
			return 0, 0, apierror.InsufficientStock(key.ProductID, key.WarehouseID, qty, entry.Available())
		}
		err = s.repo.AddQuantityTx(tx, entry.ID, -qty)
	case model.MovementAdjustment:
		if qty < entry.Reserved {
			return 0, 0, apierror.Validationf("quantity",
				"adjustment to %d is below the reserved quantity %d", qty, entry.Reserved)
		}
		after = qty
		err = s.repo.SetQuantityTx(tx, entry.ID, qty)
	default:
		return 0, 0, apierror.Validationf("type", "movement type %q does not drive the ledger", movementType)
	}
	if err != nil {
		return 0, 0, err
	}
	return before, after, nil
}

func (s *stockService) DebitTx(tx *gorm.DB, key StockKey, qty int) error {
	if qty <= 0 {
		return apierror.Validationf("quantity", "debit quantity must be positive, got %d", qty)
	}
	entry, err := s.repo.LockTx(tx, key.ProductID, key.WarehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apierror.InsufficientStock(key.ProductID, key.WarehouseID, qty, 0)
		}
		return err
	}
	if entry.Available() < qty {
		return apierror.InsufficientStock(key.ProductID, key.WarehouseID, qty, entry.Available())
	}
	return s.repo.AddQuantityTx(tx, entry.ID, -qty)
}

func (s *stockService) CreditTx(tx *gorm.DB, key StockKey, qty, alertThreshold int) error {
	if qty <= 0 {
		return apierror.Validationf("quantity", "credit quantity must be positive, got %d", qty)
	}
	entry, err := s.repo.GetOrCreateTx(tx, key.ProductID, key.WarehouseID, alertThreshold)
	if err != nil {
		return err
	}
	return s.repo.AddQuantityTx(tx, entry.ID, qty)
}

func (s *stockService) GetOrCreateTx(tx *gorm.DB, key StockKey, alertThreshold int) (*model.StockEntry, error) {
	return s.repo.GetOrCreateTx(tx, key.ProductID, key.WarehouseID, alertThreshold)
}

func (s *stockService) List(ctx context.Context, filter dto.StockFilter) (*dto.StockListResponse, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.StockEntryResponse, 0, len(entries))
	for i := range entries {
		data = append(data, *entryToResponse(&entries[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	return &dto.StockListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func (s *stockService) Availability(ctx context.Context, req dto.AvailabilityRequest) (*dto.AvailabilityResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apierror.Validationf("product_id", "invalid product id")
	}
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		return nil, apierror.Validationf("warehouse_id", "invalid warehouse id")
	}

	entry, err := s.repo.Find(ctx, productID, warehouseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &dto.AvailabilityResponse{Sufficient: false, Requested: req.Quantity}, nil
		}
		return nil, err
	}
	avail := entry.Available()
	return &dto.AvailabilityResponse{
		Sufficient: avail >= req.Quantity,
		Available:  avail,
		Requested:  req.Quantity,
		Quantity:   entry.Quantity,
		Reserved:   entry.Reserved,
	}, nil
}

func (s *stockService) NotifyIfLow(ctx context.Context, keys []StockKey) {
	if s.dispatcher == nil {
		return
	}
	for _, key := range keys {
		entry, err := s.repo.Find(ctx, key.ProductID, key.WarehouseID)
		if err != nil {
			continue
		}
		if entry.Available() > entry.AlertThreshold {
			continue
		}
		payload := worker.LowStockAlert{
			ProductID:   key.ProductID.String(),
			WarehouseID: key.WarehouseID.String(),
			Quantity:    entry.Quantity,
			Reserved:    entry.Reserved,
			Available:   entry.Available(),
			Threshold:   entry.AlertThreshold,
		}
		if err := s.dispatcher.EnqueueLowStockAlert(ctx, payload); err != nil {
			log.Error().Err(err).
				Str("product_id", payload.ProductID).
				Str("warehouse_id", payload.WarehouseID).
				Msg("failed to enqueue low-stock alert")
		}
	}
}

func entryToResponse(e *model.StockEntry) *dto.StockEntryResponse {
	resp := &dto.StockEntryResponse{
		ID:             e.ID.String(),
		ProductID:      e.ProductID.String(),
		WarehouseID:    e.WarehouseID.String(),
		Quantity:       e.Quantity,
		Reserved:       e.Reserved,
		Available:      e.Available(),
		AlertThreshold: e.AlertThreshold,
		LowStock:       e.LowStock(),
		OutOfStock:     e.OutOfStock(),
	}
	if e.Product != nil {
		resp.ProductName = e.Product.Name
		resp.ProductCode = e.Product.Code
	}
	if e.Warehouse != nil {
		resp.WarehouseName = e.Warehouse.Name
	}
	return resp
}
