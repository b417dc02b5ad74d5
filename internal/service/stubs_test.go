package service

import (
	"context"
	"sync"
	"time"

	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Stubs ─────────────────────────────────────────────────────────────────────
// In-memory repositories. The stock stub is mutex-guarded so the concurrency
// tests exercise real contention on the reserve guard.

type stubStockRepo struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*model.StockEntry
}

func newStubStockRepo() *stubStockRepo {
	return &stubStockRepo{entries: make(map[uuid.UUID]*model.StockEntry)}
}

func (r *stubStockRepo) seed(productID, warehouseID uuid.UUID, quantity, reserved, threshold int) *model.StockEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := &model.StockEntry{
		ID:             uuid.New(),
		ProductID:      productID,
		WarehouseID:    warehouseID,
		Quantity:       quantity,
		Reserved:       reserved,
		AlertThreshold: threshold,
	}
	r.entries[e.ID] = e
	return e
}

func (r *stubStockRepo) findLocked(productID, warehouseID uuid.UUID) *model.StockEntry {
	for _, e := range r.entries {
		if e.ProductID == productID && e.WarehouseID == warehouseID {
			return e
		}
	}
	return nil
}

func (r *stubStockRepo) snapshot(productID, warehouseID uuid.UUID) (quantity, reserved int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.findLocked(productID, warehouseID); e != nil {
		return e.Quantity, e.Reserved
	}
	return 0, 0
}

func (r *stubStockRepo) Find(_ context.Context, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	return r.FindTx(nil, productID, warehouseID)
}

func (r *stubStockRepo) FindByID(_ context.Context, id uuid.UUID) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubStockRepo) List(_ context.Context, filter dto.StockFilter) ([]model.StockEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockEntry
	for _, e := range r.entries {
		if filter.LowOnly && !e.LowStock() {
			continue
		}
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *stubStockRepo) LowStock(_ context.Context) ([]model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.StockEntry
	for _, e := range r.entries {
		if e.Available() <= e.AlertThreshold {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *stubStockRepo) GetOrCreateTx(_ *gorm.DB, productID, warehouseID uuid.UUID, threshold int) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e := r.findLocked(productID, warehouseID); e != nil {
		cp := *e
		return &cp, nil
	}
	e := &model.StockEntry{
		ID:             uuid.New(),
		ProductID:      productID,
		WarehouseID:    warehouseID,
		AlertThreshold: threshold,
	}
	r.entries[e.ID] = e
	cp := *e
	return &cp, nil
}

func (r *stubStockRepo) FindTx(_ *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e := r.findLocked(productID, warehouseID)
	if e == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *e
	return &cp, nil
}

func (r *stubStockRepo) LockTx(tx *gorm.DB, productID, warehouseID uuid.UUID) (*model.StockEntry, error) {
	return r.FindTx(tx, productID, warehouseID)
}

func (r *stubStockRepo) ReserveTx(_ *gorm.DB, entryID uuid.UUID, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if e.Quantity-e.Reserved < qty {
		return false, nil
	}
	e.Reserved += qty
	return true, nil
}

func (r *stubStockRepo) ReleaseTx(_ *gorm.DB, entryID uuid.UUID, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if e.Reserved >= qty {
		e.Reserved -= qty
		return false, nil
	}
	e.Reserved = 0
	return true, nil
}

func (r *stubStockRepo) WithdrawTx(_ *gorm.DB, entryID uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Quantity -= qty
	e.Reserved -= qty
	return nil
}

func (r *stubStockRepo) AddQuantityTx(_ *gorm.DB, entryID uuid.UUID, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Quantity += delta
	if e.Quantity < 0 {
		e.Quantity = 0
	}
	return nil
}

func (r *stubStockRepo) SetQuantityTx(_ *gorm.DB, entryID uuid.UUID, qty int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[entryID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	e.Quantity = qty
	return nil
}

func (r *stubStockRepo) DB() *gorm.DB { return nil }

var _ repository.StockRepository = (*stubStockRepo)(nil)

// ── Movements ────────────────────────────────────────────────────────────────

type stubMovementRepo struct {
	mu        sync.Mutex
	movements []*model.StockMovement
}

func (r *stubMovementRepo) CreateTx(_ *gorm.DB, m *model.StockMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movements = append(r.movements, m)
	return nil
}

func (r *stubMovementRepo) List(_ context.Context, _ dto.MovementFilter) ([]model.StockMovement, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.StockMovement, 0, len(r.movements))
	for _, m := range r.movements {
		out = append(out, *m)
	}
	return out, int64(len(out)), nil
}

func (r *stubMovementRepo) DB() *gorm.DB { return nil }

func (r *stubMovementRepo) all() []*model.StockMovement {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.StockMovement(nil), r.movements...)
}

var _ repository.MovementRepository = (*stubMovementRepo)(nil)

// ── Sales ────────────────────────────────────────────────────────────────────

type stubSaleRepo struct {
	mu    sync.Mutex
	sales map[uuid.UUID]*model.Sale
}

func newStubSaleRepo() *stubSaleRepo {
	return &stubSaleRepo{sales: make(map[uuid.UUID]*model.Sale)}
}

func (r *stubSaleRepo) CreateTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	for i := range s.Lines {
		if s.Lines[i].ID == uuid.Nil {
			s.Lines[i].ID = uuid.New()
		}
		s.Lines[i].SaleID = s.ID
	}
	r.sales[s.ID] = s
	return nil
}

// cloneSale detaches a sale the way a fresh gorm read would: callers get
// their own lines and payments slices, never the stored ones.
func cloneSale(s *model.Sale) *model.Sale {
	cp := *s
	cp.Lines = append([]model.SaleLine(nil), s.Lines...)
	cp.Payments = append([]model.Payment(nil), s.Payments...)
	return &cp
}

func (r *stubSaleRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneSale(s), nil
}

func (r *stubSaleRepo) LockTx(_ *gorm.DB, id uuid.UUID) (*model.Sale, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return cloneSale(s), nil
}

func (r *stubSaleRepo) TransitionTx(_ *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if s.Status != from {
		return false, nil
	}
	s.Status = to
	return true, nil
}

func (r *stubSaleRepo) AddPaidTx(_ *gorm.DB, id uuid.UUID, amount decimal.Decimal) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	newPaid := s.Paid.Add(amount)
	if s.Status != model.SaleConfirmed || newPaid.GreaterThan(s.Total) {
		return false, nil
	}
	s.Paid = newPaid
	s.Remaining = s.Total.Sub(newPaid)
	if newPaid.GreaterThanOrEqual(s.Total) {
		s.PaymentStatus = model.PaymentPaid
		if s.PaidAt == nil {
			now := time.Now()
			s.PaidAt = &now
		}
	} else {
		s.PaymentStatus = model.PaymentPartial
	}
	return true, nil
}

func (r *stubSaleRepo) List(_ context.Context, filter dto.SaleFilter) ([]model.Sale, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Sale
	for _, s := range r.sales {
		if filter.Status != "" && filter.Status != "all" && s.Status != filter.Status {
			continue
		}
		out = append(out, *s)
	}
	return out, int64(len(out)), nil
}

func (r *stubSaleRepo) SaveTx(_ *gorm.DB, s *model.Sale) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sales[s.ID] = s
	return nil
}

func (r *stubSaleRepo) UpdateLineWithdrawnTx(_ *gorm.DB, lineID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sales {
		for i := range s.Lines {
			if s.Lines[i].ID == lineID {
				s.Lines[i].Withdrawn = true
				return nil
			}
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *stubSaleRepo) ReplaceLinesTx(_ *gorm.DB, saleID uuid.UUID, lines []model.SaleLine) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sales[saleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range lines {
		if lines[i].ID == uuid.Nil {
			lines[i].ID = uuid.New()
		}
		lines[i].SaleID = saleID
	}
	s.Lines = lines
	return nil
}

func (r *stubSaleRepo) CreatePaymentTx(_ *gorm.DB, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	s, ok := r.sales[p.SaleID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	s.Payments = append(s.Payments, *p)
	return nil
}

func (r *stubSaleRepo) DeleteTx(_ *gorm.DB, saleID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sales, saleID)
	return nil
}

func (r *stubSaleRepo) DB() *gorm.DB { return nil }

var _ repository.SaleRepository = (*stubSaleRepo)(nil)

// ── Transfers ────────────────────────────────────────────────────────────────

type stubTransferRepo struct {
	mu        sync.Mutex
	transfers map[uuid.UUID]*model.Transfer
}

func newStubTransferRepo() *stubTransferRepo {
	return &stubTransferRepo{transfers: make(map[uuid.UUID]*model.Transfer)}
}

func (r *stubTransferRepo) CreateTx(_ *gorm.DB, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	for i := range t.Lines {
		if t.Lines[i].ID == uuid.Nil {
			t.Lines[i].ID = uuid.New()
		}
		t.Lines[i].TransferID = t.ID
	}
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Transfer, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *t
	cp.Lines = append([]model.TransferLine(nil), t.Lines...)
	return &cp, nil
}

func (r *stubTransferRepo) List(_ context.Context, filter dto.TransferFilter) ([]model.Transfer, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Transfer
	for _, t := range r.transfers {
		if filter.Status != "" && filter.Status != "all" && t.Status != filter.Status {
			continue
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (r *stubTransferRepo) TransitionTx(_ *gorm.DB, id uuid.UUID, from, to string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.transfers[id]
	if !ok {
		return false, gorm.ErrRecordNotFound
	}
	if t.Status != from {
		return false, nil
	}
	t.Status = to
	return true, nil
}

func (r *stubTransferRepo) SaveTx(_ *gorm.DB, t *model.Transfer) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transfers[t.ID] = t
	return nil
}

func (r *stubTransferRepo) DB() *gorm.DB { return nil }

var _ repository.TransferRepository = (*stubTransferRepo)(nil)

// ── Counters ─────────────────────────────────────────────────────────────────

type stubCounterRepo struct {
	mu     sync.Mutex
	values map[string]int
}

func newStubCounterRepo() *stubCounterRepo {
	return &stubCounterRepo{values: make(map[string]int)}
}

func (r *stubCounterRepo) NextTx(_ *gorm.DB, kind, day string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := kind + ":" + day
	r.values[key]++
	return r.values[key], nil
}

var _ repository.CounterRepository = (*stubCounterRepo)(nil)

// ── Master data ──────────────────────────────────────────────────────────────

type stubProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*model.Product
}

func newStubProductRepo() *stubProductRepo {
	return &stubProductRepo{products: make(map[uuid.UUID]*model.Product)}
}

func (r *stubProductRepo) seed(p *model.Product) *model.Product {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.AlertThreshold == 0 {
		p.AlertThreshold = 5
	}
	r.products[p.ID] = p
	return p
}

func (r *stubProductRepo) Create(_ context.Context, p *model.Product) error {
	r.seed(p)
	return nil
}

func (r *stubProductRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProductRepo) FindByCode(_ context.Context, code string) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.products {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProductRepo) List(_ context.Context, _ dto.ProductFilter) ([]model.Product, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Product
	for _, p := range r.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

func (r *stubProductRepo) Update(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.products[p.ID] = p
	return nil
}

func (r *stubProductRepo) DB() *gorm.DB { return nil }

var _ repository.ProductRepository = (*stubProductRepo)(nil)

type stubWarehouseRepo struct {
	mu         sync.Mutex
	warehouses map[uuid.UUID]*model.Warehouse
}

func newStubWarehouseRepo() *stubWarehouseRepo {
	return &stubWarehouseRepo{warehouses: make(map[uuid.UUID]*model.Warehouse)}
}

func (r *stubWarehouseRepo) seed(name string) *model.Warehouse {
	r.mu.Lock()
	defer r.mu.Unlock()
	w := &model.Warehouse{ID: uuid.New(), Name: name, Active: true}
	r.warehouses[w.ID] = w
	return w
}

func (r *stubWarehouseRepo) Create(_ context.Context, w *model.Warehouse) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if w.ID == uuid.Nil {
		w.ID = uuid.New()
	}
	r.warehouses[w.ID] = w
	return nil
}

func (r *stubWarehouseRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	w, ok := r.warehouses[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return w, nil
}

func (r *stubWarehouseRepo) List(_ context.Context, activeOnly bool) ([]model.Warehouse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Warehouse
	for _, w := range r.warehouses {
		if activeOnly && !w.Active {
			continue
		}
		out = append(out, *w)
	}
	return out, nil
}

var _ repository.WarehouseRepository = (*stubWarehouseRepo)(nil)

type stubClientRepo struct {
	mu      sync.Mutex
	clients map[uuid.UUID]*model.Client
}

func newStubClientRepo() *stubClientRepo {
	return &stubClientRepo{clients: make(map[uuid.UUID]*model.Client)}
}

func (r *stubClientRepo) Create(_ context.Context, c *model.Client) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.clients[c.ID] = c
	return nil
}

func (r *stubClientRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.clients[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubClientRepo) List(_ context.Context) ([]model.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Client
	for _, c := range r.clients {
		out = append(out, *c)
	}
	return out, nil
}

var _ repository.ClientRepository = (*stubClientRepo)(nil)

// ── Audit ────────────────────────────────────────────────────────────────────

type stubAuditRepo struct {
	mu      sync.Mutex
	entries []*model.AuditEntry
}

func (r *stubAuditRepo) Create(_ context.Context, e *model.AuditEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.entries = append(r.entries, e)
	return nil
}

func (r *stubAuditRepo) List(_ context.Context, _ dto.AuditFilter) ([]model.AuditEntry, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.AuditEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	return out, int64(len(out)), nil
}

func (r *stubAuditRepo) all() []*model.AuditEntry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*model.AuditEntry(nil), r.entries...)
}

var _ repository.AuditRepository = (*stubAuditRepo)(nil)
