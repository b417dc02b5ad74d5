package service

import (
	"context"
	"errors"
	"time"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleService drives the sale lifecycle: draft → confirmed or draft →
// cancelled. A draft holds ledger reservations for its lines; confirmation
// converts them into withdrawals plus exit movements, cancellation releases
// them. Confirmed and cancelled sales are terminal for line mutation.
type SaleService interface {
	Create(ctx context.Context, actor model.Actor, req dto.CreateSaleRequest) (*dto.SaleResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error)
	List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error)
	UpdateLines(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.UpdateSaleLinesRequest) (*dto.SaleResponse, error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.SaleResponse, error)
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.SaleResponse, error)
	Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error
	AddPayment(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.AddPaymentRequest) (*dto.SaleResponse, error)
}

type saleService struct {
	sales     repository.SaleRepository
	products  repository.ProductRepository
	clients   repository.ClientRepository
	counters  repository.CounterRepository
	stock     StockService
	movements MovementService
	audit     AuditService
}

func NewSaleService(
	sales repository.SaleRepository,
	products repository.ProductRepository,
	clients repository.ClientRepository,
	counters repository.CounterRepository,
	stock StockService,
	movements MovementService,
	audit AuditService,
) SaleService {
	return &saleService{
		sales:     sales,
		products:  products,
		clients:   clients,
		counters:  counters,
		stock:     stock,
		movements: movements,
		audit:     audit,
	}
}

func (s *saleService) Create(ctx context.Context, actor model.Actor, req dto.CreateSaleRequest) (*dto.SaleResponse, error) {
	kind := req.Kind
	if kind == "" {
		kind = model.SaleKindRetail
	}
	discountType := req.DiscountType
	if discountType == "" {
		discountType = model.DiscountNone
	}

	sale := &model.Sale{
		Kind:          kind,
		Status:        model.SaleDraft,
		PaymentStatus: model.PaymentUnpaid,
		DiscountType:  discountType,
		DiscountValue: req.DiscountValue,
		Notes:         req.Notes,
		CreatedBy:     actor.ID,
	}

	if req.ClientID != nil {
		clientID, err := uuid.Parse(*req.ClientID)
		if err != nil {
			return nil, apierror.Validationf("client_id", "invalid client id")
		}
		if _, err := s.clients.FindByID(ctx, clientID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("client", *req.ClientID)
			}
			return nil, err
		}
		sale.ClientID = &clientID
	}
	if req.DueDate != nil {
		due, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, apierror.Validationf("due_date", "invalid due date, expected YYYY-MM-DD")
		}
		sale.DueDate = &due
	}

	lines, thresholds, err := s.buildLines(ctx, kind, req.Lines)
	if err != nil {
		return nil, err
	}
	sale.Lines = lines
	sale.RecomputeTotals(time.Now())

	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		day := time.Now().Format("20060102")
		seq, err := s.counters.NextTx(tx, repository.CounterSale, day)
		if err != nil {
			return err
		}
		sale.Number = repository.FormatSaleNumber(day, seq)

		// Reserve in canonical key order so concurrent drafts over
		// overlapping entries cannot deadlock.
		for _, key := range sortedLineKeys(sale.Lines) {
			if _, err := s.stock.GetOrCreateTx(tx, key, thresholds[key]); err != nil {
				return err
			}
			if err := s.stock.ReserveTx(tx, key, lineQuantity(sale.Lines, key)); err != nil {
				return err
			}
		}
		return s.sales.CreateTx(tx, sale)
	})
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionCreate, "sale", &sale.ID, saleDetail(sale))
	log.Info().Str("number", sale.Number).Str("sale_id", sale.ID.String()).Msg("sale draft created")
	return saleToResponse(sale), nil
}

func (s *saleService) Get(ctx context.Context, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	return saleToResponse(sale), nil
}

func (s *saleService) List(ctx context.Context, filter dto.SaleFilter) (*dto.SaleListResponse, error) {
	sales, total, err := s.sales.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.SaleResponse, 0, len(sales))
	for i := range sales {
		data = append(data, *saleToResponse(&sales[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return &dto.SaleListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// UpdateLines replaces the draft's line set. Reservations are reconciled by
// per-(product, warehouse) delta: unchanged quantities touch nothing, grown
// keys reserve only the difference, shrunk or removed keys release it.
func (s *saleService) UpdateLines(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.UpdateSaleLinesRequest) (*dto.SaleResponse, error) {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateSale(sale) {
		return nil, apierror.NotFound("sale", id)
	}
	if sale.Status != model.SaleDraft {
		return nil, apierror.InvalidTransition("sale", sale.Status, "updated")
	}

	newLines, thresholds, err := s.buildLines(ctx, sale.Kind, req.Lines)
	if err != nil {
		return nil, err
	}

	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		// The snapshot read above is only good for the friendly pre-checks.
		// Status and the old line set must come from the locked row, or a
		// concurrent confirm/cancel slips between the read and the writes.
		locked, err := s.sales.LockTx(tx, sale.ID)
		if err != nil {
			return err
		}
		if locked.Status != model.SaleDraft {
			return apierror.InvalidTransition("sale", locked.Status, "updated")
		}
		if req.DiscountType != nil {
			locked.DiscountType = *req.DiscountType
		}
		if req.DiscountValue != nil {
			locked.DiscountValue = *req.DiscountValue
		}

		oldQty := quantitiesByKey(locked.Lines)
		newQty := quantitiesByKey(newLines)

		keys := make([]StockKey, 0, len(oldQty)+len(newQty))
		seen := make(map[StockKey]bool, len(oldQty)+len(newQty))
		for key := range oldQty {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		for key := range newQty {
			if !seen[key] {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		SortKeys(keys)

		for _, key := range keys {
			delta := newQty[key] - oldQty[key]
			switch {
			case delta > 0:
				if _, err := s.stock.GetOrCreateTx(tx, key, thresholds[key]); err != nil {
					return err
				}
				if err := s.stock.ReserveTx(tx, key, delta); err != nil {
					return err
				}
			case delta < 0:
				if err := s.stock.ReleaseTx(tx, key, -delta); err != nil {
					return err
				}
			}
		}
		if err := s.sales.ReplaceLinesTx(tx, locked.ID, newLines); err != nil {
			return err
		}
		locked.Lines = newLines
		locked.RecomputeTotals(time.Now())
		if err := s.sales.SaveTx(tx, locked); err != nil {
			return err
		}
		sale = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionUpdate, "sale", &sale.ID, saleDetail(sale))
	return saleToResponse(sale), nil
}

// Confirm converts every reservation into a permanent withdrawal and emits
// one history-only exit movement per line. On any failure the transaction
// rolls back whole: a sale is never half-confirmed.
func (s *saleService) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateSale(sale) {
		return nil, apierror.NotFound("sale", id)
	}
	if sale.Status != model.SaleDraft {
		return nil, apierror.InvalidTransition("sale", sale.Status, "confirmed")
	}
	if len(sale.Lines) == 0 {
		return nil, apierror.Validationf("lines", "cannot confirm a sale without lines")
	}

	now := time.Now()
	actorID := actor.ID
	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		// The status flip is a conditional update, so of two racing
		// transitions exactly one wins the draft and the loser never
		// touches the ledger.
		ok, err := s.sales.TransitionTx(tx, sale.ID, model.SaleDraft, model.SaleConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			fresh, ferr := s.sales.LockTx(tx, sale.ID)
			if ferr != nil {
				return ferr
			}
			return apierror.InvalidTransition("sale", fresh.Status, "confirmed")
		}
		locked, err := s.sales.LockTx(tx, sale.ID)
		if err != nil {
			return err
		}
		if len(locked.Lines) == 0 {
			return apierror.Validationf("lines", "cannot confirm a sale without lines")
		}
		for _, key := range sortedLineKeys(locked.Lines) {
			if err := s.stock.WithdrawTx(tx, key, lineQuantity(locked.Lines, key)); err != nil {
				return err
			}
		}
		for i := range locked.Lines {
			line := &locked.Lines[i]
			if err := s.sales.UpdateLineWithdrawnTx(tx, line.ID); err != nil {
				return err
			}
			line.Withdrawn = true

			warehouseID := line.WarehouseID
			movement := &model.StockMovement{
				ProductID:   line.ProductID,
				WarehouseID: &warehouseID,
				Type:        model.MovementExit,
				Source:      model.SourceSale,
				Quantity:    line.Quantity,
				UnitPrice:   line.UnitPrice,
				SaleID:      &locked.ID,
				CreatedBy:   &actorID,
			}
			if err := s.movements.RecordTx(tx, movement); err != nil {
				return err
			}
		}
		locked.ConfirmedAt = &now
		if err := s.sales.SaveTx(tx, locked); err != nil {
			return err
		}
		sale = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, model.ActionConfirm, "sale", &sale.ID, saleDetail(sale))
	s.stock.NotifyIfLow(ctx, sortedLineKeys(sale.Lines))
	log.Info().Str("number", sale.Number).Msg("sale confirmed")
	return saleToResponse(sale), nil
}

// Cancel releases every reservation and closes the draft. Confirmed sales
// cannot be cancelled; stock already left the warehouse and must come back
// through a return movement.
func (s *saleService) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.SaleResponse, error) {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanMutateSale(sale) {
		return nil, apierror.NotFound("sale", id)
	}
	if sale.Status != model.SaleDraft {
		return nil, apierror.InvalidTransition("sale", sale.Status, "cancelled")
	}

	now := time.Now()
	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		ok, err := s.sales.TransitionTx(tx, sale.ID, model.SaleDraft, model.SaleCancelled)
		if err != nil {
			return err
		}
		if !ok {
			fresh, ferr := s.sales.LockTx(tx, sale.ID)
			if ferr != nil {
				return ferr
			}
			return apierror.InvalidTransition("sale", fresh.Status, "cancelled")
		}
		locked, err := s.sales.LockTx(tx, sale.ID)
		if err != nil {
			return err
		}
		for _, key := range sortedLineKeys(locked.Lines) {
			if err := s.stock.ReleaseTx(tx, key, lineQuantity(locked.Lines, key)); err != nil {
				return err
			}
		}
		locked.CancelledAt = &now
		if err := s.sales.SaveTx(tx, locked); err != nil {
			return err
		}
		sale = locked
		return nil
	})
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionCancel, "sale", &sale.ID, saleDetail(sale))
	log.Info().Str("number", sale.Number).Msg("sale cancelled")
	return saleToResponse(sale), nil
}

// Delete removes a draft outright, releasing its reservations first. The
// draft's creator or an admin may delete; non-draft sales are immutable
// records.
func (s *saleService) Delete(ctx context.Context, actor model.Actor, id uuid.UUID) error {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return err
	}
	if !actor.CanMutateSale(sale) {
		return apierror.NotFound("sale", id)
	}
	if sale.Status != model.SaleDraft {
		return apierror.InvalidTransition("sale", sale.Status, "deleted")
	}

	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		locked, err := s.sales.LockTx(tx, sale.ID)
		if err != nil {
			return err
		}
		if locked.Status != model.SaleDraft {
			return apierror.InvalidTransition("sale", locked.Status, "deleted")
		}
		for _, key := range sortedLineKeys(locked.Lines) {
			if err := s.stock.ReleaseTx(tx, key, lineQuantity(locked.Lines, key)); err != nil {
				return err
			}
		}
		return s.sales.DeleteTx(tx, locked.ID)
	})
	if err != nil {
		return err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionDelete, "sale", &sale.ID, saleDetail(sale))
	return nil
}

// AddPayment records a payment against a confirmed sale and rolls the paid /
// remaining totals forward. Overpayment is rejected, not clamped. The roll
// forward is a single guarded update so concurrent payments serialize: the
// sum of payment rows always equals sale.Paid and can never exceed total.
func (s *saleService) AddPayment(ctx context.Context, actor model.Actor, id uuid.UUID, req dto.AddPaymentRequest) (*dto.SaleResponse, error) {
	sale, err := s.findSale(ctx, id)
	if err != nil {
		return nil, err
	}
	if !req.Amount.IsPositive() {
		return nil, apierror.Validationf("amount", "payment amount must be positive")
	}

	actorID := actor.ID
	payment := &model.Payment{
		SaleID:    sale.ID,
		Amount:    req.Amount,
		Method:    req.Method,
		Reference: req.Reference,
		Notes:     req.Notes,
		CreatedBy: &actorID,
	}

	err = runTx(ctx, s.sales.DB(), func(tx *gorm.DB) error {
		ok, err := s.sales.AddPaidTx(tx, sale.ID, req.Amount)
		if err != nil {
			return err
		}
		if !ok {
			fresh, ferr := s.sales.LockTx(tx, sale.ID)
			if ferr != nil {
				return ferr
			}
			if fresh.Status != model.SaleConfirmed {
				return apierror.InvalidTransition("sale", fresh.Status, "paid")
			}
			return apierror.Validationf("amount", "payment of %s exceeds remaining balance %s",
				req.Amount.String(), fresh.Remaining.String())
		}
		return s.sales.CreatePaymentTx(tx, payment)
	})
	if err != nil {
		return nil, err
	}

	sale, err = s.findSale(ctx, sale.ID)
	if err != nil {
		return nil, err
	}
	s.audit.Record(ctx, &actorID, model.ActionPayment, "sale", &sale.ID,
		paymentDetail(sale, req.Amount, req.Method))
	return saleToResponse(sale), nil
}

// ─── internals ───────────────────────────────────────────────────────────────

func (s *saleService) findSale(ctx context.Context, id uuid.UUID) (*model.Sale, error) {
	sale, err := s.sales.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("sale", id)
		}
		return nil, err
	}
	return sale, nil
}

// buildLines resolves products, derives unit prices for the sale kind and
// returns the line models plus each key's default alert threshold.
func (s *saleService) buildLines(ctx context.Context, kind string, reqs []dto.SaleLineRequest) ([]model.SaleLine, map[StockKey]int, error) {
	lines := make([]model.SaleLine, 0, len(reqs))
	thresholds := make(map[StockKey]int, len(reqs))
	for i, lr := range reqs {
		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return nil, nil, apierror.Validationf("lines", "line %d: invalid product id", i)
		}
		warehouseID, err := uuid.Parse(lr.WarehouseID)
		if err != nil {
			return nil, nil, apierror.Validationf("lines", "line %d: invalid warehouse id", i)
		}
		if lr.Quantity <= 0 {
			return nil, nil, apierror.Validationf("lines", "line %d: quantity must be positive", i)
		}

		product, err := s.products.FindByID(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, nil, apierror.NotFound("product", lr.ProductID)
			}
			return nil, nil, err
		}

		unitPrice := lr.UnitPrice
		if unitPrice.IsZero() {
			unitPrice = product.PriceFor(kind)
		}

		line := model.SaleLine{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Quantity:    lr.Quantity,
			UnitPrice:   unitPrice,
		}
		line.LineTotal = unitPrice.Mul(decimal.NewFromInt(int64(lr.Quantity)))
		lines = append(lines, line)
		thresholds[StockKey{ProductID: productID, WarehouseID: warehouseID}] = product.AlertThreshold
	}
	return lines, thresholds, nil
}

func quantitiesByKey(lines []model.SaleLine) map[StockKey]int {
	qty := make(map[StockKey]int, len(lines))
	for _, l := range lines {
		qty[StockKey{ProductID: l.ProductID, WarehouseID: l.WarehouseID}] += l.Quantity
	}
	return qty
}

func sortedLineKeys(lines []model.SaleLine) []StockKey {
	qty := quantitiesByKey(lines)
	keys := make([]StockKey, 0, len(qty))
	for key := range qty {
		keys = append(keys, key)
	}
	SortKeys(keys)
	return keys
}

func lineQuantity(lines []model.SaleLine, key StockKey) int {
	return quantitiesByKey(lines)[key]
}

func saleToResponse(s *model.Sale) *dto.SaleResponse {
	resp := &dto.SaleResponse{
		ID:             s.ID.String(),
		Number:         s.Number,
		Kind:           s.Kind,
		Status:         s.Status,
		PaymentStatus:  s.PaymentStatus,
		DiscountType:   s.DiscountType,
		DiscountValue:  s.DiscountValue,
		Subtotal:       s.Subtotal,
		DiscountAmount: s.DiscountAmount,
		Total:          s.Total,
		Paid:           s.Paid,
		Remaining:      s.Remaining,
		CreatedAt:      s.CreatedAt.Format(timeFormat),
	}
	if s.ClientID != nil {
		id := s.ClientID.String()
		resp.ClientID = &id
	}
	if s.Client != nil {
		resp.ClientName = s.Client.Name
	}
	if s.ConfirmedAt != nil {
		t := s.ConfirmedAt.Format(timeFormat)
		resp.ConfirmedAt = &t
	}
	resp.Lines = make([]dto.SaleLineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lr := dto.SaleLineResponse{
			ID:          l.ID.String(),
			ProductID:   l.ProductID.String(),
			WarehouseID: l.WarehouseID.String(),
			Quantity:    l.Quantity,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
			Withdrawn:   l.Withdrawn,
		}
		if l.Product != nil {
			lr.ProductName = l.Product.Name
		}
		resp.Lines = append(resp.Lines, lr)
	}
	for _, p := range s.Payments {
		resp.Payments = append(resp.Payments, dto.PaymentResponse{
			ID:        p.ID.String(),
			Amount:    p.Amount,
			Method:    p.Method,
			Reference: p.Reference,
			CreatedAt: p.CreatedAt.Format(timeFormat),
		})
	}
	return resp
}
