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

// TransferService relocates stock between warehouses. A draft transfer is
// pure intent: nothing on the ledger moves until confirmation, which debits
// the source and credits the destination in one transaction. Cancellation
// therefore never touches stock.
type TransferService interface {
	Create(ctx context.Context, actor model.Actor, req dto.CreateTransferRequest) (*dto.TransferResponse, error)
	Get(ctx context.Context, id uuid.UUID) (*dto.TransferResponse, error)
	List(ctx context.Context, filter dto.TransferFilter) (*dto.TransferListResponse, error)
	Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.TransferResponse, error)
	Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.TransferResponse, error)
}

type transferService struct {
	transfers  repository.TransferRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	counters   repository.CounterRepository
	stock      StockService
	movements  MovementService
	audit      AuditService
}

func NewTransferService(
	transfers repository.TransferRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	counters repository.CounterRepository,
	stock StockService,
	movements MovementService,
	audit AuditService,
) TransferService {
	return &transferService{
		transfers:  transfers,
		products:   products,
		warehouses: warehouses,
		counters:   counters,
		stock:      stock,
		movements:  movements,
		audit:      audit,
	}
}

func (s *transferService) Create(ctx context.Context, actor model.Actor, req dto.CreateTransferRequest) (*dto.TransferResponse, error) {
	sourceID, err := uuid.Parse(req.SourceWarehouseID)
	if err != nil {
		return nil, apierror.Validationf("source_warehouse_id", "invalid warehouse id")
	}
	destID, err := uuid.Parse(req.DestWarehouseID)
	if err != nil {
		return nil, apierror.Validationf("dest_warehouse_id", "invalid warehouse id")
	}
	if sourceID == destID {
		return nil, apierror.Validationf("dest_warehouse_id", "source and destination warehouses must differ")
	}
	for _, id := range []uuid.UUID{sourceID, destID} {
		if _, err := s.warehouses.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("warehouse", id)
			}
			return nil, err
		}
	}

	lines := make([]model.TransferLine, 0, len(req.Lines))
	for i, lr := range req.Lines {
		productID, err := uuid.Parse(lr.ProductID)
		if err != nil {
			return nil, apierror.Validationf("lines", "line %d: invalid product id", i)
		}
		if lr.Quantity <= 0 {
			return nil, apierror.Validationf("lines", "line %d: quantity must be positive", i)
		}
		if _, err := s.products.FindByID(ctx, productID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, apierror.NotFound("product", lr.ProductID)
			}
			return nil, err
		}
		lines = append(lines, model.TransferLine{ProductID: productID, Quantity: lr.Quantity})
	}

	transfer := &model.Transfer{
		SourceWarehouseID: sourceID,
		DestWarehouseID:   destID,
		Status:            model.TransferDraft,
		Reason:            req.Reason,
		CreatedBy:         actor.ID,
		Lines:             lines,
	}

	err = runTx(ctx, s.transfers.DB(), func(tx *gorm.DB) error {
		day := time.Now().Format("20060102")
		seq, err := s.counters.NextTx(tx, repository.CounterTransfer, day)
		if err != nil {
			return err
		}
		transfer.Reference = repository.FormatTransferReference(day, seq)
		return s.transfers.CreateTx(tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionCreate, "transfer", &transfer.ID, transferDetail(transfer))
	log.Info().Str("reference", transfer.Reference).Msg("transfer draft created")
	return transferToResponse(transfer), nil
}

func (s *transferService) Get(ctx context.Context, id uuid.UUID) (*dto.TransferResponse, error) {
	transfer, err := s.findTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	return transferToResponse(transfer), nil
}

func (s *transferService) List(ctx context.Context, filter dto.TransferFilter) (*dto.TransferListResponse, error) {
	transfers, total, err := s.transfers.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.TransferResponse, 0, len(transfers))
	for i := range transfers {
		data = append(data, *transferToResponse(&transfers[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 50
	}
	return &dto.TransferListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// Confirm debits every line from the source warehouse and credits it to the
// destination, all-or-nothing. Row locks are taken in canonical key order
// across both warehouses.
func (s *transferService) Confirm(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.TransferResponse, error) {
	transfer, err := s.findTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer.Status != model.TransferDraft {
		return nil, apierror.InvalidTransition("transfer", transfer.Status, "confirmed")
	}
	if len(transfer.Lines) == 0 {
		return nil, apierror.Validationf("lines", "cannot confirm a transfer without lines")
	}

	// One ledger operation per (product, warehouse) key: negative amounts
	// debit the source, positive credit the destination.
	amounts := make(map[StockKey]int, len(transfer.Lines)*2)
	thresholds := make(map[StockKey]int, len(transfer.Lines))
	prices := make(map[uuid.UUID]decimal.Decimal, len(transfer.Lines))
	for _, line := range transfer.Lines {
		srcKey := StockKey{ProductID: line.ProductID, WarehouseID: transfer.SourceWarehouseID}
		dstKey := StockKey{ProductID: line.ProductID, WarehouseID: transfer.DestWarehouseID}
		amounts[srcKey] -= line.Quantity
		amounts[dstKey] += line.Quantity

		threshold := 5
		if product, err := s.products.FindByID(ctx, line.ProductID); err == nil {
			threshold = product.AlertThreshold
			prices[line.ProductID] = product.PurchasePrice
		}
		thresholds[dstKey] = threshold
	}
	keys := make([]StockKey, 0, len(amounts))
	for key := range amounts {
		keys = append(keys, key)
	}
	SortKeys(keys)

	now := time.Now()
	actorID := actor.ID
	err = runTx(ctx, s.transfers.DB(), func(tx *gorm.DB) error {
		// Conditional status flip: of two racing confirms exactly one wins
		// the draft, the other never reaches the ledger.
		ok, err := s.transfers.TransitionTx(tx, transfer.ID, model.TransferDraft, model.TransferConfirmed)
		if err != nil {
			return err
		}
		if !ok {
			fresh, ferr := s.transfers.FindByID(ctx, transfer.ID)
			if ferr != nil {
				return ferr
			}
			return apierror.InvalidTransition("transfer", fresh.Status, "confirmed")
		}
		for _, key := range keys {
			amount := amounts[key]
			switch {
			case amount < 0:
				if err := s.stock.DebitTx(tx, key, -amount); err != nil {
					return err
				}
			case amount > 0:
				if err := s.stock.CreditTx(tx, key, amount, thresholds[key]); err != nil {
					return err
				}
			}
		}
		// One movement per line. The transfer row carries both warehouses;
		// the movement records the moved quantity and the transfer backref.
		for _, line := range transfer.Lines {
			movement := &model.StockMovement{
				ProductID:  line.ProductID,
				Type:       model.MovementTransfer,
				Source:     model.SourceTransfer,
				Quantity:   line.Quantity,
				UnitPrice:  prices[line.ProductID],
				Reason:     "Transfer " + transfer.Reference,
				TransferID: &transfer.ID,
				CreatedBy:  &actorID,
			}
			if err := s.movements.RecordTx(tx, movement); err != nil {
				return err
			}
		}
		transfer.Status = model.TransferConfirmed
		transfer.ConfirmedAt = &now
		return s.transfers.SaveTx(tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, model.ActionConfirm, "transfer", &transfer.ID, transferDetail(transfer))
	s.stock.NotifyIfLow(ctx, keys)
	log.Info().Str("reference", transfer.Reference).Msg("transfer confirmed")
	return transferToResponse(transfer), nil
}

// Cancel closes a draft. There is nothing to undo on the ledger.
func (s *transferService) Cancel(ctx context.Context, actor model.Actor, id uuid.UUID) (*dto.TransferResponse, error) {
	transfer, err := s.findTransfer(ctx, id)
	if err != nil {
		return nil, err
	}
	if transfer.Status != model.TransferDraft {
		return nil, apierror.InvalidTransition("transfer", transfer.Status, "cancelled")
	}

	err = runTx(ctx, s.transfers.DB(), func(tx *gorm.DB) error {
		ok, err := s.transfers.TransitionTx(tx, transfer.ID, model.TransferDraft, model.TransferCancelled)
		if err != nil {
			return err
		}
		if !ok {
			fresh, ferr := s.transfers.FindByID(ctx, transfer.ID)
			if ferr != nil {
				return ferr
			}
			return apierror.InvalidTransition("transfer", fresh.Status, "cancelled")
		}
		transfer.Status = model.TransferCancelled
		return s.transfers.SaveTx(tx, transfer)
	})
	if err != nil {
		return nil, err
	}

	actorID := actor.ID
	s.audit.Record(ctx, &actorID, model.ActionCancel, "transfer", &transfer.ID, transferDetail(transfer))
	return transferToResponse(transfer), nil
}

func (s *transferService) findTransfer(ctx context.Context, id uuid.UUID) (*model.Transfer, error) {
	transfer, err := s.transfers.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("transfer", id)
		}
		return nil, err
	}
	return transfer, nil
}

func transferToResponse(t *model.Transfer) *dto.TransferResponse {
	resp := &dto.TransferResponse{
		ID:                t.ID.String(),
		Reference:         t.Reference,
		SourceWarehouseID: t.SourceWarehouseID.String(),
		DestWarehouseID:   t.DestWarehouseID.String(),
		Status:            t.Status,
		Reason:            t.Reason,
		CreatedAt:         t.CreatedAt.Format(timeFormat),
	}
	if t.ConfirmedAt != nil {
		ts := t.ConfirmedAt.Format(timeFormat)
		resp.ConfirmedAt = &ts
	}
	resp.Lines = make([]dto.TransferLineResponse, 0, len(t.Lines))
	for _, l := range t.Lines {
		lr := dto.TransferLineResponse{
			ProductID: l.ProductID.String(),
			Quantity:  l.Quantity,
		}
		if l.Product != nil {
			lr.ProductName = l.Product.Name
		}
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}
