package service

import (
	"context"
	"errors"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"
	"stockpos/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// MovementService records stock movements. Manual movements (entry, exit,
// adjustment) drive the ledger; sale- and transfer-sourced movements are
// history only and are recorded by their owning lifecycle via RecordTx.
type MovementService interface {
	Record(ctx context.Context, actor model.Actor, req dto.CreateMovementRequest) (*dto.MovementResponse, error)

	// RecordTx appends a history-only movement row inside the caller's
	// transaction. It never touches the ledger.
	RecordTx(tx *gorm.DB, m *model.StockMovement) error

	List(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error)
}

type movementService struct {
	movements  repository.MovementRepository
	products   repository.ProductRepository
	warehouses repository.WarehouseRepository
	stock      StockService
	audit      AuditService
}

func NewMovementService(
	movements repository.MovementRepository,
	products repository.ProductRepository,
	warehouses repository.WarehouseRepository,
	stock StockService,
	audit AuditService,
) MovementService {
	return &movementService{
		movements:  movements,
		products:   products,
		warehouses: warehouses,
		stock:      stock,
		audit:      audit,
	}
}

func (s *movementService) Record(ctx context.Context, actor model.Actor, req dto.CreateMovementRequest) (*dto.MovementResponse, error) {
	productID, err := uuid.Parse(req.ProductID)
	if err != nil {
		return nil, apierror.Validationf("product_id", "invalid product id")
	}
	warehouseID, err := uuid.Parse(req.WarehouseID)
	if err != nil {
		return nil, apierror.Validationf("warehouse_id", "invalid warehouse id")
	}
	if req.Type != model.MovementAdjustment && req.Quantity <= 0 {
		return nil, apierror.Validationf("quantity", "quantity must be positive for %s movements", req.Type)
	}
	if req.Quantity < 0 {
		return nil, apierror.Validationf("quantity", "quantity cannot be negative")
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("product", req.ProductID)
		}
		return nil, err
	}
	if _, err := s.warehouses.FindByID(ctx, warehouseID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apierror.NotFound("warehouse", req.WarehouseID)
		}
		return nil, err
	}

	source := req.Source
	if source == "" {
		source = model.SourceManual
	}
	unitPrice := req.UnitPrice
	if unitPrice.IsZero() {
		if req.Type == model.MovementEntry {
			unitPrice = product.PurchasePrice
		} else {
			unitPrice = product.PriceFor(model.SaleKindRetail)
		}
	}

	actorID := actor.ID
	movement := &model.StockMovement{
		ProductID:   productID,
		WarehouseID: &warehouseID,
		Type:        req.Type,
		Source:      source,
		Quantity:    req.Quantity,
		UnitPrice:   unitPrice,
		Reason:      req.Reason,
		CreatedBy:   &actorID,
	}

	var before, after int
	key := StockKey{ProductID: productID, WarehouseID: warehouseID}
	err = runTx(ctx, s.movements.DB(), func(tx *gorm.DB) error {
		if _, err := s.stock.GetOrCreateTx(tx, key, product.AlertThreshold); err != nil {
			return err
		}
		var err error
		before, after, err = s.stock.ApplyMovementTx(tx, key, req.Type, req.Quantity)
		if err != nil {
			return err
		}
		return s.movements.CreateTx(tx, movement)
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, &actorID, model.ActionMovement, "stock_movement", &movement.ID,
		movementDetail(movement, before, after))
	s.stock.NotifyIfLow(ctx, []StockKey{key})

	resp := movementToResponse(movement)
	resp.QuantityBefore = &before
	resp.QuantityAfter = &after
	return resp, nil
}

func (s *movementService) RecordTx(tx *gorm.DB, m *model.StockMovement) error {
	return s.movements.CreateTx(tx, m)
}

func (s *movementService) List(ctx context.Context, filter dto.MovementFilter) (*dto.MovementListResponse, error) {
	movements, total, err := s.movements.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	data := make([]dto.MovementResponse, 0, len(movements))
	for i := range movements {
		data = append(data, *movementToResponse(&movements[i]))
	}
	page, limit := filter.Page, filter.Limit
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	return &dto.MovementListResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

func movementToResponse(m *model.StockMovement) *dto.MovementResponse {
	resp := &dto.MovementResponse{
		ID:        m.ID.String(),
		ProductID: m.ProductID.String(),
		Type:      m.Type,
		Source:    m.Source,
		Quantity:  m.Quantity,
		UnitPrice: m.UnitPrice,
		Reason:    m.Reason,
		CreatedAt: m.CreatedAt.Format(timeFormat),
	}
	if m.WarehouseID != nil {
		id := m.WarehouseID.String()
		resp.WarehouseID = &id
	}
	if m.SaleID != nil {
		id := m.SaleID.String()
		resp.SaleID = &id
	}
	if m.TransferID != nil {
		id := m.TransferID.String()
		resp.TransferID = &id
	}
	if m.Product != nil {
		resp.ProductName = m.Product.Name
	}
	if m.Warehouse != nil {
		resp.WarehouseName = m.Warehouse.Name
	}
	return resp
}
