package service

import (
	"context"
	"testing"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type movementFixture struct {
	stockRepo    *stubStockRepo
	movementRepo *stubMovementRepo
	auditRepo    *stubAuditRepo
	svc          MovementService

	admin     model.Actor
	product   *model.Product
	warehouse uuid.UUID
}

func newMovementFixture(t *testing.T) *movementFixture {
	t.Helper()
	f := &movementFixture{
		stockRepo:    newStubStockRepo(),
		movementRepo: &stubMovementRepo{},
		auditRepo:    &stubAuditRepo{},
	}
	productRepo := newStubProductRepo()
	warehouseRepo := newStubWarehouseRepo()
	f.warehouse = warehouseRepo.seed("depot").ID

	f.product = productRepo.seed(&model.Product{
		Code:          "SKU-200",
		Name:          "Bolt",
		RetailPrice:   decimal.NewFromInt(12),
		PurchasePrice: decimal.NewFromInt(8),
	})

	stock := NewStockService(f.stockRepo, nil)
	f.svc = NewMovementService(f.movementRepo, productRepo, warehouseRepo, stock, NewAuditService(f.auditRepo))

	f.admin = model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	return f
}

func (f *movementFixture) record(t *testing.T, kind string, qty int) *dto.MovementResponse {
	t.Helper()
	resp, err := f.svc.Record(context.Background(), f.admin, dto.CreateMovementRequest{
		ProductID:   f.product.ID.String(),
		WarehouseID: f.warehouse.String(),
		Type:        kind,
		Quantity:    qty,
		Reason:      "stock count",
	})
	require.NoError(t, err)
	return resp
}

func TestManualEntryIncrementsStock(t *testing.T) {
	f := newMovementFixture(t)
	f.stockRepo.seed(f.product.ID, f.warehouse, 10, 0, 5)

	resp := f.record(t, model.MovementEntry, 15)

	require.NotNil(t, resp.QuantityBefore)
	require.NotNil(t, resp.QuantityAfter)
	assert.Equal(t, 10, *resp.QuantityBefore)
	assert.Equal(t, 25, *resp.QuantityAfter)
	assert.Equal(t, model.SourceManual, resp.Source, "source defaults to manual")
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(8)), "entry price defaults to purchase price")

	quantity, _ := f.stockRepo.snapshot(f.product.ID, f.warehouse)
	assert.Equal(t, 25, quantity)
	require.Len(t, f.movementRepo.all(), 1)
}

func TestManualEntryCreatesMissingStockEntry(t *testing.T) {
	f := newMovementFixture(t)

	resp := f.record(t, model.MovementEntry, 7)

	assert.Equal(t, 0, *resp.QuantityBefore)
	assert.Equal(t, 7, *resp.QuantityAfter)
	quantity, _ := f.stockRepo.snapshot(f.product.ID, f.warehouse)
	assert.Equal(t, 7, quantity)
}

func TestManualExitClampsAtZero(t *testing.T) {
	f := newMovementFixture(t)
	f.stockRepo.seed(f.product.ID, f.warehouse, 3, 0, 5)

	resp := f.record(t, model.MovementExit, 10)

	assert.Equal(t, 3, *resp.QuantityBefore)
	assert.Equal(t, 0, *resp.QuantityAfter)
	assert.True(t, resp.UnitPrice.Equal(decimal.NewFromInt(12)), "exit price defaults to retail price")
}

func TestAdjustmentSetsAbsoluteQuantity(t *testing.T) {
	f := newMovementFixture(t)
	f.stockRepo.seed(f.product.ID, f.warehouse, 10, 0, 5)

	resp := f.record(t, model.MovementAdjustment, 42)

	assert.Equal(t, 10, *resp.QuantityBefore)
	assert.Equal(t, 42, *resp.QuantityAfter)
	quantity, _ := f.stockRepo.snapshot(f.product.ID, f.warehouse)
	assert.Equal(t, 42, quantity)
}

func TestMovementRejectsUnknownProduct(t *testing.T) {
	f := newMovementFixture(t)

	_, err := f.svc.Record(context.Background(), f.admin, dto.CreateMovementRequest{
		ProductID:   uuid.NewString(),
		WarehouseID: f.warehouse.String(),
		Type:        model.MovementEntry,
		Quantity:    1,
		Reason:      "restock",
	})
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, e.Kind)
}

func TestMovementRejectsZeroQuantityForEntryAndExit(t *testing.T) {
	f := newMovementFixture(t)

	for _, kind := range []string{model.MovementEntry, model.MovementExit} {
		_, err := f.svc.Record(context.Background(), f.admin, dto.CreateMovementRequest{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Type:        kind,
			Quantity:    0,
			Reason:      "noop",
		})
		e, ok := apierror.As(err)
		require.True(t, ok, kind)
		assert.Equal(t, apierror.KindValidation, e.Kind, kind)
	}
}

func TestMovementAuditCarriesBeforeAndAfter(t *testing.T) {
	f := newMovementFixture(t)
	f.stockRepo.seed(f.product.ID, f.warehouse, 10, 0, 5)

	f.record(t, model.MovementEntry, 5)

	entries := f.auditRepo.all()
	require.Len(t, entries, 1)
	e := entries[0]
	assert.Equal(t, model.ActionMovement, e.Action)
	assert.Equal(t, "stock_movement", e.Entity)
	assert.Equal(t, 10, e.Detail["quantity_before"])
	assert.Equal(t, 15, e.Detail["quantity_after"])
}
