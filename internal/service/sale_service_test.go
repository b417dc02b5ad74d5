package service

import (
	"context"
	"sync"
	"testing"

	"stockpos/internal/apierror"
	"stockpos/internal/dto"
	"stockpos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type saleFixture struct {
	stockRepo    *stubStockRepo
	saleRepo     *stubSaleRepo
	movementRepo *stubMovementRepo
	auditRepo    *stubAuditRepo
	productRepo  *stubProductRepo
	svc          SaleService
	stock        StockService

	admin     model.Actor
	product   *model.Product
	warehouse uuid.UUID
	key       StockKey
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	f := &saleFixture{
		stockRepo:    newStubStockRepo(),
		saleRepo:     newStubSaleRepo(),
		movementRepo: &stubMovementRepo{},
		auditRepo:    &stubAuditRepo{},
		productRepo:  newStubProductRepo(),
	}
	warehouseRepo := newStubWarehouseRepo()
	warehouse := warehouseRepo.seed("main")
	f.warehouse = warehouse.ID

	f.product = f.productRepo.seed(&model.Product{
		Code:        "SKU-001",
		Name:        "Widget",
		RetailPrice: decimal.NewFromInt(100),
	})
	f.key = StockKey{ProductID: f.product.ID, WarehouseID: f.warehouse}

	audit := NewAuditService(f.auditRepo)
	f.stock = NewStockService(f.stockRepo, nil)
	movements := NewMovementService(f.movementRepo, f.productRepo, warehouseRepo, f.stock, audit)
	f.svc = NewSaleService(f.saleRepo, f.productRepo, newStubClientRepo(), newStubCounterRepo(), f.stock, movements, audit)

	f.admin = model.Actor{ID: uuid.New(), Role: model.RoleAdmin}
	return f
}

func (f *saleFixture) createDraft(t *testing.T, qty int) *dto.SaleResponse {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), f.admin, dto.CreateSaleRequest{
		Lines: []dto.SaleLineRequest{{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Quantity:    qty,
		}},
	})
	require.NoError(t, err)
	return resp
}

func TestCreateSaleReservesStockAndDerivesPrice(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)

	resp := f.createDraft(t, 4)

	assert.Equal(t, model.SaleDraft, resp.Status)
	assert.Equal(t, model.PaymentUnpaid, resp.PaymentStatus)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].UnitPrice.Equal(decimal.NewFromInt(100)), "unit price derives from retail price")
	assert.True(t, resp.Subtotal.Equal(decimal.NewFromInt(400)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(400)))

	quantity, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 10, quantity, "draft creation must not deduct stock")
	assert.Equal(t, 4, reserved)
}

func TestCreateSaleRejectsInsufficientStock(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 3, 0, 5)

	_, err := f.svc.Create(context.Background(), f.admin, dto.CreateSaleRequest{
		Lines: []dto.SaleLineRequest{{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Quantity:    5,
		}},
	})
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindInsufficientStock, e.Kind)
	assert.Equal(t, "3", e.Fields["available"])
}

func TestSaleNumbersAreSequentialPerDay(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 20, 0, 5)

	first := f.createDraft(t, 1)
	second := f.createDraft(t, 1)

	assert.Regexp(t, `^V\d{8}0001$`, first.Number)
	assert.Regexp(t, `^V\d{8}0002$`, second.Number)
}

func TestUpdateLinesReconcilesReservationsByDelta(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)

	other := f.productRepo.seed(&model.Product{
		Code:        "SKU-002",
		Name:        "Gadget",
		RetailPrice: decimal.NewFromInt(50),
	})
	otherKey := StockKey{ProductID: other.ID, WarehouseID: f.warehouse}
	f.stockRepo.seed(otherKey.ProductID, otherKey.WarehouseID, 10, 0, 5)

	draft := f.createDraft(t, 4)
	saleID := uuid.MustParse(draft.ID)

	// Grow the widget line, add a gadget line.
	resp, err := f.svc.UpdateLines(context.Background(), f.admin, saleID, dto.UpdateSaleLinesRequest{
		Lines: []dto.SaleLineRequest{
			{ProductID: f.product.ID.String(), WarehouseID: f.warehouse.String(), Quantity: 6},
			{ProductID: other.ID.String(), WarehouseID: f.warehouse.String(), Quantity: 2},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.Lines, 2)

	_, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 6, reserved, "only the +2 delta is newly reserved")
	_, otherReserved := f.stockRepo.snapshot(otherKey.ProductID, otherKey.WarehouseID)
	assert.Equal(t, 2, otherReserved)

	// Drop the gadget line, shrink the widget line.
	_, err = f.svc.UpdateLines(context.Background(), f.admin, saleID, dto.UpdateSaleLinesRequest{
		Lines: []dto.SaleLineRequest{
			{ProductID: f.product.ID.String(), WarehouseID: f.warehouse.String(), Quantity: 1},
		},
	})
	require.NoError(t, err)

	_, reserved = f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 1, reserved)
	_, otherReserved = f.stockRepo.snapshot(otherKey.ProductID, otherKey.WarehouseID)
	assert.Equal(t, 0, otherReserved, "removed key releases its full reservation")
}

func TestConfirmWithdrawsAndEmitsExitMovements(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 4)
	saleID := uuid.MustParse(draft.ID)

	resp, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	assert.Equal(t, model.SaleConfirmed, resp.Status)
	require.NotNil(t, resp.ConfirmedAt)
	require.Len(t, resp.Lines, 1)
	assert.True(t, resp.Lines[0].Withdrawn)

	quantity, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 6, quantity)
	assert.Equal(t, 0, reserved)

	movements := f.movementRepo.all()
	require.Len(t, movements, 1)
	assert.Equal(t, model.MovementExit, movements[0].Type)
	assert.Equal(t, model.SourceSale, movements[0].Source)
	require.NotNil(t, movements[0].SaleID)
	assert.Equal(t, saleID, *movements[0].SaleID)
}

func TestConfirmIsDraftOnly(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 2)
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	_, err = f.svc.Confirm(context.Background(), f.admin, saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindInvalidTransition, e.Kind)

	quantity, _ := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 8, quantity, "second confirm must not double-withdraw")
}

func TestCancelReleasesReservations(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 4)
	saleID := uuid.MustParse(draft.ID)

	resp, err := f.svc.Cancel(context.Background(), f.admin, saleID)
	require.NoError(t, err)
	assert.Equal(t, model.SaleCancelled, resp.Status)

	quantity, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 10, quantity)
	assert.Equal(t, 0, reserved)
}

func TestCancelConfirmedSaleFails(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 2)
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), f.admin, saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindInvalidTransition, e.Kind)
}

func TestSellerCannotMutateAnotherSellersDraft(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 2)
	saleID := uuid.MustParse(draft.ID)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleSeller}
	_, err := f.svc.Confirm(context.Background(), stranger, saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, e.Kind, "foreign drafts read as missing, not forbidden")
}

func TestPaymentsRollTotalsForward(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 4) // total 400
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	resp, err := f.svc.AddPayment(context.Background(), f.admin, saleID, dto.AddPaymentRequest{
		Amount: decimal.NewFromInt(150),
		Method: model.MethodCash,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPartial, resp.PaymentStatus)
	assert.True(t, resp.Remaining.Equal(decimal.NewFromInt(250)))

	resp, err = f.svc.AddPayment(context.Background(), f.admin, saleID, dto.AddPaymentRequest{
		Amount: decimal.NewFromInt(250),
		Method: model.MethodCard,
	})
	require.NoError(t, err)
	assert.Equal(t, model.PaymentPaid, resp.PaymentStatus)
	assert.True(t, resp.Remaining.IsZero())
	require.Len(t, resp.Payments, 2)
}

func TestOverpaymentIsRejected(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 1) // total 100
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	_, err = f.svc.AddPayment(context.Background(), f.admin, saleID, dto.AddPaymentRequest{
		Amount: decimal.NewFromInt(101),
		Method: model.MethodCash,
	})
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindValidation, e.Kind)
}

func TestPaymentRequiresConfirmedSale(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 1)
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.AddPayment(context.Background(), f.admin, saleID, dto.AddPaymentRequest{
		Amount: decimal.NewFromInt(50),
		Method: model.MethodCash,
	})
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindInvalidTransition, e.Kind)
}

func TestPercentDiscountClampsAndApplies(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)

	resp, err := f.svc.Create(context.Background(), f.admin, dto.CreateSaleRequest{
		DiscountType:  model.DiscountPercent,
		DiscountValue: decimal.NewFromInt(10),
		Lines: []dto.SaleLineRequest{{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Quantity:    4,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.DiscountAmount.Equal(decimal.NewFromInt(40)))
	assert.True(t, resp.Total.Equal(decimal.NewFromInt(360)))
}

func TestFixedDiscountNeverExceedsSubtotal(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)

	resp, err := f.svc.Create(context.Background(), f.admin, dto.CreateSaleRequest{
		DiscountType:  model.DiscountFixed,
		DiscountValue: decimal.NewFromInt(9999),
		Lines: []dto.SaleLineRequest{{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Quantity:    1,
		}},
	})
	require.NoError(t, err)
	assert.True(t, resp.DiscountAmount.Equal(decimal.NewFromInt(100)), "discount clamps to subtotal")
	assert.True(t, resp.Total.IsZero())
}

func TestDeleteDraftReleasesAndRemoves(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 3)
	saleID := uuid.MustParse(draft.ID)

	require.NoError(t, f.svc.Delete(context.Background(), f.admin, saleID))

	_, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 0, reserved)

	_, err := f.svc.Get(context.Background(), saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, e.Kind)
}

func TestConcurrentConfirmAndCancelAreExclusive(t *testing.T) {
	for i := 0; i < 50; i++ {
		f := newSaleFixture(t)
		f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
		draft := f.createDraft(t, 4)
		saleID := uuid.MustParse(draft.ID)

		var wg sync.WaitGroup
		var confirmErr, cancelErr error
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, confirmErr = f.svc.Confirm(context.Background(), f.admin, saleID)
		}()
		go func() {
			defer wg.Done()
			_, cancelErr = f.svc.Cancel(context.Background(), f.admin, saleID)
		}()
		wg.Wait()

		require.True(t, (confirmErr == nil) != (cancelErr == nil), "exactly one transition wins the draft")

		final, err := f.svc.Get(context.Background(), saleID)
		require.NoError(t, err)
		quantity, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
		assert.Equal(t, 0, reserved)
		if cancelErr == nil {
			assert.Equal(t, model.SaleCancelled, final.Status)
			assert.Equal(t, 10, quantity, "a cancelled sale keeps its stock")
		} else {
			assert.Equal(t, model.SaleConfirmed, final.Status)
			assert.Equal(t, 6, quantity)
		}
	}
}

func TestConcurrentPaymentsCannotOverpay(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 1) // total 100
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddPayment(context.Background(), f.admin, saleID, dto.AddPaymentRequest{
				Amount: decimal.NewFromInt(60),
				Method: model.MethodCash,
			})
		}(i)
	}
	wg.Wait()

	require.True(t, (errs[0] == nil) != (errs[1] == nil), "only one 60 fits under a 100 total")

	final, err := f.svc.Get(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, final.Payments, 1)
	assert.True(t, final.Paid.Equal(decimal.NewFromInt(60)))
	assert.True(t, final.Remaining.Equal(decimal.NewFromInt(40)))

	sum := decimal.Zero
	for _, p := range final.Payments {
		sum = sum.Add(p.Amount)
	}
	assert.True(t, sum.Equal(final.Paid), "payment rows and the paid counter agree")
}

func TestSellerDeletesOwnDraft(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)

	seller := model.Actor{ID: uuid.New(), Role: model.RoleSeller}
	resp, err := f.svc.Create(context.Background(), seller, dto.CreateSaleRequest{
		Lines: []dto.SaleLineRequest{{
			ProductID:   f.product.ID.String(),
			WarehouseID: f.warehouse.String(),
			Quantity:    3,
		}},
	})
	require.NoError(t, err)
	saleID := uuid.MustParse(resp.ID)

	require.NoError(t, f.svc.Delete(context.Background(), seller, saleID))

	_, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 0, reserved)
	_, err = f.svc.Get(context.Background(), saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, e.Kind)
}

func TestSellerCannotDeleteForeignDraft(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 2)
	saleID := uuid.MustParse(draft.ID)

	stranger := model.Actor{ID: uuid.New(), Role: model.RoleSeller}
	err := f.svc.Delete(context.Background(), stranger, saleID)
	e, ok := apierror.As(err)
	require.True(t, ok)
	assert.Equal(t, apierror.KindNotFound, e.Kind)

	_, reserved := f.stockRepo.snapshot(f.key.ProductID, f.key.WarehouseID)
	assert.Equal(t, 2, reserved, "a foreign actor must not release the reservation")
}

func TestSaleLifecycleWritesAuditTrail(t *testing.T) {
	f := newSaleFixture(t)
	f.stockRepo.seed(f.key.ProductID, f.key.WarehouseID, 10, 0, 5)
	draft := f.createDraft(t, 2)
	saleID := uuid.MustParse(draft.ID)

	_, err := f.svc.Confirm(context.Background(), f.admin, saleID)
	require.NoError(t, err)

	actions := make([]string, 0)
	for _, e := range f.auditRepo.all() {
		if e.Entity == "sale" {
			actions = append(actions, e.Action)
		}
	}
	assert.Equal(t, []string{model.ActionCreate, model.ActionConfirm}, actions)
}
