package orders

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/directory"
)

type captureSink struct {
	sent []models.Notification
}

func (c *captureSink) Notify(_ context.Context, n models.Notification) error {
	c.sent = append(c.sent, n)
	return nil
}

func (c *captureSink) count(typ models.NotificationType) int {
	n := 0
	for _, s := range c.sent {
		if s.Type == typ {
			n++
		}
	}
	return n
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	sink  *captureSink
	svc   *Service
	shop  *models.Shop
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := requestctx.WithActor(context.Background(), "shop-user")
	store := memory.New()
	dir := directory.NewService(store, nil)

	owner, err := dir.CreateUser(ctx, directory.UserInput{Name: "o", Role: models.RoleShop})
	require.NoError(t, err)
	shop, err := dir.CreateShop(ctx, directory.ShopInput{Name: "s", OwnerUserID: owner.ID})
	require.NoError(t, err)

	for _, b := range []models.ChickenBatch{
		{ID: "A", TenantID: requestctx.DefaultTenant, BatchNumber: "A", Quantity: 100, Status: models.ChickenReadyForDistribution},
		{ID: "B", TenantID: requestctx.DefaultTenant, BatchNumber: "B", Quantity: 100, Status: models.ChickenReadyForDistribution},
		{ID: "C", TenantID: requestctx.DefaultTenant, BatchNumber: "C", Quantity: 100, Status: models.ChickenInFarm},
	} {
		require.NoError(t, store.CreateBatch(ctx, b))
	}

	sink := &captureSink{}
	return &fixture{
		ctx:   ctx,
		store: store,
		sink:  sink,
		svc:   NewService(store, dir, sink, decimal.RequireFromString("2.50"), nil),
		shop:  shop,
	}
}

func (f *fixture) approvedOrder(t *testing.T) *models.Order {
	t.Helper()
	order, err := f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 10}, {BatchID: "B", Quantity: 5}}})
	require.NoError(t, err)
	order, _, err = f.svc.Approve(f.ctx, order.ID)
	require.NoError(t, err)
	return order
}

func TestCreatePricesLinesAndRequiresReadyBatches(t *testing.T) {
	f := newFixture(t)

	order, err := f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 10}, {BatchID: "B", Quantity: 5}}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, order.Status)
	assert.Equal(t, models.FulfillmentNone, order.FulfillmentStatus)
	assert.True(t, order.TotalAmount.Equal(decimal.RequireFromString("37.50")))
	assert.Equal(t, "shop-user", order.CreatedBy)

	_, err = f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 1}, {BatchID: "C", Quantity: 1}}})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.svc.Create(f.ctx, CreateInput{ShopID: "ghost", Items: []ItemInput{{BatchID: "A", Quantity: 1}}})
	assert.True(t, apperror.IsNotFound(err))
}

func TestPartialThenFullFulfillmentNotifiesOnce(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)
	itemA, itemB := order.Items[0].ID, order.Items[1].ID

	got, effects, err := f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{{ItemID: itemA, FulfilledQuantity: 10}, {ItemID: itemB, FulfilledQuantity: 0}})
	require.NoError(t, err)
	assert.True(t, effects.OK())
	assert.Equal(t, models.OrderPartiallyFulfilled, got.Status)
	assert.Equal(t, models.FulfillmentPartial, got.FulfillmentStatus)
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("25")))
	assert.Equal(t, 0, f.sink.count(models.NotifyOrderFulfilled))

	got, _, err = f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{{ItemID: itemA, FulfilledQuantity: 10}, {ItemID: itemB, FulfilledQuantity: 5}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderFulfilled, got.Status)
	assert.Equal(t, models.FulfillmentComplete, got.FulfillmentStatus)
	assert.Equal(t, 1, f.sink.count(models.NotifyOrderFulfilled))

	_, _, err = f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{{ItemID: itemA, FulfilledQuantity: 10}})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
	assert.Equal(t, 1, f.sink.count(models.NotifyOrderFulfilled))
}

func TestOverFulfillmentRejectsWholeCall(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)

	_, _, err := f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{
		{ItemID: order.Items[0].ID, FulfilledQuantity: 4},
		{ItemID: order.Items[1].ID, FulfilledQuantity: 6},
	})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	stored, err := f.svc.Get(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, stored.Status)
	for _, item := range stored.Items {
		assert.Zero(t, item.FulfilledQuantity)
	}
}

func TestZeroFulfillmentIsProcessing(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)

	got, _, err := f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{{ItemID: order.Items[0].ID, FulfilledQuantity: 0}})
	require.NoError(t, err)
	assert.Equal(t, models.OrderProcessing, got.Status)
}

func TestFulfillmentRequiresApproval(t *testing.T) {
	f := newFixture(t)
	order, err := f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 1}}})
	require.NoError(t, err)

	_, _, err = f.svc.UpdateFulfillment(f.ctx, order.ID, []FulfillmentInput{{ItemID: order.Items[0].ID, FulfilledQuantity: 1}})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestApproveAndRejectOnlyFromPending(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)
	assert.Equal(t, 1, f.sink.count(models.NotifyOrderApproved))
	assert.Equal(t, "shop-user", f.sink.sent[0].UserID)

	_, _, err := f.svc.Reject(f.ctx, order.ID, "no stock")
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	other, err := f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 1}}})
	require.NoError(t, err)
	rejected, _, err := f.svc.Reject(f.ctx, other.ID, "no stock")
	require.NoError(t, err)
	assert.Equal(t, models.OrderRejected, rejected.Status)
	assert.Equal(t, "no stock", rejected.RejectionReason)
	assert.Equal(t, 1, f.sink.count(models.NotifyOrderRejected))

	_, _, err = f.svc.Approve(f.ctx, other.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestCancelRules(t *testing.T) {
	f := newFixture(t)

	pending, err := f.svc.Create(f.ctx, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 1}}})
	require.NoError(t, err)
	cancelled, err := f.svc.Cancel(f.ctx, pending.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, cancelled.Status)

	_, err = f.svc.Cancel(f.ctx, pending.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	partial := f.approvedOrder(t)
	_, _, err = f.svc.UpdateFulfillment(f.ctx, partial.ID, []FulfillmentInput{{ItemID: partial.Items[0].ID, FulfilledQuantity: 3}})
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, partial.ID)
	require.NoError(t, err)

	full := f.approvedOrder(t)
	_, _, err = f.svc.UpdateFulfillment(f.ctx, full.ID, []FulfillmentInput{
		{ItemID: full.Items[0].ID, FulfilledQuantity: 10},
		{ItemID: full.Items[1].ID, FulfilledQuantity: 5},
	})
	require.NoError(t, err)
	_, err = f.svc.Cancel(f.ctx, full.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestOtherTenantCannotReachOrders(t *testing.T) {
	f := newFixture(t)
	order := f.approvedOrder(t)
	evil := requestctx.WithTenant(context.Background(), "evil")

	_, err := f.svc.Get(evil, order.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.Cancel(evil, order.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = f.svc.Create(evil, CreateInput{ShopID: f.shop.ID, Items: []ItemInput{{BatchID: "A", Quantity: 1}}})
	assert.True(t, apperror.IsNotFound(err))

	got, err := f.svc.Get(f.ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderApproved, got.Status)
}
