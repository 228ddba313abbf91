package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/batches"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
)

func setup(t *testing.T) (*Service, *batches.Service, *memory.Store, models.Distribution) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	inv := inventory.NewService(store, nil)
	bs := batches.NewService(store, inv, nil)

	b1, err := bs.Create(ctx, batches.CreateInput{BatchNumber: "B-1", Quantity: 100})
	require.NoError(t, err)
	b2, err := bs.Create(ctx, batches.CreateInput{BatchNumber: "B-2", Quantity: 100})
	require.NoError(t, err)
	for _, id := range []string{b1.ID, b2.ID} {
		_, err := bs.Advance(ctx, id, models.ChickenInTransit)
		require.NoError(t, err)
	}

	dist := models.Distribution{
		ID:            "d1",
		TenantID:      b1.TenantID,
		VehicleID:     "truck",
		ScheduledDate: time.Now(),
		Status:        models.DistributionCompleted,
		Items: []models.DistributionItem{
			{ID: "i1", BatchID: b1.ID, ShopID: "s1", Quantity: 30, DeliveryStatus: models.ItemPending},
			{ID: "i2", BatchID: b2.ID, ShopID: "s1", Quantity: 20, DeliveryStatus: models.ItemPending},
			{ID: "i3", BatchID: b2.ID, ShopID: "s2", Quantity: 40, DeliveryStatus: models.ItemPending},
		},
	}
	require.NoError(t, store.CreateDistribution(ctx, dist))

	return NewService(store, bs, nil), bs, store, dist
}

func TestCreateTotalsShopItems(t *testing.T) {
	svc, _, _, dist := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{DistributionID: dist.ID, ShopID: "s1"})
	require.NoError(t, err)
	assert.Equal(t, 50, d.TotalQuantity)
	assert.Equal(t, models.DeliveryPending, d.Status)

	_, err = svc.Create(ctx, CreateInput{DistributionID: dist.ID, ShopID: "s1"})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))

	_, err = svc.Create(ctx, CreateInput{DistributionID: dist.ID, ShopID: "s9"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))
}

func TestCompletingDeliveryMarksShopItemsAndBatches(t *testing.T) {
	svc, bs, store, dist := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{DistributionID: dist.ID, ShopID: "s1"})
	require.NoError(t, err)

	notes := "two birds short"
	updated, err := svc.Update(ctx, d.ID, UpdateInput{VerifiedQuantity: 48, Status: models.DeliveryCompleted, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, 48, updated.VerifiedQuantity)
	assert.Equal(t, notes, updated.Notes)
	require.NotNil(t, updated.DeliveredAt)

	stored, err := store.GetDistribution(ctx, dist.ID)
	require.NoError(t, err)
	for _, item := range stored.Items {
		if item.ShopID == "s1" {
			assert.Equal(t, models.ItemDelivered, item.DeliveryStatus)
			assert.NotNil(t, item.DeliveredAt)
		} else {
			assert.Equal(t, models.ItemPending, item.DeliveryStatus)
		}
	}

	for _, item := range dist.Items {
		batch, err := bs.Get(ctx, item.BatchID)
		require.NoError(t, err)
		assert.Equal(t, models.ChickenDelivered, batch.Status)
	}
}

func TestTerminalDeliveryRejectsUpdates(t *testing.T) {
	svc, _, _, dist := setup(t)
	ctx := context.Background()

	d, err := svc.Create(ctx, CreateInput{DistributionID: dist.ID, ShopID: "s2"})
	require.NoError(t, err)

	_, err = svc.Update(ctx, d.ID, UpdateInput{VerifiedQuantity: 10, Status: models.DeliveryPartial})
	require.NoError(t, err)
	_, err = svc.Update(ctx, d.ID, UpdateInput{Status: models.DeliveryCancelled})
	require.NoError(t, err)

	_, err = svc.Update(ctx, d.ID, UpdateInput{Status: models.DeliveryCompleted})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))
}

func TestUpdateUnknownDelivery(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.Update(context.Background(), "ghost", UpdateInput{Status: models.DeliveryCompleted})
	assert.True(t, apperror.IsNotFound(err))
}

func TestOtherTenantCannotReachDeliveries(t *testing.T) {
	svc, _, _, dist := setup(t)
	evil := requestctx.WithTenant(context.Background(), "evil")

	_, err := svc.Create(evil, CreateInput{DistributionID: dist.ID, ShopID: "s1"})
	assert.True(t, apperror.IsNotFound(err))

	d, err := svc.Create(context.Background(), CreateInput{DistributionID: dist.ID, ShopID: "s1"})
	require.NoError(t, err)
	_, err = svc.Get(evil, d.ID)
	assert.True(t, apperror.IsNotFound(err))
	_, err = svc.Update(evil, d.ID, UpdateInput{VerifiedQuantity: 50, Status: models.DeliveryCompleted})
	assert.True(t, apperror.IsNotFound(err))
}
