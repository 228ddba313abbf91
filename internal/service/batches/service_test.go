package batches

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
)

type fixture struct {
	store     *memory.Store
	inventory *inventory.Service
	batches   *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	inv := inventory.NewService(store, nil)
	return &fixture{store: store, inventory: inv, batches: NewService(store, inv, nil)}
}

func (f *fixture) farm(t *testing.T, name string, capacity int) *models.Farm {
	t.Helper()
	farm, err := f.inventory.CreateFarm(context.Background(), inventory.FarmInput{Name: name, Capacity: capacity})
	require.NoError(t, err)
	return farm
}

func (f *fixture) count(t *testing.T, farmID string) int {
	t.Helper()
	farm, err := f.inventory.GetFarm(context.Background(), farmID)
	require.NoError(t, err)
	return farm.CurrentCount
}

func TestCreateWithFarmBooksStockIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farm := f.farm(t, "Kindia", 1000)

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", FarmID: farm.ID, Quantity: 500})
	require.NoError(t, err)
	assert.Equal(t, models.ChickenPurchased, batch.Status)
	assert.Equal(t, models.HealthHealthy, batch.Health)

	rows, err := f.store.ListMovements(ctx, farm.ID, batch.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, models.MovementIn, rows[0].Type)
	assert.Equal(t, 500, rows[0].Quantity)
	assert.Equal(t, 500, f.count(t, farm.ID))
}

func TestCreateWithoutFarmWritesNoLedger(t *testing.T) {
	f := newFixture(t)

	batch, err := f.batches.Create(context.Background(), CreateInput{BatchNumber: "B-001", Quantity: 80})
	require.NoError(t, err)
	assert.Empty(t, batch.FarmID)
}

func TestCreateRejectsDuplicateNumber(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 10})
	require.NoError(t, err)

	_, err = f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 10})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestCreateRejectsOverCapacity(t *testing.T) {
	f := newFixture(t)
	farm := f.farm(t, "Small", 100)

	_, err := f.batches.Create(context.Background(), CreateInput{BatchNumber: "B-001", FarmID: farm.ID, Quantity: 101})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = f.store.FindBatchByNumber(context.Background(), farm.TenantID, "B-001")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Equal(t, 0, f.count(t, farm.ID))
}

func TestReassignMovesStockThroughTheLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	oldFarm := f.farm(t, "Kindia", 1000)
	newFarm := f.farm(t, "Labé", 1000)

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", FarmID: oldFarm.ID, Quantity: 500})
	require.NoError(t, err)
	_, err = f.inventory.RecordMovement(ctx, inventory.MovementRequest{FarmID: oldFarm.ID, BatchID: batch.ID, Type: models.MovementLoss, Quantity: 20})
	require.NoError(t, err)

	moved, err := f.batches.Reassign(ctx, batch.ID, newFarm.ID)
	require.NoError(t, err)
	assert.Equal(t, newFarm.ID, moved.FarmID)

	oldStock, err := f.inventory.AvailableStock(ctx, oldFarm.ID, batch.ID)
	require.NoError(t, err)
	newStock, err := f.inventory.AvailableStock(ctx, newFarm.ID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, oldStock)
	assert.Equal(t, 480, newStock)

	assert.Equal(t, 0, f.count(t, oldFarm.ID))
	assert.Equal(t, 500, f.count(t, newFarm.ID))
}

func TestReassignUnassignedBatchBooksFullQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farm := f.farm(t, "Kindia", 1000)

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 300})
	require.NoError(t, err)

	_, err = f.batches.Reassign(ctx, batch.ID, farm.ID)
	require.NoError(t, err)

	stock, err := f.inventory.AvailableStock(ctx, farm.ID, batch.ID)
	require.NoError(t, err)
	assert.Equal(t, 300, stock)
	assert.Equal(t, 300, f.count(t, farm.ID))
}

func TestUpdateStatusForwardOnlyUnlessCorrection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 10})
	require.NoError(t, err)

	delivered := models.ChickenDelivered
	_, err = f.batches.UpdateStatus(ctx, batch.ID, StatusUpdate{Status: &delivered})
	require.NoError(t, err)

	purchased := models.ChickenPurchased
	_, err = f.batches.UpdateStatus(ctx, batch.ID, StatusUpdate{Status: &purchased})
	assert.True(t, apperror.IsCode(err, apperror.CodeInvalidTransition))

	got, err := f.batches.UpdateStatus(ctx, batch.ID, StatusUpdate{Status: &purchased, Correction: true})
	require.NoError(t, err)
	assert.Equal(t, models.ChickenPurchased, got.Status)

	sick := models.HealthSick
	got, err = f.batches.UpdateStatus(ctx, batch.ID, StatusUpdate{Health: &sick})
	require.NoError(t, err)
	assert.Equal(t, models.HealthSick, got.Health)
}

func TestAdvanceNeverRegresses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 10})
	require.NoError(t, err)

	got, err := f.batches.Advance(ctx, batch.ID, models.ChickenInTransit)
	require.NoError(t, err)
	assert.Equal(t, models.ChickenInTransit, got.Status)

	got, err = f.batches.Advance(ctx, batch.ID, models.ChickenReadyForDistribution)
	require.NoError(t, err)
	assert.Equal(t, models.ChickenInTransit, got.Status)
}

func TestDeleteRecomputesFarmAndKeepsLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	farm := f.farm(t, "Kindia", 1000)

	batch, err := f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", FarmID: farm.ID, Quantity: 400})
	require.NoError(t, err)

	require.NoError(t, f.batches.Delete(ctx, batch.ID))
	assert.Equal(t, 0, f.count(t, farm.ID))

	_, err = f.batches.Get(ctx, batch.ID)
	assert.True(t, apperror.IsNotFound(err))

	rows, err := f.store.ListMovements(ctx, farm.ID, batch.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = f.batches.Create(ctx, CreateInput{BatchNumber: "B-001", Quantity: 1})
	assert.True(t, apperror.IsCode(err, apperror.CodeDuplicate))
}

func TestOtherTenantCannotReachBatch(t *testing.T) {
	f := newFixture(t)
	farm := f.farm(t, "Kindia", 1000)
	batch, err := f.batches.Create(context.Background(), CreateInput{BatchNumber: "B-001", FarmID: farm.ID, Quantity: 100})
	require.NoError(t, err)

	evil := requestctx.WithTenant(context.Background(), "evil")
	_, err = f.batches.Get(evil, batch.ID)
	assert.True(t, apperror.IsNotFound(err))

	ready := models.ChickenReadyForDistribution
	_, err = f.batches.UpdateStatus(evil, batch.ID, StatusUpdate{Status: &ready})
	assert.True(t, apperror.IsNotFound(err))

	assert.True(t, apperror.IsNotFound(f.batches.Delete(evil, batch.ID)))

	got, err := f.batches.Get(context.Background(), batch.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ChickenPurchased, got.Status)
	assert.Nil(t, got.DeletedAt)
}
