package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestReplayStockWithoutAdjustment(t *testing.T) {
	movements := []StockMovement{
		{Type: MovementIn, Quantity: 500},
		{Type: MovementOut, Quantity: 120},
		{Type: MovementLoss, Quantity: 30},
		{Type: MovementIn, Quantity: 50},
	}

	assert.Equal(t, 500-120-30+50, ReplayStock(movements))
}

func TestReplayStockAdjustmentOverridesHistory(t *testing.T) {
	movements := []StockMovement{
		{Type: MovementIn, Quantity: 500},
		{Type: MovementOut, Quantity: 200},
		{Type: MovementAdjustment, Quantity: 42, NewQuantity: 42},
	}
	assert.Equal(t, 42, ReplayStock(movements))

	movements = append(movements, StockMovement{Type: MovementOut, Quantity: 2})
	assert.Equal(t, 40, ReplayStock(movements))
}

func TestApplyMovement(t *testing.T) {
	assert.Equal(t, 15, ApplyMovement(10, MovementIn, 5))
	assert.Equal(t, 5, ApplyMovement(10, MovementOut, 5))
	assert.Equal(t, -1, ApplyMovement(10, MovementLoss, 11))
	assert.Equal(t, 3, ApplyMovement(10, MovementAdjustment, 3))
}

func TestChickenStatusTransitions(t *testing.T) {
	assert.True(t, ChickenPurchased.CanTransition(ChickenReadyForDistribution))
	assert.True(t, ChickenInTransit.CanTransition(ChickenInTransit))
	assert.True(t, ChickenInTransit.CanTransition(ChickenDelivered))
	assert.False(t, ChickenDelivered.CanTransition(ChickenPurchased))
	assert.False(t, ChickenInTransit.CanTransition(ChickenInFarm))
	assert.False(t, ChickenStatus("Lost").CanTransition(ChickenDelivered))
}

func TestDistributionStatusTransitions(t *testing.T) {
	assert.True(t, DistributionScheduled.CanTransition(DistributionInTransit))
	assert.True(t, DistributionInTransit.CanTransition(DistributionCompleted))
	assert.True(t, DistributionInTransit.CanTransition(DistributionCancelled))
	assert.False(t, DistributionCompleted.CanTransition(DistributionCancelled))
	assert.False(t, DistributionCancelled.CanTransition(DistributionScheduled))
}

func TestDeriveOrderStatus(t *testing.T) {
	cases := []struct {
		name  string
		items []OrderItem
		want  OrderStatus
	}{
		{"nothing fulfilled", []OrderItem{{RequestedQuantity: 10}, {RequestedQuantity: 5}}, OrderProcessing},
		{"one item complete", []OrderItem{{RequestedQuantity: 10, FulfilledQuantity: 10}, {RequestedQuantity: 5}}, OrderPartiallyFulfilled},
		{"partial quantity", []OrderItem{{RequestedQuantity: 10, FulfilledQuantity: 3}}, OrderPartiallyFulfilled},
		{"all complete", []OrderItem{{RequestedQuantity: 10, FulfilledQuantity: 10}, {RequestedQuantity: 5, FulfilledQuantity: 5}}, OrderFulfilled},
		{"no items", nil, OrderProcessing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, DeriveOrderStatus(tc.items))
		})
	}
}

func TestDerivePaymentStatus(t *testing.T) {
	total := decimal.RequireFromString("100.00")

	assert.Equal(t, PaymentPending, DerivePaymentStatus(total, decimal.Zero))
	assert.Equal(t, PaymentPartial, DerivePaymentStatus(total, decimal.RequireFromString("60")))
	assert.Equal(t, PaymentPaid, DerivePaymentStatus(total, decimal.RequireFromString("100.00")))
}

func TestDistributionShopIDs(t *testing.T) {
	d := Distribution{Items: []DistributionItem{
		{ShopID: "s1", Quantity: 5},
		{ShopID: "s2", Quantity: 3},
		{ShopID: "s1", Quantity: 2},
	}}

	assert.Equal(t, []string{"s1", "s2"}, d.ShopIDs())
	assert.Equal(t, 7, d.QuantityForShop("s1"))
}
