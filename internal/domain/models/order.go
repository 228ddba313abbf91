package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle of a shop order.
type OrderStatus string

const (
	OrderPending            OrderStatus = "Pending"
	OrderApproved           OrderStatus = "Approved"
	OrderRejected           OrderStatus = "Rejected"
	OrderProcessing         OrderStatus = "Processing"
	OrderPartiallyFulfilled OrderStatus = "PartiallyFulfilled"
	OrderFulfilled          OrderStatus = "Fulfilled"
	OrderCancelled          OrderStatus = "Cancelled"
)

// CanCancel reports whether an order in status s may still be cancelled.
func (s OrderStatus) CanCancel() bool {
	switch s {
	case OrderPending, OrderApproved, OrderProcessing, OrderPartiallyFulfilled:
		return true
	}
	return false
}

// AcceptsFulfillment reports whether fulfillment quantities may be recorded.
func (s OrderStatus) AcceptsFulfillment() bool {
	return s == OrderApproved || s == OrderProcessing || s == OrderPartiallyFulfilled
}

// FulfillmentStatus summarises how much of an order has been satisfied.
type FulfillmentStatus string

const (
	FulfillmentNone     FulfillmentStatus = "None"
	FulfillmentPartial  FulfillmentStatus = "Partial"
	FulfillmentComplete FulfillmentStatus = "Complete"
)

// OrderItem is one requested batch line.
type OrderItem struct {
	ID                string          `bson:"id" json:"id"`
	BatchID           string          `bson:"batch_id" json:"batch_id"`
	RequestedQuantity int             `bson:"requested_quantity" json:"requested_quantity"`
	FulfilledQuantity int             `bson:"fulfilled_quantity" json:"fulfilled_quantity"`
	UnitPrice         decimal.Decimal `bson:"unit_price" json:"unit_price"`
	TotalPrice        decimal.Decimal `bson:"total_price" json:"total_price"`
}

// Order is a shop purchase request.
type Order struct {
	ID                    string            `bson:"_id" json:"id"`
	TenantID              string            `bson:"tenant_id" json:"tenant_id"`
	ShopID                string            `bson:"shop_id" json:"shop_id"`
	OrderDate             time.Time         `bson:"order_date" json:"order_date"`
	RequestedDeliveryDate *time.Time        `bson:"requested_delivery_date,omitempty" json:"requested_delivery_date,omitempty"`
	Status                OrderStatus       `bson:"status" json:"status"`
	FulfillmentStatus     FulfillmentStatus `bson:"fulfillment_status" json:"fulfillment_status"`
	TotalAmount           decimal.Decimal   `bson:"total_amount" json:"total_amount"`
	RejectionReason       string            `bson:"rejection_reason,omitempty" json:"rejection_reason,omitempty"`
	Items                 []OrderItem       `bson:"items" json:"items"`
	CreatedBy             string            `bson:"created_by" json:"created_by"`
	CreatedAt             time.Time         `bson:"created_at" json:"created_at"`
	UpdatedAt             time.Time         `bson:"updated_at" json:"updated_at"`
}

// DeriveOrderStatus computes the post-fulfillment status from the items alone:
// Fulfilled when every item is fully satisfied, PartiallyFulfilled when some
// quantity was delivered, Processing otherwise.
func DeriveOrderStatus(items []OrderItem) OrderStatus {
	if len(items) == 0 {
		return OrderProcessing
	}

	complete := true
	started := false
	for _, item := range items {
		if item.FulfilledQuantity > 0 {
			started = true
		}
		if item.FulfilledQuantity < item.RequestedQuantity {
			complete = false
		}
	}

	switch {
	case complete:
		return OrderFulfilled
	case started:
		return OrderPartiallyFulfilled
	default:
		return OrderProcessing
	}
}

// DeriveFulfillmentStatus mirrors DeriveOrderStatus on the fulfillment axis.
func DeriveFulfillmentStatus(items []OrderItem) FulfillmentStatus {
	switch DeriveOrderStatus(items) {
	case OrderFulfilled:
		return FulfillmentComplete
	case OrderPartiallyFulfilled:
		return FulfillmentPartial
	default:
		return FulfillmentNone
	}
}

// SumLineTotals adds up TotalPrice over items.
func SumLineTotals(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.TotalPrice)
	}
	return total
}
