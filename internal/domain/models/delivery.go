package models

import "time"

// DeliveryStatus is the receiving-side state for one shop.
type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "Pending"
	DeliveryPartial   DeliveryStatus = "Partial"
	DeliveryCompleted DeliveryStatus = "Completed"
	DeliveryCancelled DeliveryStatus = "Cancelled"
)

// Valid reports whether s is a known delivery status.
func (s DeliveryStatus) Valid() bool {
	switch s {
	case DeliveryPending, DeliveryPartial, DeliveryCompleted, DeliveryCancelled:
		return true
	}
	return false
}

// Delivery records a distribution's items arriving at one shop. VerifiedQuantity
// is entered by an operator and is not reconciled against the items.
type Delivery struct {
	ID               string         `bson:"_id" json:"id"`
	TenantID         string         `bson:"tenant_id" json:"tenant_id"`
	DistributionID   string         `bson:"distribution_id" json:"distribution_id"`
	ShopID           string         `bson:"shop_id" json:"shop_id"`
	TotalQuantity    int            `bson:"total_quantity" json:"total_quantity"`
	VerifiedQuantity int            `bson:"verified_quantity" json:"verified_quantity"`
	Status           DeliveryStatus `bson:"status" json:"status"`
	Notes            string         `bson:"notes" json:"notes"`
	DeliveredAt      *time.Time     `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
	CreatedBy        string         `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time      `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `bson:"updated_at" json:"updated_at"`
}
