package models

import "time"

// DistributionStatus tracks one vehicle trip. Completed means the trucks were
// loaded and left; arrival is recorded on Delivery.
type DistributionStatus string

const (
	DistributionScheduled DistributionStatus = "Scheduled"
	DistributionInTransit DistributionStatus = "InTransit"
	DistributionCompleted DistributionStatus = "Completed"
	DistributionCancelled DistributionStatus = "Cancelled"
)

var distributionTransitions = map[DistributionStatus][]DistributionStatus{
	DistributionScheduled: {DistributionInTransit, DistributionCompleted, DistributionCancelled},
	DistributionInTransit: {DistributionCompleted, DistributionCancelled},
}

// Valid reports whether s is a known distribution status.
func (s DistributionStatus) Valid() bool {
	switch s {
	case DistributionScheduled, DistributionInTransit, DistributionCompleted, DistributionCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a distribution may move from s to next.
func (s DistributionStatus) CanTransition(next DistributionStatus) bool {
	for _, allowed := range distributionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ItemDeliveryStatus is the delivery state of a single distribution line.
type ItemDeliveryStatus string

const (
	ItemPending   ItemDeliveryStatus = "Pending"
	ItemDelivered ItemDeliveryStatus = "Delivered"
)

// DistributionItem allocates part of a batch to a shop on a trip.
type DistributionItem struct {
	ID             string             `bson:"id" json:"id"`
	BatchID        string             `bson:"batch_id" json:"batch_id"`
	ShopID         string             `bson:"shop_id" json:"shop_id"`
	Quantity       int                `bson:"quantity" json:"quantity"`
	DeliveryStatus ItemDeliveryStatus `bson:"delivery_status" json:"delivery_status"`
	DeliveredAt    *time.Time         `bson:"delivered_at,omitempty" json:"delivered_at,omitempty"`
}

// Distribution is one scheduled vehicle trip.
type Distribution struct {
	ID            string             `bson:"_id" json:"id"`
	TenantID      string             `bson:"tenant_id" json:"tenant_id"`
	VehicleID     string             `bson:"vehicle_id" json:"vehicle_id"`
	ScheduledDate time.Time          `bson:"scheduled_date" json:"scheduled_date"`
	Status        DistributionStatus `bson:"status" json:"status"`
	Items         []DistributionItem `bson:"items" json:"items"`
	CreatedBy     string             `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at" json:"updated_at"`
}

// ShopIDs returns the distinct shops served by the trip in item order.
func (d Distribution) ShopIDs() []string {
	seen := make(map[string]struct{}, len(d.Items))
	shops := make([]string, 0, len(d.Items))
	for _, item := range d.Items {
		if _, ok := seen[item.ShopID]; ok {
			continue
		}
		seen[item.ShopID] = struct{}{}
		shops = append(shops, item.ShopID)
	}
	return shops
}

// QuantityForShop sums item quantities allocated to shopID.
func (d Distribution) QuantityForShop(shopID string) int {
	total := 0
	for _, item := range d.Items {
		if item.ShopID == shopID {
			total += item.Quantity
		}
	}
	return total
}
