package models

import "time"

// ChickenStatus tracks where a batch sits in the supply pipeline.
type ChickenStatus string

const (
	ChickenPurchased            ChickenStatus = "Purchased"
	ChickenInFarm               ChickenStatus = "InFarm"
	ChickenReadyForDistribution ChickenStatus = "ReadyForDistribution"
	ChickenInTransit            ChickenStatus = "InTransit"
	ChickenDelivered            ChickenStatus = "Delivered"
)

var chickenStatusRank = map[ChickenStatus]int{
	ChickenPurchased:            0,
	ChickenInFarm:               1,
	ChickenReadyForDistribution: 2,
	ChickenInTransit:            3,
	ChickenDelivered:            4,
}

// Valid reports whether s is a known lifecycle status.
func (s ChickenStatus) Valid() bool {
	_, ok := chickenStatusRank[s]
	return ok
}

// CanTransition reports whether a batch may move from s to next without an
// operator correction. Only forward moves and same-status updates are allowed.
func (s ChickenStatus) CanTransition(next ChickenStatus) bool {
	from, ok := chickenStatusRank[s]
	if !ok {
		return false
	}
	to, ok := chickenStatusRank[next]
	if !ok {
		return false
	}
	return to >= from
}

// HealthStatus is orthogonal to the lifecycle and freely settable.
type HealthStatus string

const (
	HealthHealthy   HealthStatus = "Healthy"
	HealthSick      HealthStatus = "Sick"
	HealthRecovered HealthStatus = "Recovered"
)

// Valid reports whether h is a known health status.
func (h HealthStatus) Valid() bool {
	switch h {
	case HealthHealthy, HealthSick, HealthRecovered:
		return true
	}
	return false
}

// ChickenBatch is one purchased lot of birds. Quantity is the original purchase
// count; available stock lives in the ledger.
type ChickenBatch struct {
	ID           string        `bson:"_id" json:"id"`
	TenantID     string        `bson:"tenant_id" json:"tenant_id"`
	BatchNumber  string        `bson:"batch_number" json:"batch_number"`
	SupplierID   string        `bson:"supplier_id" json:"supplier_id"`
	FarmID       string        `bson:"farm_id,omitempty" json:"farm_id,omitempty"`
	PurchaseDate time.Time     `bson:"purchase_date" json:"purchase_date"`
	Quantity     int           `bson:"quantity" json:"quantity"`
	WeightKg     float64       `bson:"weight_kg" json:"weight_kg"`
	AgeInDays    int           `bson:"age_in_days" json:"age_in_days"`
	Status       ChickenStatus `bson:"status" json:"status"`
	Health       HealthStatus  `bson:"health" json:"health"`
	CreatedBy    string        `bson:"created_by" json:"created_by"`
	CreatedAt    time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `bson:"updated_at" json:"updated_at"`
	DeletedAt    *time.Time    `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// IsDeleted reports whether the batch was soft-deleted.
func (b ChickenBatch) IsDeleted() bool {
	return b.DeletedAt != nil
}
