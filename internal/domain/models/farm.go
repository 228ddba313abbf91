package models

import "time"

// Farm is an aggregate stock container. CurrentCount is a cached sum of the
// quantities of live batches assigned to the farm.
type Farm struct {
	ID           string    `bson:"_id" json:"id"`
	TenantID     string    `bson:"tenant_id" json:"tenant_id"`
	Name         string    `bson:"name" json:"name"`
	Capacity     int       `bson:"capacity" json:"capacity"`
	CurrentCount int       `bson:"current_count" json:"current_count"`
	CreatedAt    time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bson:"updated_at" json:"updated_at"`
}

// Utilization returns CurrentCount as a fraction of Capacity.
func (f Farm) Utilization() float64 {
	if f.Capacity <= 0 {
		return 0
	}
	return float64(f.CurrentCount) / float64(f.Capacity)
}

// BelowCapacityRatio reports whether the farm holds less than ratio of its capacity.
func (f Farm) BelowCapacityRatio(ratio float64) bool {
	return f.Capacity > 0 && f.Utilization() < ratio
}
