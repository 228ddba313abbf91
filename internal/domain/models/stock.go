package models

import "time"

// MovementType classifies a ledger row.
type MovementType string

const (
	MovementIn         MovementType = "In"
	MovementOut        MovementType = "Out"
	MovementLoss       MovementType = "Loss"
	MovementAdjustment MovementType = "Adjustment"
)

// Valid reports whether t is a known movement type.
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementLoss, MovementAdjustment:
		return true
	}
	return false
}

// StockMovement is an immutable ledger row for a (farm, batch) pair.
//
// For In, Out and Loss, Quantity is a delta. For Adjustment, Quantity is the new
// absolute stock level and NewQuantity always equals it.
type StockMovement struct {
	ID               string       `bson:"_id" json:"id"`
	TenantID         string       `bson:"tenant_id" json:"tenant_id"`
	FarmID           string       `bson:"farm_id" json:"farm_id"`
	BatchID          string       `bson:"batch_id" json:"batch_id"`
	Type             MovementType `bson:"type" json:"type"`
	Quantity         int          `bson:"quantity" json:"quantity"`
	PreviousQuantity int          `bson:"previous_quantity" json:"previous_quantity"`
	NewQuantity      int          `bson:"new_quantity" json:"new_quantity"`
	Reason           string       `bson:"reason" json:"reason"`
	MovementDate     time.Time    `bson:"movement_date" json:"movement_date"`
	CreatedBy        string       `bson:"created_by" json:"created_by"`
	CreatedAt        time.Time    `bson:"created_at" json:"created_at"`
}

// ApplyMovement returns the stock level after applying a movement to current.
// The result may be negative; callers reject such writes.
func ApplyMovement(current int, t MovementType, quantity int) int {
	switch t {
	case MovementIn:
		return current + quantity
	case MovementOut, MovementLoss:
		return current - quantity
	case MovementAdjustment:
		return quantity
	default:
		return current
	}
}

// ReplayStock derives available stock from movements in append order. An
// Adjustment resets the running total to its NewQuantity snapshot.
func ReplayStock(movements []StockMovement) int {
	level := 0
	for _, m := range movements {
		if m.Type == MovementAdjustment {
			level = m.NewQuantity
			continue
		}
		level = ApplyMovement(level, m.Type, m.Quantity)
	}
	return level
}

// MovementTotals sums ledger quantities per movement type.
type MovementTotals struct {
	In          int `json:"in"`
	Out         int `json:"out"`
	Loss        int `json:"loss"`
	Adjustments int `json:"adjustments"`
}

// Add accumulates one movement into the totals. Adjustments are counted, not summed.
func (t *MovementTotals) Add(m StockMovement) {
	switch m.Type {
	case MovementIn:
		t.In += m.Quantity
	case MovementOut:
		t.Out += m.Quantity
	case MovementLoss:
		t.Loss += m.Quantity
	case MovementAdjustment:
		t.Adjustments++
	}
}

// BatchStock is the per-batch line of a farm snapshot.
type BatchStock struct {
	BatchID     string        `json:"batch_id"`
	BatchNumber string        `json:"batch_number"`
	Status      ChickenStatus `json:"status"`
	Quantity    int           `json:"quantity"`
	Available   int           `json:"available"`
}

// FarmSnapshot summarises a farm's capacity, cached count and ledger state.
type FarmSnapshot struct {
	FarmID       string         `json:"farm_id"`
	Name         string         `json:"name"`
	Capacity     int            `json:"capacity"`
	CurrentCount int            `json:"current_count"`
	Available    int            `json:"available"`
	Batches      []BatchStock   `json:"batches"`
	Totals       MovementTotals `json:"totals"`
}
