package sheets

import (
	"context"
	"time"

	"github.com/mamadbah2/supplychain/internal/domain/models"
)

var ledgerColumns = []string{
	"movement_date", "tenant_id", "farm_id", "batch_id", "type", "quantity",
	"previous_quantity", "new_quantity", "reason", "created_by", "movement_id",
}

// LedgerMirror copies every stock movement into a spreadsheet for operators who
// audit stock outside the application. The database stays the source of truth.
type LedgerMirror struct {
	sheet RowAppender
}

// NewLedgerMirror mirrors movements into sheet.
func NewLedgerMirror(sheet RowAppender) *LedgerMirror {
	return &LedgerMirror{sheet: sheet}
}

// MovementRecorded appends one row in ledgerColumns order.
func (m *LedgerMirror) MovementRecorded(ctx context.Context, movement models.StockMovement) error {
	return m.sheet.AppendRows(ctx, [][]interface{}{movementRow(movement)})
}

func movementRow(mv models.StockMovement) []interface{} {
	return []interface{}{
		mv.MovementDate.UTC().Format(time.RFC3339),
		mv.TenantID,
		mv.FarmID,
		mv.BatchID,
		string(mv.Type),
		mv.Quantity,
		mv.PreviousQuantity,
		mv.NewQuantity,
		mv.Reason,
		mv.CreatedBy,
		mv.ID,
	}
}
