// Package batches manages the chicken batch lifecycle. Stock effects go through
// the inventory ledger; farm counts are only ever recomputed there.
package batches

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
)

// Store is the data access the lifecycle needs.
type Store interface {
	repository.TxManager
	repository.FarmRepository
	repository.BatchRepository
}

// Ledger is the slice of the inventory service used here.
type Ledger interface {
	RecordMovement(ctx context.Context, req inventory.MovementRequest) (*models.StockMovement, error)
	AvailableStock(ctx context.Context, farmID, batchID string) (int, error)
	RecomputeFarmCount(ctx context.Context, farmID string) (int, error)
}

// CreateInput describes a purchased batch.
type CreateInput struct {
	BatchNumber  string    `json:"batch_number"`
	SupplierID   string    `json:"supplier_id"`
	FarmID       string    `json:"farm_id"`
	PurchaseDate time.Time `json:"purchase_date"`
	Quantity     int       `json:"quantity"`
	WeightKg     float64   `json:"weight_kg"`
	AgeInDays    int       `json:"age_in_days"`
}

// StatusUpdate changes lifecycle and/or health status. Correction lets an
// operator move the lifecycle backwards.
type StatusUpdate struct {
	Status     *models.ChickenStatus `json:"status,omitempty"`
	Health     *models.HealthStatus  `json:"health,omitempty"`
	Correction bool                  `json:"correction"`
}

// Service implements the batch lifecycle.
type Service struct {
	store  Store
	ledger Ledger
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a batch service.
func NewService(store Store, ledger Ledger, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, ledger: ledger, logger: logger, now: time.Now}
}

// Create registers a purchased batch. When a farm is given the full quantity is
// booked into it with an In movement.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.ChickenBatch, error) {
	in.BatchNumber = strings.TrimSpace(in.BatchNumber)
	if in.BatchNumber == "" {
		return nil, apperror.NewValidation("batch_number is required")
	}
	if in.Quantity < 0 {
		return nil, apperror.NewValidation("quantity must not be negative").WithDetail("quantity", in.Quantity)
	}
	if in.WeightKg < 0 {
		return nil, apperror.NewValidation("weight_kg must not be negative").WithDetail("weight_kg", in.WeightKg)
	}
	if in.AgeInDays < 0 {
		return nil, apperror.NewValidation("age_in_days must not be negative").WithDetail("age_in_days", in.AgeInDays)
	}

	tenantID := requestctx.Tenant(ctx)
	now := s.now().UTC()
	purchased := in.PurchaseDate
	if purchased.IsZero() {
		purchased = now
	}

	batch := models.ChickenBatch{
		ID:           id.New(),
		TenantID:     tenantID,
		BatchNumber:  in.BatchNumber,
		SupplierID:   in.SupplierID,
		FarmID:       in.FarmID,
		PurchaseDate: purchased,
		Quantity:     in.Quantity,
		WeightKg:     in.WeightKg,
		AgeInDays:    in.AgeInDays,
		Status:       models.ChickenPurchased,
		Health:       models.HealthHealthy,
		CreatedBy:    requestctx.Actor(ctx),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.store.FindBatchByNumber(ctx, tenantID, batch.BatchNumber); err == nil {
			return apperror.NewDuplicate("batch", "batch_number", batch.BatchNumber)
		} else if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("find batch number: %w", err)
		}

		if batch.FarmID != "" {
			if err := s.checkCapacity(ctx, batch.FarmID, batch.Quantity); err != nil {
				return err
			}
		}

		if err := s.store.CreateBatch(ctx, batch); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return apperror.NewDuplicate("batch", "batch_number", batch.BatchNumber)
			}
			return fmt.Errorf("create batch: %w", err)
		}

		if batch.FarmID == "" {
			return nil
		}
		if batch.Quantity == 0 {
			_, err := s.ledger.RecomputeFarmCount(ctx, batch.FarmID)
			return err
		}
		_, err := s.ledger.RecordMovement(ctx, inventory.MovementRequest{
			FarmID:   batch.FarmID,
			BatchID:  batch.ID,
			Type:     models.MovementIn,
			Quantity: batch.Quantity,
			Reason:   fmt.Sprintf("Purchase - Batch #%s", batch.BatchNumber),
			Date:     purchased,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch created",
		zap.String("batch_id", batch.ID),
		zap.String("batch_number", batch.BatchNumber),
		zap.String("farm_id", batch.FarmID),
		zap.Int("quantity", batch.Quantity))
	return &batch, nil
}

// Get loads a live batch.
func (s *Service) Get(ctx context.Context, batchID string) (*models.ChickenBatch, error) {
	batch, err := s.store.GetBatch(ctx, batchID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	if err != nil {
		return nil, fmt.Errorf("get batch: %w", err)
	}
	if !requestctx.Owns(ctx, batch.TenantID) {
		return nil, apperror.NewNotFound("batch", batchID)
	}
	return batch, nil
}

// Reassign moves a batch to another farm. The stock available on the old farm
// is booked out of it and into the new one, then both counts are recomputed.
func (s *Service) Reassign(ctx context.Context, batchID, newFarmID string) (*models.ChickenBatch, error) {
	if newFarmID == "" {
		return nil, apperror.NewValidation("farm_id is required")
	}

	var batch *models.ChickenBatch
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.Get(ctx, batchID)
		if err != nil {
			return err
		}
		if batch.FarmID == newFarmID {
			return nil
		}
		if err := s.checkCapacity(ctx, newFarmID, batch.Quantity); err != nil {
			return err
		}

		oldFarmID := batch.FarmID
		moved := batch.Quantity
		if oldFarmID != "" {
			moved, err = s.ledger.AvailableStock(ctx, oldFarmID, batch.ID)
			if err != nil {
				return err
			}
			if moved > 0 {
				if _, err := s.ledger.RecordMovement(ctx, inventory.MovementRequest{
					FarmID:   oldFarmID,
					BatchID:  batch.ID,
					Type:     models.MovementOut,
					Quantity: moved,
					Reason:   fmt.Sprintf("Reassigned to farm %s", newFarmID),
				}); err != nil {
					return err
				}
			}
		}

		batch.FarmID = newFarmID
		batch.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateBatch(ctx, *batch); err != nil {
			return fmt.Errorf("update batch: %w", err)
		}

		if moved > 0 {
			if _, err := s.ledger.RecordMovement(ctx, inventory.MovementRequest{
				FarmID:   newFarmID,
				BatchID:  batch.ID,
				Type:     models.MovementIn,
				Quantity: moved,
				Reason:   fmt.Sprintf("Reassigned from farm %s", oldFarmID),
			}); err != nil {
				return err
			}
		}

		if oldFarmID != "" {
			if _, err := s.ledger.RecomputeFarmCount(ctx, oldFarmID); err != nil {
				return err
			}
		}
		_, err = s.ledger.RecomputeFarmCount(ctx, newFarmID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("batch reassigned", zap.String("batch_id", batch.ID), zap.String("farm_id", newFarmID))
	return batch, nil
}

// UpdateStatus changes lifecycle and health status. Lifecycle moves must go
// forward unless the update is flagged as a correction.
func (s *Service) UpdateStatus(ctx context.Context, batchID string, upd StatusUpdate) (*models.ChickenBatch, error) {
	if upd.Status == nil && upd.Health == nil {
		return nil, apperror.NewValidation("status or health is required")
	}
	if upd.Status != nil && !upd.Status.Valid() {
		return nil, apperror.NewValidation("unknown status").WithDetail("status", *upd.Status)
	}
	if upd.Health != nil && !upd.Health.Valid() {
		return nil, apperror.NewValidation("unknown health status").WithDetail("health", *upd.Health)
	}

	batch, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil {
		if !upd.Correction && !batch.Status.CanTransition(*upd.Status) {
			return nil, apperror.NewInvalidTransition("batch", string(batch.Status), string(*upd.Status))
		}
		if upd.Correction && *upd.Status != batch.Status {
			s.logger.Warn("batch status corrected",
				zap.String("batch_id", batch.ID),
				zap.String("from", string(batch.Status)),
				zap.String("to", string(*upd.Status)),
				zap.String("actor", requestctx.Actor(ctx)))
		}
		batch.Status = *upd.Status
	}
	if upd.Health != nil {
		batch.Health = *upd.Health
	}

	batch.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("update batch: %w", err)
	}
	return batch, nil
}

// Advance moves a batch forward to status. A batch already at or past status
// is left untouched.
func (s *Service) Advance(ctx context.Context, batchID string, status models.ChickenStatus) (*models.ChickenBatch, error) {
	batch, err := s.Get(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.Status == status || !batch.Status.CanTransition(status) {
		return batch, nil
	}

	batch.Status = status
	batch.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateBatch(ctx, *batch); err != nil {
		return nil, fmt.Errorf("update batch: %w", err)
	}
	return batch, nil
}

// Delete soft-deletes a batch and drops it from its farm's count. Ledger rows
// are kept.
func (s *Service) Delete(ctx context.Context, batchID string) error {
	return s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		batch, err := s.Get(ctx, batchID)
		if err != nil {
			return err
		}

		now := s.now().UTC()
		batch.DeletedAt = &now
		batch.UpdatedAt = now
		if err := s.store.UpdateBatch(ctx, *batch); err != nil {
			return fmt.Errorf("delete batch: %w", err)
		}

		if batch.FarmID != "" {
			if _, err := s.ledger.RecomputeFarmCount(ctx, batch.FarmID); err != nil {
				return err
			}
		}
		s.logger.Info("batch deleted", zap.String("batch_id", batch.ID))
		return nil
	})
}

func (s *Service) checkCapacity(ctx context.Context, farmID string, adding int) error {
	farm, err := s.store.GetFarm(ctx, farmID)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.NewNotFound("farm", farmID)
	}
	if err != nil {
		return fmt.Errorf("get farm: %w", err)
	}
	if !requestctx.Owns(ctx, farm.TenantID) {
		return apperror.NewNotFound("farm", farmID)
	}
	if farm.CurrentCount+adding > farm.Capacity {
		return apperror.NewValidation("farm capacity exceeded").
			WithDetail("farm_id", farm.ID).
			WithDetail("capacity", farm.Capacity).
			WithDetail("current_count", farm.CurrentCount).
			WithDetail("requested", adding)
	}
	return nil
}
