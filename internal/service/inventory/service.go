// Package inventory owns the stock ledger and the cached farm counts derived
// from it.
package inventory

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
)

// Store is the data access the ledger needs.
type Store interface {
	repository.TxManager
	repository.FarmRepository
	repository.BatchRepository
	repository.MovementRepository
}

// MovementObserver is told about every ledger row after it is written.
type MovementObserver interface {
	MovementRecorded(ctx context.Context, movement models.StockMovement) error
}

// MovementRequest describes one ledger write. For Adjustment, Quantity is the
// new absolute level.
type MovementRequest struct {
	FarmID   string              `json:"farm_id"`
	BatchID  string              `json:"batch_id"`
	Type     models.MovementType `json:"type"`
	Quantity int                 `json:"quantity"`
	Reason   string              `json:"reason"`
	Date     time.Time           `json:"date"`
}

// FarmInput registers a farm.
type FarmInput struct {
	Name     string `json:"name"`
	Capacity int    `json:"capacity"`
}

// Service records stock movements and keeps farm counts in sync.
type Service struct {
	store    Store
	observer MovementObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires an inventory service.
func NewService(store Store, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, logger: logger, now: time.Now}
}

// SetObserver registers a best-effort listener for written ledger rows. It is
// called once the outermost unit of work commits and never for rolled back rows.
func (s *Service) SetObserver(observer MovementObserver) {
	s.observer = observer
}

// CreateFarm registers a farm with an empty stock.
func (s *Service) CreateFarm(ctx context.Context, in FarmInput) (*models.Farm, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, apperror.NewValidation("name is required")
	}
	if in.Capacity <= 0 {
		return nil, apperror.NewValidation("capacity must be greater than zero").WithDetail("capacity", in.Capacity)
	}

	now := s.now().UTC()
	farm := models.Farm{
		ID:        id.New(),
		TenantID:  requestctx.Tenant(ctx),
		Name:      in.Name,
		Capacity:  in.Capacity,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreateFarm(ctx, farm); err != nil {
		return nil, fmt.Errorf("create farm: %w", err)
	}
	return &farm, nil
}

// GetFarm loads a farm.
func (s *Service) GetFarm(ctx context.Context, farmID string) (*models.Farm, error) {
	farm, err := s.store.GetFarm(ctx, farmID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("farm", farmID)
	}
	if err != nil {
		return nil, fmt.Errorf("get farm: %w", err)
	}
	if !requestctx.Owns(ctx, farm.TenantID) {
		return nil, apperror.NewNotFound("farm", farmID)
	}
	return farm, nil
}

// ListFarms lists the farms of the caller's tenant.
func (s *Service) ListFarms(ctx context.Context) ([]models.Farm, error) {
	farms, err := s.store.ListFarms(ctx, requestctx.Tenant(ctx))
	if err != nil {
		return nil, fmt.Errorf("list farms: %w", err)
	}
	return farms, nil
}

// RecordMovement appends one ledger row for (farm, batch). A write that would
// leave the pair with negative stock is rejected and nothing is persisted.
func (s *Service) RecordMovement(ctx context.Context, req MovementRequest) (*models.StockMovement, error) {
	if err := validateMovement(req); err != nil {
		return nil, err
	}

	var movement models.StockMovement
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		farm, err := s.GetFarm(ctx, req.FarmID)
		if err != nil {
			return err
		}
		batch, err := s.store.GetBatch(ctx, req.BatchID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.NewNotFound("batch", req.BatchID)
		}
		if err != nil {
			return fmt.Errorf("get batch: %w", err)
		}
		if batch.TenantID != farm.TenantID {
			return apperror.NewValidation("batch and farm belong to different tenants")
		}

		current, err := s.replay(ctx, req.FarmID, req.BatchID)
		if err != nil {
			return err
		}
		next := models.ApplyMovement(current, req.Type, req.Quantity)
		if next < 0 {
			return apperror.NewInsufficientStock(req.FarmID, req.BatchID, req.Quantity, current)
		}

		now := s.now().UTC()
		date := req.Date
		if date.IsZero() {
			date = now
		}
		movement = models.StockMovement{
			ID:               id.New(),
			TenantID:         farm.TenantID,
			FarmID:           req.FarmID,
			BatchID:          req.BatchID,
			Type:             req.Type,
			Quantity:         req.Quantity,
			PreviousQuantity: current,
			NewQuantity:      next,
			Reason:           req.Reason,
			MovementDate:     date,
			CreatedBy:        requestctx.Actor(ctx),
			CreatedAt:        now,
		}
		if err := s.store.AppendMovement(ctx, movement); err != nil {
			return fmt.Errorf("append movement: %w", err)
		}

		_, err = s.RecomputeFarmCount(ctx, req.FarmID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock movement recorded",
		zap.String("farm_id", movement.FarmID),
		zap.String("batch_id", movement.BatchID),
		zap.String("type", string(movement.Type)),
		zap.Int("quantity", movement.Quantity),
		zap.Int("new_quantity", movement.NewQuantity))

	if s.observer != nil {
		repository.AfterCommit(ctx, func(ctx context.Context) {
			if err := s.observer.MovementRecorded(ctx, movement); err != nil {
				s.logger.Warn("ledger mirror failed", zap.String("movement_id", movement.ID), zap.Error(err))
			}
		})
	}

	return &movement, nil
}

// AdjustStock sets the stock of (farm, batch) to newLevel regardless of history.
func (s *Service) AdjustStock(ctx context.Context, farmID, batchID string, newLevel int, reason string) (*models.StockMovement, error) {
	return s.RecordMovement(ctx, MovementRequest{
		FarmID:   farmID,
		BatchID:  batchID,
		Type:     models.MovementAdjustment,
		Quantity: newLevel,
		Reason:   reason,
	})
}

// AvailableStock replays the ledger for (farm, batch).
func (s *Service) AvailableStock(ctx context.Context, farmID, batchID string) (int, error) {
	if _, err := s.GetFarm(ctx, farmID); err != nil {
		return 0, err
	}
	return s.replay(ctx, farmID, batchID)
}

// RecomputeFarmCount sets the farm's cached count to the summed quantity of its
// live batches. It is the only writer of Farm.CurrentCount.
func (s *Service) RecomputeFarmCount(ctx context.Context, farmID string) (int, error) {
	var count int
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		farm, err := s.GetFarm(ctx, farmID)
		if err != nil {
			return err
		}
		batches, err := s.store.ListBatchesByFarm(ctx, farmID)
		if err != nil {
			return fmt.Errorf("list farm batches: %w", err)
		}

		count = 0
		for _, b := range batches {
			count += b.Quantity
		}

		// Always written so concurrent units of work on one farm conflict.
		farm.CurrentCount = count
		farm.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateFarm(ctx, *farm); err != nil {
			return fmt.Errorf("update farm count: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// FarmSnapshot reports capacity, cached count, per-batch ledger stock and
// movement totals for a farm.
func (s *Service) FarmSnapshot(ctx context.Context, farmID string) (*models.FarmSnapshot, error) {
	farm, err := s.GetFarm(ctx, farmID)
	if err != nil {
		return nil, err
	}
	batches, err := s.store.ListBatchesByFarm(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("list farm batches: %w", err)
	}
	movements, err := s.store.ListFarmMovements(ctx, farmID)
	if err != nil {
		return nil, fmt.Errorf("list farm movements: %w", err)
	}

	snapshot := &models.FarmSnapshot{
		FarmID:       farm.ID,
		Name:         farm.Name,
		Capacity:     farm.Capacity,
		CurrentCount: farm.CurrentCount,
		Batches:      make([]models.BatchStock, 0, len(batches)),
	}

	byBatch := make(map[string][]models.StockMovement)
	var order []string
	for _, m := range movements {
		snapshot.Totals.Add(m)
		if _, ok := byBatch[m.BatchID]; !ok {
			order = append(order, m.BatchID)
		}
		byBatch[m.BatchID] = append(byBatch[m.BatchID], m)
	}
	for _, batchID := range order {
		snapshot.Available += models.ReplayStock(byBatch[batchID])
	}

	for _, b := range batches {
		snapshot.Batches = append(snapshot.Batches, models.BatchStock{
			BatchID:     b.ID,
			BatchNumber: b.BatchNumber,
			Status:      b.Status,
			Quantity:    b.Quantity,
			Available:   models.ReplayStock(byBatch[b.ID]),
		})
	}

	return snapshot, nil
}

func (s *Service) replay(ctx context.Context, farmID, batchID string) (int, error) {
	movements, err := s.store.ListMovements(ctx, farmID, batchID)
	if err != nil {
		return 0, fmt.Errorf("list movements: %w", err)
	}
	return models.ReplayStock(movements), nil
}

func validateMovement(req MovementRequest) error {
	if req.FarmID == "" {
		return apperror.NewValidation("farm_id is required")
	}
	if req.BatchID == "" {
		return apperror.NewValidation("batch_id is required")
	}
	if !req.Type.Valid() {
		return apperror.NewValidation("type must be one of In, Out, Loss, Adjustment").WithDetail("type", req.Type)
	}
	if req.Type == models.MovementAdjustment {
		if req.Quantity < 0 {
			return apperror.NewValidation("adjusted level must not be negative").WithDetail("quantity", req.Quantity)
		}
		return nil
	}
	if req.Quantity <= 0 {
		return apperror.NewValidation("quantity must be greater than zero").WithDetail("quantity", req.Quantity)
	}
	return nil
}
