// Package distribution schedules vehicle trips that carry batches to shops.
package distribution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/inventory"
	"github.com/mamadbah2/supplychain/internal/service/notify"
)

// Side effect names reported in apperror.SideEffects.
const (
	EffectLedgerOut  = "ledger_out"
	EffectNotifyShop = "notify_shop"
)

// Store is the data access a trip needs.
type Store interface {
	repository.TxManager
	repository.DistributionRepository
}

// Batches is the slice of the batch lifecycle used here.
type Batches interface {
	Get(ctx context.Context, batchID string) (*models.ChickenBatch, error)
	Advance(ctx context.Context, batchID string, status models.ChickenStatus) (*models.ChickenBatch, error)
}

// Ledger books distributed stock out of farms.
type Ledger interface {
	RecordMovement(ctx context.Context, req inventory.MovementRequest) (*models.StockMovement, error)
}

// Shops resolves shops and their notified owner.
type Shops interface {
	GetShop(ctx context.Context, shopID string) (*models.Shop, error)
	ResolveShopOwner(ctx context.Context, shopID string) (string, error)
}

// ItemInput allocates part of a batch to a shop.
type ItemInput struct {
	BatchID  string `json:"batch_id"`
	ShopID   string `json:"shop_id"`
	Quantity int    `json:"quantity"`
}

// CreateInput schedules a trip.
type CreateInput struct {
	VehicleID     string      `json:"vehicle_id"`
	ScheduledDate time.Time   `json:"scheduled_date"`
	Items         []ItemInput `json:"items"`
}

// Service orchestrates distributions.
type Service struct {
	store   Store
	batches Batches
	ledger  Ledger
	shops   Shops
	sink    notify.Sink
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a distribution service.
func NewService(store Store, batches Batches, ledger Ledger, shops Shops, sink notify.Sink, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Service{
		store:   store,
		batches: batches,
		ledger:  ledger,
		shops:   shops,
		sink:    sink,
		logger:  logger,
		now:     time.Now,
	}
}

// Create persists a trip with its items, readies each batch and books the
// allocated stock out of the batch's farm. Ledger failures and shop
// notifications are best-effort and reported in the returned SideEffects.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Distribution, apperror.SideEffects, error) {
	var effects apperror.SideEffects

	if err := validateCreate(in); err != nil {
		return nil, effects, err
	}

	now := s.now().UTC()
	dist := models.Distribution{
		ID:            id.New(),
		TenantID:      requestctx.Tenant(ctx),
		VehicleID:     in.VehicleID,
		ScheduledDate: in.ScheduledDate,
		Status:        models.DistributionScheduled,
		Items:         make([]models.DistributionItem, 0, len(in.Items)),
		CreatedBy:     requestctx.Actor(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, item := range in.Items {
		dist.Items = append(dist.Items, models.DistributionItem{
			ID:             id.New(),
			BatchID:        item.BatchID,
			ShopID:         item.ShopID,
			Quantity:       item.Quantity,
			DeliveryStatus: models.ItemPending,
		})
	}

	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var txEffects apperror.SideEffects

		farms := make(map[string]string, len(dist.Items))
		for _, item := range dist.Items {
			batch, err := s.batches.Get(ctx, item.BatchID)
			if err != nil {
				return err
			}
			farms[item.BatchID] = batch.FarmID
			if _, err := s.shops.GetShop(ctx, item.ShopID); err != nil {
				return err
			}
		}

		if err := s.store.CreateDistribution(ctx, dist); err != nil {
			return fmt.Errorf("create distribution: %w", err)
		}

		for _, item := range dist.Items {
			if _, err := s.batches.Advance(ctx, item.BatchID, models.ChickenReadyForDistribution); err != nil {
				return err
			}

			farmID := farms[item.BatchID]
			if farmID == "" {
				continue
			}
			_, err := s.ledger.RecordMovement(ctx, inventory.MovementRequest{
				FarmID:   farmID,
				BatchID:  item.BatchID,
				Type:     models.MovementOut,
				Quantity: item.Quantity,
				Reason:   fmt.Sprintf("Distribution to shop - Distribution #%s", dist.ID),
				Date:     now,
			})
			if err != nil {
				s.logger.Warn("distribution ledger write failed",
					zap.String("distribution_id", dist.ID),
					zap.String("batch_id", item.BatchID),
					zap.Error(err))
				txEffects.Record(EffectLedgerOut, item.BatchID, err)
			}
		}

		effects = txEffects
		return nil
	})
	if err != nil {
		return nil, apperror.SideEffects{}, err
	}

	s.logger.Info("distribution scheduled",
		zap.String("distribution_id", dist.ID),
		zap.String("vehicle_id", dist.VehicleID),
		zap.Int("items", len(dist.Items)))

	effects.Merge(s.notifyShops(ctx, dist))
	return &dist, effects, nil
}

// Get loads a distribution.
func (s *Service) Get(ctx context.Context, distributionID string) (*models.Distribution, error) {
	dist, err := s.store.GetDistribution(ctx, distributionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("distribution", distributionID)
	}
	if err != nil {
		return nil, fmt.Errorf("get distribution: %w", err)
	}
	if !requestctx.Owns(ctx, dist.TenantID) {
		return nil, apperror.NewNotFound("distribution", distributionID)
	}
	return dist, nil
}

// UpdateStatus moves a trip along Scheduled -> InTransit -> Completed, or to
// Cancelled. Completing a trip marks its batches InTransit: the trucks left.
func (s *Service) UpdateStatus(ctx context.Context, distributionID string, status models.DistributionStatus) (*models.Distribution, error) {
	if !status.Valid() {
		return nil, apperror.NewValidation("unknown distribution status").WithDetail("status", status)
	}

	var dist *models.Distribution
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		dist, err = s.Get(ctx, distributionID)
		if err != nil {
			return err
		}
		if !dist.Status.CanTransition(status) {
			return apperror.NewInvalidTransition("distribution", string(dist.Status), string(status))
		}

		dist.Status = status
		dist.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateDistribution(ctx, *dist); err != nil {
			return fmt.Errorf("update distribution: %w", err)
		}

		if status != models.DistributionCompleted {
			return nil
		}
		seen := make(map[string]struct{}, len(dist.Items))
		for _, item := range dist.Items {
			if _, ok := seen[item.BatchID]; ok {
				continue
			}
			seen[item.BatchID] = struct{}{}
			if _, err := s.batches.Advance(ctx, item.BatchID, models.ChickenInTransit); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("distribution status updated", zap.String("distribution_id", dist.ID), zap.String("status", string(status)))
	return dist, nil
}

func (s *Service) notifyShops(ctx context.Context, dist models.Distribution) apperror.SideEffects {
	var effects apperror.SideEffects
	for _, shopID := range dist.ShopIDs() {
		ownerID, err := s.shops.ResolveShopOwner(ctx, shopID)
		if err == nil {
			err = s.sink.Notify(ctx, models.Notification{
				TenantID:      dist.TenantID,
				UserID:        ownerID,
				Type:          models.NotifyDeliveryScheduled,
				Title:         "Delivery scheduled",
				Message:       fmt.Sprintf("%d chickens will be delivered on %s.", dist.QuantityForShop(shopID), dist.ScheduledDate.Format("2006-01-02")),
				RelatedEntity: "distribution",
				RelatedID:     dist.ID,
			})
		}
		if err != nil {
			s.logger.Warn("shop notification failed",
				zap.String("distribution_id", dist.ID),
				zap.String("shop_id", shopID),
				zap.Error(err))
			effects.Record(EffectNotifyShop, shopID, err)
		}
	}
	return effects
}

func validateCreate(in CreateInput) error {
	if in.VehicleID == "" {
		return apperror.NewValidation("vehicle_id is required")
	}
	if in.ScheduledDate.IsZero() {
		return apperror.NewValidation("scheduled_date is required")
	}
	if len(in.Items) == 0 {
		return apperror.NewValidation("at least one item is required")
	}
	for i, item := range in.Items {
		if item.BatchID == "" || item.ShopID == "" {
			return apperror.NewValidation("batch_id and shop_id are required").WithDetail("item", i)
		}
		if item.Quantity <= 0 {
			return apperror.NewValidation("quantity must be greater than zero").WithDetail("item", i)
		}
	}
	return nil
}
