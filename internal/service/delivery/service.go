// Package delivery records a distribution's items arriving at a shop.
package delivery

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
)

// Store is the data access a delivery needs.
type Store interface {
	repository.TxManager
	repository.DeliveryRepository
	repository.DistributionRepository
}

// Batches advances delivered batches.
type Batches interface {
	Advance(ctx context.Context, batchID string, status models.ChickenStatus) (*models.ChickenBatch, error)
}

// CreateInput opens a delivery for one shop on a distribution.
type CreateInput struct {
	DistributionID string `json:"distribution_id"`
	ShopID         string `json:"shop_id"`
	Notes          string `json:"notes"`
}

// UpdateInput records what the shop verified on arrival.
type UpdateInput struct {
	VerifiedQuantity int                   `json:"verified_quantity"`
	Status           models.DeliveryStatus `json:"status"`
	Notes            *string               `json:"notes,omitempty"`
}

// Service manages deliveries.
type Service struct {
	store   Store
	batches Batches
	logger  *zap.Logger
	now     func() time.Time
}

// NewService wires a delivery service.
func NewService(store Store, batches Batches, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, batches: batches, logger: logger, now: time.Now}
}

// Create opens a pending delivery. TotalQuantity is the sum of the trip's
// items for the shop.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Delivery, error) {
	if in.DistributionID == "" || in.ShopID == "" {
		return nil, apperror.NewValidation("distribution_id and shop_id are required")
	}

	var delivery models.Delivery
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		dist, err := s.distribution(ctx, in.DistributionID)
		if err != nil {
			return err
		}
		if dist.Status == models.DistributionCancelled {
			return apperror.NewConflict("distribution is cancelled")
		}

		total := dist.QuantityForShop(in.ShopID)
		if total == 0 {
			return apperror.NewValidation("shop has no items on this distribution").
				WithDetail("distribution_id", dist.ID).
				WithDetail("shop_id", in.ShopID)
		}

		existing, err := s.store.ListDeliveriesByDistribution(ctx, dist.ID)
		if err != nil {
			return fmt.Errorf("list deliveries: %w", err)
		}
		for _, d := range existing {
			if d.ShopID == in.ShopID && d.Status != models.DeliveryCancelled {
				return apperror.NewDuplicate("delivery", "shop_id", in.ShopID)
			}
		}

		now := s.now().UTC()
		delivery = models.Delivery{
			ID:             id.New(),
			TenantID:       requestctx.Tenant(ctx),
			DistributionID: dist.ID,
			ShopID:         in.ShopID,
			TotalQuantity:  total,
			Status:         models.DeliveryPending,
			Notes:          in.Notes,
			CreatedBy:      requestctx.Actor(ctx),
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.store.CreateDelivery(ctx, delivery); err != nil {
			return fmt.Errorf("create delivery: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &delivery, nil
}

// Get loads a delivery.
func (s *Service) Get(ctx context.Context, deliveryID string) (*models.Delivery, error) {
	delivery, err := s.store.GetDelivery(ctx, deliveryID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("delivery", deliveryID)
	}
	if err != nil {
		return nil, fmt.Errorf("get delivery: %w", err)
	}
	if !requestctx.Owns(ctx, delivery.TenantID) {
		return nil, apperror.NewNotFound("delivery", deliveryID)
	}
	return delivery, nil
}

// Update records the verified quantity and status. Completing a delivery marks
// the shop's items on the trip Delivered and moves their batches to Delivered.
// VerifiedQuantity is an operator audit value and is not checked against the items.
func (s *Service) Update(ctx context.Context, deliveryID string, in UpdateInput) (*models.Delivery, error) {
	if !in.Status.Valid() {
		return nil, apperror.NewValidation("unknown delivery status").WithDetail("status", in.Status)
	}
	if in.VerifiedQuantity < 0 {
		return nil, apperror.NewValidation("verified_quantity must not be negative")
	}

	var delivery *models.Delivery
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		delivery, err = s.Get(ctx, deliveryID)
		if err != nil {
			return err
		}
		if delivery.Status == models.DeliveryCompleted || delivery.Status == models.DeliveryCancelled {
			return apperror.NewInvalidTransition("delivery", string(delivery.Status), string(in.Status))
		}

		now := s.now().UTC()
		delivery.VerifiedQuantity = in.VerifiedQuantity
		delivery.Status = in.Status
		if in.Notes != nil {
			delivery.Notes = *in.Notes
		}
		delivery.UpdatedAt = now

		if in.Status == models.DeliveryCompleted {
			delivery.DeliveredAt = &now
			if err := s.markItemsDelivered(ctx, delivery.DistributionID, delivery.ShopID, now); err != nil {
				return err
			}
		}

		if err := s.store.UpdateDelivery(ctx, *delivery); err != nil {
			return fmt.Errorf("update delivery: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("delivery updated",
		zap.String("delivery_id", delivery.ID),
		zap.String("status", string(delivery.Status)),
		zap.Int("verified_quantity", delivery.VerifiedQuantity),
		zap.Int("total_quantity", delivery.TotalQuantity))
	return delivery, nil
}

func (s *Service) markItemsDelivered(ctx context.Context, distributionID, shopID string, at time.Time) error {
	dist, err := s.distribution(ctx, distributionID)
	if err != nil {
		return err
	}

	var batchIDs []string
	seen := make(map[string]struct{})
	for i := range dist.Items {
		item := &dist.Items[i]
		if item.ShopID != shopID {
			continue
		}
		item.DeliveryStatus = models.ItemDelivered
		delivered := at
		item.DeliveredAt = &delivered
		if _, ok := seen[item.BatchID]; !ok {
			seen[item.BatchID] = struct{}{}
			batchIDs = append(batchIDs, item.BatchID)
		}
	}

	dist.UpdatedAt = at
	if err := s.store.UpdateDistribution(ctx, *dist); err != nil {
		return fmt.Errorf("update distribution items: %w", err)
	}

	for _, batchID := range batchIDs {
		if _, err := s.batches.Advance(ctx, batchID, models.ChickenDelivered); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) distribution(ctx context.Context, distributionID string) (*models.Distribution, error) {
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
