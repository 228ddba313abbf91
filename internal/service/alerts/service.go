// Package alerts holds the periodic scans that remind shops and warn admins.
// Scans only read domain state and emit notifications.
package alerts

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/notify"
)

// Store is the read access the scans need.
type Store interface {
	repository.DistributionRepository
	repository.SaleRepository
	repository.FarmRepository
}

// Directory resolves notification targets.
type Directory interface {
	ResolveShopOwner(ctx context.Context, shopID string) (string, error)
	Admins(ctx context.Context, tenantID string) ([]models.User, error)
}

// Config tunes the scans.
type Config struct {
	ReminderAfter    time.Duration
	LowCapacityRatio float64
	Location         *time.Location
}

// Service runs the scans.
type Service struct {
	store     Store
	directory Directory
	sink      notify.Sink
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the scans.
func NewService(store Store, directory Directory, sink notify.Sink, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.Nop{}
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Service{store: store, directory: directory, sink: sink, cfg: cfg, logger: logger, now: time.Now}
}

// NotifyUpcomingDeliveries reminds the owner of every shop served by a trip
// scheduled for tomorrow. It returns the number of notifications sent.
func (s *Service) NotifyUpcomingDeliveries(ctx context.Context) (int, error) {
	local := s.now().In(s.cfg.Location)
	from := time.Date(local.Year(), local.Month(), local.Day()+1, 0, 0, 0, 0, s.cfg.Location)
	to := from.AddDate(0, 0, 1)

	dists, err := s.store.ListDistributionsScheduledBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("list distributions for %s: %w", from.Format("2006-01-02"), err)
	}

	sent := 0
	for _, dist := range dists {
		if dist.Status != models.DistributionScheduled {
			continue
		}
		tenantCtx := requestctx.WithTenant(ctx, dist.TenantID)
		for _, shopID := range dist.ShopIDs() {
			ownerID, err := s.directory.ResolveShopOwner(tenantCtx, shopID)
			if err != nil {
				s.logger.Warn("delivery reminder skipped", zap.String("shop_id", shopID), zap.Error(err))
				continue
			}
			err = s.sink.Notify(tenantCtx, models.Notification{
				TenantID:      dist.TenantID,
				UserID:        ownerID,
				Type:          models.NotifyDeliveryReminder,
				Title:         "Delivery tomorrow",
				Message:       fmt.Sprintf("%d chickens arrive tomorrow (%s).", dist.QuantityForShop(shopID), from.Format("2006-01-02")),
				RelatedEntity: "distribution",
				RelatedID:     dist.ID,
			})
			if err != nil {
				s.logger.Warn("delivery reminder failed", zap.String("distribution_id", dist.ID), zap.String("shop_id", shopID), zap.Error(err))
				continue
			}
			sent++
		}
	}
	return sent, nil
}

// RemindOutstandingPayments reminds shops whose sale has an open balance and no
// payment (or creation) within ReminderAfter.
func (s *Service) RemindOutstandingPayments(ctx context.Context) (int, error) {
	sales, err := s.store.ListSalesByPaymentStatus(ctx, models.PaymentPending, models.PaymentPartial)
	if err != nil {
		return 0, fmt.Errorf("list unpaid sales: %w", err)
	}

	now := s.now()
	sent := 0
	for _, sale := range sales {
		last := sale.CreatedAt
		if sale.LastPaymentAt != nil {
			last = *sale.LastPaymentAt
		}
		if now.Sub(last) < s.cfg.ReminderAfter {
			continue
		}

		tenantCtx := requestctx.WithTenant(ctx, sale.TenantID)
		ownerID, err := s.directory.ResolveShopOwner(tenantCtx, sale.ShopID)
		if err != nil {
			s.logger.Warn("payment reminder skipped", zap.String("sale_id", sale.ID), zap.Error(err))
			continue
		}
		err = s.sink.Notify(tenantCtx, models.Notification{
			TenantID:      sale.TenantID,
			UserID:        ownerID,
			Type:          models.NotifyPaymentReminder,
			Title:         "Payment reminder",
			Message:       fmt.Sprintf("Sale %s still has %s outstanding.", sale.ID, sale.Remaining().StringFixed(2)),
			RelatedEntity: "sale",
			RelatedID:     sale.ID,
		})
		if err != nil {
			s.logger.Warn("payment reminder failed", zap.String("sale_id", sale.ID), zap.Error(err))
			continue
		}
		sent++
	}
	return sent, nil
}

// AlertLowCapacity warns every admin of a tenant about its farms holding less
// than LowCapacityRatio of their capacity.
func (s *Service) AlertLowCapacity(ctx context.Context) (int, error) {
	farms, err := s.store.ListFarms(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list farms: %w", err)
	}

	admins := make(map[string][]models.User)
	sent := 0
	for _, farm := range farms {
		if !farm.BelowCapacityRatio(s.cfg.LowCapacityRatio) {
			continue
		}

		users, ok := admins[farm.TenantID]
		if !ok {
			users, err = s.directory.Admins(ctx, farm.TenantID)
			if err != nil {
				s.logger.Warn("low capacity alert skipped", zap.String("farm_id", farm.ID), zap.Error(err))
				continue
			}
			admins[farm.TenantID] = users
		}

		for _, admin := range users {
			err := s.sink.Notify(requestctx.WithTenant(ctx, farm.TenantID), models.Notification{
				TenantID:      farm.TenantID,
				UserID:        admin.ID,
				Type:          models.NotifyLowStock,
				Title:         "Low farm stock",
				Message:       fmt.Sprintf("Farm %s holds %d of %d (%.0f%%).", farm.Name, farm.CurrentCount, farm.Capacity, farm.Utilization()*100),
				RelatedEntity: "farm",
				RelatedID:     farm.ID,
			})
			if err != nil {
				s.logger.Warn("low capacity alert failed", zap.String("farm_id", farm.ID), zap.String("user_id", admin.ID), zap.Error(err))
				continue
			}
			sent++
		}
	}
	return sent, nil
}
