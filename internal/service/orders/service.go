// Package orders implements shop orders: approval, fulfillment and
// cancellation. Order status is derived from item fulfillment every time the
// items change.
package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/internal/service/notify"
)

// EffectNotifyCreator is the side effect name for creator notifications.
const EffectNotifyCreator = "notify_creator"

// Store is the data access orders need.
type Store interface {
	repository.TxManager
	repository.OrderRepository
	repository.BatchRepository
}

// Shops checks that an ordering shop exists.
type Shops interface {
	GetShop(ctx context.Context, shopID string) (*models.Shop, error)
}

// ItemInput requests a quantity of a batch.
type ItemInput struct {
	BatchID  string `json:"batch_id"`
	Quantity int    `json:"quantity"`
}

// CreateInput places an order.
type CreateInput struct {
	ShopID                string      `json:"shop_id"`
	RequestedDeliveryDate *time.Time  `json:"requested_delivery_date,omitempty"`
	Items                 []ItemInput `json:"items"`
}

// FulfillmentInput sets the fulfilled quantity of one order item.
type FulfillmentInput struct {
	ItemID            string `json:"item_id"`
	FulfilledQuantity int    `json:"fulfilled_quantity"`
}

// Service manages orders.
type Service struct {
	store     Store
	shops     Shops
	sink      notify.Sink
	unitPrice decimal.Decimal
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires an order service. unitPrice is applied to every line until
// a pricing source exists.
func NewService(store Store, shops Shops, sink notify.Sink, unitPrice decimal.Decimal, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if sink == nil {
		sink = notify.Nop{}
	}
	return &Service{store: store, shops: shops, sink: sink, unitPrice: unitPrice, logger: logger, now: time.Now}
}

// Create places a pending order. Every batch must be ready for distribution.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Order, error) {
	if in.ShopID == "" {
		return nil, apperror.NewValidation("shop_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperror.NewValidation("at least one item is required")
	}
	if _, err := s.shops.GetShop(ctx, in.ShopID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	order := models.Order{
		ID:                    id.New(),
		TenantID:              requestctx.Tenant(ctx),
		ShopID:                in.ShopID,
		OrderDate:             now,
		RequestedDeliveryDate: in.RequestedDeliveryDate,
		Status:                models.OrderPending,
		FulfillmentStatus:     models.FulfillmentNone,
		Items:                 make([]models.OrderItem, 0, len(in.Items)),
		CreatedBy:             requestctx.Actor(ctx),
		CreatedAt:             now,
		UpdatedAt:             now,
	}

	for i, item := range in.Items {
		if item.BatchID == "" || item.Quantity <= 0 {
			return nil, apperror.NewValidation("each item needs a batch_id and a positive quantity").WithDetail("item", i)
		}
		batch, err := s.store.GetBatch(ctx, item.BatchID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFound("batch", item.BatchID)
		}
		if err != nil {
			return nil, fmt.Errorf("get batch: %w", err)
		}
		if !requestctx.Owns(ctx, batch.TenantID) {
			return nil, apperror.NewNotFound("batch", item.BatchID)
		}
		if batch.Status != models.ChickenReadyForDistribution {
			return nil, apperror.NewValidation("batch is not ready for distribution").
				WithDetail("batch_id", batch.ID).
				WithDetail("status", batch.Status)
		}

		order.Items = append(order.Items, models.OrderItem{
			ID:                id.New(),
			BatchID:           item.BatchID,
			RequestedQuantity: item.Quantity,
			UnitPrice:         s.unitPrice,
			TotalPrice:        s.unitPrice.Mul(decimal.NewFromInt(int64(item.Quantity))),
		})
	}
	order.TotalAmount = models.SumLineTotals(order.Items)

	if err := s.store.CreateOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	s.logger.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("shop_id", order.ShopID),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)))
	return &order, nil
}

// Get loads an order.
func (s *Service) Get(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.GetOrder(ctx, orderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("order", orderID)
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if !requestctx.Owns(ctx, order.TenantID) {
		return nil, apperror.NewNotFound("order", orderID)
	}
	return order, nil
}

// Approve accepts a pending order and tells its creator.
func (s *Service) Approve(ctx context.Context, orderID string) (*models.Order, apperror.SideEffects, error) {
	order, err := s.decide(ctx, orderID, models.OrderApproved, "")
	if err != nil {
		return nil, apperror.SideEffects{}, err
	}
	effects := s.notifyCreator(ctx, order, models.NotifyOrderApproved, "Order approved",
		fmt.Sprintf("Your order %s was approved.", order.ID))
	return order, effects, nil
}

// Reject declines a pending order with a reason and tells its creator.
func (s *Service) Reject(ctx context.Context, orderID, reason string) (*models.Order, apperror.SideEffects, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.SideEffects{}, apperror.NewValidation("reason is required")
	}
	order, err := s.decide(ctx, orderID, models.OrderRejected, reason)
	if err != nil {
		return nil, apperror.SideEffects{}, err
	}
	effects := s.notifyCreator(ctx, order, models.NotifyOrderRejected, "Order rejected",
		fmt.Sprintf("Your order %s was rejected: %s", order.ID, reason))
	return order, effects, nil
}

// UpdateFulfillment records fulfilled quantities. The whole call is rejected if
// any quantity exceeds what was requested. The creator is notified only when
// the order becomes Fulfilled.
func (s *Service) UpdateFulfillment(ctx context.Context, orderID string, items []FulfillmentInput) (*models.Order, apperror.SideEffects, error) {
	if len(items) == 0 {
		return nil, apperror.SideEffects{}, apperror.NewValidation("at least one item is required")
	}

	var previous models.OrderStatus
	order, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		if !order.Status.AcceptsFulfillment() {
			return apperror.NewInvalidTransition("order", string(order.Status), "fulfillment")
		}

		index := make(map[string]int, len(order.Items))
		for i, item := range order.Items {
			index[item.ID] = i
		}

		fulfilled := make(map[int]int, len(items))
		for _, in := range items {
			i, ok := index[in.ItemID]
			if !ok {
				return apperror.NewNotFound("order item", in.ItemID)
			}
			requested := order.Items[i].RequestedQuantity
			if in.FulfilledQuantity < 0 || in.FulfilledQuantity > requested {
				return apperror.NewValidation("fulfilled quantity must be between 0 and the requested quantity").
					WithDetail("item_id", in.ItemID).
					WithDetail("requested", requested).
					WithDetail("fulfilled", in.FulfilledQuantity)
			}
			fulfilled[i] = in.FulfilledQuantity
		}

		previous = order.Status
		for i, qty := range fulfilled {
			item := &order.Items[i]
			item.FulfilledQuantity = qty
			item.TotalPrice = item.UnitPrice.Mul(decimal.NewFromInt(int64(qty)))
		}
		order.Status = models.DeriveOrderStatus(order.Items)
		order.FulfillmentStatus = models.DeriveFulfillmentStatus(order.Items)
		order.TotalAmount = models.SumLineTotals(order.Items)
		return nil
	})
	if err != nil {
		return nil, apperror.SideEffects{}, err
	}

	s.logger.Info("order fulfillment updated",
		zap.String("order_id", order.ID),
		zap.String("from", string(previous)),
		zap.String("status", string(order.Status)))

	var effects apperror.SideEffects
	if order.Status == models.OrderFulfilled && previous != models.OrderFulfilled {
		effects = s.notifyCreator(ctx, order, models.NotifyOrderFulfilled, "Order fulfilled",
			fmt.Sprintf("Your order %s has been fulfilled.", order.ID))
	}
	return order, effects, nil
}

// Cancel cancels an order that is neither fulfilled nor already cancelled.
func (s *Service) Cancel(ctx context.Context, orderID string) (*models.Order, error) {
	return s.mutate(ctx, orderID, func(order *models.Order) error {
		if !order.Status.CanCancel() {
			return apperror.NewInvalidTransition("order", string(order.Status), string(models.OrderCancelled))
		}
		order.Status = models.OrderCancelled
		return nil
	})
}

func (s *Service) decide(ctx context.Context, orderID string, status models.OrderStatus, reason string) (*models.Order, error) {
	order, err := s.mutate(ctx, orderID, func(order *models.Order) error {
		if order.Status != models.OrderPending {
			return apperror.NewInvalidTransition("order", string(order.Status), string(status))
		}
		order.Status = status
		order.RejectionReason = reason
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order decided", zap.String("order_id", order.ID), zap.String("status", string(status)))
	return order, nil
}

// mutate loads an order, applies fn and saves it in one unit of work.
func (s *Service) mutate(ctx context.Context, orderID string, fn func(order *models.Order) error) (*models.Order, error) {
	var order *models.Order
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		var err error
		order, err = s.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if err := fn(order); err != nil {
			return err
		}
		order.UpdatedAt = s.now().UTC()
		if err := s.store.UpdateOrder(ctx, *order); err != nil {
			return fmt.Errorf("update order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

func (s *Service) notifyCreator(ctx context.Context, order *models.Order, typ models.NotificationType, title, message string) apperror.SideEffects {
	var effects apperror.SideEffects
	err := s.sink.Notify(ctx, models.Notification{
		TenantID:      order.TenantID,
		UserID:        order.CreatedBy,
		Type:          typ,
		Title:         title,
		Message:       message,
		RelatedEntity: "order",
		RelatedID:     order.ID,
	})
	if err != nil {
		s.logger.Warn("order notification failed", zap.String("order_id", order.ID), zap.String("type", string(typ)), zap.Error(err))
		effects.Record(EffectNotifyCreator, order.CreatedBy, err)
	}
	return effects
}
