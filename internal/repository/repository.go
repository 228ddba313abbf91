// Package repository defines the persistence contract shared by the MongoDB and
// in-memory stores.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/mamadbah2/supplychain/internal/domain/models"
)

var (
	// ErrNotFound is returned when a lookup by id or key matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert collides with an existing key.
	ErrDuplicate = errors.New("duplicate record")
)

// TxManager runs fn as one unit of work. Every repository call made with the
// ctx handed to fn joins the same transaction; nested calls reuse it.
type TxManager interface {
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// FarmRepository persists farms.
type FarmRepository interface {
	CreateFarm(ctx context.Context, farm models.Farm) error
	GetFarm(ctx context.Context, id string) (*models.Farm, error)
	ListFarms(ctx context.Context, tenantID string) ([]models.Farm, error)
	UpdateFarm(ctx context.Context, farm models.Farm) error
}

// BatchRepository persists chicken batches. Soft-deleted batches are hidden from
// every read.
type BatchRepository interface {
	CreateBatch(ctx context.Context, batch models.ChickenBatch) error
	GetBatch(ctx context.Context, id string) (*models.ChickenBatch, error)
	FindBatchByNumber(ctx context.Context, tenantID, batchNumber string) (*models.ChickenBatch, error)
	ListBatchesByFarm(ctx context.Context, farmID string) ([]models.ChickenBatch, error)
	UpdateBatch(ctx context.Context, batch models.ChickenBatch) error
}

// MovementRepository is the append-only stock ledger. Listings are returned in
// append order.
type MovementRepository interface {
	AppendMovement(ctx context.Context, movement models.StockMovement) error
	ListMovements(ctx context.Context, farmID, batchID string) ([]models.StockMovement, error)
	ListFarmMovements(ctx context.Context, farmID string) ([]models.StockMovement, error)
}

// DistributionRepository persists distributions together with their items.
type DistributionRepository interface {
	CreateDistribution(ctx context.Context, distribution models.Distribution) error
	GetDistribution(ctx context.Context, id string) (*models.Distribution, error)
	UpdateDistribution(ctx context.Context, distribution models.Distribution) error
	ListDistributionsScheduledBetween(ctx context.Context, from, to time.Time) ([]models.Distribution, error)
}

// DeliveryRepository persists delivery receipts.
type DeliveryRepository interface {
	CreateDelivery(ctx context.Context, delivery models.Delivery) error
	GetDelivery(ctx context.Context, id string) (*models.Delivery, error)
	UpdateDelivery(ctx context.Context, delivery models.Delivery) error
	ListDeliveriesByDistribution(ctx context.Context, distributionID string) ([]models.Delivery, error)
}

// OrderRepository persists orders together with their items.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order models.Order) error
	GetOrder(ctx context.Context, id string) (*models.Order, error)
	UpdateOrder(ctx context.Context, order models.Order) error
}

// SaleRepository persists sales.
type SaleRepository interface {
	CreateSale(ctx context.Context, sale models.Sale) error
	GetSale(ctx context.Context, id string) (*models.Sale, error)
	UpdateSale(ctx context.Context, sale models.Sale) error
	ListSalesByPaymentStatus(ctx context.Context, statuses ...models.PaymentStatus) ([]models.Sale, error)
}

// PaymentRepository persists payments.
type PaymentRepository interface {
	CreatePayment(ctx context.Context, payment models.Payment) error
	ListPaymentsBySale(ctx context.Context, saleID string) ([]models.Payment, error)
}

// DirectoryRepository persists shops and users.
type DirectoryRepository interface {
	CreateUser(ctx context.Context, user models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	ListUsersByRole(ctx context.Context, tenantID string, role models.UserRole) ([]models.User, error)
	CreateShop(ctx context.Context, shop models.Shop) error
	GetShop(ctx context.Context, id string) (*models.Shop, error)
}

// NotificationRepository persists in-app notifications.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, notification models.Notification) error
	ListNotificationsByUser(ctx context.Context, userID string, limit int) ([]models.Notification, error)
}

// Store is the full data-access surface used by the services.
type Store interface {
	TxManager
	FarmRepository
	BatchRepository
	MovementRepository
	DistributionRepository
	DeliveryRepository
	OrderRepository
	SaleRepository
	PaymentRepository
	DirectoryRepository
	NotificationRepository
}
