// Package payments reconciles payments against sales. The sum of a sale's
// payments never exceeds its total: a payment that would is rejected before
// anything is written.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/id"
	"github.com/mamadbah2/supplychain/internal/repository"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/pkg/clients/gateway"
)

// Store is the data access payments need.
type Store interface {
	repository.TxManager
	repository.SaleRepository
	repository.PaymentRepository
	repository.OrderRepository
}

// CreateSaleInput bills a shop. When OrderID is set, ShopID and TotalAmount
// default to the order's.
type CreateSaleInput struct {
	ShopID      string          `json:"shop_id"`
	OrderID     string          `json:"order_id"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// PaymentInput records a settlement.
type PaymentInput struct {
	Amount               decimal.Decimal      `json:"amount"`
	Method               models.PaymentMethod `json:"method"`
	GatewayTransactionID string               `json:"gateway_transaction_id"`
}

// Service manages sales and payments.
type Service struct {
	store    Store
	gateway  gateway.Client
	currency string
	logger   *zap.Logger
	now      func() time.Time
}

// NewService wires a payment service charging in currency through gw.
func NewService(store Store, gw gateway.Client, currency string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{store: store, gateway: gw, currency: currency, logger: logger, now: time.Now}
}

// CreateSale opens a sale with nothing paid.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput) (*models.Sale, error) {
	if in.OrderID != "" {
		order, err := s.store.GetOrder(ctx, in.OrderID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.NewNotFound("order", in.OrderID)
		}
		if err != nil {
			return nil, fmt.Errorf("get order: %w", err)
		}
		if !requestctx.Owns(ctx, order.TenantID) {
			return nil, apperror.NewNotFound("order", in.OrderID)
		}
		if in.ShopID == "" {
			in.ShopID = order.ShopID
		}
		if in.TotalAmount.IsZero() {
			in.TotalAmount = order.TotalAmount
		}
	}
	if in.ShopID == "" {
		return nil, apperror.NewValidation("shop_id is required")
	}
	if !in.TotalAmount.IsPositive() {
		return nil, apperror.NewValidation("total_amount must be greater than zero")
	}

	now := s.now().UTC()
	sale := models.Sale{
		ID:            id.New(),
		TenantID:      requestctx.Tenant(ctx),
		ShopID:        in.ShopID,
		OrderID:       in.OrderID,
		TotalAmount:   in.TotalAmount,
		PaidAmount:    decimal.Zero,
		PaymentStatus: models.PaymentPending,
		SaleDate:      now,
		CreatedBy:     requestctx.Actor(ctx),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.store.CreateSale(ctx, sale); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	return &sale, nil
}

// GetSale loads a sale.
func (s *Service) GetSale(ctx context.Context, saleID string) (*models.Sale, error) {
	sale, err := s.store.GetSale(ctx, saleID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	if err != nil {
		return nil, fmt.Errorf("get sale: %w", err)
	}
	if !requestctx.Owns(ctx, sale.TenantID) {
		return nil, apperror.NewNotFound("sale", saleID)
	}
	return sale, nil
}

// Balance derives total, paid and remaining amounts from the sale's payments.
func (s *Service) Balance(ctx context.Context, saleID string) (*models.SaleBalance, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	paid, err := s.paidSoFar(ctx, saleID)
	if err != nil {
		return nil, err
	}
	return &models.SaleBalance{
		SaleID:    sale.ID,
		Total:     sale.TotalAmount,
		Paid:      paid,
		Remaining: sale.TotalAmount.Sub(paid),
		Status:    models.DerivePaymentStatus(sale.TotalAmount, paid),
	}, nil
}

// RecordPayment adds a payment and recomputes the sale's paid amount and status.
// It fails with an overpayment error if the payment exceeds the remaining balance.
func (s *Service) RecordPayment(ctx context.Context, saleID string, in PaymentInput) (*models.Payment, error) {
	if !in.Amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be greater than zero")
	}
	if !in.Method.Valid() {
		return nil, apperror.NewValidation("unknown payment method").WithDetail("method", in.Method)
	}

	var payment models.Payment
	err := s.store.RunInTransaction(ctx, func(ctx context.Context) error {
		sale, err := s.GetSale(ctx, saleID)
		if err != nil {
			return err
		}
		paid, err := s.paidSoFar(ctx, saleID)
		if err != nil {
			return err
		}
		remaining := sale.TotalAmount.Sub(paid)
		if in.Amount.GreaterThan(remaining) {
			return apperror.NewOverpayment(sale.ID, in.Amount.StringFixed(2), remaining.StringFixed(2))
		}

		now := s.now().UTC()
		payment = models.Payment{
			ID:                   id.New(),
			TenantID:             sale.TenantID,
			SaleID:               sale.ID,
			Amount:               in.Amount,
			Method:               in.Method,
			GatewayTransactionID: in.GatewayTransactionID,
			PaidAt:               now,
			CreatedBy:            requestctx.Actor(ctx),
			CreatedAt:            now,
		}
		if err := s.store.CreatePayment(ctx, payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		sale.PaidAmount = paid.Add(in.Amount)
		sale.PaymentStatus = models.DerivePaymentStatus(sale.TotalAmount, sale.PaidAmount)
		sale.LastPaymentAt = &now
		sale.UpdatedAt = now
		if err := s.store.UpdateSale(ctx, *sale); err != nil {
			return fmt.Errorf("update sale: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment recorded",
		zap.String("sale_id", saleID),
		zap.String("payment_id", payment.ID),
		zap.String("amount", payment.Amount.StringFixed(2)),
		zap.String("method", string(payment.Method)))
	return &payment, nil
}

// ProcessGatewayPayment charges the card gateway and records the payment with
// the gateway transaction id. Gateway failures abort the operation.
func (s *Service) ProcessGatewayPayment(ctx context.Context, saleID string, amount decimal.Decimal, description string) (*models.Payment, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be greater than zero")
	}
	if _, err := s.checkRemaining(ctx, saleID, amount); err != nil {
		return nil, err
	}
	if description == "" {
		description = fmt.Sprintf("Sale %s", saleID)
	}

	res, err := s.gateway.ProcessPayment(ctx, amount, s.currency, description)
	if err != nil {
		return nil, apperror.NewGateway("payment gateway request failed", err)
	}
	if !res.Success {
		return nil, apperror.NewGateway(declineMessage(res), nil).WithDetail("status", res.Status)
	}

	payment, err := s.RecordPayment(ctx, saleID, PaymentInput{
		Amount:               amount,
		Method:               models.MethodCard,
		GatewayTransactionID: res.TransactionID,
	})
	if err != nil {
		s.logger.Error("charged payment could not be recorded",
			zap.String("sale_id", saleID),
			zap.String("transaction_id", res.TransactionID),
			zap.Error(err))
		return nil, err
	}
	return payment, nil
}

// CreatePaymentIntent asks the gateway to reserve amount for the sale.
func (s *Service) CreatePaymentIntent(ctx context.Context, saleID string, amount decimal.Decimal) (*gateway.Intent, error) {
	if !amount.IsPositive() {
		return nil, apperror.NewValidation("amount must be greater than zero")
	}
	if _, err := s.checkRemaining(ctx, saleID, amount); err != nil {
		return nil, err
	}

	intent, err := s.gateway.CreateIntent(ctx, amount, s.currency, fmt.Sprintf("Sale %s", saleID), map[string]string{"sale_id": saleID})
	if err != nil {
		return nil, apperror.NewGateway("payment intent could not be created", err)
	}

	s.logger.Info("payment intent created", zap.String("sale_id", saleID), zap.String("intent_id", intent.ID))
	return intent, nil
}

// ConfirmPayment confirms an intent and settles whatever balance is left on the
// sale at confirmation time.
func (s *Service) ConfirmPayment(ctx context.Context, saleID, intentID string) (*models.Payment, error) {
	if intentID == "" {
		return nil, apperror.NewValidation("intent_id is required")
	}
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	paid, err := s.paidSoFar(ctx, saleID)
	if err != nil {
		return nil, err
	}
	remaining := sale.TotalAmount.Sub(paid)
	if !remaining.IsPositive() {
		return nil, apperror.NewConflict("sale is already paid").WithDetail("sale_id", saleID)
	}

	res, err := s.gateway.ConfirmIntent(ctx, intentID)
	if err != nil {
		return nil, apperror.NewGateway("payment confirmation failed", err)
	}
	if !res.Success {
		return nil, apperror.NewGateway(declineMessage(res), nil).WithDetail("status", res.Status)
	}

	if !res.Amount.Equal(remaining) {
		s.logger.Warn("confirmed intent amount differs from settled balance",
			zap.String("sale_id", saleID),
			zap.String("intent_id", intentID),
			zap.String("intent_amount", res.Amount.StringFixed(2)),
			zap.String("settled", remaining.StringFixed(2)))
	}

	return s.RecordPayment(ctx, saleID, PaymentInput{
		Amount:               remaining,
		Method:               models.MethodCard,
		GatewayTransactionID: res.TransactionID,
	})
}

func (s *Service) checkRemaining(ctx context.Context, saleID string, amount decimal.Decimal) (decimal.Decimal, error) {
	sale, err := s.GetSale(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	paid, err := s.paidSoFar(ctx, saleID)
	if err != nil {
		return decimal.Zero, err
	}
	remaining := sale.TotalAmount.Sub(paid)
	if amount.GreaterThan(remaining) {
		return remaining, apperror.NewOverpayment(sale.ID, amount.StringFixed(2), remaining.StringFixed(2))
	}
	return remaining, nil
}

func (s *Service) paidSoFar(ctx context.Context, saleID string) (decimal.Decimal, error) {
	payments, err := s.store.ListPaymentsBySale(ctx, saleID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list payments: %w", err)
	}
	return models.SumPayments(payments), nil
}

func declineMessage(res *gateway.ChargeResult) string {
	if res.FailureReason != "" {
		return res.FailureReason
	}
	return "payment was declined"
}
