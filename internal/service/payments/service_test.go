package payments

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mamadbah2/supplychain/internal/apperror"
	"github.com/mamadbah2/supplychain/internal/domain/models"
	"github.com/mamadbah2/supplychain/internal/repository/memory"
	"github.com/mamadbah2/supplychain/internal/requestctx"
	"github.com/mamadbah2/supplychain/pkg/clients/gateway"
)

type fakeGateway struct {
	charge      *gateway.ChargeResult
	chargeErr   error
	charged     []decimal.Decimal
	intent      *gateway.Intent
	confirm     *gateway.ChargeResult
	confirmedID string
}

func (f *fakeGateway) ProcessPayment(_ context.Context, amount decimal.Decimal, _, _ string) (*gateway.ChargeResult, error) {
	f.charged = append(f.charged, amount)
	if f.chargeErr != nil {
		return nil, f.chargeErr
	}
	return f.charge, nil
}

func (f *fakeGateway) CreateIntent(_ context.Context, amount decimal.Decimal, _, _ string, _ map[string]string) (*gateway.Intent, error) {
	f.intent = &gateway.Intent{ID: "pi_1", ClientSecret: "secret", Amount: amount, Status: "requires_confirmation"}
	return f.intent, nil
}

func (f *fakeGateway) ConfirmIntent(_ context.Context, intentID string) (*gateway.ChargeResult, error) {
	f.confirmedID = intentID
	return f.confirm, nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newService(t *testing.T, gw gateway.Client) (*Service, *memory.Store, *models.Sale) {
	t.Helper()
	store := memory.New()
	svc := NewService(store, gw, "usd", nil)
	sale, err := svc.CreateSale(context.Background(), CreateSaleInput{ShopID: "s1", TotalAmount: dec("100.00")})
	require.NoError(t, err)
	return svc, store, sale
}

func TestPaymentsNeverExceedSaleTotal(t *testing.T) {
	svc, store, sale := newService(t, &fakeGateway{})
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("60.00"), Method: models.MethodCash})
	require.NoError(t, err)
	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, got.PaymentStatus)

	_, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("41.00"), Method: models.MethodCash})
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeOverpayment))

	got, err = svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, got.PaymentStatus)
	rows, err := store.ListPaymentsBySale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	_, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("40.00"), Method: models.MethodMobileMoney})
	require.NoError(t, err)
	got, err = svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)
	assert.True(t, got.PaidAmount.Equal(dec("100")))
	assert.NotNil(t, got.LastPaymentAt)

	balance, err := svc.Balance(ctx, sale.ID)
	require.NoError(t, err)
	assert.True(t, balance.Remaining.IsZero())
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, sale := newService(t, &fakeGateway{})
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("0"), Method: models.MethodCash})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("1"), Method: "Barter"})
	assert.True(t, apperror.IsCode(err, apperror.CodeValidation))

	_, err = svc.RecordPayment(ctx, "ghost", PaymentInput{Amount: dec("1"), Method: models.MethodCash})
	assert.True(t, apperror.IsNotFound(err))
}

func TestCreateSaleFromOrder(t *testing.T) {
	store := memory.New()
	svc := NewService(store, &fakeGateway{}, "usd", nil)
	ctx := context.Background()
	require.NoError(t, store.CreateOrder(ctx, models.Order{ID: "o1", ShopID: "s9", TotalAmount: dec("42.50")}))

	sale, err := svc.CreateSale(ctx, CreateSaleInput{OrderID: "o1"})
	require.NoError(t, err)
	assert.Equal(t, "s9", sale.ShopID)
	assert.True(t, sale.TotalAmount.Equal(dec("42.50")))
	assert.Equal(t, models.PaymentPending, sale.PaymentStatus)
}

func TestGatewayPaymentRecordsTransaction(t *testing.T) {
	gw := &fakeGateway{charge: &gateway.ChargeResult{Success: true, TransactionID: "ch_1", Amount: dec("30")}}
	svc, _, sale := newService(t, gw)

	payment, err := svc.ProcessGatewayPayment(context.Background(), sale.ID, dec("30"), "")
	require.NoError(t, err)
	assert.Equal(t, "ch_1", payment.GatewayTransactionID)
	assert.Equal(t, models.MethodCard, payment.Method)
}

func TestGatewayFailureAbortsPayment(t *testing.T) {
	gw := &fakeGateway{chargeErr: errors.New("connection reset")}
	svc, store, sale := newService(t, gw)
	ctx := context.Background()

	_, err := svc.ProcessGatewayPayment(ctx, sale.ID, dec("30"), "")
	assert.True(t, apperror.IsCode(err, apperror.CodeGateway))

	gw.chargeErr = nil
	gw.charge = &gateway.ChargeResult{Success: false, FailureReason: "card declined"}
	_, err = svc.ProcessGatewayPayment(ctx, sale.ID, dec("30"), "")
	require.Error(t, err)
	assert.True(t, apperror.IsCode(err, apperror.CodeGateway))
	assert.Contains(t, err.Error(), "card declined")

	rows, err := store.ListPaymentsBySale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestGatewayPaymentChecksBalanceBeforeCharging(t *testing.T) {
	gw := &fakeGateway{charge: &gateway.ChargeResult{Success: true}}
	svc, _, sale := newService(t, gw)

	_, err := svc.ProcessGatewayPayment(context.Background(), sale.ID, dec("100.01"), "")
	assert.True(t, apperror.IsCode(err, apperror.CodeOverpayment))
	assert.Empty(t, gw.charged)
}

func TestIntentValidatesRemainingBalance(t *testing.T) {
	gw := &fakeGateway{}
	svc, _, sale := newService(t, gw)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("80"), Method: models.MethodCash})
	require.NoError(t, err)

	_, err = svc.CreatePaymentIntent(ctx, sale.ID, dec("25"))
	assert.True(t, apperror.IsCode(err, apperror.CodeOverpayment))

	intent, err := svc.CreatePaymentIntent(ctx, sale.ID, dec("15"))
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
}

func TestConfirmSettlesFullRemainingBalance(t *testing.T) {
	gw := &fakeGateway{confirm: &gateway.ChargeResult{Success: true, TransactionID: "ch_9", Amount: dec("15")}}
	svc, _, sale := newService(t, gw)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, sale.ID, PaymentInput{Amount: dec("80"), Method: models.MethodCash})
	require.NoError(t, err)
	intent, err := svc.CreatePaymentIntent(ctx, sale.ID, dec("15"))
	require.NoError(t, err)

	payment, err := svc.ConfirmPayment(ctx, sale.ID, intent.ID)
	require.NoError(t, err)
	assert.Equal(t, "pi_1", gw.confirmedID)
	assert.True(t, payment.Amount.Equal(dec("20")))

	got, err := svc.GetSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, got.PaymentStatus)

	_, err = svc.ConfirmPayment(ctx, sale.ID, intent.ID)
	assert.True(t, apperror.IsCode(err, apperror.CodeConflict))
}

func TestOtherTenantCannotReachSale(t *testing.T) {
	svc, store, sale := newService(t, &fakeGateway{})
	evil := requestctx.WithTenant(context.Background(), "evil")

	_, err := svc.GetSale(evil, sale.ID)
	assert.True(t, apperror.IsNotFound(err))

	_, err = svc.RecordPayment(evil, sale.ID, PaymentInput{Amount: dec("60"), Method: models.MethodCash})
	assert.True(t, apperror.IsNotFound(err))

	payments, err := store.ListPaymentsBySale(context.Background(), sale.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)
}
