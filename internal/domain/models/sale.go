package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is derived from the payments recorded against a sale.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "Pending"
	PaymentPartial PaymentStatus = "Partial"
	PaymentPaid    PaymentStatus = "Paid"
)

// PaymentMethod is how a payment was settled.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Cash"
	MethodBankTransfer PaymentMethod = "BankTransfer"
	MethodMobileMoney  PaymentMethod = "MobileMoney"
	MethodCard         PaymentMethod = "Card"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodMobileMoney, MethodCard:
		return true
	}
	return false
}

// Sale is a billed transaction. PaidAmount and PaymentStatus are recomputed from
// the sale's payments every time one is recorded.
type Sale struct {
	ID            string          `bson:"_id" json:"id"`
	TenantID      string          `bson:"tenant_id" json:"tenant_id"`
	ShopID        string          `bson:"shop_id" json:"shop_id"`
	OrderID       string          `bson:"order_id,omitempty" json:"order_id,omitempty"`
	TotalAmount   decimal.Decimal `bson:"total_amount" json:"total_amount"`
	PaidAmount    decimal.Decimal `bson:"paid_amount" json:"paid_amount"`
	PaymentStatus PaymentStatus   `bson:"payment_status" json:"payment_status"`
	SaleDate      time.Time       `bson:"sale_date" json:"sale_date"`
	LastPaymentAt *time.Time      `bson:"last_payment_at,omitempty" json:"last_payment_at,omitempty"`
	CreatedBy     string          `bson:"created_by" json:"created_by"`
	CreatedAt     time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `bson:"updated_at" json:"updated_at"`
}

// Remaining returns the unpaid balance.
func (s Sale) Remaining() decimal.Decimal {
	return s.TotalAmount.Sub(s.PaidAmount)
}

// Payment is one incremental settlement of a sale.
type Payment struct {
	ID                   string          `bson:"_id" json:"id"`
	TenantID             string          `bson:"tenant_id" json:"tenant_id"`
	SaleID               string          `bson:"sale_id" json:"sale_id"`
	Amount               decimal.Decimal `bson:"amount" json:"amount"`
	Method               PaymentMethod   `bson:"method" json:"method"`
	GatewayTransactionID string          `bson:"gateway_transaction_id,omitempty" json:"gateway_transaction_id,omitempty"`
	PaidAt               time.Time       `bson:"paid_at" json:"paid_at"`
	CreatedBy            string          `bson:"created_by" json:"created_by"`
	CreatedAt            time.Time       `bson:"created_at" json:"created_at"`
}

// SumPayments adds up payment amounts.
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// DerivePaymentStatus maps a paid amount against a total to a status.
func DerivePaymentStatus(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// SaleBalance is the read model returned for balance queries.
type SaleBalance struct {
	SaleID    string          `json:"sale_id"`
	Total     decimal.Decimal `json:"total"`
	Paid      decimal.Decimal `json:"paid"`
	Remaining decimal.Decimal `json:"remaining"`
	Status    PaymentStatus   `json:"status"`
}
