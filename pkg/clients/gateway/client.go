// Package gateway is a client for a Stripe-compatible payment intents API.
package gateway

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/mamadbah2/supplychain/internal/config"
)

const statusSucceeded = "succeeded"

// ChargeResult is the outcome of a charge or an intent confirmation.
type ChargeResult struct {
	Success       bool
	TransactionID string
	Status        string
	Amount        decimal.Decimal
	FailureReason string
}

// Intent is a reserved, not yet captured, payment.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
	Amount       decimal.Decimal
}

// Client exposes the gateway operations used by the payments service.
type Client interface {
	ProcessPayment(ctx context.Context, amount decimal.Decimal, currency, description string) (*ChargeResult, error)
	CreateIntent(ctx context.Context, amount decimal.Decimal, currency, description string, metadata map[string]string) (*Intent, error)
	ConfirmIntent(ctx context.Context, intentID string) (*ChargeResult, error)
}

// APIClient is a resty-backed implementation of Client.
type APIClient struct {
	httpClient *resty.Client
}

// NewClient builds a gateway client from configuration.
func NewClient(cfg config.GatewayConfig) *APIClient {
	restyClient := resty.New().
		SetBaseURL(strings.TrimSuffix(cfg.BaseURL, "/")).
		SetBasicAuth(cfg.SecretKey, "").
		SetTimeout(cfg.Timeout)

	return &APIClient{httpClient: restyClient}
}

type intentResponse struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	Amount           int64  `json:"amount"`
	ClientSecret     string `json:"client_secret"`
	LatestCharge     string `json:"latest_charge"`
	LastPaymentError *struct {
		Message string `json:"message"`
	} `json:"last_payment_error"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    string `json:"code"`
	} `json:"error"`
}

// ProcessPayment creates and confirms an intent in one call.
func (c *APIClient) ProcessPayment(ctx context.Context, amount decimal.Decimal, currency, description string) (*ChargeResult, error) {
	form := intentForm(amount, currency, description, nil)
	form["confirm"] = "true"

	resp, err := c.post(ctx, "/v1/payment_intents", form)
	if err != nil {
		return nil, err
	}
	return chargeResult(resp), nil
}

// CreateIntent reserves funds without capturing them.
func (c *APIClient) CreateIntent(ctx context.Context, amount decimal.Decimal, currency, description string, metadata map[string]string) (*Intent, error) {
	resp, err := c.post(ctx, "/v1/payment_intents", intentForm(amount, currency, description, metadata))
	if err != nil {
		return nil, err
	}
	return &Intent{
		ID:           resp.ID,
		ClientSecret: resp.ClientSecret,
		Status:       resp.Status,
		Amount:       fromMinorUnits(resp.Amount),
	}, nil
}

// ConfirmIntent captures a previously created intent.
func (c *APIClient) ConfirmIntent(ctx context.Context, intentID string) (*ChargeResult, error) {
	if intentID == "" {
		return nil, fmt.Errorf("intent id must not be empty")
	}
	resp, err := c.post(ctx, fmt.Sprintf("/v1/payment_intents/%s/confirm", intentID), map[string]string{})
	if err != nil {
		return nil, err
	}
	return chargeResult(resp), nil
}

func (c *APIClient) post(ctx context.Context, path string, form map[string]string) (*intentResponse, error) {
	result := new(intentResponse)
	apiErr := new(apiError)

	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetFormData(form).
		SetResult(result).
		SetError(apiErr).
		Post(path)
	if err != nil {
		return nil, fmt.Errorf("payment gateway request %s: %w", path, err)
	}

	if resp.StatusCode() >= http.StatusBadRequest {
		return nil, fmt.Errorf("payment gateway error: status=%d, code=%s, message=%s", resp.StatusCode(), apiErr.Error.Code, apiErr.Error.Message)
	}

	return result, nil
}

func intentForm(amount decimal.Decimal, currency, description string, metadata map[string]string) map[string]string {
	form := map[string]string{
		"amount":      strconv.FormatInt(toMinorUnits(amount), 10),
		"currency":    strings.ToLower(currency),
		"description": description,
	}
	for k, v := range metadata {
		form[fmt.Sprintf("metadata[%s]", k)] = v
	}
	return form
}

func chargeResult(resp *intentResponse) *ChargeResult {
	res := &ChargeResult{
		Success:       resp.Status == statusSucceeded,
		TransactionID: resp.LatestCharge,
		Status:        resp.Status,
		Amount:        fromMinorUnits(resp.Amount),
	}
	if res.TransactionID == "" {
		res.TransactionID = resp.ID
	}
	if resp.LastPaymentError != nil {
		res.FailureReason = resp.LastPaymentError.Message
	}
	return res
}

func toMinorUnits(amount decimal.Decimal) int64 {
	return amount.Shift(2).Round(0).IntPart()
}

func fromMinorUnits(amount int64) decimal.Decimal {
	return decimal.New(amount, -2)
}
