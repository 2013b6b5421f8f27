package payment

import (
	"math"
	"time"

	errors "github.com/roamstay/payment-service/internal"
	"github.com/roamstay/payment-service/internal/core/common/validation"
	"github.com/roamstay/payment-service/internal/core/datamodel/order"
)

// DefaultCurrency applies when the caller omits the currency field.
const DefaultCurrency = "INR"

// CreateOrderRequest is the caller-facing payload for order issuance.
// Amount is in the major currency unit (rupees, not paise).
type CreateOrderRequest struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency,omitempty"`
	Receipt  string  `json:"receipt"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("amount", r.Amount).Required().PositiveAmount(errors.ErrCodeInvalidAmount)
	validator.Field("receipt", r.Receipt).Required().MaxLength(64)
	validator.Field("currency", r.Currency).ExactLength(3, errors.ErrCodeInvalidCurrency)

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// NormalizedCurrency returns the requested currency or the default.
func (r *CreateOrderRequest) NormalizedCurrency() string {
	if r.Currency == "" {
		return DefaultCurrency
	}
	return r.Currency
}

// AmountMinor converts the major-unit amount into the gateway's integer
// minor-unit representation, assuming a two-decimal-digit currency.
func (r *CreateOrderRequest) AmountMinor() int64 {
	return int64(math.Round(r.Amount * 100))
}

// VerifyRequest carries the transaction identifiers and signature the
// client reports back after completing the gateway's checkout flow.
type VerifyRequest struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

func (r *VerifyRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("order_id", r.OrderID).Required()
	validator.Field("payment_id", r.PaymentID).Required()
	validator.Field("signature", r.Signature).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type VerifyResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// CreateOrderErrorResponse is the failure body for order issuance. The
// error detail is diagnostic and sanitized; it never carries the key
// secret.
type CreateOrderErrorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// OrderStatusResponse exposes a ledger entry without its raw gateway
// payload.
type OrderStatusResponse struct {
	GatewayOrderID string     `json:"gateway_order_id"`
	Receipt        string     `json:"receipt"`
	AmountMinor    int64      `json:"amount_minor"`
	Currency       string     `json:"currency"`
	Status         string     `json:"status"`
	PaymentID      *string    `json:"payment_id,omitempty"`
	VerifiedAt     *time.Time `json:"verified_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

func NewOrderStatusResponse(o *order.PaymentOrder) *OrderStatusResponse {
	return &OrderStatusResponse{
		GatewayOrderID: o.GatewayOrderID,
		Receipt:        o.Receipt,
		AmountMinor:    o.AmountMinor,
		Currency:       o.Currency,
		Status:         o.Status,
		PaymentID:      o.PaymentID,
		VerifiedAt:     o.VerifiedAt,
		CreatedAt:      o.CreatedAt,
	}
}
