package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeOrderCreated       = "order.created"
	EventTypePaymentVerified    = "payment.verified"
	EventTypeVerificationFailed = "payment.verification_failed"
)

type OrderCreatedEvent struct {
	BaseEvent
	GatewayOrderID string `json:"gateway_order_id"`
	Receipt        string `json:"receipt"`
	AmountMinor    int64  `json:"amount_minor"`
	Currency       string `json:"currency"`
}

func NewOrderCreatedEvent(gatewayOrderID, receipt string, amountMinor int64, currency string) *OrderCreatedEvent {
	return &OrderCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"gateway_order_id": gatewayOrderID,
				"receipt":          receipt,
				"amount_minor":     amountMinor,
				"currency":         currency,
			},
		},
		GatewayOrderID: gatewayOrderID,
		Receipt:        receipt,
		AmountMinor:    amountMinor,
		Currency:       currency,
	}
}

type PaymentVerifiedEvent struct {
	BaseEvent
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
}

func NewPaymentVerifiedEvent(gatewayOrderID, paymentID string) *PaymentVerifiedEvent {
	return &PaymentVerifiedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentVerified,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"gateway_order_id": gatewayOrderID,
				"payment_id":       paymentID,
			},
		},
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
	}
}

type VerificationFailedEvent struct {
	BaseEvent
	GatewayOrderID string `json:"gateway_order_id"`
	PaymentID      string `json:"payment_id"`
	Reason         string `json:"reason"`
}

func NewVerificationFailedEvent(gatewayOrderID, paymentID, reason string) *VerificationFailedEvent {
	return &VerificationFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeVerificationFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"gateway_order_id": gatewayOrderID,
				"payment_id":       paymentID,
				"reason":           reason,
			},
		},
		GatewayOrderID: gatewayOrderID,
		PaymentID:      paymentID,
		Reason:         reason,
	}
}
