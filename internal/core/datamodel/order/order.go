package order

import (
	"encoding/json"
	"time"
)

const (
	StatusCreated            = "created"
	StatusVerified           = "verified"
	StatusVerificationFailed = "verification_failed"
)

// PaymentOrder is the local ledger entry for a gateway order. It exists
// so a signature that already verified an order cannot be replayed to
// verify it a second time.
type PaymentOrder struct {
	ID              int64           `gorm:"primaryKey"`
	GatewayOrderID  string          `gorm:"column:gateway_order_id;not null;uniqueIndex"`
	Receipt         string          `gorm:"column:receipt;not null"`
	AmountMinor     int64           `gorm:"column:amount_minor;not null"`
	Currency        string          `gorm:"column:currency;not null"`
	Status          string          `gorm:"column:status;default:created"`
	PaymentID       *string         `gorm:"column:payment_id"`
	GatewayResponse json.RawMessage `gorm:"column:gateway_response;type:jsonb"`
	FailureReason   *string         `gorm:"column:failure_reason"`
	VerifiedAt      *time.Time      `gorm:"column:verified_at"`
	CreatedAt       time.Time       `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;default:now()"`
}

func (PaymentOrder) TableName() string {
	return "payment_orders"
}
