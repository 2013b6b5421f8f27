package postgres

import (
	"time"

	"github.com/roamstay/payment-service/internal/core/datamodel/order"
	paymentpkg "github.com/roamstay/payment-service/internal/payment"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) Create(o *order.PaymentOrder) error {
	return r.db.Create(o).Error
}

func (r *OrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*order.PaymentOrder, error) {
	var o order.PaymentOrder
	err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&o).Error
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepository) MarkVerified(id int64, paymentID string) error {
	now := time.Now()
	return r.db.Model(&order.PaymentOrder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":      order.StatusVerified,
		"payment_id":  paymentID,
		"verified_at": now,
		"updated_at":  now,
	}).Error
}

func (r *OrderRepository) MarkVerificationFailed(id int64, reason string) error {
	return r.db.Model(&order.PaymentOrder{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":         order.StatusVerificationFailed,
		"failure_reason": reason,
		"updated_at":     time.Now(),
	}).Error
}
