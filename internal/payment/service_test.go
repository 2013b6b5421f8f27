package payment_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	apperrors "github.com/roamstay/payment-service/internal"
	"github.com/roamstay/payment-service/internal/core/datamodel/order"
	"github.com/roamstay/payment-service/internal/core/events"
	"github.com/roamstay/payment-service/internal/gateway"
	paymentPkg "github.com/roamstay/payment-service/internal/payment"
)

// Mock repository for testing
type mockOrderRepository struct {
	orders      map[string]*order.PaymentOrder
	createError error
	markError   error
}

func newMockOrderRepository() *mockOrderRepository {
	return &mockOrderRepository{
		orders: make(map[string]*order.PaymentOrder),
	}
}

func (m *mockOrderRepository) Create(o *order.PaymentOrder) error {
	if m.createError != nil {
		return m.createError
	}
	o.ID = int64(len(m.orders) + 1)
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	m.orders[o.GatewayOrderID] = o
	return nil
}

func (m *mockOrderRepository) GetByGatewayOrderID(gatewayOrderID string) (*order.PaymentOrder, error) {
	o, exists := m.orders[gatewayOrderID]
	if !exists {
		return nil, errors.New("order not found")
	}
	return o, nil
}

func (m *mockOrderRepository) MarkVerified(id int64, paymentID string) error {
	if m.markError != nil {
		return m.markError
	}
	for _, o := range m.orders {
		if o.ID == id {
			now := time.Now()
			o.Status = order.StatusVerified
			o.PaymentID = &paymentID
			o.VerifiedAt = &now
			break
		}
	}
	return nil
}

func (m *mockOrderRepository) MarkVerificationFailed(id int64, reason string) error {
	if m.markError != nil {
		return m.markError
	}
	for _, o := range m.orders {
		if o.ID == id {
			o.Status = order.StatusVerificationFailed
			o.FailureReason = &reason
			break
		}
	}
	return nil
}

// Mock gateway for testing
type mockGateway struct {
	secret         string
	createErr      error
	lastParams     gateway.OrderParams
	nextDescriptor *gateway.OrderDescriptor
}

func (m *mockGateway) CreateOrder(ctx context.Context, params gateway.OrderParams) (*gateway.OrderDescriptor, error) {
	m.lastParams = params
	if m.createErr != nil {
		return nil, m.createErr
	}
	if m.nextDescriptor != nil {
		return m.nextDescriptor, nil
	}

	descriptor := &gateway.OrderDescriptor{
		ID:          "order_abc",
		AmountMinor: params.AmountMinor,
		Currency:    params.Currency,
		Receipt:     params.Receipt,
		Status:      "created",
	}
	raw, _ := json.Marshal(map[string]interface{}{
		"id":       descriptor.ID,
		"entity":   "order",
		"amount":   params.AmountMinor,
		"currency": params.Currency,
		"receipt":  params.Receipt,
		"status":   "created",
	})
	descriptor.Raw = raw
	return descriptor, nil
}

func (m *mockGateway) KeySecret() string {
	return m.secret
}

var _ = Describe("Service", func() {
	var (
		service  *paymentPkg.Service
		mockRepo *mockOrderRepository
		mockGw   *mockGateway
		log      *slog.Logger
	)

	BeforeEach(func() {
		mockRepo = newMockOrderRepository()
		mockGw = &mockGateway{secret: "testsecret"}
		log = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		service = paymentPkg.NewService(mockGw, mockRepo, events.NewEventBus(log), log)
	})

	Describe("CreateOrder", func() {
		Context("when the request is valid", func() {
			It("should convert the amount to minor units", func() {
				// Given
				req := &paymentPkg.CreateOrderRequest{
					Amount:   500,
					Currency: "INR",
					Receipt:  "receipt_listing_42",
				}

				// When
				descriptor, err := service.CreateOrder(context.Background(), req)

				// Then
				Expect(err).ToNot(HaveOccurred())
				Expect(descriptor).ToNot(BeNil())
				Expect(mockGw.lastParams.AmountMinor).To(Equal(int64(50000)))
				Expect(mockGw.lastParams.Currency).To(Equal("INR"))
				Expect(mockGw.lastParams.Receipt).To(Equal("receipt_listing_42"))
			})

			It("should round fractional minor units", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount:  499.995,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
				Expect(mockGw.lastParams.AmountMinor).To(Equal(int64(50000)))
			})

			It("should default the currency to INR", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
				Expect(mockGw.lastParams.Currency).To(Equal("INR"))
			})

			It("should record the order in the ledger", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_listing_42",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
				record, err := mockRepo.GetByGatewayOrderID("order_abc")
				Expect(err).ToNot(HaveOccurred())
				Expect(record.Status).To(Equal(order.StatusCreated))
				Expect(record.AmountMinor).To(Equal(int64(50000)))
				Expect(record.Receipt).To(Equal("receipt_listing_42"))
			})

			It("should still return the descriptor when the ledger write fails", func() {
				mockRepo.createError = errors.New("database error")
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_1",
				}

				descriptor, err := service.CreateOrder(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
				Expect(descriptor.ID).To(Equal("order_abc"))
			})
		})

		Context("when the request is invalid", func() {
			It("should reject a zero amount without calling the gateway", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount:  0,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
				Expect(mockGw.lastParams.Receipt).To(BeEmpty())
			})

			It("should reject a negative amount", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount:  -10,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, _ := apperrors.IsAppError(err)
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})

			It("should reject a missing receipt", func() {
				req := &paymentPkg.CreateOrderRequest{
					Amount: 500,
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, _ := apperrors.IsAppError(err)
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})
		})

		Context("when the gateway fails", func() {
			It("should map a timeout to a retryable external error", func() {
				mockGw.createErr = fmt.Errorf("%w: /v1/orders", gateway.ErrTimeout)
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeGatewayTimeout))
				Expect(appErr.Retryable).To(BeTrue())
			})

			It("should not persist anything on timeout", func() {
				mockGw.createErr = fmt.Errorf("%w: /v1/orders", gateway.ErrTimeout)
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				Expect(mockRepo.orders).To(BeEmpty())
			})

			It("should map a rejection to a non-retryable external error", func() {
				mockGw.createErr = errors.New("gateway returned status 400: Receipt is not unique")
				req := &paymentPkg.CreateOrderRequest{
					Amount:  500,
					Receipt: "receipt_1",
				}

				_, err := service.CreateOrder(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Code).To(Equal(apperrors.ErrCodeOrderCreateFailed))
				Expect(appErr.Retryable).To(BeFalse())
			})
		})
	})

	Describe("VerifyPayment", func() {
		validSignature := func(orderID, paymentID string) string {
			return gateway.Sign("testsecret", orderID, paymentID)
		}

		Context("when the signature matches", func() {
			It("should succeed", func() {
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: validSignature("order_abc", "pay_xyz"),
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
			})

			It("should mark a ledger entry verified", func() {
				mockRepo.orders["order_abc"] = &order.PaymentOrder{
					ID:             1,
					GatewayOrderID: "order_abc",
					Status:         order.StatusCreated,
				}
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: validSignature("order_abc", "pay_xyz"),
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).ToNot(HaveOccurred())
				record := mockRepo.orders["order_abc"]
				Expect(record.Status).To(Equal(order.StatusVerified))
				Expect(record.PaymentID).ToNot(BeNil())
				Expect(*record.PaymentID).To(Equal("pay_xyz"))
				Expect(record.VerifiedAt).ToNot(BeNil())
			})

			It("should reject a replay of an already-verified order", func() {
				paymentID := "pay_xyz"
				now := time.Now()
				mockRepo.orders["order_abc"] = &order.PaymentOrder{
					ID:             1,
					GatewayOrderID: "order_abc",
					Status:         order.StatusVerified,
					PaymentID:      &paymentID,
					VerifiedAt:     &now,
				}
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: validSignature("order_abc", "pay_xyz"),
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).To(MatchError(apperrors.ErrAlreadyVerified))
			})
		})

		Context("when the signature does not match", func() {
			It("should return a signature mismatch", func() {
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: "deadbeef",
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).To(MatchError(apperrors.ErrSignatureMismatch))
			})

			It("should record the failure on the ledger entry", func() {
				mockRepo.orders["order_abc"] = &order.PaymentOrder{
					ID:             1,
					GatewayOrderID: "order_abc",
					Status:         order.StatusCreated,
				}
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: "deadbeef",
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).To(HaveOccurred())
				Expect(mockRepo.orders["order_abc"].Status).To(Equal(order.StatusVerificationFailed))
			})

			It("should reject a signature for different identifiers", func() {
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
					Signature: validSignature("order_abc", "pay_other"),
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).To(MatchError(apperrors.ErrSignatureMismatch))
			})
		})

		Context("when a field is missing", func() {
			It("should fail validation before computing the signature", func() {
				req := &paymentPkg.VerifyRequest{
					OrderID:   "order_abc",
					PaymentID: "pay_xyz",
				}

				err := service.VerifyPayment(context.Background(), req)

				Expect(err).To(HaveOccurred())
				appErr, ok := apperrors.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(apperrors.ErrorTypeValidation))
			})
		})
	})

	Describe("GetOrder", func() {
		It("should return the ledger entry", func() {
			mockRepo.orders["order_abc"] = &order.PaymentOrder{
				ID:             1,
				GatewayOrderID: "order_abc",
				Receipt:        "receipt_listing_42",
				Status:         order.StatusCreated,
			}

			record, err := service.GetOrder("order_abc")

			Expect(err).ToNot(HaveOccurred())
			Expect(record.Receipt).To(Equal("receipt_listing_42"))
		})

		It("should return a not-found error for an unknown order", func() {
			_, err := service.GetOrder("order_missing")

			Expect(err).To(HaveOccurred())
			appErr, ok := apperrors.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(apperrors.ErrCodeOrderNotFound))
		})
	})
})
