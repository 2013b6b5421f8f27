package payment

import (
	"context"
	"errors"
	"log/slog"

	apperrors "github.com/roamstay/payment-service/internal"
	"github.com/roamstay/payment-service/internal/core/datamodel/order"
	"github.com/roamstay/payment-service/internal/core/events"
	"github.com/roamstay/payment-service/internal/gateway"
)

// RepositoryAPI is the verification ledger. Orders are recorded at
// issuance and transitioned exactly once to verified.
type RepositoryAPI interface {
	Create(o *order.PaymentOrder) error
	GetByGatewayOrderID(gatewayOrderID string) (*order.PaymentOrder, error)
	MarkVerified(id int64, paymentID string) error
	MarkVerificationFailed(id int64, reason string) error
}

// GatewayAPI is implemented by gateway.Client.
type GatewayAPI interface {
	CreateOrder(ctx context.Context, params gateway.OrderParams) (*gateway.OrderDescriptor, error)
	KeySecret() string
}

type Service struct {
	gateway  GatewayAPI
	repo     RepositoryAPI
	eventBus *events.EventBus
	logger   *slog.Logger
}

func NewService(gw GatewayAPI, repo RepositoryAPI, eventBus *events.EventBus, logger *slog.Logger) *Service {
	return &Service{
		gateway:  gw,
		repo:     repo,
		eventBus: eventBus,
		logger:   logger,
	}
}

// CreateOrder validates the request, registers the order with the
// gateway and records it in the local ledger. The returned descriptor is
// the gateway's response, relayed to the caller unchanged.
func (s *Service) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*gateway.OrderDescriptor, error) {
	if err := req.Validate(); err != nil {
		s.logger.Warn("order request validation failed", "error", err)
		return nil, err
	}

	params := gateway.OrderParams{
		AmountMinor: req.AmountMinor(),
		Currency:    req.NormalizedCurrency(),
		Receipt:     req.Receipt,
	}

	descriptor, err := s.gateway.CreateOrder(ctx, params)
	if err != nil {
		if errors.Is(err, gateway.ErrTimeout) {
			s.logger.Error("gateway timed out creating order", "receipt", params.Receipt, "error", err)
			return nil, apperrors.NewGatewayTimeoutError(err)
		}
		s.logger.Error("gateway failed to create order", "receipt", params.Receipt, "error", err)
		return nil, apperrors.NewExternalError("order creation failed at gateway", apperrors.ErrCodeOrderCreateFailed, err)
	}

	record := &order.PaymentOrder{
		GatewayOrderID:  descriptor.ID,
		Receipt:         params.Receipt,
		AmountMinor:     params.AmountMinor,
		Currency:        params.Currency,
		Status:          order.StatusCreated,
		GatewayResponse: descriptor.Raw,
	}

	// The order already exists at the gateway, so a ledger write failure
	// degrades replay protection rather than failing the request.
	if err := s.repo.Create(record); err != nil {
		s.logger.Error("failed to record payment order",
			"gateway_order_id", descriptor.ID,
			"receipt", params.Receipt,
			"error", err)
	} else {
		s.logger.Info("payment order recorded",
			"gateway_order_id", descriptor.ID,
			"receipt", params.Receipt,
			"amount_minor", params.AmountMinor,
			"currency", params.Currency)
	}

	s.eventBus.Publish(ctx, events.NewOrderCreatedEvent(descriptor.ID, params.Receipt, params.AmountMinor, params.Currency))

	return descriptor, nil
}

// VerifyPayment checks the client-reported signature against the one
// recomputed from the shared secret. No gateway call is made. A ledger
// row, when present, is transitioned so a verified order cannot be
// verified again with a replayed signature.
func (s *Service) VerifyPayment(ctx context.Context, req *VerifyRequest) error {
	if err := req.Validate(); err != nil {
		s.logger.Warn("verify request validation failed", "error", err)
		return err
	}

	record, err := s.repo.GetByGatewayOrderID(req.OrderID)
	if err != nil {
		// Orders issued before the ledger existed are still verifiable;
		// the signature check is self-contained.
		s.logger.Warn("no ledger entry for order", "gateway_order_id", req.OrderID)
		record = nil
	}

	if record != nil && record.Status == order.StatusVerified {
		s.logger.Warn("replayed verification for already-verified order",
			"gateway_order_id", req.OrderID,
			"payment_id", req.PaymentID)
		return apperrors.ErrAlreadyVerified
	}

	if !gateway.VerifySignature(s.gateway.KeySecret(), req.OrderID, req.PaymentID, req.Signature) {
		s.logger.Warn("signature mismatch",
			"gateway_order_id", req.OrderID,
			"payment_id", req.PaymentID)

		if record != nil {
			if err := s.repo.MarkVerificationFailed(record.ID, "signature mismatch"); err != nil {
				s.logger.Error("failed to record verification failure", "gateway_order_id", req.OrderID, "error", err)
			}
		}

		s.eventBus.Publish(ctx, events.NewVerificationFailedEvent(req.OrderID, req.PaymentID, "signature mismatch"))
		return apperrors.ErrSignatureMismatch
	}

	if record != nil {
		if err := s.repo.MarkVerified(record.ID, req.PaymentID); err != nil {
			s.logger.Error("failed to record verification", "gateway_order_id", req.OrderID, "error", err)
		}
	}

	s.logger.Info("payment verified",
		"gateway_order_id", req.OrderID,
		"payment_id", req.PaymentID)

	s.eventBus.Publish(ctx, events.NewPaymentVerifiedEvent(req.OrderID, req.PaymentID))
	return nil
}

// GetOrder looks up a ledger entry by its gateway order identifier.
func (s *Service) GetOrder(gatewayOrderID string) (*order.PaymentOrder, error) {
	record, err := s.repo.GetByGatewayOrderID(gatewayOrderID)
	if err != nil {
		return nil, apperrors.NewNotFoundError("payment order not found", apperrors.ErrCodeOrderNotFound).WithCause(err)
	}
	return record, nil
}
