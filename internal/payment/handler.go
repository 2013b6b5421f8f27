package payment

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	apperrors "github.com/roamstay/payment-service/internal"
	"github.com/roamstay/payment-service/internal/core/datamodel/order"
	"github.com/roamstay/payment-service/internal/gateway"
	"github.com/roamstay/payment-service/internal/transport"
)

type ServiceAPI interface {
	CreateOrder(ctx context.Context, req *CreateOrderRequest) (*gateway.OrderDescriptor, error)
	VerifyPayment(ctx context.Context, req *VerifyRequest) error
	GetOrder(gatewayOrderID string) (*order.PaymentOrder, error)
}

type Handler struct {
	transport.BaseHandler
	Service ServiceAPI
	Logger  *slog.Logger
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.BaseHandler{Logger: logger},
		Service:     service,
		Logger:      logger,
	}
}

// CreateOrder handles POST /payment/create/orderId. On success the
// gateway's order descriptor is relayed to the caller byte-for-byte.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("CreateOrder: failed to parse request body", "error", err)
		h.HandleError(w, apperrors.NewValidationError("invalid request body", apperrors.ErrCodeValidationFailed))
		return
	}

	descriptor, err := h.Service.CreateOrder(r.Context(), &req)
	if err != nil {
		if appErr, ok := apperrors.IsAppError(err); ok && appErr.Type == apperrors.ErrorTypeValidation {
			h.HandleError(w, appErr)
			return
		}
		h.Logger.Error("CreateOrder: service error", "receipt", req.Receipt, "error", err)
		h.WriteJSON(w, http.StatusInternalServerError, CreateOrderErrorResponse{
			Message: "Failed to create order",
			Error:   err.Error(),
		})
		return
	}

	h.WriteRawJSON(w, http.StatusOK, descriptor.Raw)
}

// VerifyPayment handles POST /payment/verify.
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Warn("VerifyPayment: failed to parse request body", "error", err)
		h.WriteJSON(w, http.StatusBadRequest, VerifyResponse{
			Success: false,
			Message: "invalid request body",
		})
		return
	}

	if err := h.Service.VerifyPayment(r.Context(), &req); err != nil {
		status, message := verifyFailureResponse(err)
		h.WriteJSON(w, status, VerifyResponse{
			Success: false,
			Message: message,
		})
		return
	}

	h.WriteJSON(w, http.StatusOK, VerifyResponse{
		Success: true,
		Message: "Payment has been verified successfully",
	})
}

// GetOrder handles GET /payment/order/{orderID}, exposing the ledger
// entry recorded for a gateway order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "orderID")
	if orderID == "" {
		h.HandleError(w, apperrors.NewValidationError("order id is required", apperrors.ErrCodeValidationFailed))
		return
	}

	record, err := h.Service.GetOrder(orderID)
	if err != nil {
		h.HandleError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, NewOrderStatusResponse(record))
}

func verifyFailureResponse(err error) (int, string) {
	if errors.Is(err, apperrors.ErrAlreadyVerified) {
		return http.StatusConflict, "order has already been verified"
	}

	if appErr, ok := apperrors.IsAppError(err); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			return http.StatusBadRequest, appErr.GetDetailedMessage()
		case apperrors.ErrorTypeIntegrity:
			return http.StatusBadRequest, "Payment verification failed"
		}
	}

	return http.StatusInternalServerError, "failed to verify payment"
}
