package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/roamstay/payment-service/internal/payment"
	"github.com/roamstay/payment-service/internal/transport/middleware"
	"github.com/roamstay/payment-service/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

// RegisterAllRoutes mounts the payment endpoints plus the operational
// surface. The /payment paths are a wire contract with the checkout
// widget and must not move.
func RegisterAllRoutes(router *chi.Mux, db *sql.DB, paymentHandler *payment.Handler, allowedOrigins string, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	router.Use(middleware.CORS(allowedOrigins))
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.RecoveryMiddleware(logger))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	router.Handle("/swagger/*", swagger.Handler())

	router.Get("/health", healthHandler.healthCheckHandler)
	router.Get("/ping", healthHandler.pingHandler)

	router.Route("/payment", func(r chi.Router) {
		r.Post("/create/orderId", paymentHandler.CreateOrder)
		r.Post("/verify", paymentHandler.VerifyPayment)
		r.Get("/order/{orderID}", paymentHandler.GetOrder)
	})
}
