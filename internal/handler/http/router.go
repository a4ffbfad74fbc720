package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/leonardoxyz/femisse-stock-ledger/pkg/health"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/middleware"
)

const serviceName = "stock-ledger"

// NewRouter builds the HTTP router for the stock ledger service.
func NewRouter(stock *StockHandler, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(serviceName))
	r.Use(chimiddleware.Timeout(30 * time.Second))

	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/stock", func(r chi.Router) {
		r.Post("/reserve", stock.ReserveStock)
		r.Post("/release", stock.ReleaseStock)
		r.Post("/restore", stock.RestoreStock)
		r.Get("/{productId}", stock.GetVariants)
	})

	return r
}
