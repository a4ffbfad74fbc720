package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/leonardoxyz/femisse-stock-ledger/internal/domain"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/httputil"
	"github.com/leonardoxyz/femisse-stock-ledger/pkg/validator"
)

// StockService is the ledger surface the HTTP layer needs.
type StockService interface {
	Reserve(ctx context.Context, items []domain.OrderItem) ([]domain.Snapshot, error)
	Release(ctx context.Context, items []domain.OrderItem)
	RestoreFromSnapshot(ctx context.Context, snapshots []domain.Snapshot)
	Variants(ctx context.Context, productID string) ([]domain.Variant, error)
}

// StockHandler handles HTTP requests for stock ledger endpoints.
type StockHandler struct {
	service StockService
	logger  *slog.Logger
}

// NewStockHandler creates the stock ledger HTTP handler.
func NewStockHandler(svc StockService, logger *slog.Logger) *StockHandler {
	return &StockHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// OrderItemRequest is one order line in a reserve or release request.
type OrderItemRequest struct {
	ProductID    string  `json:"product_id" validate:"required"`
	Quantity     int     `json:"quantity" validate:"required,gt=0"`
	VariantSize  string  `json:"variant_size" validate:"required"`
	VariantColor *string `json:"variant_color"`
}

// ReserveStockRequest is the JSON body for POST /stock/reserve.
type ReserveStockRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
}

// ReleaseStockRequest is the JSON body for POST /stock/release. Validation
// is looser than reserve on purpose: release is best-effort and must accept
// whatever the compensation path managed to assemble.
type ReleaseStockRequest struct {
	Items []OrderItemRequest `json:"items" validate:"required,min=1"`
}

// SnapshotRequest is one captured snapshot in a restore request.
type SnapshotRequest struct {
	ProductID string          `json:"product_id" validate:"required"`
	Variants  json.RawMessage `json:"variants" validate:"required"`
}

// RestoreStockRequest is the JSON body for POST /stock/restore.
type RestoreStockRequest struct {
	Snapshots []SnapshotRequest `json:"snapshots" validate:"required,min=1,dive"`
}

// ReserveStockResponse carries the rollback snapshots the order pipeline
// must hold until the order reaches a terminal state.
type ReserveStockResponse struct {
	Snapshots []domain.Snapshot `json:"snapshots"`
}

func toOrderItems(items []OrderItemRequest) []domain.OrderItem {
	out := make([]domain.OrderItem, 0, len(items))
	for _, item := range items {
		out = append(out, domain.OrderItem{
			ProductID:    item.ProductID,
			Quantity:     item.Quantity,
			VariantSize:  item.VariantSize,
			VariantColor: item.VariantColor,
		})
	}
	return out
}

// --- Handlers ---

// ReserveStock handles POST /api/v1/stock/reserve
func (h *StockHandler) ReserveStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReserveStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snapshots, err := h.service.Reserve(r.Context(), toOrderItems(req.Items))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{
		Data: ReserveStockResponse{Snapshots: snapshots},
	})
}

// ReleaseStock handles POST /api/v1/stock/release
func (h *StockHandler) ReleaseStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var req ReleaseStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	// Best-effort by contract: the call is accepted, per-item problems are
	// logged server-side and never surfaced as a failure.
	h.service.Release(r.Context(), toOrderItems(req.Items))

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: map[string]string{"status": "accepted"},
	})
}

// RestoreStock handles POST /api/v1/stock/restore
func (h *StockHandler) RestoreStock(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 4<<20)

	var req RestoreStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	snapshots := make([]domain.Snapshot, 0, len(req.Snapshots))
	for _, s := range req.Snapshots {
		snapshots = append(snapshots, domain.Snapshot{ProductID: s.ProductID, Variants: s.Variants})
	}

	h.service.RestoreFromSnapshot(r.Context(), snapshots)

	httputil.WriteJSON(w, http.StatusAccepted, httputil.Response{
		Data: map[string]string{"status": "accepted"},
	})
}

// GetVariants handles GET /api/v1/stock/{productId}
func (h *StockHandler) GetVariants(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productId")

	variants, err := h.service.Variants(r.Context(), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: variants})
}
