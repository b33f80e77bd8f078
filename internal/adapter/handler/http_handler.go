package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rl1809/inventory-pos/internal/core/domain"
	"github.com/rl1809/inventory-pos/internal/core/service"
)

const idempotencyHeader = "Idempotency-Key"

type HTTPHandler struct {
	sales     *service.SaleService
	stats     *service.StatsService
	catalog   *service.CatalogService
	directory *service.DirectoryService
	logger    *zap.Logger
}

func NewHTTPHandler(
	sales *service.SaleService,
	stats *service.StatsService,
	catalog *service.CatalogService,
	directory *service.DirectoryService,
	logger *zap.Logger,
) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{
		sales:     sales,
		stats:     stats,
		catalog:   catalog,
		directory: directory,
		logger:    logger,
	}
}

// Router wires every endpoint. corsOrigins empty means same-origin only.
func (h *HTTPHandler) Router(corsOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader},
			MaxAge:         300,
		}))
	}

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.RecordSale)
			r.Get("/", h.ListTransactions)
			r.Get("/revenue", h.TotalRevenue)
			r.Get("/range", h.TransactionsBetween)
			r.Get("/customer/{customerId}", h.TransactionsByCustomer)
			r.Get("/item/{itemId}", h.TransactionsByItem)
			r.Get("/{id}", h.GetTransaction)
		})

		r.Route("/inventory", func(r chi.Router) {
			r.Get("/", h.ListItems)
			r.Post("/", h.CreateItem)
			r.Get("/categories", h.Categories)
			r.Get("/low-stock", h.LowStockItems)
			r.Get("/{id}", h.GetItem)
			r.Put("/{id}", h.UpdateItem)
			r.Delete("/{id}", h.DeleteItem)
			r.Post("/{id}/restock", h.Restock)
		})

		r.Post("/customers", h.RegisterCustomer)
		r.Get("/customers/{id}", h.GetCustomer)
		r.Post("/staff", h.RegisterStaff)

		r.Get("/dashboard/stats", h.Stats)
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

func (h *HTTPHandler) RecordSale(w http.ResponseWriter, r *http.Request) {
	var req SaleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get(idempotencyHeader)
	}

	entry, err := h.sales.RecordSale(r.Context(), domain.SaleRequest{
		CustomerID: req.CustomerID,
		ItemID:     req.ItemID,
		Quantity:   req.Quantity,
		RequestID:  req.RequestID,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(*entry))
}

func (h *HTTPHandler) GetTransaction(w http.ResponseWriter, r *http.Request) {
	entry, err := h.sales.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(*entry))
}

func (h *HTTPHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	entries, err := service.CollectEntries(h.sales.All(r.Context()))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(entries))
}

func (h *HTTPHandler) TransactionsByCustomer(w http.ResponseWriter, r *http.Request) {
	entries, err := service.CollectEntries(h.sales.ByCustomer(r.Context(), chi.URLParam(r, "customerId")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(entries))
}

func (h *HTTPHandler) TransactionsByItem(w http.ResponseWriter, r *http.Request) {
	entries, err := service.CollectEntries(h.sales.ByItem(r.Context(), chi.URLParam(r, "itemId")))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(entries))
}

// TransactionsBetween takes RFC 3339 "from" and "to" query parameters.
func (h *HTTPHandler) TransactionsBetween(w http.ResponseWriter, r *http.Request) {
	from, err := parseTimeParam(r, "from")
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	to, err := parseTimeParam(r, "to")
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	seq, err := h.sales.Between(r.Context(), from, to)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	entries, err := service.CollectEntries(seq)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponses(entries))
}

func (h *HTTPHandler) TotalRevenue(w http.ResponseWriter, r *http.Request) {
	total, err := h.sales.TotalRevenue(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RevenueResponse{TotalRevenue: total})
}

// =============================================================================
// INVENTORY
// =============================================================================

func (h *HTTPHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.ItemFilter{
		Category: q.Get("category"),
		Search:   q.Get("search"),
	}
	if v := q.Get("available"); v != "" {
		available, err := strconv.ParseBool(v)
		if err != nil {
			h.writeError(w, r, &domain.ValidationError{Field: "available", Reason: "must be a boolean"})
			return
		}
		filter.AvailableOnly = available
	}

	items, err := h.catalog.ListItems(r.Context(), filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponses(items))
}

func (h *HTTPHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	item, err := h.catalog.CreateItem(r.Context(), domain.StockItem{
		Name:        req.Name,
		Quantity:    req.Quantity,
		Category:    req.Category,
		Price:       req.Price,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toItemResponse(*item))
}

func (h *HTTPHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.catalog.GetItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*item))
}

func (h *HTTPHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var req ItemPatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	item, err := h.catalog.UpdateItem(r.Context(), chi.URLParam(r, "id"), req.toPatch())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponse(*item))
}

func (h *HTTPHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteItem(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Restock(w http.ResponseWriter, r *http.Request) {
	var req RestockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}

	id := chi.URLParam(r, "id")
	quantity, err := h.catalog.Restock(r.Context(), id, req.Amount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RestockResponse{ID: id, Quantity: quantity})
}

func (h *HTTPHandler) Categories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if categories == nil {
		categories = []string{}
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) LowStockItems(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseThreshold(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	items, err := h.catalog.LowStockItems(r.Context(), threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toItemResponses(items))
}

// =============================================================================
// DIRECTORY & DASHBOARD
// =============================================================================

func (h *HTTPHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req PartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	c, err := h.directory.RegisterCustomer(r.Context(), req.Name, req.Email)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PartyResponse{ID: c.ID, Name: c.Name, Email: c.Email, CreatedAt: c.CreatedAt})
}

func (h *HTTPHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := h.directory.ResolveCustomer(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, PartyResponse{ID: c.ID, Name: c.Name, Email: c.Email, CreatedAt: c.CreatedAt})
}

func (h *HTTPHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req PartyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Details: err.Error()})
		return
	}
	s, err := h.directory.RegisterStaff(r.Context(), req.Name, req.Email, req.Designation)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, PartyResponse{
		ID: s.ID, Name: s.Name, Email: s.Email, Designation: s.Designation, CreatedAt: s.CreatedAt,
	})
}

func (h *HTTPHandler) Stats(w http.ResponseWriter, r *http.Request) {
	threshold, err := parseThreshold(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	stats, err := h.stats.Stats(r.Context(), threshold)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseThreshold(r *http.Request) (int, error) {
	v := r.URL.Query().Get("threshold")
	if v == "" {
		return 0, nil
	}
	threshold, err := strconv.Atoi(v)
	if err != nil || threshold < 0 {
		return 0, &domain.ValidationError{Field: "threshold", Reason: "must be a non-negative integer"}
	}
	return threshold, nil
}

func parseTimeParam(r *http.Request, name string) (time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return time.Time{}, &domain.ValidationError{Field: name, Reason: "is required"}
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, &domain.ValidationError{Field: name, Reason: "must be an RFC 3339 timestamp"}
	}
	return t, nil
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := httpStatus(err)
	resp := ErrorResponse{Error: http.StatusText(status), Details: err.Error()}

	var insufficient *domain.InsufficientStockError
	if errors.As(err, &insufficient) {
		resp.Available = &insufficient.Available
	}
	if domain.IsRetryable(err) {
		w.Header().Set("Retry-After", "1")
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("path", r.URL.Path),
			zap.String("requestId", middleware.GetReqID(r.Context())),
			zap.Error(err))
		resp.Details = ""
	}
	writeJSON(w, status, resp)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
