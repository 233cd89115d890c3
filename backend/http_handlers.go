// Copyright 2026 TailorFlow Authors
// SPDX-License-Identifier: Apache-2.0

package backend

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

// Authenticator extracts user identity and tenant scope from HTTP requests.
// Implementations should validate auth (e.g., JWT) and provide both.
type Authenticator interface {
	GetUserID(r *http.Request) (string, error)
	GetTenantID(r *http.Request) (string, error)
}

// ErrorResponse is the JSON error envelope returned on every non-2xx status.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handlers provides the HTTP surface of the CRUD API.
type Handlers struct {
	service       *Service
	authenticator Authenticator
	logger        *slog.Logger
}

// NewHandlers creates the HTTP handlers for the given service.
func NewHandlers(service *Service, authenticator Authenticator, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		service:       service,
		authenticator: authenticator,
		logger:        logger,
	}
}

// RegisterRoutes attaches all API routes to the mux using method patterns.
func (h *Handlers) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/customers", listHandler(h, h.service.ListCustomers))
	mux.HandleFunc("POST /api/customers", createHandler(h, h.service.CreateCustomer))
	mux.HandleFunc("PUT /api/customers/{id}", updateHandler(h, h.service.UpdateCustomer))
	mux.HandleFunc("DELETE /api/customers/{id}", deleteHandler(h, h.service.DeleteCustomer))

	mux.HandleFunc("GET /api/employees", listHandler(h, h.service.ListEmployees))
	mux.HandleFunc("POST /api/employees", createHandler(h, h.service.CreateEmployee))
	mux.HandleFunc("PUT /api/employees/{id}", updateHandler(h, h.service.UpdateEmployee))
	mux.HandleFunc("DELETE /api/employees/{id}", deleteHandler(h, h.service.DeleteEmployee))

	mux.HandleFunc("GET /api/extras-presets", listHandler(h, h.service.ListPresets))
	mux.HandleFunc("POST /api/extras-presets", createHandler(h, h.service.CreatePreset))
	mux.HandleFunc("PUT /api/extras-presets/{id}", updateHandler(h, h.service.UpdatePreset))
	mux.HandleFunc("DELETE /api/extras-presets/{id}", deleteHandler(h, h.service.DeletePreset))

	mux.HandleFunc("GET /api/orders", listHandler(h, h.service.ListOrders))
	mux.HandleFunc("POST /api/orders", createHandler(h, h.service.CreateOrder))
	mux.HandleFunc("PUT /api/orders/{id}", updateHandler(h, h.service.UpdateOrder))
	mux.HandleFunc("DELETE /api/orders/{id}", deleteHandler(h, h.service.DeleteOrder))
	mux.HandleFunc("POST /api/orders/{id}/items", subCreateHandler(h, h.service.CreateOrderItem))
	mux.HandleFunc("POST /api/order-items/{id}/extras", subCreateHandler(h, h.service.CreateOrderItemExtra))

	mux.HandleFunc("GET /api/payments", listHandler(h, h.service.ListPayments))
	mux.HandleFunc("POST /api/payments", createHandler(h, h.service.CreatePayment))
	mux.HandleFunc("PUT /api/payments/{id}", updateHandler(h, h.service.UpdatePayment))
	mux.HandleFunc("DELETE /api/payments/{id}", deleteHandler(h, h.service.DeletePayment))
}

// tenant authenticates the request and returns its tenant scope.
func (h *Handlers) tenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID, err := h.authenticator.GetTenantID(r)
	if err != nil {
		h.writeError(w, http.StatusUnauthorized, "authentication_failed", err.Error())
		return "", false
	}
	return tenantID, true
}

func listHandler[T any](h *Handlers, list func(ctx context.Context, tenantID string) ([]T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		recs, err := list(r.Context(), tenantID)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, recs)
	}
}

func createHandler[T any](h *Handlers, create func(ctx context.Context, tenantID string, rec T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
			return
		}
		created, err := create(r.Context(), tenantID, rec)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

func updateHandler[T any](h *Handlers, update func(ctx context.Context, tenantID, id string, rec T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
			return
		}
		updated, err := update(r.Context(), tenantID, r.PathValue("id"), rec)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusOK, updated)
	}
}

func deleteHandler(h *Handlers, del func(ctx context.Context, tenantID, id string) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		if err := del(r.Context(), tenantID, r.PathValue("id")); err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// subCreateHandler creates a child record under the parent id in the path
// (order items under orders, extras under order items).
func subCreateHandler[T any](h *Handlers, create func(ctx context.Context, tenantID, parentID string, rec T) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tenantID, ok := h.tenant(w, r)
		if !ok {
			return
		}
		var rec T
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid_request", "Failed to parse request body")
			return
		}
		created, err := create(r.Context(), tenantID, r.PathValue("id"), rec)
		if err != nil {
			h.writeServiceError(w, r, err)
			return
		}
		h.writeJSON(w, http.StatusCreated, created)
	}
}

// writeServiceError maps service errors to HTTP statuses: unknown records are
// 404, unresolved references 422, everything else 500.
func (h *Handlers) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var refErr *RefError
	switch {
	case errors.Is(err, ErrNotFound):
		h.writeError(w, http.StatusNotFound, "not_found", "Record not found")
	case errors.As(err, &refErr):
		h.writeError(w, http.StatusUnprocessableEntity, "invalid_reference", refErr.Error())
	default:
		h.logger.Error("Request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		h.writeError(w, http.StatusInternalServerError, "internal_error", "Request failed")
	}
}

func (h *Handlers) writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, statusCode int, errorCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResponse := ErrorResponse{
		Error:   errorCode,
		Message: message,
	}
	json.NewEncoder(w).Encode(errorResponse)

	h.logger.Debug("HTTP error response",
		"status_code", statusCode,
		"error_code", errorCode,
		"message", message)
}
