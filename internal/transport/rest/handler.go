// Package rest provides HTTP handlers for order-related operations.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	ordererrors "github.com/abgdnv/coffeeshop/internal/errors"
	"github.com/abgdnv/coffeeshop/internal/service"
	"github.com/abgdnv/coffeeshop/pkg/web"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// HealthChecker reports whether the backing store is reachable.
type HealthChecker func(ctx context.Context) error

type Handler struct {
	service  service.OrderService
	validate *validator.Validate
	health   HealthChecker
	logger   *slog.Logger
}

// NewHandler creates a new instance of Handler with the provided service.
// A nil health checker always reports healthy.
func NewHandler(service service.OrderService, health HealthChecker, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
		health:   health,
		logger:   logger.With("component", "rest"),
	}
}

// RegisterRoutes registers the HTTP routes for the order service.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api/v1/orders", func(r chi.Router) {
		r.Get("/", h.FindAll)
		r.Post("/", h.Create)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.FindByID)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)
		})
	})
	r.Get("/healthz", h.HealthCheck)
}

// FindAll retrieves a list of all orders.
func (h *Handler) FindAll(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.FindAll(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Error retrieving order list", "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, "Failed to fetch orders")
		return
	}
	h.logger.DebugContext(r.Context(), "Successfully retrieved order list", "count", len(list))
	web.RespondJSON(w, h.logger, http.StatusOK, list)
}

// FindByID retrieves an order by its ID.
func (h *Handler) FindByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}

	found, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, ordererrors.ErrOrderNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Order with ID %d not found", id))
			return
		}
		h.logger.ErrorContext(r.Context(), "Error retrieving order", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve order with ID %d", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, found)
}

// Create handles the creation of a new order.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var orderCreateDto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&orderCreateDto); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(orderCreateDto); err != nil {
		web.RespondValidationError(w, r, h.logger, err)
		return
	}

	created, err := h.service.Create(r.Context(), orderCreateDto)
	if err != nil {
		h.respondWriteError(w, r, err, "Failed to create order")
		return
	}
	h.logger.InfoContext(r.Context(), "Order created successfully", "ID", created.ID)
	web.RespondJSON(w, h.logger, http.StatusCreated, created)
}

// Update replaces the user and line items of an existing order.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	var orderUpdateDto service.OrderUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&orderUpdateDto); err != nil {
		h.logger.WarnContext(r.Context(), "Error decoding request body", "error", err)
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	// The path ID wins over any ID in the body.
	orderUpdateDto.ID = id

	if err := h.validate.Struct(orderUpdateDto); err != nil {
		web.RespondValidationError(w, r, h.logger, err)
		return
	}

	updated, err := h.service.Update(r.Context(), orderUpdateDto)
	if err != nil {
		if errors.Is(err, ordererrors.ErrOrderNotFound) {
			web.RespondError(w, h.logger, http.StatusNotFound, fmt.Sprintf("Order with ID %d not found", id))
			return
		}
		h.respondWriteError(w, r, err, fmt.Sprintf("Failed to update order with ID %d", id))
		return
	}
	h.logger.InfoContext(r.Context(), "Order updated successfully", "ID", updated.ID)
	web.RespondJSON(w, h.logger, http.StatusOK, updated)
}

// Delete removes an order. Deleting a missing order succeeds.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.logger.ErrorContext(r.Context(), "Error deleting order", "ID", id, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, fmt.Sprintf("Failed to delete order with ID %d", id))
		return
	}
	web.RespondJSON(w, h.logger, http.StatusNoContent, nil)
}

// HealthCheck reports 200 when the store is reachable and 503 otherwise.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health(r.Context()); err != nil {
			h.logger.WarnContext(r.Context(), "Health check failed", "error", err)
			web.RespondError(w, h.logger, http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	w.WriteHeader(http.StatusOK)
}

// respondWriteError maps errors of create and update operations to HTTP statuses.
func (h *Handler) respondWriteError(w http.ResponseWriter, r *http.Request, err error, message string) {
	switch {
	case errors.Is(err, ordererrors.ErrProductNotFound), errors.Is(err, ordererrors.ErrInvalidQuantity):
		web.RespondError(w, h.logger, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.ErrorContext(r.Context(), message, "error", err)
		web.RespondError(w, h.logger, http.StatusInternalServerError, message)
	}
}
