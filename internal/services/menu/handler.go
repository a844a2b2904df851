package menu

import (
	"net/http"

	"restaurant-floor/internal/httpx"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/models"
)

// Handler handles HTTP requests for the menu
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new menu handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// ListMenu handles GET /menu
func (h *Handler) ListMenu(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "list_menu_failed", err, httpx.RequestID(r))
		return
	}
	h.writeJSON(w, r, http.StatusOK, items)
}

// GetMenuItem handles GET /menu/{id}
func (h *Handler) GetMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "get_menu_item_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, item)
}

// CreateMenuItem handles POST /menu
func (h *Handler) CreateMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)

	var req models.CreateMenuItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	item, err := h.service.Add(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "create_menu_item_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, item)
}

// UpdateMenuItem handles PUT /menu/{id}
func (h *Handler) UpdateMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	var req models.UpdateMenuItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	item, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "update_menu_item_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, item)
}

// DeleteMenuItem handles DELETE /menu/{id}
func (h *Handler) DeleteMenuItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteServiceError(w, h.logger, "delete_menu_item_failed", err, requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := httpx.WriteJSON(w, status, v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", httpx.RequestID(r), err, nil)
	}
}
