package table

import (
	"net/http"

	"restaurant-floor/internal/auth"
	"restaurant-floor/internal/httpx"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/models"
)

// Handler handles HTTP requests for tables
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new table handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// ListTables handles GET /tables
func (h *Handler) ListTables(w http.ResponseWriter, r *http.Request) {
	tables, err := h.service.List(r.Context())
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "list_tables_failed", err, httpx.RequestID(r))
		return
	}
	h.writeJSON(w, r, http.StatusOK, tables)
}

// GetTable handles GET /tables/{id}
func (h *Handler) GetTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	table, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "get_table_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, table)
}

// CreateTable handles POST /tables
func (h *Handler) CreateTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)

	var req models.CreateTableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	table, err := h.service.Add(r.Context(), req)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "create_table_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, table)
}

// UpdateTable handles PUT /tables/{id}
func (h *Handler) UpdateTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	var req models.UpdateTableRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	table, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "update_table_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, table)
}

// UpdateTableStatus handles PUT /tables/{id}/status
func (h *Handler) UpdateTableStatus(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	var req models.UpdateTableStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	table, err := h.service.UpdateStatus(r.Context(), id, req.Status, identity.Username)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "update_table_status_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, table)
}

// DeleteTable handles DELETE /tables/{id}
func (h *Handler) DeleteTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "id")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.WriteServiceError(w, h.logger, "delete_table_failed", err, requestID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := httpx.WriteJSON(w, status, v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", httpx.RequestID(r), err, nil)
	}
}
