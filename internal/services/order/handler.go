package order

import (
	"net/http"

	"restaurant-floor/internal/auth"
	"restaurant-floor/internal/httpx"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/models"
)

// Handler handles HTTP requests for the order service
type Handler struct {
	service *Service
	logger  *logger.Logger
}

// NewHandler creates a new order handler
func NewHandler(service *Service, log *logger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  log,
	}
}

// ListOrders handles GET /orders, optionally filtered by ?status=
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)

	status := models.OrderStatus(r.URL.Query().Get("status"))
	switch status {
	case "", models.OrderActive, models.OrderClosed:
	default:
		httpx.WriteError(w, http.StatusBadRequest, "status must be one of: active, closed", requestID)
		return
	}

	orders, err := h.service.List(r.Context(), status)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "list_orders_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, orders)
}

// GetOrder handles GET /orders/{orderId}
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	id, err := httpx.PathID(r, "orderId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "get_order_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// GetActiveOrderByTable handles GET /orders/table/{tableId}
func (h *Handler) GetActiveOrderByTable(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	tableID, err := httpx.PathID(r, "tableId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	order, err := h.service.GetActiveByTable(r.Context(), tableID)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "get_table_order_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// CreateOrder handles POST /orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)

	h.logger.Debug("order_received", "Received order creation request", requestID, map[string]interface{}{
		"content_length": r.ContentLength,
		"remote_addr":    r.RemoteAddr,
	})

	var req models.CreateOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	order, err := h.service.Create(r.Context(), req.TableID, identity.Username)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "order_creation_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusCreated, order)
}

// AddItem handles POST /orders/{orderId}/items
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	orderID, err := httpx.PathID(r, "orderId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	var req models.AddItemRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	order, err := h.service.AddItem(r.Context(), orderID, req.MenuItemID, req.Quantity)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "add_item_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// RemoveItem handles DELETE /orders/{orderId}/items/{menuItemId}
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	orderID, err := httpx.PathID(r, "orderId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}
	menuItemID, err := httpx.PathID(r, "menuItemId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	order, err := h.service.RemoveItem(r.Context(), orderID, menuItemID)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "remove_item_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

// CloseOrder handles PUT /orders/{orderId}/close
func (h *Handler) CloseOrder(w http.ResponseWriter, r *http.Request) {
	requestID := httpx.RequestID(r)
	orderID, err := httpx.PathID(r, "orderId")
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "validation_failed", err, requestID)
		return
	}

	identity, _ := auth.FromContext(r.Context())
	order, err := h.service.Close(r.Context(), orderID, identity.Username)
	if err != nil {
		httpx.WriteServiceError(w, h.logger, "close_order_failed", err, requestID)
		return
	}
	h.writeJSON(w, r, http.StatusOK, order)
}

func (h *Handler) writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	if err := httpx.WriteJSON(w, status, v); err != nil {
		h.logger.Error("response_encoding_failed", "Failed to encode response", httpx.RequestID(r), err, nil)
	}
}
