// Package server mounts the floor HTTP API.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"restaurant-floor/internal/auth"
	"restaurant-floor/internal/httpx"
	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/services/menu"
	"restaurant-floor/internal/services/order"
	"restaurant-floor/internal/services/table"
)

// Options wires the services behind the router
type Options struct {
	Orders         *order.Service
	Tables         *table.Service
	Menu           *menu.Service
	Auth           auth.Provider
	Logger         *logger.Logger
	RequestTimeout time.Duration
}

// NewRouter builds the /api routes with role checks
func NewRouter(opts Options) http.Handler {
	orders := order.NewHandler(opts.Orders, opts.Logger)
	tables := table.NewHandler(opts.Tables, opts.Logger)
	menuItems := menu.NewHandler(opts.Menu, opts.Logger)

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(httpx.WithLogging(opts.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	staff := auth.RequireRole(auth.RoleAdmin, auth.RoleOperator)
	admin := auth.RequireRole(auth.RoleAdmin)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthCheck(opts))

		r.Get("/menu", menuItems.ListMenu)
		r.Get("/menu/{id}", menuItems.GetMenuItem)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate(opts.Auth, opts.Logger))

			r.With(admin).Post("/menu", menuItems.CreateMenuItem)
			r.With(admin).Put("/menu/{id}", menuItems.UpdateMenuItem)
			r.With(admin).Delete("/menu/{id}", menuItems.DeleteMenuItem)

			r.Route("/tables", func(r chi.Router) {
				r.With(staff).Get("/", tables.ListTables)
				r.With(staff).Get("/{id}", tables.GetTable)
				r.With(admin).Post("/", tables.CreateTable)
				r.With(admin).Put("/{id}", tables.UpdateTable)
				r.With(admin).Put("/{id}/status", tables.UpdateTableStatus)
				r.With(admin).Delete("/{id}", tables.DeleteTable)
			})

			r.Route("/orders", func(r chi.Router) {
				r.Use(staff)
				r.Get("/", orders.ListOrders)
				r.Post("/", orders.CreateOrder)
				r.Get("/table/{tableId}", orders.GetActiveOrderByTable)
				r.Get("/{orderId}", orders.GetOrder)
				r.Post("/{orderId}/items", orders.AddItem)
				r.Delete("/{orderId}/items/{menuItemId}", orders.RemoveItem)
				r.Put("/{orderId}/close", orders.CloseOrder)
			})
		})
	})

	return r
}

// healthCheck handles GET /api/health
func healthCheck(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		healthy := opts.Tables.HealthCheck(ctx)
		response := map[string]interface{}{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   "floor-service",
			"healthy":   healthy,
		}

		status := http.StatusOK
		if !healthy {
			response["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		if err := httpx.WriteJSON(w, status, response); err != nil {
			opts.Logger.Error("response_encoding_failed", "Failed to encode response", httpx.RequestID(r), err, nil)
		}
	}
}
