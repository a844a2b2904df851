// Package order is the Order Lifecycle Manager. Every mutation validates across
// the orders, tables and menu collections and commits inside one store
// transaction, so an order and the table it occupies never disagree.
package order

import (
	"context"
	"fmt"
	"time"

	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging"
	"restaurant-floor/internal/models"
	"restaurant-floor/internal/services/table"
	"restaurant-floor/internal/store"
)

// maxLineQuantity caps a single order line
const maxLineQuantity = 1000

// Service handles the order business logic
type Service struct {
	store     store.Store
	publisher messaging.EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new order service
func NewService(st store.Store, publisher messaging.EventPublisher, log *logger.Logger) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		store:     st,
		publisher: publisher,
		logger:    log,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create opens an order on an available table and marks the table occupied
func (s *Service) Create(ctx context.Context, tableID int64, actor string) (*models.Order, error) {
	if tableID < 1 {
		return nil, models.InvalidArgument("tableId must be a positive integer")
	}

	var created models.Order
	err := s.update(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		if !tableExists(tables, tableID) {
			return models.NotFound("table %d not found", tableID)
		}

		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		if idx := activeOrderIndex(orders, tableID); idx >= 0 {
			return models.Conflict("table %d already has active order %d", tableID, orders[idx].ID)
		}

		id, err := store.NextID(ctx, tx, store.Orders)
		if err != nil {
			return err
		}
		now := s.now()
		created = models.NewOrder(id, tableID, actor, now)

		// Occupy reports a table marked occupied by hand as a conflict.
		if err := table.Occupy(ctx, tx, tableID, id, now); err != nil {
			return err
		}
		return store.SaveOrders(ctx, tx, append(orders, created))
	})
	if err != nil {
		return nil, err
	}

	requestID := logger.RequestID(ctx)
	s.logger.Info("order_opened", fmt.Sprintf("Order %d opened on table %d", created.ID, tableID), requestID, map[string]interface{}{
		"order_id":   created.ID,
		"table_id":   tableID,
		"created_by": actor,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderOpened, &created, "", actor))
	return &created, nil
}

// AddItem adds quantity of a menu item to an active order. An item already on
// the order keeps the price it was first added with.
func (s *Service) AddItem(ctx context.Context, orderID, menuItemID int64, quantity int) (*models.Order, error) {
	if quantity < 1 {
		return nil, models.InvalidArgument("quantity must be at least 1")
	}
	if quantity > maxLineQuantity {
		return nil, models.InvalidArgument("quantity must not exceed %d", maxLineQuantity)
	}

	var updated models.Order
	err := s.update(ctx, func(tx store.Tx) error {
		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		idx := orderIndex(orders, orderID)
		if idx < 0 {
			return models.NotFound("order %d not found", orderID)
		}
		if !orders[idx].IsActive() {
			return models.Conflict("order %d is %s", orderID, orders[idx].Status)
		}

		menu, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		item, ok := findMenuItem(menu, menuItemID)
		if !ok {
			return models.NotFound("menu item %d not found", menuItemID)
		}
		if !item.Available {
			return models.InvalidArgument("menu item %q is not available", item.Name)
		}

		if line := orders[idx].FindItem(menuItemID); line >= 0 {
			if existing := orders[idx].Items[line].Quantity; existing > maxLineQuantity-quantity {
				return models.InvalidArgument("quantity of %q would exceed %d", item.Name, maxLineQuantity)
			}
		}

		now := s.now()
		orders[idx].AddItem(item, quantity)
		orders[idx].UpdatedAt = &now
		updated = orders[idx]
		return store.SaveOrders(ctx, tx, orders)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("order_item_added", fmt.Sprintf("Added %d x %d to order %d", quantity, menuItemID, orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
		"total":    updated.Total.StringFixed(2),
	})
	return &updated, nil
}

// RemoveItem drops a line from an active order
func (s *Service) RemoveItem(ctx context.Context, orderID, menuItemID int64) (*models.Order, error) {
	var updated models.Order
	err := s.update(ctx, func(tx store.Tx) error {
		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		idx := orderIndex(orders, orderID)
		if idx < 0 {
			return models.NotFound("order %d not found", orderID)
		}
		if !orders[idx].IsActive() {
			return models.Conflict("order %d is %s", orderID, orders[idx].Status)
		}
		if !orders[idx].RemoveItem(menuItemID) {
			return models.NotFound("menu item %d is not on order %d", menuItemID, orderID)
		}

		now := s.now()
		orders[idx].UpdatedAt = &now
		updated = orders[idx]
		return store.SaveOrders(ctx, tx, orders)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("order_item_removed", fmt.Sprintf("Removed %d from order %d", menuItemID, orderID), logger.RequestID(ctx), map[string]interface{}{
		"order_id": orderID,
		"total":    updated.Total.StringFixed(2),
	})
	return &updated, nil
}

// Close closes an active order and frees its table in the same transaction.
// A missing table or one bound to another order is logged and skipped.
func (s *Service) Close(ctx context.Context, orderID int64, actor string) (*models.Order, error) {
	requestID := logger.RequestID(ctx)

	var closed models.Order
	err := s.update(ctx, func(tx store.Tx) error {
		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		idx := orderIndex(orders, orderID)
		if idx < 0 {
			return models.NotFound("order %d not found", orderID)
		}
		if !orders[idx].IsActive() {
			return models.Conflict("order %d is already closed", orderID)
		}

		now := s.now()
		orders[idx].Close(actor, now)
		closed = orders[idx]
		if err := store.SaveOrders(ctx, tx, orders); err != nil {
			return err
		}

		if err := table.Free(ctx, tx, closed.TableID, orderID, now); err != nil {
			switch models.KindOf(err) {
			case models.KindNotFound, models.KindConflict:
				s.logger.Warn("table_inconsistent", "Closing order without freeing its table", requestID, map[string]interface{}{
					"order_id": orderID,
					"table_id": closed.TableID,
					"reason":   err.Error(),
				})
			default:
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_closed", fmt.Sprintf("Order %d closed", orderID), requestID, map[string]interface{}{
		"order_id":  orderID,
		"table_id":  closed.TableID,
		"total":     closed.Total.StringFixed(2),
		"closed_by": actor,
	})
	s.publish(ctx, models.NewOrderEvent(models.EventOrderClosed, &closed, models.OrderActive, actor))
	return &closed, nil
}

// Get returns one order
func (s *Service) Get(ctx context.Context, orderID int64) (*models.Order, error) {
	var found models.Order
	err := s.view(ctx, func(tx store.Tx) error {
		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		idx := orderIndex(orders, orderID)
		if idx < 0 {
			return models.NotFound("order %d not found", orderID)
		}
		found = orders[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// GetActiveByTable returns the active order seated at tableID
func (s *Service) GetActiveByTable(ctx context.Context, tableID int64) (*models.Order, error) {
	var found models.Order
	err := s.view(ctx, func(tx store.Tx) error {
		orders, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		idx := activeOrderIndex(orders, tableID)
		if idx < 0 {
			return models.NotFound("no active order for table %d", tableID)
		}
		found = orders[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// List returns every order, optionally only those with status
func (s *Service) List(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	var orders []models.Order
	err := s.view(ctx, func(tx store.Tx) error {
		all, err := store.LoadOrders(ctx, tx)
		if err != nil {
			return err
		}
		orders = all[:0]
		for _, o := range all {
			if status == "" || o.Status == status {
				orders = append(orders, o)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *Service) publish(ctx context.Context, event *models.FloorEvent) {
	if err := s.publisher.PublishFloorEvent(ctx, event); err != nil {
		s.logger.Error("event_publish_failed", "Failed to publish floor event", logger.RequestID(ctx), err, map[string]interface{}{
			"event_type": event.Type,
			"table_id":   event.TableID,
		})
	}
}

// update runs fn in a write transaction; untyped commit failures become StoreFailure
func (s *Service) update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.Update(ctx, fn); err != nil {
		return models.StoreFailure(err, "orders update failed")
	}
	return nil
}

func (s *Service) view(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.View(ctx, fn); err != nil {
		return models.StoreFailure(err, "orders read failed")
	}
	return nil
}

func orderIndex(orders []models.Order, id int64) int {
	for i := range orders {
		if orders[i].ID == id {
			return i
		}
	}
	return -1
}

func activeOrderIndex(orders []models.Order, tableID int64) int {
	for i := range orders {
		if orders[i].TableID == tableID && orders[i].IsActive() {
			return i
		}
	}
	return -1
}

func tableExists(tables []models.Table, id int64) bool {
	for _, t := range tables {
		if t.ID == id {
			return true
		}
	}
	return false
}

func findMenuItem(menu []models.MenuItem, id int64) (models.MenuItem, bool) {
	for _, item := range menu {
		if item.ID == id {
			return item, true
		}
	}
	return models.MenuItem{}, false
}
