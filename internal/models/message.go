package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// EventType names a committed floor transition
type EventType string

const (
	EventOrderOpened        EventType = "order.opened"
	EventOrderClosed        EventType = "order.closed"
	EventTableStatusChanged EventType = "table.status_changed"
)

// FloorEvent is published after an order or table transition commits
type FloorEvent struct {
	ID        string           `json:"id"`
	Type      EventType        `json:"type"`
	OrderID   *int64           `json:"order_id,omitempty"`
	TableID   int64            `json:"table_id"`
	OldStatus string           `json:"old_status,omitempty"`
	NewStatus string           `json:"new_status"`
	Total     *decimal.Decimal `json:"total,omitempty"`
	ChangedBy string           `json:"changed_by"`
	Timestamp time.Time        `json:"timestamp"`
}

// NewOrderEvent builds an event describing an order transition
func NewOrderEvent(eventType EventType, order *Order, oldStatus OrderStatus, changedBy string) *FloorEvent {
	id := order.ID
	total := order.Total
	return &FloorEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		OrderID:   &id,
		TableID:   order.TableID,
		OldStatus: string(oldStatus),
		NewStatus: string(order.Status),
		Total:     &total,
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}

// NewTableEvent builds an event describing a manual table status change
func NewTableEvent(table *Table, oldStatus TableStatus, changedBy string) *FloorEvent {
	return &FloorEvent{
		ID:        uuid.NewString(),
		Type:      EventTableStatusChanged,
		OrderID:   table.CurrentOrder,
		TableID:   table.ID,
		OldStatus: string(oldStatus),
		NewStatus: string(table.Status),
		ChangedBy: changedBy,
		Timestamp: time.Now().UTC(),
	}
}

// RoutingKey returns the routing key used on the floor events exchange
func (e *FloorEvent) RoutingKey() string {
	return fmt.Sprintf("floor.%s", e.Type)
}
