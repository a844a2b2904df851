package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the status of an order
type OrderStatus string

const (
	OrderActive OrderStatus = "active"
	OrderClosed OrderStatus = "closed"
)

// LineItem is a menu item captured on an order at the time it was added
type LineItem struct {
	MenuItemID int64           `json:"menuItemId"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int             `json:"quantity"`
	Subtotal   decimal.Decimal `json:"subtotal"`
}

// Order represents a table's bill
type Order struct {
	ID        int64           `json:"id"`
	TableID   int64           `json:"tableId"`
	Items     []LineItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	Status    OrderStatus     `json:"status"`
	CreatedBy string          `json:"createdBy"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
	ClosedBy  *string         `json:"closedBy,omitempty"`
	ClosedAt  *time.Time      `json:"closedAt,omitempty"`
}

// CreateOrderRequest is the body of POST /orders
type CreateOrderRequest struct {
	TableID int64 `json:"tableId"`
}

// AddItemRequest is the body of POST /orders/{orderId}/items
type AddItemRequest struct {
	MenuItemID int64 `json:"menuItemId"`
	Quantity   int   `json:"quantity"`
}

// NewOrder builds an empty active order for a table
func NewOrder(id, tableID int64, actor string, now time.Time) Order {
	return Order{
		ID:        id,
		TableID:   tableID,
		Items:     []LineItem{},
		Total:     decimal.Zero,
		Status:    OrderActive,
		CreatedBy: actor,
		CreatedAt: now,
	}
}

// IsActive reports whether items can still be changed
func (o *Order) IsActive() bool {
	return o.Status == OrderActive
}

// FindItem returns the index of the line for menuItemID, or -1
func (o *Order) FindItem(menuItemID int64) int {
	for i := range o.Items {
		if o.Items[i].MenuItemID == menuItemID {
			return i
		}
	}
	return -1
}

// AddItem merges quantity into an existing line or appends a snapshot of the menu item.
// An existing line keeps the price it was first added with.
func (o *Order) AddItem(item MenuItem, quantity int) {
	if idx := o.FindItem(item.ID); idx >= 0 {
		line := &o.Items[idx]
		line.Quantity += quantity
		line.Subtotal = line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
	} else {
		o.Items = append(o.Items, LineItem{
			MenuItemID: item.ID,
			Name:       item.Name,
			Price:      item.Price,
			Quantity:   quantity,
			Subtotal:   item.Price.Mul(decimal.NewFromInt(int64(quantity))),
		})
	}
	o.Total = o.CalculateTotalAmount()
}

// RemoveItem drops the line for menuItemID and reports whether it was present
func (o *Order) RemoveItem(menuItemID int64) bool {
	idx := o.FindItem(menuItemID)
	if idx < 0 {
		return false
	}
	o.Items = append(o.Items[:idx], o.Items[idx+1:]...)
	o.Total = o.CalculateTotalAmount()
	return true
}

// CalculateTotalAmount sums the line subtotals
func (o *Order) CalculateTotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal)
	}
	return total
}

// Close marks the order closed by actor
func (o *Order) Close(actor string, now time.Time) {
	o.Status = OrderClosed
	o.ClosedBy = &actor
	o.ClosedAt = &now
}
