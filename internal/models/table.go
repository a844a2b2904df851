package models

import "time"

// TableStatus represents the occupancy of a table
type TableStatus string

const (
	TableAvailable TableStatus = "available"
	TableOccupied  TableStatus = "occupied"
)

// Table represents a physical table on the floor
type Table struct {
	ID           int64       `json:"id"`
	Number       int         `json:"number"`
	Capacity     int         `json:"capacity"`
	Status       TableStatus `json:"status"`
	CurrentOrder *int64      `json:"currentOrder"`
	CreatedAt    time.Time   `json:"createdAt"`
	UpdatedAt    *time.Time  `json:"updatedAt,omitempty"`
}

// ParseTableStatus validates a raw status value
func ParseTableStatus(raw string) (TableStatus, error) {
	switch TableStatus(raw) {
	case TableAvailable, TableOccupied:
		return TableStatus(raw), nil
	default:
		return "", InvalidArgument("status must be one of: available, occupied")
	}
}

// IsOccupied reports whether the table is bound to an order
func (t *Table) IsOccupied() bool {
	return t.Status == TableOccupied
}

// CreateTableRequest is the body of POST /tables
type CreateTableRequest struct {
	Number   int `json:"number"`
	Capacity int `json:"capacity"`
}

// UpdateTableRequest is the body of PUT /tables/{id}; zero fields are left unchanged
type UpdateTableRequest struct {
	Number   *int `json:"number,omitempty"`
	Capacity *int `json:"capacity,omitempty"`
}

// UpdateTableStatusRequest is the body of PUT /tables/{id}/status
type UpdateTableStatusRequest struct {
	Status string `json:"status"`
}
