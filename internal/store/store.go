// Package store defines the persistence boundary shared by the floor managers.
//
// Each collection is a list of records loaded and saved as a whole. All reads
// and writes of one operation go through a single Tx so a compound change to
// orders and tables either commits completely or not at all.
package store

import (
	"context"
	"errors"

	"restaurant-floor/internal/models"
)

// Collection names
const (
	Tables = "tables"
	Orders = "orders"
	Menu   = "menu"
)

// Tx is a view of every collection inside one transaction
type Tx interface {
	// Load decodes the collection into dst, a pointer to a slice. A collection
	// that was never saved leaves dst empty.
	Load(ctx context.Context, collection string, dst interface{}) error
	// Save replaces the collection with records.
	Save(ctx context.Context, collection string, records interface{}) error
	// NextID returns the next identifier of a monotonic per-collection counter.
	NextID(ctx context.Context, collection string) (int64, error)
}

// Store runs functions inside transactions. Update calls are serialized with
// respect to each other; the changes made by fn are discarded when it returns
// an error.
type Store interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

func load[T any](ctx context.Context, tx Tx, collection string) ([]T, error) {
	records := []T{}
	if err := tx.Load(ctx, collection, &records); err != nil {
		return nil, models.StoreFailure(err, "failed to load %s", collection)
	}
	if records == nil {
		records = []T{}
	}
	return records, nil
}

func save[T any](ctx context.Context, tx Tx, collection string, records []T) error {
	if err := tx.Save(ctx, collection, records); err != nil {
		return models.StoreFailure(err, "failed to save %s", collection)
	}
	return nil
}

func LoadTables(ctx context.Context, tx Tx) ([]models.Table, error) {
	return load[models.Table](ctx, tx, Tables)
}

func SaveTables(ctx context.Context, tx Tx, tables []models.Table) error {
	return save(ctx, tx, Tables, tables)
}

func LoadOrders(ctx context.Context, tx Tx) ([]models.Order, error) {
	return load[models.Order](ctx, tx, Orders)
}

func SaveOrders(ctx context.Context, tx Tx, orders []models.Order) error {
	return save(ctx, tx, Orders, orders)
}

func LoadMenu(ctx context.Context, tx Tx) ([]models.MenuItem, error) {
	return load[models.MenuItem](ctx, tx, Menu)
}

func SaveMenu(ctx context.Context, tx Tx, items []models.MenuItem) error {
	return save(ctx, tx, Menu, items)
}

// NextID allocates an identifier for collection
func NextID(ctx context.Context, tx Tx, collection string) (int64, error) {
	id, err := tx.NextID(ctx, collection)
	if err != nil {
		return 0, models.StoreFailure(err, "failed to allocate %s id", collection)
	}
	return id, nil
}

// ErrReadOnly is returned by writes attempted inside View
var ErrReadOnly = errors.New("store: write in read-only transaction")
