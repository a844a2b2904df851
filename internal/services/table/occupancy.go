package table

import (
	"context"
	"time"

	"restaurant-floor/internal/models"
	"restaurant-floor/internal/store"
)

// Occupy binds tableID to orderID inside tx. Only the order lifecycle calls it.
func Occupy(ctx context.Context, tx store.Tx, tableID, orderID int64, now time.Time) error {
	tables, err := store.LoadTables(ctx, tx)
	if err != nil {
		return err
	}
	idx := indexOf(tables, tableID)
	if idx < 0 {
		return models.NotFound("table %d not found", tableID)
	}
	if tables[idx].IsOccupied() {
		return models.Conflict("table %d is occupied", tables[idx].Number)
	}

	tables[idx].Status = models.TableOccupied
	tables[idx].CurrentOrder = &orderID
	tables[idx].UpdatedAt = &now
	return store.SaveTables(ctx, tx, tables)
}

// Free releases tableID from orderID inside tx. A table bound to a different
// order is left untouched and reported as a conflict.
func Free(ctx context.Context, tx store.Tx, tableID, orderID int64, now time.Time) error {
	tables, err := store.LoadTables(ctx, tx)
	if err != nil {
		return err
	}
	idx := indexOf(tables, tableID)
	if idx < 0 {
		return models.NotFound("table %d not found", tableID)
	}
	if current := tables[idx].CurrentOrder; current != nil && *current != orderID {
		return models.Conflict("table %d is bound to order %d", tables[idx].Number, *current)
	}

	tables[idx].Status = models.TableAvailable
	tables[idx].CurrentOrder = nil
	tables[idx].UpdatedAt = &now
	return store.SaveTables(ctx, tx, tables)
}
