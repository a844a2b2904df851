// Package table is the Table State Manager: it owns table availability and the
// back-reference from a table to its active order.
package table

import (
	"context"
	"fmt"
	"time"

	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/messaging"
	"restaurant-floor/internal/models"
	"restaurant-floor/internal/store"
)

// Service manages the tables collection
type Service struct {
	store     store.Store
	publisher messaging.EventPublisher
	logger    *logger.Logger
	now       func() time.Time
}

// NewService creates a new table service
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

// Add creates an available table with a unique number
func (s *Service) Add(ctx context.Context, req models.CreateTableRequest) (*models.Table, error) {
	if req.Number < 1 {
		return nil, models.InvalidArgument("number must be a positive integer")
	}
	if req.Capacity < 1 {
		return nil, models.InvalidArgument("capacity must be a positive integer")
	}

	var created models.Table
	err := s.update(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		if numberTaken(tables, req.Number, 0) {
			return models.Conflict("table number %d already exists", req.Number)
		}

		id, err := store.NextID(ctx, tx, store.Tables)
		if err != nil {
			return err
		}
		created = models.Table{
			ID:        id,
			Number:    req.Number,
			Capacity:  req.Capacity,
			Status:    models.TableAvailable,
			CreatedAt: s.now(),
		}
		return store.SaveTables(ctx, tx, append(tables, created))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("table_created", fmt.Sprintf("Table %d created", created.Number), logger.RequestID(ctx), map[string]interface{}{
		"table_id": created.ID,
		"capacity": created.Capacity,
	})
	return &created, nil
}

// Get returns one table
func (s *Service) Get(ctx context.Context, id int64) (*models.Table, error) {
	var found models.Table
	err := s.view(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(tables, id)
		if idx < 0 {
			return models.NotFound("table %d not found", id)
		}
		found = tables[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// List returns every table
func (s *Service) List(ctx context.Context) ([]models.Table, error) {
	var tables []models.Table
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		tables, err = store.LoadTables(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return tables, nil
}

// Update changes the number and/or capacity of a table
func (s *Service) Update(ctx context.Context, id int64, req models.UpdateTableRequest) (*models.Table, error) {
	if req.Number != nil && *req.Number < 1 {
		return nil, models.InvalidArgument("number must be a positive integer")
	}
	if req.Capacity != nil && *req.Capacity < 1 {
		return nil, models.InvalidArgument("capacity must be a positive integer")
	}

	var updated models.Table
	err := s.update(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(tables, id)
		if idx < 0 {
			return models.NotFound("table %d not found", id)
		}
		if req.Number != nil {
			if numberTaken(tables, *req.Number, id) {
				return models.Conflict("table number %d already exists", *req.Number)
			}
			tables[idx].Number = *req.Number
		}
		if req.Capacity != nil {
			tables[idx].Capacity = *req.Capacity
		}
		now := s.now()
		tables[idx].UpdatedAt = &now
		updated = tables[idx]
		return store.SaveTables(ctx, tx, tables)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// UpdateStatus overrides a table's status by hand. The bound order, if any, is
// left alone: marking a table available does not close its order, and marking
// it occupied does not open one.
func (s *Service) UpdateStatus(ctx context.Context, id int64, rawStatus, actor string) (*models.Table, error) {
	status, err := models.ParseTableStatus(rawStatus)
	if err != nil {
		return nil, err
	}

	var (
		updated   models.Table
		oldStatus models.TableStatus
	)
	err = s.update(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(tables, id)
		if idx < 0 {
			return models.NotFound("table %d not found", id)
		}
		oldStatus = tables[idx].Status
		now := s.now()
		tables[idx].Status = status
		tables[idx].UpdatedAt = &now
		updated = tables[idx]
		return store.SaveTables(ctx, tx, tables)
	})
	if err != nil {
		return nil, err
	}

	requestID := logger.RequestID(ctx)
	s.logger.Info("table_status_overridden", fmt.Sprintf("Table %d marked %s", updated.Number, status), requestID, map[string]interface{}{
		"table_id":   updated.ID,
		"old_status": oldStatus,
		"changed_by": actor,
	})
	if oldStatus != status {
		if err := s.publisher.PublishFloorEvent(ctx, models.NewTableEvent(&updated, oldStatus, actor)); err != nil {
			s.logger.Error("event_publish_failed", "Failed to publish table event", requestID, err, nil)
		}
	}
	return &updated, nil
}

// Delete removes an available table
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.update(ctx, func(tx store.Tx) error {
		tables, err := store.LoadTables(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(tables, id)
		if idx < 0 {
			return models.NotFound("table %d not found", id)
		}
		if tables[idx].IsOccupied() {
			return models.Conflict("cannot delete an occupied table")
		}
		return store.SaveTables(ctx, tx, append(tables[:idx], tables[idx+1:]...))
	})
	if err != nil {
		return err
	}

	s.logger.Info("table_deleted", fmt.Sprintf("Table %d deleted", id), logger.RequestID(ctx), nil)
	return nil
}

// HealthCheck checks the health of the store
func (s *Service) HealthCheck(ctx context.Context) bool {
	if err := s.store.Ping(ctx); err != nil {
		s.logger.Error("health_check_failed", "Store ping failed", "", err, nil)
		return false
	}
	return true
}

func indexOf(tables []models.Table, id int64) int {
	for i := range tables {
		if tables[i].ID == id {
			return i
		}
	}
	return -1
}

func numberTaken(tables []models.Table, number int, exceptID int64) bool {
	for _, t := range tables {
		if t.Number == number && t.ID != exceptID {
			return true
		}
	}
	return false
}

// update runs fn in a write transaction; untyped commit failures become StoreFailure
func (s *Service) update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.Update(ctx, fn); err != nil {
		return models.StoreFailure(err, "tables update failed")
	}
	return nil
}

func (s *Service) view(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.View(ctx, fn); err != nil {
		return models.StoreFailure(err, "tables read failed")
	}
	return nil
}
