// Package menu manages the catalog that order lines are snapshotted from.
package menu

import (
	"context"
	"fmt"
	"strings"
	"time"

	"restaurant-floor/internal/logger"
	"restaurant-floor/internal/models"
	"restaurant-floor/internal/store"
)

// Service manages menu items
type Service struct {
	store  store.Store
	logger *logger.Logger
	now    func() time.Time
}

// NewService creates a new menu service
func NewService(st store.Store, log *logger.Logger) *Service {
	return &Service{
		store:  st,
		logger: log,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Add creates a menu item with a unique name
func (s *Service) Add(ctx context.Context, req models.CreateMenuItemRequest) (*models.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created models.MenuItem
	err := s.update(ctx, func(tx store.Tx) error {
		items, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		if nameTaken(items, req.Name, 0) {
			return models.Conflict("menu item %q already exists", req.Name)
		}

		id, err := store.NextID(ctx, tx, store.Menu)
		if err != nil {
			return err
		}
		created = models.MenuItem{
			ID:          id,
			Name:        strings.TrimSpace(req.Name),
			Description: req.Description,
			Price:       req.Price,
			Category:    req.Category,
			Available:   req.Available,
			CreatedAt:   s.now(),
		}
		return store.SaveMenu(ctx, tx, append(items, created))
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("menu_item_created", fmt.Sprintf("Menu item %q created", created.Name), logger.RequestID(ctx), map[string]interface{}{
		"menu_item_id": created.ID,
		"price":        created.Price.StringFixed(2),
	})
	return &created, nil
}

// Get returns one menu item
func (s *Service) Get(ctx context.Context, id int64) (*models.MenuItem, error) {
	var found models.MenuItem
	err := s.view(ctx, func(tx store.Tx) error {
		items, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(items, id)
		if idx < 0 {
			return models.NotFound("menu item %d not found", id)
		}
		found = items[idx]
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &found, nil
}

// List returns the whole menu
func (s *Service) List(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		items, err = store.LoadMenu(ctx, tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// Update applies a partial change. Lines already on orders keep their snapshot.
func (s *Service) Update(ctx context.Context, id int64, req models.UpdateMenuItemRequest) (*models.MenuItem, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated models.MenuItem
	err := s.update(ctx, func(tx store.Tx) error {
		items, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(items, id)
		if idx < 0 {
			return models.NotFound("menu item %d not found", id)
		}

		item := &items[idx]
		if req.Name != nil {
			if nameTaken(items, *req.Name, id) {
				return models.Conflict("menu item %q already exists", *req.Name)
			}
			item.Name = strings.TrimSpace(*req.Name)
		}
		if req.Description != nil {
			item.Description = *req.Description
		}
		if req.Price != nil {
			item.Price = *req.Price
		}
		if req.Category != nil {
			item.Category = *req.Category
		}
		if req.Available != nil {
			item.Available = *req.Available
		}
		now := s.now()
		item.UpdatedAt = &now
		updated = *item
		return store.SaveMenu(ctx, tx, items)
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// Delete removes a menu item
func (s *Service) Delete(ctx context.Context, id int64) error {
	err := s.update(ctx, func(tx store.Tx) error {
		items, err := store.LoadMenu(ctx, tx)
		if err != nil {
			return err
		}
		idx := indexOf(items, id)
		if idx < 0 {
			return models.NotFound("menu item %d not found", id)
		}
		return store.SaveMenu(ctx, tx, append(items[:idx], items[idx+1:]...))
	})
	if err != nil {
		return err
	}

	s.logger.Info("menu_item_deleted", fmt.Sprintf("Menu item %d deleted", id), logger.RequestID(ctx), nil)
	return nil
}

func (s *Service) update(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.Update(ctx, fn); err != nil {
		return models.StoreFailure(err, "menu update failed")
	}
	return nil
}

func (s *Service) view(ctx context.Context, fn func(tx store.Tx) error) error {
	if err := s.store.View(ctx, fn); err != nil {
		return models.StoreFailure(err, "menu read failed")
	}
	return nil
}

func indexOf(items []models.MenuItem, id int64) int {
	for i := range items {
		if items[i].ID == id {
			return i
		}
	}
	return -1
}

// nameTaken compares names case-insensitively
func nameTaken(items []models.MenuItem, name string, exceptID int64) bool {
	name = strings.TrimSpace(name)
	for _, item := range items {
		if item.ID != exceptID && strings.EqualFold(item.Name, name) {
			return true
		}
	}
	return false
}
