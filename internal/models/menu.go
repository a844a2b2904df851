package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem is an orderable dish
type MenuItem struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   *time.Time      `json:"updatedAt,omitempty"`
}

// CreateMenuItemRequest is the body of POST /menu
type CreateMenuItemRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Available   bool            `json:"available"`
}

// UpdateMenuItemRequest is the body of PUT /menu/{id}; nil fields are left unchanged
type UpdateMenuItemRequest struct {
	Name        *string          `json:"name,omitempty"`
	Description *string          `json:"description,omitempty"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Available   *bool            `json:"available,omitempty"`
}

// Validate validates the create menu item request
func (req *CreateMenuItemRequest) Validate() error {
	if err := validateMenuName(req.Name); err != nil {
		return err
	}
	if err := validatePrice(req.Price); err != nil {
		return err
	}
	if len(req.Category) > 50 {
		return InvalidArgument("category must not exceed 50 characters")
	}
	return nil
}

// Validate validates the fields present in the patch
func (req *UpdateMenuItemRequest) Validate() error {
	if req.Name != nil {
		if err := validateMenuName(*req.Name); err != nil {
			return err
		}
	}
	if req.Price != nil {
		if err := validatePrice(*req.Price); err != nil {
			return err
		}
	}
	if req.Category != nil && len(*req.Category) > 50 {
		return InvalidArgument("category must not exceed 50 characters")
	}
	return nil
}

func validateMenuName(name string) error {
	if strings.TrimSpace(name) == "" {
		return InvalidArgument("name is required")
	}
	if len(name) > 100 {
		return InvalidArgument("name must not exceed 100 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return InvalidArgument("price must not be negative")
	}
	return nil
}
