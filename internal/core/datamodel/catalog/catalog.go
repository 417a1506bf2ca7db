package catalog

import (
	"github.com/frahmantamala/salon-portal/internal/core/datamodel/money"
)

type Service struct {
	ID           int64        `json:"id"`
	Category     *int64       `json:"category,omitempty"`
	CategoryName string       `json:"category_name,omitempty"`
	Name         string       `json:"name"`
	Description  string       `json:"description"`
	Duration     int          `json:"duration"`
	Price        money.Amount `json:"price"`
	Image        string       `json:"image,omitempty"`
	IsFeatured   bool         `json:"is_featured"`
	IsActive     bool         `json:"is_active"`
	CreatedAt    string       `json:"created_at,omitempty"`
}

type ServiceInput struct {
	Category    *int64       `json:"category,omitempty"`
	Name        string       `json:"name" validate:"required"`
	Description string       `json:"description"`
	Duration    int          `json:"duration" validate:"required,gt=0"`
	Price       money.Amount `json:"price" validate:"gt=0"`
	IsFeatured  bool         `json:"is_featured"`
	IsActive    bool         `json:"is_active"`
}

type Category struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Focus        string    `json:"focus,omitempty"`
	Icon         string    `json:"icon,omitempty"`
	DisplayOrder int       `json:"display_order"`
	Services     []Service `json:"services,omitempty"`
}

type CategoryInput struct {
	Name         string `json:"name" validate:"required"`
	Description  string `json:"description"`
	Focus        string `json:"focus,omitempty"`
	Icon         string `json:"icon,omitempty"`
	DisplayOrder int    `json:"display_order"`
}
