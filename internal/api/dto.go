package api

import "github.com/starford/tourdesk/internal/models"

// ReorderDaysRequest is the body of PUT /tours/{tourID}/days/order.
type ReorderDaysRequest struct {
	Assignments []models.DayAssignment `json:"assignments" validate:"required"`
}

// ReorderItemsRequest is the body of PUT /days/{dayID}/items/order.
type ReorderItemsRequest struct {
	Assignments []models.ItemAssignment `json:"assignments" validate:"required"`
}

// SwapDaysRequest is the body of POST /days/swap.
type SwapDaysRequest struct {
	DayIDA string `json:"dayIdA" example:"5f0c..." validate:"required"`
	DayIDB string `json:"dayIdB" example:"9a1e..." validate:"required"`
}

// MoveItemRequest is the body of POST /items/{itemID}/move. A missing
// newPosition appends to the target day.
type MoveItemRequest struct {
	NewDayID    string `json:"newDayId" validate:"required"`
	NewPosition *int   `json:"newPosition,omitempty" example:"0"`
}

// DuplicateItemRequest is the body of POST /items/{itemID}/duplicate.
type DuplicateItemRequest struct {
	TargetDayID string `json:"targetDayId" validate:"required"`
}

// CatalogRecordRequest is the body of PUT /catalog/{kind}/{id}.
type CatalogRecordRequest struct {
	Name        string         `json:"name" example:"Soup curry" validate:"required"`
	Location    string         `json:"location,omitempty" example:"Sapporo"`
	URL         string         `json:"url,omitempty"`
	Description string         `json:"description,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// ToursResponse wraps a tour listing.
type ToursResponse struct {
	Tours []models.Tour `json:"tours" validate:"required"`
}

// DaysResponse wraps a tour's ordered days.
type DaysResponse struct {
	Days []models.Day `json:"days" validate:"required"`
}

// ItemsResponse wraps a day's ordered items.
type ItemsResponse struct {
	Items []models.Item `json:"items" validate:"required"`
}

// TourItemsResponse wraps a tour's items grouped by day id.
type TourItemsResponse struct {
	ItemsByDay map[string][]models.Item `json:"itemsByDay" validate:"required"`
}

// CatalogResponse wraps linked records.
type CatalogResponse struct {
	Records []models.LinkedRecord `json:"records" validate:"required"`
}
