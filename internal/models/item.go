package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// ItemType enumerates the kinds of blocks a day can hold.
type ItemType string

const (
	ItemActivity   ItemType = "activity"
	ItemLunch      ItemType = "lunch"
	ItemDinner     ItemType = "dinner"
	ItemTransport  ItemType = "transport"
	ItemSuggestion ItemType = "suggestion"
)

var defaultColors = map[ItemType]string{
	ItemActivity:   "#3b82f6",
	ItemLunch:      "#f59e0b",
	ItemDinner:     "#ef4444",
	ItemTransport:  "#6b7280",
	ItemSuggestion: "#10b981",
}

// DefaultColor returns the display color assigned to items of type t.
func (t ItemType) DefaultColor() string {
	return defaultColors[t]
}

var itemTypes = []any{ItemActivity, ItemLunch, ItemDinner, ItemTransport, ItemSuggestion}

// Item is a block inside a day. Position is dense within the day.
type Item struct {
	ID          string    `json:"id"`
	DayID       string    `json:"dayId"`
	TourID      string    `json:"tourId"`
	ItemType    ItemType  `json:"itemType"`
	Position    int       `json:"position"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   string    `json:"startTime"`
	EndTime     string    `json:"endTime"`
	Location    string    `json:"location"`
	Notes       string    `json:"notes"`
	Color       string    `json:"color"`
	TastesID    string    `json:"tastesId,omitempty"`
	RoutesID    string    `json:"routesId,omitempty"`
	StayID      string    `json:"stayId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ItemDraft is the input for creating an item.
type ItemDraft struct {
	DayID       string   `json:"dayId"`
	TourID      string   `json:"tourId"`
	ItemType    ItemType `json:"itemType"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	StartTime   string   `json:"startTime"`
	EndTime     string   `json:"endTime"`
	Location    string   `json:"location"`
	Notes       string   `json:"notes"`
	Color       string   `json:"color"`
	TastesID    string   `json:"tastesId"`
	RoutesID    string   `json:"routesId"`
	StayID      string   `json:"stayId"`
}

// Validate validates the item draft.
func (d ItemDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.DayID, validation.Required),
		validation.Field(&d.TourID, validation.Required),
		validation.Field(&d.ItemType, validation.Required, validation.In(itemTypes...)),
	)
}

// DraftFrom copies the payload of an existing item into a draft for dayID/tourID.
func DraftFrom(it Item, dayID, tourID string) ItemDraft {
	return ItemDraft{
		DayID:       dayID,
		TourID:      tourID,
		ItemType:    it.ItemType,
		Title:       it.Title,
		Description: it.Description,
		StartTime:   it.StartTime,
		EndTime:     it.EndTime,
		Location:    it.Location,
		Notes:       it.Notes,
		Color:       it.Color,
		TastesID:    it.TastesID,
		RoutesID:    it.RoutesID,
		StayID:      it.StayID,
	}
}

// ItemPatch lists the item fields a caller may change directly. Container and
// order fields are absent on purpose; they move only through move/reorder.
type ItemPatch struct {
	ItemType    *ItemType `json:"itemType"`
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	StartTime   *string   `json:"startTime"`
	EndTime     *string   `json:"endTime"`
	Location    *string   `json:"location"`
	Notes       *string   `json:"notes"`
	Color       *string   `json:"color"`
	TastesID    *string   `json:"tastesId"`
	RoutesID    *string   `json:"routesId"`
	StayID      *string   `json:"stayId"`
}

// Validate validates the item patch.
func (p ItemPatch) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.ItemType, validation.NilOrNotEmpty, validation.In(itemTypes...)),
	)
}

// IsEmpty reports whether the patch changes nothing.
func (p ItemPatch) IsEmpty() bool {
	return p.ItemType == nil && p.Title == nil && p.Description == nil &&
		p.StartTime == nil && p.EndTime == nil && p.Location == nil &&
		p.Notes == nil && p.Color == nil && p.TastesID == nil &&
		p.RoutesID == nil && p.StayID == nil
}

// ItemAssignment assigns a position to an item.
type ItemAssignment struct {
	ItemID      string `json:"itemId"`
	NewPosition int    `json:"newPosition"`
}

// MoveResult describes a completed move.
type MoveResult struct {
	Item      *Item  `json:"item"`
	FromDayID string `json:"fromDayId"`
	ToDayID   string `json:"toDayId"`
}

// ItemWithLinks is an item enriched with its resolved linked records.
type ItemWithLinks struct {
	Item
	Taste *LinkedRecord `json:"taste"`
	Route *LinkedRecord `json:"route"`
	Stay  *LinkedRecord `json:"stay"`
}
