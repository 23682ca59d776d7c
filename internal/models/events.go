package models

// Change event types published after successful mutations.
const (
	EventDayCreated     = "day.created"
	EventDayUpdated     = "day.updated"
	EventDayDeleted     = "day.deleted"
	EventDayReordered   = "day.reordered"
	EventItemCreated    = "item.created"
	EventItemUpdated    = "item.updated"
	EventItemDeleted    = "item.deleted"
	EventItemMoved      = "item.moved"
	EventItemReordered  = "item.reordered"
	EventTourCreated    = "tour.created"
	EventTourUpdated    = "tour.updated"
	EventCatalogUpdated = "catalog.updated"
)

// Change describes one itinerary mutation.
type Change struct {
	Type   string `json:"-"`
	TourID string `json:"tourId,omitempty"`
	DayID  string `json:"dayId,omitempty"`
	ItemID string `json:"itemId,omitempty"`
}
