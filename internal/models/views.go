package models

// DayView is a day with its linked records and its ordered, linked items.
type DayView struct {
	DayWithLinks
	Items []ItemWithLinks `json:"items"`
}

// TourDay is one day of a tour itinerary with its ordered items.
type TourDay struct {
	Day
	Items []Item `json:"items"`
}

// TourView is a tour with its ordered days and their ordered items.
type TourView struct {
	Tour
	Days []TourDay `json:"days"`
}
