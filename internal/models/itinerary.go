// Package models defines the domain types for tourdesk.
package models

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// Order key bases: days are numbered from 1, items are positioned from 0.
const (
	FirstDayNumber = 1
	FirstPosition  = 0
)

// Tour is the root aggregate owning an ordered set of days.
type Tour struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate string    `json:"startDate,omitempty"`
	EndDate   string    `json:"endDate,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// TourDraft is the input for creating a tour.
type TourDraft struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// Validate validates the tour draft.
func (d TourDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Name, validation.Required),
		validation.Field(&d.StartDate, validation.Date(DateLayout)),
		validation.Field(&d.EndDate, validation.Date(DateLayout)),
	)
}

// Day belongs to exactly one tour. LogicalDayNumber is the presentation order
// and is dense within the tour; CalendarDate never changes after creation.
type Day struct {
	ID               string    `json:"id"`
	TourID           string    `json:"tourId"`
	CalendarDate     string    `json:"calendarDate"`
	LogicalDayNumber int       `json:"logicalDayNumber"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Schedule         string    `json:"schedule"`
	Notes            string    `json:"notes"`
	TastesIDs        []string  `json:"tastesIds"`
	RoutesIDs        []string  `json:"routesIds"`
	HotelID          string    `json:"hotelId,omitempty"`
	TicketIDs        []string  `json:"ticketIds"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

// DayDraft is the input for creating a day.
type DayDraft struct {
	TourID       string   `json:"tourId"`
	CalendarDate string   `json:"calendarDate"`
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Schedule     string   `json:"schedule"`
	Notes        string   `json:"notes"`
	TastesIDs    []string `json:"tastesIds"`
	RoutesIDs    []string `json:"routesIds"`
	HotelID      string   `json:"hotelId"`
	TicketIDs    []string `json:"ticketIds"`
}

// Validate validates the day draft.
func (d DayDraft) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.TourID, validation.Required),
		validation.Field(&d.CalendarDate, validation.Required, validation.Date(DateLayout)),
	)
}

// DayPatch lists the day fields a caller may change directly.
// Nil fields are left untouched.
type DayPatch struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Schedule    *string `json:"schedule"`
	Notes       *string `json:"notes"`
}

// IsEmpty reports whether the patch changes nothing.
func (p DayPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil && p.Schedule == nil && p.Notes == nil
}

// DayLinks carries link-set replacements for a day. Each non-nil key replaces
// the stored value entirely.
type DayLinks struct {
	TastesIDs *[]string `json:"tastesIds"`
	RoutesIDs *[]string `json:"routesIds"`
	HotelID   *string   `json:"hotelId"`
	TicketIDs *[]string `json:"ticketIds"`
}

// IsEmpty reports whether no link key was provided.
func (l DayLinks) IsEmpty() bool {
	return l.TastesIDs == nil && l.RoutesIDs == nil && l.HotelID == nil && l.TicketIDs == nil
}

// DayAssignment assigns a logical day number to a day.
type DayAssignment struct {
	DayID               string `json:"dayId"`
	NewLogicalDayNumber int    `json:"newLogicalDayNumber"`
}

// DayWithLinks is a day enriched with its resolved linked records.
type DayWithLinks struct {
	Day
	LinkedTastes  []LinkedRecord `json:"linkedTastes"`
	LinkedRoutes  []LinkedRecord `json:"linkedRoutes"`
	LinkedHotel   *LinkedRecord  `json:"linkedHotel"`
	LinkedTickets []LinkedRecord `json:"linkedTickets"`
}
