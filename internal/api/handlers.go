package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tourdesk/internal/itinerary"
	"github.com/starford/tourdesk/internal/models"
)

// Handler holds the itinerary route handlers.
type Handler struct {
	svc *itinerary.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *itinerary.Service) *Handler {
	return &Handler{svc: svc}
}

// --- Tours ---

// ListTours handles GET /api/tours.
//
//	@Summary	List tours
//	@Tags		tours
//	@Produce	json
//	@Success	200	{object}	ToursResponse
//	@Security	BearerAuth
//	@Router		/tours [get]
func (h *Handler) ListTours(w http.ResponseWriter, r *http.Request) {
	tours, err := h.svc.ListTours(r.Context())
	if err != nil {
		writeError(w, "list tours", err)
		return
	}
	writeJSON(w, http.StatusOK, ToursResponse{Tours: tours})
}

// CreateTour handles POST /api/tours.
//
//	@Summary	Create a tour
//	@Tags		tours
//	@Accept		json
//	@Produce	json
//	@Param		body	body		models.TourDraft	true	"Tour to create"
//	@Success	201		{object}	models.Tour
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tours [post]
func (h *Handler) CreateTour(w http.ResponseWriter, r *http.Request) {
	var draft models.TourDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	tour, err := h.svc.CreateTour(r.Context(), draft)
	if err != nil {
		writeError(w, "create tour", err)
		return
	}
	writeJSON(w, http.StatusCreated, tour)
}

// GetTour handles GET /api/tours/{tourID}. The response is the full
// itinerary: ordered days each with ordered items.
//
//	@Summary	Get a tour itinerary
//	@Tags		tours
//	@Produce	json
//	@Param		tourID	path		string	true	"Tour id"
//	@Success	200		{object}	models.TourView
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tours/{tourID} [get]
func (h *Handler) GetTour(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.TourView(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeError(w, "get tour", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// ListTourItems handles GET /api/tours/{tourID}/items.
func (h *Handler) ListTourItems(w http.ResponseWriter, r *http.Request) {
	byDay, err := h.svc.ListTourItems(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeError(w, "list tour items", err)
		return
	}
	writeJSON(w, http.StatusOK, TourItemsResponse{ItemsByDay: byDay})
}

// --- Days ---

// ListDays handles GET /api/tours/{tourID}/days.
//
//	@Summary	List a tour's days in logical order
//	@Tags		days
//	@Produce	json
//	@Param		tourID	path		string	true	"Tour id"
//	@Success	200		{object}	DaysResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tours/{tourID}/days [get]
func (h *Handler) ListDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.ListDays(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeError(w, "list days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// CreateDay handles POST /api/tours/{tourID}/days. The day is appended.
//
//	@Summary	Append a day to a tour
//	@Tags		days
//	@Accept		json
//	@Produce	json
//	@Param		tourID	path		string			true	"Tour id"
//	@Param		body	body		models.DayDraft	true	"Day to create"
//	@Success	201		{object}	models.Day
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tours/{tourID}/days [post]
func (h *Handler) CreateDay(w http.ResponseWriter, r *http.Request) {
	var draft models.DayDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.TourID = chi.URLParam(r, "tourID")
	day, err := h.svc.CreateDay(r.Context(), draft)
	if err != nil {
		writeError(w, "create day", err)
		return
	}
	writeJSON(w, http.StatusCreated, day)
}

// ReorderDays handles PUT /api/tours/{tourID}/days/order.
//
//	@Summary	Renumber every day of a tour
//	@Tags		days
//	@Accept		json
//	@Produce	json
//	@Param		tourID	path		string				true	"Tour id"
//	@Param		body	body		ReorderDaysRequest	true	"Full assignment set"
//	@Success	200		{object}	DaysResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/tours/{tourID}/days/order [put]
func (h *Handler) ReorderDays(w http.ResponseWriter, r *http.Request) {
	var req ReorderDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	days, err := h.svc.ReorderDays(r.Context(), chi.URLParam(r, "tourID"), req.Assignments)
	if err != nil {
		writeError(w, "reorder days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// CompactDays handles POST /api/tours/{tourID}/days/compact.
func (h *Handler) CompactDays(w http.ResponseWriter, r *http.Request) {
	days, err := h.svc.CompactDays(r.Context(), chi.URLParam(r, "tourID"))
	if err != nil {
		writeError(w, "compact days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// SwapDays handles POST /api/days/swap.
func (h *Handler) SwapDays(w http.ResponseWriter, r *http.Request) {
	var req SwapDaysRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	days, err := h.svc.SwapDays(r.Context(), req.DayIDA, req.DayIDB)
	if err != nil {
		writeError(w, "swap days", err)
		return
	}
	writeJSON(w, http.StatusOK, DaysResponse{Days: days})
}

// GetDay handles GET /api/days/{dayID}: the day with links and linked items.
//
//	@Summary	Get a day with its linked records and items
//	@Tags		days
//	@Produce	json
//	@Param		dayID	path		string	true	"Day id"
//	@Success	200		{object}	models.DayView
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/days/{dayID} [get]
func (h *Handler) GetDay(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.DayView(r.Context(), chi.URLParam(r, "dayID"))
	if err != nil {
		writeError(w, "get day", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// UpdateDay handles PATCH /api/days/{dayID}.
func (h *Handler) UpdateDay(w http.ResponseWriter, r *http.Request) {
	var patch models.DayPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	day, err := h.svc.UpdateDay(r.Context(), chi.URLParam(r, "dayID"), patch)
	if err != nil {
		writeError(w, "update day", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// DeleteDay handles DELETE /api/days/{dayID}.
func (h *Handler) DeleteDay(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteDay(r.Context(), chi.URLParam(r, "dayID")); err != nil {
		writeError(w, "delete day", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignDayLinks handles PUT /api/days/{dayID}/links.
//
//	@Summary	Replace a day's tastes, routes, hotel or tickets
//	@Tags		days
//	@Accept		json
//	@Produce	json
//	@Param		dayID	path		string			true	"Day id"
//	@Param		body	body		models.DayLinks	true	"Link sets to replace"
//	@Success	200		{object}	models.Day
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/days/{dayID}/links [put]
func (h *Handler) AssignDayLinks(w http.ResponseWriter, r *http.Request) {
	var links models.DayLinks
	if !decodeJSON(w, r, &links) {
		return
	}
	day, err := h.svc.AssignDayLinks(r.Context(), chi.URLParam(r, "dayID"), links)
	if err != nil {
		writeError(w, "assign day links", err)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// --- Items ---

// ListItems handles GET /api/days/{dayID}/items.
func (h *Handler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ListItems(r.Context(), chi.URLParam(r, "dayID"))
	if err != nil {
		writeError(w, "list items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// CreateItem handles POST /api/days/{dayID}/items. The item is appended.
//
//	@Summary	Append an item to a day
//	@Tags		items
//	@Accept		json
//	@Produce	json
//	@Param		dayID	path		string				true	"Day id"
//	@Param		body	body		models.ItemDraft	true	"Item to create"
//	@Success	201		{object}	models.Item
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/days/{dayID}/items [post]
func (h *Handler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var draft models.ItemDraft
	if !decodeJSON(w, r, &draft) {
		return
	}
	draft.DayID = chi.URLParam(r, "dayID")
	item, err := h.svc.CreateItem(r.Context(), draft)
	if err != nil {
		writeError(w, "create item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

// ReorderItems handles PUT /api/days/{dayID}/items/order.
func (h *Handler) ReorderItems(w http.ResponseWriter, r *http.Request) {
	var req ReorderItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	items, err := h.svc.ReorderItems(r.Context(), chi.URLParam(r, "dayID"), req.Assignments)
	if err != nil {
		writeError(w, "reorder items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// CompactItems handles POST /api/days/{dayID}/items/compact.
func (h *Handler) CompactItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.CompactItems(r.Context(), chi.URLParam(r, "dayID"))
	if err != nil {
		writeError(w, "compact items", err)
		return
	}
	writeJSON(w, http.StatusOK, ItemsResponse{Items: items})
}

// GetItem handles GET /api/items/{itemID}: the item with its linked records.
func (h *Handler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.svc.ItemWithLinks(r.Context(), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, "get item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// UpdateItem handles PATCH /api/items/{itemID}.
func (h *Handler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	var patch models.ItemPatch
	if !decodeJSON(w, r, &patch) {
		return
	}
	item, err := h.svc.UpdateItem(r.Context(), chi.URLParam(r, "itemID"), patch)
	if err != nil {
		writeError(w, "update item", err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/{itemID}.
func (h *Handler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteItem(r.Context(), chi.URLParam(r, "itemID")); err != nil {
		writeError(w, "delete item", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// MoveItem handles POST /api/items/{itemID}/move.
//
//	@Summary	Move an item to a day and position
//	@Tags		items
//	@Accept		json
//	@Produce	json
//	@Param		itemID	path		string			true	"Item id"
//	@Param		body	body		MoveItemRequest	true	"Target day and optional position"
//	@Success	200		{object}	models.MoveResult
//	@Failure	400		{object}	errResponse
//	@Failure	404		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/items/{itemID}/move [post]
func (h *Handler) MoveItem(w http.ResponseWriter, r *http.Request) {
	var req MoveItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	res, err := h.svc.MoveItem(r.Context(), chi.URLParam(r, "itemID"), req.NewDayID, req.NewPosition)
	if err != nil {
		writeError(w, "move item", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// DuplicateItem handles POST /api/items/{itemID}/duplicate.
func (h *Handler) DuplicateItem(w http.ResponseWriter, r *http.Request) {
	var req DuplicateItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	item, err := h.svc.DuplicateItem(r.Context(), chi.URLParam(r, "itemID"), req.TargetDayID)
	if err != nil {
		writeError(w, "duplicate item", err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}
