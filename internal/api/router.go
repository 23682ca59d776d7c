package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tourdesk/internal/catalog"
	"github.com/starford/tourdesk/internal/itinerary"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// cat may be nil when no catalog directory is configured.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *itinerary.Service, cat *catalog.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/tours", func(r chi.Router) {
		r.Get("/", h.ListTours)
		r.Post("/", h.CreateTour)
		r.Route("/{tourID}", func(r chi.Router) {
			r.Get("/", h.GetTour)
			r.Get("/days", h.ListDays)
			r.Post("/days", h.CreateDay)
			r.Put("/days/order", h.ReorderDays)
			r.Post("/days/compact", h.CompactDays)
			r.Get("/items", h.ListTourItems)
		})
	})

	r.Post("/days/swap", h.SwapDays)
	r.Route("/days/{dayID}", func(r chi.Router) {
		r.Get("/", h.GetDay)
		r.Patch("/", h.UpdateDay)
		r.Delete("/", h.DeleteDay)
		r.Put("/links", h.AssignDayLinks)
		r.Get("/items", h.ListItems)
		r.Post("/items", h.CreateItem)
		r.Put("/items/order", h.ReorderItems)
		r.Post("/items/compact", h.CompactItems)
	})

	r.Route("/items/{itemID}", func(r chi.Router) {
		r.Get("/", h.GetItem)
		r.Patch("/", h.UpdateItem)
		r.Delete("/", h.DeleteItem)
		r.Post("/move", h.MoveItem)
		r.Post("/duplicate", h.DuplicateItem)
	})

	if cat != nil {
		ch := NewCatalogHandler(cat)
		r.Get("/catalog/search", ch.Search)
		r.Get("/catalog/{kind}", ch.List)
		r.Put("/catalog/{kind}/{id}", ch.Put)
		r.Delete("/catalog/{kind}/{id}", ch.Delete)
	}

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
