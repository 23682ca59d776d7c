package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/tourdesk/internal/apperr"
	"github.com/starford/tourdesk/internal/catalog"
	"github.com/starford/tourdesk/internal/models"
)

// CatalogHandler serves the linked-record catalog.
type CatalogHandler struct {
	svc *catalog.Service
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(svc *catalog.Service) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func kindParam(w http.ResponseWriter, r *http.Request) (models.LinkedKind, bool) {
	raw := chi.URLParam(r, "kind")
	kind, ok := models.ParseLinkedKind(raw)
	if !ok {
		writeError(w, "catalog", apperr.Invalid("kind", "unknown kind %q", raw))
	}
	return kind, ok
}

// List handles GET /api/catalog/{kind}.
func (h *CatalogHandler) List(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	records, err := h.svc.List(r.Context(), kind)
	if err != nil {
		writeError(w, "list catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Records: records})
}

// Search handles GET /api/catalog/search?q=&limit=.
//
//	@Summary	Search linked records by name, location or description
//	@Tags		catalog
//	@Produce	json
//	@Param		q		query		string	true	"Search query"
//	@Param		limit	query		int		false	"Max results"
//	@Success	200		{object}	CatalogResponse
//	@Failure	400		{object}	errResponse
//	@Security	BearerAuth
//	@Router		/catalog/search [get]
func (h *CatalogHandler) Search(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), limit)
	if err != nil {
		writeError(w, "search catalog", err)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Records: records})
}

// Put handles PUT /api/catalog/{kind}/{id}.
func (h *CatalogHandler) Put(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	var req CatalogRecordRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	rec, err := h.svc.Put(r.Context(), models.LinkedRecord{
		Kind:        kind,
		ID:          chi.URLParam(r, "id"),
		Name:        req.Name,
		Location:    req.Location,
		URL:         req.URL,
		Description: req.Description,
		Attributes:  req.Attributes,
	})
	if err != nil {
		writeError(w, "put catalog record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/catalog/{kind}/{id}.
func (h *CatalogHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindParam(w, r)
	if !ok {
		return
	}
	if err := h.svc.Delete(r.Context(), kind, chi.URLParam(r, "id")); err != nil {
		writeError(w, "delete catalog record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
