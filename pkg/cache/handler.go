package cache

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

type Handler struct {
	cache *Cache
	cold  *ColdStore
}

func NewHandler(c *Cache, cold *ColdStore) *Handler {
	return &Handler{cache: c, cold: cold}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/stats", h.stats)
	r.Get("/duplicates", h.duplicates)
	r.Post("/clear", h.clear)
	return r
}

func currentTenant(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, bool) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpserver.RespondErr(w, nil, apierror.Unauthorized("no authenticated tenant"))
		return nil, false
	}
	return t, true
}

type statsResponse struct {
	Entries        int64   `json:"entries"`
	TotalHits      int64   `json:"total_hits"`
	EstimatedSaved float64 `json:"estimated_saved_usd"`
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	s, err := h.cache.Stats(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, statsResponse{Entries: s.Entries, TotalHits: s.TotalHits, EstimatedSaved: s.EstimatedSaved})
}

func (h *Handler) duplicates(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	limit := 10
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			limit = n
		}
	}
	rows, err := h.cold.TopDuplicates(r.Context(), t.ID, limit)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, rows)
}

type clearRequest struct {
	Scope string `json:"scope" validate:"omitempty,oneof=hot cold all"`
}

func (h *Handler) clear(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var body clearRequest
	if !httpserver.DecodeAndValidate(w, r, &body) {
		return
	}
	scope := body.Scope
	if scope == "" {
		scope = "all"
	}
	if err := h.cache.Clear(r.Context(), t.ID, scope); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "cleared", "scope": scope})
}
