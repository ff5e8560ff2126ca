package usage

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

const defaultRecommendationLimit = 10

// Handler serves the read-only analytics endpoints over the ledger.
type Handler struct {
	ledger *Ledger
}

func NewHandler(ledger *Ledger) *Handler {
	return &Handler{ledger: ledger}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/usage", h.usage)
	r.Get("/breakdown", h.breakdown)
	r.Get("/recommendations", h.recommendations)
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

// sinceParam parses the optional ?since=<RFC3339> query parameter, defaulting
// to the start of the current UTC calendar day.
func sinceParam(r *http.Request) (time.Time, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		now := time.Now().UTC()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse(time.RFC3339, raw)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.BadRequest("invalid since parameter, expected RFC3339 timestamp"))
		return
	}
	totals, err := h.ledger.Usage(r.Context(), t.ID, since)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, totals)
}

func (h *Handler) breakdown(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.BadRequest("invalid since parameter, expected RFC3339 timestamp"))
		return
	}
	rows, err := h.ledger.Breakdown(r.Context(), t.ID, since)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, rows)
}

func (h *Handler) recommendations(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	since, err := sinceParam(r)
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.BadRequest("invalid since parameter, expected RFC3339 timestamp"))
		return
	}

	limit := defaultRecommendationLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			httpserver.RespondErr(w, nil, apierror.BadRequest("invalid limit parameter"))
			return
		}
		limit = parsed
	}

	recs, err := h.ledger.Recommendations(r.Context(), t.ID, since, limit)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, recs)
}
