package ratelimit

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

type Handler struct {
	limiter *Limiter
	configs *ConfigStore
}

func NewHandler(limiter *Limiter, configs *ConfigStore) *Handler {
	return &Handler{limiter: limiter, configs: configs}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/config", h.getConfig)
	r.Put("/config", h.putConfig)
	r.Delete("/config", h.deleteConfig)
	r.Get("/usage", h.usage)
	r.Post("/reset", h.reset)
	return r
}

type limitsBody struct {
	PerMinute int `json:"per_minute" validate:"required,min=1,max=10000"`
	PerHour   int `json:"per_hour" validate:"required,min=1,max=1000000"`
	PerDay    int `json:"per_day" validate:"required,min=1,max=10000000"`
}

func currentTenant(w http.ResponseWriter, r *http.Request) (*tenant.Tenant, bool) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpserver.RespondErr(w, nil, apierror.Unauthorized("no authenticated tenant"))
		return nil, false
	}
	return t, true
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	limits, err := h.configs.Effective(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, limitsBody{PerMinute: limits.PerMinute, PerHour: limits.PerHour, PerDay: limits.PerDay})
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var body limitsBody
	if !httpserver.DecodeAndValidate(w, r, &body) {
		return
	}
	limits := Limits{PerMinute: body.PerMinute, PerHour: body.PerHour, PerDay: body.PerDay}
	if err := h.configs.Update(r.Context(), t.ID, limits); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, body)
}

func (h *Handler) deleteConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	if err := h.configs.Delete(r.Context(), t.ID); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

func (h *Handler) usage(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	limits, err := h.configs.Effective(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	usage, err := h.limiter.Peek(r.Context(), t.ID, limits)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, usage)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	if err := h.limiter.Reset(r.Context(), t.ID); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, map[string]string{"status": "reset"})
}
