package alertengine

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

// Handler serves the CRUD surface for alert channels and threshold configs.
type Handler struct {
	configs *ConfigStore
}

func NewHandler(configs *ConfigStore) *Handler {
	return &Handler{configs: configs}
}

// ChannelRoutes mounts under /alerts/channels.
func (h *Handler) ChannelRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.listChannels)
	r.Post("/", h.createChannel)
	r.Delete("/{id}", h.deleteChannel)
	return r
}

// ConfigRoutes mounts under /alerts/configs.
func (h *Handler) ConfigRoutes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.getConfig)
	r.Put("/", h.putConfig)
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

type channelRequest struct {
	Kind    string          `json:"kind" validate:"required,oneof=slack email webhook"`
	Config  json.RawMessage `json:"config" validate:"required"`
	Enabled bool            `json:"enabled"`
}

type channelResponse struct {
	ID      uuid.UUID       `json:"id"`
	Kind    string          `json:"kind"`
	Config  json.RawMessage `json:"config"`
	Enabled bool            `json:"enabled"`
}

func (h *Handler) listChannels(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	channels, err := h.configs.ListChannels(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	out := make([]channelResponse, 0, len(channels))
	for _, c := range channels {
		out = append(out, channelResponse{ID: c.ID, Kind: string(c.Kind), Config: c.Config, Enabled: c.Enabled})
	}
	httpserver.Respond(w, http.StatusOK, out)
}

func (h *Handler) createChannel(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var req channelRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	c := &Channel{TenantID: t.ID, Kind: ChannelKind(req.Kind), Config: req.Config, Enabled: req.Enabled}
	if err := h.configs.CreateChannel(r.Context(), c); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusCreated, channelResponse{ID: c.ID, Kind: string(c.Kind), Config: c.Config, Enabled: c.Enabled})
}

func (h *Handler) deleteChannel(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.BadRequest("invalid channel id"))
		return
	}
	if err := h.configs.DeleteChannel(r.Context(), t.ID, id); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

type configRequest struct {
	DailyCost         *float64 `json:"daily_cost"`
	MonthlyCost       *float64 `json:"monthly_cost"`
	RateLimitFraction *float64 `json:"rate_limit_fraction" validate:"omitempty,min=0,max=1"`
	CacheHitFloor     *float64 `json:"cache_hit_floor" validate:"omitempty,min=0,max=1"`
	Enabled           bool     `json:"enabled"`
}

func (h *Handler) getConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	cfg, err := h.configs.GetConfig(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, configRequest{
		DailyCost: cfg.DailyCost, MonthlyCost: cfg.MonthlyCost,
		RateLimitFraction: cfg.RateLimitFraction, CacheHitFloor: cfg.CacheHitFloor,
		Enabled: cfg.Enabled,
	})
}

func (h *Handler) putConfig(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var req configRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	cfg := Config{
		TenantID: t.ID, DailyCost: req.DailyCost, MonthlyCost: req.MonthlyCost,
		RateLimitFraction: req.RateLimitFraction, CacheHitFloor: req.CacheHitFloor,
		Enabled: req.Enabled,
	}
	if err := h.configs.UpsertConfig(r.Context(), cfg); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, req)
}
