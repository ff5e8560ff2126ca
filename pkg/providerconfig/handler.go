package providerconfig

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Put("/{provider}", h.set)
	r.Delete("/{provider}", h.disable)
	return r
}

type configResponse struct {
	Provider string `json:"provider"`
	BaseURL  string `json:"base_url"`
	Priority int    `json:"priority"`
	Enabled  bool   `json:"enabled"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpserver.RespondErr(w, nil, apierror.Unauthorized("no authenticated tenant"))
		return
	}

	configs, err := h.svc.Enabled(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}

	out := make([]configResponse, 0, len(configs))
	for _, c := range configs {
		out = append(out, configResponse{Provider: c.Provider, BaseURL: c.BaseURL, Priority: c.Priority, Enabled: c.Enabled})
	}
	httpserver.Respond(w, http.StatusOK, out)
}

func (h *Handler) disable(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpserver.RespondErr(w, nil, apierror.Unauthorized("no authenticated tenant"))
		return
	}

	provider := chi.URLParam(r, "provider")
	if err := h.svc.Disable(r.Context(), t.ID, provider); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}
	httpserver.Respond(w, http.StatusNoContent, nil)
}

type setRequest struct {
	APIKey   string `json:"api_key" validate:"required"`
	BaseURL  string `json:"base_url"`
	Priority int    `json:"priority"`
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	t := tenant.FromContext(r.Context())
	if t == nil {
		httpserver.RespondErr(w, nil, apierror.Unauthorized("no authenticated tenant"))
		return
	}

	provider := chi.URLParam(r, "provider")

	var req setRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	if err := h.svc.Set(r.Context(), t.ID, provider, req.APIKey, req.BaseURL, req.Priority); err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]string{"provider": provider, "status": "configured"})
}
