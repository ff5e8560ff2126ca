package tenant

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/httpserver"
)

// Handler exposes tenant registration. Everything else in this package
// reaches the caller through the auth middleware, not direct CRUD.
type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.create)
	return r
}

type createRequest struct {
	Name         string `json:"name" validate:"required"`
	Slug         string `json:"slug" validate:"required"`
	DefaultModel string `json:"default_model"`
}

type createResponse struct {
	TenantID string `json:"tenant_id"`
	Slug     string `json:"slug"`
	APIKey   string `json:"api_key"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.svc.Register(r.Context(), req.Name, req.Slug, req.DefaultModel)
	if err != nil {
		httpserver.RespondErr(w, nil, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, createResponse{
		TenantID: result.Tenant.ID.String(),
		Slug:     result.Tenant.Slug,
		APIKey:   result.APIKey,
	})
}
