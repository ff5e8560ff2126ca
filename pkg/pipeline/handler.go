package pipeline

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relaymesh/llmgate/internal/apierror"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/pkg/pricing"
	"github.com/relaymesh/llmgate/pkg/provider"
	"github.com/relaymesh/llmgate/pkg/router"
	"github.com/relaymesh/llmgate/pkg/tenant"
)

// Handler serves the OpenAI-compatible completion endpoint plus the smart
// routing surface layered on top of it.
type Handler struct {
	pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{pipeline: p}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/chat/completions", h.chatCompletions)
	r.Post("/smart/completions", h.smartCompletions)
	r.Post("/smart/analyze", h.smartAnalyze)
	r.Get("/smart/info", h.smartInfo)
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

type chatMessage struct {
	Role    string `json:"role" validate:"required"`
	Content string `json:"content" validate:"required"`
}

type chatCompletionRequest struct {
	Model       string        `json:"model" validate:"required"`
	Messages    []chatMessage `json:"messages" validate:"required,min=1"`
	Temperature *float64      `json:"temperature"`
	TopP        *float64      `json:"top_p"`
	MaxTokens   *int          `json:"max_tokens"`
}

type smartCompletionRequest struct {
	Messages     []chatMessage `json:"messages" validate:"required,min=1"`
	OptimizeFor  string        `json:"optimize_for" validate:"omitempty,oneof=cost latency quality"`
	MaxLatencyMS int           `json:"max_latency_ms"`
	Temperature  *float64      `json:"temperature"`
	TopP         *float64      `json:"top_p"`
	MaxTokens    *int          `json:"max_tokens"`
}

type chatCompletionChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatCompletionUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type chatCompletionResponse struct {
	Model           string                  `json:"model"`
	Provider        string                  `json:"provider"`
	Choices         []chatCompletionChoice  `json:"choices"`
	Usage           chatCompletionUsage     `json:"usage"`
	CacheSource     string                  `json:"cache_source"`
	Cost            float64                 `json:"cost_usd"`
	RoutingDecision *routingDecisionPayload `json:"routing_decision,omitempty"`
}

type routingDecisionPayload struct {
	Complexity   string   `json:"complexity"`
	OptimizeFor  string   `json:"optimize_for"`
	ChosenModel  string   `json:"chosen_model"`
	Alternatives []string `json:"alternatives,omitempty"`
}

func toMessages(in []chatMessage) []provider.Message {
	out := make([]provider.Message, len(in))
	for i, m := range in {
		out[i] = provider.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

func renderOutcome(o Outcome) chatCompletionResponse {
	resp := chatCompletionResponse{
		Model:    o.Model,
		Provider: o.Provider,
		Choices: []chatCompletionChoice{{
			Index:        0,
			Message:      chatMessage{Role: "assistant", Content: o.Response.Content},
			FinishReason: o.Response.FinishReason,
		}},
		Usage: chatCompletionUsage{
			PromptTokens:     o.Response.PromptTokens,
			CompletionTokens: o.Response.CompletionTokens,
			TotalTokens:      o.Response.PromptTokens + o.Response.CompletionTokens,
		},
		CacheSource: string(o.CacheSource),
		Cost:        o.Cost,
	}
	if o.RoutingDecision != nil {
		resp.RoutingDecision = &routingDecisionPayload{
			Complexity:   o.RoutingDecision.Complexity,
			OptimizeFor:  o.RoutingDecision.OptimizeFor,
			ChosenModel:  o.RoutingDecision.ChosenModel,
			Alternatives: o.RoutingDecision.Alternatives,
		}
	}
	return resp
}

func (h *Handler) chatCompletions(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var req chatCompletionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	outcome, err := h.pipeline.Execute(r.Context(), t.ID, Request{
		Model:       req.Model,
		Messages:    toMessages(req.Messages),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		respondPipelineErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, renderOutcome(outcome))
}

func (h *Handler) smartCompletions(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var req smartCompletionRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	optimizeFor := router.OptimizeFor(req.OptimizeFor)
	if optimizeFor == "" {
		optimizeFor = router.OptimizeCost
	}

	outcome, err := h.pipeline.Execute(r.Context(), t.ID, Request{
		Messages:     toMessages(req.Messages),
		Temperature:  req.Temperature,
		TopP:         req.TopP,
		MaxTokens:    req.MaxTokens,
		SmartRoute:   true,
		OptimizeFor:  optimizeFor,
		MaxLatencyMS: req.MaxLatencyMS,
	})
	if err != nil {
		respondPipelineErr(w, r, err)
		return
	}
	httpserver.Respond(w, http.StatusOK, renderOutcome(outcome))
}

type smartAnalyzeRequest struct {
	Messages     []chatMessage `json:"messages" validate:"required,min=1"`
	OptimizeFor  string        `json:"optimize_for" validate:"omitempty,oneof=cost latency quality"`
	MaxLatencyMS int           `json:"max_latency_ms"`
}

type smartAnalyzeResponse struct {
	Complexity   string                `json:"complexity"`
	Selection    smartSelectionPayload `json:"selection"`
	Alternatives []string              `json:"alternatives,omitempty"`
}

type smartSelectionPayload struct {
	Provider  string `json:"provider"`
	Model     string `json:"model"`
	Rationale string `json:"rationale"`
}

// smartAnalyze runs the classification and selection stages without
// dispatching a completion, letting a caller preview the router's choice.
func (h *Handler) smartAnalyze(w http.ResponseWriter, r *http.Request) {
	t, ok := currentTenant(w, r)
	if !ok {
		return
	}
	var req smartAnalyzeRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}
	optimizeFor := router.OptimizeFor(req.OptimizeFor)
	if optimizeFor == "" {
		optimizeFor = router.OptimizeCost
	}

	enabledKinds, err := h.pipeline.EnabledProviderKinds(r.Context(), t.ID)
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.Internal("loading provider configs"))
		return
	}
	if len(enabledKinds) == 0 {
		httpserver.RespondErr(w, nil, apierror.BadRequest("no enabled provider configs for this tenant"))
		return
	}

	messages := toMessages(req.Messages)
	promptTokens := estimateTokens("", messages)
	complexity := router.Classify(promptTokens, concatMessages(messages))

	sel, err := router.Select(router.SelectionInput{
		Complexity:   complexity,
		OptimizeFor:  optimizeFor,
		MaxLatencyMS: req.MaxLatencyMS,
		EnabledKinds: enabledKinds,
		PromptTokens: promptTokens,
	})
	if err != nil {
		httpserver.RespondErr(w, nil, apierror.BadRequest(err.Error()))
		return
	}

	httpserver.Respond(w, http.StatusOK, smartAnalyzeResponse{
		Complexity: string(complexity),
		Selection: smartSelectionPayload{
			Provider:  sel.Provider,
			Model:     sel.Model,
			Rationale: sel.Rationale,
		},
		Alternatives: alternativeStrings(sel.Alternatives),
	})
}

type modelInfo struct {
	Provider         string  `json:"provider"`
	Model            string  `json:"model"`
	TypicalLatencyMS int     `json:"typical_latency_ms"`
	QualityScore     float64 `json:"quality_score"`
}

// smartInfo lists every candidate model the router can choose among, for
// clients building their own optimize_for UI.
func (h *Handler) smartInfo(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentTenant(w, r); !ok {
		return
	}
	candidates := pricing.Candidates()
	out := make([]modelInfo, len(candidates))
	for i, c := range candidates {
		out[i] = modelInfo{
			Provider:         c.Provider,
			Model:            c.Model,
			TypicalLatencyMS: c.TypicalLatencyMS,
			QualityScore:     c.QualityScore,
		}
	}
	httpserver.Respond(w, http.StatusOK, out)
}

func respondPipelineErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrRateLimited):
		httpserver.RespondErr(w, nil, apierror.RateLimited("rate limit exceeded"))
	case errors.Is(err, ErrNoProviders):
		httpserver.RespondErr(w, nil, apierror.BadRequest("no enabled provider configs for this tenant"))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		httpserver.RespondErr(w, nil, apierror.New(499, "client_closed_request", "request cancelled"))
	default:
		var provErr *provider.Error
		if errors.As(err, &provErr) && provErr.Kind == provider.KindBadRequest {
			httpserver.RespondErr(w, nil, apierror.BadRequest(provErr.Error()))
			return
		}
		httpserver.RespondErr(w, nil, apierror.Unavailable("upstream providers unavailable"))
	}
}
