// Package pipeline orchestrates one chat-completion request end to end:
// rate limiting, cache lookup, optional smart routing, provider failover,
// cost accounting, and usage logging.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/relaymesh/llmgate/internal/telemetry"
	"github.com/relaymesh/llmgate/pkg/cache"
	"github.com/relaymesh/llmgate/pkg/fingerprint"
	"github.com/relaymesh/llmgate/pkg/pricing"
	"github.com/relaymesh/llmgate/pkg/provider"
	"github.com/relaymesh/llmgate/pkg/providerconfig"
	"github.com/relaymesh/llmgate/pkg/ratelimit"
	"github.com/relaymesh/llmgate/pkg/router"
	"github.com/relaymesh/llmgate/pkg/tokenizer"
	"github.com/relaymesh/llmgate/pkg/usage"
)

// ErrRateLimited is returned when the tenant's request budget is exhausted.
var ErrRateLimited = errors.New("rate limit exceeded")

// ErrNoProviders is returned when a tenant has no enabled provider config at
// all. A tenant with enabled configs that simply don't cover the requested
// model instead surfaces the provider pool's own error: a plain "no provider
// config supports model" error when no config was attempted, or a PoolError
// carrying the per-attempt trail when some config was tried and failed.
var ErrNoProviders = errors.New("tenant has no enabled provider configs")

// Request is one inbound chat-completion call, independent of wire format.
type Request struct {
	Model       string
	Messages    []provider.Message
	Temperature *float64
	TopP        *float64
	MaxTokens   *int

	// Smart routing inputs, set only by the /v1/smart/completions path.
	SmartRoute   bool
	OptimizeFor  router.OptimizeFor
	MaxLatencyMS int
}

// Outcome is everything a caller needs to render a response and knows
// whether the call was served from cache.
type Outcome struct {
	Response        provider.ChatResponse
	Provider        string
	Model           string
	CacheSource     cache.Source
	Cost            float64
	RoutingDecision *usage.RoutingDecision
}

// Pipeline wires together the request-serving stages. Execute writes one
// usage record for a cache hit, a provider success, a provider failure, or a
// tenant with no enabled provider configs. It writes none when the rate
// limiter denies the request, when loading limits or provider configs fails,
// when smart routing finds no candidate, or when the caller's context is
// cancelled.
type Pipeline struct {
	limiter      *ratelimit.Limiter
	rlConfigs    *ratelimit.ConfigStore
	cache        *cache.Cache
	providerCfgs *providerconfig.Service
	pool         *provider.Pool
	usageWriter  *usage.Writer
	logger       *slog.Logger
}

func New(
	limiter *ratelimit.Limiter,
	rlConfigs *ratelimit.ConfigStore,
	c *cache.Cache,
	providerCfgs *providerconfig.Service,
	pool *provider.Pool,
	usageWriter *usage.Writer,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		limiter:      limiter,
		rlConfigs:    rlConfigs,
		cache:        c,
		providerCfgs: providerCfgs,
		pool:         pool,
		usageWriter:  usageWriter,
		logger:       logger,
	}
}

// Execute runs the full pipeline for one tenant request.
func (p *Pipeline) Execute(ctx context.Context, tenantID uuid.UUID, req Request) (Outcome, error) {
	start := time.Now()

	limits, err := p.rlConfigs.Effective(ctx, tenantID)
	if err != nil {
		return Outcome{}, fmt.Errorf("loading rate limits: %w", err)
	}
	if d := p.limiter.Check(ctx, tenantID, limits); !d.Allowed {
		return Outcome{}, ErrRateLimited
	}

	promptTokens := estimateTokens(req.Model, req.Messages)
	var routingDecision *usage.RoutingDecision
	model := req.Model

	// Loaded early only when smart routing needs it to filter candidates
	// down to the tenant's own enabled providers, and then reused for the
	// dispatch step. Without smart routing the configs are loaded only after
	// a cache miss.
	var preRoutingConfigs []*providerconfig.ProviderConfig

	if req.SmartRoute {
		preRoutingConfigs, err = p.providerCfgs.Enabled(ctx, tenantID)
		if err != nil {
			return Outcome{}, fmt.Errorf("loading provider configs: %w", err)
		}
		if len(preRoutingConfigs) == 0 {
			p.writeUsage(ctx, usage.Record{
				TenantID:    tenantID,
				Model:       model,
				Provider:    "none",
				LatencyMS:   int(time.Since(start).Milliseconds()),
				CacheSource: usage.CacheSourceNone,
				ErrorTag:    "no_providers",
			})
			return Outcome{}, ErrNoProviders
		}

		complexity := router.Classify(promptTokens, concatMessages(req.Messages))
		sel, err := router.Select(router.SelectionInput{
			Complexity:   complexity,
			OptimizeFor:  req.OptimizeFor,
			MaxLatencyMS: req.MaxLatencyMS,
			EnabledKinds: enabledKinds(preRoutingConfigs),
			PromptTokens: promptTokens,
		})
		if err != nil {
			return Outcome{}, fmt.Errorf("smart routing: %w", err)
		}
		model = sel.Model
		routingDecision = &usage.RoutingDecision{
			Complexity:   string(complexity),
			OptimizeFor:  string(req.OptimizeFor),
			ChosenModel:  fmt.Sprintf("%s/%s", sel.Provider, sel.Model),
			Alternatives: alternativeStrings(sel.Alternatives),
		}
	}

	fp := fingerprint.Hash(tenantID.String(), fingerprint.Request{
		Model:       model,
		Messages:    toFingerprintMessages(req.Messages),
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})

	if hit := p.cache.Lookup(ctx, tenantID, fp); hit.Hit {
		resp, err := decodeEnvelope(hit.Entry)
		if err != nil {
			p.logger.Warn("decoding cached response, treating as miss", "error", err)
		} else {
			p.writeUsage(ctx, usage.Record{
				TenantID:         tenantID,
				Model:            model,
				Provider:         "cache",
				PromptTokens:     hit.Entry.PromptTokens,
				CompletionTokens: hit.Entry.CompletionTokens,
				Cost:             0,
				LatencyMS:        int(time.Since(start).Milliseconds()),
				CacheSource:      mapCacheSource(hit.Source),
				Fingerprint:      fp,
				RoutingDecision:  routingDecision,
			})
			return Outcome{
				Response:        resp,
				Provider:        hit.Entry.SourceProvider,
				Model:           model,
				CacheSource:     hit.Source,
				RoutingDecision: routingDecision,
			}, nil
		}
	}

	configs := preRoutingConfigs
	if configs == nil {
		configs, err = p.providerCfgs.Enabled(ctx, tenantID)
		if err != nil {
			return Outcome{}, fmt.Errorf("loading provider configs: %w", err)
		}
	}
	if len(configs) == 0 {
		p.writeUsage(ctx, usage.Record{
			TenantID:    tenantID,
			Model:       model,
			Provider:    "none",
			LatencyMS:   int(time.Since(start).Milliseconds()),
			CacheSource: usage.CacheSourceNone,
			Fingerprint: fp,
			ErrorTag:    "no_providers",
		})
		return Outcome{}, ErrNoProviders
	}

	result, callErr := p.pool.Call(ctx, configs, model, provider.ChatRequest{
		Model:       model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	})
	if callErr != nil {
		if ctx.Err() != nil {
			return Outcome{}, ctx.Err() // caller cancelled; no usage record
		}
		p.writeUsage(ctx, usage.Record{
			TenantID:    tenantID,
			Model:       model,
			Provider:    "none",
			LatencyMS:   int(time.Since(start).Milliseconds()),
			CacheSource: usage.CacheSourceNone,
			Fingerprint: fp,
			ErrorTag:    classifyErrorTag(callErr),
		})
		return Outcome{}, fmt.Errorf("calling provider: %w", callErr)
	}

	if !result.Response.UsageReported {
		result.Response.PromptTokens = estimateTokens(model, req.Messages)
		if n, err := tokenizer.CountText(model, result.Response.Content); err == nil {
			result.Response.CompletionTokens = n
		} else {
			result.Response.CompletionTokens = len(result.Response.Content) / 4
		}
	}

	cost, costErr := pricing.Cost(result.Provider, model, result.Response.PromptTokens, result.Response.CompletionTokens)
	if costErr != nil {
		p.logger.Warn("no pricing entry, recording zero cost", "provider", result.Provider, "model", model)
	}

	envelope, err := json.Marshal(result.Response)
	if err != nil {
		p.logger.Warn("encoding response for cache fill", "error", err)
	}

	p.writeUsage(ctx, usage.Record{
		TenantID:         tenantID,
		Model:            model,
		Provider:         result.Provider,
		PromptTokens:     result.Response.PromptTokens,
		CompletionTokens: result.Response.CompletionTokens,
		Cost:             cost,
		LatencyMS:        int(time.Since(start).Milliseconds()),
		CacheSource:      usage.CacheSourceNone,
		Fingerprint:      fp,
		RoutingDecision:  routingDecision,
	})

	if envelope != nil {
		p.cache.Fill(ctx, tenantID, fp, cache.Entry{
			Envelope:         envelope,
			PromptTokens:     result.Response.PromptTokens,
			CompletionTokens: result.Response.CompletionTokens,
			Cost:             cost,
			SourceProvider:   result.Provider,
		})
	}

	telemetry.ProviderRequestsTotal.WithLabelValues(result.Provider, "success").Inc()
	telemetry.UsageCostTotal.WithLabelValues(tenantID.String()).Add(cost * 1e6)

	return Outcome{
		Response:        result.Response,
		Provider:        result.Provider,
		Model:           model,
		CacheSource:     cache.SourceNone,
		Cost:            cost,
		RoutingDecision: routingDecision,
	}, nil
}

func mapCacheSource(s cache.Source) usage.CacheSource {
	switch s {
	case cache.SourceHot:
		return usage.CacheSourceHot
	case cache.SourceCold:
		return usage.CacheSourceCold
	default:
		return usage.CacheSourceNone
	}
}

func decodeEnvelope(e cache.Entry) (provider.ChatResponse, error) {
	var resp provider.ChatResponse
	if err := json.Unmarshal(e.Envelope, &resp); err != nil {
		return provider.ChatResponse{}, fmt.Errorf("unmarshaling cached response: %w", err)
	}
	return resp, nil
}

func (p *Pipeline) writeUsage(ctx context.Context, r usage.Record) {
	if ctx.Err() != nil {
		return
	}
	p.usageWriter.Write(r)
}

func classifyErrorTag(err error) string {
	var poolErr *provider.PoolError
	if errors.As(err, &poolErr) {
		var classified *provider.Error
		if errors.As(poolErr.Final, &classified) {
			return string(classified.Kind)
		}
		if errors.Is(poolErr.Final, provider.ErrExhausted) {
			return "exhausted"
		}
	}
	return "unknown"
}

// estimateTokens counts prompt tokens with the tokenizer matched to model's
// family, falling back to a coarse chars-per-token heuristic if the
// tokenizer can't load an encoding (e.g. offline with no cached BPE file).
func estimateTokens(model string, messages []provider.Message) int {
	tkMessages := make([]tokenizer.Message, len(messages))
	for i, m := range messages {
		tkMessages[i] = tokenizer.Message{Role: m.Role, Content: m.Content}
	}
	if n, err := tokenizer.CountPromptTokens(model, tkMessages); err == nil {
		return n
	}
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4
}

func concatMessages(messages []provider.Message) string {
	var out []byte
	for _, m := range messages {
		out = append(out, m.Content...)
		out = append(out, ' ')
	}
	return string(out)
}

func toFingerprintMessages(messages []provider.Message) []fingerprint.Message {
	out := make([]fingerprint.Message, len(messages))
	for i, m := range messages {
		out[i] = fingerprint.Message{Role: m.Role, Content: m.Content}
	}
	return out
}

// enabledKinds reduces a tenant's enabled provider configs to the set the
// router filters candidates against, so routing never picks a model from a
// provider the tenant hasn't configured.
func enabledKinds(configs []*providerconfig.ProviderConfig) map[string]bool {
	out := make(map[string]bool, len(configs))
	for _, c := range configs {
		out[c.Provider] = true
	}
	return out
}

// EnabledProviderKinds exposes a tenant's enabled provider set for callers,
// such as the /smart/analyze preview endpoint, that need to filter router
// candidates without going through Execute.
func (p *Pipeline) EnabledProviderKinds(ctx context.Context, tenantID uuid.UUID) (map[string]bool, error) {
	configs, err := p.providerCfgs.Enabled(ctx, tenantID)
	if err != nil {
		return nil, fmt.Errorf("loading provider configs: %w", err)
	}
	return enabledKinds(configs), nil
}

func alternativeStrings(alts []router.Alternative) []string {
	out := make([]string, len(alts))
	for i, a := range alts {
		out[i] = fmt.Sprintf("%s/%s: %s", a.Provider, a.Model, a.ReasonRejected)
	}
	return out
}
