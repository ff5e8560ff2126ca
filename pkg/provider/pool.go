package provider

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relaymesh/llmgate/pkg/providerconfig"
)

// Factory builds a Client for one provider config's decrypted key and base
// URL. Supplied by the caller so pool stays independent of concrete adapter
// constructors.
type Factory func(providerName, apiKey, baseURL string) (Client, error)

// DefaultFactory builds the adapter matching providerconfig.ProviderConfig's
// Provider field against the five supported upstreams.
func DefaultFactory(providerName, apiKey, baseURL string) (Client, error) {
	switch providerName {
	case "openai":
		return NewOpenAI(apiKey, baseURL), nil
	case "anthropic":
		return NewAnthropic(apiKey, baseURL), nil
	case "mistral":
		return NewMistral(apiKey, baseURL), nil
	case "groq":
		return NewGroq(apiKey, baseURL), nil
	case "google":
		return NewGoogle(apiKey, baseURL), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", providerName)
	}
}

// Attempt records the outcome of trying one provider config within a Call.
type Attempt struct {
	Provider string
	Err      error
}

// Pool resolves decrypted keys from a tenant's enabled provider configs and
// calls each, in order, until one succeeds, a bad-request error surfaces a
// caller-facing failure, or the configs are exhausted.
type Pool struct {
	configs *providerconfig.Service
	factory Factory
	logger  *slog.Logger
}

func NewPool(configs *providerconfig.Service, factory Factory, logger *slog.Logger) *Pool {
	if factory == nil {
		factory = DefaultFactory
	}
	return &Pool{configs: configs, factory: factory, logger: logger}
}

// ErrExhausted is returned when every eligible provider config failed with a
// retriable error.
var ErrExhausted = errors.New("provider pool exhausted")

// Result is the outcome of a successful Call.
type Result struct {
	Response ChatResponse
	Provider string
	Attempts []Attempt
}

// Call tries configs in the order given (the caller is responsible for
// ordering by priority/preference), skipping any config that can't build a
// client for the requested model and stopping at the first config that
// either succeeds or fails with a bad-request error. Transient, rate-limited,
// and auth failures all fall through to the next config instead.
func (p *Pool) Call(ctx context.Context, configs []*providerconfig.ProviderConfig, model string, req ChatRequest) (Result, error) {
	var attempts []Attempt

	for _, cfg := range configs {
		key, err := p.configs.ResolveKey(cfg)
		if err != nil {
			attempts = append(attempts, Attempt{Provider: cfg.Provider, Err: err})
			continue
		}

		client, err := p.factory(cfg.Provider, key, cfg.BaseURL)
		if err != nil {
			attempts = append(attempts, Attempt{Provider: cfg.Provider, Err: err})
			continue
		}
		if !client.Supports(model) {
			continue
		}

		req.Model = model
		resp, err := client.ChatComplete(ctx, req)
		if err == nil {
			return Result{Response: resp, Provider: cfg.Provider, Attempts: attempts}, nil
		}

		attempts = append(attempts, Attempt{Provider: cfg.Provider, Err: err})

		var classified *Error
		if errors.As(err, &classified) {
			if p.logger != nil {
				p.logger.Warn("provider call failed",
					"provider", cfg.Provider, "kind", classified.Kind, "status", classified.StatusCode)
			}
			if classified.Kind == KindBadRequest {
				return Result{}, &PoolError{Attempts: attempts, Final: classified}
			}
			// Transient, rate-limited, and auth failures all advance to the
			// next config: an invalid key on one provider config doesn't mean
			// the tenant's other configs are bad too.
			continue
		}

		// Unclassified error (e.g. a caller-cancelled context): don't mask it
		// as exhaustion, but also don't keep burning configs against it.
		return Result{}, &PoolError{Attempts: attempts, Final: err}
	}

	if len(attempts) == 0 {
		return Result{}, fmt.Errorf("no provider config supports model %q", model)
	}
	return Result{}, &PoolError{Attempts: attempts, Final: ErrExhausted}
}

// PoolError wraps every attempt made during a Call along with the error that
// ended the loop, so the caller (pipeline) can log the full failover trail.
type PoolError struct {
	Attempts []Attempt
	Final    error
}

func (e *PoolError) Error() string {
	return fmt.Sprintf("provider pool: %d attempt(s), final: %v", len(e.Attempts), e.Final)
}

func (e *PoolError) Unwrap() error { return e.Final }
