package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"github.com/relaymesh/llmgate/internal/auth"
	"github.com/relaymesh/llmgate/internal/config"
	"github.com/relaymesh/llmgate/internal/httpserver"
	"github.com/relaymesh/llmgate/internal/platform"
	"github.com/relaymesh/llmgate/internal/telemetry"
	"github.com/relaymesh/llmgate/pkg/alertengine"
	"github.com/relaymesh/llmgate/pkg/cache"
	"github.com/relaymesh/llmgate/pkg/notify"
	"github.com/relaymesh/llmgate/pkg/pipeline"
	"github.com/relaymesh/llmgate/pkg/provider"
	"github.com/relaymesh/llmgate/pkg/providerconfig"
	"github.com/relaymesh/llmgate/pkg/ratelimit"
	"github.com/relaymesh/llmgate/pkg/tenant"
	"github.com/relaymesh/llmgate/pkg/usage"
)

// Run is the main application entry point. It reads config, connects to
// infrastructure, and starts the appropriate mode (api or worker).
func Run(ctx context.Context, cfg *config.Config) error {
	logger := telemetry.NewLogger(cfg.LogFormat, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting llmgate",
		"mode", cfg.Mode,
		"listen", cfg.ListenAddr(),
	)

	db, err := platform.NewPostgresPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()

	rdb, err := platform.NewRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			logger.Error("closing redis", "error", err)
		}
	}()

	if err := platform.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	logger.Info("migrations applied")

	metricsReg := telemetry.NewMetricsRegistry()

	deps, err := wire(cfg, logger, db, rdb)
	if err != nil {
		return fmt.Errorf("wiring dependencies: %w", err)
	}

	switch cfg.Mode {
	case "api":
		return runAPI(ctx, cfg, logger, db, rdb, metricsReg, deps)
	case "worker":
		return runWorker(ctx, logger, deps)
	default:
		return fmt.Errorf("unknown mode: %s", cfg.Mode)
	}
}

// deps holds every service wired from infrastructure, shared between the
// api and worker run modes.
type deps struct {
	tenantSvc     *tenant.Service
	providerCfgs  *providerconfig.Service
	providerCold  *cache.ColdStore
	cache         *cache.Cache
	limiter       *ratelimit.Limiter
	rlConfigs     *ratelimit.ConfigStore
	pool          *provider.Pool
	usageStore    *usage.Store
	usageWriter   *usage.Writer
	ledger        *usage.Ledger
	pipeline      *pipeline.Pipeline
	alertConfigs  *alertengine.ConfigStore
	alertEngine   *alertengine.Engine
}

func wire(cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client) (*deps, error) {
	cipher, err := providerconfig.NewKeyCipher(cfg.ProviderKeyEncryptionKeyHex)
	if err != nil {
		return nil, fmt.Errorf("building provider key cipher: %w", err)
	}

	tenantSvc := tenant.NewService(tenant.NewStore(db))
	providerCfgs := providerconfig.NewService(providerconfig.NewStore(db), cipher)

	coldStore := cache.NewColdStore(db)
	respCache := cache.New(cache.NewHotStore(rdb), coldStore, cfg.HotCacheTTL, logger)

	rlConfigs := ratelimit.NewConfigStore(db, ratelimit.Limits{
		PerMinute: cfg.DefaultRateLimitPerMinute,
		PerHour:   cfg.DefaultRateLimitPerHour,
		PerDay:    cfg.DefaultRateLimitPerDay,
	})
	limiter := ratelimit.New(rdb, logger)

	pool := provider.NewPool(providerCfgs, provider.DefaultFactory, logger)

	usageStore := usage.NewStore(db)
	usageWriter := usage.NewWriter(usageStore, logger)
	ledger := usage.NewLedger(usageStore)

	pl := pipeline.New(limiter, rlConfigs, respCache, providerCfgs, pool, usageWriter, logger)

	alertConfigs := alertengine.NewConfigStore(db)
	alertEngine := alertengine.NewEngine(alertConfigs, ledger, logger, cfg.AlertEvalInterval,
		senderFor(cfg), rateLimitFraction(limiter, rlConfigs))

	return &deps{
		tenantSvc:    tenantSvc,
		providerCfgs: providerCfgs,
		providerCold: coldStore,
		cache:        respCache,
		limiter:      limiter,
		rlConfigs:    rlConfigs,
		pool:         pool,
		usageStore:   usageStore,
		usageWriter:  usageWriter,
		ledger:       ledger,
		pipeline:     pl,
		alertConfigs: alertConfigs,
		alertEngine:  alertEngine,
	}, nil
}

// senderFor builds the notify.Sender matching one alert channel's kind and
// JSON-encoded configuration blob. Slack and webhook channels carry their
// own destination in Config; email channels fall back to the process-wide
// SMTP settings when a field is left unset, matching how an operator who
// has already configured SMTP expects per-tenant email alerts to "just work".
func senderFor(cfg *config.Config) func(*alertengine.Channel) (notify.Sender, error) {
	return func(ch *alertengine.Channel) (notify.Sender, error) {
		switch ch.Kind {
		case alertengine.ChannelSlack:
			var body struct {
				WebhookURL string `json:"webhook_url"`
			}
			if err := json.Unmarshal(ch.Config, &body); err != nil {
				return nil, fmt.Errorf("decoding slack channel config: %w", err)
			}
			url := body.WebhookURL
			if url == "" {
				url = cfg.SlackWebhookURL
			}
			if url == "" {
				return nil, errors.New("slack channel has no webhook URL configured")
			}
			return notify.NewSlackSender(url), nil

		case alertengine.ChannelEmail:
			var ec notify.EmailConfig
			if err := json.Unmarshal(ch.Config, &ec); err != nil {
				return nil, fmt.Errorf("decoding email channel config: %w", err)
			}
			if ec.Host == "" {
				ec.Host = cfg.SMTPHost
			}
			if ec.Port == 0 {
				ec.Port = cfg.SMTPPort
			}
			if ec.Username == "" {
				ec.Username = cfg.SMTPUsername
			}
			if ec.Password == "" {
				ec.Password = cfg.SMTPPassword
			}
			if ec.From == "" {
				ec.From = cfg.SMTPFrom
			}
			if ec.Host == "" || ec.To == "" {
				return nil, errors.New("email channel missing host or recipient")
			}
			return notify.NewEmailSender(ec), nil

		case alertengine.ChannelWebhook:
			var body struct {
				URL     string            `json:"url"`
				Headers map[string]string `json:"headers"`
			}
			if err := json.Unmarshal(ch.Config, &body); err != nil {
				return nil, fmt.Errorf("decoding webhook channel config: %w", err)
			}
			if body.URL == "" {
				return nil, errors.New("webhook channel has no URL configured")
			}
			return notify.NewWebhookSender(body.URL, body.Headers), nil

		default:
			return nil, fmt.Errorf("unknown alert channel kind %q", ch.Kind)
		}
	}
}

// rateLimitFraction reports the highest utilization fraction across a
// tenant's three rate-limit windows, the signal the rate-limit-fraction
// alert threshold watches.
func rateLimitFraction(limiter *ratelimit.Limiter, rlConfigs *ratelimit.ConfigStore) func(context.Context, uuid.UUID) (float64, error) {
	return func(ctx context.Context, tenantID uuid.UUID) (float64, error) {
		limits, err := rlConfigs.Effective(ctx, tenantID)
		if err != nil {
			return 0, fmt.Errorf("loading rate limits: %w", err)
		}
		usages, err := limiter.Peek(ctx, tenantID, limits)
		if err != nil {
			return 0, fmt.Errorf("reading rate limit usage: %w", err)
		}
		var max float64
		for _, u := range usages {
			if u.Limit == 0 {
				continue
			}
			fraction := float64(u.Used) / float64(u.Limit)
			if fraction > max {
				max = fraction
			}
		}
		return max, nil
	}
}

func runAPI(ctx context.Context, cfg *config.Config, logger *slog.Logger, db *pgxpool.Pool, rdb *redis.Client, metricsReg *prometheus.Registry, d *deps) error {
	srv := httpserver.NewServer(cfg, logger, db, rdb, metricsReg)

	// Tenant registration is unauthenticated, since it's how a tenant first
	// obtains an API key.
	srv.Router.Mount("/tenants", tenant.NewHandler(d.tenantSvc).Routes())

	srv.APIRouter.Use(auth.Middleware(d.tenantSvc, logger))
	srv.APIRouter.Mount("/providers", providerconfig.NewHandler(d.providerCfgs).Routes())
	srv.APIRouter.Mount("/ratelimit", ratelimit.NewHandler(d.limiter, d.rlConfigs).Routes())
	srv.APIRouter.Mount("/cache", cache.NewHandler(d.cache, d.providerCold).Routes())
	srv.APIRouter.Mount("/", pipeline.NewHandler(d.pipeline).Routes())
	srv.APIRouter.Mount("/analytics", usage.NewHandler(d.ledger).Routes())
	srv.APIRouter.Mount("/alerts/channels", alertengine.NewHandler(d.alertConfigs).ChannelRoutes())
	srv.APIRouter.Mount("/alerts/configs", alertengine.NewHandler(d.alertConfigs).ConfigRoutes())

	d.usageWriter.Start(ctx)
	defer d.usageWriter.Close()

	httpSrv := &http.Server{
		Addr:         cfg.ListenAddr(),
		Handler:      srv,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.ProviderRequestTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("api server listening", "addr", cfg.ListenAddr())
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func runWorker(ctx context.Context, logger *slog.Logger, d *deps) error {
	logger.Info("worker started")

	d.usageWriter.Start(ctx)
	defer d.usageWriter.Close()

	return d.alertEngine.Run(ctx)
}
