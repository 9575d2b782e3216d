package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/extra/redisotel/v9"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/chariotlab/atelier-api/internal/cart"
	"github.com/chariotlab/atelier-api/internal/catalog"
	"github.com/chariotlab/atelier-api/internal/config"
	"github.com/chariotlab/atelier-api/internal/events"
	"github.com/chariotlab/atelier-api/internal/health"
	"github.com/chariotlab/atelier-api/internal/invoice"
	"github.com/chariotlab/atelier-api/internal/lock"
	"github.com/chariotlab/atelier-api/internal/notice"
	"github.com/chariotlab/atelier-api/internal/obs"
	"github.com/chariotlab/atelier-api/internal/ratelimit"
	"github.com/chariotlab/atelier-api/internal/resilience"
	"github.com/chariotlab/atelier-api/internal/security"
	"github.com/chariotlab/atelier-api/internal/selection"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", "json")
	logLevel := envOrDefault("OBS_LOG_LEVEL", "info")
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "atelier")
	metricsEnabled := envBool("OBS_ENABLE_PROMETHEUS", true)
	obs.MustRegisterDomainMetrics(metricsNamespace, nil)

	tracingEnabled := envBool("OBS_ENABLE_TRACING", true)
	if tracingEnabled {
		sampling := envFloat("OBS_TRACING_SAMPLING_RATIO", 1.0)
		shutdown, err := obs.InitTracer(context.Background(), obs.TracingConfig{
			ServiceName:   "atelier-api",
			Endpoint:      envOrDefault("OBS_OTLP_ENDPOINT", ""),
			SamplingRatio: sampling,
			Environment:   cfg.AppEnv,
		})
		if err != nil {
			logger.Error().Err(err).Msg("initialise tracing")
			tracingEnabled = false
		} else {
			defer func() {
				ctx := context.Background()
				if err := shutdown(ctx); err != nil {
					logger.Error().Err(err).Msg("shutdown tracer")
				}
			}()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("parse redis url")
	}
	redisClient := redis.NewClient(redisOpts)
	if err := redisotel.InstrumentTracing(redisClient); err != nil {
		logger.Error().Err(err).Msg("instrument redis tracing")
	}
	if metricsEnabled {
		if err := redisotel.InstrumentMetrics(redisClient); err != nil {
			logger.Error().Err(err).Msg("instrument redis metrics")
		}
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("close redis")
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal().Err(err).Msg("ping redis")
	}

	feedBreaker := resilience.NewBreaker(5, 0.5, 30*time.Second).
		WithTarget("catalog-feed").
		WithLogger(logger)
	feedClient := resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Breaker:     feedBreaker,
		BaseBackoff: 200 * time.Millisecond,
		MaxAttempts: 3,
		Jitter:      0.2,
		Timeout:     cfg.CatalogFetchTO,
	}

	source := &catalog.Source{
		URL:    cfg.CatalogSourceURL,
		Client: feedClient,
		Logger: logger,
	}
	catalogService, err := catalog.NewService(catalog.ServiceConfig{
		Source:       source,
		Cache:        catalog.NewCache(redisClient, cfg.CatalogCacheTTL),
		DefaultLimit: cfg.CatalogPageSize,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise catalog service")
	}
	catalogHandler := catalog.NewHandler(catalogService)
	quoteHandler := selection.NewHandler(catalogService, cfg.CartMaxQuantity)

	bus := events.NewBus()
	registerObservers(bus, logger)

	cartStore := cart.NewStore(redisClient, 0, logger)
	cartService := cart.NewService(cartStore, catalogService, bus, cfg.CartMaxQuantity, logger)
	cartHandler := cart.NewHandler(cartService)

	logoClient := resilience.HTTPClient{
		Client: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		Breaker:     resilience.NewBreaker(5, 0.5, 30*time.Second).WithTarget("invoice-logo").WithLogger(logger),
		MaxAttempts: 2,
		Timeout:     5 * time.Second,
	}
	generator := &invoice.Generator{
		Logo: &invoice.LogoFetcher{
			URL:    cfg.InvoiceLogoURL,
			Client: logoClient,
			Logger: logger,
		},
		Logger: logger,
	}
	invoiceHandler := invoice.NewHandler(cartService, generator, bus, logger).
		WithLocker(&lock.Locker{R: redisClient})

	invoiceLimiter, err := ratelimit.NewRedisLimiter(redisClient, "ratelimit:invoice", cfg.InvoiceRateWindow, cfg.InvoiceRateMax)
	if err != nil {
		logger.Fatal().Err(err).Msg("initialise invoice rate limiter")
	}
	invoiceLimit := ratelimit.Handler{
		Limiter: invoiceLimiter,
		OnError: func(err error) {
			logger.Warn().Err(err).Msg("invoice rate limiter degraded, failing open")
		},
	}

	var httpMetrics *obs.HTTPMetrics
	if metricsEnabled {
		buckets := obs.ParseBucketsCSV(envOrDefault("OBS_METRICS_BUCKETS_MS", ""))
		httpMetrics = obs.NewHTTPMetrics(metricsNamespace, buckets, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(security.Headers{Enable: true, EnableHSTS: true}.Middleware)
	r.Use(security.BodyLimit{Max: int64(envInt("SECURE_MAX_BODY_BYTES", 1<<20))}.Middleware)
	r.Use(obs.RoutePatternMiddleware)
	if tracingEnabled {
		r.Use(obs.TracingMiddleware)
	}
	if metricsEnabled && httpMetrics != nil {
		r.Use(obs.HTTPObs{Metrics: httpMetrics}.Middleware)
	}
	r.Use(obs.RequestLogger{Logger: logger}.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins(cfg),
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", "If-Match"},
		ExposedHeaders:   []string{"X-Total-Count", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	if metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	healthHandler := health.Handler{
		Checker:        readinessChecker{redis: redisClient, feedURL: cfg.CatalogSourceURL, client: feedClient},
		RedisTimeout:   envDurationMillis("HEALTH_READY_REDIS_TIMEOUT_MS", 300),
		CatalogTimeout: envDurationMillis("HEALTH_READY_CATALOG_TIMEOUT_MS", 500),
	}
	r.Get("/health/live", healthHandler.Live)
	r.Get("/health/ready", healthHandler.Ready)

	r.Route("/api/v1", func(v chi.Router) {
		v.Get("/products", catalogHandler.Products)
		v.Get("/products/{id}", catalogHandler.ProductDetail)
		v.Post("/products/{id}/quote", quoteHandler.Quote)
		v.Get("/accessories", catalogHandler.Accessories)
		v.Get("/materials", catalogHandler.Materials)
		v.Get("/notice", notice.Get)

		v.Route("/carts", func(c chi.Router) {
			c.Post("/", cartHandler.Create)
			c.Get("/{id}", cartHandler.Get)
			c.Get("/{id}/count", cartHandler.Count)
			c.Post("/{id}/items", cartHandler.AddItem)
			c.Patch("/{id}/items/{index}", cartHandler.UpdateItem)
			c.Delete("/{id}/items/{index}", cartHandler.RemoveItem)
			c.With(invoiceLimit.Middleware).Get("/{id}/invoice", invoiceHandler.Download)
		})
	})

	srv := &http.Server{
		Addr:    cfg.HTTPAddr(),
		Handler: r,
	}

	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server exited unexpectedly")
		}
	}()

	stop, stopCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stopCancel()
	<-stop.Done()

	logger.Info().Msg("shutdown signal received, draining")
	health.SetReady(false)
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

// registerObservers attaches the default event subscribers: structured log
// lines for cart changes and emitted invoices.
func registerObservers(bus *events.Bus, logger zerolog.Logger) {
	_ = bus.Subscribe(events.TopicCartUpdated, func(ctx context.Context, ev events.Event) error {
		if payload, ok := ev.Payload.(cart.CartUpdated); ok {
			logger.Debug().Str("cart_id", payload.CartID).Int("count", payload.Count).Msg("cart updated")
		}
		return nil
	})
	_ = bus.Subscribe(events.TopicInvoiceEmitted, func(ctx context.Context, ev events.Event) error {
		if payload, ok := ev.Payload.(invoice.InvoiceEmitted); ok {
			logger.Info().
				Str("cart_id", payload.CartID).
				Int("order_number", payload.OrderNumber).
				Int("bytes", payload.Bytes).
				Msg("order form emitted")
		}
		return nil
	})
}

func allowedOrigins(cfg *config.Config) []string {
	if len(cfg.CORSAllowedOrigins) == 0 {
		return []string{"*"}
	}
	return cfg.CORSAllowedOrigins
}

type readinessChecker struct {
	redis   *redis.Client
	feedURL string
	client  resilience.HTTPClient
}

func (c readinessChecker) PingRedis(ctx context.Context, timeout time.Duration) error {
	if c.redis == nil {
		return errors.New("redis not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.redis.Ping(ctx).Err()
}

func (c readinessChecker) PingCatalog(ctx context.Context, timeout time.Duration) error {
	if c.feedURL == "" {
		return errors.New("catalog source not configured")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.feedURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(ctx, req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	if resp.StatusCode >= 500 {
		return errors.New("catalog source unhealthy: " + resp.Status)
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if val, ok := os.LookupEnv(key); ok {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "1", "t", "true", "yes", "on":
			return true
		case "0", "f", "false", "no", "off":
			return false
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(strings.TrimSpace(val)); err == nil {
			return parsed
		}
	}
	return fallback
}

func envDurationMillis(key string, fallback int) time.Duration {
	return time.Duration(envInt(key, fallback)) * time.Millisecond
}
