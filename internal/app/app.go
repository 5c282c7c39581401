// Package app wires the auth server from its configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	apartments "github.com/khaledahmed0918-sys/Apartments"
	"github.com/khaledahmed0918-sys/Apartments/audit/kafkasink"
	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/delivery"
	"github.com/khaledahmed0918-sys/Apartments/internal/clienttoken"
	"github.com/khaledahmed0918-sys/Apartments/internal/config"
	"github.com/khaledahmed0918-sys/Apartments/internal/httpapi"
	promexport "github.com/khaledahmed0918-sys/Apartments/metrics/export/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// App owns every long-lived resource of the server.
type App struct {
	cfg        *config.Config
	logger     *slog.Logger
	engine     *apartments.Engine
	httpServer *http.Server

	redis    *redis.Client
	devRedis *miniredis.Miniredis
	pool     *pgxpool.Pool
}

// NewApp connects the stores and builds the engine and HTTP handler. On
// error everything opened so far is closed.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if err := a.connectRedis(ctx); err != nil {
		return nil, err
	}

	builder := apartments.New().
		WithConfig(cfg.Engine()).
		WithRedis(a.redis).
		WithLogger(logger)

	if cfg.PostgresDSN != "" {
		store, err := a.connectPostgres(ctx)
		if err != nil {
			return nil, err
		}
		builder.WithCredentialStore(store)
	}

	if cfg.DeliveryURL != "" {
		d, err := delivery.NewHTTPDeliverer(delivery.HTTPConfig{
			Endpoint: cfg.DeliveryURL,
			APIKey:   cfg.DeliveryAPIKey,
			From:     cfg.DeliveryFrom,
			Timeout:  cfg.DeliveryTimeout,
			Breaker:  delivery.DefaultBreakerConfig(),
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("delivery: %w", err)
		}
		builder.WithDeliverer(d)
	}

	var sink apartments.AuditSink
	if cfg.AuditEnabled {
		if sink, err = a.auditSink(); err != nil {
			return nil, err
		}
		builder.WithAuditSink(sink)
	}

	a.engine, err = builder.Build()
	if err != nil {
		if c, ok := sink.(io.Closer); ok {
			_ = c.Close()
		}
		return nil, fmt.Errorf("build engine: %w", err)
	}

	tokens, err := clienttoken.NewManager(clienttoken.Config{
		TTL:    cfg.ClientTokenTTL,
		Key:    []byte(cfg.ClientTokenSecret),
		Issuer: cfg.ClientTokenIssuer,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("client tokens: %w", err)
	}

	deps := httpapi.Deps{
		Service: a.engine,
		Tokens:  tokens,
		Logger:  logger,
	}
	if cfg.MetricsEnabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			promexport.NewExporter(a.engine),
		)
		deps.Registerer = reg
		deps.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
	}

	router, err := httpapi.NewRouter(deps)
	if err != nil {
		return nil, err
	}

	a.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return a, nil
}

func (a *App) connectRedis(ctx context.Context) error {
	addr := a.cfg.RedisAddr
	if a.cfg.DevRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return fmt.Errorf("dev redis: %w", err)
		}
		a.devRedis = mr
		addr = mr.Addr()
		a.logger.Warn("using in-process redis, data is lost on exit", slog.String("addr", addr))
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: a.cfg.RedisPassword,
		DB:       a.cfg.RedisDB,
	})
	if err := a.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (a *App) connectPostgres(ctx context.Context) (*credentials.PostgresStore, error) {
	if a.cfg.PostgresMigrate {
		if err := credentials.MigrateDSN(ctx, a.cfg.PostgresDSN); err != nil {
			return nil, fmt.Errorf("migrate accounts: %w", err)
		}
	}

	pool, err := pgxpool.New(ctx, a.cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	a.pool = pool
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	a.logger.Info("accounts stored in postgres")
	return credentials.NewPostgresStore(pool), nil
}

func (a *App) auditSink() (apartments.AuditSink, error) {
	if len(a.cfg.KafkaBrokers) == 0 {
		return apartments.NewSlogSink(a.logger), nil
	}
	sink, err := kafkasink.New(kafkasink.DefaultConfig(a.cfg.KafkaBrokers, a.cfg.AuditTopic), a.logger)
	if err != nil {
		return nil, fmt.Errorf("audit sink: %w", err)
	}
	return sink, nil
}

// Handler returns the HTTP handler.
func (a *App) Handler() http.Handler {
	return a.httpServer.Handler
}

// Run serves HTTP until ctx is done or the listener fails, then shuts down.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server", slog.String("addr", a.httpServer.Addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown stops the HTTP server and releases every resource.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	var errs []error
	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("http shutdown: %w", err))
		}
	}
	a.close()

	a.logger.Info("shutdown complete")
	return errors.Join(errs...)
}

// close releases resources in reverse order of acquisition. Closing the
// engine flushes queued audit events and closes the sink.
func (a *App) close() {
	if a.engine != nil {
		if err := a.engine.Close(); err != nil {
			a.logger.Error("engine close", slog.String("error", err.Error()))
		}
		a.engine = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.redis != nil {
		_ = a.redis.Close()
		a.redis = nil
	}
	if a.devRedis != nil {
		a.devRedis.Close()
		a.devRedis = nil
	}
}
