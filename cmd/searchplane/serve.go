package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/config"
	"github.com/kailas-cloud/searchplane/internal/db"
	dbGoRedis "github.com/kailas-cloud/searchplane/internal/db/goredis"
	dbMemory "github.com/kailas-cloud/searchplane/internal/db/memory"
	dbRedis "github.com/kailas-cloud/searchplane/internal/db/redis"
	"github.com/kailas-cloud/searchplane/internal/domain"
	logpkg "github.com/kailas-cloud/searchplane/internal/logger"
	"github.com/kailas-cloud/searchplane/internal/metrics"
	"github.com/kailas-cloud/searchplane/internal/notify"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	itemrepo "github.com/kailas-cloud/searchplane/internal/repository/item"
	"github.com/kailas-cloud/searchplane/internal/repository/journal"
	tokenrepo "github.com/kailas-cloud/searchplane/internal/repository/token"
	chiTransport "github.com/kailas-cloud/searchplane/internal/transport/chi"
	wsTransport "github.com/kailas-cloud/searchplane/internal/transport/ws"
	"github.com/kailas-cloud/searchplane/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/searchplane/internal/usecase/health"
	itemuc "github.com/kailas-cloud/searchplane/internal/usecase/item"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
	"github.com/kailas-cloud/searchplane/internal/version"
)

// Pub/sub payload keys of the queued policies.
const (
	eventPayloadKey = "event"
	logPayloadKey   = "log"
)

func runServe(ctx context.Context, env string) error {
	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting searchplane server",
		zap.String("version", version.String()),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("engine_path", cfg.Engine.Path),
	)

	store, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to create database store: %w", err)
	}
	defer store.Close()

	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		return fmt.Errorf("database not ready: %w", err)
	}
	logger.Info("Connected to database")

	metrics.Register()

	a, err := newApp(cfg, store, logger)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.startBridges(ctx)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      a.handler,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("Received shutdown signal")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	// Open sockets are hijacked and not tracked by Shutdown.
	a.closeConnections()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

func openStore(cfg config.DatabaseConfig) (db.Store, error) {
	switch cfg.Driver {
	case config.DriverRueidis:
		return dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
	case config.DriverGoRedis:
		return dbGoRedis.NewStore(dbGoRedis.Config{Addrs: cfg.Addrs, Password: cfg.Password})
	case config.DriverMemory:
		return dbMemory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// app is the wired server, independent of process concerns.
type app struct {
	handler  http.Handler
	items    *itemrepo.Repo
	registry *notify.Registry
	bridges  []*notify.Bridge
	logger   *zap.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
}

func newApp(cfg config.Config, store db.Store, logger *zap.Logger) (*app, error) {
	var tokens tokenuc.Repository = tokenrepo.New(store, cfg.Storage.KeyPrefix)
	if cfg.Auth.CacheTTLSec > 0 {
		tokens = tokenrepo.NewCached(tokens, time.Duration(cfg.Auth.CacheTTLSec)*time.Second, metrics.TokenCacheTotal)
	}
	authority := auth.NewAuthority(tokens, auth.Config{
		SuperuserToken:   cfg.Auth.SuperuserToken,
		HealthCheckToken: cfg.Auth.HealthCheckToken,
	}, logger)

	events, err := pipeline.NewPolicy(pipeline.PolicyMode(cfg.Pipeline.EventsPolicy), pipeline.PolicyOptions[domain.DomainEvent]{
		Sink:       journal.NewEvents(store, cfg.Storage.KeyPrefix, cfg.Pipeline.JournalMaxLen),
		Publisher:  store,
		Channel:    cfg.Pipeline.EventsChannel,
		PayloadKey: eventPayloadKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("events policy: %w", err)
	}
	logs, err := pipeline.NewPolicy(pipeline.PolicyMode(cfg.Pipeline.LogsPolicy), pipeline.PolicyOptions[domain.LogEntry]{
		Sink:       journal.NewLogs(store, cfg.Storage.KeyPrefix, cfg.Pipeline.JournalMaxLen),
		Publisher:  store,
		Channel:    cfg.Pipeline.LogsChannel,
		PayloadKey: logPayloadKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("logs policy: %w", err)
	}

	items := itemrepo.New(itemrepo.Config{Path: cfg.Engine.Path}, logger)

	router := pipeline.NewRouter()
	itemuc.New(items).Register(router)
	queryuc.New(items).Register(router)
	tokenuc.New(tokens).Register(router)

	p := pipeline.New(router, pipeline.Canonical(pipeline.Deps{
		Authorizer: authority,
		Transactor: engineTransactor{repo: items},
		Events:     events,
		Logs:       logs,
		Logger:     logger,
	})...)

	server := chiTransport.NewServer(p, healthuc.New(store, items), logger)

	a := &app{items: items, logger: logger}

	if cfg.Notifications.Enabled {
		a.registry = notify.NewRegistry(logger)
		server.WithNotifications(wsTransport.NewHandler(a.registry, authority, wsTransport.Config{
			AllowedOrigins: cfg.Notifications.AllowedOrigins,
			WriteTimeout:   time.Duration(cfg.Notifications.WriteTimeoutMs) * time.Millisecond,
			SendBuffer:     cfg.Notifications.SendBuffer,
			RequireToken:   cfg.Notifications.RequireToken,
		}, logger))

		for _, ch := range cfg.Notifications.Channels {
			b, err := notify.NewBridge(store, a.registry, notify.BridgeConfig{
				Channel:    ch.Name,
				PayloadKey: ch.PayloadKey,
			}, logger)
			if err != nil {
				_ = items.Close()
				return nil, fmt.Errorf("bridge %s: %w", ch.Name, err)
			}
			a.bridges = append(a.bridges, b)
		}
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r)
	a.handler = r

	return a, nil
}

// startBridges runs one bridge per configured channel until ctx is done or
// close is called.
func (a *app) startBridges(ctx context.Context) {
	ctx, a.cancel = context.WithCancel(ctx)
	for _, b := range a.bridges {
		a.wg.Add(1)
		go func(b *notify.Bridge) {
			defer a.wg.Done()
			b.Run(ctx)
		}(b)
	}
}

func (a *app) closeConnections() {
	if a.registry != nil {
		a.registry.CloseAll()
	}
}

func (a *app) close() {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.closeConnections()
	if err := a.items.Close(); err != nil {
		a.logger.Error("Error closing search engine", zap.Error(err))
	}
}

// engineTransactor opens item repository units of work for the pipeline.
type engineTransactor struct {
	repo *itemrepo.Repo
}

func (t engineTransactor) Begin(ctx context.Context, ref domain.RepositoryReference) (context.Context, pipeline.Transaction) {
	return t.repo.Begin(ctx, ref)
}
