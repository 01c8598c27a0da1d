package searchplane

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/db"
	dbGoRedis "github.com/kailas-cloud/searchplane/internal/db/goredis"
	dbMemory "github.com/kailas-cloud/searchplane/internal/db/memory"
	dbRedis "github.com/kailas-cloud/searchplane/internal/db/redis"
	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/metrics"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	itemrepo "github.com/kailas-cloud/searchplane/internal/repository/item"
	"github.com/kailas-cloud/searchplane/internal/repository/journal"
	tokenrepo "github.com/kailas-cloud/searchplane/internal/repository/token"
	"github.com/kailas-cloud/searchplane/internal/usecase/auth"
	healthuc "github.com/kailas-cloud/searchplane/internal/usecase/health"
	itemuc "github.com/kailas-cloud/searchplane/internal/usecase/item"
	queryuc "github.com/kailas-cloud/searchplane/internal/usecase/query"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
)

const defaultReadinessTimeout = 10 * time.Second

// Pub/sub payload keys of the queued policies.
const (
	eventPayloadKey = "event"
	logPayloadKey   = "log"
)

// journalReader reads recent records of one kind.
type journalReader[T any] interface {
	Recent(ctx context.Context, ref domain.RepositoryReference, limit int64) ([]T, error)
}

type closer interface {
	Close() error
}

// Client is the searchplane SDK entry point. It runs the same pipeline as
// the server in process: commands are authorized, committed and journaled
// exactly as they would be over HTTP.
type Client struct {
	store     db.Store
	engine    closer
	pipeline  pipeline.Executor
	events    journalReader[domain.DomainEvent]
	logs      journalReader[domain.LogEntry]
	healthSvc healthUseCase
	superuser string
	obs       *observer
}

// New creates a Client and connects to the token store.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.driver == "" {
		return nil, errors.New("searchplane: store required (use WithRueidis, WithGoRedis or WithMemory)")
	}

	store, err := createStore(cfg)
	if err != nil {
		return nil, err
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("searchplane: store not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	c, err := wireClient(store, cfg, obs)
	if err != nil {
		store.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (db.Store, error) {
	switch cfg.driver {
	case driverRueidis:
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("searchplane: create rueidis store: %w", err)
		}
		return s, nil
	case driverGoRedis:
		s, err := dbGoRedis.NewStore(dbGoRedis.Config{
			Addrs:    cfg.addrs,
			Password: cfg.password,
		})
		if err != nil {
			return nil, fmt.Errorf("searchplane: create go-redis store: %w", err)
		}
		return s, nil
	case driverMemory:
		return dbMemory.New(), nil
	default:
		return nil, fmt.Errorf("searchplane: unknown driver %q", cfg.driver)
	}
}

func wireClient(store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	logger := zap.NewNop()

	var tokens tokenuc.Repository = tokenrepo.New(store, cfg.keyPrefix)
	if cfg.tokenCacheTTL > 0 {
		tokens = tokenrepo.NewCached(tokens, cfg.tokenCacheTTL, metrics.TokenCacheTotal)
	}
	authority := auth.NewAuthority(tokens, auth.Config{SuperuserToken: cfg.superuserToken}, logger)

	eventJournal := journal.NewEvents(store, cfg.keyPrefix, cfg.journalMaxLen)
	logJournal := journal.NewLogs(store, cfg.keyPrefix, cfg.journalMaxLen)

	events, err := pipeline.NewPolicy(cfg.eventsPolicy, pipeline.PolicyOptions[domain.DomainEvent]{
		Sink:       eventJournal,
		Publisher:  store,
		Channel:    cfg.eventsChannel,
		PayloadKey: eventPayloadKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("searchplane: events policy: %w", err)
	}
	logs, err := pipeline.NewPolicy(cfg.logsPolicy, pipeline.PolicyOptions[domain.LogEntry]{
		Sink:       logJournal,
		Publisher:  store,
		Channel:    cfg.logsChannel,
		PayloadKey: logPayloadKey,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("searchplane: logs policy: %w", err)
	}

	items := itemrepo.New(itemrepo.Config{Path: cfg.enginePath}, logger)

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

	return &Client{
		store:     store,
		engine:    items,
		pipeline:  p,
		events:    eventJournal,
		logs:      logJournal,
		healthSvc: healthuc.New(store, items),
		superuser: cfg.superuserToken,
		obs:       obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.engine != nil {
		_ = c.engine.Close()
	}
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks store connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", "", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Index returns the item and query service of one index, acting with token.
func (c *Client) Index(appID, indexID, token string) *IndexService {
	return &IndexService{
		ref:      domain.NewReference(appID, indexID),
		token:    token,
		pipeline: c.pipeline,
		events:   c.events,
		logs:     c.logs,
		obs:      c.obs,
	}
}

// Tokens returns the token management service of an app. Calls act with the
// superuser token set by WithSuperuserToken.
func (c *Client) Tokens(appID string) *TokenService {
	return &TokenService{
		ref:      domain.NewReference(appID, ""),
		token:    c.superuser,
		pipeline: c.pipeline,
		obs:      c.obs,
	}
}

// engineTransactor opens item repository units of work for the pipeline.
type engineTransactor struct {
	repo *itemrepo.Repo
}

func (t engineTransactor) Begin(ctx context.Context, ref domain.RepositoryReference) (context.Context, pipeline.Transaction) {
	return t.repo.Begin(ctx, ref)
}
