package searchplane

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures the Client.
type Option interface {
	apply(*clientConfig)
}

// optionFunc adapts a function to the Option interface.
type optionFunc func(*clientConfig)

func (f optionFunc) apply(c *clientConfig) { f(c) }

// Store drivers.
const (
	driverRueidis = "rueidis"
	driverGoRedis = "goredis"
	driverMemory  = "memory"
)

type clientConfig struct {
	driver   string
	addrs    []string
	password string

	enginePath     string
	keyPrefix      string
	superuserToken string
	tokenCacheTTL  time.Duration

	eventsPolicy  Policy
	logsPolicy    Policy
	eventsChannel string
	logsChannel   string
	journalMaxLen int64

	logger     *slog.Logger
	metricsReg prometheus.Registerer
}

func defaultConfig() *clientConfig {
	return &clientConfig{
		keyPrefix:     "searchplane:",
		eventsPolicy:  PolicyInline,
		logsPolicy:    PolicyInline,
		eventsChannel: "searchplane:events",
		logsChannel:   "searchplane:logs",
		journalMaxLen: 1000,
	}
}

// WithRueidis stores tokens and journals in Redis through rueidis.
func WithRueidis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverRueidis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithGoRedis stores tokens and journals in Redis through go-redis.
func WithGoRedis(addr, password string) Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverGoRedis
		c.addrs = []string{addr}
		c.password = password
	})
}

// WithMemory keeps tokens and journals in process. Nothing survives Close.
func WithMemory() Option {
	return optionFunc(func(c *clientConfig) {
		c.driver = driverMemory
		c.addrs = nil
	})
}

// WithEnginePath persists indexes under dir. By default indexes live in memory.
func WithEnginePath(dir string) Option {
	return optionFunc(func(c *clientConfig) {
		c.enginePath = dir
	})
}

// WithKeyPrefix sets the store key prefix. Default: "searchplane:".
func WithKeyPrefix(prefix string) Option {
	return optionFunc(func(c *clientConfig) {
		c.keyPrefix = prefix
	})
}

// WithSuperuserToken sets the admin token. Token management requires it.
func WithSuperuserToken(token string) Option {
	return optionFunc(func(c *clientConfig) {
		c.superuserToken = token
	})
}

// WithTokenCache caches token lookups for ttl.
func WithTokenCache(ttl time.Duration) Option {
	return optionFunc(func(c *clientConfig) {
		c.tokenCacheTTL = ttl
	})
}

// WithPolicies sets how domain events and log entries are handled.
// Default: both inline, journaled in the store.
func WithPolicies(events, logs Policy) Option {
	return optionFunc(func(c *clientConfig) {
		c.eventsPolicy = events
		c.logsPolicy = logs
	})
}

// WithChannels sets the pub/sub channels used by queued policies.
func WithChannels(events, logs string) Option {
	return optionFunc(func(c *clientConfig) {
		c.eventsChannel = events
		c.logsChannel = logs
	})
}

// WithJournalMaxLen caps each journal list. Default: 1000.
func WithJournalMaxLen(n int64) Option {
	return optionFunc(func(c *clientConfig) {
		c.journalMaxLen = n
	})
}

// WithLogger enables structured logging for SDK operations.
// Pass nil to disable (default). Uses standard library slog.
func WithLogger(l *slog.Logger) Option {
	return optionFunc(func(c *clientConfig) {
		c.logger = l
	})
}

// WithPrometheus registers SDK metrics (operation counts and durations)
// on the given registerer. Pass nil to disable (default).
func WithPrometheus(reg prometheus.Registerer) Option {
	return optionFunc(func(c *clientConfig) {
		c.metricsReg = reg
	})
}
