// Package notify fans tenant-scoped messages out to open duplex connections.
//
// Connections are grouped into buckets keyed by "appId~~indexId". A Bridge
// feeds the Registry from a pub/sub channel.
package notify

import (
	"encoding/json"
	"fmt"
	"sync"

	"go.jetify.com/typeid/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/metrics"
)

const handlePrefix = "conn"

// Conn is an open connection. Send must not block; it fails when the
// connection can no longer accept messages.
type Conn interface {
	Send(msg []byte) error
	Close() error
}

// Handle identifies a registered connection.
type Handle string

func newHandle() Handle {
	tid, err := typeid.Generate(handlePrefix)
	if err != nil {
		panic(fmt.Sprintf("notify: invalid handle prefix %q: %v", handlePrefix, err))
	}
	return Handle(tid.String())
}

// Registry tracks connections per bucket.
type Registry struct {
	logger *zap.Logger

	mu      sync.RWMutex
	buckets map[string]map[Handle]Conn
	owners  map[Handle]string
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		logger:  logger,
		buckets: make(map[string]map[Handle]Conn),
		owners:  make(map[Handle]string),
	}
}

// Add registers conn under ref's bucket and returns its handle.
func (r *Registry) Add(conn Conn, ref domain.RepositoryReference) Handle {
	h := newHandle()
	key := ref.Key()

	r.mu.Lock()
	bucket, ok := r.buckets[key]
	if !ok {
		bucket = make(map[Handle]Conn)
		r.buckets[key] = bucket
	}
	bucket[h] = conn
	r.owners[h] = key
	total := len(r.owners)
	r.mu.Unlock()

	metrics.NotifyConnectionsActive.Set(float64(total))
	r.logger.Debug("connection registered", zap.String("handle", string(h)), zap.String("bucket", key))
	return h
}

// Remove unregisters a connection. Unknown handles are ignored. It reports
// whether the handle was registered. The connection is not closed.
func (r *Registry) Remove(h Handle) bool {
	_, ok := r.detach(h)
	return ok
}

func (r *Registry) detach(h Handle) (Conn, bool) {
	r.mu.Lock()
	key, ok := r.owners[h]
	if !ok {
		r.mu.Unlock()
		return nil, false
	}
	bucket := r.buckets[key]
	conn := bucket[h]
	delete(bucket, h)
	if len(bucket) == 0 {
		delete(r.buckets, key)
	}
	delete(r.owners, h)
	total := len(r.owners)
	r.mu.Unlock()

	metrics.NotifyConnectionsActive.Set(float64(total))
	return conn, true
}

// Broadcast serializes payload once and sends it to every connection in
// ref's bucket. A connection whose send fails is removed and closed; the
// others still receive the message. Only serialization errors are returned.
// []byte and json.RawMessage payloads are sent as is.
func (r *Registry) Broadcast(ref domain.RepositoryReference, payload any) error {
	msg, err := encode(payload)
	if err != nil {
		return fmt.Errorf("encode broadcast: %w", err)
	}

	key := ref.Key()
	r.mu.RLock()
	bucket := r.buckets[key]
	targets := make(map[Handle]Conn, len(bucket))
	for h, c := range bucket {
		targets[h] = c
	}
	r.mu.RUnlock()

	metrics.NotifyBroadcastsTotal.Inc()

	for h, c := range targets {
		if err := c.Send(msg); err != nil {
			r.drop(h, err)
		}
	}
	return nil
}

func (r *Registry) drop(h Handle, cause error) {
	conn, ok := r.detach(h)
	if !ok {
		return
	}
	metrics.NotifyDroppedTotal.Inc()
	if err := conn.Close(); err != nil {
		r.logger.Debug("close dropped connection", zap.String("handle", string(h)), zap.Error(err))
	}
	r.logger.Info("connection dropped", zap.String("handle", string(h)), zap.Error(cause))
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.owners)
}

// CountBucket returns the number of connections in ref's bucket.
func (r *Registry) CountBucket(ref domain.RepositoryReference) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.buckets[ref.Key()])
}

// CloseAll closes and removes every connection.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	conns := make([]Conn, 0, len(r.owners))
	for _, bucket := range r.buckets {
		for _, c := range bucket {
			conns = append(conns, c)
		}
	}
	r.buckets = make(map[string]map[Handle]Conn)
	r.owners = make(map[Handle]string)
	r.mu.Unlock()

	metrics.NotifyConnectionsActive.Set(0)
	for _, c := range conns {
		_ = c.Close()
	}
}

func encode(payload any) ([]byte, error) {
	switch p := payload.(type) {
	case json.RawMessage:
		return p, nil
	case []byte:
		return p, nil
	default:
		return json.Marshal(payload)
	}
}
