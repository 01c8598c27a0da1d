package pipeline

import (
	"context"
	"errors"
	"sync"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// --- Messages ---

type indexItems struct {
	Envelope
	Write
	Loggable
	IDs []string
}

func (*indexItems) MessageName() string { return "index_items" }

type search struct {
	Envelope
}

func (*search) MessageName() string { return "search" }

type putToken struct {
	Envelope
	Write
	Admin
}

func (*putToken) MessageName() string { return "put_token" }

type ping struct{}

func (ping) MessageName() string { return "ping" }

func newIndexItems(token string, ids ...string) *indexItems {
	return &indexItems{
		Envelope: NewEnvelope(domain.NewReference("app1", "idx1"), domain.Credentials{Token: token}),
		IDs:      ids,
	}
}

// --- Authorizer ---

type mockAuthorizer struct {
	valid      map[string]bool
	superuser  string
	writeCalls int
	readCalls  int
}

func (m *mockAuthorizer) check(ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	if !m.valid[creds.Token] {
		return domain.Token{}, domain.NewInvalidToken(domain.TokenUnknown, ref.AppID())
	}
	return domain.Token{UUID: creds.Token, AppID: ref.AppID()}, nil
}

func (m *mockAuthorizer) Validate(_ context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	m.readCalls++
	return m.check(ref, creds)
}

func (m *mockAuthorizer) ValidateWrite(_ context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	m.writeCalls++
	return m.check(ref, creds)
}

func (m *mockAuthorizer) IsSuperuser(tok domain.Token) bool {
	return m.superuser != "" && tok.UUID == m.superuser
}

// --- Transactor: an in-memory repository with per-dispatch buffers ---

type txKey struct{}

type memRepo struct {
	mu        sync.Mutex
	persisted map[string]bool
	commitErr error
	rollbacks int
}

func newMemRepo() *memRepo {
	return &memRepo{persisted: map[string]bool{}}
}

type memTx struct {
	repo    *memRepo
	pending []string
}

func (r *memRepo) Begin(ctx context.Context, _ domain.RepositoryReference) (context.Context, Transaction) {
	tx := &memTx{repo: r}
	return context.WithValue(ctx, txKey{}, tx), tx
}

func (r *memRepo) index(ctx context.Context, ids ...string) {
	tx := ctx.Value(txKey{}).(*memTx)
	tx.pending = append(tx.pending, ids...)
}

func (r *memRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.persisted)
}

func (t *memTx) Commit(context.Context) error {
	if t.repo.commitErr != nil {
		t.pending = nil
		return t.repo.commitErr
	}
	t.repo.mu.Lock()
	for _, id := range t.pending {
		t.repo.persisted[id] = true
	}
	t.repo.mu.Unlock()
	t.pending = nil
	return nil
}

func (t *memTx) Rollback() {
	t.repo.rollbacks++
	t.pending = nil
}

// --- Policy recorder ---

type recordingPolicy[T any] struct {
	mu      sync.Mutex
	refs    []domain.RepositoryReference
	records []T
	err     error
}

func (p *recordingPolicy[T]) Apply(_ context.Context, ref domain.RepositoryReference, records []T) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refs = append(p.refs, ref)
	p.records = append(p.records, records...)
	return p.err
}

type mockPublisher struct {
	channel  string
	messages [][]byte
	err      error
}

func (m *mockPublisher) Publish(_ context.Context, channel string, message []byte) error {
	if m.err != nil {
		return m.err
	}
	m.channel = channel
	m.messages = append(m.messages, message)
	return nil
}

var errSerialization = errors.New("serialization failed")
