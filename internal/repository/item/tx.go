package item

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// reasonRejected is reported to clients when the engine refuses a document.
const reasonRejected = "document rejected by engine"

type txKey struct{}

type operation struct {
	item   domain.Item
	delete bool
}

// Tx buffers the writes of one dispatch against one reference.
type Tx struct {
	repo *Repo
	ref  domain.RepositoryReference

	mu  sync.Mutex
	ops []operation
}

// Begin opens a transaction for ref and returns a context carrying it.
// Index and Delete calls made with that context are buffered until Commit.
func (r *Repo) Begin(ctx context.Context, ref domain.RepositoryReference) (context.Context, *Tx) {
	tx := &Tx{repo: r, ref: ref}
	return context.WithValue(ctx, txKey{}, tx), tx
}

// txFrom returns the transaction in ctx when it belongs to this repository
// and reference.
func (r *Repo) txFrom(ctx context.Context, ref domain.RepositoryReference) (*Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(*Tx)
	if !ok || tx.repo != r || tx.ref != ref {
		return nil, false
	}
	return tx, true
}

func (t *Tx) add(ops ...operation) {
	t.mu.Lock()
	t.ops = append(t.ops, ops...)
	t.mu.Unlock()
}

// Pending returns the number of buffered operations.
func (t *Tx) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ops)
}

// Commit flushes the buffered operations as one batch. Every document is
// serialized before anything is written, so a malformed item persists nothing.
func (t *Tx) Commit(context.Context) error {
	t.mu.Lock()
	ops := t.ops
	t.ops = nil
	t.mu.Unlock()

	if len(ops) == 0 {
		return nil
	}
	return t.repo.flush(t.ref, ops)
}

// Rollback discards the buffered operations.
func (t *Tx) Rollback() {
	t.mu.Lock()
	t.ops = nil
	t.mu.Unlock()
}

func (r *Repo) flush(ref domain.RepositoryReference, ops []operation) error {
	idx, err := r.index(ref)
	if err != nil {
		return err
	}

	batch := idx.NewBatch()
	for _, op := range ops {
		id := op.item.UUID.Composed()
		if op.delete {
			batch.Delete(id)
			continue
		}
		doc, err := toDocument(op.item)
		if err != nil {
			return err
		}
		if err := batch.Index(id, doc); err != nil {
			return r.rejected(op.item, err)
		}
	}

	if err := idx.Batch(batch); err != nil {
		return unavailable("batch", err)
	}
	return nil
}

// rejected logs the engine's reason for refusing it and returns a client-safe
// error.
func (r *Repo) rejected(it domain.Item, err error) error {
	r.logger.Warn("document rejected by engine",
		zap.String("item_id", it.UUID.ID),
		zap.String("item_type", it.UUID.Type),
		zap.Error(err),
	)
	return &domain.MalformedInputError{
		ItemID:   it.UUID.ID,
		ItemType: it.UUID.Type,
		Reason:   reasonRejected,
	}
}

// Index adds or replaces items. Inside a transaction for ref the write is
// buffered; otherwise it is flushed immediately.
func (r *Repo) Index(ctx context.Context, ref domain.RepositoryReference, items []domain.Item) error {
	ops := make([]operation, 0, len(items))
	for _, it := range items {
		if err := it.UUID.Validate(); err != nil {
			return err
		}
		ops = append(ops, operation{item: it})
	}
	return r.apply(ctx, ref, ops)
}

// Delete removes items by uuid. Unknown uuids are ignored.
func (r *Repo) Delete(ctx context.Context, ref domain.RepositoryReference, uuids []domain.ItemUUID) error {
	ops := make([]operation, 0, len(uuids))
	for _, u := range uuids {
		if err := u.Validate(); err != nil {
			return err
		}
		ops = append(ops, operation{item: domain.Item{UUID: u}, delete: true})
	}
	return r.apply(ctx, ref, ops)
}

func (r *Repo) apply(ctx context.Context, ref domain.RepositoryReference, ops []operation) error {
	if len(ops) == 0 {
		return nil
	}
	if tx, ok := r.txFrom(ctx, ref); ok {
		tx.add(ops...)
		return nil
	}
	return r.flush(ref, ops)
}
