package pipeline

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Transaction buffers the writes of one dispatch.
type Transaction interface {
	Commit(ctx context.Context) error
	Rollback()
}

// Transactor opens a unit of work for a reference. The returned context
// carries the transaction to the repository.
type Transactor interface {
	Begin(ctx context.Context, ref domain.RepositoryReference) (context.Context, Transaction)
}

// TransactionCommit flushes buffered writes after the inner chain succeeds.
// When the chain fails, buffered writes are discarded and nothing is flushed.
func TransactionCommit(t Transactor) Middleware {
	return func(ctx context.Context, msg Message, next Handler) (any, error) {
		scoped, ok := msg.(Scoped)
		if !ok {
			return next(ctx, msg)
		}

		txCtx, tx := t.Begin(ctx, scoped.Reference())

		res, err := next(txCtx, msg)
		if err != nil {
			tx.Rollback()
			return res, err
		}

		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return res, nil
	}
}
