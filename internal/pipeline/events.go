package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

type recorderKey struct{}

// Recorder collects the domain events raised during one dispatch.
type Recorder struct {
	mu     sync.Mutex
	events []domain.DomainEvent
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []domain.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

func (r *Recorder) record(e domain.DomainEvent) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

// WithRecorder installs a fresh recorder in ctx.
func WithRecorder(ctx context.Context) (context.Context, *Recorder) {
	r := &Recorder{}
	return context.WithValue(ctx, recorderKey{}, r), r
}

// Raise records an event on the dispatch in ctx. Outside a dispatch the
// event is dropped and false is returned.
func Raise(ctx context.Context, e domain.DomainEvent) bool {
	r, ok := ctx.Value(recorderKey{}).(*Recorder)
	if !ok {
		return false
	}
	r.record(e)
	return true
}

// CaptureEvents hands the events raised by a successful dispatch to policy.
// Events of a failed dispatch are discarded. Policy failures are logged and
// do not fail the dispatch.
func CaptureEvents(policy Policy[domain.DomainEvent], log *zap.Logger) Middleware {
	return func(ctx context.Context, msg Message, next Handler) (any, error) {
		ctx, rec := WithRecorder(ctx)

		res, err := next(ctx, msg)
		if err != nil {
			return res, err
		}

		events := rec.Events()
		if len(events) == 0 {
			return res, nil
		}

		var ref domain.RepositoryReference
		if s, ok := msg.(Scoped); ok {
			ref = s.Reference()
		}
		if perr := policy.Apply(ctx, ref, events); perr != nil {
			log.Error("domain event policy failed",
				zap.String("message", msg.MessageName()),
				zap.String("app_id", ref.AppID()),
				zap.Int("events", len(events)),
				zap.Error(perr),
			)
		}
		return res, nil
	}
}
