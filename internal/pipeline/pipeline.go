package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kailas-cloud/searchplane/internal/metrics"
)

var (
	// ErrNoHandler signals a message with no registered handler.
	ErrNoHandler = errors.New("no handler registered")
	// ErrUnexpectedMessage signals a handler invoked with the wrong message type.
	ErrUnexpectedMessage = errors.New("unexpected message type")
)

// Handler processes one message.
type Handler func(ctx context.Context, msg Message) (any, error)

// Middleware wraps the rest of the chain. It must return errors from next
// unchanged; it may only add side effects.
type Middleware func(ctx context.Context, msg Message, next Handler) (any, error)

// Handle adapts a typed handler func.
func Handle[M Message, R any](fn func(ctx context.Context, msg M) (R, error)) Handler {
	return func(ctx context.Context, msg Message) (any, error) {
		m, ok := msg.(M)
		if !ok {
			return nil, fmt.Errorf("%w: %T", ErrUnexpectedMessage, msg)
		}
		return fn(ctx, m)
	}
}

// Router maps message names to handlers.
type Router struct {
	handlers map[string]Handler
}

// NewRouter creates an empty router.
func NewRouter() *Router {
	return &Router{handlers: make(map[string]Handler)}
}

// Register binds a handler to a message name, replacing any previous one.
func (r *Router) Register(name string, h Handler) *Router {
	r.handlers[name] = h
	return r
}

// Pipeline executes messages through its middlewares.
type Pipeline struct {
	router      *Router
	middlewares []Middleware
	tracer      *tracer
}

// New creates a pipeline. Middlewares are listed outermost first.
func New(router *Router, middlewares ...Middleware) *Pipeline {
	return &Pipeline{
		router:      router,
		middlewares: middlewares,
		tracer:      newTracer(),
	}
}

// Execute dispatches msg synchronously.
func (p *Pipeline) Execute(ctx context.Context, msg Message) (any, error) {
	name := msg.MessageName()
	h, ok := p.router.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoHandler, name)
	}

	ctx, span := p.tracer.start(ctx, msg)
	start := time.Now()

	res, err := p.chain(h)(ctx, msg)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.PipelineMessagesTotal.WithLabelValues(name, status).Inc()
	metrics.PipelineDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
	p.tracer.end(span, err)

	return res, err
}

func (p *Pipeline) chain(h Handler) Handler {
	next := h
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		mw := p.middlewares[i]
		inner := next
		next = func(ctx context.Context, msg Message) (any, error) {
			return mw(ctx, msg, inner)
		}
	}
	return next
}

// Executor runs a message to completion. *Pipeline implements it.
type Executor interface {
	Execute(ctx context.Context, msg Message) (any, error)
}

// Dispatch executes msg and asserts the result type.
func Dispatch[R any](ctx context.Context, p Executor, msg Message) (R, error) {
	var zero R
	res, err := p.Execute(ctx, msg)
	if err != nil {
		return zero, err
	}
	if res == nil {
		return zero, nil
	}
	out, ok := res.(R)
	if !ok {
		return zero, fmt.Errorf("%w: result %T", ErrUnexpectedMessage, res)
	}
	return out, nil
}
