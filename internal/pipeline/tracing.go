package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/kailas-cloud/searchplane/internal/pipeline"

type tracer struct {
	tracer trace.Tracer
}

func newTracer() *tracer {
	return &tracer{tracer: otel.Tracer(tracerName)}
}

func (t *tracer) start(ctx context.Context, msg Message) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("searchplane.message", msg.MessageName()),
	}
	if s, ok := msg.(Scoped); ok {
		ref := s.Reference()
		attrs = append(attrs,
			attribute.String("searchplane.app_id", ref.AppID()),
			attribute.String("searchplane.index_id", ref.IndexID()),
		)
	}
	return t.tracer.Start(ctx, "pipeline."+msg.MessageName(), trace.WithAttributes(attrs...))
}

func (t *tracer) end(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
