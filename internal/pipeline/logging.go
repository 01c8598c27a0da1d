package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/logger"
)

// LogOnFailure records a FATAL log entry through policy when a loggable
// command fails anywhere in the inner chain. The original error is returned.
func LogOnFailure(policy Policy[domain.LogEntry], log *zap.Logger) Middleware {
	return logOnFailure(policy, log, time.Now)
}

func logOnFailure(policy Policy[domain.LogEntry], log *zap.Logger, now func() time.Time) Middleware {
	return func(ctx context.Context, msg Message, next Handler) (any, error) {
		res, err := next(ctx, msg)
		if err == nil {
			return res, nil
		}
		if _, ok := msg.(LoggableCommand); !ok {
			return res, err
		}

		var ref domain.RepositoryReference
		if s, ok := msg.(Scoped); ok {
			ref = s.Reference()
		}

		reqLog := logger.FromContextOr(ctx, log)
		reqLog.Error("command failed",
			zap.String("message", msg.MessageName()),
			zap.String("app_id", ref.AppID()),
			zap.String("index_id", ref.IndexID()),
			zap.Error(err),
		)

		entry := domain.NewLogEntry(domain.LogFatal, err.Error(), now())
		if perr := policy.Apply(ctx, ref, []domain.LogEntry{entry}); perr != nil {
			reqLog.Error("log policy failed", zap.String("log_id", entry.ID), zap.Error(perr))
		}
		return res, err
	}
}
