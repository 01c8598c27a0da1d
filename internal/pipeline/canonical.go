package pipeline

import (
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Deps are the collaborators of the standard middleware chain.
type Deps struct {
	Authorizer Authorizer
	Transactor Transactor
	Events     Policy[domain.DomainEvent]
	Logs       Policy[domain.LogEntry]
	Logger     *zap.Logger
}

// Canonical returns the standard chain, outermost first:
// LogOnFailure, Authorization, CaptureEvents, TransactionCommit.
func Canonical(d Deps) []Middleware {
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	events := d.Events
	if events == nil {
		events = Ignore[domain.DomainEvent]{}
	}
	logs := d.Logs
	if logs == nil {
		logs = Ignore[domain.LogEntry]{}
	}

	chain := []Middleware{
		LogOnFailure(logs, log),
		Authorization(d.Authorizer),
		CaptureEvents(events, log),
	}
	if d.Transactor != nil {
		chain = append(chain, TransactionCommit(d.Transactor))
	}
	return chain
}
