// Package pipeline dispatches commands and queries through an ordered chain of
// middlewares: log-on-failure, authorization, domain-event capture and
// transaction commit wrap every handler.
package pipeline

import "github.com/kailas-cloud/searchplane/internal/domain"

// Message is a command or query routed by name.
type Message interface {
	MessageName() string
}

// Scoped is implemented by messages addressed to a tenant. Embedding
// *Envelope satisfies it.
type Scoped interface {
	Message
	Reference() domain.RepositoryReference
	Credentials() domain.Credentials
	AttachToken(t domain.Token)
}

// WriteCommand marks messages that change state. They are validated with the
// stricter write check.
type WriteCommand interface {
	WriteCommand()
}

// LoggableCommand marks messages whose failures are recorded as FATAL log entries.
type LoggableCommand interface {
	LoggableCommand()
}

// AdminCommand marks messages reserved for the superuser token.
type AdminCommand interface {
	AdminCommand()
}

// Write is embedded to mark a WriteCommand.
type Write struct{}

// WriteCommand implements WriteCommand.
func (Write) WriteCommand() {}

// Loggable is embedded to mark a LoggableCommand.
type Loggable struct{}

// LoggableCommand implements LoggableCommand.
func (Loggable) LoggableCommand() {}

// Admin is embedded to mark an AdminCommand.
type Admin struct{}

// AdminCommand implements AdminCommand.
func (Admin) AdminCommand() {}

// Envelope carries the tenant reference and credentials of a message and,
// once authorized, the resolved token.
type Envelope struct {
	ref   domain.RepositoryReference
	creds domain.Credentials
	token *domain.Token
}

// NewEnvelope creates an envelope.
func NewEnvelope(ref domain.RepositoryReference, creds domain.Credentials) Envelope {
	return Envelope{ref: ref, creds: creds}
}

// Reference returns the tenant reference.
func (e *Envelope) Reference() domain.RepositoryReference { return e.ref }

// Credentials returns the request credentials.
func (e *Envelope) Credentials() domain.Credentials { return e.creds }

// AttachToken stores the token resolved by authorization.
func (e *Envelope) AttachToken(t domain.Token) { e.token = &t }

// Token returns the attached token, if any.
func (e *Envelope) Token() (domain.Token, bool) {
	if e.token == nil {
		return domain.Token{}, false
	}
	return *e.token, true
}
