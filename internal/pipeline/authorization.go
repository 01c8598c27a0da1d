package pipeline

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Authorizer validates credentials against a reference.
type Authorizer interface {
	Validate(ctx context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error)
	ValidateWrite(ctx context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error)
	IsSuperuser(tok domain.Token) bool
}

// Authorization rejects scoped messages with a malformed reference or invalid
// credentials before any handler runs and attaches the resolved token on success. Messages without a
// tenant reference pass through.
func Authorization(a Authorizer) Middleware {
	return func(ctx context.Context, msg Message, next Handler) (any, error) {
		scoped, ok := msg.(Scoped)
		if !ok {
			return next(ctx, msg)
		}

		ref := scoped.Reference()
		if err := ref.Validate(false); err != nil {
			return nil, err
		}
		creds := scoped.Credentials()

		var (
			tok domain.Token
			err error
		)
		if _, write := msg.(WriteCommand); write {
			tok, err = a.ValidateWrite(ctx, ref, creds)
		} else {
			tok, err = a.Validate(ctx, ref, creds)
		}
		if err != nil {
			return nil, err
		}

		if _, admin := msg.(AdminCommand); admin && !a.IsSuperuser(tok) {
			return nil, domain.NewInvalidToken(domain.TokenScopeMismatch, ref.AppID())
		}

		scoped.AttachToken(tok)
		return next(ctx, msg)
	}
}
