package auth

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// TokenReader looks up stored tokens. A missing token yields domain.ErrNotFound.
type TokenReader interface {
	Get(ctx context.Context, appID, tokenUUID string) (domain.Token, error)
}
