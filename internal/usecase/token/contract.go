package token

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Repository defines the storage contract for tokens.
type Repository interface {
	Put(ctx context.Context, t domain.Token) error
	Get(ctx context.Context, appID, tokenUUID string) (domain.Token, error)
	Delete(ctx context.Context, appID, tokenUUID string) error
	DeleteAll(ctx context.Context, appID string) error
	List(ctx context.Context, appID string) ([]domain.Token, error)
}
