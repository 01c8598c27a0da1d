package item

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Repository defines the storage contract for items.
type Repository interface {
	Index(ctx context.Context, ref domain.RepositoryReference, items []domain.Item) error
	Delete(ctx context.Context, ref domain.RepositoryReference, uuids []domain.ItemUUID) error
}
