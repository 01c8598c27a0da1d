package query

import (
	"context"

	"github.com/kailas-cloud/searchplane/internal/domain"
	domquery "github.com/kailas-cloud/searchplane/internal/domain/search/query"
)

// Searcher runs queries against the engine.
type Searcher interface {
	Search(ctx context.Context, ref domain.RepositoryReference, q domquery.Query) (*domquery.Page, error)
}
