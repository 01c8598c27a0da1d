// Package item stores searchable items in one bleve index per tenant
// reference. Writes made inside a dispatch are buffered in a transaction
// carried by the context and flushed as a single batch on commit.
package item

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Document field layout.
const (
	fieldText     = "text"
	fieldMetadata = "metadata"
	fieldIndexed  = "indexed_metadata"
	fieldFacets   = "facet"
	fieldIDs      = "ids"

	indexSuffix = ".bleve"

	// boltTimeout bounds the wait for another process's lock on an index.
	boltTimeout = "5s"
)

// Config configures the engine.
type Config struct {
	// Path is the directory holding on-disk indexes. Empty keeps every
	// index in memory.
	Path string
}

// Repo manages the per-reference indexes.
type Repo struct {
	cfg     Config
	logger  *zap.Logger
	mu      sync.Mutex
	indexes map[string]bleve.Index
	closed  bool
}

// New creates an item repository.
func New(cfg Config, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{
		cfg:     cfg,
		logger:  logger,
		indexes: make(map[string]bleve.Index),
	}
}

// NewIndexMapping returns the mapping shared by every index: full text on
// "text", keyword terms for everything else, JSON sources stored only.
func NewIndexMapping() mapping.IndexMapping {
	doc := bleve.NewDocumentMapping()

	text := bleve.NewTextFieldMapping()
	text.Analyzer = standard.Name
	doc.AddFieldMappingsAt(fieldText, text)

	for _, name := range []string{fieldMetadata, fieldIndexed} {
		source := bleve.NewTextFieldMapping()
		source.Index = false
		source.Store = true
		source.DocValues = false
		doc.AddFieldMappingsAt(name, source)
	}

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = keyword.Name
	return im
}

// index returns the index for ref, opening or creating it on first use.
// Malformed references fail with domain.ErrInvalidReference before any path
// is built; every other failure is domain.ErrResourceNotAvailable.
func (r *Repo) index(ref domain.RepositoryReference) (bleve.Index, error) {
	if err := ref.Validate(true); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, unavailable("open index", errors.New("engine closed"))
	}
	if idx, ok := r.indexes[ref.Key()]; ok {
		return idx, nil
	}

	idx, err := r.open(ref)
	if err != nil {
		return nil, unavailable("open index", err)
	}
	r.indexes[ref.Key()] = idx
	r.logger.Debug("index opened",
		zap.String("app_id", ref.AppID()),
		zap.String("index_id", ref.IndexID()),
	)
	return idx, nil
}

func (r *Repo) open(ref domain.RepositoryReference) (bleve.Index, error) {
	if r.cfg.Path == "" {
		idx, err := bleve.NewMemOnly(NewIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create in-memory index: %w", err)
		}
		return idx, nil
	}

	path := filepath.Join(r.cfg.Path, ref.AppID(), ref.IndexID()+indexSuffix)
	kv := map[string]interface{}{"bolt_timeout": boltTimeout}
	idx, err := bleve.OpenUsing(path, kv)
	if err == nil {
		return idx, nil
	}
	if !errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		return nil, fmt.Errorf("open index %s: %w", path, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create index dir: %w", err)
	}
	idx, err = bleve.NewUsing(path, NewIndexMapping(), bleve.Config.DefaultIndexType, bleve.Config.DefaultKVStore, kv)
	if err != nil {
		return nil, fmt.Errorf("create index %s: %w", path, err)
	}
	return idx, nil
}

// Open reports how many indexes are open.
func (r *Repo) Open() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.indexes)
}

// Ping fails once the repository is closed.
func (r *Repo) Ping(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return unavailable("ping", errors.New("engine closed"))
	}
	return nil
}

// DocCount returns the number of items in ref.
func (r *Repo) DocCount(_ context.Context, ref domain.RepositoryReference) (int, error) {
	idx, err := r.index(ref)
	if err != nil {
		return 0, err
	}
	n, err := idx.DocCount()
	if err != nil {
		return 0, unavailable("doc count", err)
	}
	return int(n), nil
}

// Close closes every open index.
func (r *Repo) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for key, idx := range r.indexes {
		if err := idx.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", key, err))
		}
	}
	r.indexes = map[string]bleve.Index{}
	r.closed = true
	return errors.Join(errs...)
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrResourceNotAvailable, err)
}
