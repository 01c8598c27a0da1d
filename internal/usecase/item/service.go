package item

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// MaxBatch is the largest number of items one command may carry.
const MaxBatch = 1000

// Result reports how many items a command touched.
type Result struct {
	Count int `json:"count"`
}

// Service handles item commands.
type Service struct {
	repo Repository
}

// New creates an item service.
func New(repo Repository) *Service {
	return &Service{repo: repo}
}

// Register binds the item handlers to router.
func (s *Service) Register(router *pipeline.Router) {
	router.Register(IndexItemsName, pipeline.Handle(s.Index))
	router.Register(DeleteItemsName, pipeline.Handle(s.Delete))
}

// Index validates and stores items, raising items_were_indexed.
func (s *Service) Index(ctx context.Context, cmd *IndexItems) (Result, error) {
	ref := cmd.Reference()
	if err := ref.Validate(true); err != nil {
		return Result{}, err
	}
	if err := checkBatch(len(cmd.Items)); err != nil {
		return Result{}, err
	}

	uuids := make([]string, 0, len(cmd.Items))
	for _, it := range cmd.Items {
		if err := it.UUID.Validate(); err != nil {
			return Result{}, err
		}
		uuids = append(uuids, it.UUID.Composed())
	}

	if err := s.repo.Index(ctx, ref, cmd.Items); err != nil {
		return Result{}, fmt.Errorf("index items: %w", err)
	}

	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventItemsWereIndexed, map[string]any{
		"items": uuids,
	}))
	return Result{Count: len(cmd.Items)}, nil
}

// Delete removes items, raising items_were_deleted.
func (s *Service) Delete(ctx context.Context, cmd *DeleteItems) (Result, error) {
	ref := cmd.Reference()
	if err := ref.Validate(true); err != nil {
		return Result{}, err
	}
	if err := checkBatch(len(cmd.UUIDs)); err != nil {
		return Result{}, err
	}

	uuids := make([]string, 0, len(cmd.UUIDs))
	for _, u := range cmd.UUIDs {
		if err := u.Validate(); err != nil {
			return Result{}, err
		}
		uuids = append(uuids, u.Composed())
	}

	if err := s.repo.Delete(ctx, ref, cmd.UUIDs); err != nil {
		return Result{}, fmt.Errorf("delete items: %w", err)
	}

	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventItemsWereDeleted, map[string]any{
		"items": uuids,
	}))
	return Result{Count: len(cmd.UUIDs)}, nil
}

func checkBatch(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: no items given", domain.ErrMalformedInput)
	}
	if n > MaxBatch {
		return fmt.Errorf("%w: %d items exceed the batch limit of %d", domain.ErrMalformedInput, n, MaxBatch)
	}
	return nil
}
