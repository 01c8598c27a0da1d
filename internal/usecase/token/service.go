// Package token administers tenant tokens. Handlers run behind the
// superuser check; the plain methods back the CLI.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
)

// Service manages tokens.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a token service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the clock used for updated_at.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Register binds the token handlers to router.
func (s *Service) Register(router *pipeline.Router) {
	router.Register(PutTokenName, pipeline.Handle(s.handlePut))
	router.Register(DeleteTokenName, pipeline.Handle(s.handleDelete))
	router.Register(DeleteTokensName, pipeline.Handle(s.handleDeleteAll))
	router.Register(GetTokensName, pipeline.Handle(s.handleList))
}

// Put stores t under appID. A missing uuid is generated and updated_at is
// set to now, restarting the validity window.
func (s *Service) Put(ctx context.Context, appID string, t domain.Token) (domain.Token, error) {
	if err := validApp(appID); err != nil {
		return domain.Token{}, err
	}
	if t.AppID != "" && t.AppID != appID {
		return domain.Token{}, fmt.Errorf("%w: token app_id %q does not match %q", domain.ErrMalformedInput, t.AppID, appID)
	}
	if t.SecondsValid < 0 {
		return domain.Token{}, fmt.Errorf("%w: seconds_valid must be >= 0", domain.ErrMalformedInput)
	}

	t.AppID = appID
	if t.UUID == "" {
		t.UUID = uuid.NewString()
	}
	t.UpdatedAt = s.now().Unix()

	if err := s.repo.Put(ctx, t); err != nil {
		return domain.Token{}, fmt.Errorf("put token: %w", err)
	}
	return t, nil
}

// Delete removes one token. Unknown tokens yield domain.ErrNotFound.
func (s *Service) Delete(ctx context.Context, appID, tokenUUID string) error {
	if err := validApp(appID); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, appID, tokenUUID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("token %s: %w", tokenUUID, domain.ErrNotFound)
		}
		return fmt.Errorf("get token: %w", err)
	}
	if err := s.repo.Delete(ctx, appID, tokenUUID); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// DeleteAll removes every token of appID.
func (s *Service) DeleteAll(ctx context.Context, appID string) error {
	if err := validApp(appID); err != nil {
		return err
	}
	if err := s.repo.DeleteAll(ctx, appID); err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}

// List returns the tokens of appID.
func (s *Service) List(ctx context.Context, appID string) ([]domain.Token, error) {
	if err := validApp(appID); err != nil {
		return nil, err
	}
	tokens, err := s.repo.List(ctx, appID)
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return tokens, nil
}

func validApp(appID string) error {
	return domain.NewReference(appID, "").Validate(false)
}

func (s *Service) handlePut(ctx context.Context, cmd *PutToken) (domain.Token, error) {
	t, err := s.Put(ctx, cmd.Reference().AppID(), cmd.Token)
	if err != nil {
		return domain.Token{}, err
	}
	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventTokenWasPut, map[string]any{
		"indices":       t.Indices,
		"seconds_valid": t.SecondsValid,
	}))
	return t, nil
}

func (s *Service) handleDelete(ctx context.Context, cmd *DeleteToken) (struct{}, error) {
	if err := cmd.Reference().Validate(false); err != nil {
		return struct{}{}, err
	}
	if err := s.Delete(ctx, cmd.Reference().AppID(), cmd.TokenUUID); err != nil {
		return struct{}{}, err
	}
	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventTokenWasDeleted, nil))
	return struct{}{}, nil
}

func (s *Service) handleDeleteAll(ctx context.Context, cmd *DeleteTokens) (struct{}, error) {
	if err := cmd.Reference().Validate(false); err != nil {
		return struct{}{}, err
	}
	if err := s.DeleteAll(ctx, cmd.Reference().AppID()); err != nil {
		return struct{}{}, err
	}
	pipeline.Raise(ctx, domain.NewDomainEvent(domain.EventTokensWereDeleted, nil))
	return struct{}{}, nil
}

func (s *Service) handleList(ctx context.Context, cmd *GetTokens) ([]domain.Token, error) {
	if err := cmd.Reference().Validate(false); err != nil {
		return nil, err
	}
	return s.List(ctx, cmd.Reference().AppID())
}
