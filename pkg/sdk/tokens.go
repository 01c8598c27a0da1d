package searchplane

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/kailas-cloud/searchplane/internal/domain"
	"github.com/kailas-cloud/searchplane/internal/pipeline"
	tokenuc "github.com/kailas-cloud/searchplane/internal/usecase/token"
)

const tokensPath = "/v1/tokens"

// TokenService manages the tokens of one app.
type TokenService struct {
	ref      domain.RepositoryReference
	token    string
	pipeline pipeline.Executor
	obs      *observer
}

func (s *TokenService) envelope(method, path string) pipeline.Envelope {
	return pipeline.NewEnvelope(s.ref, domain.Credentials{
		Token:  s.token,
		Method: method,
		Path:   path,
	})
}

// Put creates or replaces a token. An empty UUID is generated.
func (s *TokenService) Put(ctx context.Context, t Token) (_ Token, err error) {
	start := time.Now()
	defer func() { s.obs.observe("token.put", s.ref.Key(), start, err) }()

	saved, err := pipeline.Dispatch[domain.Token](ctx, s.pipeline, &tokenuc.PutToken{
		Envelope: s.envelope(http.MethodPut, tokensPath),
		Token:    t,
	})
	if err != nil {
		return Token{}, fmt.Errorf("put token: %w", err)
	}
	return saved, nil
}

// List returns every token of the app.
func (s *TokenService) List(ctx context.Context) (_ []Token, err error) {
	start := time.Now()
	defer func() { s.obs.observe("token.list", s.ref.Key(), start, err) }()

	list, err := pipeline.Dispatch[[]domain.Token](ctx, s.pipeline, &tokenuc.GetTokens{
		Envelope: s.envelope(http.MethodGet, tokensPath),
	})
	if err != nil {
		return nil, fmt.Errorf("list tokens: %w", err)
	}
	return list, nil
}

// Delete removes one token.
func (s *TokenService) Delete(ctx context.Context, tokenUUID string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("token.delete", s.ref.Key(), start, err) }()

	_, err = s.pipeline.Execute(ctx, &tokenuc.DeleteToken{
		Envelope:  s.envelope(http.MethodDelete, tokensPath+"/"+tokenUUID),
		TokenUUID: tokenUUID,
	})
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}

// DeleteAll removes every token of the app.
func (s *TokenService) DeleteAll(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("token.delete_all", s.ref.Key(), start, err) }()

	_, err = s.pipeline.Execute(ctx, &tokenuc.DeleteTokens{
		Envelope: s.envelope(http.MethodDelete, tokensPath),
	})
	if err != nil {
		return fmt.Errorf("delete tokens: %w", err)
	}
	return nil
}
