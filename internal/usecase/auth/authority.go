// Package auth validates per-tenant access tokens.
package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

// Config holds the administrative tokens. Empty values disable them.
type Config struct {
	SuperuserToken   string
	HealthCheckToken string
}

// Authority decides whether a token may access a reference.
type Authority struct {
	tokens TokenReader
	cfg    Config
	now    func() time.Time
	logger *zap.Logger
}

// NewAuthority creates an Authority.
func NewAuthority(tokens TokenReader, cfg Config, logger *zap.Logger) *Authority {
	return &Authority{tokens: tokens, cfg: cfg, now: time.Now, logger: logger}
}

// WithClock overrides the time source.
func (a *Authority) WithClock(now func() time.Time) *Authority {
	a.now = now
	return a
}

// Validate applies the token rules in order and returns the resolved token.
// Administrative tokens skip scope checks and come back bound to ref's app.
func (a *Authority) Validate(ctx context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	appID := ref.AppID()

	if creds.Token == "" {
		return domain.Token{}, domain.NewInvalidToken(domain.TokenMissing, appID)
	}

	if a.isAdmin(creds.Token) {
		return domain.Token{UUID: creds.Token, AppID: appID}, nil
	}

	tok, err := a.tokens.Get(ctx, appID, creds.Token)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Token{}, domain.NewInvalidToken(domain.TokenUnknown, appID)
		}
		return domain.Token{}, fmt.Errorf("lookup token: %w", err)
	}
	if tok.AppID != appID {
		return domain.Token{}, domain.NewInvalidToken(domain.TokenUnknown, appID)
	}

	if !tok.AllowsReferrer(creds.Referrer) {
		return domain.Token{}, a.reject(domain.TokenReferrerMismatch, tok, creds)
	}
	if !tok.AllowsIndex(ref.IndexID()) {
		return domain.Token{}, a.reject(domain.TokenScopeMismatch, tok, creds)
	}
	if !tok.AllowsEndpoint(creds.Method, creds.Path) {
		return domain.Token{}, a.reject(domain.TokenEndpointMismatch, tok, creds)
	}
	if tok.Expired(a.now()) {
		return domain.Token{}, a.reject(domain.TokenExpired, tok, creds)
	}

	return tok, nil
}

// ValidateWrite is Validate for state-changing commands: the health-check
// token is read-only.
func (a *Authority) ValidateWrite(ctx context.Context, ref domain.RepositoryReference, creds domain.Credentials) (domain.Token, error) {
	if a.cfg.HealthCheckToken != "" && creds.Token == a.cfg.HealthCheckToken {
		return domain.Token{}, domain.NewInvalidToken(domain.TokenScopeMismatch, ref.AppID())
	}
	return a.Validate(ctx, ref, creds)
}

// IsSuperuser reports whether tok is the superuser token.
func (a *Authority) IsSuperuser(tok domain.Token) bool {
	return a.cfg.SuperuserToken != "" && tok.UUID == a.cfg.SuperuserToken
}

func (a *Authority) isAdmin(value string) bool {
	return (a.cfg.SuperuserToken != "" && value == a.cfg.SuperuserToken) ||
		(a.cfg.HealthCheckToken != "" && value == a.cfg.HealthCheckToken)
}

func (a *Authority) reject(kind domain.TokenRejection, tok domain.Token, creds domain.Credentials) error {
	a.logger.Debug("token rejected",
		zap.String("kind", string(kind)),
		zap.String("app_id", tok.AppID),
		zap.String("token_hash", fingerprint(tok.UUID)),
		zap.String("endpoint", domain.CanonicalEndpoint(creds.Method, creds.Path)),
	)
	return domain.NewInvalidToken(kind, tok.AppID)
}

// fingerprint identifies a token in logs without revealing it.
func fingerprint(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:6])
}
