package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidToken signals a rejected credential.
	ErrInvalidToken = errors.New("invalid token")
	// ErrResourceNotAvailable signals that a backing store or engine is unreachable.
	ErrResourceNotAvailable = errors.New("resource not available")
	// ErrMalformedInput signals input the engine could not accept.
	ErrMalformedInput = errors.New("malformed input")
	// ErrInvalidReference signals an empty or malformed repository reference.
	ErrInvalidReference = errors.New("invalid repository reference")
)

// TokenRejection names the rule that rejected a token.
type TokenRejection string

// Token rejection kinds.
const (
	TokenMissing          TokenRejection = "missing"
	TokenUnknown          TokenRejection = "unknown"
	TokenReferrerMismatch TokenRejection = "referrer-mismatch"
	TokenScopeMismatch    TokenRejection = "scope-mismatch"
	TokenEndpointMismatch TokenRejection = "endpoint-mismatch"
	TokenExpired          TokenRejection = "expired"
)

// InvalidTokenError wraps ErrInvalidToken with the rejection kind.
type InvalidTokenError struct {
	Kind  TokenRejection
	AppID string
}

func (e *InvalidTokenError) Error() string {
	if e.AppID == "" {
		return fmt.Sprintf("%s: %s", ErrInvalidToken.Error(), e.Kind)
	}
	return fmt.Sprintf("%s: %s (app %s)", ErrInvalidToken.Error(), e.Kind, e.AppID)
}

func (e *InvalidTokenError) Unwrap() error { return ErrInvalidToken }

// NewInvalidToken creates an invalid token error.
func NewInvalidToken(kind TokenRejection, appID string) error {
	return &InvalidTokenError{Kind: kind, AppID: appID}
}

// MalformedInputError identifies the item and field the engine rejected.
// Error() is safe to show to API clients.
type MalformedInputError struct {
	ItemID   string
	ItemType string
	Field    string
	Reason   string
}

func (e *MalformedInputError) Error() string {
	msg := fmt.Sprintf("%s: item %s of type %s", ErrMalformedInput.Error(), e.ItemID, e.ItemType)
	if e.Field != "" {
		msg += fmt.Sprintf(", field %q", e.Field)
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }
