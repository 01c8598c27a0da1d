package searchplane

import "github.com/kailas-cloud/searchplane/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound             = domain.ErrNotFound
	ErrInvalidToken         = domain.ErrInvalidToken
	ErrResourceNotAvailable = domain.ErrResourceNotAvailable
	ErrMalformedInput       = domain.ErrMalformedInput
	ErrInvalidReference     = domain.ErrInvalidReference
)

// InvalidTokenError carries the rule that rejected a token.
// Use errors.As() to inspect it.
type InvalidTokenError = domain.InvalidTokenError

// MalformedInputError points at the item and field that failed validation.
type MalformedInputError = domain.MalformedInputError
