package domain

import (
	"fmt"
	"regexp"
)

// keySeparator joins the parts of composite keys (references, endpoints).
const keySeparator = "~~"

// MaxIDLength bounds app and index ids.
const MaxIDLength = 128

// idPattern admits no path or key separators: ids become directory names and
// key parts.
var idPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ValidID reports whether id may be used as an app or index id.
func ValidID(id string) bool {
	return len(id) <= MaxIDLength && idPattern.MatchString(id)
}

// RepositoryReference addresses one tenant index.
type RepositoryReference struct {
	appID   string
	indexID string
}

// NewReference creates a reference. indexID may be empty for app-level operations.
func NewReference(appID, indexID string) RepositoryReference {
	return RepositoryReference{appID: appID, indexID: indexID}
}

// AppID returns the tenant id.
func (r RepositoryReference) AppID() string { return r.appID }

// IndexID returns the index id.
func (r RepositoryReference) IndexID() string { return r.indexID }

// IsZero reports whether no app is set.
func (r RepositoryReference) IsZero() bool { return r.appID == "" }

// Key composes the bucket key "appId~~indexId".
func (r RepositoryReference) Key() string {
	return r.appID + keySeparator + r.indexID
}

// Validate checks that the reference names an app and, when requireIndex, an
// index. Non-empty ids must satisfy ValidID.
func (r RepositoryReference) Validate(requireIndex bool) error {
	if r.appID == "" {
		return ErrInvalidReference
	}
	if !ValidID(r.appID) {
		return fmt.Errorf("%w: app_id %q", ErrInvalidReference, r.appID)
	}
	if r.indexID == "" {
		if requireIndex {
			return ErrInvalidReference
		}
		return nil
	}
	if !ValidID(r.indexID) {
		return fmt.Errorf("%w: index_id %q", ErrInvalidReference, r.indexID)
	}
	return nil
}

func (r RepositoryReference) String() string { return r.Key() }
