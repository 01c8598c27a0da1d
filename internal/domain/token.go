package domain

import (
	"slices"
	"strings"
	"time"
)

// Token is a per-tenant credential with optional scopes.
// Empty Indices, Endpoints and HTTPReferrers mean unrestricted.
// SecondsValid == 0 means the token never expires.
type Token struct {
	UUID          string   `json:"uuid"`
	AppID         string   `json:"app_id"`
	Indices       []string `json:"indices,omitempty"`
	Endpoints     []string `json:"endpoints,omitempty"`
	HTTPReferrers []string `json:"http_referrers,omitempty"`
	SecondsValid  int64    `json:"seconds_valid"`
	UpdatedAt     int64    `json:"updated_at"`
}

// AllowsIndex reports whether indexID is within the token's index scope.
func (t Token) AllowsIndex(indexID string) bool {
	return len(t.Indices) == 0 || slices.Contains(t.Indices, indexID)
}

// AllowsReferrer reports whether the referrer, normalized, is allowed.
func (t Token) AllowsReferrer(referrer string) bool {
	if len(t.HTTPReferrers) == 0 {
		return true
	}
	ref := NormalizeReferrer(referrer)
	for _, allowed := range t.HTTPReferrers {
		if NormalizeReferrer(allowed) == ref {
			return true
		}
	}
	return false
}

// AllowsEndpoint reports whether method+path is within the endpoint scope.
func (t Token) AllowsEndpoint(method, path string) bool {
	if len(t.Endpoints) == 0 {
		return true
	}
	want := CanonicalEndpoint(method, path)
	for _, e := range t.Endpoints {
		if canonicalizeEndpoint(e) == want {
			return true
		}
	}
	return false
}

// Expired reports whether the token is no longer valid at now.
// A token stops being valid at exactly UpdatedAt + SecondsValid.
func (t Token) Expired(now time.Time) bool {
	if t.SecondsValid <= 0 {
		return false
	}
	return now.Unix() >= t.UpdatedAt+t.SecondsValid
}

// CanonicalEndpoint builds the lower-case "method~~path" form, slashes trimmed.
func CanonicalEndpoint(method, path string) string {
	return strings.ToLower(method + keySeparator + strings.Trim(path, "/"))
}

func canonicalizeEndpoint(e string) string {
	method, path, ok := strings.Cut(e, keySeparator)
	if !ok {
		return strings.ToLower(e)
	}
	return CanonicalEndpoint(method, path)
}

// NormalizeReferrer strips the scheme and any trailing slash.
func NormalizeReferrer(referrer string) string {
	r := strings.TrimSpace(referrer)
	if _, rest, ok := strings.Cut(r, "://"); ok {
		r = rest
	}
	return strings.TrimRight(r, "/")
}
