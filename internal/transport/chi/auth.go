package chi

import (
	"net/http"
	"strings"

	"github.com/kailas-cloud/searchplane/internal/domain"
)

const bearerPrefix = "Bearer "

// bearerToken returns the token of an "Authorization: Bearer <token>" header.
// ok is false when the header is absent; malformed is true when a header is
// present but does not use the Bearer scheme.
func bearerToken(r *http.Request) (token string, ok, malformed bool) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", false, false
	}
	if !strings.HasPrefix(auth, bearerPrefix) {
		return "", false, true
	}
	return strings.TrimSpace(auth[len(bearerPrefix):]), true, false
}

// RequestCredentials collects the inputs token validation needs. The token
// query parameter wins over a Bearer header. The referrer is taken from
// Origin, falling back to Referer.
func RequestCredentials(r *http.Request, queryToken string) domain.Credentials {
	token := queryToken
	if token == "" {
		if bt, ok, _ := bearerToken(r); ok {
			token = bt
		}
	}

	referrer := r.Header.Get("Origin")
	if referrer == "" {
		referrer = r.Header.Get("Referer")
	}

	return domain.Credentials{
		Token:    token,
		Referrer: referrer,
		Path:     r.URL.Path,
		Method:   r.Method,
	}
}

// RejectMalformedAuthorization returns 401 for requests whose Authorization
// header does not use the Bearer scheme. Requests without the header pass.
func RejectMalformedAuthorization(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, _, malformed := bearerToken(r); malformed {
			writeError(w, http.StatusUnauthorized, CodeInvalidToken, "authorization header must use Bearer scheme")
			return
		}
		next.ServeHTTP(w, r)
	})
}
