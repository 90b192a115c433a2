package auth

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// minTokenLength is the shortest bearer token accepted when auth is enabled.
const minTokenLength = 16

// Config holds authentication configuration.
type Config struct {
	Enabled bool
	Token   string
}

// Validate rejects an enabled configuration without a usable token.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Token == "" {
		return errors.New("auth enabled but no token configured")
	}
	if len(c.Token) < minTokenLength {
		return errors.New("auth token must be at least 16 characters")
	}
	return nil
}

// publicPaths are readable without a token. Solving endpoints and the
// catalog refresh stay behind it.
var publicPaths = map[string]bool{
	"/":                        true,
	"/healthz":                 true,
	"/readyz":                  true,
	"/metrics":                 true,
	"/api/v1/catalog/metadata": true,
	"/api/v1/cache/stats":      true,
}

var publicPrefixes = []string{
	"/static/",
	"/api/v1/profiles",
	"/api/v1/stream/",
}

// isPublic reports whether r may skip the token check. Only reads are
// public; any other method on a public path still needs the token.
func isPublic(r *http.Request) bool {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		return false
	}
	if publicPaths[r.URL.Path] {
		return true
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(r.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// bearerToken extracts the credentials of an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func bearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware enforces Bearer token auth on non-public requests when auth
// is enabled.
func Middleware(cfg Config) func(http.Handler) http.Handler {
	want := []byte(cfg.Token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !cfg.Enabled || isPublic(r) {
				next.ServeHTTP(w, r)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok || subtle.ConstantTimeCompare([]byte(token), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="ballisticd"`)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
