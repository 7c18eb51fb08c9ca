// Package http provides HTTP middleware for the streamable MCP transport.
package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidAPIKey is returned when a configured key has neither a value nor
// a hash.
var ErrInvalidAPIKey = errors.New("api key needs key or hash")

// APIKey is an accepted credential. Either Key (plaintext) or Hash (bcrypt)
// is set.
type APIKey struct {
	Name string
	Key  string
	Hash string
}

// Validate checks that the key can authenticate anything.
func (k APIKey) Validate() error {
	if k.Key == "" && k.Hash == "" {
		return ErrInvalidAPIKey
	}
	if k.Hash != "" {
		if _, err := bcrypt.Cost([]byte(k.Hash)); err != nil {
			return errors.Join(ErrInvalidAPIKey, err)
		}
	}
	return nil
}

// matches reports whether token is this key.
func (k APIKey) matches(token string) bool {
	if k.Hash != "" {
		return bcrypt.CompareHashAndPassword([]byte(k.Hash), []byte(token)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(k.Key), []byte(token)) == 1
}

type contextKey int

const keyNameContextKey contextKey = iota

// KeyName returns the name of the API key that authenticated the request.
func KeyName(ctx context.Context) string {
	name, _ := ctx.Value(keyNameContextKey).(string)
	return name
}

// extractToken reads a Bearer token, falling back to the X-API-Key header.
func extractToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return r.Header.Get("X-API-Key")
}

// APIKeyGate returns middleware that admits only requests carrying one of
// keys. With no keys configured every request is admitted.
//
// Rejected requests get HTTP 401 with a WWW-Authenticate: Bearer header.
func APIKeyGate(keys []APIKey) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(keys) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				unauthorized(w, "Unauthorized: missing authentication token")
				return
			}
			for _, k := range keys {
				if k.matches(token) {
					ctx := context.WithValue(r.Context(), keyNameContextKey, k.Name)
					next.ServeHTTP(w, r.WithContext(ctx))
					return
				}
			}
			unauthorized(w, "Unauthorized: invalid authentication token")
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, msg, http.StatusUnauthorized)
}
