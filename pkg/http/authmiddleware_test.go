package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func gatedHandler(keys []APIKey, gotName *string) http.Handler {
	return APIKeyGate(keys)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*gotName = KeyName(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestAPIKeyGate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing key: %v", err)
	}
	keys := []APIKey{
		{Name: "plain", Key: "plain-secret"},
		{Name: "hashed", Hash: string(hash)},
	}

	tests := []struct {
		name     string
		header   string
		value    string
		wantCode int
		wantName string
	}{
		{name: "bearer plaintext key", header: "Authorization", value: "Bearer plain-secret", wantCode: http.StatusNoContent, wantName: "plain"},
		{name: "x-api-key hashed key", header: "X-API-Key", value: "hashed-secret", wantCode: http.StatusNoContent, wantName: "hashed"},
		{name: "wrong key", header: "X-API-Key", value: "nope", wantCode: http.StatusUnauthorized},
		{name: "missing key", wantCode: http.StatusUnauthorized},
		{name: "basic auth is not a bearer token", header: "Authorization", value: "Basic plain-secret", wantCode: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotName string
			req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
			if tt.header != "" {
				req.Header.Set(tt.header, tt.value)
			}
			rr := httptest.NewRecorder()

			gatedHandler(keys, &gotName).ServeHTTP(rr, req)

			if rr.Code != tt.wantCode {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantCode)
			}
			if gotName != tt.wantName {
				t.Errorf("key name = %q, want %q", gotName, tt.wantName)
			}
			if tt.wantCode == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != "Bearer" {
				t.Errorf("WWW-Authenticate = %q, want Bearer", rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestAPIKeyGate_NoKeysAdmitsAll(t *testing.T) {
	var gotName string
	rr := httptest.NewRecorder()
	gatedHandler(nil, &gotName).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/mcp", nil))
	if rr.Code != http.StatusNoContent {
		t.Errorf("status = %d, want %d", rr.Code, http.StatusNoContent)
	}
}

func TestAPIKey_Validate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("k"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hashing key: %v", err)
	}

	if err := (APIKey{Key: "k"}).Validate(); err != nil {
		t.Errorf("plaintext key: unexpected error %v", err)
	}
	if err := (APIKey{Hash: string(hash)}).Validate(); err != nil {
		t.Errorf("hashed key: unexpected error %v", err)
	}
	if err := (APIKey{Name: "empty"}).Validate(); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("empty key: got %v, want ErrInvalidAPIKey", err)
	}
	if err := (APIKey{Hash: "not-bcrypt"}).Validate(); !errors.Is(err, ErrInvalidAPIKey) {
		t.Errorf("bad hash: got %v, want ErrInvalidAPIKey", err)
	}
}
