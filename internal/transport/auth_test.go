package transport

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rpggio/lectern/internal/domain/audit"
	"github.com/stretchr/testify/require"
)

func TestAuthMiddleware(t *testing.T) {
	resolver := &staticResolver{tokens: map[string]string{"token": "Admin"}}

	handler := AuthMiddleware(resolver, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor, ok := audit.ActorFromContext(r.Context())
		require.True(t, ok)
		require.Equal(t, "Admin", actor)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

type failingResolver struct{}

func (failingResolver) ResolveActor(_ context.Context, _ string) (string, error) {
	return "", errors.New("invalid")
}

func TestAuthMiddleware_Invalid(t *testing.T) {
	handler := AuthMiddleware(failingResolver{}, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for _, header := range []string{"", "Bearer ", "Bearer token"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()

		handler.ServeHTTP(rec, req)
		require.Equal(t, http.StatusUnauthorized, rec.Code, header)
		require.Contains(t, rec.Body.String(), `"error_code":"UNAUTHORIZED"`)
	}
}
