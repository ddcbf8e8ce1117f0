package transport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/rpggio/lectern/internal/domain/audit"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

// ActorResolver resolves the acting user from a bearer token.
type ActorResolver interface {
	ResolveActor(ctx context.Context, token string) (string, error)
}

// AuthMiddleware enforces bearer token authentication. The resolved actor
// is attached to the request context for audit entries.
func AuthMiddleware(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			token := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", errMissingToken)
				return
			}

			actor, err := resolver.ResolveActor(r.Context(), token)
			if err != nil || actor == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, "UNAUTHORIZED", errInvalidToken)
				return
			}

			ctx := audit.WithActor(r.Context(), actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
