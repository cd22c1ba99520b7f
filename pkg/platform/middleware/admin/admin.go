package admin

import (
	"context"
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"calibra/pkg/requestcontext"
)

type contextKeyAdminActorID struct{}

// GetAdminActorID returns the X-Admin-Actor-ID captured for attribution, or "".
func GetAdminActorID(ctx context.Context) string {
	if actorID, ok := ctx.Value(contextKeyAdminActorID{}).(string); ok {
		return actorID
	}
	return ""
}

// RequireAdminToken checks X-Admin-Token against a bcrypt hash. An empty
// hash disables every admin route.
func RequireAdminToken(tokenHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	hash := []byte(tokenHash)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			token := r.Header.Get("X-Admin-Token")
			if len(hash) == 0 || token == "" || bcrypt.CompareHashAndPassword(hash, []byte(token)) != nil {
				logger.WarnContext(ctx, "admin token mismatch",
					"request_id", requestcontext.RequestID(ctx),
				)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"admin token required"}`))
				return
			}

			if actorID := r.Header.Get("X-Admin-Actor-ID"); actorID != "" {
				ctx = context.WithValue(ctx, contextKeyAdminActorID{}, actorID)
				ctx = requestcontext.WithCaller(ctx, actorID)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
