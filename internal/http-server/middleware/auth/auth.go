package auth

import (
	"appointment-service/pkg/response"
	"appointment-service/pkg/sl"
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

type ctxKey struct{}

type TokenValidator interface {
	Validate(token string) (string, error)
}

// New rejects requests without a valid bearer token and stores the token
// subject as the caller's user id.
func New(log *slog.Logger, validator TokenValidator) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		log := log.With(slog.String("component", "middleware/auth"))

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				log.Warn("missing bearer token", slog.String("request_id", middleware.GetReqID(r.Context())))
				unauthorized(w, r)
				return
			}

			userID, err := validator.Validate(strings.TrimSpace(token))
			if err != nil {
				log.Warn("invalid bearer token",
					slog.String("request_id", middleware.GetReqID(r.Context())),
					sl.Err(err),
				)
				unauthorized(w, r)
				return
			}

			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, userID)))
		})
	}
}

// RequireOwner only lets callers act on their own {user_id} path segment.
func RequireOwner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserID(r.Context()) != chi.URLParam(r, "user_id") {
			w.WriteHeader(http.StatusForbidden)
			render.JSON(w, r, response.Error(response.FORBIDDEN, "not authorized to access this route"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func UserID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

// WithUserID is used by tests that bypass token validation.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

func unauthorized(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusUnauthorized)
	render.JSON(w, r, response.Error(response.UNAUTHORIZED, "not authorized to access this route"))
}
