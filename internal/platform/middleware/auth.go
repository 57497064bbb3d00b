package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"petcert/pkg/domain"
	dErrors "petcert/pkg/domain-errors"
	"petcert/pkg/platform/httputil"
	"petcert/pkg/requestcontext"
)

// SessionClaims are the claims RequireAuth expects from the session validator.
type SessionClaims struct {
	UserID domain.UserID
	Role   requestcontext.Role
}

// SessionValidator validates ordinary session tokens. Temporary record-access
// tokens are a different credential and never pass this check.
type SessionValidator interface {
	ValidateSession(tokenString string) (*SessionClaims, error)
}

// RequireAuth rejects requests without a valid Bearer session token and
// stores the authenticated user id and role in the request context.
func RequireAuth(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer token"))
				return
			}

			claims, err := validator.ValidateSession(token)
			if err != nil {
				logger.WarnContext(r.Context(), "session validation failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err.Error(),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid session token"))
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), claims.UserID)
			ctx = requestcontext.WithActorRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}
