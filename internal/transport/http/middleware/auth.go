package middleware

import (
	"context"
	"net/http"
	"strings"

	"guardhr/internal/domain/auth"
	"guardhr/internal/requestctx"
)

type ctxKey string

const ctxKeyUser ctxKey = "user"

type TokenParser interface {
	ParseToken(token string) (*auth.Claims, error)
}

// Auth attaches the operator of a valid bearer token. Requests without one pass through
// unauthenticated; RequirePermission rejects them where needed.
func Auth(parser TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := parser.ParseToken(parts[1])
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := context.WithValue(r.Context(), ctxKeyUser, auth.UserContext{
				OperatorID: claims.OperatorID,
				Username:   claims.Username,
				Role:       claims.Role,
			})
			ctx = requestctx.WithOperatorID(ctx, claims.OperatorID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetUser(ctx context.Context) (auth.UserContext, bool) {
	user, ok := ctx.Value(ctxKeyUser).(auth.UserContext)
	return user, ok
}

// WithUser is used by tests to bypass token parsing.
func WithUser(ctx context.Context, user auth.UserContext) context.Context {
	ctx = context.WithValue(ctx, ctxKeyUser, user)
	return requestctx.WithOperatorID(ctx, user.OperatorID)
}
