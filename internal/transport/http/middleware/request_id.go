package middleware

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"guardhr/internal/requestctx"
	"guardhr/internal/transport/http/shared"
)

// RequestID tags the request with an id (taken from X-Request-ID when present) and the
// caller's address.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := requestctx.WithRequestID(r.Context(), reqID)
		ctx = requestctx.WithClientIP(ctx, shared.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetRequestID(ctx context.Context) string {
	return requestctx.GetRequestID(ctx)
}
