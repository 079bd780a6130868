package middleware

import (
	"net/http"
	"strings"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/upb/audit-trail/internal/shared"
)

// ActorHeader names the caller recorded on self-generated audit entries
const ActorHeader = "X-Actor-ID"

// RequestContext copies the chi request ID and the X-Actor-ID header into
// the request context so services can read them without importing chi.
// Must run after chi's RequestID middleware.
func RequestContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if id := chimw.GetReqID(ctx); id != "" {
			ctx = shared.WithRequestID(ctx, id)
			w.Header().Set(chimw.RequestIDHeader, id)
		}
		if actor := strings.TrimSpace(r.Header.Get(ActorHeader)); actor != "" {
			ctx = shared.WithActor(ctx, actor)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
