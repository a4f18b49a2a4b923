package storefront

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/dmitrymomot/storefront/pkg/checkout"
	"github.com/dmitrymomot/storefront/pkg/logger"
)

// SessionHeader identifies a checkout session. The browser keeps the value
// and sends it back with every checkout request.
const SessionHeader = "X-Checkout-Session"

type sessionKey struct{}

// SessionMiddleware accepts a UUID session id or issues a new one and echoes it.
func SessionMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(SessionHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		w.Header().Set(SessionHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, id)))
	})
}

// SessionFromContext returns the checkout session id or "".
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey{}).(string)
	return id
}

// SessionLoggerExtractor adds session_id to log records.
func SessionLoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		if id := SessionFromContext(ctx); id != "" {
			return logger.SessionID(id), true
		}
		return slog.Attr{}, false
	}
}

// ServiceFactory builds the checkout service of one session.
type ServiceFactory func(sessionID string) checkout.Service

// NewServiceFactory namespaces each session's pending subscription and plan
// selection under checkout:<session>: in kv.
func NewServiceFactory(kv checkout.KeyValue, b checkout.Backend, g checkout.Gateway, opts ...checkout.ServiceOption) ServiceFactory {
	if kv == nil {
		panic("storefront: key-value store is required")
	}
	return func(sessionID string) checkout.Service {
		prefix := "checkout:" + sessionID + ":"
		return checkout.NewService(b, g,
			checkout.NewPendingStore(checkout.Prefixed(kv, prefix+"pending:")),
			checkout.NewPlanStore(checkout.Prefixed(kv, prefix+"plan:")),
			opts...,
		)
	}
}
