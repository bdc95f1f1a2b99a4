package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/internal/session"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

// SessionHeader carries the shopper session id.
const SessionHeader = "X-Session-Id"

type sessionLoader interface {
	Get(ctx context.Context, id string) (*session.Session, error)
}

// Session resolves the X-Session-Id header into a live session.
func Session(loader sessionLoader, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, SessionHeader+" header required"))
				return
			}
			sess, err := loader.Get(r.Context(), id)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithSession(r.Context(), sess)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, sess.ID())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

type sessionCtxKey struct{}

// WithSession stores sess on ctx for downstream handlers.
func WithSession(ctx context.Context, sess *session.Session) context.Context {
	return context.WithValue(ctx, sessionCtxKey{}, sess)
}

// SessionFromContext returns the session set by Session, or nil.
func SessionFromContext(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionCtxKey{}).(*session.Session)
	return sess
}
