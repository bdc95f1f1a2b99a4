package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartflow/api/middleware"
	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/internal/session"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

// SessionUpdater applies a mutation to a session and persists it.
type SessionUpdater interface {
	Update(ctx context.Context, sess *session.Session, fn func(tx *session.Tx) error) error
}

func requireSession(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (*session.Session, bool) {
	sess := middleware.SessionFromContext(r.Context())
	if sess == nil {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "session context missing"))
		return nil, false
	}
	return sess, true
}
