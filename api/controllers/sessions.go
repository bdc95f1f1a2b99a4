package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/internal/session"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

type sessionCreator interface {
	Create(ctx context.Context) (*session.Session, error)
}

type sessionResponse struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
}

// SessionCreate starts a new shopper session with an empty cart and checkout.
func SessionCreate(mgr sessionCreator, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if mgr == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
			return
		}
		sess, err := mgr.Create(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sessionResponse{ID: sess.ID(), CreatedAt: sess.CreatedAt()})
	}
}
