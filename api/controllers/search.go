package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/cartflow/api/responses"
	"github.com/angelmondragon/cartflow/api/validators"
	"github.com/angelmondragon/cartflow/internal/search"
	pkgerrors "github.com/angelmondragon/cartflow/pkg/errors"
	"github.com/angelmondragon/cartflow/pkg/logger"
)

const maxQueryLength = 200

type productSearcher interface {
	Search(ctx context.Context, query string) (*search.Result, error)
}

// ProductSearch runs ?q= against the catalog. A blank query answers idle.
func ProductSearch(svc productSearcher, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search service unavailable"))
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("q"), maxQueryLength)
		result, err := svc.Search(r.Context(), query)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
