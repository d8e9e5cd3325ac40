package controllers

import (
	"net/http"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/internal/stats"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

// GetStats serves the admin dashboard snapshot from the cache; a cold cache
// warms inline.
func GetStats(cache *stats.Cache, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if cache == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "stats cache unavailable"))
			return
		}
		dashboard, err := cache.Get(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dashboard)
	}
}
