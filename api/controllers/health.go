package controllers

import (
	"context"
	"net/http"

	"github.com/rmoralesdev/tradecart-backend/api/responses"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// Health reports dependency readiness. Degraded dependencies flip the status
// without failing the probe body.
func Health(database pinger, cache pinger, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := http.StatusOK
		checks := map[string]string{}

		check := func(name string, p pinger) {
			if p == nil {
				checks[name] = "not configured"
				return
			}
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "down"
				status = http.StatusServiceUnavailable
				if logg != nil {
					logg.Error(r.Context(), "health check failed: "+name, err)
				}
				return
			}
			checks[name] = "ok"
		}

		check("database", database)
		check("redis", cache)

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		responses.WriteSuccessStatus(w, status, map[string]any{
			"status": overall,
			"checks": checks,
		})
	}
}
