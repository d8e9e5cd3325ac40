package middleware

import (
	"context"
	"net/http"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/logger"
	"github.com/rmoralesdev/tradecart-backend/pkg/metrics"
)

type hostResolver interface {
	Resolve(ctx context.Context, host string) (*models.Distributor, error)
}

// Tenant resolves the request host to a distributor storefront and, when one
// matches, tags the context with it. Unknown hosts pass through untagged; a
// resolver outage degrades to marketplace mode rather than failing the
// request, and the failure is counted so degraded storefront traffic shows
// up on the dashboard.
func Tenant(resolver hostResolver, m *metrics.CommerceMetrics, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if resolver == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			host := r.Header.Get("X-Storefront-Host")
			if host == "" {
				host = r.Host
			}
			distributor, err := resolver.Resolve(ctx, host)
			if err != nil {
				m.IncTenantResolveFailure()
				if logg != nil {
					logg.Error(ctx, "tenant resolution failed", err)
				}
				next.ServeHTTP(w, r)
				return
			}
			if distributor == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx = WithTenantID(ctx, distributor.ID.String())
			if logg != nil {
				ctx = logg.WithDistributorID(ctx, distributor.ID.String())
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
