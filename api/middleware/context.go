package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/internal/pricing"
	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

type contextKey string

const (
	ctxUserID        contextKey = "user_id"
	ctxRole          contextKey = "actor_role"
	ctxDistributorID contextKey = "distributor_id"
	ctxTenantID      contextKey = "tenant_distributor_id"
)

func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxUserID).(string); ok {
		return v
	}
	return ""
}

func RoleFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(string); ok {
		return v
	}
	return ""
}

func DistributorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxDistributorID).(string); ok {
		return v
	}
	return ""
}

func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxTenantID).(string); ok {
		return v
	}
	return ""
}

// WithUserID injects the user identifier into the context.
func WithUserID(ctx context.Context, userID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxUserID, userID)
}

// WithTenantID injects the host-resolved distributor into the context.
func WithTenantID(ctx context.Context, distributorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxTenantID, distributorID)
}

// RequesterFromContext assembles the pricing identity for the request: the
// authenticated role and affiliation when present, overlaid with the tenant
// host's distributor. Unauthenticated traffic yields a guest context.
func RequesterFromContext(ctx context.Context) pricing.RequesterContext {
	requester := pricing.Guest()

	switch enums.Role(RoleFromContext(ctx)) {
	case enums.RoleCustomer:
		requester = pricing.Customer()
	case enums.RoleDistributor, enums.RoleAdmin:
		requester.Role = enums.Role(RoleFromContext(ctx))
		if id, err := uuid.Parse(DistributorIDFromContext(ctx)); err == nil {
			requester = pricing.ForDistributor(id)
			requester.Role = enums.Role(RoleFromContext(ctx))
		}
	}

	if tenantID, err := uuid.Parse(TenantIDFromContext(ctx)); err == nil {
		requester = requester.WithTenant(tenantID)
	}
	return requester
}
