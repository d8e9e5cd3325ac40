package pricing

import (
	"github.com/google/uuid"

	"github.com/rmoralesdev/tradecart-backend/pkg/enums"
)

// RequesterContext is the immutable identity a request resolves to before any
// price is computed. It is built once by middleware and passed explicitly;
// the resolver never reads ambient request state.
type RequesterContext struct {
	Role enums.Role

	// DistributorID is the authenticated user's distributor affiliation.
	DistributorID *uuid.UUID

	// TenantDistributorID is the distributor the request host resolved to
	// (storefront mode). Only consulted when there is no session affiliation.
	TenantDistributorID *uuid.UUID
}

// Guest is the zero-identity context: always base price.
func Guest() RequesterContext {
	return RequesterContext{Role: enums.RoleGuest}
}

// Customer is an authenticated buyer with no distributor affiliation.
func Customer() RequesterContext {
	return RequesterContext{Role: enums.RoleCustomer}
}

// ForDistributor is an authenticated distributor-affiliated user.
func ForDistributor(distributorID uuid.UUID) RequesterContext {
	id := distributorID
	return RequesterContext{Role: enums.RoleDistributor, DistributorID: &id}
}

// ForTenant is an unauthenticated request on a storefront host.
func ForTenant(distributorID uuid.UUID) RequesterContext {
	id := distributorID
	return RequesterContext{Role: enums.RoleGuest, TenantDistributorID: &id}
}

// WithTenant overlays a resolved tenant onto an existing context. Session
// affiliation keeps priority inside EffectiveDistributorID.
func (rc RequesterContext) WithTenant(distributorID uuid.UUID) RequesterContext {
	id := distributorID
	rc.TenantDistributorID = &id
	return rc
}

// EffectiveDistributorID returns the distributor whose pricing rules apply:
// the session affiliation when present, otherwise the tenant host's.
func (rc RequesterContext) EffectiveDistributorID() *uuid.UUID {
	if rc.DistributorID != nil {
		return rc.DistributorID
	}
	return rc.TenantDistributorID
}
