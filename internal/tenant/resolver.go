package tenant

import (
	"context"
	"errors"
	"net"
	"strings"

	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
)

// Resolver maps an incoming request host to the distributor whose storefront
// it serves. Unknown hosts are not an error: the platform simply runs in
// marketplace mode for them.
type Resolver struct {
	db *gorm.DB
}

func NewResolver(db *gorm.DB) (*Resolver, error) {
	if db == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "tenant: db is required")
	}
	return &Resolver{db: db}, nil
}

// Resolve returns the distributor owning the verified storefront host, or nil
// when the host is unknown. The port, surrounding whitespace, and case are
// ignored; a trailing dot (absolute DNS form) is stripped.
func (r *Resolver) Resolve(ctx context.Context, host string) (*models.Distributor, error) {
	normalized := NormalizeHost(host)
	if normalized == "" {
		return nil, nil
	}

	var domain models.DistributorDomain
	err := r.db.WithContext(ctx).
		Where("host = ? AND verified = ?", normalized, true).
		First(&domain).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve tenant host")
	}

	var distributor models.Distributor
	err = r.db.WithContext(ctx).First(&distributor, "id = ?", domain.DistributorID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Domain row outlived its distributor; treat as unknown host.
		return nil, nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load tenant distributor")
	}
	return &distributor, nil
}

// NormalizeHost lowercases a request host and strips any port and trailing
// dot. An empty or unparseable host normalizes to "".
func NormalizeHost(host string) string {
	host = strings.TrimSpace(strings.ToLower(host))
	if host == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.TrimSuffix(host, ".")
}
