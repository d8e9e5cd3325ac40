package distributors

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rmoralesdev/tradecart-backend/internal/tenant"
	"github.com/rmoralesdev/tradecart-backend/pkg/db"
	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	pkgerrors "github.com/rmoralesdev/tradecart-backend/pkg/errors"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

type cacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// CreateInput carries the fields of a new distributor. EmailDomain is
// normalized to lowercase and must be unique across tenants.
type CreateInput struct {
	Name                   string
	EmailDomain            string
	DefaultDiscountPercent *decimal.Decimal
}

// UpdateInput updates identity fields; discount rules are managed by the
// pricing admin surface.
type UpdateInput struct {
	Name        *string
	EmailDomain *string
}

type Service interface {
	Create(ctx context.Context, input CreateInput) (*models.Distributor, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Distributor, error)
	List(ctx context.Context, params pagination.Params) (*ListResult, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Distributor, error)
	Delete(ctx context.Context, id uuid.UUID) error
	MatchEmailDomain(ctx context.Context, email string) (*models.Distributor, error)
	AddDomain(ctx context.Context, distributorID uuid.UUID, host string) (*models.DistributorDomain, error)
	VerifyDomain(ctx context.Context, distributorID uuid.UUID, host string) error
	RemoveDomain(ctx context.Context, distributorID uuid.UUID, host string) error
}

type service struct {
	repo  *Repository
	stats cacheInvalidator
}

func NewService(repo *Repository, stats cacheInvalidator) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("distributor repository required")
	}
	return &service{repo: repo, stats: stats}, nil
}

func normalizeEmailDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	domain = strings.TrimPrefix(domain, "@")
	if domain == "" || !strings.Contains(domain, ".") || strings.ContainsAny(domain, " @/") {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid email domain")
	}
	return domain, nil
}

func validateDiscount(percent *decimal.Decimal) error {
	if percent == nil {
		return nil
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return pkgerrors.New(pkgerrors.CodeValidation, "default discount must be between 0 and 100")
	}
	return nil
}

func (s *service) Create(ctx context.Context, input CreateInput) (*models.Distributor, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	domain, err := normalizeEmailDomain(input.EmailDomain)
	if err != nil {
		return nil, err
	}
	if err := validateDiscount(input.DefaultDiscountPercent); err != nil {
		return nil, err
	}

	distributor := &models.Distributor{
		ID:                     uuid.New(),
		Name:                   name,
		EmailDomain:            domain,
		DefaultDiscountPercent: input.DefaultDiscountPercent,
	}
	if err := s.repo.Create(ctx, distributor); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email domain already claimed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create distributor")
	}
	s.invalidate(ctx)
	return distributor, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Distributor, error) {
	distributor, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor")
	}
	if distributor == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "distributor not found")
	}
	return distributor, nil
}

func (s *service) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	result, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list distributors")
	}
	return result, nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (*models.Distributor, error) {
	distributor, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name must not be blank")
		}
		distributor.Name = name
	}
	if input.EmailDomain != nil {
		domain, err := normalizeEmailDomain(*input.EmailDomain)
		if err != nil {
			return nil, err
		}
		distributor.EmailDomain = domain
	}
	if err := s.repo.Update(ctx, distributor); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email domain already claimed")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update distributor")
	}
	s.invalidate(ctx)
	return distributor, nil
}

// Delete removes a distributor only when no users remain affiliated with it.
func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	members, err := s.repo.CountMembers(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count distributor members")
	}
	if members > 0 {
		return pkgerrors.New(pkgerrors.CodeConflict, "distributor still has affiliated users").
			WithDetails(map[string]any{"members": members})
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete distributor")
	}
	s.invalidate(ctx)
	return nil
}

// MatchEmailDomain maps a user email to the distributor claiming its domain,
// or nil when the domain is unclaimed. Used at signup to auto-affiliate B2B
// buyers.
func (s *service) MatchEmailDomain(ctx context.Context, email string) (*models.Distributor, error) {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email")
	}
	domain := strings.ToLower(email[at+1:])
	distributor, err := s.repo.FindByEmailDomain(ctx, domain)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match email domain")
	}
	return distributor, nil
}

func (s *service) AddDomain(ctx context.Context, distributorID uuid.UUID, host string) (*models.DistributorDomain, error) {
	if _, err := s.Get(ctx, distributorID); err != nil {
		return nil, err
	}
	normalized := tenant.NormalizeHost(host)
	if normalized == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid host")
	}
	domain := &models.DistributorDomain{
		ID:            uuid.New(),
		DistributorID: distributorID,
		Host:          normalized,
	}
	if err := s.repo.AddDomain(ctx, domain); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "host already registered")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "add distributor domain")
	}
	return domain, nil
}

func (s *service) VerifyDomain(ctx context.Context, distributorID uuid.UUID, host string) error {
	normalized := tenant.NormalizeHost(host)
	domain, err := s.repo.FindDomain(ctx, normalized)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load distributor domain")
	}
	if domain == nil || domain.DistributorID != distributorID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "domain not found")
	}
	if domain.Verified {
		return nil
	}
	if err := s.repo.SetDomainVerified(ctx, domain.ID, true); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify distributor domain")
	}
	return nil
}

func (s *service) RemoveDomain(ctx context.Context, distributorID uuid.UUID, host string) error {
	normalized := tenant.NormalizeHost(host)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid host")
	}
	if err := s.repo.DeleteDomain(ctx, distributorID, normalized); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "remove distributor domain")
	}
	return nil
}

func (s *service) invalidate(ctx context.Context) {
	if s.stats != nil {
		s.stats.Invalidate(ctx)
	}
}
