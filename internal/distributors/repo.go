package distributors

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/rmoralesdev/tradecart-backend/pkg/db/models"
	"github.com/rmoralesdev/tradecart-backend/pkg/pagination"
)

// Repository persists distributors and their storefront domains.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, distributor *models.Distributor) error {
	return r.db.WithContext(ctx).Create(distributor).Error
}

// FindByID loads a distributor with its domains, or nil when absent.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Distributor, error) {
	var distributor models.Distributor
	err := r.db.WithContext(ctx).
		Preload("Domains").
		First(&distributor, "id = ?", id).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

// FindByEmailDomain resolves the distributor owning a corporate email domain,
// or nil when unclaimed.
func (r *Repository) FindByEmailDomain(ctx context.Context, emailDomain string) (*models.Distributor, error) {
	var distributor models.Distributor
	err := r.db.WithContext(ctx).
		First(&distributor, "email_domain = ?", emailDomain).
		Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &distributor, nil
}

func (r *Repository) Update(ctx context.Context, distributor *models.Distributor) error {
	return r.db.WithContext(ctx).Save(distributor).Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Distributor{}).Error
}

// CountMembers returns how many users carry the distributor affiliation. The
// deletion guard refuses to orphan them.
func (r *Repository) CountMembers(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("distributor_id = ?", id).
		Count(&count).
		Error
	return count, err
}

// ListResult is one page of distributors plus the cursor for the next.
type ListResult struct {
	Distributors []models.Distributor
	NextCursor   string
}

// List returns distributors newest-first with cursor pagination.
func (r *Repository) List(ctx context.Context, params pagination.Params) (*ListResult, error) {
	pageSize := pagination.NormalizeLimit(params.Limit)
	limitWithBuffer := pagination.LimitWithBuffer(params.Limit)

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, err
	}

	qb := r.db.WithContext(ctx).Model(&models.Distributor{})
	if cursor != nil {
		qb = qb.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Distributor
	if err := qb.Order("created_at DESC").Order("id DESC").Limit(limitWithBuffer).Find(&rows).Error; err != nil {
		return nil, err
	}

	nextCursor := ""
	if len(rows) > pageSize {
		rows = rows[:pageSize]
		last := rows[len(rows)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{CreatedAt: last.CreatedAt, ID: last.ID})
	}

	return &ListResult{Distributors: rows, NextCursor: nextCursor}, nil
}

// AddDomain attaches a storefront host record.
func (r *Repository) AddDomain(ctx context.Context, domain *models.DistributorDomain) error {
	return r.db.WithContext(ctx).Create(domain).Error
}

// FindDomain loads a domain row by host, or nil when absent.
func (r *Repository) FindDomain(ctx context.Context, host string) (*models.DistributorDomain, error) {
	var domain models.DistributorDomain
	err := r.db.WithContext(ctx).First(&domain, "host = ?", host).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain, nil
}

// SetDomainVerified flips the verification flag on a host record.
func (r *Repository) SetDomainVerified(ctx context.Context, id uuid.UUID, verified bool) error {
	return r.db.WithContext(ctx).
		Model(&models.DistributorDomain{}).
		Where("id = ?", id).
		Update("verified", verified).
		Error
}

// DeleteDomain removes a host record scoped to its distributor.
func (r *Repository) DeleteDomain(ctx context.Context, distributorID uuid.UUID, host string) error {
	return r.db.WithContext(ctx).
		Where("distributor_id = ? AND host = ?", distributorID, host).
		Delete(&models.DistributorDomain{}).
		Error
}
