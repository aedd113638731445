package organizations

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Repository is the read-only organization directory backed by gorm.
type Repository struct {
	repo.Base
}

// NewRepository binds the directory to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a directory that reads inside tx.
func (r *Repository) WithTx(tx *gorm.DB) Directory {
	return &Repository{Base: r.Bind(tx)}
}

// FindByID returns the organization or gorm.ErrRecordNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error) {
	return repo.ByID[models.Organization](r.DB(ctx), id)
}

// ListByCategory returns active organizations of the category ordered by name.
func (r *Repository) ListByCategory(ctx context.Context, category enums.OrganizationCategory) ([]models.Organization, error) {
	var orgs []models.Organization
	err := r.DB(ctx).
		Where("category = ? AND is_active = ?", category, true).
		Order("name").
		Find(&orgs).Error
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// MemberUserIDs returns active members of the organization, optionally
// restricted to the provided roles.
func (r *Repository) MemberUserIDs(ctx context.Context, organizationID uuid.UUID, roles ...enums.MemberRole) ([]uuid.UUID, error) {
	query := r.DB(ctx).
		Model(&models.OrganizationMember{}).
		Where("organization_id = ? AND is_active = ?", organizationID, true)
	if len(roles) > 0 {
		query = query.Where("role IN ?", roles)
	}

	var ids []uuid.UUID
	if err := query.Order("created_at").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}
