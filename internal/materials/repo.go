package materials

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// Repository persists materials.
type Repository struct {
	repo.Base
}

// NewRepository binds the repository to the provided GORM connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that issues statements on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, material *models.Material) error {
	return r.DB(ctx).Create(material).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	return repo.ByID[models.Material](r.DB(ctx), id)
}

// FindForUpdate loads the material holding a row lock for the rest of the
// transaction. Drivers without row locks ignore the clause.
func (r *Repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	return repo.ByID[models.Material](r.Locked(ctx), id)
}

// Update applies column updates and reports whether a row matched.
func (r *Repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.DB(ctx).Model(&models.Material{}).Where("id = ?", id).Updates(updates)
	return res.RowsAffected > 0, res.Error
}

// SetSurplus flags the material as surplus when it is still eligible: positive
// quantity and a non-terminal status. A reserved material returns to available.
func (r *Repository) SetSurplus(ctx context.Context, id, actorID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Material{}).
		Where("id = ? AND quantity > ? AND status IN ?", id, 0, []enums.MaterialStatus{
			enums.MaterialStatusAvailable,
			enums.MaterialStatusReserved,
		}).
		Updates(map[string]any{
			"is_surplus": true,
			"status":     enums.MaterialStatusAvailable,
			"updated_by": actorID,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DB(ctx).Where("id = ?", id).Delete(&models.Material{}).Error
}

// CountTransferReferences counts transfer requests of any status pointing at the material.
func (r *Repository) CountTransferReferences(ctx context.Context, id uuid.UUID) (int64, error) {
	var count int64
	err := r.DB(ctx).
		Model(&models.TransferRequest{}).
		Where("material_id = ?", id).
		Count(&count).Error
	return count, err
}

// ListByOrganization pages through an organization's inventory newest first.
func (r *Repository) ListByOrganization(ctx context.Context, organizationID uuid.UUID, filters MaterialFilters, params pagination.Params) ([]models.Material, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := filters.apply(r.DB(ctx).Model(&models.Material{}).Where("materials.organization_id = ?", organizationID))
	if cursor != nil {
		qb = qb.Where("(materials.created_at < ?) OR (materials.created_at = ? AND materials.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.Material
	err = qb.Order("materials.created_at DESC").
		Order("materials.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	rows, next := pagination.Trim(rows, params.Limit, func(m models.Material) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return rows, next, nil
}
