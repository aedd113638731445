package allocation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Repository persists the ledger side of materials: guarded decrements,
// destination materials and the append-only allocation history.
type Repository struct {
	repo.Base
}

// NewRepository binds the ledger repository to the provided connection.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that issues statements on tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

// DecrementQuantity subtracts qty from the material in a single guarded
// statement. Status and surplus flag flip in the same statement when the
// quantity reaches zero. It reports false when the guard rejected the update.
func (r *Repository) DecrementQuantity(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal, actorID uuid.UUID) (bool, error) {
	res := r.DB(ctx).
		Model(&models.Material{}).
		Where("id = ? AND quantity >= ?", materialID, qty).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"status":     gorm.Expr("CASE WHEN quantity - ? <= 0 THEN ? ELSE status END", qty, enums.MaterialStatusTransferred),
			"is_surplus": gorm.Expr("CASE WHEN quantity - ? <= 0 THEN ? ELSE is_surplus END", qty, false),
			"updated_by": actorID,
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// FindMaterial loads a material by id.
func (r *Repository) FindMaterial(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	return repo.ByID[models.Material](r.DB(ctx), id)
}

// CreateMaterial inserts the destination material produced by an allocation.
func (r *Repository) CreateMaterial(ctx context.Context, material *models.Material) error {
	return r.DB(ctx).Create(material).Error
}

// NextPosition returns the 1-based position the next record should take.
func (r *Repository) NextPosition(ctx context.Context, materialID uuid.UUID) (int, error) {
	var current int
	err := r.DB(ctx).
		Model(&models.AllocationRecord{}).
		Where("material_id = ?", materialID).
		Select("COALESCE(MAX(position), 0)").
		Scan(&current).Error
	if err != nil {
		return 0, err
	}
	return current + 1, nil
}

// Append inserts an allocation record. Records are never updated.
func (r *Repository) Append(ctx context.Context, record *models.AllocationRecord) error {
	return r.DB(ctx).Create(record).Error
}

// ListByMaterial returns the material's history in ledger order.
func (r *Repository) ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.AllocationRecord, error) {
	var records []models.AllocationRecord
	err := r.DB(ctx).
		Where("material_id = ?", materialID).
		Order("position ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// SumAllocated totals quantity_allocated for a material.
func (r *Repository) SumAllocated(ctx context.Context, materialID uuid.UUID) (decimal.Decimal, error) {
	records, err := r.ListByMaterial(ctx, materialID)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, record := range records {
		total = total.Add(record.QuantityAllocated)
	}
	return total, nil
}
