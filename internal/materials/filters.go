package materials

import (
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

// MaterialFilters narrows an organization's own inventory listing.
type MaterialFilters struct {
	Category    string
	Condition   *enums.MaterialCondition
	Status      *enums.MaterialStatus
	IsSurplus   *bool
	MinQuantity *decimal.Decimal
	Query       string
}

// Validate rejects filter values that can never match.
func (f MaterialFilters) Validate() error {
	if f.Condition != nil && !f.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid condition filter")
	}
	if f.Status != nil && !f.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
	}
	if f.MinQuantity != nil && f.MinQuantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_quantity must be non-negative")
	}
	return nil
}

func (f MaterialFilters) apply(q *gorm.DB) *gorm.DB {
	if category := strings.TrimSpace(f.Category); category != "" {
		q = q.Where("materials.category = ?", category)
	}
	if f.Condition != nil {
		q = q.Where("materials.condition = ?", *f.Condition)
	}
	if f.Status != nil {
		q = q.Where("materials.status = ?", *f.Status)
	}
	if f.IsSurplus != nil {
		q = q.Where("materials.is_surplus = ?", *f.IsSurplus)
	}
	if f.MinQuantity != nil {
		q = q.Where("materials.quantity >= ?", *f.MinQuantity)
	}
	if search := strings.TrimSpace(f.Query); search != "" {
		q = q.Where("LOWER(materials.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return q
}
