// Package surplus answers which materials an organization may request.
package surplus

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/materials"
	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// SurplusFilters are the optional secondary filters, applied as a conjunction.
type SurplusFilters struct {
	Category    string
	Condition   *enums.MaterialCondition
	MinQuantity *decimal.Decimal
	Query       string
}

func (f SurplusFilters) validate() error {
	if f.Condition != nil && !f.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid condition filter")
	}
	if f.MinQuantity != nil && f.MinQuantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "min_quantity must be non-negative")
	}
	return nil
}

func (f SurplusFilters) apply(q *gorm.DB) *gorm.DB {
	if category := strings.TrimSpace(f.Category); category != "" {
		q = q.Where("m.category = ?", category)
	}
	if f.Condition != nil {
		q = q.Where("m.condition = ?", *f.Condition)
	}
	if f.MinQuantity != nil {
		q = q.Where("m.quantity >= ?", *f.MinQuantity)
	}
	if search := strings.TrimSpace(f.Query); search != "" {
		q = q.Where("LOWER(m.name) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	return q
}

// Listing is one page of the surplus view.
type Listing struct {
	Materials  []Item `json:"materials"`
	NextCursor string `json:"next_cursor,omitempty"`
}

// Item is a visible material with its owner's display name.
type Item struct {
	materials.MaterialDTO
	OrganizationName string `json:"organization_name"`
}

type row struct {
	models.Material
	OrganizationName string `gorm:"column:organization_name"`
}

// Index evaluates surplus visibility on every call; nothing is cached.
type Index struct {
	repo.Base
	directory organizations.Directory
}

// NewIndex builds the index over the materials table.
func NewIndex(db *gorm.DB, directory organizations.Directory) (*Index, error) {
	if db == nil {
		return nil, fmt.Errorf("db required")
	}
	if directory == nil {
		return nil, fmt.Errorf("organization directory required")
	}
	return &Index{Base: repo.NewBase(db), directory: directory}, nil
}

// List returns materials that are surplus, available, owned by another
// active organization of the requester's category, and match filters.
func (i *Index) List(ctx context.Context, actor auth.Actor, filters SurplusFilters, params pagination.Params) (*Listing, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if err := filters.validate(); err != nil {
		return nil, err
	}
	requester, err := organizations.RequireActive(ctx, i.directory, actor.OrganizationID)
	if err != nil {
		return nil, err
	}

	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	qb := i.DB(ctx).
		Table("materials m").
		Select("m.*, o.name AS organization_name").
		Joins("JOIN organizations o ON o.id = m.organization_id").
		Where("m.is_surplus = ?", true).
		Where("m.status = ?", enums.MaterialStatusAvailable).
		Where("m.organization_id <> ?", requester.ID).
		Where("o.category = ? AND o.is_active = ?", requester.Category, true)
	qb = filters.apply(qb)
	if cursor != nil {
		qb = qb.Where("(m.created_at < ?) OR (m.created_at = ? AND m.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []row
	err = qb.Order("m.created_at DESC").
		Order("m.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "query surplus")
	}

	rows, next := pagination.Trim(rows, params.Limit, func(r row) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})
	listing := &Listing{Materials: make([]Item, 0, len(rows)), NextCursor: next}
	for idx := range rows {
		listing.Materials = append(listing.Materials, Item{
			MaterialDTO:      *materials.NewMaterialDTO(&rows[idx].Material),
			OrganizationName: rows[idx].OrganizationName,
		})
	}
	return listing, nil
}
