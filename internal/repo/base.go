// Package repo holds the plumbing shared by the domain repositories.
package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Base is embedded by every repository. The zero value is unusable.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB scopes the connection to ctx. A nil ctx returns the raw handle.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Locked is DB with SELECT ... FOR UPDATE. The lock only holds inside a
// transaction, and sqlite drops the clause.
func (b Base) Locked(ctx context.Context) *gorm.DB {
	return b.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"})
}

// Bind swaps the handle for tx; nil keeps the current one.
func (b Base) Bind(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}

func (b Base) Conn() *gorm.DB {
	return b.db
}

// ByID loads the row of T with the given primary key. Misses surface as
// gorm.ErrRecordNotFound for the service layer to translate.
func ByID[T any](q *gorm.DB, id uuid.UUID) (*T, error) {
	var row T
	if err := q.Where("id = ?", id).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}
