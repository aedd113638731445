// Package repotest opens throwaway sqlite databases carrying the service
// schema so repository and service tests can run without Postgres.
package repotest

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

var schema = []string{
	`CREATE TABLE organizations (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE organization_members (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  role TEXT NOT NULL,
  is_active INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE materials (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  name TEXT NOT NULL,
  category TEXT NOT NULL,
  quantity NUMERIC NOT NULL CHECK (quantity >= 0),
  unit TEXT NOT NULL,
  condition TEXT NOT NULL,
  status TEXT NOT NULL,
  is_surplus INTEGER NOT NULL DEFAULT 0,
  available_from DATETIME NOT NULL,
  available_until DATETIME,
  estimated_unit_cost NUMERIC,
  notes TEXT,
  attachment_refs TEXT,
  source_material_id TEXT,
  source_transfer_id TEXT,
  created_by TEXT NOT NULL,
  updated_by TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE material_allocations (
  id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  transfer_request_id TEXT NOT NULL,
  quantity_allocated NUMERIC NOT NULL,
  allocated_at DATETIME NOT NULL,
  allocated_by TEXT NOT NULL,
  destination_material_id TEXT,
  notes TEXT,
  UNIQUE (material_id, position),
  UNIQUE (transfer_request_id)
);`,
	`CREATE TABLE transfer_requests (
  id TEXT PRIMARY KEY,
  material_id TEXT NOT NULL,
  from_organization_id TEXT NOT NULL,
  to_organization_id TEXT NOT NULL,
  requested_quantity NUMERIC NOT NULL,
  purpose TEXT NOT NULL,
  status TEXT NOT NULL,
  requested_by TEXT NOT NULL,
  approved_by TEXT,
  approved_at DATETIME,
  decided_at DATETIME,
  destination_material_id TEXT,
  material_snapshot TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`,
	`CREATE TABLE transfer_comments (
  id TEXT PRIMARY KEY,
  transfer_request_id TEXT NOT NULL,
  position INTEGER NOT NULL,
  type TEXT NOT NULL,
  author_id TEXT NOT NULL,
  body TEXT NOT NULL,
  created_at DATETIME,
  UNIQUE (transfer_request_id, position)
);`,
	`CREATE TABLE notifications (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  user_id TEXT NOT NULL,
  organization_id TEXT,
  type TEXT NOT NULL,
  priority TEXT NOT NULL,
  title TEXT NOT NULL,
  message TEXT NOT NULL,
  related_entity_type TEXT,
  related_entity_id TEXT,
  read_at DATETIME,
  created_at DATETIME,
  UNIQUE (event_id, user_id)
);`,
	`CREATE TABLE outbox_events (
  id TEXT PRIMARY KEY,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload TEXT NOT NULL,
  created_at DATETIME,
  published_at DATETIME,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  last_error TEXT
);`,
	`CREATE TABLE outbox_dlq (
  id TEXT PRIMARY KEY,
  event_id TEXT NOT NULL,
  event_type TEXT NOT NULL,
  aggregate_type TEXT NOT NULL,
  aggregate_id TEXT NOT NULL,
  payload_json TEXT NOT NULL,
  error_reason TEXT NOT NULL,
  error_message TEXT,
  attempt_count INTEGER NOT NULL DEFAULT 0,
  failed_at DATETIME,
  created_at DATETIME
);`,
}

// Open returns an isolated in-memory database with every table created.
// The pool is pinned to one connection so concurrent transactions queue
// instead of tripping sqlite's shared-cache table locks.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, stmt := range schema {
		require.NoError(t, conn.Exec(stmt).Error)
	}
	return conn
}

// SeedOrganization inserts an organization with the given category.
func SeedOrganization(t testing.TB, conn *gorm.DB, name string, category enums.OrganizationCategory, active bool) *models.Organization {
	t.Helper()
	org := &models.Organization{Name: name, Category: category, IsActive: true}
	require.NoError(t, conn.Create(org).Error)
	if !active {
		// is_active carries a column default, so false has to be written explicitly.
		require.NoError(t, conn.Model(org).Update("is_active", false).Error)
		org.IsActive = false
	}
	return org
}

// SeedMember inserts an active membership and returns the user id.
func SeedMember(t testing.TB, conn *gorm.DB, orgID uuid.UUID, role enums.MemberRole) uuid.UUID {
	t.Helper()
	member := &models.OrganizationMember{
		OrganizationID: orgID,
		UserID:         uuid.New(),
		Role:           role,
		IsActive:       true,
	}
	require.NoError(t, conn.Create(member).Error)
	return member.UserID
}

// MaterialOption tweaks a seeded material before insert.
type MaterialOption func(*models.Material)

// WithSurplus flags the seeded material as surplus.
func WithSurplus() MaterialOption {
	return func(m *models.Material) { m.IsSurplus = true }
}

// WithStatus overrides the seeded material status.
func WithStatus(status enums.MaterialStatus) MaterialOption {
	return func(m *models.Material) { m.Status = status }
}

// WithName overrides the seeded material name.
func WithName(name string) MaterialOption {
	return func(m *models.Material) { m.Name = name }
}

// WithCondition overrides the seeded material condition.
func WithCondition(condition enums.MaterialCondition) MaterialOption {
	return func(m *models.Material) { m.Condition = condition }
}

// SeedMaterial inserts an available material owned by orgID.
func SeedMaterial(t testing.TB, conn *gorm.DB, orgID uuid.UUID, qty string, opts ...MaterialOption) *models.Material {
	t.Helper()
	cost := decimal.RequireFromString("2.50")
	material := &models.Material{
		OrganizationID:    orgID,
		Name:              "Steel sheet",
		Category:          "metal",
		Quantity:          decimal.RequireFromString(qty),
		Unit:              "kg",
		Condition:         enums.MaterialConditionGood,
		Status:            enums.MaterialStatusAvailable,
		AvailableFrom:     time.Now().UTC().Add(-time.Hour),
		EstimatedUnitCost: &cost,
		CreatedBy:         uuid.New(),
	}
	for _, opt := range opts {
		opt(material)
	}
	require.NoError(t, conn.Create(material).Error)
	return material
}
