package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Organization is a tenant. Its category is fixed at creation and scopes
// which other organizations can see its surplus.
type Organization struct {
	ID        uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name      string                     `gorm:"column:name;not null"`
	Category  enums.OrganizationCategory `gorm:"column:category;type:organization_category;not null"`
	IsActive  bool                       `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time                  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time                  `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error { return assignID(&o.ID) }

// OrganizationMember links a user with an organization and captures their role.
type OrganizationMember struct {
	ID             uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID uuid.UUID        `gorm:"column:organization_id;type:uuid;not null"`
	UserID         uuid.UUID        `gorm:"column:user_id;type:uuid;not null"`
	Role           enums.MemberRole `gorm:"column:role;type:member_role;not null"`
	IsActive       bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt      time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *OrganizationMember) BeforeCreate(*gorm.DB) error { return assignID(&m.ID) }
