package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Material is an inventory line owned by exactly one organization.
type Material struct {
	ID                uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrganizationID    uuid.UUID               `gorm:"column:organization_id;type:uuid;not null;<-:create"`
	Name              string                  `gorm:"column:name;not null"`
	Category          string                  `gorm:"column:category;not null"`
	Quantity          decimal.Decimal         `gorm:"column:quantity;type:numeric(18,4);not null"`
	Unit              string                  `gorm:"column:unit;not null"`
	Condition         enums.MaterialCondition `gorm:"column:condition;type:material_condition;not null"`
	Status            enums.MaterialStatus    `gorm:"column:status;type:material_status;not null"`
	IsSurplus         bool                    `gorm:"column:is_surplus;not null;default:false"`
	AvailableFrom     time.Time               `gorm:"column:available_from;not null"`
	AvailableUntil    *time.Time              `gorm:"column:available_until"`
	EstimatedUnitCost *decimal.Decimal        `gorm:"column:estimated_unit_cost;type:numeric(18,4)"`
	Notes             *string                 `gorm:"column:notes"`
	AttachmentRefs    pq.StringArray          `gorm:"column:attachment_refs;type:text[]"`
	SourceMaterialID  *uuid.UUID              `gorm:"column:source_material_id;type:uuid"`
	SourceTransferID  *uuid.UUID              `gorm:"column:source_transfer_id;type:uuid"`
	CreatedBy         uuid.UUID               `gorm:"column:created_by;type:uuid;not null"`
	UpdatedBy         *uuid.UUID              `gorm:"column:updated_by;type:uuid"`
	CreatedAt         time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (m *Material) BeforeCreate(*gorm.DB) error { return assignID(&m.ID) }

// AllocationRecord is one append-only entry in a material's allocation history.
type AllocationRecord struct {
	ID                    uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MaterialID            uuid.UUID       `gorm:"column:material_id;type:uuid;not null"`
	Position              int             `gorm:"column:position;not null"`
	TransferRequestID     uuid.UUID       `gorm:"column:transfer_request_id;type:uuid;not null"`
	QuantityAllocated     decimal.Decimal `gorm:"column:quantity_allocated;type:numeric(18,4);not null"`
	AllocatedAt           time.Time       `gorm:"column:allocated_at;not null"`
	AllocatedBy           uuid.UUID       `gorm:"column:allocated_by;type:uuid;not null"`
	DestinationMaterialID *uuid.UUID      `gorm:"column:destination_material_id;type:uuid"`
	Notes                 *string         `gorm:"column:notes"`
}

func (AllocationRecord) TableName() string {
	return "material_allocations"
}

func (a *AllocationRecord) BeforeCreate(*gorm.DB) error { return assignID(&a.ID) }
