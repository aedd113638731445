package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// TransferRequest mediates one allocation from a source organization's
// material to the requesting (destination) organization.
type TransferRequest struct {
	ID                    uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	MaterialID            uuid.UUID            `gorm:"column:material_id;type:uuid;not null"`
	FromOrganizationID    uuid.UUID            `gorm:"column:from_organization_id;type:uuid;not null;<-:create"`
	ToOrganizationID      uuid.UUID            `gorm:"column:to_organization_id;type:uuid;not null;<-:create"`
	RequestedQuantity     decimal.Decimal      `gorm:"column:requested_quantity;type:numeric(18,4);not null"`
	Purpose               string               `gorm:"column:purpose;not null"`
	Status                enums.TransferStatus `gorm:"column:status;type:transfer_status;not null"`
	RequestedBy           uuid.UUID            `gorm:"column:requested_by;type:uuid;not null"`
	ApprovedBy            *uuid.UUID           `gorm:"column:approved_by;type:uuid"`
	ApprovedAt            *time.Time           `gorm:"column:approved_at"`
	DecidedAt             *time.Time           `gorm:"column:decided_at"`
	DestinationMaterialID *uuid.UUID           `gorm:"column:destination_material_id;type:uuid"`
	MaterialSnapshot      datatypes.JSON       `gorm:"column:material_snapshot;type:jsonb"`
	CreatedAt             time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}

func (r *TransferRequest) BeforeCreate(*gorm.DB) error { return assignID(&r.ID) }

// TransferComment is one append-only entry in a transfer request's thread.
type TransferComment struct {
	ID                uuid.UUID                 `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	TransferRequestID uuid.UUID                 `gorm:"column:transfer_request_id;type:uuid;not null"`
	Position          int                       `gorm:"column:position;not null"`
	Type              enums.TransferCommentType `gorm:"column:type;type:transfer_comment_type;not null"`
	AuthorID          uuid.UUID                 `gorm:"column:author_id;type:uuid;not null"`
	Body              string                    `gorm:"column:body;not null"`
	CreatedAt         time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (c *TransferComment) BeforeCreate(*gorm.DB) error { return assignID(&c.ID) }
