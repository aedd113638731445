package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// TransferRequestedEvent is emitted when a transfer request is created.
type TransferRequestedEvent struct {
	TransferRequestID  uuid.UUID       `json:"transfer_request_id" validate:"required"`
	MaterialID         uuid.UUID       `json:"material_id" validate:"required"`
	FromOrganizationID uuid.UUID       `json:"from_organization_id" validate:"required"`
	ToOrganizationID   uuid.UUID       `json:"to_organization_id" validate:"required"`
	RequestedQuantity  decimal.Decimal `json:"requested_quantity" validate:"decimal_gt0"`
	RequestedBy        uuid.UUID       `json:"requested_by" validate:"required"`
}

// TransferApprovedEvent records the allocation produced by an approval.
type TransferApprovedEvent struct {
	TransferRequestID     uuid.UUID       `json:"transfer_request_id" validate:"required"`
	MaterialID            uuid.UUID       `json:"material_id" validate:"required"`
	DestinationMaterialID uuid.UUID       `json:"destination_material_id" validate:"required"`
	AllocationID          uuid.UUID       `json:"allocation_id" validate:"required"`
	FromOrganizationID    uuid.UUID       `json:"from_organization_id" validate:"required"`
	ToOrganizationID      uuid.UUID       `json:"to_organization_id" validate:"required"`
	QuantityAllocated     decimal.Decimal `json:"quantity_allocated" validate:"decimal_gt0"`
	RemainingQuantity     decimal.Decimal `json:"remaining_quantity" validate:"decimal_gte0"`
	SourceDepleted        bool            `json:"source_depleted"`
	ApprovedBy            uuid.UUID       `json:"approved_by" validate:"required"`
	ApprovedAt            time.Time       `json:"approved_at"`
}

// TransferClosedEvent covers rejection and cancellation.
type TransferClosedEvent struct {
	TransferRequestID  uuid.UUID            `json:"transfer_request_id" validate:"required"`
	MaterialID         uuid.UUID            `json:"material_id" validate:"required"`
	FromOrganizationID uuid.UUID            `json:"from_organization_id" validate:"required"`
	ToOrganizationID   uuid.UUID            `json:"to_organization_id" validate:"required"`
	Status             enums.TransferStatus `json:"status" validate:"oneof=rejected cancelled"`
	ClosedBy           uuid.UUID            `json:"closed_by" validate:"required"`
	Reason             string               `json:"reason,omitempty"`
}

// MaterialSurplusMarkedEvent announces a material newly offered as surplus.
type MaterialSurplusMarkedEvent struct {
	MaterialID     uuid.UUID                  `json:"material_id" validate:"required"`
	OrganizationID uuid.UUID                  `json:"organization_id" validate:"required"`
	Category       enums.OrganizationCategory `json:"category"`
	Quantity       decimal.Decimal            `json:"quantity" validate:"decimal_gte0"`
}

// NotificationRequestedEvent asks the notification worker to fan out inbox rows.
type NotificationRequestedEvent struct {
	UserIDs           []uuid.UUID                `json:"user_ids" validate:"gt=0,dive,required"`
	OrganizationID    *uuid.UUID                 `json:"organization_id,omitempty"`
	Type              enums.NotificationType     `json:"type" validate:"required"`
	Priority          enums.NotificationPriority `json:"priority" validate:"required"`
	Title             string                     `json:"title" validate:"required"`
	Message           string                     `json:"message"`
	RelatedEntityType string                     `json:"related_entity_type,omitempty"`
	RelatedEntityID   *uuid.UUID                 `json:"related_entity_id,omitempty"`
}
