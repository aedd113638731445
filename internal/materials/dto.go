package materials

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// MaterialDTO is the material payload returned to clients.
type MaterialDTO struct {
	ID                uuid.UUID               `json:"id"`
	OrganizationID    uuid.UUID               `json:"organization_id"`
	Name              string                  `json:"name"`
	Category          string                  `json:"category"`
	Quantity          decimal.Decimal         `json:"quantity"`
	Unit              string                  `json:"unit"`
	Condition         enums.MaterialCondition `json:"condition"`
	Status            enums.MaterialStatus    `json:"status"`
	IsSurplus         bool                    `json:"is_surplus"`
	AvailableFrom     time.Time               `json:"available_from"`
	AvailableUntil    *time.Time              `json:"available_until,omitempty"`
	EstimatedUnitCost *decimal.Decimal        `json:"estimated_unit_cost,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
	AttachmentRefs    []string                `json:"attachment_refs"`
	SourceMaterialID  *uuid.UUID              `json:"source_material_id,omitempty"`
	SourceTransferID  *uuid.UUID              `json:"source_transfer_id,omitempty"`
	CreatedBy         uuid.UUID               `json:"created_by"`
	UpdatedBy         *uuid.UUID              `json:"updated_by,omitempty"`
	CreatedAt         time.Time               `json:"created_at"`
	UpdatedAt         time.Time               `json:"updated_at"`
}

// NewMaterialDTO maps the persisted model.
func NewMaterialDTO(m *models.Material) *MaterialDTO {
	if m == nil {
		return nil
	}
	return &MaterialDTO{
		ID:                m.ID,
		OrganizationID:    m.OrganizationID,
		Name:              m.Name,
		Category:          m.Category,
		Quantity:          m.Quantity,
		Unit:              m.Unit,
		Condition:         m.Condition,
		Status:            m.Status,
		IsSurplus:         m.IsSurplus,
		AvailableFrom:     m.AvailableFrom,
		AvailableUntil:    m.AvailableUntil,
		EstimatedUnitCost: m.EstimatedUnitCost,
		Notes:             m.Notes,
		AttachmentRefs:    append([]string{}, m.AttachmentRefs...),
		SourceMaterialID:  m.SourceMaterialID,
		SourceTransferID:  m.SourceTransferID,
		CreatedBy:         m.CreatedBy,
		UpdatedBy:         m.UpdatedBy,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

// MaterialList is one cursor page of materials.
type MaterialList struct {
	Materials  []MaterialDTO `json:"materials"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

// NewMaterialList maps a page of models.
func NewMaterialList(rows []models.Material, next string) *MaterialList {
	list := &MaterialList{Materials: make([]MaterialDTO, 0, len(rows)), NextCursor: next}
	for i := range rows {
		list.Materials = append(list.Materials, *NewMaterialDTO(&rows[i]))
	}
	return list
}

// AllocationDTO is one entry of a material's allocation history.
type AllocationDTO struct {
	Position              int             `json:"position"`
	TransferRequestID     uuid.UUID       `json:"transfer_request_id"`
	QuantityAllocated     decimal.Decimal `json:"quantity_allocated"`
	AllocatedAt           time.Time       `json:"allocated_at"`
	AllocatedBy           uuid.UUID       `json:"allocated_by"`
	DestinationMaterialID *uuid.UUID      `json:"destination_material_id,omitempty"`
	Notes                 *string         `json:"notes,omitempty"`
}

func newAllocationDTOs(records []models.AllocationRecord) []AllocationDTO {
	out := make([]AllocationDTO, 0, len(records))
	for _, r := range records {
		out = append(out, AllocationDTO{
			Position:              r.Position,
			TransferRequestID:     r.TransferRequestID,
			QuantityAllocated:     r.QuantityAllocated,
			AllocatedAt:           r.AllocatedAt,
			AllocatedBy:           r.AllocatedBy,
			DestinationMaterialID: r.DestinationMaterialID,
			Notes:                 r.Notes,
		})
	}
	return out
}
