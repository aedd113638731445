package transfers

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// MaterialSnapshot freezes what the requester saw when the request was made.
type MaterialSnapshot struct {
	ID                uuid.UUID               `json:"id"`
	Name              string                  `json:"name"`
	Category          string                  `json:"category"`
	Unit              string                  `json:"unit"`
	Condition         enums.MaterialCondition `json:"condition"`
	QuantityAtRequest decimal.Decimal         `json:"quantity_at_request"`
}

func snapshotOf(material *models.Material) (datatypes.JSON, error) {
	raw, err := json.Marshal(MaterialSnapshot{
		ID:                material.ID,
		Name:              material.Name,
		Category:          material.Category,
		Unit:              material.Unit,
		Condition:         material.Condition,
		QuantityAtRequest: material.Quantity,
	})
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(raw), nil
}

// TransferDTO is the API shape of a transfer request.
type TransferDTO struct {
	ID                    uuid.UUID            `json:"id"`
	MaterialID            uuid.UUID            `json:"material_id"`
	FromOrganizationID    uuid.UUID            `json:"from_organization_id"`
	ToOrganizationID      uuid.UUID            `json:"to_organization_id"`
	RequestedQuantity     decimal.Decimal      `json:"requested_quantity"`
	Purpose               string               `json:"purpose"`
	Status                enums.TransferStatus `json:"status"`
	RequestedBy           uuid.UUID            `json:"requested_by"`
	ApprovedBy            *uuid.UUID           `json:"approved_by,omitempty"`
	ApprovedAt            *time.Time           `json:"approved_at,omitempty"`
	DecidedAt             *time.Time           `json:"decided_at,omitempty"`
	DestinationMaterialID *uuid.UUID           `json:"destination_material_id,omitempty"`
	CreatedAt             time.Time            `json:"created_at"`
	UpdatedAt             time.Time            `json:"updated_at"`
}

func NewTransferDTO(r *models.TransferRequest) TransferDTO {
	return TransferDTO{
		ID:                    r.ID,
		MaterialID:            r.MaterialID,
		FromOrganizationID:    r.FromOrganizationID,
		ToOrganizationID:      r.ToOrganizationID,
		RequestedQuantity:     r.RequestedQuantity,
		Purpose:               r.Purpose,
		Status:                r.Status,
		RequestedBy:           r.RequestedBy,
		ApprovedBy:            r.ApprovedBy,
		ApprovedAt:            r.ApprovedAt,
		DecidedAt:             r.DecidedAt,
		DestinationMaterialID: r.DestinationMaterialID,
		CreatedAt:             r.CreatedAt,
		UpdatedAt:             r.UpdatedAt,
	}
}

// CommentDTO is one entry of the request thread.
type CommentDTO struct {
	Position  int                       `json:"position"`
	Type      enums.TransferCommentType `json:"type"`
	AuthorID  uuid.UUID                 `json:"author_id"`
	Body      string                    `json:"body"`
	CreatedAt time.Time                 `json:"created_at"`
}

// MaterialSummary combines the request-time snapshot with the live row when
// the material still exists.
type MaterialSummary struct {
	MaterialSnapshot
	CurrentQuantity *decimal.Decimal      `json:"current_quantity,omitempty"`
	CurrentStatus   *enums.MaterialStatus `json:"current_status,omitempty"`
}

// OrganizationSummary names one side of the transfer.
type OrganizationSummary struct {
	ID       uuid.UUID                  `json:"id"`
	Name     string                     `json:"name"`
	Category enums.OrganizationCategory `json:"category"`
}

// TransferDetail is returned by Get.
type TransferDetail struct {
	TransferDTO
	Comments []CommentDTO        `json:"comments"`
	Material MaterialSummary     `json:"material"`
	From     OrganizationSummary `json:"from_organization"`
	To       OrganizationSummary `json:"to_organization"`
}

// TransferList is a cursor page of transfer requests.
type TransferList struct {
	Transfers  []TransferDTO `json:"transfers"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

func newCommentDTOs(comments []models.TransferComment) []CommentDTO {
	out := make([]CommentDTO, 0, len(comments))
	for _, c := range comments {
		out = append(out, CommentDTO{
			Position:  c.Position,
			Type:      c.Type,
			AuthorID:  c.AuthorID,
			Body:      c.Body,
			CreatedAt: c.CreatedAt,
		})
	}
	return out
}

func newMaterialSummary(request *models.TransferRequest, live *models.Material) MaterialSummary {
	var summary MaterialSummary
	if len(request.MaterialSnapshot) > 0 {
		_ = json.Unmarshal(request.MaterialSnapshot, &summary.MaterialSnapshot)
	}
	summary.ID = request.MaterialID
	if live != nil {
		qty := live.Quantity
		status := live.Status
		summary.CurrentQuantity = &qty
		summary.CurrentStatus = &status
	}
	return summary
}

func newOrganizationSummary(org *models.Organization) OrganizationSummary {
	if org == nil {
		return OrganizationSummary{}
	}
	return OrganizationSummary{ID: org.ID, Name: org.Name, Category: org.Category}
}

func newTransferList(rows []models.TransferRequest, next string) *TransferList {
	out := make([]TransferDTO, 0, len(rows))
	for i := range rows {
		out = append(out, NewTransferDTO(&rows[i]))
	}
	return &TransferList{Transfers: out, NextCursor: next}
}
