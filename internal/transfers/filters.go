package transfers

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

// TransferFilters narrows a transfer listing to one side of the exchange.
type TransferFilters struct {
	Direction  enums.TransferDirection
	Status     *enums.TransferStatus
	MaterialID *uuid.UUID

	organizationID uuid.UUID
}

// Validate rejects malformed filter values before the query is built.
func (f TransferFilters) Validate() error {
	if _, err := enums.ParseTransferDirection(string(f.Direction)); err != nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "direction must be incoming or outgoing")
	}
	if f.Status != nil && !f.Status.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("invalid status %q", *f.Status))
	}
	return nil
}

func (f TransferFilters) apply(q *gorm.DB) *gorm.DB {
	switch f.Direction {
	case enums.TransferDirectionIncoming:
		q = q.Where("transfer_requests.from_organization_id = ?", f.organizationID)
	case enums.TransferDirectionOutgoing:
		q = q.Where("transfer_requests.to_organization_id = ?", f.organizationID)
	}
	if f.Status != nil {
		q = q.Where("transfer_requests.status = ?", *f.Status)
	}
	if f.MaterialID != nil {
		q = q.Where("transfer_requests.material_id = ?", *f.MaterialID)
	}
	return q
}
