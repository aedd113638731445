package visibility

import (
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

// SurplusVisibilityInput drives the shared checks for cross-organization reads.
type SurplusVisibilityInput struct {
	Material  *models.Material
	Owner     *models.Organization
	Requester *models.Organization
}

// EnsureMaterialVisible enforces the rule the surplus index applies in SQL:
// a foreign material is visible only while it is available surplus owned by
// an active organization of the requester's category. Every failure reads as
// NOT_FOUND so hidden inventory never leaks its existence.
func EnsureMaterialVisible(input SurplusVisibilityInput) error {
	if input.Material == nil || input.Owner == nil || input.Requester == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if input.Material.OrganizationID != input.Owner.ID {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if input.Owner.ID == input.Requester.ID {
		// own inventory is never part of the surplus view
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if !input.Owner.IsActive || !input.Requester.IsActive {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if input.Owner.Category != input.Requester.Category {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
	}
	if !input.Material.IsSurplus || input.Material.Status != enums.MaterialStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeNotFound, "material not available as surplus")
	}
	return nil
}
