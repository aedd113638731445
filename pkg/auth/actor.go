package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/surplusx-backend/pkg/enums"
)

// Actor is the authenticated caller every core operation authorizes against.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID uuid.UUID
	Role           enums.MemberRole
	PlatformRole   enums.PlatformRole
}

// IsSuperAdmin reports whether the actor is a platform operator.
func (a Actor) IsSuperAdmin() bool {
	return a.PlatformRole.IsSuperAdmin()
}

// BelongsTo reports whether the actor acts on behalf of organizationID.
func (a Actor) BelongsTo(organizationID uuid.UUID) bool {
	return organizationID != uuid.Nil && a.OrganizationID == organizationID
}

// CanAdminister reports whether the actor may manage inventory or decide
// transfers for organizationID.
func (a Actor) CanAdminister(organizationID uuid.UUID) bool {
	if a.IsSuperAdmin() {
		return true
	}
	return a.BelongsTo(organizationID) && a.Role.IsAdmin()
}

// Valid reports whether the actor carries both user and organization.
func (a Actor) Valid() bool {
	return a.UserID != uuid.Nil && a.OrganizationID != uuid.Nil
}
