// Package organizations exposes the organization directory the surplus
// workflow consults for categories, activity and member lookups.
package organizations

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
)

// Directory is the read-only view other components depend on.
type Directory interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Organization, error)
	ListByCategory(ctx context.Context, category enums.OrganizationCategory) ([]models.Organization, error)
	MemberUserIDs(ctx context.Context, organizationID uuid.UUID, roles ...enums.MemberRole) ([]uuid.UUID, error)
}

// RequireActive loads the organization and maps lookups onto typed errors:
// missing is NOT_FOUND, deactivated is FORBIDDEN.
func RequireActive(ctx context.Context, dir Directory, id uuid.UUID) (*models.Organization, error) {
	org, err := Lookup(ctx, dir, id)
	if err != nil {
		return nil, err
	}
	if !org.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "organization is inactive")
	}
	return org, nil
}

// Lookup loads the organization regardless of activity.
func Lookup(ctx context.Context, dir Directory, id uuid.UUID) (*models.Organization, error) {
	org, err := dir.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "organization not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load organization")
	}
	return org, nil
}
