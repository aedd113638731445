package materials

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/allocation"
	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/internal/repo/repotest"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

type fixture struct {
	conn    *gorm.DB
	svc     Service
	owner   *models.Organization
	peer    *models.Organization
	foreign *models.Organization
	admin   auth.Actor
	member  auth.Actor
	viewer  auth.Actor
	peerAdm auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := repotest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "materials-test", Output: io.Discard})

	svc, err := NewService(
		NewRepository(conn),
		db.FromConn(conn),
		organizations.NewRepository(conn),
		allocation.NewRepository(conn),
		outbox.NewService(outbox.NewRepository(conn), logg),
		logg,
	)
	require.NoError(t, err)

	owner := repotest.SeedOrganization(t, conn, "Mill", enums.OrganizationCategoryManufacturing, true)
	peer := repotest.SeedOrganization(t, conn, "Foundry", enums.OrganizationCategoryManufacturing, true)
	foreign := repotest.SeedOrganization(t, conn, "Hospital", enums.OrganizationCategoryHealthcare, true)

	return &fixture{
		conn:    conn,
		svc:     svc,
		owner:   owner,
		peer:    peer,
		foreign: foreign,
		admin:   auth.Actor{UserID: uuid.New(), OrganizationID: owner.ID, Role: enums.MemberRoleAdmin},
		member:  auth.Actor{UserID: uuid.New(), OrganizationID: owner.ID, Role: enums.MemberRoleMember},
		viewer:  auth.Actor{UserID: uuid.New(), OrganizationID: owner.ID, Role: enums.MemberRoleViewer},
		peerAdm: auth.Actor{UserID: uuid.New(), OrganizationID: peer.ID, Role: enums.MemberRoleOwner},
	}
}

func validCreateInput() CreateInput {
	until := time.Now().UTC().Add(30 * 24 * time.Hour)
	return CreateInput{
		Name:           "  Copper wire ",
		Category:       "metal",
		Quantity:       decimal.RequireFromString("40.5"),
		Unit:           "m",
		Condition:      enums.MaterialConditionNew,
		AvailableFrom:  time.Now().UTC(),
		AvailableUntil: &until,
		AttachmentRefs: []string{"spec-sheet.pdf", "photo.jpg"},
	}
}

func TestServiceCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dto, err := f.svc.Create(ctx, f.member, validCreateInput())
	require.NoError(t, err)
	assert.Equal(t, "Copper wire", dto.Name)
	assert.Equal(t, f.owner.ID, dto.OrganizationID)
	assert.Equal(t, enums.MaterialStatusAvailable, dto.Status)
	assert.False(t, dto.IsSurplus)
	assert.Equal(t, []string{"spec-sheet.pdf", "photo.jpg"}, dto.AttachmentRefs)

	stored, err := NewRepository(f.conn).FindByID(ctx, dto.ID)
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.RequireFromString("40.5")))
	assert.Equal(t, []string{"spec-sheet.pdf", "photo.jpg"}, []string(stored.AttachmentRefs))
}

func TestServiceCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cases := map[string]func(*CreateInput){
		"missing name":     func(in *CreateInput) { in.Name = " " },
		"missing category": func(in *CreateInput) { in.Category = "" },
		"missing unit":     func(in *CreateInput) { in.Unit = "" },
		"negative qty":     func(in *CreateInput) { in.Quantity = decimal.NewFromInt(-1) },
		"bad condition":    func(in *CreateInput) { in.Condition = "broken" },
		"missing window":   func(in *CreateInput) { in.AvailableFrom = time.Time{} },
		"inverted window": func(in *CreateInput) {
			before := in.AvailableFrom.Add(-time.Hour)
			in.AvailableUntil = &before
		},
		"negative cost": func(in *CreateInput) {
			cost := decimal.NewFromInt(-3)
			in.EstimatedUnitCost = &cost
		},
		"qty beyond scale": func(in *CreateInput) { in.Quantity = decimal.RequireFromString("1.00005") },
		"cost beyond scale": func(in *CreateInput) {
			cost := decimal.RequireFromString("0.123456")
			in.EstimatedUnitCost = &cost
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			input := validCreateInput()
			mutate(&input)
			_, err := f.svc.Create(ctx, f.admin, input)
			assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation), "got %v", err)
		})
	}

	_, err := f.svc.Create(ctx, f.viewer, validCreateInput())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	_, err = f.svc.Create(ctx, auth.Actor{}, validCreateInput())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeUnauthorized))
}

func TestServiceMarkSurplus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	material := repotest.SeedMaterial(t, f.conn, f.owner.ID, "12", repotest.WithStatus(enums.MaterialStatusReserved))

	_, err := f.svc.MarkSurplus(ctx, f.member, material.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden), "members cannot flag surplus")

	_, err = f.svc.MarkSurplus(ctx, f.peerAdm, material.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	dto, err := f.svc.MarkSurplus(ctx, f.admin, material.ID)
	require.NoError(t, err)
	assert.True(t, dto.IsSurplus)
	assert.Equal(t, enums.MaterialStatusAvailable, dto.Status)

	again, err := f.svc.MarkSurplus(ctx, f.admin, material.ID)
	require.NoError(t, err)
	assert.True(t, again.IsSurplus)

	var events []models.OutboxEvent
	require.NoError(t, f.conn.Where("aggregate_id = ?", material.ID).Find(&events).Error)
	require.Len(t, events, 1, "idempotent mark emits once")
	assert.Equal(t, enums.EventMaterialSurplusMarked, events[0].EventType)
}

func TestServiceMarkSurplusRejectsIneligible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	empty := repotest.SeedMaterial(t, f.conn, f.owner.ID, "0")
	_, err := f.svc.MarkSurplus(ctx, f.admin, empty.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))

	archived := repotest.SeedMaterial(t, f.conn, f.owner.ID, "5", repotest.WithStatus(enums.MaterialStatusArchived))
	_, err = f.svc.MarkSurplus(ctx, f.admin, archived.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))

	_, err = f.svc.MarkSurplus(ctx, f.admin, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceUnmarkSurplus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	material := repotest.SeedMaterial(t, f.conn, f.owner.ID, "8", repotest.WithSurplus())
	dto, err := f.svc.UnmarkSurplus(ctx, f.admin, material.ID)
	require.NoError(t, err)
	assert.False(t, dto.IsSurplus)

	_, err = f.svc.UnmarkSurplus(ctx, f.peerAdm, material.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestServiceUpdate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	material := repotest.SeedMaterial(t, f.conn, f.owner.ID, "8", repotest.WithSurplus())

	name := "Galvanized sheet"
	zero := decimal.Zero
	dto, err := f.svc.Update(ctx, f.admin, material.ID, UpdateInput{Name: &name, Quantity: &zero})
	require.NoError(t, err)
	assert.Equal(t, "Galvanized sheet", dto.Name)
	assert.True(t, dto.Quantity.IsZero())
	assert.False(t, dto.IsSurplus, "zero quantity leaves surplus")
	assert.Equal(t, f.owner.ID, dto.OrganizationID)
	require.NotNil(t, dto.UpdatedBy)
	assert.Equal(t, f.admin.UserID, *dto.UpdatedBy)

	other := repotest.SeedMaterial(t, f.conn, f.owner.ID, "3", repotest.WithSurplus())
	status := enums.MaterialStatusReserved
	dto, err = f.svc.Update(ctx, f.admin, other.ID, UpdateInput{Status: &status})
	require.NoError(t, err)
	assert.False(t, dto.IsSurplus)

	negative := decimal.NewFromInt(-1)
	_, err = f.svc.Update(ctx, f.admin, other.ID, UpdateInput{Quantity: &negative})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	fine := decimal.RequireFromString("2.00001")
	_, err = f.svc.Update(ctx, f.admin, other.ID, UpdateInput{Quantity: &fine})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = f.svc.Update(ctx, f.admin, other.ID, UpdateInput{EstimatedUnitCost: &fine})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	stored, err := NewRepository(f.conn).FindByID(ctx, other.ID)
	require.NoError(t, err)
	assert.True(t, stored.Quantity.Equal(decimal.NewFromInt(3)))

	before := other.AvailableFrom.Add(-time.Hour)
	_, err = f.svc.Update(ctx, f.admin, other.ID, UpdateInput{AvailableUntil: &before})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = f.svc.Update(ctx, f.peerAdm, other.ID, UpdateInput{Name: &name})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestServiceDeleteRefusedWhileReferenced(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	material := repotest.SeedMaterial(t, f.conn, f.owner.ID, "8", repotest.WithSurplus())
	request := &models.TransferRequest{
		MaterialID:         material.ID,
		FromOrganizationID: f.owner.ID,
		ToOrganizationID:   f.peer.ID,
		RequestedQuantity:  decimal.NewFromInt(2),
		Purpose:            "repairs",
		Status:             enums.TransferStatusRejected,
		RequestedBy:        f.peerAdm.UserID,
	}
	require.NoError(t, f.conn.Create(request).Error)

	err := f.svc.Delete(ctx, f.admin, material.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))

	loose := repotest.SeedMaterial(t, f.conn, f.owner.ID, "1")
	require.NoError(t, f.svc.Delete(ctx, f.admin, loose.ID))
	_, err = f.svc.Get(ctx, f.admin, loose.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestServiceGetVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	surplus := repotest.SeedMaterial(t, f.conn, f.owner.ID, "8", repotest.WithSurplus())
	private := repotest.SeedMaterial(t, f.conn, f.owner.ID, "8")

	_, err := f.svc.Get(ctx, f.viewer, private.ID)
	require.NoError(t, err, "own organization sees everything")

	_, err = f.svc.Get(ctx, f.peerAdm, surplus.ID)
	require.NoError(t, err)

	_, err = f.svc.Get(ctx, f.peerAdm, private.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	outsider := auth.Actor{UserID: uuid.New(), OrganizationID: f.foreign.ID, Role: enums.MemberRoleOwner}
	_, err = f.svc.Get(ctx, outsider, surplus.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	super := auth.Actor{UserID: uuid.New(), OrganizationID: f.foreign.ID, Role: enums.MemberRoleMember, PlatformRole: enums.PlatformRoleSuperAdmin}
	_, err = f.svc.Get(ctx, super, private.ID)
	require.NoError(t, err)
}

func TestServiceListOwnFiltersAndPages(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	repotest.SeedMaterial(t, f.conn, f.owner.ID, "5", repotest.WithName("Oak planks"), repotest.WithSurplus())
	repotest.SeedMaterial(t, f.conn, f.owner.ID, "50", repotest.WithName("Pine planks"))
	repotest.SeedMaterial(t, f.conn, f.owner.ID, "9", repotest.WithName("Bolts"), repotest.WithCondition(enums.MaterialConditionScrap))
	repotest.SeedMaterial(t, f.conn, f.peer.ID, "9", repotest.WithName("Planks elsewhere"))

	list, err := f.svc.ListOwn(ctx, f.member, MaterialFilters{Query: "PLANK"}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, list.Materials, 2)

	minQty := decimal.NewFromInt(10)
	list, err = f.svc.ListOwn(ctx, f.member, MaterialFilters{MinQuantity: &minQty}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Materials, 1)
	assert.Equal(t, "Pine planks", list.Materials[0].Name)

	surplus := true
	list, err = f.svc.ListOwn(ctx, f.member, MaterialFilters{IsSurplus: &surplus}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, list.Materials, 1)
	assert.Equal(t, "Oak planks", list.Materials[0].Name)

	first, err := f.svc.ListOwn(ctx, f.member, MaterialFilters{}, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Materials, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := f.svc.ListOwn(ctx, f.member, MaterialFilters{}, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Materials, 1)
	assert.Empty(t, second.NextCursor)

	bad := enums.MaterialCondition("melted")
	_, err = f.svc.ListOwn(ctx, f.member, MaterialFilters{Condition: &bad}, pagination.Params{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestServiceAllocationsOwnerOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	material := repotest.SeedMaterial(t, f.conn, f.owner.ID, "10", repotest.WithSurplus())
	require.NoError(t, f.conn.Create(&models.AllocationRecord{
		MaterialID:        material.ID,
		Position:          1,
		TransferRequestID: uuid.New(),
		QuantityAllocated: decimal.NewFromInt(4),
		AllocatedAt:       time.Now().UTC(),
		AllocatedBy:       f.admin.UserID,
	}).Error)

	history, err := f.svc.Allocations(ctx, f.viewer, material.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.True(t, history[0].QuantityAllocated.Equal(decimal.NewFromInt(4)))

	_, err = f.svc.Allocations(ctx, f.peerAdm, material.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil, nil)
	require.Error(t, err)
}
