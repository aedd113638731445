package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/surplusx-backend/internal/materials"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

type stubMaterialsService struct {
	createFn      func(ctx context.Context, actor auth.Actor, input materials.CreateInput) (*materials.MaterialDTO, error)
	updateFn      func(ctx context.Context, actor auth.Actor, id uuid.UUID, input materials.UpdateInput) (*materials.MaterialDTO, error)
	deleteFn      func(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	markFn        func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*materials.MaterialDTO, error)
	unmarkFn      func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*materials.MaterialDTO, error)
	listFn        func(ctx context.Context, actor auth.Actor, filters materials.MaterialFilters, params pagination.Params) (*materials.MaterialList, error)
	allocationsFn func(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]materials.AllocationDTO, error)
}

func (s *stubMaterialsService) Create(ctx context.Context, actor auth.Actor, input materials.CreateInput) (*materials.MaterialDTO, error) {
	return s.createFn(ctx, actor, input)
}

func (s *stubMaterialsService) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input materials.UpdateInput) (*materials.MaterialDTO, error) {
	return s.updateFn(ctx, actor, id, input)
}

func (s *stubMaterialsService) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	return s.deleteFn(ctx, actor, id)
}

func (s *stubMaterialsService) MarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*materials.MaterialDTO, error) {
	return s.markFn(ctx, actor, id)
}

func (s *stubMaterialsService) UnmarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*materials.MaterialDTO, error) {
	return s.unmarkFn(ctx, actor, id)
}

func (s *stubMaterialsService) Get(_ context.Context, _ auth.Actor, id uuid.UUID) (*materials.MaterialDTO, error) {
	return &materials.MaterialDTO{ID: id}, nil
}

func (s *stubMaterialsService) ListOwn(ctx context.Context, actor auth.Actor, filters materials.MaterialFilters, params pagination.Params) (*materials.MaterialList, error) {
	return s.listFn(ctx, actor, filters, params)
}

func (s *stubMaterialsService) Allocations(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]materials.AllocationDTO, error) {
	return s.allocationsFn(ctx, actor, id)
}

func TestCreateMaterialMapsPayload(t *testing.T) {
	actor := testActor()
	var got materials.CreateInput
	svc := &stubMaterialsService{
		createFn: func(_ context.Context, a auth.Actor, input materials.CreateInput) (*materials.MaterialDTO, error) {
			assert.Equal(t, actor, a)
			got = input
			return &materials.MaterialDTO{ID: uuid.New(), Name: input.Name}, nil
		},
	}

	body := `{"name":"  Oak planks ","category":"wood","quantity":"12.5","unit":"m2","condition":"good","notes":"   "}`
	resp := httptest.NewRecorder()
	CreateMaterial(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/materials", body, actor, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Oak planks", got.Name)
	assert.True(t, decimal.RequireFromString("12.5").Equal(got.Quantity))
	assert.Equal(t, enums.MaterialConditionGood, got.Condition)
	assert.Nil(t, got.Notes)
}

func TestCreateMaterialRejectsNegativeQuantity(t *testing.T) {
	svc := &stubMaterialsService{}
	body := `{"name":"Oak","category":"wood","quantity":-1,"unit":"m2","condition":"good"}`
	resp := httptest.NewRecorder()
	CreateMaterial(svc, testLogger())(resp, newRequest(http.MethodPost, "/api/v1/materials", body, testActor(), nil))

	require.Equal(t, http.StatusBadRequest, resp.Code)
	env := decodeError(t, resp)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, env.Error.Details, "quantity")
}

func TestListMaterialsParsesFilters(t *testing.T) {
	var gotFilters materials.MaterialFilters
	var gotParams pagination.Params
	svc := &stubMaterialsService{
		listFn: func(_ context.Context, _ auth.Actor, filters materials.MaterialFilters, params pagination.Params) (*materials.MaterialList, error) {
			gotFilters, gotParams = filters, params
			return &materials.MaterialList{}, nil
		},
	}

	resp := httptest.NewRecorder()
	target := "/api/v1/materials?is_surplus=true&condition=new&status=available&min_quantity=5&q=steel&limit=10&cursor=abc"
	ListMaterials(svc, testLogger())(resp, newRequest(http.MethodGet, target, "", testActor(), nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, gotFilters.IsSurplus)
	assert.True(t, *gotFilters.IsSurplus)
	assert.Equal(t, enums.MaterialConditionNew, *gotFilters.Condition)
	assert.Equal(t, enums.MaterialStatusAvailable, *gotFilters.Status)
	assert.Equal(t, "5", gotFilters.MinQuantity.String())
	assert.Equal(t, "steel", gotFilters.Query)
	assert.Equal(t, pagination.Params{Limit: 10, Cursor: "abc"}, gotParams)
}

func TestListMaterialsRejectsBadLimit(t *testing.T) {
	resp := httptest.NewRecorder()
	ListMaterials(&stubMaterialsService{}, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/materials?limit=500", "", testActor(), nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestMaterialRoutesRequireValidID(t *testing.T) {
	resp := httptest.NewRecorder()
	GetMaterial(&stubMaterialsService{}, testLogger())(resp, newRequest(http.MethodGet, "/api/v1/materials/nope", "", testActor(), map[string]string{"materialId": "nope"}))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSurplusToggleCallsMatchingOperation(t *testing.T) {
	id := uuid.New()
	var marked, unmarked bool
	svc := &stubMaterialsService{
		markFn: func(_ context.Context, _ auth.Actor, got uuid.UUID) (*materials.MaterialDTO, error) {
			marked = got == id
			return &materials.MaterialDTO{ID: got, IsSurplus: true}, nil
		},
		unmarkFn: func(_ context.Context, _ auth.Actor, got uuid.UUID) (*materials.MaterialDTO, error) {
			unmarked = got == id
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "not your material")
		},
	}
	params := map[string]string{"materialId": id.String()}

	resp := httptest.NewRecorder()
	MarkMaterialSurplus(svc, testLogger())(resp, newRequest(http.MethodPost, "/", "", testActor(), params))
	require.Equal(t, http.StatusOK, resp.Code)
	var dto materials.MaterialDTO
	decodeData(t, resp, &dto)
	assert.True(t, dto.IsSurplus)

	resp = httptest.NewRecorder()
	UnmarkMaterialSurplus(svc, testLogger())(resp, newRequest(http.MethodDelete, "/", "", testActor(), params))
	assert.Equal(t, http.StatusForbidden, resp.Code)
	assert.True(t, marked)
	assert.True(t, unmarked)
}

func TestDeleteMaterialReturnsNoContent(t *testing.T) {
	svc := &stubMaterialsService{
		deleteFn: func(context.Context, auth.Actor, uuid.UUID) error { return nil },
	}
	resp := httptest.NewRecorder()
	DeleteMaterial(svc, testLogger())(resp, newRequest(http.MethodDelete, "/", "", testActor(), map[string]string{"materialId": uuid.NewString()}))
	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.Bytes())
}

func TestUpdateMaterialPassesOnlyProvidedFields(t *testing.T) {
	var got materials.UpdateInput
	svc := &stubMaterialsService{
		updateFn: func(_ context.Context, _ auth.Actor, _ uuid.UUID, input materials.UpdateInput) (*materials.MaterialDTO, error) {
			got = input
			return &materials.MaterialDTO{}, nil
		},
	}
	resp := httptest.NewRecorder()
	UpdateMaterial(svc, testLogger())(resp, newRequest(http.MethodPatch, "/", `{"quantity":"40","status":"archived"}`, testActor(), map[string]string{"materialId": uuid.NewString()}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, got.Quantity)
	assert.Equal(t, "40", got.Quantity.String())
	assert.Equal(t, enums.MaterialStatusArchived, *got.Status)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.Condition)
}

func TestMaterialAllocationsWrapsHistory(t *testing.T) {
	svc := &stubMaterialsService{
		allocationsFn: func(context.Context, auth.Actor, uuid.UUID) ([]materials.AllocationDTO, error) {
			return []materials.AllocationDTO{{Position: 1, QuantityAllocated: decimal.NewFromInt(3)}}, nil
		},
	}
	resp := httptest.NewRecorder()
	MaterialAllocations(svc, testLogger())(resp, newRequest(http.MethodGet, "/", "", testActor(), map[string]string{"materialId": uuid.NewString()}))

	require.Equal(t, http.StatusOK, resp.Code)
	var out struct {
		Allocations []materials.AllocationDTO `json:"allocations"`
	}
	decodeData(t, resp, &out)
	require.Len(t, out.Allocations, 1)
	assert.Equal(t, 1, out.Allocations[0].Position)
}

func TestMaterialsControllersRequireService(t *testing.T) {
	resp := httptest.NewRecorder()
	CreateMaterial(nil, testLogger())(resp, newRequest(http.MethodPost, "/", "{}", testActor(), nil))
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
}
