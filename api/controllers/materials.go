package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplusx-backend/api/middleware"
	"github.com/angelmondragon/surplusx-backend/api/responses"
	"github.com/angelmondragon/surplusx-backend/api/validators"
	"github.com/angelmondragon/surplusx-backend/internal/materials"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

const (
	maxNameLength  = 200
	maxNotesLength = 2000
	maxQueryLength = 100
)

type createMaterialRequest struct {
	Name              string                  `json:"name" validate:"required,max=200"`
	Category          string                  `json:"category" validate:"required,max=100"`
	Quantity          decimal.Decimal         `json:"quantity" validate:"decimal_gte0"`
	Unit              string                  `json:"unit" validate:"required,max=32"`
	Condition         enums.MaterialCondition `json:"condition" validate:"required"`
	AvailableFrom     *time.Time              `json:"available_from,omitempty"`
	AvailableUntil    *time.Time              `json:"available_until,omitempty"`
	EstimatedUnitCost *decimal.Decimal        `json:"estimated_unit_cost,omitempty"`
	Notes             *string                 `json:"notes,omitempty"`
	AttachmentRefs    []string                `json:"attachment_refs,omitempty" validate:"omitempty,dive,required"`
}

func (req createMaterialRequest) toInput() materials.CreateInput {
	input := materials.CreateInput{
		Name:              validators.SanitizeString(req.Name, maxNameLength),
		Category:          strings.TrimSpace(req.Category),
		Quantity:          req.Quantity,
		Unit:              strings.TrimSpace(req.Unit),
		Condition:         req.Condition,
		AvailableUntil:    req.AvailableUntil,
		EstimatedUnitCost: req.EstimatedUnitCost,
		Notes:             validators.SanitizeOptional(req.Notes, maxNotesLength),
		AttachmentRefs:    req.AttachmentRefs,
	}
	if req.AvailableFrom != nil {
		input.AvailableFrom = *req.AvailableFrom
	}
	return input
}

type updateMaterialRequest struct {
	Name              *string                  `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	Category          *string                  `json:"category,omitempty" validate:"omitempty,min=1,max=100"`
	Quantity          *decimal.Decimal         `json:"quantity,omitempty"`
	Unit              *string                  `json:"unit,omitempty" validate:"omitempty,min=1,max=32"`
	Condition         *enums.MaterialCondition `json:"condition,omitempty"`
	Status            *enums.MaterialStatus    `json:"status,omitempty"`
	AvailableFrom     *time.Time               `json:"available_from,omitempty"`
	AvailableUntil    *time.Time               `json:"available_until,omitempty"`
	EstimatedUnitCost *decimal.Decimal         `json:"estimated_unit_cost,omitempty"`
	Notes             *string                  `json:"notes,omitempty"`
	AttachmentRefs    *[]string                `json:"attachment_refs,omitempty"`
}

func (req updateMaterialRequest) toInput() materials.UpdateInput {
	input := materials.UpdateInput{
		Category:          req.Category,
		Quantity:          req.Quantity,
		Unit:              req.Unit,
		Condition:         req.Condition,
		Status:            req.Status,
		AvailableFrom:     req.AvailableFrom,
		AvailableUntil:    req.AvailableUntil,
		EstimatedUnitCost: req.EstimatedUnitCost,
		Notes:             req.Notes,
		AttachmentRefs:    req.AttachmentRefs,
	}
	if req.Name != nil {
		name := validators.SanitizeString(*req.Name, maxNameLength)
		input.Name = &name
	}
	return input
}

// CreateMaterial registers a material for the caller's organization.
func CreateMaterial(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}

		var req createMaterialRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		material, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, material)
	}
}

// ListMaterials returns the caller organization's own inventory.
func ListMaterials(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		isSurplus, err := validators.ParseQueryBool(r, "is_surplus")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		minQuantity, err := validators.ParseQueryDecimal(r, "min_quantity")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filters := materials.MaterialFilters{
			Category:    strings.TrimSpace(query.Get("category")),
			IsSurplus:   isSurplus,
			MinQuantity: minQuantity,
			Query:       validators.SanitizeString(query.Get("q"), maxQueryLength),
		}
		if raw := strings.TrimSpace(query.Get("condition")); raw != "" {
			condition := enums.MaterialCondition(raw)
			filters.Condition = &condition
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status := enums.MaterialStatus(raw)
			filters.Status = &status
		}

		list, err := svc.ListOwn(r.Context(), middleware.ActorFromContext(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetMaterial(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		material, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, material)
	}
}

// UpdateMaterial applies a partial update. Absent fields stay untouched.
func UpdateMaterial(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req updateMaterialRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		material, err := svc.Update(r.Context(), middleware.ActorFromContext(r.Context()), id, req.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, material)
	}
}

func DeleteMaterial(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.ActorFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// MarkMaterialSurplus flags a material as offered to peer organizations.
func MarkMaterialSurplus(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return toggleSurplus(svc, logg, true)
}

// UnmarkMaterialSurplus withdraws a material from the surplus view.
func UnmarkMaterialSurplus(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return toggleSurplus(svc, logg, false)
}

func toggleSurplus(svc materials.Service, logg *logger.Logger, mark bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		actor := middleware.ActorFromContext(r.Context())
		var material *materials.MaterialDTO
		if mark {
			material, err = svc.MarkSurplus(r.Context(), actor, id)
		} else {
			material, err = svc.UnmarkSurplus(r.Context(), actor, id)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, material)
	}
}

func MaterialAllocations(svc materials.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "materials service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "materialId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.Allocations(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"allocations": history})
	}
}

func pageParams(r *http.Request) (pagination.Params, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return pagination.Params{}, err
	}
	return pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}, nil
}
