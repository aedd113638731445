package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplusx-backend/api/middleware"
	"github.com/angelmondragon/surplusx-backend/api/responses"
	"github.com/angelmondragon/surplusx-backend/api/validators"
	"github.com/angelmondragon/surplusx-backend/internal/transfers"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
)

const maxPurposeLength = 2000

type createTransferRequest struct {
	MaterialID        uuid.UUID       `json:"material_id" validate:"required"`
	RequestedQuantity decimal.Decimal `json:"requested_quantity" validate:"decimal_gt0"`
	Purpose           string          `json:"purpose" validate:"required"`
}

type transferDecisionRequest struct {
	Note *string `json:"note,omitempty"`
}

// CreateTransfer opens a request against another organization's surplus.
func CreateTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfers service unavailable"))
			return
		}

		var req createTransferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		purpose := validators.SanitizeString(req.Purpose, maxPurposeLength)
		if purpose == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "purpose is required").WithDetails(map[string]string{"purpose": "is required"}))
			return
		}

		transfer, err := svc.Create(r.Context(), middleware.ActorFromContext(r.Context()), transfers.CreateInput{
			MaterialID:        req.MaterialID,
			RequestedQuantity: req.RequestedQuantity,
			Purpose:           purpose,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, transfer)
	}
}

// ListTransfers pages requests on one side of the caller's exchanges.
func ListTransfers(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfers service unavailable"))
			return
		}

		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		materialID, err := validators.ParseQueryUUID(r, "material_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query := r.URL.Query()
		filters := transfers.TransferFilters{
			Direction:  enums.TransferDirection(strings.TrimSpace(query.Get("direction"))),
			MaterialID: materialID,
		}
		if raw := strings.TrimSpace(query.Get("status")); raw != "" {
			status := enums.TransferStatus(raw)
			filters.Status = &status
		}

		list, err := svc.List(r.Context(), middleware.ActorFromContext(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func GetTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfers service unavailable"))
			return
		}
		id, err := validators.URLParamUUID(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		detail, err := svc.Get(r.Context(), middleware.ActorFromContext(r.Context()), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}

type decisionFunc func(ctx context.Context, actor auth.Actor, id uuid.UUID, input transfers.DecisionInput) (*transfers.TransferDTO, error)

// ApproveTransfer allocates the requested quantity to the requester.
func ApproveTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return transfersUnavailable(logg)
	}
	return decideTransfer(svc.Approve, logg)
}

func RejectTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return transfersUnavailable(logg)
	}
	return decideTransfer(svc.Reject, logg)
}

func CancelTransfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return transfersUnavailable(logg)
	}
	return decideTransfer(svc.Cancel, logg)
}

// decideTransfer accepts an empty body; the note is optional on every decision.
func decideTransfer(decide decisionFunc, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.URLParamUUID(r, "transferId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferDecisionRequest
		if err := validators.DecodeOptionalJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		transfer, err := decide(r.Context(), middleware.ActorFromContext(r.Context()), id, transfers.DecisionInput{
			Note: validators.SanitizeOptional(req.Note, maxNotesLength),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, transfer)
	}
}

func transfersUnavailable(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfers service unavailable"))
	}
}
