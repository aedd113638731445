package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/surplusx-backend/api/middleware"
	"github.com/angelmondragon/surplusx-backend/api/responses"
	"github.com/angelmondragon/surplusx-backend/api/validators"
	"github.com/angelmondragon/surplusx-backend/internal/surplus"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// SurplusLister is satisfied by surplus.Index.
type SurplusLister interface {
	List(ctx context.Context, actor auth.Actor, filters surplus.SurplusFilters, params pagination.Params) (*surplus.Listing, error)
}

// ListSurplus returns the materials the caller's organization may request.
func ListSurplus(index SurplusLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if index == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "surplus index unavailable"))
			return
		}

		params, err := pageParams(r)
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
		filters := surplus.SurplusFilters{
			Category:    strings.TrimSpace(query.Get("category")),
			MinQuantity: minQuantity,
			Query:       validators.SanitizeString(query.Get("q"), maxQueryLength),
		}
		if raw := strings.TrimSpace(query.Get("condition")); raw != "" {
			condition := enums.MaterialCondition(raw)
			filters.Condition = &condition
		}

		listing, err := index.List(r.Context(), middleware.ActorFromContext(r.Context()), filters, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, listing)
	}
}
