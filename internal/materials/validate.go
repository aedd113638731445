package materials

import (
	"strings"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/validation"
)

func validateCreate(input CreateInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if strings.TrimSpace(input.Category) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "category is required")
	}
	if strings.TrimSpace(input.Unit) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "unit is required")
	}
	if input.Quantity.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
	}
	if err := checkScale("quantity", input.Quantity); err != nil {
		return err
	}
	if !input.Condition.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
	}
	if input.AvailableFrom.IsZero() {
		return pkgerrors.New(pkgerrors.CodeValidation, "available_from is required")
	}
	if input.AvailableUntil != nil && input.AvailableUntil.Before(input.AvailableFrom) {
		return pkgerrors.New(pkgerrors.CodeValidation, "available_until must not precede available_from")
	}
	if input.EstimatedUnitCost != nil {
		if input.EstimatedUnitCost.IsNegative() {
			return pkgerrors.New(pkgerrors.CodeValidation, "estimated_unit_cost must be non-negative")
		}
		if err := checkScale("estimated_unit_cost", *input.EstimatedUnitCost); err != nil {
			return err
		}
	}
	return nil
}

// checkScale rejects values the numeric columns would round.
func checkScale(field string, d decimal.Decimal) error {
	if validation.FitsScale(d) {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation, "%s must have at most %d decimal places", field, validation.QuantityScale).
		WithDetails(map[string]any{"field": field})
}

// buildUpdates validates the touched fields against the current row and
// returns the column map. organization_id is never part of it.
func buildUpdates(current *models.Material, input UpdateInput) (map[string]any, error) {
	updates := map[string]any{}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name cannot be empty")
		}
		updates["name"] = name
	}
	if input.Category != nil {
		category := strings.TrimSpace(*input.Category)
		if category == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "category cannot be empty")
		}
		updates["category"] = category
	}
	if input.Unit != nil {
		unit := strings.TrimSpace(*input.Unit)
		if unit == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unit cannot be empty")
		}
		updates["unit"] = unit
	}
	if input.Condition != nil {
		if !input.Condition.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid condition")
		}
		updates["condition"] = *input.Condition
	}

	if input.Quantity != nil {
		if input.Quantity.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be non-negative")
		}
		if err := checkScale("quantity", *input.Quantity); err != nil {
			return nil, err
		}
		updates["quantity"] = *input.Quantity
		if input.Quantity.IsZero() {
			updates["is_surplus"] = false
		}
	}
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
		}
		updates["status"] = *input.Status
		if *input.Status != enums.MaterialStatusAvailable {
			updates["is_surplus"] = false
		}
	}

	from := current.AvailableFrom
	if input.AvailableFrom != nil {
		if input.AvailableFrom.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_from cannot be empty")
		}
		from = input.AvailableFrom.UTC()
		updates["available_from"] = from
	}
	until := current.AvailableUntil
	if input.AvailableUntil != nil {
		until = utcPtr(input.AvailableUntil)
		updates["available_until"] = *until
	}
	if (input.AvailableFrom != nil || input.AvailableUntil != nil) && until != nil && until.Before(from) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "available_until must not precede available_from")
	}

	if input.EstimatedUnitCost != nil {
		if input.EstimatedUnitCost.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "estimated_unit_cost must be non-negative")
		}
		if err := checkScale("estimated_unit_cost", *input.EstimatedUnitCost); err != nil {
			return nil, err
		}
		updates["estimated_unit_cost"] = *input.EstimatedUnitCost
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}
	if input.AttachmentRefs != nil {
		updates["attachment_refs"] = pq.StringArray(*input.AttachmentRefs)
	}
	return updates, nil
}
