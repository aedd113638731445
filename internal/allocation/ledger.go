// Package allocation moves quantity from a source material to a new
// material owned by the requesting organization.
package allocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
)

type store interface {
	DecrementQuantity(ctx context.Context, materialID uuid.UUID, qty decimal.Decimal, actorID uuid.UUID) (bool, error)
	FindMaterial(ctx context.Context, id uuid.UUID) (*models.Material, error)
	CreateMaterial(ctx context.Context, material *models.Material) error
	NextPosition(ctx context.Context, materialID uuid.UUID) (int, error)
	Append(ctx context.Context, record *models.AllocationRecord) error
}

// AllocateInput describes one approved transfer.
type AllocateInput struct {
	TransferRequestID         uuid.UUID
	MaterialID                uuid.UUID
	Quantity                  decimal.Decimal
	ApprovedBy                uuid.UUID
	SourceOrganizationName    string
	DestinationOrganizationID uuid.UUID
	Notes                     *string
}

// Result is the ledger state after a successful allocation.
type Result struct {
	Allocation  models.AllocationRecord
	Source      models.Material
	Destination models.Material
	Depleted    bool
}

// Ledger applies allocations inside a caller-owned transaction. It never
// commits or rolls back; any returned error must abort the transaction.
type Ledger struct {
	bind func(tx *gorm.DB) store
	logg *logger.Logger
	now  func() time.Time
}

// NewLedger builds a ledger over the gorm-backed Repository.
func NewLedger(logg *logger.Logger) *Ledger {
	return &Ledger{
		bind: func(tx *gorm.DB) store { return NewRepository(tx) },
		logg: logg,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Allocate decrements the source, creates the destination material and
// appends the allocation record, all on tx.
func (l *Ledger) Allocate(ctx context.Context, tx *gorm.DB, input AllocateInput) (*Result, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "allocation requires a transaction")
	}
	if !input.Quantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "allocation quantity must be greater than zero")
	}
	if input.DestinationOrganizationID == uuid.Nil || input.ApprovedBy == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "destination organization and approver are required")
	}

	st := l.bind(tx)
	now := l.now()

	ok, err := st.DecrementQuantity(ctx, input.MaterialID, input.Quantity, input.ApprovedBy)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement material quantity")
	}
	if !ok {
		return nil, l.insufficient(ctx, st, input)
	}

	source, err := st.FindMaterial(ctx, input.MaterialID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload source material")
	}

	note := fmt.Sprintf("Transferred from %s", input.SourceOrganizationName)
	sourceID := source.ID
	transferID := input.TransferRequestID
	destination := &models.Material{
		OrganizationID:    input.DestinationOrganizationID,
		Name:              source.Name,
		Category:          source.Category,
		Quantity:          input.Quantity,
		Unit:              source.Unit,
		Condition:         source.Condition,
		Status:            enums.MaterialStatusAvailable,
		IsSurplus:         false,
		AvailableFrom:     now,
		AvailableUntil:    source.AvailableUntil,
		EstimatedUnitCost: source.EstimatedUnitCost,
		Notes:             &note,
		SourceMaterialID:  &sourceID,
		SourceTransferID:  &transferID,
		CreatedBy:         input.ApprovedBy,
	}
	if err := st.CreateMaterial(ctx, destination); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create destination material")
	}

	position, err := st.NextPosition(ctx, source.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve allocation position")
	}
	destinationID := destination.ID
	record := &models.AllocationRecord{
		MaterialID:            source.ID,
		Position:              position,
		TransferRequestID:     input.TransferRequestID,
		QuantityAllocated:     input.Quantity,
		AllocatedAt:           now,
		AllocatedBy:           input.ApprovedBy,
		DestinationMaterialID: &destinationID,
		Notes:                 input.Notes,
	}
	if err := st.Append(ctx, record); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "transfer request already allocated")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append allocation record")
	}

	depleted := source.Quantity.Sign() == 0
	if l.logg != nil {
		logCtx := l.logg.WithFields(ctx, map[string]any{
			"material_id":             source.ID.String(),
			"transfer_request_id":     input.TransferRequestID.String(),
			"destination_material_id": destination.ID.String(),
			"quantity":                input.Quantity.String(),
			"remaining":               source.Quantity.String(),
			"position":                position,
			"depleted":                depleted,
		})
		l.logg.Info(logCtx, "ledger.allocated")
	}

	return &Result{
		Allocation:  *record,
		Source:      *source,
		Destination: *destination,
		Depleted:    depleted,
	}, nil
}

func (l *Ledger) insufficient(ctx context.Context, st store, input AllocateInput) error {
	current, err := st.FindMaterial(ctx, input.MaterialID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "requested quantity exceeds available quantity").
		WithDetails(map[string]any{
			"requested": input.Quantity.String(),
			"available": current.Quantity.String(),
		})
}
