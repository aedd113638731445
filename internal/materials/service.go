package materials

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
	"github.com/angelmondragon/surplusx-backend/pkg/visibility"
)

// Service exposes the material registry.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*MaterialDTO, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*MaterialDTO, error)
	Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error
	MarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error)
	UnmarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error)
	ListOwn(ctx context.Context, actor auth.Actor, filters MaterialFilters, params pagination.Params) (*MaterialList, error)
	Allocations(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]AllocationDTO, error)
}

// CreateInput holds the validated payload to register a material.
type CreateInput struct {
	Name              string
	Category          string
	Quantity          decimal.Decimal
	Unit              string
	Condition         enums.MaterialCondition
	AvailableFrom     time.Time
	AvailableUntil    *time.Time
	EstimatedUnitCost *decimal.Decimal
	Notes             *string
	AttachmentRefs    []string
}

// UpdateInput holds optional mutation values. Nil fields are left untouched.
type UpdateInput struct {
	Name              *string
	Category          *string
	Quantity          *decimal.Decimal
	Unit              *string
	Condition         *enums.MaterialCondition
	Status            *enums.MaterialStatus
	AvailableFrom     *time.Time
	AvailableUntil    *time.Time
	EstimatedUnitCost *decimal.Decimal
	Notes             *string
	AttachmentRefs    *[]string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type allocationReader interface {
	ListByMaterial(ctx context.Context, materialID uuid.UUID) ([]models.AllocationRecord, error)
}

type service struct {
	repo      *Repository
	tx        txRunner
	directory organizations.Directory
	history   allocationReader
	outbox    outboxEmitter
	logg      *logger.Logger
}

// NewService constructs the material registry.
func NewService(repo *Repository, tx txRunner, directory organizations.Directory, history allocationReader, emitter outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("material repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if directory == nil {
		return nil, fmt.Errorf("organization directory required")
	}
	if history == nil {
		return nil, fmt.Errorf("allocation reader required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		directory: directory,
		history:   history,
		outbox:    emitter,
		logg:      logg,
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*MaterialDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if !actor.IsSuperAdmin() && (!actor.Role.IsValid() || actor.Role == enums.MemberRoleViewer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "role cannot register materials")
	}
	if err := validateCreate(input); err != nil {
		return nil, err
	}
	if _, err := organizations.RequireActive(ctx, s.directory, actor.OrganizationID); err != nil {
		return nil, err
	}

	material := &models.Material{
		OrganizationID:    actor.OrganizationID,
		Name:              strings.TrimSpace(input.Name),
		Category:          strings.TrimSpace(input.Category),
		Quantity:          input.Quantity,
		Unit:              strings.TrimSpace(input.Unit),
		Condition:         input.Condition,
		Status:            enums.MaterialStatusAvailable,
		IsSurplus:         false,
		AvailableFrom:     input.AvailableFrom.UTC(),
		AvailableUntil:    utcPtr(input.AvailableUntil),
		EstimatedUnitCost: input.EstimatedUnitCost,
		Notes:             input.Notes,
		AttachmentRefs:    pq.StringArray(input.AttachmentRefs),
		CreatedBy:         actor.UserID,
	}
	if err := s.repo.Create(ctx, material); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert material")
	}

	s.logg.Info(s.logCtx(ctx, actor, material.ID), "material.created")
	return NewMaterialDTO(material), nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateInput) (*MaterialDTO, error) {
	var updated *models.Material
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		material, err := s.loadOwned(ctx, txRepo.FindForUpdate, actor, id)
		if err != nil {
			return err
		}

		updates, err := buildUpdates(material, input)
		if err != nil {
			return err
		}
		if len(updates) == 0 {
			updated = material
			return nil
		}
		updates["updated_by"] = actor.UserID
		if _, err := txRepo.Update(ctx, id, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update material")
		}
		updated, err = txRepo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload material")
		}
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "update material")
	}

	s.logg.Info(s.logCtx(ctx, actor, id), "material.updated")
	return NewMaterialDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, actor auth.Actor, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if _, err := s.loadOwned(ctx, txRepo.FindForUpdate, actor, id); err != nil {
			return err
		}
		refs, err := txRepo.CountTransferReferences(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "count transfer references")
		}
		if refs > 0 {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "material is referenced by transfer requests").
				WithDetails(map[string]any{"transfer_requests": refs})
		}
		if err := txRepo.Delete(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete material")
		}
		return nil
	})
	if err != nil {
		return asTyped(err, "delete material")
	}

	s.logg.Info(s.logCtx(ctx, actor, id), "material.deleted")
	return nil
}

func (s *service) MarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error) {
	material, err := s.loadOwned(ctx, s.repo.FindByID, actor, id)
	if err != nil {
		return nil, err
	}
	owner, err := organizations.Lookup(ctx, s.directory, material.OrganizationID)
	if err != nil {
		return nil, err
	}

	var (
		marked  *models.Material
		changed bool
	)
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := s.find(ctx, txRepo.FindForUpdate, id)
		if err != nil {
			return err
		}
		if current.IsSurplus && current.Status == enums.MaterialStatusAvailable {
			marked = current
			return nil
		}
		if current.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("material is %s", current.Status))
		}
		if !current.Quantity.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "material quantity must be greater than zero to mark surplus")
		}

		ok, err := txRepo.SetSurplus(ctx, id, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: mark surplus")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "material is no longer eligible for surplus")
		}
		marked, err = txRepo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload material")
		}
		changed = true
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMaterialSurplusMarked,
			AggregateType: enums.AggregateMaterial,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.MaterialSurplusMarkedEvent{
				MaterialID:     id,
				OrganizationID: owner.ID,
				Category:       owner.Category,
				Quantity:       marked.Quantity,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "mark surplus")
	}

	if changed {
		s.logg.Info(s.logCtx(ctx, actor, id), "material.surplus_marked")
	}
	return NewMaterialDTO(marked), nil
}

func (s *service) UnmarkSurplus(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error) {
	var material *models.Material
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		current, err := s.loadOwned(ctx, txRepo.FindForUpdate, actor, id)
		if err != nil {
			return err
		}
		if !current.IsSurplus {
			material = current
			return nil
		}
		if _, err := txRepo.Update(ctx, id, map[string]any{"is_surplus": false, "updated_by": actor.UserID}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: unmark surplus")
		}
		material, err = txRepo.FindByID(ctx, id)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload material")
		}
		return nil
	})
	if err != nil {
		return nil, asTyped(err, "unmark surplus")
	}
	return NewMaterialDTO(material), nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*MaterialDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	material, err := s.find(ctx, s.repo.FindByID, id)
	if err != nil {
		return nil, err
	}
	if actor.IsSuperAdmin() || actor.BelongsTo(material.OrganizationID) {
		return NewMaterialDTO(material), nil
	}

	owner, err := organizations.Lookup(ctx, s.directory, material.OrganizationID)
	if err != nil {
		return nil, err
	}
	requester, err := organizations.Lookup(ctx, s.directory, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := visibility.EnsureMaterialVisible(visibility.SurplusVisibilityInput{
		Material:  material,
		Owner:     owner,
		Requester: requester,
	}); err != nil {
		return nil, err
	}
	return NewMaterialDTO(material), nil
}

func (s *service) ListOwn(ctx context.Context, actor auth.Actor, filters MaterialFilters, params pagination.Params) (*MaterialList, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	rows, next, err := s.repo.ListByOrganization(ctx, actor.OrganizationID, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list materials")
	}
	return NewMaterialList(rows, next), nil
}

func (s *service) Allocations(ctx context.Context, actor auth.Actor, id uuid.UUID) ([]AllocationDTO, error) {
	material, err := s.find(ctx, s.repo.FindByID, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.BelongsTo(material.OrganizationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "material belongs to another organization")
	}
	records, err := s.history.ListByMaterial(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list allocations")
	}
	return newAllocationDTOs(records), nil
}

type finder func(ctx context.Context, id uuid.UUID) (*models.Material, error)

func (s *service) find(ctx context.Context, load finder, id uuid.UUID) (*models.Material, error) {
	material, err := load(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	return material, nil
}

// loadOwned enforces that only admins of the owning organization (or a
// platform super-admin) mutate the material.
func (s *service) loadOwned(ctx context.Context, load finder, actor auth.Actor, id uuid.UUID) (*models.Material, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	material, err := s.find(ctx, load, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAdminister(material.OrganizationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only owning organization admins can modify this material")
	}
	return material, nil
}

func (s *service) logCtx(ctx context.Context, actor auth.Actor, materialID uuid.UUID) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"material_id":     materialID.String(),
		"organization_id": actor.OrganizationID.String(),
		"user_id":         actor.UserID.String(),
	})
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	orgID := actor.OrganizationID
	return &outbox.ActorRef{UserID: actor.UserID, OrganizationID: &orgID, Role: string(actor.Role)}
}

func asTyped(err error, msg string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
