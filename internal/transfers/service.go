// Package transfers runs the transfer request lifecycle: a requesting
// organization asks for part of another organization's surplus and the
// source organization approves, rejects, or the requester cancels.
package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/allocation"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
	"github.com/angelmondragon/surplusx-backend/pkg/validation"
)

const relatedEntityTransfer = "transfer_request"

// Service is the transfer request state machine.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*TransferDTO, error)
	Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error)
	Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error)
	Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error)
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDetail, error)
	List(ctx context.Context, actor auth.Actor, filters TransferFilters, params pagination.Params) (*TransferList, error)
}

// CreateInput is a request for part of another organization's surplus.
type CreateInput struct {
	MaterialID        uuid.UUID
	RequestedQuantity decimal.Decimal
	Purpose           string
}

// DecisionInput carries the optional note stored on the closing comment.
type DecisionInput struct {
	Note *string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type allocator interface {
	Allocate(ctx context.Context, tx *gorm.DB, input allocation.AllocateInput) (*allocation.Result, error)
}

// Notifier receives fire-and-forget notifications after commit.
type Notifier interface {
	Notify(ctx context.Context, n notifications.Notification)
}

type service struct {
	repo      *Repository
	tx        txRunner
	directory organizations.Directory
	ledger    allocator
	outbox    outboxEmitter
	notifier  Notifier
	metrics   *metrics.TransferMetrics
	logg      *logger.Logger
	now       func() time.Time
}

// NewService wires the state machine. m may be nil.
func NewService(
	repo *Repository,
	tx txRunner,
	directory organizations.Directory,
	ledger allocator,
	emitter outboxEmitter,
	notifier Notifier,
	m *metrics.TransferMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("transfer repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if directory == nil {
		return nil, fmt.Errorf("organization directory required")
	}
	if ledger == nil {
		return nil, fmt.Errorf("allocation ledger required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:      repo,
		tx:        tx,
		directory: directory,
		ledger:    ledger,
		outbox:    emitter,
		notifier:  notifier,
		metrics:   m,
		logg:      logg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*TransferDTO, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if input.MaterialID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "material_id is required")
	}
	if !input.RequestedQuantity.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "requested_quantity must be greater than zero")
	}
	if !validation.FitsScale(input.RequestedQuantity) {
		return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "requested_quantity must have at most %d decimal places", validation.QuantityScale)
	}
	purpose := strings.TrimSpace(input.Purpose)
	if purpose == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "purpose is required")
	}

	requester, err := organizations.RequireActive(ctx, s.directory, actor.OrganizationID)
	if err != nil {
		return nil, err
	}
	material, err := s.findMaterial(ctx, s.repo, input.MaterialID)
	if err != nil {
		return nil, err
	}
	owner, err := organizations.Lookup(ctx, s.directory, material.OrganizationID)
	if err != nil {
		return nil, err
	}
	if err := checkRequestable(material, owner, requester, input.RequestedQuantity); err != nil {
		return nil, err
	}

	snapshot, err := snapshotOf(material)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode material snapshot")
	}
	request := &models.TransferRequest{
		MaterialID:         material.ID,
		FromOrganizationID: owner.ID,
		ToOrganizationID:   requester.ID,
		RequestedQuantity:  input.RequestedQuantity,
		Purpose:            purpose,
		Status:             enums.TransferStatusPending,
		RequestedBy:        actor.UserID,
		MaterialSnapshot:   snapshot,
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		if err := txRepo.Create(ctx, request); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert transfer request")
		}
		if err := txRepo.AppendComment(ctx, &models.TransferComment{
			TransferRequestID: request.ID,
			Type:              enums.TransferCommentRequest,
			AuthorID:          actor.UserID,
			Body:              purpose,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert request comment")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferRequested,
			AggregateType: enums.AggregateTransferRequest,
			AggregateID:   request.ID,
			Actor:         actorRef(actor),
			Data: payloads.TransferRequestedEvent{
				TransferRequestID:  request.ID,
				MaterialID:         material.ID,
				FromOrganizationID: owner.ID,
				ToOrganizationID:   requester.ID,
				RequestedQuantity:  request.RequestedQuantity,
				RequestedBy:        actor.UserID,
			},
		})
	})
	if err != nil {
		s.metrics.ObserveTransition(string(enums.TransferStatusPending), "error")
		return nil, asTyped(err, "create transfer request")
	}

	s.metrics.ObserveTransition(string(enums.TransferStatusPending), "ok")
	s.logg.Info(s.logCtx(ctx, actor, request), "transfer.requested")

	fromOrg := owner.ID
	s.notifier.Notify(ctx, notifications.Notification{
		Audience:          &notifications.Audience{OrganizationID: owner.ID, Roles: enums.AdminRoles},
		OrganizationID:    &fromOrg,
		Type:              enums.NotificationTypeTransferRequested,
		Priority:          enums.NotificationPriorityHigh,
		Title:             "New transfer request",
		Message:           fmt.Sprintf("%s requested %s %s of %s.", requester.Name, request.RequestedQuantity.String(), material.Unit, material.Name),
		RelatedEntityType: relatedEntityTransfer,
		RelatedEntityID:   &request.ID,
	})
	dto := NewTransferDTO(request)
	return &dto, nil
}

// checkRequestable applies the eligibility rules in the order callers see
// them reported. Category comes first so another category's inventory
// reveals nothing beyond the mismatch.
func checkRequestable(material *models.Material, owner, requester *models.Organization, qty decimal.Decimal) error {
	if owner.Category != requester.Category {
		return pkgerrors.New(pkgerrors.CodeCategoryMismatch, "requesting organization category does not match the source organization")
	}
	if !owner.IsActive {
		return pkgerrors.New(pkgerrors.CodeMaterialUnavailable, "owning organization is inactive")
	}
	if !material.IsSurplus {
		return pkgerrors.New(pkgerrors.CodeNotSurplus, "material is not offered as surplus")
	}
	if material.Status != enums.MaterialStatusAvailable {
		return pkgerrors.New(pkgerrors.CodeMaterialUnavailable, fmt.Sprintf("material is %s", material.Status))
	}
	if qty.GreaterThan(material.Quantity) {
		return insufficient(qty, material.Quantity)
	}
	if owner.ID == requester.ID {
		return pkgerrors.New(pkgerrors.CodeSelfTransfer, "organizations cannot request their own material")
	}
	return nil
}

func (s *service) Approve(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error) {
	request, err := s.loadDecidable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	destination, err := organizations.Lookup(ctx, s.directory, request.ToOrganizationID)
	if err != nil {
		return nil, err
	}
	if !destination.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidState, "destination organization is inactive")
	}
	source, err := organizations.Lookup(ctx, s.directory, request.FromOrganizationID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	var result *allocation.Result
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		material, err := s.findMaterial(ctx, txRepo, request.MaterialID)
		if err != nil {
			return err
		}
		if material.Quantity.LessThan(request.RequestedQuantity) {
			return insufficient(request.RequestedQuantity, material.Quantity)
		}
		if material.Status != enums.MaterialStatusAvailable {
			return pkgerrors.New(pkgerrors.CodeMaterialUnavailable, fmt.Sprintf("material is %s", material.Status))
		}

		approver := actor.UserID
		won, err := txRepo.Transition(ctx, id, map[string]any{
			"status":      enums.TransferStatusApproved,
			"approved_by": approver,
			"approved_at": now,
			"decided_at":  now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: approve transfer request")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "transfer request is no longer pending")
		}

		result, err = s.ledger.Allocate(ctx, tx, allocation.AllocateInput{
			TransferRequestID:         id,
			MaterialID:                request.MaterialID,
			Quantity:                  request.RequestedQuantity,
			ApprovedBy:                approver,
			SourceOrganizationName:    source.Name,
			DestinationOrganizationID: destination.ID,
			Notes:                     input.Note,
		})
		if err != nil {
			return err
		}
		if err := txRepo.SetDestination(ctx, id, result.Destination.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: stamp destination material")
		}
		if err := txRepo.AppendComment(ctx, &models.TransferComment{
			TransferRequestID: id,
			Type:              enums.TransferCommentApproval,
			AuthorID:          approver,
			Body:              noteOr(input.Note, "Approved"),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert approval comment")
		}

		if request, err = txRepo.FindByID(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transfer request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTransferApproved,
			AggregateType: enums.AggregateTransferRequest,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.TransferApprovedEvent{
				TransferRequestID:     id,
				MaterialID:            request.MaterialID,
				DestinationMaterialID: result.Destination.ID,
				AllocationID:          result.Allocation.ID,
				FromOrganizationID:    request.FromOrganizationID,
				ToOrganizationID:      request.ToOrganizationID,
				QuantityAllocated:     result.Allocation.QuantityAllocated,
				RemainingQuantity:     result.Source.Quantity,
				SourceDepleted:        result.Depleted,
				ApprovedBy:            approver,
				ApprovedAt:            now,
			},
		})
	})
	if err != nil {
		return nil, s.failTransition(ctx, actor, id, enums.TransferStatusApproved, err)
	}

	s.metrics.ObserveTransition(string(enums.TransferStatusApproved), "ok")
	s.metrics.AddAllocated(result.Allocation.QuantityAllocated)
	logCtx := s.logg.WithFields(s.logCtx(ctx, actor, request), map[string]any{
		"destination_material_id": result.Destination.ID.String(),
		"source_depleted":         result.Depleted,
	})
	s.logg.Info(logCtx, "transfer.approved")

	toOrg := request.ToOrganizationID
	s.notifier.Notify(ctx, notifications.Notification{
		Audience:          &notifications.Audience{OrganizationID: toOrg},
		OrganizationID:    &toOrg,
		Type:              enums.NotificationTypeTransferApproved,
		Priority:          enums.NotificationPriorityNormal,
		Title:             "Transfer approved",
		Message:           fmt.Sprintf("%s approved your request for %s %s of %s.", source.Name, request.RequestedQuantity.String(), result.Destination.Unit, result.Destination.Name),
		RelatedEntityType: relatedEntityTransfer,
		RelatedEntityID:   &request.ID,
	})
	dto := NewTransferDTO(request)
	return &dto, nil
}

func (s *service) Reject(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error) {
	request, err := s.loadDecidable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	request, err = s.close(ctx, actor, request, enums.TransferStatusRejected, enums.TransferCommentRejection, enums.EventTransferRejected, input.Note)
	if err != nil {
		return nil, err
	}

	message := "Your transfer request was rejected."
	if reason := noteOr(input.Note, ""); reason != "" {
		message = fmt.Sprintf("Your transfer request was rejected. Reason: %s", reason)
	}
	toOrg := request.ToOrganizationID
	s.notifier.Notify(ctx, notifications.Notification{
		UserIDs:           []uuid.UUID{request.RequestedBy},
		OrganizationID:    &toOrg,
		Type:              enums.NotificationTypeTransferRejected,
		Priority:          enums.NotificationPriorityNormal,
		Title:             "Transfer rejected",
		Message:           message,
		RelatedEntityType: relatedEntityTransfer,
		RelatedEntityID:   &request.ID,
	})
	dto := NewTransferDTO(request)
	return &dto, nil
}

func (s *service) Cancel(ctx context.Context, actor auth.Actor, id uuid.UUID, input DecisionInput) (*TransferDTO, error) {
	request, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if request.RequestedBy != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the requester can cancel a transfer request")
	}
	if request.Status != enums.TransferStatusPending {
		return nil, notPending(request.Status)
	}
	request, err = s.close(ctx, actor, request, enums.TransferStatusCancelled, enums.TransferCommentCancellation, enums.EventTransferCancelled, input.Note)
	if err != nil {
		return nil, err
	}
	dto := NewTransferDTO(request)
	return &dto, nil
}

// close moves a pending request into a terminal state that does not touch
// the material.
func (s *service) close(
	ctx context.Context,
	actor auth.Actor,
	request *models.TransferRequest,
	status enums.TransferStatus,
	commentType enums.TransferCommentType,
	event enums.OutboxEventType,
	note *string,
) (*models.TransferRequest, error) {
	id := request.ID
	fallback := "Rejected"
	if status == enums.TransferStatusCancelled {
		fallback = "Cancelled"
	}

	var closed *models.TransferRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		txRepo := s.repo.WithTx(tx)
		won, err := txRepo.Transition(ctx, id, map[string]any{
			"status":     status,
			"decided_at": s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: close transfer request")
		}
		if !won {
			return pkgerrors.New(pkgerrors.CodeInvalidState, "transfer request is no longer pending")
		}
		if err := txRepo.AppendComment(ctx, &models.TransferComment{
			TransferRequestID: id,
			Type:              commentType,
			AuthorID:          actor.UserID,
			Body:              noteOr(note, fallback),
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert closing comment")
		}
		if closed, err = txRepo.FindByID(ctx, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload transfer request")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     event,
			AggregateType: enums.AggregateTransferRequest,
			AggregateID:   id,
			Actor:         actorRef(actor),
			Data: payloads.TransferClosedEvent{
				TransferRequestID:  id,
				MaterialID:         closed.MaterialID,
				FromOrganizationID: closed.FromOrganizationID,
				ToOrganizationID:   closed.ToOrganizationID,
				Status:             status,
				ClosedBy:           actor.UserID,
				Reason:             noteOr(note, ""),
			},
		})
	})
	if err != nil {
		return nil, s.failTransition(ctx, actor, id, status, err)
	}

	s.metrics.ObserveTransition(string(status), "ok")
	s.logg.Info(s.logCtx(ctx, actor, closed), "transfer."+string(status))
	return closed, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*TransferDetail, error) {
	request, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsSuperAdmin() && !actor.BelongsTo(request.FromOrganizationID) && !actor.BelongsTo(request.ToOrganizationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only participating organizations can view this transfer request")
	}

	comments, err := s.repo.ListComments(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfer comments")
	}
	live, err := s.repo.FindMaterial(ctx, request.MaterialID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	from, err := organizations.Lookup(ctx, s.directory, request.FromOrganizationID)
	if err != nil {
		return nil, err
	}
	to, err := organizations.Lookup(ctx, s.directory, request.ToOrganizationID)
	if err != nil {
		return nil, err
	}

	return &TransferDetail{
		TransferDTO: NewTransferDTO(request),
		Comments:    newCommentDTOs(comments),
		Material:    newMaterialSummary(request, live),
		From:        newOrganizationSummary(from),
		To:          newOrganizationSummary(to),
	}, nil
}

func (s *service) List(ctx context.Context, actor auth.Actor, filters TransferFilters, params pagination.Params) (*TransferList, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	if err := filters.Validate(); err != nil {
		return nil, err
	}
	if _, err := pagination.ParseCursor(params.Cursor); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	filters.organizationID = actor.OrganizationID
	rows, next, err := s.repo.List(ctx, filters, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list transfer requests")
	}
	return newTransferList(rows, next), nil
}

func (s *service) load(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.TransferRequest, error) {
	if !actor.Valid() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor context required")
	}
	request, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "transfer request not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load transfer request")
	}
	return request, nil
}

// loadDecidable returns a pending request the actor may approve or reject.
func (s *service) loadDecidable(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.TransferRequest, error) {
	request, err := s.load(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !actor.CanAdminister(request.FromOrganizationID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only source organization admins can decide this transfer request")
	}
	if request.Status != enums.TransferStatusPending {
		return nil, notPending(request.Status)
	}
	return request, nil
}

func (s *service) findMaterial(ctx context.Context, r *Repository, id uuid.UUID) (*models.Material, error) {
	material, err := r.FindMaterial(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "material not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
	}
	return material, nil
}

// failTransition classifies a failed transition. A rollback that itself
// failed may have left a partial allocation behind.
func (s *service) failTransition(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.TransferStatus, err error) error {
	s.metrics.ObserveTransition(string(status), "error")
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"transfer_request_id": id.String(),
		"organization_id":     actor.OrganizationID.String(),
		"user_id":             actor.UserID.String(),
		"target_status":       string(status),
	})
	if db.IsRollbackFailure(err) {
		s.metrics.IncLedgerBreach()
		s.logg.Error(logCtx, "ledger.integrity_breach", err)
		return pkgerrors.Wrap(pkgerrors.CodeLedgerIntegrity, err, "transaction rollback failed")
	}
	return asTyped(err, fmt.Sprintf("transition transfer request to %s", status))
}

func (s *service) logCtx(ctx context.Context, actor auth.Actor, request *models.TransferRequest) context.Context {
	return s.logg.WithFields(ctx, map[string]any{
		"transfer_request_id": request.ID.String(),
		"material_id":         request.MaterialID.String(),
		"organization_id":     actor.OrganizationID.String(),
		"user_id":             actor.UserID.String(),
		"status":              string(request.Status),
	})
}

func insufficient(requested, available decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientQuantity, "requested quantity exceeds available quantity").
		WithDetails(map[string]any{
			"requested": requested.String(),
			"available": available.String(),
		})
}

func notPending(status enums.TransferStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidState, fmt.Sprintf("transfer request is %s", status)).
		WithDetails(map[string]any{"status": string(status)})
}

func noteOr(note *string, fallback string) string {
	if note == nil {
		return fallback
	}
	if trimmed := strings.TrimSpace(*note); trimmed != "" {
		return trimmed
	}
	return fallback
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
