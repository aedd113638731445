package transfers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/allocation"
	"github.com/angelmondragon/surplusx-backend/internal/notifications"
	"github.com/angelmondragon/surplusx-backend/internal/organizations"
	"github.com/angelmondragon/surplusx-backend/internal/repo/repotest"
	"github.com/angelmondragon/surplusx-backend/pkg/auth"
	"github.com/angelmondragon/surplusx-backend/pkg/db"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/surplusx-backend/pkg/errors"
	"github.com/angelmondragon/surplusx-backend/pkg/logger"
	"github.com/angelmondragon/surplusx-backend/pkg/metrics"
	"github.com/angelmondragon/surplusx-backend/pkg/outbox"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

type recordingNotifier struct {
	mu  sync.Mutex
	got []notifications.Notification
}

func (r *recordingNotifier) Notify(_ context.Context, n notifications.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, n)
}

func (r *recordingNotifier) all() []notifications.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]notifications.Notification(nil), r.got...)
}

// brokenRollback runs fn in a real transaction but reports every failure as
// a rollback that could not complete.
type brokenRollback struct {
	conn *gorm.DB
}

func (b brokenRollback) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := b.conn.WithContext(ctx).Begin()
	if err := fn(tx); err != nil {
		tx.Rollback()
		return &db.RollbackError{Cause: err, RollbackErr: errors.New("connection reset")}
	}
	return tx.Commit().Error
}

type fixture struct {
	conn      *gorm.DB
	svc       Service
	notifier  *recordingNotifier
	registry  *prometheus.Registry
	metrics   *metrics.TransferMetrics
	source    *models.Organization
	requester *models.Organization
	foreign   *models.Organization
	srcAdmin  auth.Actor
	srcMember auth.Actor
	reqMember auth.Actor
	reqAdmin  auth.Actor
	outsider  auth.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := repotest.Open(t)
	reg := prometheus.NewRegistry()
	f := &fixture{
		conn:     conn,
		notifier: &recordingNotifier{},
		registry: reg,
		metrics:  metrics.NewTransferMetrics(reg),
	}
	f.svc = f.service(t, db.FromConn(conn))

	f.source = repotest.SeedOrganization(t, conn, "Riverside School", enums.OrganizationCategoryEducation, true)
	f.requester = repotest.SeedOrganization(t, conn, "Hilltop School", enums.OrganizationCategoryEducation, true)
	f.foreign = repotest.SeedOrganization(t, conn, "City Clinic", enums.OrganizationCategoryHealthcare, true)

	f.srcAdmin = auth.Actor{UserID: uuid.New(), OrganizationID: f.source.ID, Role: enums.MemberRoleAdmin}
	f.srcMember = auth.Actor{UserID: uuid.New(), OrganizationID: f.source.ID, Role: enums.MemberRoleMember}
	f.reqMember = auth.Actor{UserID: uuid.New(), OrganizationID: f.requester.ID, Role: enums.MemberRoleMember}
	f.reqAdmin = auth.Actor{UserID: uuid.New(), OrganizationID: f.requester.ID, Role: enums.MemberRoleOwner}
	f.outsider = auth.Actor{UserID: uuid.New(), OrganizationID: f.foreign.ID, Role: enums.MemberRoleOwner}
	return f
}

func (f *fixture) service(t *testing.T, tx txRunner) Service {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "transfers-test", Output: io.Discard})
	svc, err := NewService(
		NewRepository(f.conn),
		tx,
		organizations.NewRepository(f.conn),
		allocation.NewLedger(logg),
		outbox.NewService(outbox.NewRepository(f.conn), logg),
		f.notifier,
		f.metrics,
		logg,
	)
	require.NoError(t, err)
	return svc
}

func (f *fixture) request(t *testing.T, material *models.Material, qty string) *TransferDTO {
	t.Helper()
	dto, err := f.svc.Create(context.Background(), f.reqMember, CreateInput{
		MaterialID:        material.ID,
		RequestedQuantity: decimal.RequireFromString(qty),
		Purpose:           "Science lab refit",
	})
	require.NoError(t, err)
	return dto
}

func (f *fixture) material(t *testing.T, id uuid.UUID) models.Material {
	t.Helper()
	var m models.Material
	require.NoError(t, f.conn.Where("id = ?", id).First(&m).Error)
	return m
}

func (f *fixture) transfer(t *testing.T, id uuid.UUID) models.TransferRequest {
	t.Helper()
	var r models.TransferRequest
	require.NoError(t, f.conn.Where("id = ?", id).First(&r).Error)
	return r
}

func (f *fixture) comments(t *testing.T, id uuid.UUID) []models.TransferComment {
	t.Helper()
	var rows []models.TransferComment
	require.NoError(t, f.conn.Where("transfer_request_id = ?", id).Order("position").Find(&rows).Error)
	return rows
}

func (f *fixture) events(t *testing.T, eventType enums.OutboxEventType) []models.OutboxEvent {
	t.Helper()
	var rows []models.OutboxEvent
	require.NoError(t, f.conn.Where("event_type = ?", eventType).Find(&rows).Error)
	return rows
}

func (f *fixture) counter(t *testing.T, name string) float64 {
	t.Helper()
	families, err := f.registry.Gather()
	require.NoError(t, err)
	var total float64
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			total += metric.GetCounter().GetValue()
		}
	}
	return total
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func TestCreateStoresPendingRequestWithThread(t *testing.T) {
	f := newFixture(t)
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())

	dto := f.request(t, material, "30")
	assert.Equal(t, enums.TransferStatusPending, dto.Status)
	assert.Equal(t, f.source.ID, dto.FromOrganizationID)
	assert.Equal(t, f.requester.ID, dto.ToOrganizationID)

	stored := f.transfer(t, dto.ID)
	var snapshot MaterialSnapshot
	require.NoError(t, json.Unmarshal(stored.MaterialSnapshot, &snapshot))
	assert.Equal(t, "Steel sheet", snapshot.Name)
	assertDecimal(t, "100", snapshot.QuantityAtRequest)

	comments := f.comments(t, dto.ID)
	require.Len(t, comments, 1)
	assert.Equal(t, 1, comments[0].Position)
	assert.Equal(t, enums.TransferCommentRequest, comments[0].Type)
	assert.Equal(t, "Science lab refit", comments[0].Body)
	assert.Len(t, f.events(t, enums.EventTransferRequested), 1)

	sent := f.notifier.all()
	require.Len(t, sent, 1)
	assert.Equal(t, enums.NotificationTypeTransferRequested, sent[0].Type)
	assert.Equal(t, enums.NotificationPriorityHigh, sent[0].Priority)
	require.NotNil(t, sent[0].Audience)
	assert.Equal(t, f.source.ID, sent[0].Audience.OrganizationID)
	assert.ElementsMatch(t, enums.AdminRoles, sent[0].Audience.Roles)

	assertDecimal(t, "100", f.material(t, material.ID).Quantity)
}

func TestCreateRejectsIneligibleRequests(t *testing.T) {
	f := newFixture(t)
	surplus := repotest.SeedMaterial(t, f.conn, f.source.ID, "10", repotest.WithSurplus())
	plain := repotest.SeedMaterial(t, f.conn, f.source.ID, "10")
	reserved := repotest.SeedMaterial(t, f.conn, f.source.ID, "10", repotest.WithSurplus(), repotest.WithStatus(enums.MaterialStatusReserved))
	clinic := repotest.SeedMaterial(t, f.conn, f.foreign.ID, "10", repotest.WithSurplus())
	own := repotest.SeedMaterial(t, f.conn, f.requester.ID, "10", repotest.WithSurplus())
	dormant := repotest.SeedOrganization(t, f.conn, "Closed School", enums.OrganizationCategoryEducation, false)
	orphaned := repotest.SeedMaterial(t, f.conn, dormant.ID, "10", repotest.WithSurplus())
	clinicStock := repotest.SeedMaterial(t, f.conn, f.foreign.ID, "10", repotest.WithStatus(enums.MaterialStatusReserved))

	cases := []struct {
		name  string
		actor auth.Actor
		input CreateInput
		code  pkgerrors.Code
	}{
		{"missing material", f.reqMember, CreateInput{MaterialID: uuid.New(), RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeNotFound},
		{"not surplus", f.reqMember, CreateInput{MaterialID: plain.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeNotSurplus},
		{"reserved", f.reqMember, CreateInput{MaterialID: reserved.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeMaterialUnavailable},
		{"too much", f.reqMember, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.NewFromInt(11), Purpose: "p"}, pkgerrors.CodeInsufficientQuantity},
		{"category mismatch", f.reqMember, CreateInput{MaterialID: clinic.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeCategoryMismatch},
		{"category checked before state", f.reqMember, CreateInput{MaterialID: clinicStock.ID, RequestedQuantity: decimal.NewFromInt(50), Purpose: "p"}, pkgerrors.CodeCategoryMismatch},
		{"inactive owner", f.reqMember, CreateInput{MaterialID: orphaned.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeMaterialUnavailable},
		{"self transfer", f.reqMember, CreateInput{MaterialID: own.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeSelfTransfer},
		{"quantity beyond scale", f.reqMember, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.RequireFromString("0.00001"), Purpose: "p"}, pkgerrors.CodeValidation},
		{"zero quantity", f.reqMember, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.Zero, Purpose: "p"}, pkgerrors.CodeValidation},
		{"blank purpose", f.reqMember, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "   "}, pkgerrors.CodeValidation},
		{"inactive requester", auth.Actor{UserID: uuid.New(), OrganizationID: dormant.ID, Role: enums.MemberRoleOwner}, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeForbidden},
		{"no actor", auth.Actor{}, CreateInput{MaterialID: surplus.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "p"}, pkgerrors.CodeUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), tc.actor, tc.input)
			require.Error(t, err)
			assert.Equal(t, tc.code, pkgerrors.As(err).Code(), err.Error())
		})
	}

	var count int64
	require.NoError(t, f.conn.Model(&models.TransferRequest{}).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.notifier.all())
}

func TestApprovePartialTransfer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	req := f.request(t, material, "30")

	note := "Pick up Monday"
	dto, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{Note: &note})
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusApproved, dto.Status)
	require.NotNil(t, dto.ApprovedBy)
	assert.Equal(t, f.srcAdmin.UserID, *dto.ApprovedBy)
	assert.NotNil(t, dto.ApprovedAt)
	assert.NotNil(t, dto.DecidedAt)
	require.NotNil(t, dto.DestinationMaterialID)

	source := f.material(t, material.ID)
	assertDecimal(t, "70", source.Quantity)
	assert.True(t, source.IsSurplus)
	assert.Equal(t, enums.MaterialStatusAvailable, source.Status)

	dest := f.material(t, *dto.DestinationMaterialID)
	assert.Equal(t, f.requester.ID, dest.OrganizationID)
	assertDecimal(t, "30", dest.Quantity)
	assert.False(t, dest.IsSurplus)
	assert.Equal(t, enums.MaterialStatusAvailable, dest.Status)
	assert.Equal(t, "Steel sheet", dest.Name)
	require.NotNil(t, dest.Notes)
	assert.Equal(t, "Transferred from Riverside School", *dest.Notes)
	assert.Equal(t, &material.ID, dest.SourceMaterialID)
	assert.Equal(t, &req.ID, dest.SourceTransferID)
	assert.Equal(t, f.srcAdmin.UserID, dest.CreatedBy)

	records, err := allocation.NewRepository(f.conn).ListByMaterial(ctx, material.ID)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 1, records[0].Position)
	assert.Equal(t, req.ID, records[0].TransferRequestID)
	assertDecimal(t, "30", records[0].QuantityAllocated)

	comments := f.comments(t, req.ID)
	require.Len(t, comments, 2)
	assert.Equal(t, enums.TransferCommentApproval, comments[1].Type)
	assert.Equal(t, 2, comments[1].Position)
	assert.Equal(t, note, comments[1].Body)

	assert.Len(t, f.events(t, enums.EventTransferApproved), 1)

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	approved := sent[1]
	assert.Equal(t, enums.NotificationTypeTransferApproved, approved.Type)
	require.NotNil(t, approved.Audience)
	assert.Equal(t, f.requester.ID, approved.Audience.OrganizationID)
	assert.Empty(t, approved.Audience.Roles)
}

func TestApproveDepletingTransferKeepsLedgerSum(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "30", repotest.WithSurplus())

	first := f.request(t, material, "12")
	second := f.request(t, material, "18")
	_, err := f.svc.Approve(ctx, f.srcAdmin, first.ID, DecisionInput{})
	require.NoError(t, err)
	_, err = f.svc.Approve(ctx, f.srcAdmin, second.ID, DecisionInput{})
	require.NoError(t, err)

	source := f.material(t, material.ID)
	assert.True(t, source.Quantity.IsZero())
	assert.Equal(t, enums.MaterialStatusTransferred, source.Status)
	assert.False(t, source.IsSurplus)

	sum, err := allocation.NewRepository(f.conn).SumAllocated(ctx, material.ID)
	require.NoError(t, err)
	assertDecimal(t, "30", sum.Add(source.Quantity))

	_, err = f.svc.Create(ctx, f.reqMember, CreateInput{MaterialID: material.ID, RequestedQuantity: decimal.NewFromInt(1), Purpose: "more"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotSurplus))
}

func TestConcurrentApprovalsNeverOverdraw(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "10", repotest.WithSurplus())
	a := f.request(t, material, "6")
	b := f.request(t, material, "6")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []uuid.UUID{a.ID, b.ID} {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.svc.Approve(ctx, f.srcAdmin, id, DecisionInput{})
		}(i, id)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case pkgerrors.Is(err, pkgerrors.CodeInsufficientQuantity):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)
	assertDecimal(t, "4", f.material(t, material.ID).Quantity)

	statuses := []enums.TransferStatus{f.transfer(t, a.ID).Status, f.transfer(t, b.ID).Status}
	assert.ElementsMatch(t, []enums.TransferStatus{enums.TransferStatusApproved, enums.TransferStatusPending}, statuses)
}

func TestConcurrentDecisionsHaveOneWinner(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "10", repotest.WithSurplus())
	req := f.request(t, material, "4")

	var wg sync.WaitGroup
	errs := make([]error, 3)
	wg.Add(3)
	go func() { defer wg.Done(); _, errs[0] = f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{}) }()
	go func() { defer wg.Done(); _, errs[1] = f.svc.Reject(ctx, f.srcAdmin, req.ID, DecisionInput{}) }()
	go func() { defer wg.Done(); _, errs[2] = f.svc.Cancel(ctx, f.reqMember, req.ID, DecisionInput{}) }()
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
			continue
		}
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState), err.Error())
	}
	assert.Equal(t, 1, winners)
	assert.Len(t, f.comments(t, req.ID), 2)
}

func TestRejectLeavesMaterialUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
	req := f.request(t, material, "20")

	reason := "Reserved for the spring fair"
	dto, err := f.svc.Reject(ctx, f.srcAdmin, req.ID, DecisionInput{Note: &reason})
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusRejected, dto.Status)
	assert.NotNil(t, dto.DecidedAt)
	assert.Nil(t, dto.ApprovedBy)

	source := f.material(t, material.ID)
	assertDecimal(t, "50", source.Quantity)
	assert.True(t, source.IsSurplus)

	comments := f.comments(t, req.ID)
	require.Len(t, comments, 2)
	assert.Equal(t, enums.TransferCommentRejection, comments[1].Type)
	assert.Equal(t, reason, comments[1].Body)
	assert.Len(t, f.events(t, enums.EventTransferRejected), 1)

	sent := f.notifier.all()
	require.Len(t, sent, 2)
	assert.Equal(t, []uuid.UUID{f.reqMember.UserID}, sent[1].UserIDs)
	assert.Contains(t, sent[1].Message, reason)

	_, err = f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))
}

func TestCancelOnlyByRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
	req := f.request(t, material, "5")

	_, err := f.svc.Cancel(ctx, f.reqAdmin, req.ID, DecisionInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))

	dto, err := f.svc.Cancel(ctx, f.reqMember, req.ID, DecisionInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusCancelled, dto.Status)

	comments := f.comments(t, req.ID)
	require.Len(t, comments, 2)
	assert.Equal(t, enums.TransferCommentCancellation, comments[1].Type)
	assert.Equal(t, "Cancelled", comments[1].Body)
	assert.Len(t, f.events(t, enums.EventTransferCancelled), 1)
	assert.Len(t, f.notifier.all(), 1)

	for _, call := range []func() error{
		func() error { _, err := f.svc.Cancel(ctx, f.reqMember, req.ID, DecisionInput{}); return err },
		func() error { _, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{}); return err },
		func() error { _, err := f.svc.Reject(ctx, f.srcAdmin, req.ID, DecisionInput{}); return err },
	} {
		assert.True(t, pkgerrors.Is(call(), pkgerrors.CodeInvalidState))
	}
	assert.Equal(t, enums.TransferStatusCancelled, f.transfer(t, req.ID).Status)
}

func TestApproveAuthorization(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
	req := f.request(t, material, "5")

	for _, actor := range []auth.Actor{f.srcMember, f.reqAdmin, f.outsider} {
		_, err := f.svc.Approve(ctx, actor, req.ID, DecisionInput{})
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
		_, err = f.svc.Reject(ctx, actor, req.ID, DecisionInput{})
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	}

	_, err := f.svc.Approve(ctx, f.srcAdmin, uuid.New(), DecisionInput{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))

	platform := auth.Actor{UserID: uuid.New(), OrganizationID: f.foreign.ID, PlatformRole: enums.PlatformRoleSuperAdmin}
	dto, err := f.svc.Approve(ctx, platform, req.ID, DecisionInput{})
	require.NoError(t, err)
	assert.Equal(t, enums.TransferStatusApproved, dto.Status)
}

func TestApproveGuardsMaterialAndDestination(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	t.Run("destination deactivated", func(t *testing.T) {
		material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
		req := f.request(t, material, "5")
		require.NoError(t, f.conn.Model(&models.Organization{}).Where("id = ?", f.requester.ID).Update("is_active", false).Error)
		t.Cleanup(func() {
			f.conn.Model(&models.Organization{}).Where("id = ?", f.requester.ID).Update("is_active", true)
		})

		_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeInvalidState))
		assert.Equal(t, enums.TransferStatusPending, f.transfer(t, req.ID).Status)
	})

	t.Run("material deleted", func(t *testing.T) {
		material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
		req := f.request(t, material, "5")
		require.NoError(t, f.conn.Where("id = ?", material.ID).Delete(&models.Material{}).Error)

		_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
		require.Error(t, err)
		assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.As(err).Code())
		assert.Equal(t, "material not found", pkgerrors.As(err).Message())
	})

	t.Run("material archived", func(t *testing.T) {
		material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
		req := f.request(t, material, "5")
		require.NoError(t, f.conn.Model(&models.Material{}).Where("id = ?", material.ID).Update("status", enums.MaterialStatusArchived).Error)

		_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
		assert.True(t, pkgerrors.Is(err, pkgerrors.CodeMaterialUnavailable))
		assert.Equal(t, enums.TransferStatusPending, f.transfer(t, req.ID).Status)
	})

	t.Run("quantity drained since request", func(t *testing.T) {
		material := repotest.SeedMaterial(t, f.conn, f.source.ID, "50", repotest.WithSurplus())
		req := f.request(t, material, "40")
		require.NoError(t, f.conn.Model(&models.Material{}).Where("id = ?", material.ID).Update("quantity", decimal.NewFromInt(10)).Error)

		_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
		require.True(t, pkgerrors.Is(err, pkgerrors.CodeInsufficientQuantity))
		details, ok := pkgerrors.As(err).Details().(map[string]any)
		require.True(t, ok)
		assert.Equal(t, "40", details["requested"])
		assert.Equal(t, "10", details["available"])
	})
}

func TestApproveRollsBackWhenDestinationInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	req := f.request(t, material, "30")

	require.NoError(t, f.conn.Exec(`CREATE TRIGGER block_destination BEFORE INSERT ON materials
WHEN NEW.source_transfer_id IS NOT NULL
BEGIN SELECT RAISE(ABORT, 'destination insert blocked'); END;`).Error)

	_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
	require.Error(t, err)
	assert.False(t, pkgerrors.Is(err, pkgerrors.CodeLedgerIntegrity))

	assertDecimal(t, "100", f.material(t, material.ID).Quantity)
	stored := f.transfer(t, req.ID)
	assert.Equal(t, enums.TransferStatusPending, stored.Status)
	assert.Nil(t, stored.ApprovedBy)
	assert.Len(t, f.comments(t, req.ID), 1)
	assert.Empty(t, f.events(t, enums.EventTransferApproved))

	var allocations int64
	require.NoError(t, f.conn.Model(&models.AllocationRecord{}).Count(&allocations).Error)
	assert.Zero(t, allocations)
}

func TestApproveRollbackFailureIsLedgerIntegrity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	req := f.request(t, material, "30")

	require.NoError(t, f.conn.Exec(`CREATE TRIGGER block_destination BEFORE INSERT ON materials
WHEN NEW.source_transfer_id IS NOT NULL
BEGIN SELECT RAISE(ABORT, 'destination insert blocked'); END;`).Error)

	svc := f.service(t, brokenRollback{conn: f.conn})
	_, err := svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeLedgerIntegrity, pkgerrors.As(err).Code())
	assert.Equal(t, float64(1), f.counter(t, "surplusx_ledger_integrity_breaches_total"))
}

func TestGetShowsThreadToParticipants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	material := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	req := f.request(t, material, "30")
	_, err := f.svc.Approve(ctx, f.srcAdmin, req.ID, DecisionInput{})
	require.NoError(t, err)

	for _, actor := range []auth.Actor{f.srcMember, f.reqMember} {
		detail, err := f.svc.Get(ctx, actor, req.ID)
		require.NoError(t, err)
		require.Len(t, detail.Comments, 2)
		assert.Equal(t, enums.TransferCommentRequest, detail.Comments[0].Type)
		assert.Equal(t, "Riverside School", detail.From.Name)
		assert.Equal(t, "Hilltop School", detail.To.Name)
		assert.Equal(t, "Steel sheet", detail.Material.Name)
		assertDecimal(t, "100", detail.Material.QuantityAtRequest)
		require.NotNil(t, detail.Material.CurrentQuantity)
		assertDecimal(t, "70", *detail.Material.CurrentQuantity)
	}

	_, err = f.svc.Get(ctx, f.outsider, req.ID)
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeForbidden))
	_, err = f.svc.Get(ctx, f.reqMember, uuid.New())
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestListByDirection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	second := repotest.SeedMaterial(t, f.conn, f.source.ID, "100", repotest.WithSurplus())
	a := f.request(t, first, "1")
	b := f.request(t, first, "2")
	c := f.request(t, second, "3")
	_, err := f.svc.Reject(ctx, f.srcAdmin, c.ID, DecisionInput{})
	require.NoError(t, err)

	incoming, err := f.svc.List(ctx, f.srcMember, TransferFilters{Direction: enums.TransferDirectionIncoming}, pagination.Params{})
	require.NoError(t, err)
	assert.Len(t, incoming.Transfers, 3)

	outgoing, err := f.svc.List(ctx, f.srcMember, TransferFilters{Direction: enums.TransferDirectionOutgoing}, pagination.Params{})
	require.NoError(t, err)
	assert.Empty(t, outgoing.Transfers)

	pending := enums.TransferStatusPending
	mine, err := f.svc.List(ctx, f.reqMember, TransferFilters{Direction: enums.TransferDirectionOutgoing, Status: &pending, MaterialID: &first.ID}, pagination.Params{Limit: 1})
	require.NoError(t, err)
	require.Len(t, mine.Transfers, 1)
	require.NotEmpty(t, mine.NextCursor)
	next, err := f.svc.List(ctx, f.reqMember, TransferFilters{Direction: enums.TransferDirectionOutgoing, Status: &pending, MaterialID: &first.ID}, pagination.Params{Limit: 1, Cursor: mine.NextCursor})
	require.NoError(t, err)
	require.Len(t, next.Transfers, 1)
	assert.Empty(t, next.NextCursor)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, []uuid.UUID{mine.Transfers[0].ID, next.Transfers[0].ID})

	_, err = f.svc.List(ctx, f.reqMember, TransferFilters{Direction: "sideways"}, pagination.Params{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
	_, err = f.svc.List(ctx, f.reqMember, TransferFilters{Direction: enums.TransferDirectionIncoming}, pagination.Params{Cursor: "%%"})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := repotest.Open(t)
	logg := logger.New(logger.Options{ServiceName: "transfers-test", Output: io.Discard})
	_, err := NewService(nil, db.FromConn(conn), organizations.NewRepository(conn), allocation.NewLedger(logg), outbox.NewService(outbox.NewRepository(conn), logg), &recordingNotifier{}, nil, logg)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), db.FromConn(conn), organizations.NewRepository(conn), allocation.NewLedger(logg), outbox.NewService(outbox.NewRepository(conn), logg), nil, nil, logg)
	assert.Error(t, err)
	_, err = NewService(NewRepository(conn), db.FromConn(conn), organizations.NewRepository(conn), allocation.NewLedger(logg), outbox.NewService(outbox.NewRepository(conn), logg), &recordingNotifier{}, nil, logg)
	assert.NoError(t, err)
}
