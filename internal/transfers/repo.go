package transfers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/surplusx-backend/internal/repo"
	"github.com/angelmondragon/surplusx-backend/pkg/db/models"
	"github.com/angelmondragon/surplusx-backend/pkg/enums"
	"github.com/angelmondragon/surplusx-backend/pkg/pagination"
)

// Repository persists transfer requests and their comment threads.
type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bind(tx)}
}

func (r *Repository) Create(ctx context.Context, request *models.TransferRequest) error {
	return r.DB(ctx).Create(request).Error
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.TransferRequest, error) {
	return repo.ByID[models.TransferRequest](r.DB(ctx), id)
}

// Transition applies updates only while the request is still pending and
// reports whether this caller won the transition.
func (r *Repository) Transition(ctx context.Context, id uuid.UUID, updates map[string]any) (bool, error) {
	res := r.DB(ctx).
		Model(&models.TransferRequest{}).
		Where("id = ? AND status = ?", id, enums.TransferStatusPending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *Repository) SetDestination(ctx context.Context, id, destinationID uuid.UUID) error {
	return r.DB(ctx).
		Model(&models.TransferRequest{}).
		Where("id = ?", id).
		Update("destination_material_id", destinationID).Error
}

// AppendComment stores comment at the end of the request's thread.
func (r *Repository) AppendComment(ctx context.Context, comment *models.TransferComment) error {
	var next int
	err := r.DB(ctx).
		Model(&models.TransferComment{}).
		Select("COALESCE(MAX(position), 0) + 1").
		Where("transfer_request_id = ?", comment.TransferRequestID).
		Scan(&next).Error
	if err != nil {
		return err
	}
	comment.Position = next
	return r.DB(ctx).Create(comment).Error
}

func (r *Repository) ListComments(ctx context.Context, requestID uuid.UUID) ([]models.TransferComment, error) {
	var comments []models.TransferComment
	err := r.DB(ctx).
		Where("transfer_request_id = ?", requestID).
		Order("position ASC").
		Find(&comments).Error
	return comments, err
}

func (r *Repository) FindMaterial(ctx context.Context, id uuid.UUID) (*models.Material, error) {
	return repo.ByID[models.Material](r.DB(ctx), id)
}

func (r *Repository) List(ctx context.Context, filters TransferFilters, params pagination.Params) ([]models.TransferRequest, string, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, "", err
	}

	qb := filters.apply(r.DB(ctx).Model(&models.TransferRequest{}))
	if cursor != nil {
		qb = qb.Where("(transfer_requests.created_at < ?) OR (transfer_requests.created_at = ? AND transfer_requests.id < ?)", cursor.CreatedAt, cursor.CreatedAt, cursor.ID)
	}

	var rows []models.TransferRequest
	err = qb.Order("transfer_requests.created_at DESC").
		Order("transfer_requests.id DESC").
		Limit(pagination.LimitWithBuffer(params.Limit)).
		Find(&rows).Error
	if err != nil {
		return nil, "", err
	}

	rows, next := pagination.Trim(rows, params.Limit, func(m models.TransferRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	return rows, next, nil
}
