package orders

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/cartflow/pkg/db/models"
	"github.com/angelmondragon/cartflow/pkg/enums"
	"github.com/angelmondragon/cartflow/pkg/pagination"
)

const defaultSubmissionListLimit = 20

// Repository persists order submission attempts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	CreateSubmission(ctx context.Context, submission *models.OrderSubmission) (*models.OrderSubmission, error)
	ListSubmissionsBySession(ctx context.Context, sessionID string, limit int, after *pagination.Cursor) ([]models.OrderSubmission, error)
	DeleteSubmissionsBefore(ctx context.Context, statuses []enums.SubmissionStatus, cutoff time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an order submissions repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateSubmission(ctx context.Context, submission *models.OrderSubmission) (*models.OrderSubmission, error) {
	if err := r.db.WithContext(ctx).Create(submission).Error; err != nil {
		return nil, err
	}
	return submission, nil
}

// ListSubmissionsBySession returns the newest attempts first, starting after
// the given cursor when one is set.
func (r *repository) ListSubmissionsBySession(ctx context.Context, sessionID string, limit int, after *pagination.Cursor) ([]models.OrderSubmission, error) {
	if limit <= 0 {
		limit = defaultSubmissionListLimit
	}
	q := r.db.WithContext(ctx).Where("session_id = ?", sessionID)
	if after != nil {
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", after.CreatedAt, after.CreatedAt, after.ID)
	}
	var out []models.OrderSubmission
	err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSubmissionsBefore removes attempts in the given statuses created before cutoff.
func (r *repository) DeleteSubmissionsBefore(ctx context.Context, statuses []enums.SubmissionStatus, cutoff time.Time) (int64, error) {
	if len(statuses) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("status IN ? AND created_at < ?", statuses, cutoff).
		Delete(&models.OrderSubmission{})
	return res.RowsAffected, res.Error
}
