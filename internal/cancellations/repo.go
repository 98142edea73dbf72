package cancellations

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db/models"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a cancellations repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Cancellation, error) {
	var row models.Cancellation
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindUnresolvedByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error) {
	var row models.Cancellation
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND resolved_at IS NULL", userID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error) {
	var row models.Cancellation
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) CreateWithTx(tx *gorm.DB, cancellation *models.Cancellation) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Create(cancellation).Error
}

func (r *repository) UpdateWithTx(tx *gorm.DB, cancellation *models.Cancellation) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Save(cancellation).Error
}

func (r *repository) ResolveUnresolvedByUserWithTx(tx *gorm.DB, userID uuid.UUID, resolvedAt time.Time) (int64, error) {
	if tx == nil {
		return 0, errors.New("transaction required")
	}
	result := tx.Model(&models.Cancellation{}).
		Where("user_id = ? AND resolved_at IS NULL", userID).
		Updates(map[string]any{
			"resolved_at": resolvedAt,
			"updated_at":  resolvedAt,
		})
	return result.RowsAffected, result.Error
}

func (r *repository) FindSurveyByCancellation(ctx context.Context, cancellationID uuid.UUID) (*models.FoundJobSurvey, error) {
	var row models.FoundJobSurvey
	err := r.db.WithContext(ctx).
		Where("cancellation_id = ?", cancellationID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) SaveSurveyWithTx(tx *gorm.DB, survey *models.FoundJobSurvey) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	return tx.Save(survey).Error
}
