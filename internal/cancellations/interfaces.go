package cancellations

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
)

// Repository is the persistence surface for cancellation records and their
// surveys. Find methods return (nil, nil) when no row matches; write methods
// suffixed WithTx must run inside the caller's transaction.
type Repository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Cancellation, error)
	FindUnresolvedByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error)
	CreateWithTx(tx *gorm.DB, cancellation *models.Cancellation) error
	UpdateWithTx(tx *gorm.DB, cancellation *models.Cancellation) error
	ResolveUnresolvedByUserWithTx(tx *gorm.DB, userID uuid.UUID, resolvedAt time.Time) (int64, error)

	FindSurveyByCancellation(ctx context.Context, cancellationID uuid.UUID) (*models.FoundJobSurvey, error)
	SaveSurveyWithTx(tx *gorm.DB, survey *models.FoundJobSurvey) error
}

// subscriptionRepository is the slice of the subscriptions store this package
// needs to reconcile status in lockstep with cancellation transitions.
type subscriptionRepository interface {
	FindCurrentByUser(ctx context.Context, userID uuid.UUID) (*models.Subscription, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Subscription, error)
	UpdateStatusWithTx(tx *gorm.DB, id uuid.UUID, status enums.SubscriptionStatus) error
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}
