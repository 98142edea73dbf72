package subscriptions

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
	"github.com/migratemate/retention-backend/pkg/outbox"
	"github.com/migratemate/retention-backend/pkg/pricing"
)

type cancellationStore interface {
	FindUnresolvedByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error)
	FindLatestByUser(ctx context.Context, userID uuid.UUID) (*models.Cancellation, error)
	ResolveUnresolvedByUserWithTx(tx *gorm.DB, userID uuid.UUID, resolvedAt time.Time) (int64, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// StatusResult is the reconciled view of a user's subscription: the stored
// status overridden to pending_cancellation while a cancellation is in
// flight, plus a marker for a retained (offer-accepted) user.
type StatusResult struct {
	SubscriptionID        uuid.UUID                `json:"subscriptionId"`
	Status                enums.SubscriptionStatus `json:"status"`
	MonthlyPrice          int64                    `json:"monthlyPrice"`
	MonthlyPriceDisplay   string                   `json:"monthlyPriceDisplay"`
	HasActiveCancellation bool                     `json:"hasActiveCancellation"`
	AcceptedOffer         bool                     `json:"acceptedOffer"`
}

// Service is the subscription status/renewal surface.
type Service interface {
	Status(ctx context.Context, userID uuid.UUID) (*StatusResult, error)
	Renew(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams groups dependencies for the subscription service.
type ServiceParams struct {
	Repo              Repository
	CancellationRepo  cancellationStore
	TransactionRunner txRunner
	Outbox            outbox.Emitter
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	cancels  cancellationStore
	txRunner txRunner
	outbox   outbox.Emitter
	logg     *logger.Logger
}

// NewService builds a subscription service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("subscriptions repo required")
	}
	if params.CancellationRepo == nil {
		return nil, fmt.Errorf("cancellations repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{
		repo:     params.Repo,
		cancels:  params.CancellationRepo,
		txRunner: params.TransactionRunner,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) Status(ctx context.Context, userID uuid.UUID) (*StatusResult, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	sub, err := s.repo.FindCurrentByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up subscription")
	}
	if sub == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	unresolved, err := s.cancels.FindUnresolvedByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up active cancellation")
	}
	latest, err := s.cancels.FindLatestByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up cancellation history")
	}

	status := sub.Status
	if unresolved != nil {
		status = enums.SubscriptionStatusPendingCancellation
	}
	acceptedOffer := latest != nil && latest.Resolved() &&
		latest.FlowType == enums.FlowTypeOfferAccepted

	return &StatusResult{
		SubscriptionID:        sub.ID,
		Status:                status,
		MonthlyPrice:          sub.MonthlyPrice,
		MonthlyPriceDisplay:   pricing.FormatPrice(sub.MonthlyPrice),
		HasActiveCancellation: unresolved != nil,
		AcceptedOffer:         acceptedOffer,
	}, nil
}

// Renew reactivates the subscription and closes out any in-flight
// cancellation. Safe to call repeatedly; a second call changes nothing.
func (s *service) Renew(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	sub, err := s.repo.FindCurrentByUser(ctx, userID)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up subscription")
	}
	if sub == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		resolved, err := s.cancels.ResolveUnresolvedByUserWithTx(tx, userID, time.Now().UTC())
		if err != nil {
			return err
		}
		statusChanged := sub.Status != enums.SubscriptionStatusActive
		if statusChanged {
			if err := s.repo.UpdateStatusWithTx(tx, sub.ID, enums.SubscriptionStatusActive); err != nil {
				return err
			}
		}
		if resolved == 0 && !statusChanged {
			return nil
		}
		if s.outbox == nil {
			return nil
		}
		return s.outbox.Emit(tx, outbox.EventSubscriptionRenewed, userID, map[string]any{
			"subscriptionId": sub.ID,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "renewing subscription")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithUserID(ctx, userID.String()), "subscription renewed")
	}
	return nil
}
