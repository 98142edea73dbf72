package cancellations

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/migratemate/retention-backend/pkg/db"
	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
	"github.com/migratemate/retention-backend/pkg/metrics"
	"github.com/migratemate/retention-backend/pkg/outbox"
	"github.com/migratemate/retention-backend/pkg/pricing"
)

// UnresolvedPerUserConstraint is the partial unique index guarding the
// one-unresolved-cancellation-per-user invariant at the storage layer.
const UnresolvedPerUserConstraint = "uniq_unresolved_cancellation_per_user"

// Service is the cancellation flow surface: start, resume, step tracking,
// downsell, completion and reset.
type Service interface {
	Start(ctx context.Context, input StartInput) (*StartResult, error)
	State(ctx context.Context, userID uuid.UUID) (*FlowState, error)
	UpdateStep(ctx context.Context, cancellationID uuid.UUID, step enums.FlowStep) error
	Update(ctx context.Context, cancellationID uuid.UUID, patch UpdatePatch) (*models.Cancellation, error)
	SetDownsell(ctx context.Context, cancellationID uuid.UUID, accepted bool) (*DownsellResult, error)
	Complete(ctx context.Context, cancellationID uuid.UUID, input CompleteInput) error
	CompleteFoundJob(ctx context.Context, cancellationID uuid.UUID, input SurveyInput) (*FoundJobResult, error)
	Reset(ctx context.Context, userID uuid.UUID) error
}

// ServiceParams groups dependencies for the cancellation service.
type ServiceParams struct {
	Repo              Repository
	SubscriptionRepo  subscriptionRepository
	TransactionRunner txRunner
	RNG               CoinFlipper
	Metrics           *metrics.FlowMetrics
	Outbox            outbox.Emitter
	Logger            *logger.Logger
}

type service struct {
	repo     Repository
	subs     subscriptionRepository
	txRunner txRunner
	assignor *Assignor
	rng      CoinFlipper
	metrics  *metrics.FlowMetrics
	outbox   outbox.Emitter
	logg     *logger.Logger
}

// NewService builds a cancellation service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("cancellations repo required")
	}
	if params.SubscriptionRepo == nil {
		return nil, fmt.Errorf("subscriptions repo required")
	}
	if params.TransactionRunner == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	rng := params.RNG
	if rng == nil {
		rng = CryptoFlipper{}
	}
	return &service{
		repo:     params.Repo,
		subs:     params.SubscriptionRepo,
		txRunner: params.TransactionRunner,
		assignor: NewAssignor(params.Repo, rng),
		rng:      rng,
		metrics:  params.Metrics,
		outbox:   params.Outbox,
		logg:     params.Logger,
	}, nil
}

func (s *service) Start(ctx context.Context, input StartInput) (*StartResult, error) {
	if input.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	if input.FlowType != enums.FlowTypeStandard && input.FlowType != enums.FlowTypeFoundJob {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "flow type must be standard or found_job")
	}

	sub, err := s.subs.FindCurrentByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up subscription")
	}
	if sub == nil || sub.Status == enums.SubscriptionStatusCancelled {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "no eligible subscription")
	}

	existing, err := s.repo.FindUnresolvedByUser(ctx, input.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up active cancellation")
	}
	if existing != nil {
		return s.resumeResult(existing, sub), nil
	}

	variant, fresh, err := s.assignor.Assign(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	decision, err := s.flowDecision(input.FlowType)
	if err != nil {
		return nil, err
	}

	cancellation := &models.Cancellation{
		UserID:          input.UserID,
		SubscriptionID:  sub.ID,
		DownsellVariant: variant,
		FlowType:        input.FlowType,
		CurrentStep:     decision,
	}
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.subs.UpdateStatusWithTx(tx, sub.ID, enums.SubscriptionStatusPendingCancellation); err != nil {
			return err
		}
		if err := s.repo.CreateWithTx(tx, cancellation); err != nil {
			return err
		}
		return s.emit(tx, outbox.EventCancellationStarted, input.UserID, map[string]any{
			"cancellationId": cancellation.ID,
			"flowType":       input.FlowType,
			"variant":        variant,
		})
	})
	if err != nil {
		// A concurrent start for the same user lost the race to the partial
		// unique index; the existing record is the answer, not an error.
		if db.IsUniqueViolation(err, UnresolvedPerUserConstraint) {
			existing, findErr := s.repo.FindUnresolvedByUser(ctx, input.UserID)
			if findErr == nil && existing != nil {
				return s.resumeResult(existing, sub), nil
			}
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cancellation already in progress")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "starting cancellation")
	}

	if fresh {
		s.metrics.IncVariantAssigned(variant.String())
	}
	s.metrics.IncFlowDecision(input.FlowType.String(), decision.String())
	if s.logg != nil {
		s.logg.Info(s.logg.WithCancellationID(ctx, cancellation.ID.String()), "cancellation started")
	}

	return &StartResult{
		CancellationID:  cancellation.ID,
		Variant:         variant,
		FlowType:        input.FlowType,
		FlowDecision:    decision,
		MonthlyPrice:    sub.MonthlyPrice,
		DiscountedPrice: pricing.DownsellPrice(variant, sub.MonthlyPrice),
		AlreadyActive:   false,
	}, nil
}

// flowDecision routes a freshly started flow. Standard flows always see the
// retention offer; found-job flows skip it half the time and go straight to
// the terminal cancelled screen. A deliberate product rule, not a bug.
func (s *service) flowDecision(flowType enums.FlowType) (enums.FlowStep, error) {
	if flowType != enums.FlowTypeFoundJob {
		return enums.FlowStepOffer, nil
	}
	skip, err := s.rng.Flip()
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeInternal, err, "drawing flow decision")
	}
	if skip {
		return enums.FlowStepSubscriptionCancelled, nil
	}
	return enums.FlowStepOffer, nil
}

func (s *service) resumeResult(existing *models.Cancellation, sub *models.Subscription) *StartResult {
	decision := existing.CurrentStep
	if decision != enums.FlowStepOffer && decision != enums.FlowStepSubscriptionCancelled {
		decision = enums.FlowStepOffer
	}
	return &StartResult{
		CancellationID:  existing.ID,
		Variant:         existing.DownsellVariant,
		FlowType:        existing.FlowType,
		FlowDecision:    decision,
		MonthlyPrice:    sub.MonthlyPrice,
		DiscountedPrice: pricing.DownsellPrice(existing.DownsellVariant, sub.MonthlyPrice),
		AlreadyActive:   true,
	}
}

func (s *service) State(ctx context.Context, userID uuid.UUID) (*FlowState, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}

	cancellation, err := s.repo.FindUnresolvedByUser(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up active cancellation")
	}
	if cancellation == nil {
		state := &FlowState{CurrentStep: enums.FlowStepStart}
		if sub, err := s.subs.FindCurrentByUser(ctx, userID); err == nil && sub != nil {
			state.MonthlyPrice = sub.MonthlyPrice
			state.DiscountedPrice = sub.MonthlyPrice
		}
		return state, nil
	}

	survey, err := s.repo.FindSurveyByCancellation(ctx, cancellation.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up survey")
	}

	state := &FlowState{
		HasActiveCancellation: true,
		CancellationID:        &cancellation.ID,
		CurrentStep:           ComputeCurrentStep(cancellation, survey),
		Variant:               &cancellation.DownsellVariant,
		FlowType:              &cancellation.FlowType,
		Survey:                snapshotFromModel(survey),
	}
	if sub, err := s.subs.FindByID(ctx, cancellation.SubscriptionID); err == nil && sub != nil {
		state.MonthlyPrice = sub.MonthlyPrice
		state.DiscountedPrice = pricing.DownsellPrice(cancellation.DownsellVariant, sub.MonthlyPrice)
	}
	return state, nil
}

func (s *service) UpdateStep(ctx context.Context, cancellationID uuid.UUID, step enums.FlowStep) error {
	if !step.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown step %q", step))
	}
	cancellation, err := s.loadUnresolved(ctx, cancellationID)
	if err != nil {
		return err
	}
	cancellation.CurrentStep = step
	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		return s.repo.UpdateWithTx(tx, cancellation)
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "persisting step")
	}
	return nil
}

func (s *service) Update(ctx context.Context, cancellationID uuid.UUID, patch UpdatePatch) (*models.Cancellation, error) {
	cancellation, err := s.loadUnresolved(ctx, cancellationID)
	if err != nil {
		return nil, err
	}
	if patch.FlowType != nil && !patch.FlowType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown flow type %q", *patch.FlowType))
	}
	if patch.Survey != nil {
		if err := patch.Survey.Validate(); err != nil {
			return nil, err
		}
	}

	var survey *models.FoundJobSurvey
	if patch.Survey != nil && !patch.Survey.IsEmpty() {
		survey, err = s.repo.FindSurveyByCancellation(ctx, cancellationID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up survey")
		}
		if survey == nil {
			survey = &models.FoundJobSurvey{CancellationID: cancellationID}
		}
		patch.Survey.apply(survey)
	}

	if patch.Reason != nil {
		cancellation.Reason = patch.Reason
	}
	if patch.AcceptedDownsell != nil {
		cancellation.AcceptedDownsell = *patch.AcceptedDownsell
	}
	if patch.Details != nil {
		raw, err := json.Marshal(patch.Details)
		if err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "details must be JSON-encodable")
		}
		cancellation.Details = raw
	}

	accepting := patch.FlowType != nil && *patch.FlowType == enums.FlowTypeOfferAccepted
	if patch.FlowType != nil {
		cancellation.FlowType = *patch.FlowType
	}
	if accepting {
		now := time.Now().UTC()
		cancellation.AcceptedDownsell = true
		cancellation.CurrentStep = enums.FlowStepOfferAccepted
		cancellation.ResolvedAt = &now
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if survey != nil {
			if err := s.repo.SaveSurveyWithTx(tx, survey); err != nil {
				return err
			}
		}
		if err := s.repo.UpdateWithTx(tx, cancellation); err != nil {
			return err
		}
		if accepting {
			if err := s.subs.UpdateStatusWithTx(tx, cancellation.SubscriptionID, enums.SubscriptionStatusActive); err != nil {
				return err
			}
			return s.emit(tx, outbox.EventCancellationResolved, cancellation.UserID, map[string]any{
				"cancellationId": cancellation.ID,
				"flowType":       cancellation.FlowType,
			})
		}
		return s.emit(tx, outbox.EventCancellationUpdated, cancellation.UserID, map[string]any{
			"cancellationId": cancellation.ID,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "updating cancellation")
	}
	if accepting {
		s.metrics.IncResolved(cancellation.FlowType.String())
	}
	return cancellation, nil
}

func (s *service) SetDownsell(ctx context.Context, cancellationID uuid.UUID, accepted bool) (*DownsellResult, error) {
	cancellation, err := s.loadUnresolved(ctx, cancellationID)
	if err != nil {
		return nil, err
	}

	cancellation.AcceptedDownsell = accepted
	status := enums.SubscriptionStatusPendingCancellation
	if accepted {
		now := time.Now().UTC()
		cancellation.FlowType = enums.FlowTypeOfferAccepted
		cancellation.CurrentStep = enums.FlowStepOfferAccepted
		cancellation.ResolvedAt = &now
		status = enums.SubscriptionStatusActive
	} else {
		cancellation.CurrentStep = enums.FlowStepReason
	}

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateWithTx(tx, cancellation); err != nil {
			return err
		}
		if accepted {
			if err := s.subs.UpdateStatusWithTx(tx, cancellation.SubscriptionID, enums.SubscriptionStatusActive); err != nil {
				return err
			}
			return s.emit(tx, outbox.EventCancellationResolved, cancellation.UserID, map[string]any{
				"cancellationId": cancellation.ID,
				"flowType":       cancellation.FlowType,
			})
		}
		return s.emit(tx, outbox.EventCancellationUpdated, cancellation.UserID, map[string]any{
			"cancellationId": cancellation.ID,
			"downsell":       "declined",
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "recording downsell decision")
	}
	if accepted {
		s.metrics.IncResolved(cancellation.FlowType.String())
	}
	return &DownsellResult{
		CancellationID:     cancellation.ID,
		Accepted:           accepted,
		SubscriptionStatus: status,
		CurrentStep:        cancellation.CurrentStep,
	}, nil
}

func (s *service) Complete(ctx context.Context, cancellationID uuid.UUID, input CompleteInput) error {
	cancellation, err := s.loadUnresolved(ctx, cancellationID)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	if input.Reason != nil {
		cancellation.Reason = input.Reason
	}
	if input.Details != nil {
		raw, err := json.Marshal(input.Details)
		if err != nil {
			return pkgerrors.New(pkgerrors.CodeValidation, "details must be JSON-encodable")
		}
		cancellation.Details = raw
	}
	cancellation.CurrentStep = enums.FlowStepSubscriptionCancelled
	cancellation.ResolvedAt = &now

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.UpdateWithTx(tx, cancellation); err != nil {
			return err
		}
		if err := s.subs.UpdateStatusWithTx(tx, cancellation.SubscriptionID, enums.SubscriptionStatusCancelled); err != nil {
			return err
		}
		return s.emit(tx, outbox.EventCancellationResolved, cancellation.UserID, map[string]any{
			"cancellationId": cancellation.ID,
			"flowType":       cancellation.FlowType,
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "completing cancellation")
	}
	s.metrics.IncResolved(cancellation.FlowType.String())
	return nil
}

func (s *service) CompleteFoundJob(ctx context.Context, cancellationID uuid.UUID, input SurveyInput) (*FoundJobResult, error) {
	cancellation, err := s.loadUnresolved(ctx, cancellationID)
	if err != nil {
		return nil, err
	}
	if err := input.Validate(); err != nil {
		return nil, err
	}

	survey, err := s.repo.FindSurveyByCancellation(ctx, cancellationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up survey")
	}
	if survey == nil {
		survey = &models.FoundJobSurvey{CancellationID: cancellationID}
	}
	input.apply(survey)

	now := time.Now().UTC()
	finalStep := FinalFoundJobStep(*survey.VisaLawyer)
	cancellation.FlowType = enums.FlowTypeFoundJob
	cancellation.CurrentStep = finalStep
	cancellation.ResolvedAt = &now

	err = s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.SaveSurveyWithTx(tx, survey); err != nil {
			return err
		}
		if err := s.repo.UpdateWithTx(tx, cancellation); err != nil {
			return err
		}
		if err := s.subs.UpdateStatusWithTx(tx, cancellation.SubscriptionID, enums.SubscriptionStatusCancelled); err != nil {
			return err
		}
		return s.emit(tx, outbox.EventCancellationResolved, cancellation.UserID, map[string]any{
			"cancellationId": cancellation.ID,
			"flowType":       cancellation.FlowType,
			"finalStep":      finalStep,
		})
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "completing found-job cancellation")
	}
	s.metrics.IncResolved(cancellation.FlowType.String())
	return &FoundJobResult{
		CancellationID: cancellation.ID,
		FinalStep:      finalStep,
	}, nil
}

func (s *service) Reset(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	var resolved int64
	err := s.txRunner.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		resolved, err = s.repo.ResolveUnresolvedByUserWithTx(tx, userID, time.Now().UTC())
		if err != nil {
			return err
		}
		if resolved == 0 {
			return nil
		}
		return s.emit(tx, outbox.EventCancellationResolved, userID, map[string]any{
			"reason": "reset",
		})
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeTransaction, err, "resetting cancellation state")
	}
	return nil
}

func (s *service) loadUnresolved(ctx context.Context, cancellationID uuid.UUID) (*models.Cancellation, error) {
	if cancellationID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation id is required")
	}
	cancellation, err := s.repo.FindByID(ctx, cancellationID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "looking up cancellation")
	}
	if cancellation == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cancellation not found")
	}
	if cancellation.Resolved() {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cancellation already resolved")
	}
	return cancellation, nil
}

func (s *service) emit(tx *gorm.DB, eventType string, userID uuid.UUID, data map[string]any) error {
	if s.outbox == nil {
		return nil
	}
	return s.outbox.Emit(tx, eventType, userID, data)
}
