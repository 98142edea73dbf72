package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/migratemate/retention-backend/api/responses"
	"github.com/migratemate/retention-backend/api/validators"
	cancelsvc "github.com/migratemate/retention-backend/internal/cancellations"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
)

type startCancellationRequest struct {
	UserID   string `json:"userId" validate:"required,uuid"`
	FlowType string `json:"flowType" validate:"required"`
}

func CancellationStart(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		var payload startCancellationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "userId must be a valid UUID"))
			return
		}

		result, err := svc.Start(r.Context(), cancelsvc.StartInput{
			UserID:   userID,
			FlowType: enums.FlowType(payload.FlowType),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if result.AlreadyActive {
			responses.WriteSuccess(w, result)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func CancellationState(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		userID, err := validators.ParseQueryUUID(r, "userId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		state, err := svc.State(r.Context(), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, state)
	}
}

type stepRequest struct {
	CancellationID string `json:"cancellationId" validate:"required,uuid"`
	Step           string `json:"step" validate:"required"`
}

func CancellationStep(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		var payload stepRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancellationID, err := uuid.Parse(payload.CancellationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cancellationId must be a valid UUID"))
			return
		}

		if err := svc.UpdateStep(r.Context(), cancellationID, enums.FlowStep(payload.Step)); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"currentStep": payload.Step})
	}
}

func CancellationUpdate(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		cancellationID, err := validators.ParsePathUUID(r, "cancellationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var patch cancelsvc.UpdatePatch
		if err := validators.DecodeJSONBody(r, &patch); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Update(r.Context(), cancellationID, patch)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"cancellationId": updated.ID,
			"currentStep":    updated.CurrentStep,
			"resolved":       updated.Resolved(),
		})
	}
}

type downsellRequest struct {
	Accepted *bool `json:"accepted" validate:"required"`
}

func CancellationDownsell(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		cancellationID, err := validators.ParsePathUUID(r, "cancellationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload downsellRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SetDownsell(r.Context(), cancellationID, *payload.Accepted)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type completeCancellationRequest struct {
	Reason  *string        `json:"reason"`
	Details map[string]any `json:"details"`
}

func CancellationComplete(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		cancellationID, err := validators.ParsePathUUID(r, "cancellationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload completeCancellationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Complete(r.Context(), cancellationID, cancelsvc.CompleteInput{
			Reason:  payload.Reason,
			Details: payload.Details,
		}); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]any{
			"cancellationId": cancellationID,
			"currentStep":    enums.FlowStepSubscriptionCancelled,
		})
	}
}

type foundJobCompleteRequest struct {
	CancellationID       string `json:"cancellationId" validate:"required,uuid"`
	ViaMigrateMate       string `json:"viaMigrateMate" validate:"required"`
	RolesApplied         string `json:"rolesApplied" validate:"required"`
	CompaniesEmailed     string `json:"companiesEmailed" validate:"required"`
	CompaniesInterviewed string `json:"companiesInterviewed" validate:"required"`
	Feedback             string `json:"feedback" validate:"required"`
	VisaLawyer           string `json:"visaLawyer" validate:"required"`
	VisaType             string `json:"visaType"`
}

func CancellationFoundJobComplete(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		var payload foundJobCompleteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cancellationID, err := uuid.Parse(payload.CancellationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "cancellationId must be a valid UUID"))
			return
		}

		result, err := svc.CompleteFoundJob(r.Context(), cancellationID, cancelsvc.SurveyInput{
			ViaMigrateMate:       payload.ViaMigrateMate,
			RolesApplied:         payload.RolesApplied,
			CompaniesEmailed:     payload.CompaniesEmailed,
			CompaniesInterviewed: payload.CompaniesInterviewed,
			Feedback:             payload.Feedback,
			VisaLawyer:           payload.VisaLawyer,
			VisaType:             payload.VisaType,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}

type resetCancellationRequest struct {
	UserID string `json:"userId" validate:"required,uuid"`
}

func CancellationReset(svc cancelsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cancellation service unavailable"))
			return
		}

		var payload resetCancellationRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "userId must be a valid UUID"))
			return
		}

		if err := svc.Reset(r.Context(), userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, map[string]string{"status": "reset"})
	}
}
