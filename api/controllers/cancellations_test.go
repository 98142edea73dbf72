package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	cancelsvc "github.com/migratemate/retention-backend/internal/cancellations"
	"github.com/migratemate/retention-backend/pkg/db/models"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
	"github.com/migratemate/retention-backend/pkg/logger"
)

type testCancellationService struct {
	startFn       func(ctx context.Context, input cancelsvc.StartInput) (*cancelsvc.StartResult, error)
	stateFn       func(ctx context.Context, userID uuid.UUID) (*cancelsvc.FlowState, error)
	updateStepFn  func(ctx context.Context, cancellationID uuid.UUID, step enums.FlowStep) error
	updateFn      func(ctx context.Context, cancellationID uuid.UUID, patch cancelsvc.UpdatePatch) (*models.Cancellation, error)
	setDownsellFn func(ctx context.Context, cancellationID uuid.UUID, accepted bool) (*cancelsvc.DownsellResult, error)
	completeFn    func(ctx context.Context, cancellationID uuid.UUID, input cancelsvc.CompleteInput) error
	foundJobFn    func(ctx context.Context, cancellationID uuid.UUID, input cancelsvc.SurveyInput) (*cancelsvc.FoundJobResult, error)
	resetFn       func(ctx context.Context, userID uuid.UUID) error
}

func (s *testCancellationService) Start(ctx context.Context, input cancelsvc.StartInput) (*cancelsvc.StartResult, error) {
	if s.startFn != nil {
		return s.startFn(ctx, input)
	}
	return nil, nil
}

func (s *testCancellationService) State(ctx context.Context, userID uuid.UUID) (*cancelsvc.FlowState, error) {
	if s.stateFn != nil {
		return s.stateFn(ctx, userID)
	}
	return nil, nil
}

func (s *testCancellationService) UpdateStep(ctx context.Context, cancellationID uuid.UUID, step enums.FlowStep) error {
	if s.updateStepFn != nil {
		return s.updateStepFn(ctx, cancellationID, step)
	}
	return nil
}

func (s *testCancellationService) Update(ctx context.Context, cancellationID uuid.UUID, patch cancelsvc.UpdatePatch) (*models.Cancellation, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cancellationID, patch)
	}
	return &models.Cancellation{ID: cancellationID}, nil
}

func (s *testCancellationService) SetDownsell(ctx context.Context, cancellationID uuid.UUID, accepted bool) (*cancelsvc.DownsellResult, error) {
	if s.setDownsellFn != nil {
		return s.setDownsellFn(ctx, cancellationID, accepted)
	}
	return nil, nil
}

func (s *testCancellationService) Complete(ctx context.Context, cancellationID uuid.UUID, input cancelsvc.CompleteInput) error {
	if s.completeFn != nil {
		return s.completeFn(ctx, cancellationID, input)
	}
	return nil
}

func (s *testCancellationService) CompleteFoundJob(ctx context.Context, cancellationID uuid.UUID, input cancelsvc.SurveyInput) (*cancelsvc.FoundJobResult, error) {
	if s.foundJobFn != nil {
		return s.foundJobFn(ctx, cancellationID, input)
	}
	return nil, nil
}

func (s *testCancellationService) Reset(ctx context.Context, userID uuid.UUID) error {
	if s.resetFn != nil {
		return s.resetFn(ctx, userID)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func jsonBody(t *testing.T, v any) *bytes.Reader {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	return bytes.NewReader(raw)
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCancellationStartCreated(t *testing.T) {
	userID := uuid.New()
	cancellationID := uuid.New()
	svc := &testCancellationService{
		startFn: func(ctx context.Context, input cancelsvc.StartInput) (*cancelsvc.StartResult, error) {
			if input.UserID != userID {
				t.Fatalf("unexpected user %s", input.UserID)
			}
			if input.FlowType != enums.FlowTypeStandard {
				t.Fatalf("unexpected flow type %s", input.FlowType)
			}
			return &cancelsvc.StartResult{
				CancellationID: cancellationID,
				Variant:        enums.DownsellVariantB,
				FlowType:       enums.FlowTypeStandard,
				FlowDecision:   enums.FlowStepOffer,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/start", jsonBody(t, map[string]string{
		"userId":   userID.String(),
		"flowType": "standard",
	}))
	resp := httptest.NewRecorder()
	CancellationStart(svc, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cancelsvc.StartResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.CancellationID != cancellationID {
		t.Fatalf("unexpected cancellation id %s", envelope.Data.CancellationID)
	}
	if envelope.Data.Variant != enums.DownsellVariantB {
		t.Fatalf("unexpected variant %s", envelope.Data.Variant)
	}
}

func TestCancellationStartResumeReturns200(t *testing.T) {
	svc := &testCancellationService{
		startFn: func(ctx context.Context, input cancelsvc.StartInput) (*cancelsvc.StartResult, error) {
			return &cancelsvc.StartResult{
				CancellationID: uuid.New(),
				AlreadyActive:  true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/start", jsonBody(t, map[string]string{
		"userId":   uuid.NewString(),
		"flowType": "found_job",
	}))
	resp := httptest.NewRecorder()
	CancellationStart(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestCancellationStartRejectsBadBody(t *testing.T) {
	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing user", map[string]string{"flowType": "standard"}},
		{"malformed user", map[string]string{"userId": "not-a-uuid", "flowType": "standard"}},
		{"missing flow type", map[string]string{"userId": uuid.NewString()}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/start", jsonBody(t, tc.body))
			resp := httptest.NewRecorder()
			CancellationStart(&testCancellationService{}, testLogger())(resp, req)
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400 got %d", resp.Code)
			}
		})
	}
}

func TestCancellationStartUnknownFields(t *testing.T) {
	body := bytes.NewReader([]byte(`{"userId":"` + uuid.NewString() + `","flowType":"standard","extra":true}`))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/start", body)
	resp := httptest.NewRecorder()
	CancellationStart(&testCancellationService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancellationStateRequiresUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/cancellations/state", nil)
	resp := httptest.NewRecorder()
	CancellationState(&testCancellationService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancellationStateSuccess(t *testing.T) {
	userID := uuid.New()
	svc := &testCancellationService{
		stateFn: func(ctx context.Context, uid uuid.UUID) (*cancelsvc.FlowState, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return &cancelsvc.FlowState{CurrentStep: enums.FlowStepStart}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/cancellations/state?userId="+userID.String(), nil)
	resp := httptest.NewRecorder()
	CancellationState(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data cancelsvc.FlowState `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.CurrentStep != enums.FlowStepStart {
		t.Fatalf("unexpected step %s", envelope.Data.CurrentStep)
	}
}

func TestCancellationStepForwardsToService(t *testing.T) {
	cancellationID := uuid.New()
	called := false
	svc := &testCancellationService{
		updateStepFn: func(ctx context.Context, cid uuid.UUID, step enums.FlowStep) error {
			called = true
			if cid != cancellationID {
				t.Fatalf("unexpected cancellation %s", cid)
			}
			if step != enums.FlowStepReason {
				t.Fatalf("unexpected step %s", step)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/step", jsonBody(t, map[string]string{
		"cancellationId": cancellationID.String(),
		"step":           "reason",
	}))
	resp := httptest.NewRecorder()
	CancellationStep(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestCancellationUpdateMapsConflict(t *testing.T) {
	cancellationID := uuid.New()
	svc := &testCancellationService{
		updateFn: func(ctx context.Context, cid uuid.UUID, patch cancelsvc.UpdatePatch) (*models.Cancellation, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "cancellation already resolved")
		},
	}

	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cancellations/"+cancellationID.String(), jsonBody(t, map[string]any{
		"reason": "too expensive",
	}))
	req = addRouteParam(req, "cancellationId", cancellationID.String())
	resp := httptest.NewRecorder()
	CancellationUpdate(svc, testLogger())(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var envelope struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Error.Code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected code %s", envelope.Error.Code)
	}
	if envelope.Error.Message != "cancellation already resolved" {
		t.Fatalf("unexpected message %q", envelope.Error.Message)
	}
}

func TestCancellationUpdateInvalidPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/cancellations/invalid", jsonBody(t, map[string]any{}))
	req = addRouteParam(req, "cancellationId", "invalid")
	resp := httptest.NewRecorder()
	CancellationUpdate(&testCancellationService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancellationDownsellRequiresAcceptedFlag(t *testing.T) {
	cancellationID := uuid.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/"+cancellationID.String()+"/downsell", jsonBody(t, map[string]any{}))
	req = addRouteParam(req, "cancellationId", cancellationID.String())
	resp := httptest.NewRecorder()
	CancellationDownsell(&testCancellationService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestCancellationDownsellAccepted(t *testing.T) {
	cancellationID := uuid.New()
	svc := &testCancellationService{
		setDownsellFn: func(ctx context.Context, cid uuid.UUID, accepted bool) (*cancelsvc.DownsellResult, error) {
			if !accepted {
				t.Fatal("expected accepted flag")
			}
			return &cancelsvc.DownsellResult{
				CancellationID:     cid,
				Accepted:           true,
				SubscriptionStatus: enums.SubscriptionStatusActive,
				CurrentStep:        enums.FlowStepOfferAccepted,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/"+cancellationID.String()+"/downsell", jsonBody(t, map[string]bool{"accepted": true}))
	req = addRouteParam(req, "cancellationId", cancellationID.String())
	resp := httptest.NewRecorder()
	CancellationDownsell(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cancelsvc.DownsellResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.SubscriptionStatus != enums.SubscriptionStatusActive {
		t.Fatalf("unexpected status %s", envelope.Data.SubscriptionStatus)
	}
}

func TestCancellationFoundJobCompleteValidatesBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/found-job/complete", jsonBody(t, map[string]string{
		"cancellationId": uuid.NewString(),
	}))
	resp := httptest.NewRecorder()
	CancellationFoundJobComplete(&testCancellationService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}

	var envelope struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if _, ok := envelope.Error.Details["feedback"]; !ok {
		t.Fatalf("expected feedback detail, got %v", envelope.Error.Details)
	}
}

func TestCancellationFoundJobCompleteSuccess(t *testing.T) {
	cancellationID := uuid.New()
	svc := &testCancellationService{
		foundJobFn: func(ctx context.Context, cid uuid.UUID, input cancelsvc.SurveyInput) (*cancelsvc.FoundJobResult, error) {
			if cid != cancellationID {
				t.Fatalf("unexpected cancellation %s", cid)
			}
			if input.VisaLawyer != "No" {
				t.Fatalf("unexpected visa lawyer answer %q", input.VisaLawyer)
			}
			return &cancelsvc.FoundJobResult{
				CancellationID: cid,
				FinalStep:      enums.FlowStepFoundJobCancelledWithHelp,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/found-job/complete", jsonBody(t, map[string]string{
		"cancellationId":       cancellationID.String(),
		"viaMigrateMate":       "Yes",
		"rolesApplied":         "1-5",
		"companiesEmailed":     "0",
		"companiesInterviewed": "1-2",
		"feedback":             "The visa checklist alone saved me weeks of research.",
		"visaLawyer":           "No",
		"visaType":             "O-1",
	}))
	resp := httptest.NewRecorder()
	CancellationFoundJobComplete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data cancelsvc.FoundJobResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.FinalStep != enums.FlowStepFoundJobCancelledWithHelp {
		t.Fatalf("unexpected final step %s", envelope.Data.FinalStep)
	}
}

func TestCancellationResetSuccess(t *testing.T) {
	userID := uuid.New()
	called := false
	svc := &testCancellationService{
		resetFn: func(ctx context.Context, uid uuid.UUID) error {
			called = true
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/reset", jsonBody(t, map[string]string{
		"userId": userID.String(),
	}))
	resp := httptest.NewRecorder()
	CancellationReset(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestCancellationCompleteNotFound(t *testing.T) {
	cancellationID := uuid.New()
	svc := &testCancellationService{
		completeFn: func(ctx context.Context, cid uuid.UUID, input cancelsvc.CompleteInput) error {
			return pkgerrors.New(pkgerrors.CodeNotFound, "cancellation not found")
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/cancellations/"+cancellationID.String()+"/complete", jsonBody(t, map[string]any{
		"reason": "switching providers",
	}))
	req = addRouteParam(req, "cancellationId", cancellationID.String())
	resp := httptest.NewRecorder()
	CancellationComplete(svc, testLogger())(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}
