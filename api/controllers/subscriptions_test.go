package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	subsvc "github.com/migratemate/retention-backend/internal/subscriptions"
	"github.com/migratemate/retention-backend/pkg/enums"
	pkgerrors "github.com/migratemate/retention-backend/pkg/errors"
)

type testSubscriptionService struct {
	statusFn func(ctx context.Context, userID uuid.UUID) (*subsvc.StatusResult, error)
	renewFn  func(ctx context.Context, userID uuid.UUID) error
}

func (s *testSubscriptionService) Status(ctx context.Context, userID uuid.UUID) (*subsvc.StatusResult, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, userID)
	}
	return nil, nil
}

func (s *testSubscriptionService) Renew(ctx context.Context, userID uuid.UUID) error {
	if s.renewFn != nil {
		return s.renewFn(ctx, userID)
	}
	return nil
}

func TestSubscriptionStatusSuccess(t *testing.T) {
	userID := uuid.New()
	subscriptionID := uuid.New()
	svc := &testSubscriptionService{
		statusFn: func(ctx context.Context, uid uuid.UUID) (*subsvc.StatusResult, error) {
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return &subsvc.StatusResult{
				SubscriptionID:        subscriptionID,
				Status:                enums.SubscriptionStatusPendingCancellation,
				MonthlyPrice:          2500,
				MonthlyPriceDisplay:   "25.00",
				HasActiveCancellation: true,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/status?userId="+userID.String(), nil)
	resp := httptest.NewRecorder()
	SubscriptionStatus(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var envelope struct {
		Data subsvc.StatusResult `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != enums.SubscriptionStatusPendingCancellation {
		t.Fatalf("unexpected status %s", envelope.Data.Status)
	}
	if envelope.Data.MonthlyPriceDisplay != "25.00" {
		t.Fatalf("unexpected display price %q", envelope.Data.MonthlyPriceDisplay)
	}
}

func TestSubscriptionStatusMissingUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/status", nil)
	resp := httptest.NewRecorder()
	SubscriptionStatus(&testSubscriptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestSubscriptionStatusUnknownUser(t *testing.T) {
	svc := &testSubscriptionService{
		statusFn: func(ctx context.Context, uid uuid.UUID) (*subsvc.StatusResult, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "subscription not found")
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/subscriptions/status?userId="+uuid.NewString(), nil)
	resp := httptest.NewRecorder()
	SubscriptionStatus(svc, testLogger())(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", resp.Code)
	}
}

func TestSubscriptionRenewSuccess(t *testing.T) {
	userID := uuid.New()
	called := false
	svc := &testSubscriptionService{
		renewFn: func(ctx context.Context, uid uuid.UUID) error {
			called = true
			if uid != userID {
				t.Fatalf("unexpected user %s", uid)
			}
			return nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/renew", jsonBody(t, map[string]string{
		"userId": userID.String(),
	}))
	resp := httptest.NewRecorder()
	SubscriptionRenew(svc, testLogger())(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !called {
		t.Fatal("expected service called")
	}
}

func TestSubscriptionRenewRejectsBadUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/subscriptions/renew", jsonBody(t, map[string]string{
		"userId": "not-a-uuid",
	}))
	resp := httptest.NewRecorder()
	SubscriptionRenew(&testSubscriptionService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
