package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
)

type requestStoreStub struct {
	pending []model.VerificationRequest
}

func (s requestStoreStub) Create(_ context.Context, _ pgx.Tx, req model.VerificationRequest) (model.VerificationRequest, error) {
	return req, nil
}

func (s requestStoreStub) Get(context.Context, int64) (model.VerificationRequest, error) {
	return model.VerificationRequest{}, pgrepo.ErrVerificationNotFound
}

func (s requestStoreStub) LatestByUser(context.Context, int64) (model.VerificationRequest, error) {
	return model.VerificationRequest{}, pgrepo.ErrVerificationNotFound
}

func (s requestStoreStub) ListPending(_ context.Context, limit int) ([]model.VerificationRequest, error) {
	if limit < len(s.pending) {
		return s.pending[:limit], nil
	}
	return s.pending, nil
}

func (s requestStoreStub) Decide(_ context.Context, _ pgx.Tx, _ int64, _ enums.VerificationStatus, _ string) (model.VerificationRequest, error) {
	return model.VerificationRequest{}, pgrepo.ErrVerificationNotFound
}

type presignerStub struct{}

func (presignerStub) PresignGet(_ context.Context, key string, _ time.Duration) (string, error) {
	return "https://signed.local/" + key, nil
}

func newVerificationsHandler(pending []model.VerificationRequest) *VerificationsHandler {
	service := verifsvc.NewService(nil, nil, requestStoreStub{pending: pending}, nil, nil, nil, verifsvc.Config{}, nil)
	return NewVerificationsHandler(service)
}

func TestPendingVerificationsCarrySignedLinks(t *testing.T) {
	handler := newVerificationsHandler([]model.VerificationRequest{
		{
			ID:                  1,
			UserID:              42,
			UID:                 "12345678",
			ScreenshotObjectKey: "screenshots/42/a.jpg",
			Reference:           "ref-1",
			Tier:                enums.AccessTierPremium,
			Status:              enums.VerificationStatusPending,
		},
		{
			ID:        2,
			UserID:    43,
			UID:       "87654321",
			Reference: "ref-2",
			Tier:      enums.AccessTierVIP,
			Status:    enums.VerificationStatusPending,
		},
	})
	handler.AttachPresigner(presignerStub{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/pending", nil)
	req = req.WithContext(withClaims(req.Context()))

	rr := httptest.NewRecorder()
	handler.Pending(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload dto.PendingVerificationsResponse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 2 {
		t.Fatalf("expected 2 pending items, got %d", len(payload.Items))
	}
	if payload.Items[0].ScreenshotURL != "https://signed.local/screenshots/42/a.jpg" {
		t.Fatalf("unexpected signed url: %q", payload.Items[0].ScreenshotURL)
	}
	if payload.Items[1].ScreenshotURL != "" {
		t.Fatalf("expected no signed url for request without object key, got %q", payload.Items[1].ScreenshotURL)
	}
	if payload.Items[1].Tier != string(enums.AccessTierVIP) {
		t.Fatalf("unexpected tier: %q", payload.Items[1].Tier)
	}
}

func TestPendingVerificationsWorkWithoutPresigner(t *testing.T) {
	handler := newVerificationsHandler([]model.VerificationRequest{
		{ID: 1, UserID: 42, UID: "12345678", ScreenshotObjectKey: "screenshots/42/a.jpg"},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/pending", nil)
	req = req.WithContext(withClaims(req.Context()))

	rr := httptest.NewRecorder()
	handler.Pending(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload dto.PendingVerificationsResponse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(payload.Items) != 1 || payload.Items[0].ScreenshotURL != "" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
}

func TestPendingVerificationsRejectBadLimit(t *testing.T) {
	handler := newVerificationsHandler(nil)

	for _, limit := range []string{"0", "-1", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/verifications/pending?limit="+limit, nil)
		req = req.WithContext(withClaims(req.Context()))

		rr := httptest.NewRecorder()
		handler.Pending(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("limit %q: unexpected status: got %d want %d", limit, rr.Code, http.StatusBadRequest)
		}
	}
}
