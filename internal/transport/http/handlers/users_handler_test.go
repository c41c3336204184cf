package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
	"github.com/optrixtrades/funnelbot/internal/domain/model"
	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
)

type funnelUserStoreStub struct {
	users map[int64]model.User
}

func (s funnelUserStoreStub) Get(_ context.Context, userID int64) (model.User, error) {
	if user, ok := s.users[userID]; ok {
		return user, nil
	}
	return model.User{}, pgrepo.ErrUserNotFound
}

func (s funnelUserStoreStub) Upsert(_ context.Context, userID int64, firstName, username string) (model.User, error) {
	return model.User{UserID: userID, FirstName: firstName, Username: username}, nil
}

func (s funnelUserStoreStub) Deactivate(context.Context, int64) error {
	return nil
}

func withClaims(ctx context.Context) context.Context {
	return apiauth.WithClaims(ctx, apiauth.Claims{
		TokenID:   "token-1",
		Role:      apiauth.RoleAdmin,
		ExpiresAt: time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	})
}

func withURLParam(ctx context.Context, key, value string) context.Context {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return context.WithValue(ctx, chi.RouteCtxKey, routeCtx)
}

func newUsersHandler(users map[int64]model.User) *UsersHandler {
	service := funnelsvc.NewService(funnelsvc.Dependencies{
		Users: funnelUserStoreStub{users: users},
	}, funnelsvc.Config{}, nil)
	return NewUsersHandler(service)
}

func TestUserProfileReturns200(t *testing.T) {
	handler := newUsersHandler(map[int64]model.User{
		42: {
			UserID:             42,
			FirstName:          "Ivan",
			Username:           "ivan_t",
			RegistrationStatus: enums.RegistrationStatusPending,
			UID:                "12345678",
			FollowUpDay:        3,
			IsActive:           true,
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/42", nil)
	req = req.WithContext(withClaims(req.Context()))
	req = req.WithContext(withURLParam(req.Context(), "id", "42"))

	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusOK)
	}

	var payload dto.UserResponse
	if err := json.NewDecoder(rr.Body).Decode(&payload); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if payload.UserID != 42 || payload.UID != "12345678" {
		t.Fatalf("unexpected payload: %+v", payload)
	}
	if payload.RegistrationStatus != string(enums.RegistrationStatusPending) {
		t.Fatalf("unexpected registration status: %q", payload.RegistrationStatus)
	}
	if payload.FollowUpDay != 3 || !payload.IsActive {
		t.Fatalf("unexpected funnel state: %+v", payload)
	}
}

func TestUserProfileUnknownUserReturns404(t *testing.T) {
	handler := newUsersHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/77", nil)
	req = req.WithContext(withClaims(req.Context()))
	req = req.WithContext(withURLParam(req.Context(), "id", "77"))

	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusNotFound)
	}
}

func TestUserProfileRejectsMalformedID(t *testing.T) {
	handler := newUsersHandler(nil)

	for _, id := range []string{"abc", "-5", "0", ""} {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/users/"+id, nil)
		req = req.WithContext(withClaims(req.Context()))
		req = req.WithContext(withURLParam(req.Context(), "id", id))

		rr := httptest.NewRecorder()
		handler.Get(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Fatalf("id %q: unexpected status: got %d want %d", id, rr.Code, http.StatusBadRequest)
		}
	}
}

func TestUserProfileRequiresAuth(t *testing.T) {
	handler := newUsersHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/42", nil)
	req = req.WithContext(withURLParam(req.Context(), "id", "42"))

	rr := httptest.NewRecorder()
	handler.Get(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected status: got %d want %d", rr.Code, http.StatusUnauthorized)
	}
}
