package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pgrepo "github.com/optrixtrades/funnelbot/internal/repo/postgres"
	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	funnelsvc "github.com/optrixtrades/funnelbot/internal/services/funnel"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

type UsersHandler struct {
	funnel *funnelsvc.Service
}

func NewUsersHandler(funnel *funnelsvc.Service) *UsersHandler {
	return &UsersHandler{funnel: funnel}
}

func (h *UsersHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.funnel == nil {
		writeInternal(w, "FUNNEL_SERVICE_UNAVAILABLE", "funnel service is unavailable")
		return
	}

	userID, ok := userIDFromRequest(r)
	if !ok {
		writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		return
	}

	user, err := h.funnel.Profile(r.Context(), userID)
	if err != nil {
		switch {
		case errors.Is(err, funnelsvc.ErrValidation):
			writeBadRequest(w, "VALIDATION_ERROR", "invalid user id")
		case errors.Is(err, pgrepo.ErrUserNotFound):
			writeNotFound(w, "NOT_FOUND", "user not found")
		default:
			writeInternal(w, "INTERNAL_ERROR", "failed to load user")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.UserResponse{
		UserID:             user.UserID,
		FirstName:          user.FirstName,
		Username:           user.Username,
		RegistrationStatus: string(user.RegistrationStatus),
		DepositConfirmed:   user.DepositConfirmed,
		UID:                user.UID,
		FollowUpDay:        user.FollowUpDay,
		LastInteraction:    user.LastInteraction,
		IsActive:           user.IsActive,
		CreatedAt:          user.CreatedAt,
	})
}

func userIDFromRequest(r *http.Request) (int64, bool) {
	raw := strings.TrimSpace(chi.URLParam(r, "id"))
	if raw == "" {
		return 0, false
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || userID <= 0 {
		return 0, false
	}
	return userID, true
}
