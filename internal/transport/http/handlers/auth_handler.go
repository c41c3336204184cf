package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

type AuthHandler struct {
	service *apiauth.Service
}

func NewAuthHandler(service *apiauth.Service) *AuthHandler {
	return &AuthHandler{service: service}
}

// Token exchanges the operator secret for a short-lived bearer token.
func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is unavailable")
		return
	}

	var req dto.TokenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}

	token, expiresAt, err := h.service.Exchange(req.Secret)
	if err != nil {
		switch {
		case errors.Is(err, apiauth.ErrUnauthorized):
			writeUnauthorized(w, "UNAUTHORIZED", "invalid admin secret")
		case errors.Is(err, apiauth.ErrUnavailable):
			writeInternal(w, "AUTH_SERVICE_UNAVAILABLE", "auth service is not configured")
		default:
			writeInternal(w, "INTERNAL_ERROR", "internal server error")
		}
		return
	}

	httperrors.Write(w, http.StatusOK, dto.TokenResponse{
		AccessToken:  token,
		ExpiresInSec: maxInt64(0, int64(time.Until(expiresAt).Seconds())),
	})
}

func decodeJSON(r *http.Request, target any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(target)
}

func writeBadRequest(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusBadRequest, code, message)
}

func writeUnauthorized(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusUnauthorized, code, message)
}

func writeNotFound(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusNotFound, code, message)
}

func writeInternal(w http.ResponseWriter, code, message string) {
	httperrors.WriteError(w, http.StatusInternalServerError, code, message)
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
