package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	verifsvc "github.com/optrixtrades/funnelbot/internal/services/verification"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

const (
	defaultPendingLimit = 50
	screenshotLinkTTL   = 15 * time.Minute
)

// ScreenshotPresigner turns stored object keys into short-lived download
// links for the review queue.
type ScreenshotPresigner interface {
	PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error)
}

type VerificationsHandler struct {
	service   *verifsvc.Service
	presigner ScreenshotPresigner
}

func NewVerificationsHandler(service *verifsvc.Service) *VerificationsHandler {
	return &VerificationsHandler{service: service}
}

func (h *VerificationsHandler) AttachPresigner(presigner ScreenshotPresigner) {
	h.presigner = presigner
}

func (h *VerificationsHandler) Pending(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "VERIFICATION_SERVICE_UNAVAILABLE", "verification service is unavailable")
		return
	}

	limit := defaultPendingLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	pending, err := h.service.ListPending(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load pending verifications")
		return
	}

	items := make([]dto.VerificationItem, 0, len(pending))
	for _, req := range pending {
		item := dto.VerificationItem{
			ID:        req.ID,
			UserID:    req.UserID,
			UID:       req.UID,
			Tier:      string(req.Tier),
			Status:    string(req.Status),
			Reference: req.Reference,
			CreatedAt: req.CreatedAt,
		}
		if h.presigner != nil && req.ScreenshotObjectKey != "" {
			if url, err := h.presigner.PresignGet(r.Context(), req.ScreenshotObjectKey, screenshotLinkTTL); err == nil {
				item.ScreenshotURL = url
			}
		}
		items = append(items, item)
	}

	httperrors.Write(w, http.StatusOK, dto.PendingVerificationsResponse{Items: items})
}
