package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/optrixtrades/funnelbot/internal/pkg/validate"
	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	broadcastsvc "github.com/optrixtrades/funnelbot/internal/services/broadcast"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

const (
	// Telegram rejects messages longer than 4096 characters.
	maxBroadcastLength = 4096

	defaultHistoryLimit = 20
)

type BroadcastsHandler struct {
	service *broadcastsvc.Service
}

func NewBroadcastsHandler(service *broadcastsvc.Service) *BroadcastsHandler {
	return &BroadcastsHandler{service: service}
}

// Create sends the message to every active user and reports the final counts.
// The send runs synchronously; a broadcast is never retried.
func (h *BroadcastsHandler) Create(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BROADCAST_SERVICE_UNAVAILABLE", "broadcast service is unavailable")
		return
	}

	var req dto.BroadcastRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, "INVALID_REQUEST", "invalid request body")
		return
	}
	if !validate.Required(req.Message) {
		writeBadRequest(w, "VALIDATION_ERROR", "message must not be empty")
		return
	}
	if !validate.MaxLen(req.Message, maxBroadcastLength) {
		writeBadRequest(w, "VALIDATION_ERROR", "message exceeds the 4096 character limit")
		return
	}

	result, err := h.service.SendToActive(r.Context(), req.Message)
	if err != nil {
		if errors.Is(err, broadcastsvc.ErrEmptyMessage) {
			writeBadRequest(w, "VALIDATION_ERROR", "message must not be empty")
			return
		}
		writeInternal(w, "INTERNAL_ERROR", "failed to send broadcast")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.BroadcastResponse{
		ID:     result.BroadcastID,
		Total:  result.Total,
		Sent:   result.Sent,
		Failed: result.Failed,
	})
}

func (h *BroadcastsHandler) History(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "BROADCAST_SERVICE_UNAVAILABLE", "broadcast service is unavailable")
		return
	}

	limit := defaultHistoryLimit
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "limit must be a positive integer")
			return
		}
		limit = parsed
	}

	rows, err := h.service.History(r.Context(), limit)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load broadcast history")
		return
	}

	items := make([]dto.BroadcastHistoryItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.BroadcastHistoryItem{
			ID:          row.ID,
			MessageText: row.MessageText,
			TotalUsers:  row.TotalUsers,
			SentCount:   row.SentCount,
			FailedCount: row.FailedCount,
			CreatedAt:   row.CreatedAt,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.BroadcastHistoryResponse{Items: items})
}
