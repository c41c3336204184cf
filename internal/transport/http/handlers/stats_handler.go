package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	statssvc "github.com/optrixtrades/funnelbot/internal/services/stats"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

type StatsHandler struct {
	service *statssvc.Service
}

func NewStatsHandler(service *statssvc.Service) *StatsHandler {
	return &StatsHandler{service: service}
}

func (h *StatsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "STATS_SERVICE_UNAVAILABLE", "stats service is unavailable")
		return
	}

	snap, err := h.service.Snapshot(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to assemble funnel stats")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.StatsResponse{
		TotalUsers:          snap.TotalUsers,
		ActiveUsers:         snap.ActiveUsers,
		ConvertedUsers:      snap.ConvertedUsers,
		ConversionRate:      snap.ConversionRate,
		PendingReviews:      snap.PendingReviews,
		InteractionsLastDay: snap.InteractionsLastDay,
		UsersByStatus:       snap.UsersByStatus,
		FollowUpDays:        snap.FollowUpDays,
		CacheHits:           snap.CacheHits,
		CacheMisses:         snap.CacheMisses,
		GeneratedAt:         snap.GeneratedAt,
	})
}

func (h *StatsHandler) Daily(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.service == nil {
		writeInternal(w, "STATS_SERVICE_UNAVAILABLE", "stats service is unavailable")
		return
	}

	days := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("days")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeBadRequest(w, "VALIDATION_ERROR", "days must be a positive integer")
			return
		}
		days = parsed
	}

	rows, err := h.service.Daily(r.Context(), days)
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "failed to load daily metrics")
		return
	}

	items := make([]dto.DailyMetricsItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, dto.DailyMetricsItem{
			Day:           row.Day.UTC().Format("2006-01-02"),
			Starts:        row.Starts,
			Submissions:   row.Submissions,
			Approvals:     row.Approvals,
			Rejections:    row.Rejections,
			FollowUpsSent: row.FollowUpsSent,
			Conversions:   row.Conversions,
			Broadcasts:    row.Broadcasts,
		})
	}

	httperrors.Write(w, http.StatusOK, dto.DailyMetricsResponse{Items: items})
}
