package handlers

import (
	"net/http"

	"github.com/optrixtrades/funnelbot/internal/services/apiauth"
	"github.com/optrixtrades/funnelbot/internal/services/followup"
	"github.com/optrixtrades/funnelbot/internal/transport/http/dto"
	httperrors "github.com/optrixtrades/funnelbot/internal/transport/http/errors"
)

type FollowUpsHandler struct {
	engine *followup.Engine
}

func NewFollowUpsHandler(engine *followup.Engine) *FollowUpsHandler {
	return &FollowUpsHandler{engine: engine}
}

// Run triggers one drip cycle outside the hourly schedule. The engine is nil
// when the process has no bot token, so the route degrades instead of panicking.
func (h *FollowUpsHandler) Run(w http.ResponseWriter, r *http.Request) {
	if _, ok := apiauth.ClaimsFromContext(r.Context()); !ok {
		writeUnauthorized(w, "UNAUTHORIZED", "authentication required")
		return
	}
	if h.engine == nil {
		writeInternal(w, "FOLLOWUP_ENGINE_UNAVAILABLE", "follow-up engine is unavailable")
		return
	}

	result, err := h.engine.RunCycle(r.Context())
	if err != nil {
		writeInternal(w, "INTERNAL_ERROR", "follow-up cycle failed")
		return
	}

	httperrors.Write(w, http.StatusOK, dto.FollowUpRunResponse{
		Eligible: result.Eligible,
		Sent:     result.Sent,
		Failed:   result.Failed,
		Stale:    result.Stale,
	})
}
