package model

import (
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
)

type ConversationState struct {
	UserID    int64                   `json:"user_id"`
	Stage     enums.ConversationStage `json:"stage"`
	UID       string                  `json:"uid"`
	VIP       bool                    `json:"vip"`
	UpdatedAt time.Time               `json:"updated_at"`
}
