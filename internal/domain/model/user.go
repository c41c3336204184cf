package model

import (
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
)

type User struct {
	UserID             int64                    `json:"user_id"`
	FirstName          string                   `json:"first_name"`
	Username           string                   `json:"username"`
	RegistrationStatus enums.RegistrationStatus `json:"registration_status"`
	DepositConfirmed   bool                     `json:"deposit_confirmed"`
	UID                string                   `json:"uid"`
	FollowUpDay        int                      `json:"follow_up_day"`
	LastInteraction    time.Time                `json:"last_interaction"`
	IsActive           bool                     `json:"is_active"`
	CreatedAt          time.Time                `json:"created_at"`
	UpdatedAt          time.Time                `json:"updated_at"`
}
