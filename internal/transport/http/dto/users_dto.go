package dto

import "time"

type UserResponse struct {
	UserID             int64     `json:"user_id"`
	FirstName          string    `json:"first_name"`
	Username           string    `json:"username"`
	RegistrationStatus string    `json:"registration_status"`
	DepositConfirmed   bool      `json:"deposit_confirmed"`
	UID                string    `json:"uid"`
	FollowUpDay        int       `json:"follow_up_day"`
	LastInteraction    time.Time `json:"last_interaction"`
	IsActive           bool      `json:"is_active"`
	CreatedAt          time.Time `json:"created_at"`
}
