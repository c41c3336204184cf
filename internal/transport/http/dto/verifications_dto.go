package dto

import "time"

type VerificationItem struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"user_id"`
	UID           string    `json:"uid"`
	Tier          string    `json:"tier"`
	Status        string    `json:"status"`
	Reference     string    `json:"reference"`
	ScreenshotURL string    `json:"screenshot_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

type PendingVerificationsResponse struct {
	Items []VerificationItem `json:"items"`
}
