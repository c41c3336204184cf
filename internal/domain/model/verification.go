package model

import (
	"time"

	"github.com/optrixtrades/funnelbot/internal/domain/enums"
)

type VerificationRequest struct {
	ID                  int64                    `json:"id"`
	UserID              int64                    `json:"user_id"`
	UID                 string                   `json:"uid"`
	ScreenshotFileID    string                   `json:"screenshot_file_id"`
	ScreenshotObjectKey string                   `json:"screenshot_object_key"`
	Reference           string                   `json:"reference"`
	Tier                enums.AccessTier         `json:"tier"`
	Status              enums.VerificationStatus `json:"status"`
	AdminResponse       string                   `json:"admin_response"`
	CreatedAt           time.Time                `json:"created_at"`
	UpdatedAt           time.Time                `json:"updated_at"`
}
