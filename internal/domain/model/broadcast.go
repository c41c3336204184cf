package model

import "time"

type Broadcast struct {
	ID          int64     `json:"id"`
	MessageText string    `json:"message_text"`
	TotalUsers  int       `json:"total_users"`
	SentCount   int       `json:"sent_count"`
	FailedCount int       `json:"failed_count"`
	CreatedAt   time.Time `json:"created_at"`
}
