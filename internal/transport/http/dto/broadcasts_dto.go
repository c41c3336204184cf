package dto

import "time"

type BroadcastRequest struct {
	Message string `json:"message"`
}

type BroadcastResponse struct {
	ID     int64 `json:"id"`
	Total  int   `json:"total"`
	Sent   int   `json:"sent"`
	Failed int   `json:"failed"`
}

type BroadcastHistoryItem struct {
	ID          int64     `json:"id"`
	MessageText string    `json:"message_text"`
	TotalUsers  int       `json:"total_users"`
	SentCount   int       `json:"sent_count"`
	FailedCount int       `json:"failed_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type BroadcastHistoryResponse struct {
	Items []BroadcastHistoryItem `json:"items"`
}
