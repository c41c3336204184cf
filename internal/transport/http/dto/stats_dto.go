package dto

import "time"

type StatsResponse struct {
	TotalUsers          int64            `json:"total_users"`
	ActiveUsers         int64            `json:"active_users"`
	ConvertedUsers      int64            `json:"converted_users"`
	ConversionRate      float64          `json:"conversion_rate"`
	PendingReviews      int64            `json:"pending_reviews"`
	InteractionsLastDay int64            `json:"interactions_last_day"`
	UsersByStatus       map[string]int64 `json:"users_by_status"`
	FollowUpDays        map[int]int64    `json:"follow_up_days"`
	CacheHits           int64            `json:"cache_hits"`
	CacheMisses         int64            `json:"cache_misses"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

type DailyMetricsItem struct {
	Day           string `json:"day"`
	Starts        int64  `json:"starts"`
	Submissions   int64  `json:"submissions"`
	Approvals     int64  `json:"approvals"`
	Rejections    int64  `json:"rejections"`
	FollowUpsSent int64  `json:"follow_ups_sent"`
	Conversions   int64  `json:"conversions"`
	Broadcasts    int64  `json:"broadcasts"`
}

type DailyMetricsResponse struct {
	Items []DailyMetricsItem `json:"items"`
}
