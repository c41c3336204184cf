package model

import "time"

type DailyMetrics struct {
	Day           time.Time `json:"day"`
	Starts        int64     `json:"starts"`
	Submissions   int64     `json:"submissions"`
	Approvals     int64     `json:"approvals"`
	Rejections    int64     `json:"rejections"`
	FollowUpsSent int64     `json:"follow_ups_sent"`
	Conversions   int64     `json:"conversions"`
	Broadcasts    int64     `json:"broadcasts"`
}
