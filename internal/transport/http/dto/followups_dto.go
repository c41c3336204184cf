package dto

type FollowUpRunResponse struct {
	Eligible int `json:"eligible"`
	Sent     int `json:"sent"`
	Failed   int `json:"failed"`
	Stale    int `json:"stale"`
}
