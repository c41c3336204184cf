package dto

type TokenRequest struct {
	Secret string `json:"secret"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	ExpiresInSec int64  `json:"expires_in_sec"`
}
