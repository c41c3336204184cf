package httpclient

import (
	"net/http"
	"time"
)

// New returns the client used for Telegram calls and screenshot downloads.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &http.Client{Timeout: timeout}
}
