// Package httpclient builds the HTTP clients used to reach shardstats daemons and webhooks.
package httpclient

import (
	"net/http"
	"time"
)

const defaultTimeout = 30 * time.Second

// New returns an HTTP client with the given timeout, or a 30s default when timeout is zero.
func New(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &http.Client{Timeout: timeout}
}
