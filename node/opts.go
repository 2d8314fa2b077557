package node

import (
	"net/http"
	"time"
)

// Option is a functional option for configuring the node client.
type Option func(*client)

// WithHTTPClient sets the http client used for node requests.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *client) {
		c.http = httpClient
	}
}

// WithTimeout sets the per request timeout.
// Default: 30 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(c *client) {
		c.http = &http.Client{Timeout: timeout}
	}
}

// WithDeadline sets the transaction deadline, in minutes, used when an
// operation doesn't specify one.
// Default: 1440 (24 hours).
func WithDeadline(minutes uint16) Option {
	return func(c *client) {
		c.deadline = minutes
	}
}
