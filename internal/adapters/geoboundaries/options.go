package geoboundaries

import (
	"net/http"
	"time"

	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
)

// Option applies a configuration option to the Client.
type Option func(*Client)

// WithBaseURL sets the API root, e.g. https://www.geoboundaries.org/api/current.
func WithBaseURL(base string) Option {
	return func(c *Client) {
		if base != "" {
			c.baseURL = base
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout bounds every metadata request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithLogger sets the client logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics sets the metrics manager used to count requests.
func WithMetrics(m *metrics.Manager) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}
