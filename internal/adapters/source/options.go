package source

import (
	"net/http"
	"time"

	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
)

// Option applies a configuration option to the Fetcher.
type Option func(*Fetcher)

// WithDownloadDir sets the parent of the scratch directories. Empty means os.TempDir().
func WithDownloadDir(dir string) Option {
	return func(f *Fetcher) {
		f.dir = dir
	}
}

// WithTimeout bounds a single download.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		if d > 0 {
			f.timeout = d
		}
	}
}

// WithUserAgent sets the User-Agent header of downloads.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		if ua != "" {
			f.client.UserAgent = ua
		}
	}
}

// WithHTTPClient replaces the HTTP client used for downloads.
func WithHTTPClient(hc *http.Client) Option {
	return func(f *Fetcher) {
		if hc != nil {
			f.client.HTTPClient = hc
		}
	}
}

// WithLogger sets the fetcher logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Fetcher) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithMetrics sets the metrics manager used to count downloads.
func WithMetrics(m *metrics.Manager) Option {
	return func(f *Fetcher) {
		if m != nil {
			f.metrics = m
		}
	}
}
