package service

import (
	"github.com/okian/geosimplify/internal/adapters/geoboundaries"
	"github.com/okian/geosimplify/internal/adapters/source"
	"github.com/okian/geosimplify/internal/config"
	"github.com/okian/geosimplify/internal/domain/topology"
	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithClient sets the metadata client.
func WithClient(c MetadataClient) Option {
	return func(s *Service) {
		if c != nil {
			s.client = c
		}
	}
}

// WithFetcher sets the dataset fetcher.
func WithFetcher(f Opener) Option {
	return func(s *Service) {
		if f != nil {
			s.fetcher = f
		}
	}
}

// WithQuery selects the boundary dataset.
func WithQuery(q geoboundaries.Query) Option {
	return func(s *Service) {
		s.query = q
	}
}

// WithPrequantize sets the quantization grid size. 0 disables quantization.
func WithPrequantize(q int) Option {
	return func(s *Service) {
		if q >= 0 {
			s.prequantize = q
		}
	}
}

// WithEpsilon sets the simplification tolerance in coordinate units.
func WithEpsilon(eps float64) Option {
	return func(s *Service) {
		s.epsilon = eps
	}
}

// WithAlgorithm sets the simplification algorithm.
func WithAlgorithm(a topology.Algorithm) Option {
	return func(s *Service) {
		if a != "" {
			s.algorithm = a
		}
	}
}

// WithPreventOversimplify toggles the three-vertex floor per ring.
func WithPreventOversimplify(enabled bool) Option {
	return func(s *Service) {
		s.preventOversimplify = enabled
	}
}

// FromConfig translates cfg into service options. Logger and metrics are
// not part of the configuration and are passed separately.
func FromConfig(cfg *config.Config, l logger.Logger, m *metrics.Manager) []Option {
	if l == nil {
		l = logger.Get()
	}
	if m == nil {
		m = metrics.Default()
	}
	client := geoboundaries.NewClient(
		geoboundaries.WithBaseURL(cfg.BaseURL),
		geoboundaries.WithTimeout(cfg.HTTPTimeout),
		geoboundaries.WithUserAgent(cfg.UserAgent),
		geoboundaries.WithLogger(l.Named("metadata")),
		geoboundaries.WithMetrics(m),
	)
	fetcher := source.NewFetcher(
		source.WithDownloadDir(cfg.DownloadDir),
		source.WithTimeout(cfg.HTTPTimeout),
		source.WithUserAgent(cfg.UserAgent),
		source.WithLogger(l.Named("source")),
		source.WithMetrics(m),
	)
	return []Option{
		WithLogger(l),
		WithMetrics(m),
		WithClient(client),
		WithFetcher(fetcher),
		WithQuery(geoboundaries.Query{Release: cfg.ReleaseType, ISO: cfg.ISO, Level: cfg.AdmLevel}),
		WithPrequantize(cfg.Prequantize),
		WithEpsilon(cfg.Tolerance()),
		WithAlgorithm(topology.Algorithm(cfg.Algorithm)),
		WithPreventOversimplify(cfg.PreventOversimplify),
	}
}
