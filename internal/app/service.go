// Package service runs the boundary simplification pipeline: metadata
// lookup, dataset load, topology build and one simplification pass.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/okian/geosimplify/internal/adapters/geoboundaries"
	"github.com/okian/geosimplify/internal/adapters/source"
	"github.com/okian/geosimplify/internal/config"
	"github.com/okian/geosimplify/internal/domain/geometry"
	"github.com/okian/geosimplify/internal/domain/topology"
	"github.com/okian/geosimplify/pkg/logger"
	"github.com/okian/geosimplify/pkg/metrics"
)

// MetadataClient resolves a boundary query to its API document.
type MetadataClient interface {
	Metadata(ctx context.Context, q geoboundaries.Query) (*geoboundaries.Metadata, error)
}

// Opener opens a dataset by URL or path.
type Opener interface {
	Open(ctx context.Context, location string) (*source.File, error)
}

// Stats summarizes a run.
type Stats struct {
	Features      int
	ExpectedUnits int // admUnitCount from the metadata, 0 when absent
	InputVertices int
	Topology      topology.Stats
	Simplified    topology.Stats
	Epsilon       float64
	Algorithm     topology.Algorithm
}

// Result holds everything a run produced.
type Result struct {
	RunID      string
	Metadata   *geoboundaries.Metadata
	Table      *geometry.Table
	Topology   *topology.Topology
	Simplified *topology.Topology
	Stats      Stats
}

// Service runs the pipeline.
type Service struct {
	client  MetadataClient
	fetcher Opener

	query               geoboundaries.Query
	prequantize         int
	epsilon             float64
	algorithm           topology.Algorithm
	preventOversimplify bool

	logger  logger.Logger
	metrics *metrics.Manager
}

// New constructs a Service. The defaults simplify the German ADM1
// boundaries of the gbOpen release at 30 m.
func New(opts ...Option) *Service {
	s := &Service{
		query:               geoboundaries.Query{Release: "gbOpen", ISO: "DEU", Level: "ADM1"},
		prequantize:         1_000_000,
		epsilon:             30 / config.MetersPerDegree,
		algorithm:           topology.VisvalingamWhyatt,
		preventOversimplify: true,
		logger:              nil, // resolved on Run
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.metrics == nil {
		s.metrics = metrics.Default()
	}
	if s.client == nil {
		s.client = geoboundaries.NewClient(geoboundaries.WithMetrics(s.metrics))
	}
	if s.fetcher == nil {
		s.fetcher = source.NewFetcher(source.WithMetrics(s.metrics))
	}
	return s
}

// Run executes the pipeline once. Steps run in order and the first failure
// stops the run.
func (s *Service) Run(ctx context.Context) (*Result, error) {
	if s.logger == nil {
		s.logger = logger.Get()
	}
	res := &Result{RunID: uuid.NewString()}
	log := s.logger.With(logger.String("run_id", res.RunID))

	log.Info(ctx, "starting run",
		logger.String("release", s.query.Release),
		logger.String("iso", s.query.ISO),
		logger.String("adm", s.query.Level),
		logger.Int("prequantize", s.prequantize),
		logger.Float64("epsilon", s.epsilon),
		logger.String("algorithm", string(s.algorithm)),
		logger.Bool("prevent_oversimplify", s.preventOversimplify),
	)
	start := time.Now()

	err := s.stage(ctx, log, metrics.StageMetadata, ErrFetchMetadata, func() error {
		md, err := s.client.Metadata(ctx, s.query)
		if err != nil {
			return err
		}
		res.Metadata = md
		return nil
	})
	if err != nil {
		return nil, err
	}

	err = s.stage(ctx, log, metrics.StageLoad, ErrLoadGeometry, func() error {
		table, err := s.load(ctx, res.Metadata.GeoJSONURL)
		if err != nil {
			return err
		}
		res.Table = table
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Features = len(res.Table.Features)
	res.Stats.InputVertices = res.Table.Vertices()
	s.metrics.SetFeatures(res.Stats.Features)
	s.metrics.SetVertices(metrics.PhaseInput, res.Stats.InputVertices)
	if n, ok := res.Metadata.UnitCount(); ok {
		res.Stats.ExpectedUnits = n
		if n != res.Stats.Features {
			log.Warn(ctx, "feature count differs from admUnitCount",
				logger.Int("features", res.Stats.Features),
				logger.Int("adm_unit_count", n))
		}
	}
	log.Info(ctx, "geometry loaded",
		logger.Int("features", res.Stats.Features),
		logger.Int("rings", res.Table.Rings()),
		logger.Int("vertices", res.Stats.InputVertices))

	err = s.stage(ctx, log, metrics.StageTopology, ErrBuildTopology, func() error {
		topo, err := topology.New(res.Table, topology.WithPrequantize(s.prequantize))
		if err != nil {
			return err
		}
		res.Topology = topo
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Topology = res.Topology.Stats()
	s.metrics.SetArcs(res.Stats.Topology.Arcs, res.Stats.Topology.SharedArcs)
	s.metrics.SetVertices(metrics.PhaseTopology, res.Stats.Topology.Vertices)
	log.Info(ctx, "topology built",
		logger.Int("arcs", res.Stats.Topology.Arcs),
		logger.Int("shared_arcs", res.Stats.Topology.SharedArcs),
		logger.Int("vertices", res.Stats.Topology.Vertices))

	err = s.stage(ctx, log, metrics.StageSimplify, ErrSimplify, func() error {
		simplified, err := topology.Simplify(res.Topology, s.epsilon,
			topology.WithAlgorithm(s.algorithm),
			topology.WithPreventOversimplify(s.preventOversimplify))
		if err != nil {
			return err
		}
		res.Simplified = simplified
		return nil
	})
	if err != nil {
		return nil, err
	}
	res.Stats.Simplified = res.Simplified.Stats()
	res.Stats.Epsilon = s.epsilon
	res.Stats.Algorithm = s.algorithm
	s.metrics.SetVertices(metrics.PhaseSimplified, res.Stats.Simplified.Vertices)

	log.Info(ctx, "run finished",
		logger.Int("vertices_before", res.Stats.Topology.Vertices),
		logger.Int("vertices_after", res.Stats.Simplified.Vertices),
		logger.Float64("kept_ratio", ratio(res.Stats.Simplified.Vertices, res.Stats.Topology.Vertices)),
		logger.Duration("took", time.Since(start)))
	return res, nil
}

// stage runs fn as one pipeline step: it checks the context first, times
// the step and wraps a failure with the step sentinel.
func (s *Service) stage(ctx context.Context, log logger.Logger, name string, sentinel error, fn func() error) error {
	t0 := time.Now()
	err := ctx.Err()
	if err == nil {
		err = fn()
	}
	d := time.Since(t0)
	s.metrics.ObserveStage(name, d, err)
	if err != nil {
		log.Error(ctx, "stage failed", logger.String("stage", name), logger.Error(err))
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	log.Debug(ctx, "stage done", logger.String("stage", name), logger.Duration("took", d))
	return nil
}

func (s *Service) load(ctx context.Context, location string) (*geometry.Table, error) {
	f, err := s.fetcher.Open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return geometry.Decode(f)
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}
