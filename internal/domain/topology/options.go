package topology

// Option configures New.
type Option func(*builder)

// WithPrequantize quantizes input coordinates onto a q x q grid spanning
// the table bounds before arcs are extracted. 0 disables quantization.
func WithPrequantize(q int) Option {
	return func(b *builder) {
		if q >= 0 {
			b.quantization = q
		}
	}
}

// WithName sets the object collection name.
func WithName(name string) Option {
	return func(b *builder) {
		if name != "" {
			b.name = name
		}
	}
}

// SimplifyOption configures Simplify.
type SimplifyOption func(*simplifier)

// WithAlgorithm selects the simplification algorithm.
func WithAlgorithm(a Algorithm) SimplifyOption {
	return func(s *simplifier) {
		s.algorithm = a
	}
}

// WithPreventOversimplify keeps at least three distinct vertices in every
// ring that had them.
func WithPreventOversimplify(enabled bool) SimplifyOption {
	return func(s *simplifier) {
		s.preventOversimplify = enabled
	}
}
