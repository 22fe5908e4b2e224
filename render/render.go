package render

import (
	"errors"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/escpos-printout-server/markup"
	"github.com/nixxel-company-limited/escpos-printout-server/printout"
)

// Result labels of escpos_render_jobs_total
const (
	ResultOK        = "ok"
	ResultEmpty     = "empty"
	ResultSyntax    = "syntax_error"
	ResultAttribute = "invalid_attribute"
	ResultEncoding  = "invalid_encoding"
	ResultFailed    = "failed"
)

// Metrics collects rendering statistics
type Metrics struct {
	jobs     *prometheus.CounterVec
	bytes    prometheus.Counter
	duration prometheus.Histogram
}

// NewMetrics creates the render metrics and registers them on reg when it is not nil
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		jobs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "escpos",
				Subsystem: "render",
				Name:      "jobs_total",
				Help:      "Printout documents rendered, by result",
			},
			[]string{"result"},
		),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "escpos",
			Subsystem: "render",
			Name:      "bytes_total",
			Help:      "Command bytes produced",
		}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "escpos",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "Time spent parsing and encoding one document",
			Buckets:   []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5},
		}),
	}
	if reg != nil {
		reg.MustRegister(m.jobs, m.bytes, m.duration)
	}
	return m
}

// Pipeline parses Printout markup and encodes it with a base set of options
type Pipeline struct {
	encoder *printout.Encoder
	base    printout.Options
	metrics *Metrics
	logger  *zap.Logger
}

// New creates a pipeline. metrics and logger may be nil.
func New(base printout.Options, metrics *Metrics, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	logger = logger.With(zap.String("component", "render"))
	return &Pipeline{
		encoder: printout.NewEncoder(printout.WithLogger(logger)),
		base:    base,
		metrics: metrics,
		logger:  logger,
	}
}

// Options returns the base options of the pipeline
func (p *Pipeline) Options() printout.Options {
	return p.base
}

// Render parses r and encodes it. overrides are layered over the base options.
func (p *Pipeline) Render(r io.Reader, overrides printout.Overrides) ([]byte, error) {
	start := time.Now()
	out, err := p.render(r, overrides)
	p.metrics.duration.Observe(time.Since(start).Seconds())

	result := classify(out, err)
	p.metrics.jobs.WithLabelValues(result).Inc()
	if err != nil {
		p.logger.Warn("Render failed", zap.String("result", result), zap.Error(err))
		return nil, err
	}

	p.metrics.bytes.Add(float64(len(out)))
	p.logger.Debug("Rendered document", zap.Int("bytes", len(out)), zap.Duration("took", time.Since(start)))
	return out, nil
}

func (p *Pipeline) render(r io.Reader, overrides printout.Overrides) ([]byte, error) {
	root, err := markup.Parse(r)
	if err != nil {
		return nil, err
	}
	return p.encoder.EncodeOptions(root, p.base.Apply(overrides))
}

func classify(out []byte, err error) string {
	switch {
	case err == nil && len(out) == 0:
		return ResultEmpty
	case err == nil:
		return ResultOK
	case errors.Is(err, markup.ErrSyntax):
		return ResultSyntax
	case errors.Is(err, printout.ErrInvalidAttribute):
		return ResultAttribute
	case errors.Is(err, printout.ErrInvalidEncoding):
		return ResultEncoding
	default:
		return ResultFailed
	}
}

// IsClientError reports whether err was caused by the submitted document or options
func IsClientError(err error) bool {
	return errors.Is(err, markup.ErrSyntax) ||
		errors.Is(err, printout.ErrInvalidAttribute) ||
		errors.Is(err, printout.ErrInvalidEncoding)
}
