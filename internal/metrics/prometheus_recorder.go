package metrics

import (
	"sync"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
)

// PrometheusRecorder implements Recorder using Prometheus metrics.
type PrometheusRecorder struct {
	once            sync.Once
	roundDuration   *prom.HistogramVec
	chunkDuration   prom.Histogram
	chunkVerdicts   *prom.CounterVec
	compiledItems   *prom.CounterVec
	compilerLaunch  *prom.CounterVec
	outputRelocated prom.Counter
	depFailures     prom.Counter
	stubsResched    prom.Counter
}

// NewPrometheusRecorder constructs and registers Prometheus metrics (idempotent).
func NewPrometheusRecorder(reg *prom.Registry) *PrometheusRecorder {
	if reg == nil {
		reg = prom.NewRegistry()
	}
	pr := &PrometheusRecorder{}
	pr.once.Do(func() {
		pr.roundDuration = prom.NewHistogramVec(prom.HistogramOpts{
			Namespace: "groovybuild",
			Name:      "round_duration_seconds",
			Help:      "Duration of individual compilation rounds by mode",
			Buckets:   prom.DefBuckets,
		}, []string{"mode"})
		pr.chunkDuration = prom.NewHistogram(prom.HistogramOpts{
			Namespace: "groovybuild",
			Name:      "chunk_duration_seconds",
			Help:      "Total time spent building a module chunk",
			Buckets:   prom.DefBuckets,
		})
		pr.chunkVerdicts = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "chunk_verdicts_total",
			Help:      "Chunk build verdict counts",
		}, []string{"verdict"})
		pr.compiledItems = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "compiled_items_total",
			Help:      "Compiler output items reported by round mode",
		}, []string{"mode"})
		pr.compilerLaunch = prom.NewCounterVec(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "compiler_launches_total",
			Help:      "Compiler launches by hosting mode",
		}, []string{"hosting"})
		pr.outputRelocated = prom.NewCounter(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "outputs_relocated_total",
			Help:      "Compiler outputs moved to their owning module output root",
		})
		pr.depFailures = prom.NewCounter(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "dependency_registration_failures_total",
			Help:      "Output items skipped during dependency graph registration",
		})
		pr.stubsResched = prom.NewCounter(prom.CounterOpts{
			Namespace: "groovybuild",
			Name:      "stub_sources_rescheduled_total",
			Help:      "Stubbed sources queued again for the compiling round",
		})
		reg.MustRegister(pr.roundDuration, pr.chunkDuration, pr.chunkVerdicts, pr.compiledItems, pr.compilerLaunch, pr.outputRelocated, pr.depFailures, pr.stubsResched)
	})
	return pr
}

func (p *PrometheusRecorder) ObserveRoundDuration(mode string, d time.Duration) {
	if p == nil || p.roundDuration == nil {
		return
	}
	p.roundDuration.WithLabelValues(mode).Observe(d.Seconds())
}

func (p *PrometheusRecorder) ObserveChunkDuration(d time.Duration) {
	if p == nil || p.chunkDuration == nil {
		return
	}
	p.chunkDuration.Observe(d.Seconds())
}

func (p *PrometheusRecorder) IncChunkVerdict(verdict string) {
	if p == nil || p.chunkVerdicts == nil {
		return
	}
	p.chunkVerdicts.WithLabelValues(verdict).Inc()
}

func (p *PrometheusRecorder) AddCompiledItems(mode string, n int) {
	if p == nil || p.compiledItems == nil || n <= 0 {
		return
	}
	p.compiledItems.WithLabelValues(mode).Add(float64(n))
}

func (p *PrometheusRecorder) IncCompilerLaunch(label LaunchLabel) {
	if p == nil || p.compilerLaunch == nil {
		return
	}
	p.compilerLaunch.WithLabelValues(string(label)).Inc()
}

func (p *PrometheusRecorder) IncOutputRelocated() {
	if p == nil || p.outputRelocated == nil {
		return
	}
	p.outputRelocated.Inc()
}

func (p *PrometheusRecorder) IncDependencyRegistrationFailure() {
	if p == nil || p.depFailures == nil {
		return
	}
	p.depFailures.Inc()
}

func (p *PrometheusRecorder) AddStubsRescheduled(n int) {
	if p == nil || p.stubsResched == nil || n <= 0 {
		return
	}
	p.stubsResched.Add(float64(n))
}
