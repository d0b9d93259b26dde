package metrics

import (
	"sort"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// PromProvider is a Provider backed by github.com/prometheus/client_golang,
// registering CounterVec/GaugeVec/HistogramVec instruments against a
// dedicated *prometheus.Registry rather than the global one. Instruments are
// created on demand by name and reused for the same name, matching
// BasicProvider's contract.
type PromProvider struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]*prometheus.CounterVec
	updowns    map[string]*prometheus.GaugeVec
	histograms map[string]*prometheus.HistogramVec
}

// NewPromProvider constructs a PromProvider registered against its own
// prometheus.Registry (never the global DefaultRegisterer, so multiple
// components may each own a provider without colliding names).
func NewPromProvider() *PromProvider {
	return &PromProvider{
		registry:   prometheus.NewRegistry(),
		counters:   make(map[string]*prometheus.CounterVec),
		updowns:    make(map[string]*prometheus.GaugeVec),
		histograms: make(map[string]*prometheus.HistogramVec),
	}
}

// Registry returns the underlying registry, for wiring into a promhttp
// handler.
func (p *PromProvider) Registry() *prometheus.Registry { return p.registry }

func labelNames(attrs map[string]string) []string {
	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func labelValues(attrs map[string]string, names []string) []string {
	values := make([]string, len(names))
	for i, n := range names {
		values[i] = attrs[n]
	}
	return values
}

func (p *PromProvider) Counter(name string, opts ...InstrumentOption) Counter {
	cfg := applyOptions(opts)
	names := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.counters[name]
	if !ok {
		vec = prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: cfg.Description}, names)
		p.registry.MustRegister(vec)
		p.counters[name] = vec
	}
	p.mu.Unlock()

	return promCounter{vec.WithLabelValues(labelValues(cfg.Attributes, names)...)}
}

func (p *PromProvider) UpDownCounter(name string, opts ...InstrumentOption) UpDownCounter {
	cfg := applyOptions(opts)
	names := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.updowns[name]
	if !ok {
		vec = prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: cfg.Description}, names)
		p.registry.MustRegister(vec)
		p.updowns[name] = vec
	}
	p.mu.Unlock()

	return promUpDownCounter{vec.WithLabelValues(labelValues(cfg.Attributes, names)...)}
}

func (p *PromProvider) Histogram(name string, opts ...InstrumentOption) Histogram {
	cfg := applyOptions(opts)
	names := labelNames(cfg.Attributes)

	p.mu.Lock()
	vec, ok := p.histograms[name]
	if !ok {
		vec = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{Name: name, Help: cfg.Description, Buckets: prometheus.DefBuckets},
			names,
		)
		p.registry.MustRegister(vec)
		p.histograms[name] = vec
	}
	p.mu.Unlock()

	return promHistogram{vec.WithLabelValues(labelValues(cfg.Attributes, names)...)}
}

type promCounter struct{ c prometheus.Counter }

func (p promCounter) Add(n int64) { p.c.Add(float64(n)) }

type promUpDownCounter struct{ g prometheus.Gauge }

func (p promUpDownCounter) Add(n int64) { p.g.Add(float64(n)) }

type promHistogram struct{ h prometheus.Observer }

func (p promHistogram) Record(v float64) { p.h.Observe(v) }
