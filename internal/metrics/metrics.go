// Package metrics exports evolution and fitness evaluation counters in the
// Prometheus format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"evochain/internal/evo"
	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

// Collector implements fitness.Observer and provides a generation hook. It
// owns its registry so several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry

	cacheHits      prometheus.Counter
	cacheMisses    prometheus.Counter
	evaluations    *prometheus.CounterVec
	evalDuration   prometheus.Histogram
	generations    prometheus.Counter
	bestFitness    prometheus.Gauge
	populationSize prometheus.Gauge
}

var _ fitness.Observer = (*Collector)(nil)

func New(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fitness_cache_hits_total",
			Help: "Fitness lookups answered from the cache.",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "fitness_cache_misses_total",
			Help: "Fitness lookups that required a computation.",
		}),
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "fitness_evaluations_total",
			Help: "Completed fitness computations by outcome.",
		}, []string{"outcome"}),
		evalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace, Name: "fitness_evaluation_seconds",
			Help:    "Duration of fitness computations.",
			Buckets: prometheus.ExponentialBuckets(1e-6, 4, 12),
		}),
		generations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "generations_total",
			Help: "Generations created.",
		}),
		bestFitness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "best_fitness",
			Help: "Best calculable fitness of the latest generation.",
		}),
		populationSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "population_size",
			Help: "Members of the latest generation.",
		}),
	}
	c.registry.MustRegister(c.cacheHits, c.cacheMisses, c.evaluations, c.evalDuration,
		c.generations, c.bestFitness, c.populationSize)
	return c
}

func (c *Collector) Registry() *prometheus.Registry { return c.registry }

// Handler serves the collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

func (c *Collector) CacheHit()  { c.cacheHits.Inc() }
func (c *Collector) CacheMiss() { c.cacheMisses.Inc() }

func (c *Collector) Evaluated(elapsed time.Duration, value float64, err error) {
	c.evalDuration.Observe(elapsed.Seconds())
	switch {
	case err != nil:
		c.evaluations.WithLabelValues("error").Inc()
	case fitness.IsCalculable(value):
		c.evaluations.WithLabelValues("calculable").Inc()
	default:
		c.evaluations.WithLabelValues("incalculable").Inc()
	}
}

// GenerationHook records generation count, size and best fitness. Best
// fitness is read through ff, so it hits the cache filled by selection.
func (c *Collector) GenerationHook(ff fitness.Function) evo.GenerationHook {
	return func(ctx context.Context, _ int, p genotype.Population) error {
		c.generations.Inc()
		c.populationSize.Set(float64(len(p)))
		best, err := ff.PopulationMax(ctx, p)
		if err != nil {
			return err
		}
		if fitness.IsCalculable(best) {
			c.bestFitness.Set(best)
		}
		return nil
	}
}
