package metrics

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"evochain/internal/fitness"
	"evochain/internal/genotype"
)

func TestCollectorCountsEvaluations(t *testing.T) {
	c := New("evochain")
	ff, err := fitness.New(fitness.Pure(func(g *genotype.Genotype) float64 {
		v, _ := genotype.ValueAt[int](g, 0)
		if v < 0 {
			return fitness.Incalculable
		}
		return float64(v)
	}), fitness.WithObserver(c))
	require.NoError(t, err)

	p := genotype.Population{}
	for _, v := range []int{1, 1, 2, -1} {
		g, err := genotype.FromValues(v)
		require.NoError(t, err)
		p = append(p, g)
	}
	_, err = ff.EvaluatePopulation(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheHits))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.cacheMisses))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.evaluations.WithLabelValues("calculable")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("incalculable")))

	require.NoError(t, c.GenerationHook(ff)(context.Background(), 0, p))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.generations))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.bestFitness))
	assert.Equal(t, 4.0, testutil.ToFloat64(c.populationSize))
}

func TestCollectorCountsErrors(t *testing.T) {
	c := New("evochain")
	c.Evaluated(time.Millisecond, fitness.Incalculable, errors.New("boom"))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.evaluations.WithLabelValues("error")))
}

func TestHandlerServesRegistry(t *testing.T) {
	c := New("evochain")
	c.CacheHit()
	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, 200, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "evochain_fitness_cache_hits_total 1"))
}
