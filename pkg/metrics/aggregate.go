package metrics

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/slidectl/slidectl/pkg/cache"
)

// DefaultWorkers is the default size of the per-slide measurement pool.
const DefaultWorkers = 4

// metricsCacheTTL bounds how long cached slide metrics stay valid.
const metricsCacheTTL = 24 * time.Hour

// Aggregator computes scorecards for slide sets.
//
// Slides are independent and read-only during measurement, so the
// aggregator fans out across a fixed-size worker pool. Results keep the
// input order regardless of completion order.
//
// When a cache is configured, metrics for a slide whose geometry,
// thresholds, and tolerance are unchanged are reused instead of recomputed.
// This is an optimization only; cached and fresh results are identical
// because Compute is pure.
type Aggregator struct {
	Thresholds Thresholds
	Epsilon    float64 // overlap tolerance; ≤ 0 selects the default
	Workers    int     // pool size; ≤ 0 selects DefaultWorkers
	Cache      cache.Cache
	Logger     *log.Logger
}

// NewAggregator creates an aggregator with the given thresholds.
// Cache may be nil to disable metric reuse.
func NewAggregator(th Thresholds, c cache.Cache, logger *log.Logger) *Aggregator {
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Aggregator{
		Thresholds: th,
		Workers:    DefaultWorkers,
		Cache:      c,
		Logger:     logger,
	}
}

// Scorecard measures every slide concurrently and assembles the iteration
// scorecard. The first measurement error cancels outstanding work and is
// returned as-is (InvalidGeometry aborts the whole measurement).
func (a *Aggregator) Scorecard(ctx context.Context, slides []SlideGeometry, iteration int) (*Scorecard, error) {
	card := &Scorecard{
		Version:    ScorecardVersion,
		Thresholds: a.Thresholds,
		Iteration:  iteration,
		Slides:     make([]SlideMetrics, len(slides)),
	}

	workers := a.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, geom := range slides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, hit, err := a.measure(gctx, geom)
			if err != nil {
				return err
			}
			if hit {
				a.Logger.Debug("metrics cache hit", "slide", geom.SlideID)
			}
			card.Slides[i] = m
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return card, nil
}

// measure computes metrics for one slide, consulting the cache first.
func (a *Aggregator) measure(ctx context.Context, geom SlideGeometry) (SlideMetrics, bool, error) {
	key := a.cacheKey(geom)

	if data, hit, err := a.Cache.Get(ctx, key); err == nil && hit {
		var m SlideMetrics
		if err := json.Unmarshal(data, &m); err == nil {
			return m, true, nil
		}
		// Corrupt entry: drop it and recompute.
		_ = a.Cache.Delete(ctx, key)
	}

	m, err := Compute(geom, a.Thresholds, a.Epsilon)
	if err != nil {
		return SlideMetrics{}, false, err
	}

	if data, err := json.Marshal(m); err == nil {
		_ = a.Cache.Set(ctx, key, data, metricsCacheTTL)
	}
	return m, false, nil
}

// cacheKey derives the cache key from everything the metrics depend on:
// the slide geometry, the thresholds, and the overlap tolerance.
func (a *Aggregator) cacheKey(geom SlideGeometry) string {
	return cache.Key("metrics", geom, a.Thresholds, a.Epsilon)
}
