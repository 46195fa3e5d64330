// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"
	"runtime"

	"go.uber.org/zap"

	"github.com/kheradmand/anime/feature"
)

// Options configures a clustering run.
type Options struct {
	// Logger receives structured progress/debug events. Defaults to a
	// no-op logger.
	Logger *zap.Logger
	// IndexMaxEntries is the rtree node fanout used by the indexed
	// Clusterer (the minimum per node is half of it). Defaults to 5 if
	// zero, giving nodes of 2 to 5 entries; rtree.New raises values below 4
	// to 4.
	IndexMaxEntries int
	// ParallelSeed seeds the initial priority queue with concurrent
	// nearest-neighbor lookups instead of one at a time.
	ParallelSeed bool
	// ParallelRemove uses the index's parallel bulk-removal path for
	// subsumption checks after each merge. Only affects Clusterer; ignored
	// by LinearClusterer, which has no index to parallelize over.
	ParallelRemove bool
	// SeedWorkers bounds goroutines used by ParallelSeed. Defaults to
	// runtime.GOMAXPROCS(0) if zero.
	SeedWorkers int
}

func (o Options) logger() *zap.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return zap.NewNop()
}

func (o Options) indexMaxEntries() int {
	if o.IndexMaxEntries > 0 {
		return o.IndexMaxEntries
	}
	return 5
}

func (o Options) seedWorkers() int {
	if o.SeedWorkers > 0 {
		return o.SeedWorkers
	}
	return runtime.GOMAXPROCS(0)
}

// Clusterer performs agglomerative hierarchical clustering backed by an
// rtree.Index, the indexed counterpart to LinearClusterer.
type Clusterer[L any] struct {
	f    feature.Feature[L]
	opts Options
}

// NewClusterer returns an indexed Clusterer over label domain f.
func NewClusterer[L any](f feature.Feature[L], opts Options) *Clusterer[L] {
	return &Clusterer[L]{f: f, opts: opts}
}

// Cluster runs the agglomerative merge loop over labels (one singleton
// cluster per entry) until at most k clusters remain (k=1 for the full
// dendrogram) and returns the resulting forest. If opts.ParallelSeed is
// set, the initial nearest-neighbor seeding runs concurrently across
// opts.SeedWorkers goroutines; the merge loop itself always runs on the
// calling goroutine (the priority queue is not safe for concurrent
// mutation).
func (c *Clusterer[L]) Cluster(ctx context.Context, labels []L, k int) (*Dendrogram[L], error) {
	if err := validateLabels(labels); err != nil {
		return nil, err
	}
	if err := validateK(k, len(labels)); err != nil {
		return nil, err
	}

	finder := newIndexedFinder[L](c.f, c.opts.indexMaxEntries(), c.opts.ParallelRemove, c.opts.logger())
	eng := newEngine[L](c.f, labels, finder, c.opts.logger())

	if c.opts.ParallelSeed {
		if err := eng.seedParallel(ctx, c.opts.seedWorkers()); err != nil {
			return nil, err
		}
	} else {
		eng.seed()
	}

	return eng.run(len(labels), k), nil
}
