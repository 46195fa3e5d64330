// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"

	"github.com/kheradmand/anime/feature"
)

// LinearClusterer performs agglomerative hierarchical clustering without a
// spatial index: nearest-neighbor lookups and subsumption checks are plain
// linear scans over the alive clusters. It trades O(n) per merge step for
// O(log n)-ish index maintenance, but needs no Feature-specific bounding
// box semantics and is a useful correctness oracle for Clusterer (see
// TestIndexedAndLinearClusterersAgreeOnRootLabel).
type LinearClusterer[L any] struct {
	f    feature.Feature[L]
	opts Options
}

// NewLinearClusterer returns an unindexed LinearClusterer over label
// domain f.
func NewLinearClusterer[L any](f feature.Feature[L], opts Options) *LinearClusterer[L] {
	return &LinearClusterer[L]{f: f, opts: opts}
}

// Cluster runs the agglomerative merge loop over labels using linear scans
// for nearest-neighbor and subsumption queries, until at most k clusters
// remain (k=1 for the full dendrogram).
func (c *LinearClusterer[L]) Cluster(ctx context.Context, labels []L, k int) (*Dendrogram[L], error) {
	if err := validateLabels(labels); err != nil {
		return nil, err
	}
	if err := validateK(k, len(labels)); err != nil {
		return nil, err
	}

	finder := newLinearFinder[L](c.f)
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
