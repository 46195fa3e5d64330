// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import (
	"context"

	"go.uber.org/zap"

	"github.com/kheradmand/anime/feature"
	"github.com/kheradmand/anime/rtree"
)

// nearestNeighborFinder abstracts "what is alive cluster id's closest
// other alive cluster" so the merge loop in engine.go works identically
// for the rtree-backed Clusterer and the linear-scan LinearClusterer.
type nearestNeighborFinder[L any] interface {
	Insert(id int, label L)
	Remove(id int, label L)
	// Nearest returns the closest alive cluster to (id, label) other than
	// id itself, its join-gain distance, and the cost the join would have
	// (the tie-break signal used when two candidates have equal distance).
	// ok is false if id is the only alive cluster left.
	Nearest(id int, label L) (other int, dist feature.Cost, joinedCost feature.Cost, ok bool)
	// RemoveSubsumed removes and returns the ids of every currently alive
	// cluster whose label is a subset of newLabel: clusters a fresh merge
	// already covers and that therefore bring no further information.
	RemoveSubsumed(newLabel L) []int
}

// indexedFinder answers nearest-neighbor queries from an rtree.Index. A kNN
// query against an index that already contains (label, id) will usually
// return id itself first, at distance -Cost(label), so Nearest asks for 2
// results and
// skips whichever one matches id.
type indexedFinder[L any] struct {
	f              feature.Feature[L]
	idx            *rtree.Index[L, int]
	parallelRemove bool
	log            *zap.Logger
}

func newIndexedFinder[L any](f feature.Feature[L], maxEntries int, parallelRemove bool, log *zap.Logger) *indexedFinder[L] {
	return &indexedFinder[L]{f: f, idx: rtree.New[L, int](f, maxEntries), parallelRemove: parallelRemove, log: log}
}

func (fn *indexedFinder[L]) Insert(id int, label L) {
	fn.idx.Insert(label, id)
}

func (fn *indexedFinder[L]) Remove(id int, label L) {
	fn.idx.RemoveSubset(label)
}

func (fn *indexedFinder[L]) Nearest(id int, label L) (int, feature.Cost, feature.Cost, bool) {
	results := fn.idx.GetKNNApproxCosted(label, 2)
	for _, r := range results {
		if r.Value != id {
			return r.Value, r.Dist, r.JoinedCost, true
		}
	}
	return 0, 0, 0, false
}

func (fn *indexedFinder[L]) RemoveSubsumed(newLabel L) []int {
	if !fn.parallelRemove {
		return fn.idx.RemoveSubset(newLabel)
	}
	removed, err := fn.idx.RemoveSubsetParallel(context.Background(), newLabel)
	if err != nil {
		fn.log.Warn("parallel subsumption removal failed, falling back to sequential", zap.Error(err))
		return fn.idx.RemoveSubset(newLabel)
	}
	return removed
}

// linearFinder answers nearest-neighbor queries by scanning every alive
// cluster, the fallback used by LinearClusterer.
type linearFinder[L any] struct {
	f     feature.Feature[L]
	alive map[int]L
}

func newLinearFinder[L any](f feature.Feature[L]) *linearFinder[L] {
	return &linearFinder[L]{f: f, alive: make(map[int]L)}
}

func (fn *linearFinder[L]) Insert(id int, label L) {
	fn.alive[id] = label
}

func (fn *linearFinder[L]) Remove(id int, label L) {
	delete(fn.alive, id)
}

func (fn *linearFinder[L]) Nearest(id int, label L) (int, feature.Cost, feature.Cost, bool) {
	best := -1
	var bestDist, bestJoined feature.Cost
	cost := fn.f.Cost(label)
	for otherID, otherLabel := range fn.alive {
		if otherID == id {
			continue
		}
		joined := fn.f.CJoin(label, otherLabel)
		dist := feature.Distance(cost, fn.f.Cost(otherLabel), joined.Cost)
		if best == -1 || dist < bestDist || (feature.CostEqual(dist, bestDist) && joined.Cost < bestJoined) {
			best, bestDist, bestJoined = otherID, dist, joined.Cost
		}
	}
	if best == -1 {
		return 0, 0, 0, false
	}
	return best, bestDist, bestJoined, true
}

func (fn *linearFinder[L]) RemoveSubsumed(newLabel L) []int {
	var removed []int
	for id, label := range fn.alive {
		if fn.f.Subset(label, newLabel) {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(fn.alive, id)
	}
	return removed
}
