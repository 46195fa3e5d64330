// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import (
	"container/heap"
	"context"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kheradmand/anime/feature"
)

// engine runs the best-first merge loop shared by Clusterer and
// LinearClusterer: seed a priority queue with each singleton's nearest
// neighbor, then repeatedly pop the globally closest still-valid pair,
// merge it, absorb whatever existing clusters the merge subsumes, and
// reseed the result, until k clusters remain (one root for k=1).
type engine[L any] struct {
	f      feature.Feature[L]
	nodes  []node[L]
	finder nearestNeighborFinder[L]
	pq     candidateHeap[L]
	log    *zap.Logger
}

func newEngine[L any](f feature.Feature[L], labels []L, finder nearestNeighborFinder[L], log *zap.Logger) *engine[L] {
	if log == nil {
		log = zap.NewNop()
	}
	nodes := make([]node[L], len(labels))
	for i, l := range labels {
		nodes[i] = node[L]{Label: l, Cost: f.Cost(l), Parent: -1, alive: true}
		finder.Insert(i, l)
	}
	return &engine[L]{f: f, nodes: nodes, finder: finder, log: log}
}

// seed pushes one nearest-neighbor candidate per singleton onto the queue,
// sequentially.
func (e *engine[L]) seed() {
	for id := range e.nodes {
		e.pushNearest(id)
	}
}

// seedParallel does the same nearest-neighbor lookups concurrently via an
// errgroup before pushing the results onto the (single-threaded) heap,
// splitting concurrent distance computation from serialized queue
// mutation.
func (e *engine[L]) seedParallel(ctx context.Context, workers int) error {
	type found struct {
		id         int
		other      int
		dist       feature.Cost
		joinedCost feature.Cost
		ok         bool
	}
	results := make([]found, len(e.nodes))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for id := range e.nodes {
		id := id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			other, dist, joinedCost, ok := e.finder.Nearest(id, e.nodes[id].Label)
			results[id] = found{id: id, other: other, dist: dist, joinedCost: joinedCost, ok: ok}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for _, r := range results {
		if r.ok {
			heap.Push(&e.pq, candidate[L]{a: r.id, b: r.other, dist: r.dist, joinedCost: r.joinedCost})
		}
	}
	return nil
}

func (e *engine[L]) pushNearest(id int) {
	other, dist, joinedCost, ok := e.finder.Nearest(id, e.nodes[id].Label)
	if ok {
		heap.Push(&e.pq, candidate[L]{a: id, b: other, dist: dist, joinedCost: joinedCost})
	}
}

// run drains the priority queue, merging pairs until at most k alive
// clusters remain (or a single root, if k <= 1), and returns the finished
// dendrogram.
func (e *engine[L]) run(numSingletons, k int) *Dendrogram[L] {
	heap.Init(&e.pq)

	if k < 1 {
		k = 1
	}
	alive := numSingletons
	for alive > k && e.pq.Len() > 0 {
		c := heap.Pop(&e.pq).(candidate[L])
		if !e.nodes[c.a].alive || !e.nodes[c.b].alive {
			continue // stale candidate: one side already merged elsewhere
		}

		newID, killed := e.merge(c.a, c.b)
		alive -= killed
		if alive > k {
			e.pushNearest(newID)
		}
	}

	var roots []int
	for id, n := range e.nodes {
		if n.alive {
			roots = append(roots, id)
		}
	}

	return &Dendrogram[L]{f: e.f, nodes: e.nodes, roots: roots, numSingletons: numSingletons}
}

// merge joins a and b into a new cluster, absorbs any other alive cluster
// the join subsumes, and registers the new cluster with the finder. It
// returns the new cluster's id and the net number of alive clusters the
// merge removed (a and b, plus any subsumed clusters, minus the one new
// cluster created).
func (e *engine[L]) merge(a, b int) (int, int) {
	aLabel, bLabel := e.nodes[a].Label, e.nodes[b].Label
	cl := e.f.CJoin(aLabel, bLabel)

	newID := len(e.nodes)
	e.nodes = append(e.nodes, node[L]{Label: cl.Label, Cost: cl.Cost, Parent: -1, Children: []int{a, b}, alive: true})

	e.nodes[a].Parent, e.nodes[a].alive = newID, false
	e.nodes[b].Parent, e.nodes[b].alive = newID, false

	killed := 1 // a and b disappear, the new cluster appears: net -1

	// a and b are subsets of their own join, so RemoveSubsumed takes them out
	// of the finder together with every other cluster the join covers.
	subsumed := e.finder.RemoveSubsumed(cl.Label)
	if len(subsumed) > 0 {
		children := e.nodes[newID].Children
		for _, id := range subsumed {
			if id == a || id == b || !e.nodes[id].alive {
				continue
			}
			e.nodes[id].Parent, e.nodes[id].alive = newID, false
			children = append(children, id)
			killed++
		}
		e.nodes[newID].Children = children
		if killed > 1 {
			e.log.Debug("merge subsumed additional clusters", zap.Int("new", newID), zap.Int("count", killed-1))
		}
	}

	e.finder.Insert(newID, cl.Label)
	return newID, killed
}
