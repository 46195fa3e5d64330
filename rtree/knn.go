// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rtree

import (
	"container/heap"

	"github.com/kheradmand/anime/feature"
)

// nnEntry is one item in the best-first kNN priority queue: either a
// subtree (to be expanded further) or a leaf object (a candidate result),
// ordered by its join-gain distance to the query.
type nnEntry[L any, V any] struct {
	dist       feature.Cost
	joinedCost feature.Cost
	isObject   bool
	node       *node[L, V]
	value      V
}

type nnQueue[L any, V any] []*nnEntry[L, V]

func (q nnQueue[L, V]) Len() int { return len(q) }

// Less orders by distance first, then by smaller joined cost, same
// tie-break rule as the clustering merge queue and node split.
func (q nnQueue[L, V]) Less(i, j int) bool {
	if !feature.CostEqual(q[i].dist, q[j].dist) {
		return q[i].dist < q[j].dist
	}
	return q[i].joinedCost < q[j].joinedCost
}
func (q nnQueue[L, V]) Swap(i, j int) { q[i], q[j] = q[j], q[i] }
func (q *nnQueue[L, V]) Push(x any)         { *q = append(*q, x.(*nnEntry[L, V])) }
func (q *nnQueue[L, V]) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	*q = old[:n-1]
	return item
}

// GetKNNApprox returns up to k values whose labels are closest to query
// under the join-gain distance (feature.Distance), using best-first
// traversal: a node is only expanded once every node closer to the query
// has already been expanded or exhausted, so the first k popped leaf
// objects are the approximate (tie-tolerant) k nearest.
func (idx *Index[L, V]) GetKNNApprox(query L, k int) []V {
	if idx.root == nil || k <= 0 {
		return nil
	}

	queryCost := idx.feature.Cost(query)
	q := &nnQueue[L, V]{}
	heap.Init(q)
	heap.Push(q, idx.nodeEntry(idx.root, query, queryCost))

	var results []V
	for q.Len() > 0 && len(results) < k {
		e := heap.Pop(q).(*nnEntry[L, V])
		if e.isObject {
			results = append(results, e.value)
			continue
		}
		n := e.node
		if n.IsLeaf {
			for _, o := range n.Objects {
				joined := idx.feature.CJoin(o.Label.Label, query)
				heap.Push(q, &nnEntry[L, V]{
					dist:       feature.Distance(o.Label.Cost, queryCost, joined.Cost),
					joinedCost: joined.Cost,
					isObject:   true,
					value:      o.Value,
				})
			}
		} else {
			for _, c := range n.Children {
				heap.Push(q, idx.nodeEntry(c, query, queryCost))
			}
		}
	}

	return results
}

// KNNResult is one result of GetKNNApproxCosted: a stored value together
// with its join-gain distance to the query label and the cost the join
// would have, the same tie-break signal used everywhere else a merge
// candidate is ranked.
type KNNResult[V any] struct {
	Value      V
	Dist       feature.Cost
	JoinedCost feature.Cost
}

// GetKNNApproxCosted is GetKNNApprox but also returns each result's
// distance to query, letting callers (e.g. package cluster) reuse it as a
// merge candidate's priority without recomputing the join.
func (idx *Index[L, V]) GetKNNApproxCosted(query L, k int) []KNNResult[V] {
	if idx.root == nil || k <= 0 {
		return nil
	}

	queryCost := idx.feature.Cost(query)
	q := &nnQueue[L, V]{}
	heap.Init(q)
	heap.Push(q, idx.nodeEntry(idx.root, query, queryCost))

	var results []KNNResult[V]
	for q.Len() > 0 && len(results) < k {
		e := heap.Pop(q).(*nnEntry[L, V])
		if e.isObject {
			results = append(results, KNNResult[V]{Value: e.value, Dist: e.dist, JoinedCost: e.joinedCost})
			continue
		}
		n := e.node
		if n.IsLeaf {
			for _, o := range n.Objects {
				joined := idx.feature.CJoin(o.Label.Label, query)
				heap.Push(q, &nnEntry[L, V]{
					dist:       feature.Distance(o.Label.Cost, queryCost, joined.Cost),
					joinedCost: joined.Cost,
					isObject:   true,
					value:      o.Value,
				})
			}
		} else {
			for _, c := range n.Children {
				heap.Push(q, idx.nodeEntry(c, query, queryCost))
			}
		}
	}

	return results
}

func (idx *Index[L, V]) nodeEntry(n *node[L, V], query L, queryCost feature.Cost) *nnEntry[L, V] {
	joined := idx.feature.CJoin(n.BoundingBox.Label, query)
	return &nnEntry[L, V]{
		dist:       feature.Distance(n.BoundingBox.Cost, queryCost, joined.Cost),
		joinedCost: joined.Cost,
		node:       n,
	}
}
