// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import "github.com/kheradmand/anime/feature"

// candidate is one proposed merge: the two (possibly already-merged) nodes
// a and b, the join-gain distance between them at the time the candidate
// was pushed, and the cost their join would have. Candidates are
// invalidated lazily: by the time one is popped, a or b may already have a
// parent, in which case it's stale and simply discarded (cheaper than
// eagerly removing stale entries from the heap on every merge).
type candidate[L any] struct {
	a, b       int
	dist       feature.Cost
	joinedCost feature.Cost
}

type candidateHeap[L any] []candidate[L]

func (h candidateHeap[L]) Len() int { return len(h) }

// Less orders by distance first, then by smaller joined cost: the tie-break
// rule that must hold everywhere a merge candidate is ranked (clustering,
// kNN, node split).
func (h candidateHeap[L]) Less(i, j int) bool {
	if !feature.CostEqual(h[i].dist, h[j].dist) {
		return h[i].dist < h[j].dist
	}
	return h[i].joinedCost < h[j].joinedCost
}
func (h candidateHeap[L]) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *candidateHeap[L]) Push(x any)         { *h = append(*h, x.(candidate[L])) }
func (h *candidateHeap[L]) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}
