// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rtree

import (
	"sync"
	"sync/atomic"
)

// nodePool is a type-safe wrapper around sync.Pool, specialized for
// managing *node[L,V] instances.
//
// It efficiently reuses node memory and tracks statistics on allocations
// and active use for debugging and performance tuning, the same shape as a
// single-pool wrapper for a one-node-type tree (an R-tree has no leaf/path
// compressed/stem split the way a multibit trie does, so one pool serves
// both leaves and internal nodes).
type nodePool[L any, V any] struct {
	sync.Pool

	totalAllocated atomic.Int64 // total number of *node[L,V] ever allocated
	currentLive    atomic.Int64 // number of nodes currently checked out
}

// newNodePool creates and returns a new pool for *node[L,V] instances.
func newNodePool[L any, V any]() *nodePool[L, V] {
	p := &nodePool[L, V]{}
	p.New = func() any {
		p.totalAllocated.Add(1)
		return new(node[L, V])
	}
	return p
}

// Get retrieves a *node[L,V] from the pool, or creates a new one if needed.
//
// If the pool is nil, a new node is returned without tracking.
func (p *nodePool[L, V]) Get() *node[L, V] {
	if p == nil {
		return new(node[L, V])
	}
	p.currentLive.Add(1)
	return p.Pool.Get().(*node[L, V])
}

// Put returns a *node[L,V] back to the pool for potential reuse. The node
// is reset before storage. If the pool is nil, the node is discarded.
func (p *nodePool[L, V]) Put(n *node[L, V]) {
	if p == nil {
		return
	}
	p.currentLive.Add(-1)
	n.reset()
	p.Pool.Put(n)
}

// Stats returns the number of currently live (checked-out) nodes and the
// total number of *node[L,V] objects ever allocated by this pool.
func (p *nodePool[L, V]) Stats() (live int64, total int64) {
	if p == nil {
		return 0, 0
	}
	return p.currentLive.Load(), p.totalAllocated.Load()
}
