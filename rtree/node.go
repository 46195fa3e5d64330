// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package rtree implements an R-tree-style spatial index over
// feature.Feature label domains: subset containment queries, bulk subset
// removal (single-threaded and parallel), and approximate k-nearest-neighbor
// search under the join-gain distance (feature.Distance).
//
// Unlike a geometric R-tree, "bounding box" here means the join-semilattice
// least upper bound of everything stored beneath a node: a node's
// BoundingBox.Label is guaranteed to be a superset (feature.Feature.Subset)
// of every label in its subtree.
package rtree

import "github.com/kheradmand/anime/feature"

// entry is one leaf payload: a label/cost pair together with the value it
// was inserted with.
type entry[L any, V any] struct {
	Label feature.CostLabel[L]
	Value V
}

// node is the R-tree's single, unified node type: leaves hold Objects,
// internal nodes hold Children. A node always carries a BoundingBox, the
// join of everything stored in its subtree (or, for a fresh leaf, the join
// of its own Objects).
type node[L any, V any] struct {
	IsLeaf      bool
	BoundingBox feature.CostLabel[L]
	Parent      *node[L, V]
	Children    []*node[L, V]
	Objects     []entry[L, V]
}

// reset clears a node's state but retains the backing array capacity of
// Children/Objects, so a pooled node can be reused without reallocating.
func (n *node[L, V]) reset() {
	n.IsLeaf = false
	var zeroCL feature.CostLabel[L]
	n.BoundingBox = zeroCL
	n.Parent = nil
	n.Children = n.Children[:0]
	n.Objects = n.Objects[:0]
}
