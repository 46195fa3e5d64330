// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rtree

import "github.com/kheradmand/anime/feature"

// Index is an R-tree-style spatial index of (L, V) pairs over a single
// feature.Feature[L] domain: insertion with least-enlargement descent and
// quadratic-split overflow handling, subset containment queries, bulk
// subset removal, and approximate k-nearest-neighbor search.
//
// An Index is not safe for concurrent use except where a method says
// otherwise (RemoveSubsetParallel parallelizes internally but still
// requires exclusive access to the Index for its duration).
type Index[L any, V any] struct {
	feature    feature.Feature[L]
	root       *node[L, V]
	maxEntries int
	minEntries int
	pool       *nodePool[L, V]
}

// New returns an empty Index over f, splitting nodes once they exceed
// maxEntries children/objects. maxEntries is clamped to at least 4 (a
// smaller fanout makes quadratic split degenerate).
func New[L any, V any](f feature.Feature[L], maxEntries int) *Index[L, V] {
	if maxEntries < 4 {
		maxEntries = 4
	}
	return &Index[L, V]{
		feature:    f,
		maxEntries: maxEntries,
		minEntries: maxEntries / 2,
		pool:       newNodePool[L, V](),
	}
}

// Empty reports whether the index holds no entries.
func (idx *Index[L, V]) Empty() bool {
	return idx.root == nil
}

// Stats returns the node pool's live and total allocation counts, for
// debugging and tuning.
func (idx *Index[L, V]) Stats() (live int64, total int64) {
	return idx.pool.Stats()
}

// Insert adds (label, value) to the index.
func (idx *Index[L, V]) Insert(label L, value V) {
	cl := feature.CostLabel[L]{Cost: idx.feature.Cost(label), Label: label}

	if idx.root == nil {
		leaf := idx.pool.Get()
		leaf.IsLeaf = true
		leaf.Objects = append(leaf.Objects, entry[L, V]{Label: cl, Value: value})
		leaf.BoundingBox = cl
		idx.root = leaf
		return
	}

	leaf := idx.chooseLeaf(cl)
	leaf.Objects = append(leaf.Objects, entry[L, V]{Label: cl, Value: value})
	idx.adjustTree(leaf)
}

// chooseLeaf descends from the root picking, at each level, the child
// whose bounding box enlarges least to accommodate cl; ties favor the
// child with the smaller existing cost.
func (idx *Index[L, V]) chooseLeaf(cl feature.CostLabel[L]) *node[L, V] {
	n := idx.root
	for !n.IsLeaf {
		best := 0
		bestEnlargement := idx.enlargement(n.Children[0].BoundingBox, cl)
		bestCost := n.Children[0].BoundingBox.Cost
		for i := 1; i < len(n.Children); i++ {
			enlargement := idx.enlargement(n.Children[i].BoundingBox, cl)
			cost := n.Children[i].BoundingBox.Cost
			if !feature.CostEqual(enlargement, bestEnlargement) {
				if enlargement < bestEnlargement {
					best, bestEnlargement, bestCost = i, enlargement, cost
				}
				continue
			}
			if cost < bestCost {
				best, bestEnlargement, bestCost = i, enlargement, cost
			}
		}
		n = n.Children[best]
	}
	return n
}

func (idx *Index[L, V]) enlargement(bbox, cl feature.CostLabel[L]) feature.Cost {
	joined := idx.feature.CJoin(bbox.Label, cl.Label)
	return joined.Cost - bbox.Cost
}

// adjustTree recomputes bounding boxes from n up to the root, splitting
// any node that now exceeds maxEntries and propagating the split upward
// (growing a new root if the split reaches the top).
func (idx *Index[L, V]) adjustTree(n *node[L, V]) {
	for n != nil {
		n.BoundingBox = idx.computeBoundingBox(n)

		if !idx.overflowing(n) {
			n = n.Parent
			continue
		}

		n1, n2 := idx.splitNode(n)

		if n.Parent == nil {
			newRoot := idx.pool.Get()
			newRoot.Children = append(newRoot.Children, n1, n2)
			n1.Parent, n2.Parent = newRoot, newRoot
			newRoot.BoundingBox = idx.computeBoundingBox(newRoot)
			idx.root = newRoot
			return
		}

		p := n.Parent
		idx.replaceChild(p, n, n1, n2)
		n1.Parent, n2.Parent = p, p
		n = p
	}
}

func (idx *Index[L, V]) overflowing(n *node[L, V]) bool {
	if n.IsLeaf {
		return len(n.Objects) > idx.maxEntries
	}
	return len(n.Children) > idx.maxEntries
}

// replaceChild drops parent's reference to old (already split, already
// pooled) and appends its two replacements.
func (idx *Index[L, V]) replaceChild(parent, old, n1, n2 *node[L, V]) {
	kept := parent.Children[:0]
	for _, c := range parent.Children {
		if c != old {
			kept = append(kept, c)
		}
	}
	parent.Children = append(kept, n1, n2)
}

// computeBoundingBox folds a node's children's (or leaf's objects') labels
// together with CJoin to produce the node's new bounding box.
func (idx *Index[L, V]) computeBoundingBox(n *node[L, V]) feature.CostLabel[L] {
	if n.IsLeaf {
		cl := n.Objects[0].Label
		for _, o := range n.Objects[1:] {
			cl = idx.feature.CJoin(cl.Label, o.Label.Label)
		}
		return cl
	}
	cl := n.Children[0].BoundingBox
	for _, c := range n.Children[1:] {
		cl = idx.feature.CJoin(cl.Label, c.BoundingBox.Label)
	}
	return cl
}

// collectAll appends every value stored in n's subtree to out.
func (idx *Index[L, V]) collectAll(n *node[L, V], out *[]V) {
	if n.IsLeaf {
		for _, o := range n.Objects {
			*out = append(*out, o.Value)
		}
		return
	}
	for _, c := range n.Children {
		idx.collectAll(c, out)
	}
}

// releaseSubtree returns every node of n's subtree (n included) to the
// pool. It must only be called once the subtree's values have already been
// collected or discarded.
func (idx *Index[L, V]) releaseSubtree(n *node[L, V]) {
	if !n.IsLeaf {
		for _, c := range n.Children {
			idx.releaseSubtree(c)
		}
	}
	idx.pool.Put(n)
}

// AllValues returns every value stored in the index, in no particular
// order.
func (idx *Index[L, V]) AllValues() []V {
	if idx.root == nil {
		return nil
	}
	var out []V
	idx.collectAll(idx.root, &out)
	return out
}
