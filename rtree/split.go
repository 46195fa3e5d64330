// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rtree

import (
	"math"

	"github.com/kheradmand/anime/feature"
)

// splitNode divides an overflowing node into two new nodes using a
// quadratic-cost seed pick followed by linear group assignment. n itself
// is returned to the pool; callers must replace references to n with the
// two results.
func (idx *Index[L, V]) splitNode(n *node[L, V]) (*node[L, V], *node[L, V]) {
	if n.IsLeaf {
		items := make([]feature.CostLabel[L], len(n.Objects))
		for i, o := range n.Objects {
			items[i] = o.Label
		}
		groupA, groupB := idx.quadraticSplit(items)

		n1, n2 := idx.pool.Get(), idx.pool.Get()
		n1.IsLeaf, n2.IsLeaf = true, true
		for _, i := range groupA {
			n1.Objects = append(n1.Objects, n.Objects[i])
		}
		for _, i := range groupB {
			n2.Objects = append(n2.Objects, n.Objects[i])
		}
		n1.BoundingBox = idx.computeBoundingBox(n1)
		n2.BoundingBox = idx.computeBoundingBox(n2)
		idx.pool.Put(n)
		return n1, n2
	}

	items := make([]feature.CostLabel[L], len(n.Children))
	for i, c := range n.Children {
		items[i] = c.BoundingBox
	}
	groupA, groupB := idx.quadraticSplit(items)

	n1, n2 := idx.pool.Get(), idx.pool.Get()
	for _, i := range groupA {
		c := n.Children[i]
		c.Parent = n1
		n1.Children = append(n1.Children, c)
	}
	for _, i := range groupB {
		c := n.Children[i]
		c.Parent = n2
		n2.Children = append(n2.Children, c)
	}
	n1.BoundingBox = idx.computeBoundingBox(n1)
	n2.BoundingBox = idx.computeBoundingBox(n2)
	idx.pool.Put(n)
	return n1, n2
}

// quadraticSplit partitions items (leaf objects or child bounding boxes)
// into two index groups. Seeds are the pair whose join has the highest
// cost; remaining items are assigned one at a time to whichever
// group enlarges least, forcing the rest into whichever group is short of
// minEntries once the other is safely above it.
func (idx *Index[L, V]) quadraticSplit(items []feature.CostLabel[L]) (groupA, groupB []int) {
	n := len(items)
	seedI, seedJ := pickSeeds(idx.feature, items)

	assigned := make([]bool, n)
	assigned[seedI], assigned[seedJ] = true, true
	groupA, groupB = []int{seedI}, []int{seedJ}
	bboxA, bboxB := items[seedI], items[seedJ]

	remaining := n - 2
	for remaining > 0 {
		if len(groupA)+remaining <= idx.minEntries {
			for k := 0; k < n; k++ {
				if !assigned[k] {
					groupA = append(groupA, k)
					assigned[k] = true
				}
			}
			break
		}
		if len(groupB)+remaining <= idx.minEntries {
			for k := 0; k < n; k++ {
				if !assigned[k] {
					groupB = append(groupB, k)
					assigned[k] = true
				}
			}
			break
		}

		k, enlA, enlB := pickNext(idx.feature, items, assigned, bboxA, bboxB)
		if preferGroupA(enlA, enlB, bboxA.Cost, bboxB.Cost, len(groupA), len(groupB)) {
			groupA = append(groupA, k)
			bboxA = idx.feature.CJoin(bboxA.Label, items[k].Label)
		} else {
			groupB = append(groupB, k)
			bboxB = idx.feature.CJoin(bboxB.Label, items[k].Label)
		}
		assigned[k] = true
		remaining--
	}

	return groupA, groupB
}

// pickSeeds chooses the pair of items whose join has the maximum cost, the
// quadratic-split seed heuristic generalized from bounding-box area to
// lattice cost.
func pickSeeds[L any](f feature.Feature[L], items []feature.CostLabel[L]) (int, int) {
	bestI, bestJ := 0, 1
	bestD := math.Inf(-1)
	for i := 0; i < len(items); i++ {
		for j := i + 1; j < len(items); j++ {
			d := f.CJoin(items[i].Label, items[j].Label).Cost
			if d > bestD {
				bestD, bestI, bestJ = d, i, j
			}
		}
	}
	return bestI, bestJ
}

// pickNext chooses the unassigned item with the largest difference in
// enlargement cost between the two candidate groups: the most decisive
// item to place next.
func pickNext[L any](f feature.Feature[L], items []feature.CostLabel[L], assigned []bool, bboxA, bboxB feature.CostLabel[L]) (k int, enlA, enlB feature.Cost) {
	best := -1
	var bestDiff, bestEnlA, bestEnlB feature.Cost
	for i, assignedI := range assigned {
		if assignedI {
			continue
		}
		joinA := f.CJoin(bboxA.Label, items[i].Label)
		joinB := f.CJoin(bboxB.Label, items[i].Label)
		a := joinA.Cost - bboxA.Cost
		b := joinB.Cost - bboxB.Cost
		diff := math.Abs(a - b)
		if best == -1 || diff > bestDiff {
			best, bestDiff, bestEnlA, bestEnlB = i, diff, a, b
		}
	}
	return best, bestEnlA, bestEnlB
}

// preferGroupA applies the split tie-break order: least enlargement first,
// then least resulting cost, then smallest current group size (to keep the
// two halves roughly balanced).
func preferGroupA(enlA, enlB, costA, costB feature.Cost, sizeA, sizeB int) bool {
	if !feature.CostEqual(enlA, enlB) {
		return enlA < enlB
	}
	if !feature.CostEqual(costA, costB) {
		return costA < costB
	}
	return sizeA < sizeB
}
