// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package rtree

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"
)

// parallelRemoveDepth bounds how many tree levels fan their children out
// into goroutines during RemoveSubsetParallel. The R-tree's fanout already
// gives a factor of maxEntries per level, so two levels of concurrency is
// enough to saturate typical worker counts without spawning a goroutine
// per leaf.
const parallelRemoveDepth = 2

// RemoveSubsetParallel is RemoveSubset with the top parallelRemoveDepth
// levels of children processed concurrently via an errgroup: siblings
// write into disjoint slice slots, and only the shared removed/orphans
// accumulators need the mutex.
func (idx *Index[L, V]) RemoveSubsetParallel(ctx context.Context, query L) ([]V, error) {
	if idx.root == nil {
		return nil, nil
	}

	var mu sync.Mutex
	var removed []V
	var orphans []entry[L, V]

	newRoot, err := idx.removeSubsetParallelRec(ctx, idx.root, query, &mu, &removed, &orphans, 0)
	if err != nil {
		return nil, err
	}
	idx.root = newRoot

	for _, o := range orphans {
		idx.Insert(o.Label.Label, o.Value)
	}
	idx.collapseRoot()

	return removed, nil
}

func (idx *Index[L, V]) removeSubsetParallelRec(ctx context.Context, n *node[L, V], query L, mu *sync.Mutex, removed *[]V, orphans *[]entry[L, V], depth int) (*node[L, V], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if idx.feature.Subset(n.BoundingBox.Label, query) {
		var local []V
		idx.collectAll(n, &local)
		mu.Lock()
		*removed = append(*removed, local...)
		mu.Unlock()
		idx.releaseSubtree(n)
		return nil, nil
	}
	if _, ok := idx.feature.Meet(n.BoundingBox.Label, query); !ok {
		return n, nil
	}

	if n.IsLeaf {
		var localRemoved []V
		kept := n.Objects[:0]
		for _, o := range n.Objects {
			if idx.feature.Subset(o.Label.Label, query) {
				localRemoved = append(localRemoved, o.Value)
			} else {
				kept = append(kept, o)
			}
		}
		n.Objects = kept
		if len(localRemoved) > 0 {
			mu.Lock()
			*removed = append(*removed, localRemoved...)
			mu.Unlock()
		}

		if len(n.Objects) == 0 {
			idx.pool.Put(n)
			return nil, nil
		}
		if len(n.Objects) < idx.minEntries {
			mu.Lock()
			*orphans = append(*orphans, n.Objects...)
			mu.Unlock()
			idx.pool.Put(n)
			return nil, nil
		}
		n.BoundingBox = idx.computeBoundingBox(n)
		return n, nil
	}

	newChildren := make([]*node[L, V], len(n.Children))
	if depth < parallelRemoveDepth {
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range n.Children {
			i, c := i, c
			g.Go(func() error {
				nc, err := idx.removeSubsetParallelRec(gctx, c, query, mu, removed, orphans, depth+1)
				if err != nil {
					return err
				}
				newChildren[i] = nc
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i, c := range n.Children {
			nc, err := idx.removeSubsetParallelRec(ctx, c, query, mu, removed, orphans, depth+1)
			if err != nil {
				return nil, err
			}
			newChildren[i] = nc
		}
	}

	kept := n.Children[:0]
	for _, nc := range newChildren {
		if nc != nil {
			nc.Parent = n
			kept = append(kept, nc)
		}
	}
	n.Children = kept

	if len(n.Children) == 0 {
		idx.pool.Put(n)
		return nil, nil
	}
	if len(n.Children) < idx.minEntries {
		var local []entry[L, V]
		idx.collectOrphanEntries(n, &local)
		mu.Lock()
		*orphans = append(*orphans, local...)
		mu.Unlock()
		idx.releaseSubtree(n)
		return nil, nil
	}
	n.BoundingBox = idx.computeBoundingBox(n)
	return n, nil
}
