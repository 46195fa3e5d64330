// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster

import "sort"

// Ks returns, for every cluster id in creation order, the number of active
// clusters immediately after that cluster appeared: singleton leaves
// increment the count by one each (0, 1, 2, ..., NumSingletons), and each
// merge changes it by 1 minus the number of children the merge consumed
// (its two merged nodes plus whatever else it subsumed).
func (d *Dendrogram[L]) Ks() []int {
	ks := make([]int, len(d.nodes))
	for id := 0; id < d.numSingletons; id++ {
		ks[id] = id + 1
	}
	for id := d.numSingletons; id < len(d.nodes); id++ {
		ks[id] = ks[id-1] + 1 - len(d.nodes[id].Children)
	}
	return ks
}

// IncEntry is one step of the incremental clustering trace: at active-count
// K, Added lists the cluster ids that newly became active and Deleted lists
// the ids that stopped being active (the children a merge consumed). The
// first entry always has Deleted == nil: it's where every singleton
// becomes active at once.
type IncEntry struct {
	K       int
	Added   []int
	Deleted []int
}

// IncClusterInfo returns the incremental trace of the active cluster set as
// k decreases from NumSingletons down to the number of final roots: the
// first entry adds every singleton, and each subsequent entry adds one
// merged cluster and deletes its children. Memoized on first call.
func (d *Dendrogram[L]) IncClusterInfo() []IncEntry {
	d.incOnce.Do(func() {
		ks := d.Ks()

		entries := make([]IncEntry, 0, 1+len(d.nodes)-d.numSingletons)

		singletons := make([]int, d.numSingletons)
		for id := range singletons {
			singletons[id] = id
		}
		entries = append(entries, IncEntry{K: d.numSingletons, Added: singletons})

		for id := d.numSingletons; id < len(d.nodes); id++ {
			entries = append(entries, IncEntry{
				K:       ks[id],
				Added:   []int{id},
				Deleted: d.nodes[id].Children,
			})
		}

		d.inc = entries
	})
	return d.inc
}

// ClustersAt returns the set of active cluster ids at level k: the cut of
// the dendrogram with exactly k clusters, for any k in [1, NumSingletons].
// It replays IncClusterInfo, applying each entry's Added/Deleted in order,
// until the first entry whose K is less than k (which is not applied).
func (d *Dendrogram[L]) ClustersAt(k int) []int {
	active := make(map[int]bool)
	for _, e := range d.IncClusterInfo() {
		if e.K < k {
			break
		}
		for _, id := range e.Added {
			active[id] = true
		}
		for _, id := range e.Deleted {
			delete(active, id)
		}
	}

	out := make([]int, 0, len(active))
	for id := range active {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// Leaves returns the singleton ids that are transitive descendants of id
// (id itself if it is already a singleton).
func (d *Dendrogram[L]) Leaves(id int) []int {
	var out []int
	var visit func(id int)
	visit = func(id int) {
		n := &d.nodes[id]
		if len(n.Children) == 0 {
			out = append(out, id)
			return
		}
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(id)
	return out
}
