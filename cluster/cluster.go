// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package cluster implements best-first agglomerative hierarchical
// clustering over a feature.Feature label domain: starting from one
// singleton cluster per input label, repeatedly merge the closest pair
// under the join-gain distance (feature.Distance) until k clusters remain
// (a single root for k=1), recording the resulting dendrogram as a parent/children
// forest over all clusters ever created (singletons and merges alike).
//
// Two clusterers share this dendrogram representation: Clusterer finds
// nearest neighbors via an rtree.Index, and LinearClusterer finds them by
// linear scan; both are exact over the stored candidate distances, and
// both absorb any existing cluster subsumed by a new merge (a cluster
// whose label is already a subset of the merge's join) as an extra child,
// so clusters that bring no new information never survive as siblings.
package cluster

import (
	"fmt"
	"sync"

	"github.com/kheradmand/anime/feature"
)

// node is one cluster in the dendrogram: its label, the label's cost, and
// its place in the merge forest. Parent is -1 until the node merges into
// something else; Children lists the nodes that merged to directly produce
// this one (empty for input singletons).
type node[L any] struct {
	Label    L
	Cost     feature.Cost
	Parent   int
	Children []int
	alive    bool
}

// Dendrogram is the shared, read-only result of a completed clustering
// run: every cluster ever created (by id, singletons first in input order,
// then merges in the order they happened), its label, and its place in the
// merge forest.
type Dendrogram[L any] struct {
	f             feature.Feature[L]
	nodes         []node[L]
	roots         []int
	numSingletons int

	incOnce sync.Once
	inc     []IncEntry
}

// Len returns the total number of clusters (singletons plus merges).
func (d *Dendrogram[L]) Len() int { return len(d.nodes) }

// Label returns the label of cluster id.
func (d *Dendrogram[L]) Label(id int) L { return d.nodes[id].Label }

// Cost returns the cost of cluster id's label.
func (d *Dendrogram[L]) Cost(id int) feature.Cost { return d.nodes[id].Cost }

// Parent returns the id of the cluster that id merged into, or -1 if id is
// a root (the run didn't converge to one cluster, or id is the final
// root).
func (d *Dendrogram[L]) Parent(id int) int { return d.nodes[id].Parent }

// Children returns the ids of the clusters that directly merged (or were
// subsumed) to produce id.
func (d *Dendrogram[L]) Children(id int) []int { return d.nodes[id].Children }

// Roots returns the ids with no parent: normally exactly one (the cluster
// containing every input label), but more than one if clustering was
// stopped early or the inputs formed disconnected lattices.
func (d *Dendrogram[L]) Roots() []int { return d.roots }

// NumSingletons returns the number of input labels the run started from.
// Singleton ids are always [0, NumSingletons).
func (d *Dendrogram[L]) NumSingletons() int { return d.numSingletons }

func validateLabels[L any](labels []L) error {
	if len(labels) == 0 {
		return fmt.Errorf("cluster: no labels to cluster")
	}
	return nil
}

// validateK checks that k, the target number of clusters to stop merging
// at, is in the valid range [1, numLabels].
func validateK(k, numLabels int) error {
	if k < 1 || k > numLabels {
		return fmt.Errorf("cluster: k=%d out of range [1, %d]", k, numLabels)
	}
	return nil
}
