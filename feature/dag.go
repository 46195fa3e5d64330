// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package feature

import "github.com/kheradmand/anime/taxonomy"

// HLabel is a label in a DAG taxonomy: a handle (ID) into a shared
// *taxonomy.Store that owns the DAG structure and memoization caches.
// Two HLabels are only comparable if they share the same Store.
type HLabel struct {
	ID    int
	Store *taxonomy.Store
}

func (l HLabel) String() string {
	return l.Store.IDToName(l.ID)
}

// DAGFeature implements Feature[HLabel] over a single, fixed taxonomy
// store. Join/meet/cost/predecessor/successor computation and memoization
// are delegated to the Store (package taxonomy); DAGFeature itself is
// stateless beyond that one reference.
type DAGFeature struct {
	Store *taxonomy.Store
}

var _ Feature[HLabel] = DAGFeature{}

func (f DAGFeature) label(id int) HLabel {
	return HLabel{ID: id, Store: f.Store}
}

func (f DAGFeature) Join(a, b HLabel) HLabel {
	return f.label(f.Store.Join(a.ID, b.ID))
}

func (f DAGFeature) Meet(a, b HLabel) (HLabel, bool) {
	id, ok := f.Store.Meet(a.ID, b.ID)
	if !ok {
		return HLabel{}, false
	}
	return f.label(id), true
}

func (f DAGFeature) Cost(a HLabel) Cost {
	return f.Store.Cost(a.ID)
}

func (f DAGFeature) Top() HLabel {
	return f.label(f.Store.Top())
}

func (f DAGFeature) CJoin(a, b HLabel) CostLabel[HLabel] {
	return DefaultCJoin[HLabel](f, a, b)
}

func (f DAGFeature) Subset(a, b HLabel) bool {
	return f.Store.Join(a.ID, b.ID) == b.ID
}
