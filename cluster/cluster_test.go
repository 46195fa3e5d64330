// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package cluster_test

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"

	"github.com/kheradmand/anime/cluster"
	"github.com/kheradmand/anime/feature"
	"github.com/kheradmand/anime/taxonomy"
)

func randRanges(n int, rng *rand.Rand) []feature.Range[uint32] {
	out := make([]feature.Range[uint32], n)
	for i := range out {
		b := rng.Uint32N(100_000)
		e := b + rng.Uint32N(50)
		out[i] = feature.Range[uint32]{Begin: b, End: e}
	}
	return out
}

func TestClusterConvergesToSingleRoot(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(50, rand.New(rand.NewPCG(1, 1)))

	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{})
	d, err := c.Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	if got := len(d.Roots()); got != 1 {
		t.Fatalf("expected exactly one root after full clustering, got %d", got)
	}
	if d.NumSingletons() != len(labels) {
		t.Fatalf("NumSingletons = %d, want %d", d.NumSingletons(), len(labels))
	}
}

func TestMergeLabelEqualsJoinOfChildren(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(30, rand.New(rand.NewPCG(2, 2)))

	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{})
	d, err := c.Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	for id := d.NumSingletons(); id < d.Len(); id++ {
		children := d.Children(id)
		if len(children) == 0 {
			continue
		}
		joined := d.Label(children[0])
		for _, childID := range children[1:] {
			joined = f.Join(joined, d.Label(childID))
		}
		if joined != d.Label(id) {
			t.Errorf("cluster %d's label isn't the join of its children: got %v, want %v", id, d.Label(id), joined)
		}
	}
}

func TestClusterCostIsNonDecreasingUpTheTree(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(60, rand.New(rand.NewPCG(3, 3)))

	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{})
	d, err := c.Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	for id := 0; id < d.Len(); id++ {
		parent := d.Parent(id)
		if parent == -1 {
			continue
		}
		if d.Cost(parent) < d.Cost(id)-feature.Tolerance {
			t.Errorf("cluster %d (cost %v) has lower cost than its child %d (cost %v)", parent, d.Cost(parent), id, d.Cost(id))
		}
	}
}

func TestIndexedAndLinearClusterersAgreeOnRootLabel(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(40, rand.New(rand.NewPCG(4, 4)))

	indexed, err := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("indexed Cluster: %v", err)
	}
	linear, err := cluster.NewLinearClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("linear Cluster: %v", err)
	}

	indexedRoot := indexed.Label(indexed.Roots()[0])
	linearRoot := linear.Label(linear.Roots()[0])
	if indexedRoot != linearRoot {
		t.Errorf("indexed root label %v != linear root label %v", indexedRoot, linearRoot)
	}
}

// TestClustersAtCountMatchesK uses evenly-spaced, non-overlapping
// single-point ranges so every merge joins exactly two alive clusters (no
// subsumption ever fires), guaranteeing the active-cluster count decreases
// by exactly one per merge. That lets ClustersAt(k) be checked against its
// defining property for every k in [1, NumSingletons].
func TestClustersAtCountMatchesK(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	const n = 16
	labels := make([]feature.Range[uint32], n)
	for i := range labels {
		labels[i] = feature.Range[uint32]{Begin: uint32(i * 10), End: uint32(i * 10)}
	}

	d, err := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	for k := 1; k <= n; k++ {
		cut := d.ClustersAt(k)
		if len(cut) != k {
			t.Fatalf("ClustersAt(%d) returned %d clusters, want %d", k, len(cut), k)
		}

		seen := make(map[int]bool)
		for _, id := range cut {
			for _, leaf := range d.Leaves(id) {
				if seen[leaf] {
					t.Fatalf("ClustersAt(%d): leaf %d covered by more than one cluster in the cut", k, leaf)
				}
				seen[leaf] = true
			}
		}
		if len(seen) != n {
			t.Fatalf("ClustersAt(%d) covers %d singletons, want %d", k, len(seen), n)
		}
	}
}

func TestKsStartsAtNumSingletonsAndEndsAtRootCount(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(20, rand.New(rand.NewPCG(6, 6)))

	d, err := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	ks := d.Ks()
	if len(ks) != d.Len() {
		t.Fatalf("Ks() has %d entries, want %d (one per cluster)", len(ks), d.Len())
	}
	if ks[0] != 1 {
		t.Errorf("Ks()[0] = %d, want 1 (first singleton brings the active count to 1)", ks[0])
	}
	if got, want := ks[d.NumSingletons()-1], d.NumSingletons(); got != want {
		t.Errorf("Ks() after the last singleton = %d, want %d", got, want)
	}
	if got, want := ks[len(ks)-1], len(d.Roots()); got != want {
		t.Errorf("Ks() after the last cluster = %d, want %d (the number of final roots)", got, want)
	}
}

// TestRangeSingletonMerge is the single-component range seed scenario:
// two disjoint ranges have exactly one possible merge, and the resulting
// cluster's label and cost must be the join of the two singletons.
func TestRangeSingletonMerge(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := []feature.Range[uint32]{
		{Begin: 10, End: 20},
		{Begin: 30, End: 40},
	}

	d, err := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	if d.Len() != 3 {
		t.Fatalf("Len() = %d, want 3 (2 singletons + 1 merge)", d.Len())
	}
	if d.Parent(0) != 2 || d.Parent(1) != 2 {
		t.Fatalf("both singletons should have parent 2, got Parent(0)=%d Parent(1)=%d", d.Parent(0), d.Parent(1))
	}
	wantLabel := feature.Range[uint32]{Begin: 10, End: 40}
	if d.Label(2) != wantLabel {
		t.Errorf("merged label = %v, want %v", d.Label(2), wantLabel)
	}
	if want := f.Cost(wantLabel); !feature.CostEqual(d.Cost(2), want) {
		t.Errorf("merged cost = %v, want %v", d.Cost(2), want)
	}
	if roots := d.Roots(); len(roots) != 1 || roots[0] != 2 {
		t.Errorf("Roots() = %v, want [2]", roots)
	}
}

// TestIPv4PrefixesFirstMergeIsExact checks that the two /32 addresses
// differing only in their last bit merge first, at distance 0 (their join
// is exactly a /31, an exact, zero-waste cover), ahead of either pairing
// with the third, unrelated /32, and that the final root is a tight cover
// of all three addresses.
func TestIPv4PrefixesFirstMergeIsExact(t *testing.T) {
	f := feature.IPv4PrefixFeature{}
	labels := []feature.IPv4Prefix{
		{Address: 10<<24 | 0<<16 | 0<<8 | 0, Len: 32}, // 10.0.0.0/32
		{Address: 10<<24 | 0<<16 | 0<<8 | 1, Len: 32}, // 10.0.0.1/32
		{Address: 10<<24 | 0<<16 | 1<<8 | 0, Len: 32}, // 10.0.1.0/32
	}

	d, err := cluster.NewClusterer[feature.IPv4Prefix](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if d.Len() != 5 {
		t.Fatalf("Len() = %d, want 5 (3 singletons + 2 merges)", d.Len())
	}

	firstMerge := 3
	if d.Parent(0) != firstMerge || d.Parent(1) != firstMerge {
		t.Fatalf("the two adjacent /32s should merge first, got Parent(0)=%d Parent(1)=%d", d.Parent(0), d.Parent(1))
	}
	wantFirst := feature.IPv4Prefix{Address: 10 << 24, Len: 31}
	if d.Label(firstMerge) != wantFirst {
		t.Errorf("first merge label = %v, want %v", d.Label(firstMerge), wantFirst)
	}
	dist := feature.Distance(f.Cost(labels[0]), f.Cost(labels[1]), d.Cost(firstMerge))
	if !feature.CostEqual(dist, 0) {
		t.Errorf("first merge distance = %v, want 0 (an exact cover)", dist)
	}

	root := d.Roots()[0]
	if root != 4 {
		t.Fatalf("expected cluster 4 to be the final root, got %d", root)
	}
	wantRoot := feature.IPv4Prefix{Address: 10 << 24, Len: 23}
	if d.Label(root) != wantRoot {
		t.Errorf("root label = %v, want %v (a tight cover of all three addresses)", d.Label(root), wantRoot)
	}
}

const dagTaxonomy = "any 100\nuser 10 any\nserver 10 any\nu1 5 user\nu2 5 user\ns1 5 server\n"

// TestDAGTaxonomyMerges checks a two-level taxonomy merge: the two user
// flows merge first (their join, "user", exactly covers their combined
// cost, so the distance is 0), then that cluster merges with the lone
// server flow into the taxonomy root.
func TestDAGTaxonomyMerges(t *testing.T) {
	store, err := taxonomy.Load(strings.NewReader(dagTaxonomy))
	if err != nil {
		t.Fatalf("taxonomy.Load: %v", err)
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}

	u1, _ := store.NameToID("u1")
	u2, _ := store.NameToID("u2")
	s1, _ := store.NameToID("s1")
	userID, _ := store.NameToID("user")
	anyID, _ := store.NameToID("any")

	f := feature.DAGFeature{Store: store}
	labels := []feature.HLabel{
		{ID: u1, Store: store},
		{ID: u2, Store: store},
		{ID: s1, Store: store},
	}

	d, err := cluster.NewClusterer[feature.HLabel](f, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if d.Len() != 5 {
		t.Fatalf("Len() = %d, want 5 (3 singletons + 2 merges)", d.Len())
	}

	if d.Parent(0) != 3 || d.Parent(1) != 3 {
		t.Fatalf("u1, u2 should merge first into cluster 3, got Parent(0)=%d Parent(1)=%d", d.Parent(0), d.Parent(1))
	}
	if got := d.Label(3).ID; got != userID {
		t.Errorf("first merge label id = %d, want user (%d)", got, userID)
	}
	if dist := feature.Distance(f.Cost(labels[0]), f.Cost(labels[1]), d.Cost(3)); !feature.CostEqual(dist, 0) {
		t.Errorf("first merge distance = %v, want 0", dist)
	}

	root := d.Roots()[0]
	if root != 4 {
		t.Fatalf("expected cluster 4 to be the final root, got %d", root)
	}
	if got := d.Label(root).ID; got != anyID {
		t.Errorf("root label id = %d, want any (%d)", got, anyID)
	}
	wantChildren := []int{3, 2}
	if gc := d.Children(root); len(gc) != 2 || !((gc[0] == wantChildren[0] && gc[1] == wantChildren[1]) || (gc[0] == wantChildren[1] && gc[1] == wantChildren[0])) {
		t.Errorf("root children = %v, want %v (order-independent)", gc, wantChildren)
	}
}

// TestTupleSubsumption checks that a singleton whose label is already
// covered by a fresh merge's label is absorbed as an extra child in the
// same merge step, rather than surviving as an independent cluster. Two
// duplicate singletons are the cheapest possible merge (their join costs
// exactly what either already costs, for a distance of -cost, the global
// minimum), so they are guaranteed to merge before anything else; their
// join (being identical to either of them) already contains the third,
// strictly smaller singleton.
func TestTupleSubsumption(t *testing.T) {
	rf := feature.RangeFeature[uint32]{}
	tf := feature.TupleFeature{Components: []feature.AnyFeature{feature.Lift[feature.Range[uint32]](rf)}}

	dup := feature.Range[uint32]{Begin: 0, End: 10}
	inner := feature.Range[uint32]{Begin: 2, End: 5}
	labels := []feature.Tuple{
		{dup},
		{dup},
		{inner},
	}

	d, err := cluster.NewClusterer[feature.Tuple](tf, cluster.Options{}).Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}

	if len(d.Roots()) != 1 {
		t.Fatalf("expected one root, got %d", len(d.Roots()))
	}
	root := d.Roots()[0]
	children := d.Children(root)
	if len(children) != 3 {
		t.Fatalf("root should subsume all three singletons in one merge, got children %v", children)
	}
	for _, want := range []int{0, 1, 2} {
		found := false
		for _, c := range children {
			if c == want {
				found = true
			}
		}
		if !found {
			t.Errorf("root children %v missing singleton %d", children, want)
		}
	}
	if got := d.Label(root)[0]; got != dup {
		t.Errorf("root label = %v, want %v", got, dup)
	}
}

func TestParallelSeedProducesSingleRoot(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(80, rand.New(rand.NewPCG(7, 7)))

	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{ParallelSeed: true, SeedWorkers: 4})
	d, err := c.Cluster(context.Background(), labels, 1)
	if err != nil {
		t.Fatalf("Cluster with ParallelSeed: %v", err)
	}
	if len(d.Roots()) != 1 {
		t.Fatalf("expected one root, got %d", len(d.Roots()))
	}
}

// TestClusterStopsAtTargetK uses evenly-spaced, non-overlapping
// single-point ranges so every merge reduces the alive count by exactly
// one (no subsumption), making the stopping point at k exact rather than
// merely "at or below k".
func TestClusterStopsAtTargetK(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	const n = 30
	labels := make([]feature.Range[uint32], n)
	for i := range labels {
		labels[i] = feature.Range[uint32]{Begin: uint32(i * 10), End: uint32(i * 10)}
	}

	d, err := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{}).Cluster(context.Background(), labels, 5)
	if err != nil {
		t.Fatalf("Cluster: %v", err)
	}
	if got := len(d.Roots()); got != 5 {
		t.Fatalf("expected exactly 5 roots when k=5, got %d", got)
	}
}

func TestClusterRejectsEmptyInput(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{})
	if _, err := c.Cluster(context.Background(), nil, 1); err == nil {
		t.Fatalf("expected error for empty label list")
	}
}

func TestClusterRejectsOutOfRangeK(t *testing.T) {
	f := feature.RangeFeature[uint32]{}
	labels := randRanges(5, rand.New(rand.NewPCG(9, 9)))
	c := cluster.NewClusterer[feature.Range[uint32]](f, cluster.Options{})

	if _, err := c.Cluster(context.Background(), labels, 0); err == nil {
		t.Fatalf("expected error for k=0")
	}
	if _, err := c.Cluster(context.Background(), labels, len(labels)+1); err == nil {
		t.Fatalf("expected error for k > len(labels)")
	}
}
