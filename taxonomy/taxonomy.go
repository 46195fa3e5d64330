// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package taxonomy loads and serves the DAG of named, costed labels that
// backs the DAG taxonomy feature domain (see package feature's HLabel and
// DAGFeature). A Store owns the join/meet/predecessor/successor
// memoization caches so that every HLabel sharing a Store sees consistent,
// computed-once answers.
package taxonomy

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/bits-and-blooms/bitset"
)

// Cost mirrors feature.Cost without importing package feature, to avoid a
// dependency cycle (feature imports taxonomy for the DAG label domain).
type Cost = float64

type labelInfo struct {
	parents  []int
	children []int
	cost     Cost
}

// Store is a loaded, finalized taxonomy: a DAG of named labels with a
// declared cost and explicit parent links, plus memoized predecessor,
// successor, join, and meet queries.
//
// A Store is safe for concurrent read-only use (Join, Meet, Predecessors,
// Successors, Cost, NameToID, IDToName) once Finalize has returned; it
// must not be mutated concurrently with reads.
type Store struct {
	info     []labelInfo
	idToName []string
	nameToID map[string]int
	topID    int
	frozen   bool

	// predecessors/successors/join/meet are memoized lazily behind a
	// single shared sync.Map per cache: a race on first computation of a
	// pure, deterministic value is harmless, so no per-key locking is
	// needed.
	predecessors sync.Map // int -> *bitset.BitSet
	successors   sync.Map // int -> *bitset.BitSet
	joinCache    sync.Map // [2]int -> int
	meetCache    sync.Map // [2]int -> int
}

// New returns an empty, unfrozen Store ready for AddLabel calls.
func New() *Store {
	return &Store{
		nameToID: make(map[string]int),
		topID:    -1,
	}
}

// AddLabel registers a new label with the given cost and parent names,
// which must already have been added (the taxonomy file format guarantees
// a topological order: "the entry for the parents of each label comes
// before the entry for that label").
func (s *Store) AddLabel(name string, cost Cost, parentNames []string) error {
	if s.frozen {
		return fmt.Errorf("taxonomy: cannot add label %q: store is finalized", name)
	}
	if _, exists := s.nameToID[name]; exists {
		return fmt.Errorf("taxonomy: duplicate label %q", name)
	}

	parents := make([]int, 0, len(parentNames))
	for _, p := range parentNames {
		id, ok := s.nameToID[p]
		if !ok {
			return fmt.Errorf("taxonomy: label %q references unknown parent %q", name, p)
		}
		parents = append(parents, id)
	}

	id := len(s.info)
	s.nameToID[name] = id
	s.idToName = append(s.idToName, name)
	s.info = append(s.info, labelInfo{parents: parents, cost: cost})
	return nil
}

// Finalize derives child lists from the recorded parent links, asserts
// exactly one label has no parents (the taxonomy root), and freezes the
// store against further mutation.
func (s *Store) Finalize() error {
	if s.frozen {
		return nil
	}

	root := -1
	for id, info := range s.info {
		if len(info.parents) == 0 {
			if root != -1 {
				return fmt.Errorf("taxonomy: multiple root labels: %q and %q", s.idToName[root], s.idToName[id])
			}
			root = id
		}
		for _, p := range info.parents {
			s.info[p].children = append(s.info[p].children, id)
		}
	}

	if root == -1 {
		return fmt.Errorf("taxonomy: no root label found (every label has at least one parent)")
	}

	s.topID = root
	s.frozen = true
	return nil
}

// NameToID translates a label name to its id.
func (s *Store) NameToID(name string) (int, bool) {
	id, ok := s.nameToID[name]
	return id, ok
}

// IDToName translates a label id to its name.
func (s *Store) IDToName(id int) string {
	return s.idToName[id]
}

// Cost returns the declared cost of label id.
func (s *Store) Cost(id int) Cost {
	return s.info[id].cost
}

// Top returns the id of the unique parentless (root) label.
func (s *Store) Top() int {
	return s.topID
}

// Predecessors returns the bitset of id's ancestors, including id itself
// (self ∪ ancestors).
func (s *Store) Predecessors(id int) *bitset.BitSet {
	if cached, ok := s.predecessors.Load(id); ok {
		return cached.(*bitset.BitSet)
	}
	acc := bitset.New(uint(len(s.info)))
	s.addAncestors(id, acc)
	s.predecessors.Store(id, acc)
	return acc
}

func (s *Store) addAncestors(id int, acc *bitset.BitSet) {
	acc.Set(uint(id))
	for _, p := range s.info[id].parents {
		if !acc.Test(uint(p)) {
			s.addAncestors(p, acc)
		}
	}
}

// Successors returns the bitset of id's descendants, including id itself
// (self ∪ descendants).
func (s *Store) Successors(id int) *bitset.BitSet {
	if cached, ok := s.successors.Load(id); ok {
		return cached.(*bitset.BitSet)
	}
	acc := bitset.New(uint(len(s.info)))
	s.addDescendants(id, acc)
	s.successors.Store(id, acc)
	return acc
}

func (s *Store) addDescendants(id int, acc *bitset.BitSet) {
	acc.Set(uint(id))
	for _, c := range s.info[id].children {
		if !acc.Test(uint(c)) {
			s.addDescendants(c, acc)
		}
	}
}

// Join returns the minimum-cost common ancestor of a and b. Among
// ancestors within Tolerance of the minimum cost, the one that is a
// descendant of the current best is preferred, so a zero-cost label and
// its zero-cost parent don't produce an ambiguous join.
func (s *Store) Join(a, b int) int {
	key := [2]int{a, b}
	if cached, ok := s.joinCache.Load(key); ok {
		return cached.(int)
	}

	pa, pb := s.Predecessors(a), s.Predecessors(b)
	inter := pa.Intersection(pb)

	best := -1
	for l, ok := inter.NextSet(0); ok; l, ok = inter.NextSet(l + 1) {
		label := int(l)
		switch {
		case best == -1 || s.Cost(label) < s.Cost(best):
			best = label
		case math.Abs(s.Cost(best)-s.Cost(label)) < tolerance:
			if s.Predecessors(label).Test(uint(best)) {
				best = label
			}
		}
	}
	if best == -1 {
		panic(fmt.Sprintf("taxonomy: join(%d, %d) has no common ancestor; taxonomy is not a single-rooted DAG", a, b))
	}

	s.joinCache.Store(key, best)
	return best
}

// Meet returns the maximum-cost common descendant of a and b, or ok=false
// if they share no descendant.
func (s *Store) Meet(a, b int) (int, bool) {
	key := [2]int{a, b}
	if cached, ok := s.meetCache.Load(key); ok {
		id := cached.(int)
		return id, id != -1
	}

	sa, sb := s.Successors(a), s.Successors(b)
	inter := sa.Intersection(sb)

	best := -1
	for l, ok := inter.NextSet(0); ok; l, ok = inter.NextSet(l + 1) {
		label := int(l)
		switch {
		case best == -1 || s.Cost(label) > s.Cost(best):
			best = label
		case math.Abs(s.Cost(best)-s.Cost(label)) < tolerance:
			if s.Successors(label).Test(uint(best)) {
				best = label
			}
		}
	}

	s.meetCache.Store(key, best)
	return best, best != -1
}

const tolerance = 1e-10

// Load parses a taxonomy file, one label per line:
//
//	<name> <cost> <parent_name>*
//
// Parents must already be defined (the file must list ancestors before
// descendants). Load does not Finalize the result; callers must call
// Finalize before using Join/Meet/Predecessors/Successors.
func Load(r io.Reader) (*Store, error) {
	store := New()
	scanner := bufio.NewScanner(r)

	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 2 {
			return nil, fmt.Errorf("taxonomy: line %d: expected \"<name> <cost> <parent>*\", got %q", line, text)
		}

		name := fields[0]
		cost, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("taxonomy: line %d: invalid cost %q: %w", line, fields[1], err)
		}

		if err := store.AddLabel(name, cost, fields[2:]); err != nil {
			return nil, fmt.Errorf("taxonomy: line %d: %w", line, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("taxonomy: %w", err)
	}

	return store, nil
}
