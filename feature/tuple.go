// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package feature

import (
	"fmt"
	"strings"
)

// AnyFeature is a type-erased Feature, used as a tuple component: Go
// generics have no variadic type-list support, so TupleFeature composes
// over a slice of AnyFeature instead; Lift adapts any concrete Feature[L]
// into this form.
type AnyFeature interface {
	Join(a, b any) any
	Meet(a, b any) (any, bool)
	Subset(a, b any) bool
	Cost(a any) Cost
	Top() any
}

type liftedFeature[L any] struct {
	f Feature[L]
}

// Lift adapts a concrete Feature[L] into the type-erased AnyFeature form
// so it can be used as one component of a Tuple.
func Lift[L any](f Feature[L]) AnyFeature {
	return liftedFeature[L]{f: f}
}

func (l liftedFeature[L]) Join(a, b any) any {
	return l.f.Join(a.(L), b.(L))
}

func (l liftedFeature[L]) Meet(a, b any) (any, bool) {
	m, ok := l.f.Meet(a.(L), b.(L))
	if !ok {
		return nil, false
	}
	return m, true
}

func (l liftedFeature[L]) Subset(a, b any) bool {
	return l.f.Subset(a.(L), b.(L))
}

func (l liftedFeature[L]) Cost(a any) Cost {
	return l.f.Cost(a.(L))
}

func (l liftedFeature[L]) Top() any {
	return l.f.Top()
}

// Tuple is an n-ary tuple label: one component per component feature of
// the owning TupleFeature, in the same order.
type Tuple []any

func (t Tuple) String() string {
	parts := make([]string, len(t))
	for i, v := range t {
		parts[i] = fmt.Sprint(v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

// TupleFeature lifts n component features into Feature[Tuple] by
// componentwise join/meet/subset and product cost.
type TupleFeature struct {
	Components []AnyFeature
}

var _ Feature[Tuple] = TupleFeature{}

func (t TupleFeature) Join(a, b Tuple) Tuple {
	out := make(Tuple, len(t.Components))
	for i, f := range t.Components {
		out[i] = f.Join(a[i], b[i])
	}
	return out
}

func (t TupleFeature) Meet(a, b Tuple) (Tuple, bool) {
	out := make(Tuple, len(t.Components))
	for i, f := range t.Components {
		m, ok := f.Meet(a[i], b[i])
		if !ok {
			return nil, false
		}
		out[i] = m
	}
	return out, true
}

func (t TupleFeature) Cost(a Tuple) Cost {
	cost := Cost(1)
	for i, f := range t.Components {
		cost *= f.Cost(a[i])
	}
	return cost
}

func (t TupleFeature) Top() Tuple {
	out := make(Tuple, len(t.Components))
	for i, f := range t.Components {
		out[i] = f.Top()
	}
	return out
}

func (t TupleFeature) CJoin(a, b Tuple) CostLabel[Tuple] {
	return DefaultCJoin[Tuple](t, a, b)
}

func (t TupleFeature) Subset(a, b Tuple) bool {
	for i, f := range t.Components {
		if !f.Subset(a[i], b[i]) {
			return false
		}
	}
	return true
}
