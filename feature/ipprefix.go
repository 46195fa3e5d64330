// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package feature

import (
	"fmt"
	"math/bits"
)

// IPv4Prefix is a label in the IPv4 CIDR join-semilattice: address is the
// network address (host-order uint32) and Len is the prefix length in
// [0, 32].
type IPv4Prefix struct {
	Address uint32
	Len     uint8
}

// Begin returns the first address covered by the prefix.
func (p IPv4Prefix) Begin() uint32 {
	return p.Address
}

// End returns the last address covered by the prefix.
func (p IPv4Prefix) End() uint32 {
	return p.Address + uint32(p.NetworkSize()-1)
}

// NetworkSize returns 2^(32-Len), the number of addresses the prefix
// covers.
func (p IPv4Prefix) NetworkSize() uint64 {
	return 1 << (32 - p.Len)
}

func (p IPv4Prefix) String() string {
	a := p.Address
	return fmt.Sprintf("%d.%d.%d.%d/%d", byte(a>>24), byte(a>>16), byte(a>>8), byte(a), p.Len)
}

// IPv4PrefixFeature implements Feature[IPv4Prefix]: join is the longest
// common prefix of both networks, meet returns the longer (more specific)
// of the two when one contains the other (disjoint prefixes have no
// meet), cost is network size, and top is 0.0.0.0/0.
type IPv4PrefixFeature struct{}

var _ Feature[IPv4Prefix] = IPv4PrefixFeature{}

func (IPv4PrefixFeature) Join(a, b IPv4Prefix) IPv4Prefix {
	commonLen := uint8(32)
	if a.Address != b.Address {
		commonLen = uint8(bits.LeadingZeros32(a.Address ^ b.Address))
	}
	length := a.Len
	if b.Len < length {
		length = b.Len
	}
	if commonLen < length {
		length = commonLen
	}
	if length == 0 {
		return IPv4Prefix{}
	}
	mask := ^uint32(0) << (32 - length)
	return IPv4Prefix{Address: a.Address & mask, Len: length}
}

func (IPv4PrefixFeature) Meet(a, b IPv4Prefix) (IPv4Prefix, bool) {
	if a.Begin() > b.End() || b.Begin() > a.End() {
		return IPv4Prefix{}, false
	}
	if a.Len < b.Len {
		return b, true
	}
	return a, true
}

func (IPv4PrefixFeature) Cost(a IPv4Prefix) Cost {
	return Cost(a.NetworkSize())
}

func (IPv4PrefixFeature) Top() IPv4Prefix {
	return IPv4Prefix{}
}

func (f IPv4PrefixFeature) CJoin(a, b IPv4Prefix) CostLabel[IPv4Prefix] {
	return DefaultCJoin[IPv4Prefix](f, a, b)
}

func (IPv4PrefixFeature) Subset(a, b IPv4Prefix) bool {
	if a.Len < b.Len {
		return false
	}
	if b.Len == 0 {
		return true
	}
	mask := ^uint32(0) << (32 - b.Len)
	return a.Address&mask == b.Address
}
