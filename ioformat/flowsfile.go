// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kheradmand/anime/feature"
	"github.com/kheradmand/anime/taxonomy"
)

// FlowRecord is one parsed line of a flows file: a primary field (either a
// Prefix or a Range, never both) plus the source and destination device
// ids, which index into the taxonomy loaded from the devices file.
type FlowRecord struct {
	Prefix *feature.IPv4Prefix
	Range  *feature.Range[uint32]
	SrcID  int
	DstID  int
}

// ParseFlows reads one flow record per line:
//
//	<prefix>/<len> <src_id> <dst_id>       (3 fields: prefix form)
//	<begin_u32> <end_u32> <src_id> <dst_id> (4 fields: range form)
//
// The form is fixed by the field count of the first non-blank, non-comment
// line; every subsequent record must use the same field count.
func ParseFlows(r io.Reader) ([]FlowRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var records []FlowRecord
	wantFields := 0
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		if wantFields == 0 {
			wantFields = len(fields)
			if wantFields != 3 && wantFields != 4 {
				return nil, fmt.Errorf("ioformat: line %d: got %d fields, want 3 (prefix form) or 4 (range form)", line, len(fields))
			}
		}
		if len(fields) != wantFields {
			return nil, fmt.Errorf("ioformat: line %d: got %d fields, want %d (established by the first record)", line, len(fields), wantFields)
		}

		rec, err := parseFlowRecord(fields)
		if err != nil {
			return nil, fmt.Errorf("ioformat: line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ioformat: %w", err)
	}
	return records, nil
}

func parseFlowRecord(fields []string) (FlowRecord, error) {
	if len(fields) == 3 {
		prefix, err := parsePrefix(fields[0])
		if err != nil {
			return FlowRecord{}, err
		}
		srcID, dstID, err := parseDeviceIDs(fields[1], fields[2])
		if err != nil {
			return FlowRecord{}, err
		}
		return FlowRecord{Prefix: &prefix, SrcID: srcID, DstID: dstID}, nil
	}

	begin, err := strconv.ParseUint(fields[0], 10, 32)
	if err != nil {
		return FlowRecord{}, fmt.Errorf("invalid range begin %q: %w", fields[0], err)
	}
	end, err := strconv.ParseUint(fields[1], 10, 32)
	if err != nil {
		return FlowRecord{}, fmt.Errorf("invalid range end %q: %w", fields[1], err)
	}
	if end < begin {
		return FlowRecord{}, fmt.Errorf("invalid range [%d, %d]: end before begin", begin, end)
	}
	srcID, dstID, err := parseDeviceIDs(fields[2], fields[3])
	if err != nil {
		return FlowRecord{}, err
	}
	rng := feature.Range[uint32]{Begin: uint32(begin), End: uint32(end)}
	return FlowRecord{Range: &rng, SrcID: srcID, DstID: dstID}, nil
}

func parseDeviceIDs(srcTok, dstTok string) (int, int, error) {
	srcID, err := strconv.Atoi(srcTok)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid src_id %q: %w", srcTok, err)
	}
	dstID, err := strconv.Atoi(dstTok)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid dst_id %q: %w", dstTok, err)
	}
	return srcID, dstID, nil
}

func parsePrefix(token string) (feature.IPv4Prefix, error) {
	addrTok, lenTok, ok := strings.Cut(token, "/")
	if !ok {
		return feature.IPv4Prefix{}, fmt.Errorf("invalid IPv4 prefix %q: missing /len", token)
	}
	octets := strings.Split(addrTok, ".")
	if len(octets) != 4 {
		return feature.IPv4Prefix{}, fmt.Errorf("invalid IPv4 prefix %q: want dotted-quad address", token)
	}
	var raw uint32
	for _, o := range octets {
		v, err := strconv.ParseUint(o, 10, 8)
		if err != nil {
			return feature.IPv4Prefix{}, fmt.Errorf("invalid IPv4 prefix %q: %w", token, err)
		}
		raw = raw<<8 | uint32(v)
	}
	length, err := strconv.ParseUint(lenTok, 10, 8)
	if err != nil || length > 32 {
		return feature.IPv4Prefix{}, fmt.Errorf("invalid IPv4 prefix %q: bad length", token)
	}
	mask := ^uint32(0) << (32 - length)
	return feature.IPv4Prefix{Address: raw & mask, Len: uint8(length)}, nil
}

// ToTuples builds the feature.TupleFeature and feature.Tuple values for a
// parsed flows file: each tuple is [primary, srcDevice, dstDevice], where
// primary is the shared prefix-or-range component and srcDevice/dstDevice
// are taxonomy labels looked up by id in store. Every record must agree on
// the primary form (all-prefix or all-range).
func ToTuples(records []FlowRecord, store *taxonomy.Store) (feature.TupleFeature, []feature.Tuple, error) {
	if len(records) == 0 {
		return feature.TupleFeature{}, nil, fmt.Errorf("ioformat: no flow records to convert")
	}

	isPrefix := records[0].Prefix != nil
	var primary feature.AnyFeature
	if isPrefix {
		primary = feature.Lift[feature.IPv4Prefix](feature.IPv4PrefixFeature{})
	} else {
		primary = feature.Lift[feature.Range[uint32]](feature.RangeFeature[uint32]{})
	}

	tf := feature.TupleFeature{Components: []feature.AnyFeature{
		primary,
		feature.Lift[feature.HLabel](feature.DAGFeature{Store: store}),
		feature.Lift[feature.HLabel](feature.DAGFeature{Store: store}),
	}}

	tuples := make([]feature.Tuple, len(records))
	for i, rec := range records {
		if (rec.Prefix != nil) != isPrefix {
			return feature.TupleFeature{}, nil, fmt.Errorf("ioformat: record %d mixes prefix and range forms", i)
		}

		var field any
		if isPrefix {
			field = *rec.Prefix
		} else {
			field = *rec.Range
		}
		tuples[i] = feature.Tuple{
			field,
			feature.HLabel{ID: rec.SrcID, Store: store},
			feature.HLabel{ID: rec.DstID, Store: store},
		}
	}

	return tf, tuples, nil
}
