// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package ioformat

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/kheradmand/anime/cluster"
	"github.com/kheradmand/anime/feature"
)

// ClusterRecord is one row of a serialized dendrogram: a cluster's id, its
// parent (-1 for a root), its label's cost, a caller-supplied rendering of
// its label, and the ids of its direct children.
type ClusterRecord struct {
	ID       int
	Parent   int
	Cost     feature.Cost
	Label    string
	Children []int
}

// WriteClusters serializes every cluster in d (singletons and merges
// alike) to w, one line per cluster in id order:
//
//	<id> <parent> <cost> <label> <child>*
//
// labelString renders a cluster's label to the <label> column; its output
// must not contain whitespace, since the file is whitespace-delimited.
func WriteClusters[L any](w io.Writer, d *cluster.Dendrogram[L], labelString func(L) string) error {
	bw := bufio.NewWriter(w)
	for id := 0; id < d.Len(); id++ {
		children := d.Children(id)
		fields := make([]string, 0, 4+len(children))
		fields = append(fields,
			strconv.Itoa(id),
			strconv.Itoa(d.Parent(id)),
			strconv.FormatFloat(d.Cost(id), 'g', -1, 64),
			labelString(d.Label(id)),
		)
		for _, c := range children {
			fields = append(fields, strconv.Itoa(c))
		}
		if _, err := fmt.Fprintln(bw, strings.Join(fields, " ")); err != nil {
			return fmt.Errorf("ioformat: writing cluster %d: %w", id, err)
		}
	}
	return bw.Flush()
}

// ReadClusterRecords parses the format WriteClusters produces back into
// ClusterRecords in id order. Reconstructing a typed Dendrogram from these
// records is the caller's responsibility, since parsing a <label> token
// back into L is domain-specific.
func ReadClusterRecords(r io.Reader) ([]ClusterRecord, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	var records []ClusterRecord
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		fields := strings.Fields(text)
		if len(fields) < 4 {
			return nil, fmt.Errorf("ioformat: line %d: expected \"<id> <parent> <cost> <label> <child>*\", got %q", line, text)
		}

		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("ioformat: line %d: invalid id %q: %w", line, fields[0], err)
		}
		parent, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("ioformat: line %d: invalid parent %q: %w", line, fields[1], err)
		}
		cost, err := strconv.ParseFloat(fields[2], 64)
		if err != nil {
			return nil, fmt.Errorf("ioformat: line %d: invalid cost %q: %w", line, fields[2], err)
		}

		var children []int
		for _, f := range fields[4:] {
			c, err := strconv.Atoi(f)
			if err != nil {
				return nil, fmt.Errorf("ioformat: line %d: invalid child id %q: %w", line, f, err)
			}
			children = append(children, c)
		}

		records = append(records, ClusterRecord{
			ID:       id,
			Parent:   parent,
			Cost:     cost,
			Label:    fields[3],
			Children: children,
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ioformat: %w", err)
	}
	return records, nil
}
