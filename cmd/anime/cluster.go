// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/kheradmand/anime/cluster"
	"github.com/kheradmand/anime/feature"
	"github.com/kheradmand/anime/ioformat"
)

// clusterAndWrite runs the configured clusterer over tuples until at most k
// clusters remain and writes the resulting forest to outPath.
func clusterAndWrite(tf feature.TupleFeature, tuples []feature.Tuple, useIndex bool, k int, outPath string, opts cluster.Options) error {
	var (
		d   *cluster.Dendrogram[feature.Tuple]
		err error
	)

	ctx := context.Background()
	if useIndex {
		d, err = cluster.NewClusterer[feature.Tuple](tf, opts).Cluster(ctx, tuples, k)
	} else {
		d, err = cluster.NewLinearClusterer[feature.Tuple](tf, opts).Cluster(ctx, tuples, k)
	}
	if err != nil {
		return fmt.Errorf("clustering: %w", err)
	}

	out, err := os.Create(outPath)
	if err != nil {
		return wrapInput(fmt.Errorf("creating output file: %w", err))
	}
	defer out.Close()

	if err := ioformat.WriteClusters(out, d, tupleLabelString); err != nil {
		return fmt.Errorf("writing dendrogram: %w", err)
	}
	return nil
}

// tupleLabelString renders a Tuple label as a single whitespace-free token
// for the cluster file format, delimiting components with commas.
func tupleLabelString(t feature.Tuple) string {
	return t.String()
}
