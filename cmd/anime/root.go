// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kheradmand/anime/cluster"
	"github.com/kheradmand/anime/ioformat"
	"github.com/kheradmand/anime/internal/logging"
)

type rootFlags struct {
	devicesPath         string
	flowsPath           string
	outPath             string
	k                   int
	threads             int
	parallelInit        bool
	useIndex            bool
	parallelIndexRemove bool
	override            bool
	jsonLogs            bool
	debug               bool
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:   "anime",
		Short: "Cluster network flow records over lattice-structured feature domains",
		Long: `anime builds an agglomerative hierarchical clustering of flow records whose
fields live in join-semilattice domains (IPv4 prefixes, integer ranges, and
a device taxonomy DAG), and writes the resulting dendrogram to disk.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.devicesPath, "devices", "", "path to the device taxonomy file (required)")
	cmd.Flags().StringVar(&flags.flowsPath, "flows", "", "path to the flow records file (required)")
	cmd.Flags().StringVar(&flags.outPath, "out", "clusters.txt", "path to write the serialized dendrogram to")
	cmd.Flags().IntVar(&flags.k, "k", 1, "stop clustering once this many clusters remain (1 for the full dendrogram)")
	cmd.Flags().IntVar(&flags.threads, "threads", 0, "worker goroutines for parallel seeding (0 means GOMAXPROCS)")
	cmd.Flags().BoolVar(&flags.parallelInit, "parallel-init", true, "seed the initial merge queue concurrently")
	cmd.Flags().BoolVar(&flags.useIndex, "index", true, "use the rtree-backed clusterer instead of the O(n) linear-scan one")
	cmd.Flags().BoolVar(&flags.parallelIndexRemove, "parallel-index-remove", false, "parallelize subsumption removal against the index after each merge")
	cmd.Flags().BoolVar(&flags.override, "override", false, "overwrite --out if it already exists")
	cmd.Flags().BoolVar(&flags.jsonLogs, "json-logs", false, "emit structured JSON logs instead of console-formatted ones")
	cmd.Flags().BoolVar(&flags.debug, "debug", false, "enable debug-level logging")

	return cmd
}

func run(cmd *cobra.Command, flags *rootFlags) error {
	if flags.flowsPath == "" {
		return fmt.Errorf("--flows is required")
	}
	if flags.devicesPath == "" {
		return fmt.Errorf("--devices is required")
	}
	if flags.k < 1 {
		return fmt.Errorf("--k must be at least 1")
	}
	if !flags.override {
		if _, err := os.Stat(flags.outPath); err == nil {
			return fmt.Errorf("--out %q already exists; pass --override to overwrite", flags.outPath)
		}
	}

	log, err := logging.New(flags.jsonLogs, flags.debug)
	if err != nil {
		return fmt.Errorf("building logger: %w", err)
	}
	defer log.Sync() //nolint:errcheck

	store, err := ioformat.LoadTaxonomyFile(flags.devicesPath)
	if err != nil {
		return wrapInput(err)
	}

	flowsFile, err := os.Open(flags.flowsPath)
	if err != nil {
		return wrapInput(fmt.Errorf("opening flows file: %w", err))
	}
	defer flowsFile.Close()

	records, err := ioformat.ParseFlows(flowsFile)
	if err != nil {
		return wrapInput(err)
	}
	log.Info("loaded flow records", zap.Int("count", len(records)))

	tf, tuples, err := ioformat.ToTuples(records, store)
	if err != nil {
		return wrapInput(err)
	}

	if flags.k > len(tuples) {
		return fmt.Errorf("--k=%d exceeds the number of flow records (%d)", flags.k, len(tuples))
	}

	opts := cluster.Options{
		Logger:         log,
		ParallelSeed:   flags.parallelInit,
		ParallelRemove: flags.parallelIndexRemove,
		SeedWorkers:    flags.threads,
	}

	return clusterAndWrite(tf, tuples, flags.useIndex, flags.k, flags.outPath, opts)
}
