// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Package ioformat holds the flat-text readers and writers that glue the
// feature/taxonomy/cluster packages to files on disk: device taxonomies,
// flow lists (one fixed-format record per line: a prefix or range plus a
// source and destination device id), and serialized cluster dendrograms.
package ioformat

import (
	"fmt"
	"os"

	"github.com/kheradmand/anime/taxonomy"
)

// LoadTaxonomyFile opens path and parses it as a taxonomy file (see
// taxonomy.Load for the line format), finalizing the resulting store.
func LoadTaxonomyFile(path string) (*taxonomy.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("ioformat: opening taxonomy file: %w", err)
	}
	defer f.Close()

	store, err := taxonomy.Load(f)
	if err != nil {
		return nil, fmt.Errorf("ioformat: %s: %w", path, err)
	}
	if err := store.Finalize(); err != nil {
		return nil, fmt.Errorf("ioformat: %s: %w", path, err)
	}
	return store, nil
}
