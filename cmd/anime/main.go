// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

// Command anime clusters network flow records whose fields live in
// join-semilattice feature domains (IPv4 prefixes, integer ranges, and a
// device taxonomy DAG) into an agglomerative hierarchy, and writes the
// resulting dendrogram to disk.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeFor(err))
	}
}
