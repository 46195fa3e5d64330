// Copyright (c) 2025 Karl Gaissmaier
// SPDX-License-Identifier: MIT

package taxonomy_test

import (
	"strings"
	"testing"

	"github.com/kheradmand/anime/taxonomy"
)

const sampleTaxonomy = `
root 100
network 60 root
host 1 network
server 0.5 host
router 0.5 host
`

func loadSample(t *testing.T) *taxonomy.Store {
	t.Helper()
	store, err := taxonomy.Load(strings.NewReader(sampleTaxonomy))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Finalize(); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	return store
}

func id(t *testing.T, s *taxonomy.Store, name string) int {
	t.Helper()
	i, ok := s.NameToID(name)
	if !ok {
		t.Fatalf("unknown label %q", name)
	}
	return i
}

func TestLoadAndFinalize(t *testing.T) {
	store := loadSample(t)
	if got, want := store.IDToName(store.Top()), "root"; got != want {
		t.Errorf("top = %q, want %q", got, want)
	}
}

func TestLoadRejectsUnknownParent(t *testing.T) {
	_, err := taxonomy.Load(strings.NewReader("a 1 ghost\n"))
	if err == nil {
		t.Fatalf("expected error for unknown parent, got nil")
	}
}

func TestFinalizeRejectsMultipleRoots(t *testing.T) {
	store, err := taxonomy.Load(strings.NewReader("a 1\nb 1\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := store.Finalize(); err == nil {
		t.Fatalf("expected Finalize to reject two roots")
	}
}

func TestJoinOfSiblingsIsParent(t *testing.T) {
	store := loadSample(t)
	server, router, host := id(t, store, "server"), id(t, store, "router"), id(t, store, "host")

	got := store.Join(server, router)
	if got != host {
		t.Errorf("join(server,router) = %q, want %q", store.IDToName(got), store.IDToName(host))
	}
}

func TestJoinOfLabelWithItselfIsItself(t *testing.T) {
	store := loadSample(t)
	host := id(t, store, "host")
	if got := store.Join(host, host); got != host {
		t.Errorf("join(host,host) = %q, want host", store.IDToName(got))
	}
}

func TestMeetOfSiblingsHasNoResult(t *testing.T) {
	store := loadSample(t)
	server, router := id(t, store, "server"), id(t, store, "router")

	_, ok := store.Meet(server, router)
	if ok {
		t.Errorf("expected meet(server,router) to be undefined")
	}
}

func TestMeetOfAncestorAndDescendant(t *testing.T) {
	store := loadSample(t)
	network, server := id(t, store, "network"), id(t, store, "server")

	got, ok := store.Meet(network, server)
	if !ok {
		t.Fatalf("expected meet(network,server) to be defined")
	}
	if got != server {
		t.Errorf("meet(network,server) = %q, want server", store.IDToName(got))
	}
}

func TestPredecessorsIncludeSelf(t *testing.T) {
	store := loadSample(t)
	host := id(t, store, "host")
	preds := store.Predecessors(host)
	if !preds.Test(uint(host)) {
		t.Errorf("predecessors(host) must include host itself")
	}
	root := id(t, store, "root")
	if !preds.Test(uint(root)) {
		t.Errorf("predecessors(host) must include root")
	}
}

func TestSuccessorsIncludeSelf(t *testing.T) {
	store := loadSample(t)
	host := id(t, store, "host")
	succs := store.Successors(host)
	if !succs.Test(uint(host)) {
		t.Errorf("successors(host) must include host itself")
	}
	server := id(t, store, "server")
	if !succs.Test(uint(server)) {
		t.Errorf("successors(host) must include server")
	}
}
