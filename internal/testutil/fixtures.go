// Package testutil provides fixtures shared by package tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// SampleGraphJSON is a graph document where main calls helper and unused is
// unreachable. Its report has one garbage entry of size 7.
const SampleGraphJSON = `{
  "items": [
    {"id": 0, "name": "main", "kind": "code", "size": 10},
    {"id": 1, "name": "helper", "kind": "code", "size": 5},
    {"id": 2, "name": "unused", "kind": "code", "size": 7}
  ],
  "edges": [{"from": 0, "to": 1, "kind": "call"}],
  "roots": [0]
}`

// DanglingGraphJSON has an edge to an item that does not exist.
const DanglingGraphJSON = `{"items":[{"id":0,"name":"a","kind":"code","size":1}],"edges":[{"from":0,"to":4}],"roots":[0]}`

// WriteTemp writes content to name inside a fresh temporary directory and
// returns the file path.
func WriteTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
