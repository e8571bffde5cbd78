// Package testutil provides shared test infrastructure for the sizing engine:
// float assertions with relative tolerance and lookup of repository fixtures.
package testutil

import (
	"math"
	"path/filepath"
	"runtime"
	"testing"
)

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// RepoPath resolves a path relative to the repository root.
// The path is resolved relative to this source file: sizing/internal/testutil/ → repo root.
func RepoPath(t *testing.T, elem ...string) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	root := filepath.Join(filepath.Dir(thisFile), "..", "..", "..")
	return filepath.Join(append([]string{root}, elem...)...)
}

// SampleCatalogPath is the bundled catalog used by loader and CLI tests.
func SampleCatalogPath(t *testing.T) string {
	t.Helper()
	return RepoPath(t, "testdata", "catalog.yaml")
}
