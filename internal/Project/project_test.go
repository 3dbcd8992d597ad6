package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProject(t *testing.T) (string, string) {
	t.Helper()
	dir, err := Ensure(t.TempDir())
	require.NoError(t, err)
	snapshot := filepath.Join(dir, "history", "2025-06-01")
	require.NoError(t, os.MkdirAll(snapshot, 0o755))
	return dir, snapshot
}

func TestMergeScenario(t *testing.T) {
	dir, snapshot := testProject(t)
	require.NoError(t, WriteLines(CanonicalPath(dir, "subs.txt"),
		[]string{"a.example.com", "b.example.com"}))

	res, err := MergeIntoCanonical(dir, "subs.txt",
		[]string{"b.example.com", "c.example.com", ""}, snapshot, "new_subs.txt")
	require.NoError(t, err)

	assert.Equal(t, 1, res.NewCount)

	delta, err := ReadLines(res.DeltaPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"c.example.com"}, delta)

	canonical, err := ReadLines(res.CanonicalPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com", "b.example.com", "c.example.com"}, canonical)
}

func TestMergeIsIdempotent(t *testing.T) {
	dir, snapshot := testProject(t)
	batch := []string{"a.example.com", "b.example.com", "a.example.com"}

	first, err := MergeIntoCanonical(dir, "subs.txt", batch, snapshot, "new_subs.txt")
	require.NoError(t, err)
	assert.Equal(t, 2, first.NewCount)

	before, err := os.ReadFile(first.CanonicalPath)
	require.NoError(t, err)

	second, err := MergeIntoCanonical(dir, "subs.txt", batch, snapshot, "new_subs.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, second.NewCount)

	after, err := os.ReadFile(second.CanonicalPath)
	require.NoError(t, err)
	assert.Equal(t, before, after, "second merge must leave the canonical file byte-identical")
}

func TestMergeNeverDuplicates(t *testing.T) {
	dir, snapshot := testProject(t)
	batches := [][]string{
		{"x.example.com", "y.example.com"},
		{"y.example.com", "z.example.com"},
		{"  x.example.com  ", "z.example.com", "w.example.com"},
	}
	for _, b := range batches {
		_, err := MergeIntoCanonical(dir, "subs.txt", b, snapshot, "new_subs.txt")
		require.NoError(t, err)
	}

	canonical, err := ReadLines(CanonicalPath(dir, "subs.txt"))
	require.NoError(t, err)

	seen := map[string]int{}
	for _, line := range canonical {
		seen[line]++
	}
	for line, n := range seen {
		assert.Equal(t, 1, n, "duplicate canonical line: %s", line)
	}
	assert.Len(t, canonical, 4)
}

func TestEmptyDeltaIsStillWritten(t *testing.T) {
	dir, snapshot := testProject(t)
	require.NoError(t, WriteLines(CanonicalPath(dir, "alive.txt"), []string{"https://a.example.com"}))

	res, err := MergeIntoCanonical(dir, "alive.txt",
		[]string{"https://a.example.com"}, snapshot, "new_alive.txt")
	require.NoError(t, err)
	assert.Equal(t, 0, res.NewCount)

	info, err := os.Stat(res.DeltaPath)
	require.NoError(t, err, "delta file must exist even when empty")
	assert.Zero(t, info.Size())
}

func TestMergeCreatesCanonicalOnFirstRun(t *testing.T) {
	dir, snapshot := testProject(t)

	res, err := MergeIntoCanonical(dir, "ports.txt",
		[]string{"a.example.com:443"}, snapshot, "new_ports.txt")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)

	canonical, err := ReadLines(res.CanonicalPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.example.com:443"}, canonical)
}

func TestComputeNewLinesPreservesFirstSeenOrder(t *testing.T) {
	got := ComputeNewLines(
		[]string{"kept"},
		[]string{"c", "a", "c", " b ", "kept", "a"},
	)
	assert.Equal(t, []string{"c", "a", "b"}, got)
}

func TestReadLinesMissingFile(t *testing.T) {
	lines, err := ReadLines(filepath.Join(t.TempDir(), "nope.txt"))
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestWriteLinesSkipsBlankLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	require.NoError(t, WriteLines(path, []string{"one", "", "   ", "two"}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "one\ntwo\n", string(data))
}
