package stream

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

const processed = `{
    "dataset_id": "d1",
    "title": "Big one",
    "usableFiles": ["small.ttl"],
    "usedFiles": ["small.ttl"],
    "unusedFiles": ["big.nt", "notes.txt", "broken.ttl", "huge.csv"],
    "unusedReasons": {
        "big.nt": "too large",
        "notes.txt": "bad extension",
        "broken.ttl": "extraction failed: bad token",
        "huge.csv": "bad extension"
    },
    "classes": ["S"],
    "literals": ["s"],
    "entities": ["e"],
    "properties": ["p"],
    "connections": 1,
    "connectedVertices": 2,
    "averageLiteralsPerVertex": 1.0,
    "extracted": [{"file": "small.ttl", "fileSize": 3, "extractedWith": "whole-graph", "classes": 1, "averageLiteralsPerVertex": 1.0}]
}`

func newRoot(t *testing.T) (string, string) {
	t.Helper()
	root := t.TempDir()
	dir := filepath.Join(root, "d1")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(metadata.Path(dir), []byte(processed), 0o644))

	files := map[string]int{"small.ttl": 3, "big.nt": 500, "notes.txt": 900, "broken.ttl": 4, "huge.csv": 900}
	for name, size := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(strings.Repeat("x", size)), 0o644))
	}
	return root, dir
}

func names(queue []Item) []string {
	out := make([]string, 0, len(queue))
	for _, i := range queue {
		out = append(out, i.File)
	}
	return out
}

func TestBuildQueue(t *testing.T) {
	root, dir := newRoot(t)
	missing := filepath.Join(root, "no-sidecar")
	require.NoError(t, os.Mkdir(missing, 0o755))

	queue := BuildQueue([]string{missing, dir}, BuildQueueParams{Threshold: 100})
	require.Equal(t, []string{"big.nt"}, names(queue))
	assert.Equal(t, "d1", queue[0].Dataset)
	assert.Equal(t, int64(500), queue[0].Size)
	assert.Equal(t, filepath.Join(dir, "big.nt"), queue[0].Path())

	queue = BuildQueue([]string{dir}, BuildQueueParams{Threshold: 100, IncludeFailed: true})
	assert.Equal(t, []string{"big.nt", "broken.ttl"}, names(queue))

	queue = BuildQueue([]string{dir}, BuildQueueParams{})
	assert.Equal(t, []string{"big.nt"}, names(queue))

	queue = BuildQueue([]string{dir}, BuildQueueParams{Threshold: 1000})
	assert.Empty(t, queue)
}

func TestPatch(t *testing.T) {
	r, err := metadata.Parse([]byte(processed))
	require.NoError(t, err)

	res := stats.Result{
		Classes:                  []string{"B1", "B2"},
		Literals:                 []string{"b"},
		Entities:                 []string{"x", "y"},
		Properties:               []string{"q"},
		Connections:              3,
		ConnectedVertices:        4,
		AverageLiteralsPerVertex: 2.0,
	}
	require.NoError(t, Patch(r, "big.nt", 500, "streaming", res))

	s, err := r.Summary()
	require.NoError(t, err)
	assert.Equal(t, []string{"small.ttl", "big.nt"}, s.UsedFiles)
	assert.Equal(t, []string{"small.ttl"}, s.UsableFiles)
	assert.Equal(t, []string{"notes.txt", "broken.ttl", "huge.csv"}, s.UnusedFiles)
	assert.NotContains(t, s.UnusedReasons, "big.nt")
	assert.Equal(t, []string{"S", "B1", "B2"}, s.Classes)
	assert.Equal(t, []string{"s", "b"}, s.Literals)
	assert.Equal(t, 4, s.Connections)
	assert.Equal(t, 6, s.ConnectedVertices)
	assert.Equal(t, 1.5, s.AverageLiteralsPerVertex)
	require.Len(t, s.Extracted, 2)
	assert.Equal(t, "streaming", s.Extracted[1].ExtractedWith)
	assert.Equal(t, int64(500), s.Extracted[1].FileSize)

	var title string
	_, err = r.Get("title", &title)
	require.NoError(t, err)
	assert.Equal(t, "Big one", title)

	assert.ErrorIs(t, Patch(r, "big.nt", 500, "streaming", res), ErrNotUnused)
}

func TestRun(t *testing.T) {
	_, dir := newRoot(t)
	s := triple.IRI("http://example.org/s")
	src := loader.StaticSource{
		Graphs: map[string][]triple.Triple{
			filepath.Join(dir, "big.nt"): {
				{Subject: s, Predicate: triple.IRI(triple.RDFType), Object: triple.IRI("http://example.org/T")},
				{Subject: s, Predicate: triple.IRI("http://example.org/p"), Object: triple.Literal("v", "", "")},
			},
		},
		Errors: map[string]error{
			filepath.Join(dir, "broken.ttl"): errors.New("still broken"),
		},
	}
	queue := BuildQueue([]string{dir}, BuildQueueParams{Threshold: 100, IncludeFailed: true})
	require.Len(t, queue, 2)

	report, err := NewRunner(NewRunnerParams{Source: src}).Run(context.Background(), queue)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Queued)
	assert.Equal(t, 1, report.Patched)
	assert.Equal(t, 1, report.Failed)
	assert.ErrorContains(t, report.Err(), "still broken")

	r, err := metadata.Read(dir)
	require.NoError(t, err)
	sum, err := r.Summary()
	require.NoError(t, err)
	assert.Equal(t, []string{"small.ttl", "big.nt"}, sum.UsedFiles)
	assert.Contains(t, sum.UnusedFiles, "broken.ttl")
	assert.Equal(t, []string{"S", "http://example.org/T"}, sum.Classes)
	assert.Equal(t, []string{"s", "v"}, sum.Literals)
	assert.Equal(t, 1.0, sum.AverageLiteralsPerVertex)
	assert.Equal(t, "dataset_id", r.Keys()[0])
}

func TestRunCanceled(t *testing.T) {
	_, dir := newRoot(t)
	queue := BuildQueue([]string{dir}, BuildQueueParams{Threshold: 100})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(NewRunnerParams{Source: loader.StaticSource{}}).Run(ctx, queue)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, report.Patched)
}
