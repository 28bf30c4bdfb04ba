package dataset

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
	loaderio "github.com/OFFIS-RIT/lodstats/pkg/loader/io"
	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

// cannedAggregator returns fixed results keyed by file name.
type cannedAggregator struct {
	results map[string]stats.Result
	errs    map[string]error
	calls   int
}

func (c *cannedAggregator) Name() string { return "canned" }

func (c *cannedAggregator) Aggregate(ctx context.Context, src loader.Source, path string) (stats.Result, error) {
	c.calls++
	name := filepath.Base(path)
	if err, ok := c.errs[name]; ok {
		return stats.Result{}, err
	}
	return c.results[name], nil
}

const upstream = `{
    "dataset_id": "ds-1",
    "title": "Example <dataset>",
    "tags": ["a", "b"],
    "downloaded_urls": [{"url": "http://example.org/a.ttl", "file_name": "a.ttl"}]
}`

func newDataset(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "ds-1")
	require.NoError(t, os.Mkdir(dir, 0o755))
	require.NoError(t, os.WriteFile(metadata.Path(dir), []byte(upstream), 0o644))
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func readSummary(t *testing.T, dir string) (*metadata.Record, metadata.Summary) {
	t.Helper()
	r, err := metadata.Read(dir)
	require.NoError(t, err)
	s, err := r.Summary()
	require.NoError(t, err)
	return r, s
}

func TestProcessMergesFiles(t *testing.T) {
	dir := newDataset(t, map[string]string{"a.ttl": "x", "b.nt": "y"})
	agg := &cannedAggregator{results: map[string]stats.Result{
		"a.ttl": {
			Classes:                  []string{"A1", "A2", "A3"},
			Connections:              2,
			ConnectedVertices:        5,
			AverageLiteralsPerVertex: 1.5,
		},
		"b.nt": {
			Classes:                  []string{"B1"},
			Connections:              4,
			ConnectedVertices:        1,
			AverageLiteralsPerVertex: 2.0,
		},
	}}
	p := NewProcessor(NewProcessorParams{Aggregator: agg, SizeLimit: 100})

	out, err := p.Process(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, out.Status)
	assert.Equal(t, 2, out.Used)

	r, s := readSummary(t, dir)
	assert.Equal(t, []string{"A1", "A2", "A3", "B1"}, s.Classes)
	assert.Equal(t, 6, s.Connections)
	assert.Equal(t, 6, s.ConnectedVertices)
	assert.Equal(t, 1.75, s.AverageLiteralsPerVertex)
	assert.Equal(t, []string{"a.ttl", "b.nt"}, s.UsedFiles)
	require.Len(t, s.Extracted, 2)
	assert.Equal(t, metadata.Count(3), s.Extracted[0].Classes)
	assert.Equal(t, int64(1), s.Extracted[0].FileSize)
	assert.Equal(t, "canned", s.Extracted[1].ExtractedWith)

	assert.Equal(t, []string{"dataset_id", "title", "tags", "downloaded_urls"}, r.Keys()[:4])
	var title string
	_, err = r.Get("title", &title)
	require.NoError(t, err)
	assert.Equal(t, "Example <dataset>", title)
}

func TestProcessIsolatesFailures(t *testing.T) {
	dir := newDataset(t, map[string]string{
		"bad.ttl":   "x",
		"good.nt":   "y",
		"notes.txt": "z",
		"huge.rdf":  strings.Repeat("x", 200),
	})
	agg := &cannedAggregator{
		results: map[string]stats.Result{"good.nt": {Classes: []string{"C"}, AverageLiteralsPerVertex: 3}},
		errs:    map[string]error{"bad.ttl": errors.New("unexpected token at line 1")},
	}
	p := NewProcessor(NewProcessorParams{Aggregator: agg, SizeLimit: 100})

	out, err := p.Process(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, 2, out.Usable)
	assert.Equal(t, 1, out.Used)
	assert.Equal(t, 3, out.Unused)

	_, s := readSummary(t, dir)
	assert.Equal(t, []string{"bad.ttl", "good.nt"}, s.UsableFiles)
	assert.Equal(t, []string{"good.nt"}, s.UsedFiles)
	assert.ElementsMatch(t, []string{"bad.ttl", "huge.rdf", "notes.txt"}, s.UnusedFiles)
	assert.Equal(t, "extraction failed: unexpected token at line 1", s.UnusedReasons["bad.ttl"])
	assert.Equal(t, "too large", s.UnusedReasons["huge.rdf"])
	assert.Equal(t, "bad extension", s.UnusedReasons["notes.txt"])
	assert.Equal(t, 3.0, s.AverageLiteralsPerVertex)
}

func TestProcessWithoutSizeLimit(t *testing.T) {
	dir := newDataset(t, map[string]string{"huge.rdf": strings.Repeat("x", 200)})
	agg := &cannedAggregator{results: map[string]stats.Result{"huge.rdf": {}}}
	p := NewProcessor(NewProcessorParams{Aggregator: agg})

	_, err := p.Process(context.Background(), dir)
	require.NoError(t, err)

	_, s := readSummary(t, dir)
	assert.Equal(t, []string{"huge.rdf"}, s.UsedFiles)
	assert.Empty(t, s.UnusedFiles)
}

func TestProcessSkipIsIdempotent(t *testing.T) {
	dir := newDataset(t, map[string]string{"a.ttl": "x"})
	agg := &cannedAggregator{results: map[string]stats.Result{"a.ttl": {Classes: []string{"A"}}}}
	p := NewProcessor(NewProcessorParams{Aggregator: agg, SkipProcessed: true})

	out, err := p.Process(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, out.Status)
	first, err := os.ReadFile(metadata.Path(dir))
	require.NoError(t, err)

	out, err = p.Process(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, out.Status)
	second, err := os.ReadFile(metadata.Path(dir))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 1, agg.calls)
}

func TestProcessRerunOverwrites(t *testing.T) {
	dir := newDataset(t, map[string]string{"a.ttl": "x"})
	agg := &cannedAggregator{results: map[string]stats.Result{"a.ttl": {Classes: []string{"A"}}}}
	p := NewProcessor(NewProcessorParams{Aggregator: agg})

	_, err := p.Process(context.Background(), dir)
	require.NoError(t, err)
	first, err := os.ReadFile(metadata.Path(dir))
	require.NoError(t, err)

	_, err = p.Process(context.Background(), dir)
	require.NoError(t, err)
	second, err := os.ReadFile(metadata.Path(dir))
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
	assert.Equal(t, 2, agg.calls)
}

func TestProcessMissingSidecar(t *testing.T) {
	dir := t.TempDir()
	p := NewProcessor(NewProcessorParams{Aggregator: &cannedAggregator{}})

	_, err := p.Process(context.Background(), dir)
	assert.ErrorIs(t, err, metadata.ErrMissingSidecar)
}

func TestProcessCanceled(t *testing.T) {
	dir := newDataset(t, map[string]string{"a.ttl": "x"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProcessor(NewProcessorParams{
		Aggregator: stats.NewStreaming(),
		Source:     loader.StaticSource{Graphs: map[string][]triple.Triple{}},
	})
	_, err := p.Process(ctx, dir)
	assert.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(metadata.Path(dir))
	require.NoError(t, err)
	assert.Equal(t, upstream, string(data))
}

func TestProcessWholeGraph(t *testing.T) {
	dir := newDataset(t, map[string]string{"a.nt": "x", "b.nt": "y"})
	typ := triple.IRI(triple.RDFType)
	alice := triple.IRI("http://example.org/alice")
	src := loader.StaticSource{Graphs: map[string][]triple.Triple{
		filepath.Join(dir, "a.nt"): {
			{Subject: alice, Predicate: typ, Object: triple.IRI("http://example.org/Person")},
			{Subject: alice, Predicate: triple.IRI("http://example.org/name"), Object: triple.Literal("Alice", "", "")},
		},
	}}
	p := NewProcessor(NewProcessorParams{Aggregator: stats.NewWholeGraph(), Source: src})

	out, err := p.Process(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 1, out.Failed)

	_, s := readSummary(t, dir)
	assert.Equal(t, []string{"a.nt"}, s.UsedFiles)
	assert.Equal(t, []string{"http://example.org/Person"}, s.Classes)
	assert.Equal(t, []string{"Alice"}, s.Literals)
	assert.Equal(t, 1, s.Connections)
	assert.Equal(t, 1.0, s.AverageLiteralsPerVertex)
	assert.Contains(t, s.UnusedReasons["b.nt"], "unsupported RDF format")
}

type recordingPublisher struct {
	dataset string
	path    string
}

func (r *recordingPublisher) Publish(ctx context.Context, dataset string, localPath string) error {
	r.dataset = dataset
	r.path = localPath
	return errors.New("offline")
}

func TestProcessPublishes(t *testing.T) {
	dir := newDataset(t, nil)
	pub := &recordingPublisher{}
	p := NewProcessor(NewProcessorParams{Aggregator: &cannedAggregator{}, Publisher: pub})

	out, err := p.Process(context.Background(), dir)
	require.NoError(t, err, "publish failures are not dataset failures")
	assert.Equal(t, StatusProcessed, out.Status)
	assert.Equal(t, "ds-1", pub.dataset)
	assert.Equal(t, metadata.Path(dir), pub.path)
}

func TestProcessJSONLDFile(t *testing.T) {
	doc := `{"@id": "http://ex.org/j", "@type": "http://ex.org/T", "http://ex.org/p": "lit"}`

	for _, agg := range []stats.Aggregator{stats.NewWholeGraph(), stats.NewStreaming()} {
		t.Run(agg.Name(), func(t *testing.T) {
			dir := newDataset(t, map[string]string{"c.jsonld": doc})
			p := NewProcessor(NewProcessorParams{
				Aggregator: agg,
				Source:     loaderio.NewFileSource(loaderio.NewFileSourceParams{}),
			})

			out, err := p.Process(context.Background(), dir)
			require.NoError(t, err)
			assert.Equal(t, 0, out.Failed)

			_, s := readSummary(t, dir)
			assert.Equal(t, []string{"c.jsonld"}, s.UsedFiles)
			assert.Empty(t, s.UnusedFiles)
			assert.Empty(t, s.UnusedReasons)
			assert.Equal(t, []string{"http://ex.org/T"}, s.Classes)
			assert.Equal(t, []string{"lit"}, s.Literals)
			assert.Equal(t, 1.0, s.AverageLiteralsPerVertex)
		})
	}
}
