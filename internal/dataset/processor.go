// Package dataset runs the extraction of one dataset folder: classify its
// files, aggregate statistics file by file, merge them and write the result
// into the folder's metadata sidecar.
package dataset

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/OFFIS-RIT/lodstats/internal/metrics"
	"github.com/OFFIS-RIT/lodstats/pkg/classify"
	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
)

type Status int

const (
	StatusProcessed Status = iota
	StatusSkipped
)

func (s Status) String() string {
	switch s {
	case StatusProcessed:
		return "processed"
	case StatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Outcome summarizes one Process call.
type Outcome struct {
	Dataset string
	Status  Status
	Usable  int
	Used    int
	Unused  int
	Failed  int
}

// Publisher receives the sidecar after it was written.
type Publisher interface {
	Publish(ctx context.Context, dataset string, localPath string) error
}

type Processor struct {
	aggregator    stats.Aggregator
	source        loader.Source
	sizeLimit     int64
	skipProcessed bool
	fileTimeout   time.Duration
	logger        *logger.Logger
	publisher     Publisher
	metrics       *metrics.Metrics
}

type NewProcessorParams struct {
	Aggregator stats.Aggregator
	Source     loader.Source
	// SizeLimit is the classification ceiling in bytes, 0 disables it.
	SizeLimit     int64
	SkipProcessed bool
	// FileTimeout bounds the extraction of a single file, 0 disables it.
	// Iteration stops at the next context check, a decoder blocked inside
	// the parser library is not interrupted.
	FileTimeout time.Duration
	Logger      *logger.Logger
	Publisher   Publisher
	Metrics     *metrics.Metrics
}

func NewProcessor(params NewProcessorParams) *Processor {
	aggregator := params.Aggregator
	if aggregator == nil {
		aggregator = stats.NewWholeGraph()
	}
	return &Processor{
		aggregator:    aggregator,
		source:        params.Source,
		sizeLimit:     params.SizeLimit,
		skipProcessed: params.SkipProcessed,
		fileTimeout:   params.FileTimeout,
		logger:        params.Logger,
		publisher:     params.Publisher,
		metrics:       params.Metrics,
	}
}

// Process extracts the dataset folder dir. A file that cannot be extracted
// is recorded as unused and does not fail the dataset. Errors are returned
// for problems with the folder or its sidecar, and when ctx is canceled; in
// both cases the sidecar is left untouched.
func (p *Processor) Process(ctx context.Context, dir string) (Outcome, error) {
	name := filepath.Base(dir)
	out := Outcome{Dataset: name}

	record, err := metadata.Read(dir)
	if err != nil {
		return out, fmt.Errorf("dataset %s: %w", name, err)
	}

	if p.skipProcessed && record.Processed() {
		out.Status = StatusSkipped
		p.logger.Debug("Skipping processed dataset", "dataset", name)
		return out, nil
	}

	entries, err := classify.List(dir, metadata.FileName, metadata.AdaptedFileName)
	if err != nil {
		return out, fmt.Errorf("dataset %s: %w", name, err)
	}
	sizes := make(map[string]int64, len(entries))
	for _, e := range entries {
		sizes[e.Name] = e.Size
	}

	classified := classify.Classify(entries, p.sizeLimit, loader.Extensions)

	summary := metadata.Summary{
		UsableFiles:   classified.Usable,
		UsedFiles:     []string{},
		UnusedFiles:   classified.UnusedNames(),
		UnusedReasons: make(map[string]string, len(classified.Unused)),
		Extracted:     []metadata.Extraction{},
	}
	for _, u := range classified.Unused {
		summary.UnusedReasons[u.Name] = string(u.Reason)
		p.logger.Warn("Unused file", "dataset", name, "file", u.Name, "reason", u.Reason)
		p.metrics.File(metrics.FileUnused, p.aggregator.Name())
	}

	results := make([]stats.Result, 0, len(classified.Usable))
	for _, file := range classified.Usable {
		res, err := p.extract(ctx, filepath.Join(dir, file))
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
		if err != nil {
			summary.UnusedFiles = append(summary.UnusedFiles, file)
			summary.UnusedReasons[file] = FailureReason(err)
			out.Failed++
			p.logger.Error("Failed to extract file", "dataset", name, "file", file, "err", err)
			p.metrics.File(metrics.FileFailed, p.aggregator.Name())
			continue
		}

		summary.UsedFiles = append(summary.UsedFiles, file)
		summary.Extracted = append(summary.Extracted,
			metadata.NewExtraction(file, sizes[file], p.aggregator.Name(), res))
		results = append(results, res)
		p.metrics.File(metrics.FileUsed, p.aggregator.Name())
	}

	summary.Result = stats.Merge(results...)

	if err := record.SetSummary(summary); err != nil {
		return out, fmt.Errorf("dataset %s: %w", name, err)
	}
	if err := metadata.Write(dir, record); err != nil {
		return out, fmt.Errorf("dataset %s: %w", name, err)
	}

	if p.publisher != nil {
		if err := p.publisher.Publish(ctx, name, metadata.Path(dir)); err != nil {
			p.logger.Warn("Failed to publish metadata", "dataset", name, "err", err)
		}
	}

	out.Status = StatusProcessed
	out.Usable = len(summary.UsableFiles)
	out.Used = len(summary.UsedFiles)
	out.Unused = len(summary.UnusedFiles)
	p.logger.Info("Processed dataset", "dataset", name, "used", out.Used, "unused", out.Unused)

	return out, nil
}

func (p *Processor) extract(ctx context.Context, path string) (stats.Result, error) {
	if p.fileTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.fileTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := p.aggregator.Aggregate(ctx, p.source, path)
	p.metrics.Extraction(p.aggregator.Name(), time.Since(start))

	if errors.Is(err, context.DeadlineExceeded) {
		return stats.Result{}, fmt.Errorf("timed out after %s: %w", p.fileTimeout, err)
	}
	return res, err
}

// FailureReasonPrefix starts the unused reason of every file whose
// extraction failed.
const FailureReasonPrefix = "extraction failed: "

func FailureReason(err error) string {
	return FailureReasonPrefix + err.Error()
}
