// Package batch fans dataset folders out to a fixed pool of workers, one
// dataset processor call per folder.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/OFFIS-RIT/lodstats/internal/dataset"
	"github.com/OFFIS-RIT/lodstats/internal/metrics"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
)

var ErrRootMissing = errors.New("root folder does not exist")

// DatasetProcessor processes a single dataset folder.
type DatasetProcessor interface {
	Process(ctx context.Context, dir string) (dataset.Outcome, error)
}

// Result is what a worker reports for one dataset.
type Result struct {
	Dir     string
	Outcome dataset.Outcome
	Err     error
}

// Report summarizes a run. Errors collects every per-dataset failure.
type Report struct {
	Total     int
	Processed int
	Skipped   int
	Failed    int
	Errors    *multierror.Error
	Duration  time.Duration
}

// Err returns the collected dataset failures, or nil.
func (r Report) Err() error {
	return r.Errors.ErrorOrNil()
}

type Driver struct {
	processor DatasetProcessor
	workers   int
	logger    *logger.Logger
	metrics   *metrics.Metrics
	progress  io.Writer
}

type NewDriverParams struct {
	Processor DatasetProcessor
	Workers   int
	Logger    *logger.Logger
	Metrics   *metrics.Metrics
	// Progress receives the progress bar, nil disables it.
	Progress io.Writer
}

func NewDriver(params NewDriverParams) *Driver {
	return &Driver{
		processor: params.Processor,
		workers:   max(params.Workers, 1),
		logger:    params.Logger,
		metrics:   params.Metrics,
		progress:  params.Progress,
	}
}

// ListDatasets returns the sub-folders of root sorted by name.
func ListDatasets(root string) ([]string, error) {
	info, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) || (err == nil && !info.IsDir()) {
		return nil, fmt.Errorf("%s: %w", root, ErrRootMissing)
	}
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", root, err)
	}

	dirs := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	sort.Strings(dirs)

	return dirs, nil
}

// Run processes every folder in dirs. Results are consumed in completion
// order, which need not match dirs. A failing dataset never stops the run;
// only cancellation of ctx does, in which case ctx.Err() is returned along
// with the partial report.
func (d *Driver) Run(ctx context.Context, dirs []string) (Report, error) {
	start := time.Now()
	report := Report{Total: len(dirs)}
	progress := NewProgress(d.progress, len(dirs))

	jobs := make(chan string)
	results := make(chan Result)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for _, dir := range dirs {
			select {
			case jobs <- dir:
			case <-gCtx.Done():
				return gCtx.Err()
			}
		}
		return nil
	})

	for i := 0; i < d.workers; i++ {
		g.Go(func() error {
			for dir := range jobs {
				out, err := d.processor.Process(gCtx, dir)
				select {
				case results <- Result{Dir: dir, Outcome: out, Err: err}:
				case <-gCtx.Done():
					return gCtx.Err()
				}
			}
			return nil
		})
	}

	var waitErr error
	go func() {
		waitErr = g.Wait()
		close(results)
	}()

	d.logger.Info("Starting batch", "datasets", len(dirs), "workers", d.workers)

	for res := range results {
		d.collect(&report, res)
		progress.Tick(res.Err != nil)
	}
	progress.Finish()

	report.Duration = time.Since(start)
	d.metrics.Run(report.Duration)
	d.logger.Info("Finished batch",
		"processed", report.Processed,
		"skipped", report.Skipped,
		"failed", report.Failed,
		"duration", report.Duration.Round(time.Millisecond),
	)

	if err := ctx.Err(); err != nil {
		return report, err
	}
	if waitErr != nil {
		return report, waitErr
	}
	return report, nil
}

func (d *Driver) collect(report *Report, res Result) {
	if res.Err != nil {
		report.Failed++
		report.Errors = multierror.Append(report.Errors, res.Err)
		d.metrics.Dataset(metrics.DatasetFailed)
		d.logger.Error("Failed to process dataset", "dataset", filepath.Base(res.Dir), "err", res.Err)
		return
	}

	switch res.Outcome.Status {
	case dataset.StatusSkipped:
		report.Skipped++
		d.metrics.Dataset(metrics.DatasetSkipped)
	default:
		report.Processed++
		d.metrics.Dataset(metrics.DatasetProcessed)
	}
}
