package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/OFFIS-RIT/lodstats/internal/metrics"
	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
)

type Report struct {
	Queued  int
	Patched int
	Failed  int
	Errors  *multierror.Error
}

func (r Report) Err() error {
	return r.Errors.ErrorOrNil()
}

// Runner works through a queue one file at a time.
type Runner struct {
	aggregator stats.Aggregator
	source     loader.Source
	logger     *logger.Logger
	metrics    *metrics.Metrics
}

type NewRunnerParams struct {
	// Aggregator defaults to the streaming aggregator.
	Aggregator stats.Aggregator
	Source     loader.Source
	Logger     *logger.Logger
	Metrics    *metrics.Metrics
}

func NewRunner(params NewRunnerParams) *Runner {
	aggregator := params.Aggregator
	if aggregator == nil {
		aggregator = stats.NewStreaming()
	}
	return &Runner{
		aggregator: aggregator,
		source:     params.Source,
		logger:     params.Logger,
		metrics:    params.Metrics,
	}
}

// Run processes queue in order. A file that fails stays unused and the run
// continues; only cancellation of ctx stops it early.
func (r *Runner) Run(ctx context.Context, queue []Item) (Report, error) {
	report := Report{Queued: len(queue)}
	strategy := r.aggregator.Name()

	for _, item := range queue {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		start := time.Now()
		res, err := r.aggregator.Aggregate(ctx, r.source, item.Path())
		r.metrics.Extraction(strategy, time.Since(start))
		if err == nil {
			err = metadata.Update(item.Dir, func(rec *metadata.Record) error {
				return Patch(rec, item.File, item.Size, strategy, res)
			})
		}
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			report.Failed++
			report.Errors = multierror.Append(report.Errors, fmt.Errorf("%s/%s: %w", item.Dataset, item.File, err))
			r.metrics.File(metrics.FileFailed, strategy)
			r.logger.Error("Failed to process file", "dataset", item.Dataset, "file", item.File, "err", err)
			continue
		}

		report.Patched++
		r.metrics.File(metrics.FileUsed, strategy)
		r.logger.Info("Processed file", "dataset", item.Dataset, "file", item.File, "size", item.Size)
	}

	return report, nil
}
