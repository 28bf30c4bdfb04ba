package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/OFFIS-RIT/lodstats/internal/app"
	"github.com/OFFIS-RIT/lodstats/internal/batch"
	"github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/internal/dataset"
	"github.com/OFFIS-RIT/lodstats/internal/metrics"
	"github.com/OFFIS-RIT/lodstats/internal/util"
	loaderio "github.com/OFFIS-RIT/lodstats/pkg/loader/io"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
)

type options struct {
	WithoutSizeLimit bool   `long:"without-size-limit" description:"Extract files regardless of their size"`
	SkipProcessed    bool   `long:"skip-processed" description:"Skip datasets whose metadata already holds statistics"`
	Strategy         string `long:"strategy" description:"Aggregation strategy" choice:"whole-graph" choice:"streaming"`
	Workers          int    `short:"w" long:"workers" description:"Number of parallel workers (default: CPUs - 1)"`
	MetricsFile      string `long:"metrics-file" description:"Write run metrics in Prometheus text format to this file"`

	Args struct {
		Root string `positional-arg-name:"root" description:"Folder containing one sub-folder per dataset"`
	} `positional-args:"yes" required:"yes"`
}

func main() {
	os.Exit(app.ExitCode(run()))
}

func run() error {
	var opts options
	if err := app.ParseFlags(&opts); err != nil {
		return err
	}

	util.LoadEnv(nil)
	cfg := config.FromEnv()
	cfg.Root = opts.Args.Root
	if opts.WithoutSizeLimit {
		cfg.SizeLimit = 0
	}
	if opts.SkipProcessed {
		cfg.SkipProcessed = true
	}
	if opts.Strategy != "" {
		cfg.Strategy = opts.Strategy
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.MetricsFile != "" {
		cfg.MetricsFile = opts.MetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return app.Usagef("%v", err)
	}

	log, err := app.NewLogger(cfg, "extract")
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs, err := batch.ListDatasets(cfg.Root)
	if err != nil {
		log.Error("Cannot start extraction", "err", err)
		return err
	}

	err = app.WithLock(ctx, cfg.Root, log, func(ctx context.Context) error {
		return extract(ctx, cfg, log, dirs)
	})
	if err != nil {
		log.Error("Extraction failed", "err", err)
	}
	return err
}

func extract(ctx context.Context, cfg config.Config, log *logger.Logger, dirs []string) error {
	strategy, err := stats.ParseStrategy(cfg.Strategy)
	if err != nil {
		return err
	}
	aggregator, err := stats.New(strategy)
	if err != nil {
		return err
	}

	m, err := metrics.New()
	if err != nil {
		return err
	}

	publisher, err := app.NewPublisher(ctx, cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to create publisher: %w", err)
	}

	processor := dataset.NewProcessor(dataset.NewProcessorParams{
		Aggregator:    aggregator,
		Source:        loaderio.NewFileSource(loaderio.NewFileSourceParams{}),
		SizeLimit:     cfg.SizeLimit,
		SkipProcessed: cfg.SkipProcessed,
		FileTimeout:   cfg.FileTimeout,
		Logger:        log,
		Publisher:     publisher,
		Metrics:       m,
	})
	driver := batch.NewDriver(batch.NewDriverParams{
		Processor: processor,
		Workers:   cfg.Workers,
		Logger:    log,
		Metrics:   m,
		Progress:  os.Stdout,
	})

	report, err := driver.Run(ctx, dirs)

	if cfg.MetricsFile != "" {
		if merr := m.WriteTextfile(cfg.MetricsFile); merr != nil {
			log.Warn("Failed to write metrics", "err", merr)
		}
	}
	if err != nil {
		return fmt.Errorf("interrupted after %d datasets: %w", report.Processed, err)
	}
	if report.Failed > 0 {
		log.Warn("Some datasets failed", "failed", report.Failed, "err", report.Err())
	}

	return nil
}
