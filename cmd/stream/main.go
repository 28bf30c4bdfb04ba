package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/OFFIS-RIT/lodstats/internal/app"
	"github.com/OFFIS-RIT/lodstats/internal/batch"
	"github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/internal/metrics"
	"github.com/OFFIS-RIT/lodstats/internal/stream"
	"github.com/OFFIS-RIT/lodstats/internal/util"
	loaderio "github.com/OFFIS-RIT/lodstats/pkg/loader/io"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
)

type options struct {
	Threshold     int64  `long:"threshold" description:"Re-process files larger than this many bytes (default: LODSTATS_STREAMING_THRESHOLD)"`
	IncludeFailed bool   `long:"include-failed" description:"Also re-process files whose extraction failed"`
	MetricsFile   string `long:"metrics-file" description:"Write run metrics in Prometheus text format to this file"`

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
	if opts.Threshold > 0 {
		cfg.StreamingThreshold = opts.Threshold
	}
	if opts.MetricsFile != "" {
		cfg.MetricsFile = opts.MetricsFile
	}
	if err := cfg.Validate(); err != nil {
		return app.Usagef("%v", err)
	}

	log, err := app.NewLogger(cfg, "stream")
	if err != nil {
		return err
	}
	defer log.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dirs, err := batch.ListDatasets(cfg.Root)
	if err != nil {
		log.Error("Cannot start streaming pass", "err", err)
		return err
	}

	err = app.WithLock(ctx, cfg.Root, log, func(ctx context.Context) error {
		return repass(ctx, cfg, opts.IncludeFailed, log, dirs)
	})
	if err != nil {
		log.Error("Streaming pass failed", "err", err)
	}
	return err
}

func repass(ctx context.Context, cfg config.Config, includeFailed bool, log *logger.Logger, dirs []string) error {
	m, err := metrics.New()
	if err != nil {
		return err
	}

	queue := stream.BuildQueue(dirs, stream.BuildQueueParams{
		Threshold:     cfg.StreamingThreshold,
		IncludeFailed: includeFailed,
		Logger:        log,
	})
	log.Info("Built streaming queue", "files", len(queue), "threshold", cfg.StreamingThreshold)

	runner := stream.NewRunner(stream.NewRunnerParams{
		Source:  loaderio.NewFileSource(loaderio.NewFileSourceParams{}),
		Logger:  log,
		Metrics: m,
	})

	start := time.Now()
	report, err := runner.Run(ctx, queue)
	m.Run(time.Since(start))

	if cfg.MetricsFile != "" {
		if merr := m.WriteTextfile(cfg.MetricsFile); merr != nil {
			log.Warn("Failed to write metrics", "err", merr)
		}
	}
	if err != nil {
		return fmt.Errorf("interrupted after %d files: %w", report.Patched, err)
	}

	log.Info("Streaming pass finished", "queued", report.Queued, "patched", report.Patched, "failed", report.Failed)
	if report.Failed > 0 {
		log.Warn("Some files failed", "err", report.Err())
	}
	return nil
}
