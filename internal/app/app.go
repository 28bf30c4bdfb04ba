// Package app wires the shared pieces of the command line tools: flags,
// logging, the run lock and optional publishing.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"

	flags "github.com/jessevdk/go-flags"

	"github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/internal/dataset"
	"github.com/OFFIS-RIT/lodstats/internal/storage"
	"github.com/OFFIS-RIT/lodstats/pkg/leaselock"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
	"github.com/OFFIS-RIT/lodstats/pkg/logger/console"
	"github.com/OFFIS-RIT/lodstats/pkg/logger/file"
)

// Exit codes.
const (
	ExitOK    = 0
	ExitError = 1
	ExitUsage = 2
)

// LockKey names the run lock shared by extract and stream. It lives in the
// root folder as .lodstats.lock.
const LockKey = "lodstats"

var ErrUsage = errors.New("usage error")

// ParseFlags parses os.Args into opts. Help output is reported as
// flags.ErrHelp so callers can exit successfully.
func ParseFlags(opts any) error {
	parser := flags.NewParser(opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return flagsErr
		}
		return fmt.Errorf("%w: %v", ErrUsage, err)
	}
	return nil
}

// ExitCode maps the error of a run to a process exit code.
func ExitCode(err error) int {
	var flagsErr *flags.Error
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp:
		return ExitOK
	case errors.Is(err, ErrUsage):
		return ExitUsage
	default:
		return ExitError
	}
}

// NewLogger creates the run logger: console output and, if cfg.LogFile is
// set, a log file truncated for this run.
func NewLogger(cfg config.Config, command string) (*logger.Logger, error) {
	instances := []logger.LoggerInstance{
		console.NewConsoleLogger(console.ConsoleLoggerParams{
			Debug:  cfg.Debug,
			Prefix: command,
		}),
	}

	if cfg.LogFile != "" {
		fl, err := file.NewFileLogger(file.FileLoggerParams{
			Path:  cfg.LogFile,
			Debug: cfg.Debug,
		})
		if err != nil {
			return nil, err
		}
		instances = append(instances, fl)
	}

	return logger.New(instances...), nil
}

// WithLock runs fn while holding the run lock of root. The context passed to
// fn is canceled when the lease is lost or ctx is done. A lock held by
// another run fails with leaselock.ErrBusy.
func WithLock(ctx context.Context, root string, log *logger.Logger, fn func(ctx context.Context) error) error {
	client := leaselock.New(root)
	err := client.WithLease(ctx, LockKey, leaselock.Options{}, func(ctx context.Context) error {
		log.Debug("Acquired run lock", "path", client.Path(LockKey))
		return fn(ctx)
	})
	if errors.Is(err, leaselock.ErrBusy) {
		if holder, herr := client.Holder(LockKey); herr == nil {
			return fmt.Errorf("another run holds %s (%s): %w", client.Path(LockKey), holder, err)
		}
		return fmt.Errorf("another run holds %s: %w", client.Path(LockKey), err)
	}
	return err
}

// NewPublisher returns nil when publishing is not configured.
func NewPublisher(ctx context.Context, cfg config.S3Config) (dataset.Publisher, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	client, err := storage.NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return storage.NewPublisher(storage.NewPublisherParams{
		Client: client,
		Bucket: cfg.Bucket,
		Prefix: cfg.Prefix,
	}), nil
}

// Usagef reports a usage error on stderr.
func Usagef(format string, args ...any) error {
	err := fmt.Errorf("%w: "+format, append([]any{ErrUsage}, args...)...)
	fmt.Fprintln(os.Stderr, err)
	return err
}
