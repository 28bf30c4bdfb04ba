package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	flags "github.com/jessevdk/go-flags"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OFFIS-RIT/lodstats/internal/config"
	"github.com/OFFIS-RIT/lodstats/pkg/leaselock"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"success", nil, ExitOK},
		{"help", &flags.Error{Type: flags.ErrHelp, Message: "usage"}, ExitOK},
		{"usage", Usagef("bad flag %q", "--x"), ExitUsage},
		{"wrapped usage", fmt.Errorf("parse: %w", ErrUsage), ExitUsage},
		{"other", errors.New("boom"), ExitError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExitCode(tt.err))
		})
	}
}

func TestUsagef(t *testing.T) {
	err := Usagef("missing %s", "root")
	assert.ErrorIs(t, err, ErrUsage)
	assert.Contains(t, err.Error(), "missing root")
}

func TestWithLock(t *testing.T) {
	root := t.TempDir()
	ctx := context.Background()

	ran := false
	err := WithLock(ctx, root, logger.Discard(), func(ctx context.Context) error {
		ran = true
		err := WithLock(ctx, root, logger.Discard(), func(context.Context) error {
			t.Fatal("second run must not start while the lock is held")
			return nil
		})
		assert.ErrorIs(t, err, leaselock.ErrBusy)
		assert.Contains(t, err.Error(), ".lodstats.lock")
		return nil
	})
	require.NoError(t, err)
	assert.True(t, ran)

	_, err = os.Stat(filepath.Join(root, ".lodstats.lock"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	require.NoError(t, WithLock(ctx, root, logger.Discard(), func(context.Context) error { return nil }))
}

func TestWithLockReturnsRunError(t *testing.T) {
	boom := errors.New("boom")
	err := WithLock(context.Background(), t.TempDir(), logger.Discard(), func(context.Context) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNewPublisherDisabled(t *testing.T) {
	p, err := NewPublisher(context.Background(), config.S3Config{})
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestNewLoggerWithoutFile(t *testing.T) {
	log, err := NewLogger(config.Config{}, "test")
	require.NoError(t, err)
	assert.NoError(t, log.Close())
}
