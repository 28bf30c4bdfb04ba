// Package stream is the re-pass over files the batch run left unused because
// they exceeded the size ceiling. Each file is aggregated in one bounded pass
// and patched into its dataset's sidecar without touching the rest of the
// record.
//
// The re-pass must not run while a batch run works on the same root; the
// command line tools take a shared run lock for that.
package stream

import (
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/OFFIS-RIT/lodstats/internal/dataset"
	"github.com/OFFIS-RIT/lodstats/pkg/classify"
	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/logger"
	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
)

// Item is one file waiting for the re-pass.
type Item struct {
	Dataset string
	Dir     string
	File    string
	Size    int64
	Reason  string
}

func (i Item) Path() string {
	return filepath.Join(i.Dir, i.File)
}

type BuildQueueParams struct {
	// Threshold selects files larger than this many bytes. With 0 the
	// recorded "too large" reason decides instead.
	Threshold int64
	// IncludeFailed also queues files whose whole-graph extraction failed.
	IncludeFailed bool
	Logger        *logger.Logger
}

// BuildQueue scans the sidecars of dirs in order and returns the files to
// re-process, first in first out. Datasets without a readable sidecar are
// logged and left out.
func BuildQueue(dirs []string, params BuildQueueParams) []Item {
	queue := make([]Item, 0)

	for _, dir := range dirs {
		name := filepath.Base(dir)

		record, err := metadata.Read(dir)
		if err != nil {
			params.Logger.Warn("Skipping dataset", "dataset", name, "err", err)
			continue
		}
		summary, err := record.Summary()
		if err != nil {
			params.Logger.Warn("Skipping dataset", "dataset", name, "err", err)
			continue
		}

		for _, file := range summary.UnusedFiles {
			if !slices.Contains(loader.Extensions, classify.Extension(file)) {
				continue
			}
			info, err := os.Stat(filepath.Join(dir, file))
			if errors.Is(err, os.ErrNotExist) {
				params.Logger.Warn("Unused file vanished", "dataset", name, "file", file)
				continue
			}
			if err != nil || !info.Mode().IsRegular() {
				continue
			}

			reason := summary.UnusedReasons[file]
			if !wanted(info.Size(), reason, params) {
				continue
			}
			queue = append(queue, Item{
				Dataset: name,
				Dir:     dir,
				File:    file,
				Size:    info.Size(),
				Reason:  reason,
			})
		}
	}

	return queue
}

func wanted(size int64, reason string, params BuildQueueParams) bool {
	if params.Threshold > 0 && size > params.Threshold {
		return true
	}
	if params.Threshold <= 0 && reason == string(classify.ReasonTooLarge) {
		return true
	}
	return params.IncludeFailed && strings.HasPrefix(reason, dataset.FailureReasonPrefix)
}
