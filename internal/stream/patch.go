package stream

import (
	"errors"
	"fmt"
	"slices"

	"github.com/OFFIS-RIT/lodstats/pkg/metadata"
	"github.com/OFFIS-RIT/lodstats/pkg/stats"
)

var ErrNotUnused = errors.New("file is not listed as unused")

// Patch moves file from the unused to the used files of r and adds res to
// the dataset totals. Lists are appended, counts are added and the average
// becomes the mean over all used files including this one. The file sets
// and the totals change in the same write.
func Patch(r *metadata.Record, file string, size int64, extractedWith string, res stats.Result) error {
	s, err := r.Summary()
	if err != nil {
		return err
	}

	i := slices.Index(s.UnusedFiles, file)
	if i < 0 {
		return fmt.Errorf("%s: %w", file, ErrNotUnused)
	}
	s.UnusedFiles = slices.Delete(s.UnusedFiles, i, i+1)
	delete(s.UnusedReasons, file)

	n := len(s.UsedFiles)
	s.UsedFiles = append(s.UsedFiles, file)
	s.Extracted = append(s.Extracted, metadata.NewExtraction(file, size, extractedWith, res))

	s.Classes = append(s.Classes, res.Classes...)
	s.Literals = append(s.Literals, res.Literals...)
	s.Entities = append(s.Entities, res.Entities...)
	s.Properties = append(s.Properties, res.Properties...)
	s.Connections += res.Connections
	s.ConnectedVertices += res.ConnectedVertices
	s.AverageLiteralsPerVertex = (s.AverageLiteralsPerVertex*float64(n) + res.AverageLiteralsPerVertex) / float64(n+1)

	return r.SetSummary(s)
}
