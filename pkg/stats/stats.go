// Package stats computes the descriptive statistics of a single RDF file and
// merges per-file results into dataset-level totals.
//
// Two aggregators are available. WholeGraph materializes the file into an
// in-memory graph and answers each statistic with an aggregation query.
// Streaming performs one bounded pass over the triples and is meant for files
// too large for WholeGraph.
//
// Both preserve two narrow definitions on purpose: "entities" in WholeGraph are
// only the subjects of rdf:type statements, and the per-subject counter in
// Streaming counts every non-type statement of a subject, not only literal
// ones. Changing either changes published numbers.
package stats

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
)

var (
	ErrUnknownStrategy = errors.New("unknown extraction strategy")
	// ErrNoSubjects is returned by Streaming when the file had no subject
	// to average over.
	ErrNoSubjects = errors.New("no subjects to average literals over")
)

// Result holds the statistics of one file, or of a whole dataset after Merge.
type Result struct {
	Classes                  []string `json:"classes"`
	Literals                 []string `json:"literals"`
	Entities                 []string `json:"entities"`
	Properties               []string `json:"properties"`
	Connections              int      `json:"connections"`
	ConnectedVertices        int      `json:"connectedVertices"`
	AverageLiteralsPerVertex float64  `json:"averageLiteralsPerVertex"`
}

func newResult() Result {
	return Result{
		Classes:    []string{},
		Literals:   []string{},
		Entities:   []string{},
		Properties: []string{},
	}
}

// Aggregator computes a Result for the file at path.
type Aggregator interface {
	Name() string
	Aggregate(ctx context.Context, src loader.Source, path string) (Result, error)
}

type Strategy string

const (
	StrategyWholeGraph Strategy = "whole-graph"
	StrategyStreaming  Strategy = "streaming"
)

func ParseStrategy(value string) (Strategy, error) {
	switch Strategy(value) {
	case StrategyWholeGraph, "":
		return StrategyWholeGraph, nil
	case StrategyStreaming:
		return StrategyStreaming, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStrategy, value)
	}
}

// New returns the aggregator for strategy.
func New(strategy Strategy) (Aggregator, error) {
	switch strategy {
	case StrategyWholeGraph:
		return NewWholeGraph(), nil
	case StrategyStreaming:
		return NewStreaming(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownStrategy, strategy)
	}
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
