package stats

import (
	"context"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

// Streaming computes statistics in a single pass without materializing the
// graph. Only the output lists and one counter per subject are held.
//
// Its definitions differ from WholeGraph: any predicate that looks like a
// type predicate counts as a class assertion, every subject and every
// non-literal object is an entity, and the per-subject counter counts all
// non-type statements of the subject.
type Streaming struct{}

func NewStreaming() *Streaming {
	return &Streaming{}
}

func (s *Streaming) Name() string {
	return string(StrategyStreaming)
}

func (s *Streaming) Aggregate(ctx context.Context, src loader.Source, path string) (Result, error) {
	res := newResult()
	counters := make(map[string]int)

	err := src.Triples(ctx, path, func(t triple.Triple) error {
		res.Entities = append(res.Entities, t.Subject.Label())

		if triple.LooksLikeType(t.Predicate.Value) {
			res.Classes = append(res.Classes, t.Object.Label())
			return nil
		}

		res.Properties = append(res.Properties, t.Predicate.Label())

		if t.Object.IsLiteral() {
			res.Literals = append(res.Literals, t.Object.Label())
		} else {
			res.Entities = append(res.Entities, t.Object.Label())
			res.Connections++
		}

		counters[t.Subject.Key()]++
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if len(counters) == 0 {
		return Result{}, ErrNoSubjects
	}

	total := 0
	for _, n := range counters {
		total += n
	}
	res.ConnectedVertices = len(counters)
	res.AverageLiteralsPerVertex = round3(float64(total) / float64(len(counters)))

	return res, nil
}
