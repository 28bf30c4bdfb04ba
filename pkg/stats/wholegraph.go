package stats

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

// WholeGraph loads a complete file into an in-memory graph and derives each
// statistic with its own aggregation query. Memory grows with the file, so
// callers bound it with a size ceiling.
type WholeGraph struct{}

func NewWholeGraph() *WholeGraph {
	return &WholeGraph{}
}

func (w *WholeGraph) Name() string {
	return string(StrategyWholeGraph)
}

func (w *WholeGraph) Aggregate(ctx context.Context, src loader.Source, path string) (Result, error) {
	g, err := openGraphStore(ctx)
	if err != nil {
		return Result{}, err
	}
	defer g.Close()

	err = src.Triples(ctx, path, func(t triple.Triple) error {
		return g.Add(ctx, t)
	})
	if err != nil {
		return Result{}, err
	}
	if err := g.Seal(); err != nil {
		return Result{}, fmt.Errorf("failed to load graph: %w", err)
	}

	return queryGraph(ctx, g)
}

func queryGraph(ctx context.Context, g *graphStore) (Result, error) {
	res := newResult()
	var err error

	if res.Classes, err = g.strings(ctx, classesSQL, triple.IRI(triple.RDFType).Key()); err != nil {
		return Result{}, fmt.Errorf("classes: %w", err)
	}
	if res.Literals, err = g.strings(ctx, literalsSQL); err != nil {
		return Result{}, fmt.Errorf("literals: %w", err)
	}
	// Entities are the typed subjects only, not every subject of the graph.
	if res.Entities, err = g.strings(ctx, typedEntitiesSQL, triple.IRI(triple.RDFType).Key()); err != nil {
		return Result{}, fmt.Errorf("entities: %w", err)
	}
	if res.Properties, err = g.strings(ctx, propertiesSQL); err != nil {
		return Result{}, fmt.Errorf("properties: %w", err)
	}
	if res.Connections, err = g.count(ctx, connectionsSQL); err != nil {
		return Result{}, fmt.Errorf("connections: %w", err)
	}
	if res.ConnectedVertices, err = g.count(ctx, connectedVerticesSQL); err != nil {
		return Result{}, fmt.Errorf("connected vertices: %w", err)
	}

	var vertices, literals int
	if err := g.conn.QueryRowContext(ctx, literalDegreeSQL).Scan(&vertices, &literals); err != nil {
		return Result{}, fmt.Errorf("literals per vertex: %w", err)
	}
	if vertices > 0 {
		res.AverageLiteralsPerVertex = round3(float64(literals) / float64(vertices))
	}

	return res, nil
}
