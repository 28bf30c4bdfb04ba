package stats

// Merge folds per-file results into one dataset result: lists are
// concatenated in argument order without de-duplication, connections and
// connected vertices are summed, and the average is the mean of the per-file
// averages (0 when there are no results).
func Merge(results ...Result) Result {
	merged := newResult()

	classes, literals, entities, properties := 0, 0, 0, 0
	for _, r := range results {
		classes += len(r.Classes)
		literals += len(r.Literals)
		entities += len(r.Entities)
		properties += len(r.Properties)
	}
	merged.Classes = make([]string, 0, classes)
	merged.Literals = make([]string, 0, literals)
	merged.Entities = make([]string, 0, entities)
	merged.Properties = make([]string, 0, properties)

	averages := make([]float64, 0, len(results))
	for _, r := range results {
		merged.Classes = append(merged.Classes, r.Classes...)
		merged.Literals = append(merged.Literals, r.Literals...)
		merged.Entities = append(merged.Entities, r.Entities...)
		merged.Properties = append(merged.Properties, r.Properties...)
		merged.Connections += r.Connections
		merged.ConnectedVertices += r.ConnectedVertices
		averages = append(averages, r.AverageLiteralsPerVertex)
	}
	merged.AverageLiteralsPerVertex = Mean(averages)

	return merged
}

// Mean returns the arithmetic mean of values, or 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
