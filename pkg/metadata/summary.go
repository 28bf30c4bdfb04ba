package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/lodstats/pkg/stats"
)

// Summary holds every field of the sidecar written by the extractor.
type Summary struct {
	UsableFiles   []string          `json:"usableFiles"`
	UsedFiles     []string          `json:"usedFiles"`
	UnusedFiles   []string          `json:"unusedFiles"`
	UnusedReasons map[string]string `json:"unusedReasons"`
	stats.Result
	Extracted []Extraction `json:"extracted"`
}

// Extraction describes the contribution of one file to the dataset totals.
type Extraction struct {
	File                     string  `json:"file"`
	FileSize                 int64   `json:"fileSize"`
	ExtractedWith            string  `json:"extractedWith"`
	Classes                  Count   `json:"classes"`
	Literals                 Count   `json:"literals"`
	Entities                 Count   `json:"entities"`
	Properties               Count   `json:"properties"`
	Connections              int     `json:"connections"`
	ConnectedVertices        int     `json:"connectedVertices"`
	AverageLiteralsPerVertex float64 `json:"averageLiteralsPerVertex"`
}

func NewExtraction(file string, size int64, extractedWith string, r stats.Result) Extraction {
	return Extraction{
		File:                     file,
		FileSize:                 size,
		ExtractedWith:            extractedWith,
		Classes:                  Count(len(r.Classes)),
		Literals:                 Count(len(r.Literals)),
		Entities:                 Count(len(r.Entities)),
		Properties:               Count(len(r.Properties)),
		Connections:              r.Connections,
		ConnectedVertices:        r.ConnectedVertices,
		AverageLiteralsPerVertex: r.AverageLiteralsPerVertex,
	}
}

// Count is a list length. Older sidecars stored the full lists per file, so
// an array decodes to its length.
type Count int

func (c *Count) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		*c = Count(len(items))
		return nil
	}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n int
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*c = Count(n)
	return nil
}

// ownedKeys lists the fields of Summary in the order they are written.
var ownedKeys = []string{
	"usableFiles",
	"usedFiles",
	"unusedFiles",
	"unusedReasons",
	"classes",
	"literals",
	"entities",
	"properties",
	"connections",
	"connectedVertices",
	"averageLiteralsPerVertex",
	"extracted",
}

// legacyKeys maps field names of older sidecars to their current names.
var legacyKeys = map[string]string{
	"usable_files":                "usableFiles",
	"used_files":                  "usedFiles",
	"unused_files":                "unusedFiles",
	"connected_vertices":          "connectedVertices",
	"average_literals_per_vertex": "averageLiteralsPerVertex",
}

// Processed reports whether the extractor already wrote its fields.
func (r *Record) Processed() bool {
	return r.Has("usedFiles") || r.Has("used_files") || r.Has("extracted")
}

// Summary decodes the extractor fields of r. Legacy snake_case names are
// read when the current name is absent.
func (r *Record) Summary() (Summary, error) {
	owned := make(map[string]json.RawMessage, len(ownedKeys))
	for legacy, current := range legacyKeys {
		if raw, ok := r.Raw(legacy); ok {
			owned[current] = raw
		}
	}
	for _, key := range ownedKeys {
		if raw, ok := r.Raw(key); ok {
			owned[key] = raw
		}
	}

	data, err := json.Marshal(owned)
	if err != nil {
		return Summary{}, err
	}
	var s Summary
	if err := json.Unmarshal(data, &s); err != nil {
		return Summary{}, fmt.Errorf("failed to decode extraction fields: %w", err)
	}
	s.normalize()

	return s, nil
}

// SetSummary writes the extractor fields into r. Existing fields keep their
// position, new ones are appended, and legacy duplicates are removed.
func (r *Record) SetSummary(s Summary) error {
	s.normalize()

	raw, err := marshal(s)
	if err != nil {
		return err
	}
	encoded, err := parseObject(raw)
	if err != nil {
		return err
	}

	for _, f := range encoded.fields {
		r.setRaw(f.key, f.value)
	}
	for legacy := range legacyKeys {
		r.Delete(legacy)
	}

	return nil
}

func (s *Summary) normalize() {
	if s.UsableFiles == nil {
		s.UsableFiles = []string{}
	}
	if s.UsedFiles == nil {
		s.UsedFiles = []string{}
	}
	if s.UnusedFiles == nil {
		s.UnusedFiles = []string{}
	}
	if s.UnusedReasons == nil {
		s.UnusedReasons = map[string]string{}
	}
	if s.Classes == nil {
		s.Classes = []string{}
	}
	if s.Literals == nil {
		s.Literals = []string{}
	}
	if s.Entities == nil {
		s.Entities = []string{}
	}
	if s.Properties == nil {
		s.Properties = []string{}
	}
	if s.Extracted == nil {
		s.Extracted = []Extraction{}
	}
}
