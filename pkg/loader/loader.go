package loader

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

type Format string

const (
	FormatTurtle   Format = "turtle"
	FormatNTriples Format = "ntriples"
	FormatRDFXML   Format = "rdfxml"
	FormatNQuads   Format = "nquads"
	FormatJSONLD   Format = "jsonld"
	FormatTriX     Format = "trix"
	FormatTriG     Format = "trig"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported RDF format")
	ErrUnknownExtension  = errors.New("file does not match any of the allowed extensions")
)

// Extensions lists the file extensions a dataset file may carry to be
// considered for extraction.
var Extensions = []string{"rdf", "ttl", "owl", "n3", "nt", "jsonld", "nq", "trig", "trix"}

var extensionFormats = map[string]Format{
	"rdf":    FormatRDFXML,
	"owl":    FormatRDFXML,
	"ttl":    FormatTurtle,
	"n3":     FormatTurtle,
	"nt":     FormatNTriples,
	"nq":     FormatNQuads,
	"jsonld": FormatJSONLD,
	"trix":   FormatTriX,
	"trig":   FormatTriG,
}

// FormatFromPath resolves the serialization of a dataset file from its
// suffix. An exact match wins; otherwise the last recognized extension
// contained in the suffix is used, so "data.ttl_1" still parses as Turtle.
func FormatFromPath(path string) (Format, error) {
	suffix := strings.TrimPrefix(filepath.Ext(path), ".")
	if f, ok := extensionFormats[suffix]; ok {
		return f, nil
	}

	found := ""
	for _, ext := range Extensions {
		if suffix != "" && strings.Contains(suffix, ext) {
			found = ext
		}
	}
	if found == "" {
		return "", fmt.Errorf("%s: %w", filepath.Base(path), ErrUnknownExtension)
	}
	return extensionFormats[found], nil
}

// TripleHandler receives triples in push mode. Returning an error stops
// the iteration and the error is passed through to the caller.
type TripleHandler func(triple.Triple) error

// Source yields every triple of the file at path, or fails. Implementations
// differ only in how they read, never in what they yield.
type Source interface {
	Triples(ctx context.Context, path string, handle TripleHandler) error
}

// SourceFunc adapts a function to a Source.
type SourceFunc func(ctx context.Context, path string, handle TripleHandler) error

func (f SourceFunc) Triples(ctx context.Context, path string, handle TripleHandler) error {
	return f(ctx, path, handle)
}

// Collect materializes all triples of path in memory.
func Collect(ctx context.Context, src Source, path string) ([]triple.Triple, error) {
	triples := make([]triple.Triple, 0, 1024)
	err := src.Triples(ctx, path, func(t triple.Triple) error {
		triples = append(triples, t)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return triples, nil
}

// StaticSource serves fixed triple sets keyed by path. Paths without an
// entry yield ErrUnsupportedFormat, and entries in Errors fail with the
// given error.
type StaticSource struct {
	Graphs map[string][]triple.Triple
	Errors map[string]error
}

func (s StaticSource) Triples(ctx context.Context, path string, handle TripleHandler) error {
	if err, ok := s.Errors[path]; ok {
		return err
	}
	triples, ok := s.Graphs[path]
	if !ok {
		return fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
	for _, t := range triples {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := handle(t); err != nil {
			return err
		}
	}
	return nil
}
