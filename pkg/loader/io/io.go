package io

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
)

const (
	readBufferSize = 1 << 20
	// ctxCheckInterval bounds how many triples are decoded between two
	// cancellation checks.
	ctxCheckInterval = 4096
)

// FileSource reads dataset files from the local filesystem and decodes them
// with the parser matching their extension. Parsing is sequential and
// streams triples to the handler as they are decoded.
//
// Decoder calls themselves are not interruptible: cancellation is only
// observed between two triples, so a parser stuck inside a single statement
// blocks the caller until it returns.
type FileSource struct {
	jsonLDBase string
}

// NewFileSourceParams configures a FileSource.
//
// JSONLDBase is the base IRI used to resolve relative IRIs in JSON-LD
// documents. When empty the file URI of the document is used.
type NewFileSourceParams struct {
	JSONLDBase string
}

// NewFileSource creates a new filesystem-based triple source.
func NewFileSource(params NewFileSourceParams) *FileSource {
	return &FileSource{
		jsonLDBase: params.JSONLDBase,
	}
}

// Triples decodes path and passes every triple to handle.
func (s *FileSource) Triples(ctx context.Context, path string, handle loader.TripleHandler) (err error) {
	format, err := loader.FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	// Third-party decoders may panic on malformed input; surface it as a
	// parse failure of this file only.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic in %s: %v", filepath.Base(path), r)
		}
	}()

	r := bufio.NewReaderSize(f, readBufferSize)

	switch format {
	case loader.FormatTurtle, loader.FormatNTriples, loader.FormatRDFXML:
		err = decodeTriples(ctx, r, format, handle)
	case loader.FormatNQuads:
		err = decodeQuads(ctx, r, handle)
	case loader.FormatJSONLD:
		err = decodeJSONLD(ctx, r, s.baseFor(path), handle)
	case loader.FormatTriX:
		err = decodeTriX(ctx, r, handle)
	default:
		// TriG has no decoder: .trig files always end up in unusedFiles
		// with an extraction failure.
		err = fmt.Errorf("%s (%s): %w", filepath.Base(path), format, loader.ErrUnsupportedFormat)
	}
	if err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (s *FileSource) baseFor(path string) string {
	if s.jsonLDBase != "" {
		return s.jsonLDBase
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return ""
	}
	return "file://" + filepath.ToSlash(abs)
}
