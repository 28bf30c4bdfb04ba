package io

import (
	"context"
	"fmt"
	"io"

	"github.com/knakk/rdf"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

func knakkFormat(format loader.Format) (rdf.Format, error) {
	switch format {
	case loader.FormatTurtle:
		return rdf.Turtle, nil
	case loader.FormatNTriples:
		return rdf.NTriples, nil
	case loader.FormatRDFXML:
		return rdf.RDFXML, nil
	default:
		var zero rdf.Format
		return zero, fmt.Errorf("%s: %w", format, loader.ErrUnsupportedFormat)
	}
}

func decodeTriples(ctx context.Context, r io.Reader, format loader.Format, handle loader.TripleHandler) error {
	f, err := knakkFormat(format)
	if err != nil {
		return err
	}

	dec := rdf.NewTripleDecoder(r, f)
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		t, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		converted, err := fromKnakk(t)
		if err != nil {
			return err
		}
		if err := handle(converted); err != nil {
			return err
		}
	}
}

// decodeQuads reads N-Quads and drops the graph label; statistics are
// computed over the union of all graphs in the file.
func decodeQuads(ctx context.Context, r io.Reader, handle loader.TripleHandler) error {
	dec := rdf.NewQuadDecoder(r, rdf.NQuads)
	for n := 0; ; n++ {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		q, err := dec.Decode()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		converted, err := fromKnakk(q.Triple)
		if err != nil {
			return err
		}
		if err := handle(converted); err != nil {
			return err
		}
	}
}

func fromKnakk(t rdf.Triple) (triple.Triple, error) {
	s, err := knakkTerm(t.Subj)
	if err != nil {
		return triple.Triple{}, err
	}
	p, err := knakkTerm(t.Pred)
	if err != nil {
		return triple.Triple{}, err
	}
	o, err := knakkTerm(t.Obj)
	if err != nil {
		return triple.Triple{}, err
	}
	return triple.Triple{Subject: s, Predicate: p, Object: o}, nil
}

func knakkTerm(term rdf.Term) (triple.Term, error) {
	switch v := term.(type) {
	case rdf.IRI:
		return triple.IRI(v.String()), nil
	case rdf.Blank:
		return triple.Blank(v.String()), nil
	case rdf.Literal:
		return triple.Literal(v.String(), v.DataType.String(), v.Lang()), nil
	case nil:
		return triple.Term{}, fmt.Errorf("missing term")
	default:
		return triple.Term{}, fmt.Errorf("unexpected term type %T", term)
	}
}
