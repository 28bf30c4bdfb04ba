package io

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/piprate/json-gold/ld"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

// decodeJSONLD expands the whole document to RDF before yielding triples;
// JSON-LD cannot be converted statement by statement.
func decodeJSONLD(ctx context.Context, r io.Reader, base string, handle loader.TripleHandler) error {
	var doc any
	dec := json.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("decode json-ld document: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	proc := ld.NewJsonLdProcessor()
	opts := ld.NewJsonLdOptions(base)

	out, err := proc.ToRDF(doc, opts)
	if err != nil {
		return fmt.Errorf("json-ld to rdf: %w", err)
	}
	dataset, ok := out.(*ld.RDFDataset)
	if !ok {
		return fmt.Errorf("json-ld to rdf: unexpected result %T", out)
	}

	// Graph iteration order must not depend on map order.
	graphs := make([]string, 0, len(dataset.Graphs))
	for name := range dataset.Graphs {
		graphs = append(graphs, name)
	}
	sort.Strings(graphs)

	n := 0
	for _, name := range graphs {
		for _, q := range dataset.Graphs[name] {
			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			t, err := fromLD(q)
			if err != nil {
				return err
			}
			if err := handle(t); err != nil {
				return err
			}
		}
	}
	return nil
}

func fromLD(q *ld.Quad) (triple.Triple, error) {
	s, err := ldTerm(q.Subject)
	if err != nil {
		return triple.Triple{}, err
	}
	p, err := ldTerm(q.Predicate)
	if err != nil {
		return triple.Triple{}, err
	}
	o, err := ldTerm(q.Object)
	if err != nil {
		return triple.Triple{}, err
	}
	return triple.Triple{Subject: s, Predicate: p, Object: o}, nil
}

// ldTerm converts a json-gold node. ToRDF yields value types; pointers are
// accepted as well.
func ldTerm(node ld.Node) (triple.Term, error) {
	switch v := node.(type) {
	case ld.IRI:
		return triple.IRI(v.Value), nil
	case ld.BlankNode:
		return triple.Blank(v.Attribute), nil
	case ld.Literal:
		return triple.Literal(v.Value, v.Datatype, v.Language), nil
	case *ld.IRI:
		return triple.IRI(v.Value), nil
	case *ld.BlankNode:
		return triple.Blank(v.Attribute), nil
	case *ld.Literal:
		return triple.Literal(v.Value, v.Datatype, v.Language), nil
	default:
		return triple.Term{}, fmt.Errorf("unexpected json-ld node %T", node)
	}
}
