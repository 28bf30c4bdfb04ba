package io

import (
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/OFFIS-RIT/lodstats/pkg/loader"
	"github.com/OFFIS-RIT/lodstats/pkg/triple"
)

type trixNode struct {
	Value    string `xml:",chardata"`
	Lang     string `xml:"http://www.w3.org/XML/1998/namespace lang,attr"`
	Datatype string `xml:"datatype,attr"`
}

// decodeTriX reads TriX documents token by token. Graph names are ignored
// like in N-Quads.
func decodeTriX(ctx context.Context, r io.Reader, handle loader.TripleHandler) error {
	dec := xml.NewDecoder(r)

	inTriple := false
	terms := make([]triple.Term, 0, 3)
	n := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			if inTriple {
				return fmt.Errorf("trix: unexpected end of document inside triple")
			}
			return nil
		}
		if err != nil {
			return err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "triple":
				inTriple = true
				terms = terms[:0]
			case "uri", "id", "plainLiteral", "typedLiteral":
				if !inTriple {
					if err := dec.Skip(); err != nil {
						return err
					}
					continue
				}
				var node trixNode
				if err := dec.DecodeElement(&node, &el); err != nil {
					return err
				}
				terms = append(terms, node.term(el.Name.Local))
			}
		case xml.EndElement:
			if el.Name.Local != "triple" {
				continue
			}
			inTriple = false
			if len(terms) != 3 {
				return fmt.Errorf("trix: triple with %d terms", len(terms))
			}

			if n%ctxCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}
			n++

			t := triple.Triple{Subject: terms[0], Predicate: terms[1], Object: terms[2]}
			if err := handle(t); err != nil {
				return err
			}
		}
	}
}

func (n trixNode) term(element string) triple.Term {
	switch element {
	case "uri":
		return triple.IRI(strings.TrimSpace(n.Value))
	case "id":
		return triple.Blank(strings.TrimSpace(n.Value))
	case "typedLiteral":
		return triple.Literal(n.Value, n.Datatype, "")
	default:
		return triple.Literal(n.Value, "", n.Lang)
	}
}
