package triple

import (
	"strings"
)

// RDFType is the IRI of the rdf:type predicate ("a" in Turtle).
const RDFType = "http://www.w3.org/1999/02/22-rdf-syntax-ns#type"

// Kind identifies the kind of an RDF term.
type Kind uint8

const (
	KindIRI Kind = iota
	KindBlank
	KindLiteral
)

func (k Kind) String() string {
	switch k {
	case KindIRI:
		return "iri"
	case KindBlank:
		return "blank"
	case KindLiteral:
		return "literal"
	default:
		return "unknown"
	}
}

// Term is a single RDF node. Value holds the IRI, the blank node label
// (without the "_:" prefix) or the lexical form of a literal.
type Term struct {
	Kind     Kind
	Value    string
	Datatype string
	Lang     string
}

// Triple is a (subject, predicate, object) statement.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
}

func IRI(value string) Term {
	return Term{Kind: KindIRI, Value: value}
}

func Blank(id string) Term {
	return Term{Kind: KindBlank, Value: strings.TrimPrefix(id, "_:")}
}

func Literal(lexical, datatype, lang string) Term {
	return Term{Kind: KindLiteral, Value: lexical, Datatype: datatype, Lang: lang}
}

// IsLiteral reports whether the term is a raw value rather than a node reference.
func (t Term) IsLiteral() bool {
	return t.Kind == KindLiteral
}

// Raw returns the unnormalized string form used for labels.
func (t Term) Raw() string {
	if t.Kind == KindBlank {
		return "_:" + t.Value
	}
	return t.Value
}

// Label returns the cleaned form stored in the dataset record.
func (t Term) Label() string {
	return Clean(t.Raw())
}

// Key identifies a term across kinds, so that the IRI "x" and the literal
// "x" never compare equal.
func (t Term) Key() string {
	switch t.Kind {
	case KindIRI:
		return "<" + t.Value + ">"
	case KindBlank:
		return "_:" + t.Value
	default:
		var b strings.Builder
		b.Grow(len(t.Value) + len(t.Datatype) + len(t.Lang) + 8)
		b.WriteByte('"')
		b.WriteString(t.Value)
		b.WriteByte('"')
		if t.Lang != "" {
			b.WriteByte('@')
			b.WriteString(t.Lang)
		} else if t.Datatype != "" {
			b.WriteString("^^<")
			b.WriteString(t.Datatype)
			b.WriteByte('>')
		}
		return b.String()
	}
}

// IsTypeAssertion reports whether the triple is an exact rdf:type statement.
func (t Triple) IsTypeAssertion() bool {
	return t.Predicate.Kind == KindIRI && t.Predicate.Value == RDFType
}

// LooksLikeType is the looser predicate test of the streaming aggregator:
// any predicate containing "type" (case-insensitive) or equal to "a".
func LooksLikeType(predicate string) bool {
	p := strings.ToLower(predicate)
	return p == "a" || strings.Contains(p, "type")
}
