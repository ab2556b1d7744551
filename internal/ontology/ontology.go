// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ontology provides read access to the Gene Ontology is_a
// hierarchy held in a GO RDF graph.
package ontology

import (
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/formats/rdf"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/kortschak/gogo"
	"github.com/kortschak/goldwasher/internal/owl"
)

// Term is a Gene Ontology term.
type Term struct {
	ID        string
	Name      string
	Namespace string
	Obsolete  bool
}

// Ontology is a Gene Ontology is_a hierarchy.
type Ontology struct {
	g *gogo.Graph
}

// Load returns the ontology held in the file at path. The file may be
// OBO in OWL RDF/XML (.owl) or N-Triples/N-Quads (.nt or .nq), and may
// be gzip compressed (.gz). Only the statements needed to navigate the
// is_a hierarchy and name terms are retained.
func Load(path string) (*Ontology, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	name := path
	if strings.HasSuffix(name, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		r = gz
		name = strings.TrimSuffix(name, ".gz")
	}

	var dec interface {
		Unmarshal() (*rdf.Statement, error)
	}
	switch {
	case strings.HasSuffix(name, ".owl"):
		dec = owl.NewDecoder(r)
	case strings.HasSuffix(name, ".nt"), strings.HasSuffix(name, ".nq"):
		dec = rdf.NewDecoder(r)
	default:
		return nil, fmt.Errorf("unknown ontology format: %s", path)
	}

	g := gogo.NewGraph()
	for {
		s, err := dec.Unmarshal()
		if err != nil {
			if err != io.EOF {
				return nil, fmt.Errorf("%s: %w", path, err)
			}
			break
		}
		s, ok := lean(s)
		if !ok {
			continue
		}
		g.AddStatement(s)
	}
	return &Ontology{g: g}, nil
}

// FromStatements returns an ontology built from the provided statements.
// Statements are filtered in the same way as by Load.
func FromStatements(statements []*rdf.Statement) *Ontology {
	g := gogo.NewGraph()
	for _, s := range statements {
		s, ok := lean(s)
		if ok {
			g.AddStatement(s)
		}
	}
	return &Ontology{g: g}
}

const (
	subClassOf = "<rdfs:subClassOf>"
	label      = "<rdfs:label>"
	namespace  = "<oboInOwl:hasOBONamespace>"
	deprecated = "<owl:deprecated>"
)

// lean returns a copy of s with compacted IRIs and unassigned UIDs if
// s is a statement needed by the Ontology methods.
func lean(s *rdf.Statement) (*rdf.Statement, bool) {
	pred := compact(s.Predicate)
	switch pred.Value {
	// This list must include all predicates used in queries.
	case subClassOf, label, namespace, deprecated:
	default:
		return nil, false
	}
	subj := compact(s.Subject)
	if !strings.HasPrefix(subj.Value, "<obo:GO_") {
		return nil, false
	}
	obj := compact(s.Object)
	if pred.Value == subClassOf && !strings.HasPrefix(obj.Value, "<obo:GO_") {
		// Restrictions are blank nodes and are not is_a edges.
		return nil, false
	}
	return &rdf.Statement{Subject: subj, Predicate: pred, Object: obj}, true
}

var prefixes = []struct {
	iri, local string
}{
	{iri: "http://purl.obolibrary.org/obo/", local: "obo:"},
	{iri: "http://www.w3.org/2000/01/rdf-schema#", local: "rdfs:"},
	{iri: "http://www.geneontology.org/formats/oboInOwl#", local: "oboInOwl:"},
	{iri: "http://www.w3.org/2002/07/owl#", local: "owl:"},
}

// compact returns t with a well-known IRI namespace replaced by its
// qualified name prefix. Literals lose their datatype and language
// qualifiers. The returned term has no UID.
func compact(t rdf.Term) rdf.Term {
	text, _, kind, err := t.Parts()
	if err != nil {
		return rdf.Term{Value: t.Value}
	}
	switch kind {
	case rdf.IRI:
		for _, p := range prefixes {
			if strings.HasPrefix(text, p.iri) {
				c, err := rdf.NewIRITerm(p.local + strings.TrimPrefix(text, p.iri))
				if err != nil {
					break
				}
				return c
			}
		}
	case rdf.Literal:
		c, err := rdf.NewLiteralTerm(text, "")
		if err == nil {
			return c
		}
	}
	return rdf.Term{Value: t.Value}
}

// ID returns the GO identifier for the term value v, for example
// GO:0008150 for <obo:GO_0008150>.
func ID(v string) string {
	return "GO:" + strings.TrimSuffix(strings.TrimPrefix(v, "<obo:GO_"), ">")
}

// value returns the term value for the GO identifier id.
func value(id string) string {
	return "<obo:GO_" + strings.TrimPrefix(id, "GO:") + ">"
}

// Term returns the term with the given GO identifier and whether it
// exists in the ontology.
func (o *Ontology) Term(id string) (Term, bool) {
	t, ok := o.g.TermFor(value(id))
	if !ok {
		return Term{}, false
	}
	term := Term{
		ID:        id,
		Name:      o.literal(t, label),
		Namespace: o.literal(t, namespace),
		Obsolete:  o.literal(t, deprecated) == "true",
	}
	return term, true
}

func (o *Ontology) literal(t rdf.Term, pred string) string {
	vals := o.g.Query(t).Out(func(s *rdf.Statement) bool {
		return s.Predicate.Value == pred
	}).Result()
	if len(vals) == 0 {
		return ""
	}
	text, _, kind, err := vals[0].Parts()
	if err != nil || kind != rdf.Literal {
		return ""
	}
	return text
}

// Parents returns the sorted GO identifiers of the is_a parents of the
// term with the given GO identifier.
func (o *Ontology) Parents(id string) []string {
	t, ok := o.g.TermFor(value(id))
	if !ok {
		return nil
	}
	parents := o.g.Query(t).Out(func(s *rdf.Statement) bool {
		return s.Predicate.Value == subClassOf
	}).Unique().Result()
	ids := make([]string, len(parents))
	for i, p := range parents {
		ids[i] = ID(p.Value)
	}
	sort.Strings(ids)
	return ids
}

// UnknownTermError is returned when a GO identifier is not present in
// the ontology.
type UnknownTermError struct {
	IDs []string
}

func (e UnknownTermError) Error() string {
	return fmt.Sprintf("terms not found in ontology: %s", strings.Join(e.IDs, ", "))
}

// Closure returns the sorted GO identifiers of the provided terms and
// all their is_a ancestors. If any identifier is not in the ontology an
// UnknownTermError listing the missing identifiers is returned.
func (o *Ontology) Closure(ids []string) ([]string, error) {
	var missing []string
	seen := make(map[string]bool)
	bf := traverse.BreadthFirst{
		Traverse: isSubClassOfGO,
		Visit: func(n graph.Node) {
			seen[ID(n.(rdf.Term).Value)] = true
		},
	}
	for _, id := range ids {
		t, ok := o.g.TermFor(value(id))
		if !ok {
			missing = append(missing, id)
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		bf.Walk(o.g, t, nil)
	}
	if len(missing) != 0 {
		sort.Strings(missing)
		return nil, UnknownTermError{IDs: missing}
	}
	closure := make([]string, 0, len(seen))
	for id := range seen {
		closure = append(closure, id)
	}
	sort.Strings(closure)
	return closure, nil
}

// isSubClassOfGO is a traverse edge filter. It accepts statements where
//
//  <obo:GO_* -- <rdfs:subClassOf> -> <obo:GO_*
//
// for out queries from a term.
func isSubClassOfGO(e graph.Edge) bool {
	return gogo.ConnectedByAny(e, func(s *rdf.Statement) bool {
		return s.Predicate.Value == subClassOf &&
			strings.HasPrefix(s.Object.Value, "<obo:GO_")
	})
}
