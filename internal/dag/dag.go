// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package dag builds styled Gene Ontology subgraphs for enrichment
// results.
package dag

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"unicode/utf8"

	"gonum.org/v1/gonum/graph/encoding"
	"gonum.org/v1/gonum/graph/encoding/dot"
	"gonum.org/v1/gonum/graph/simple"

	"github.com/kortschak/goldwasher/internal/enrich"
	"github.com/kortschak/goldwasher/internal/ontology"
)

// ErrNoSignificantTerms is returned by Build when no row of the table
// passes the significance threshold.
var ErrNoSignificantTerms = errors.New("no significant terms")

// RootError is returned by Build when the is_a closure of the
// significant terms does not have exactly one root.
type RootError struct {
	Roots []string
}

func (e RootError) Error() string {
	if len(e.Roots) == 0 {
		return "no root term in closure"
	}
	return fmt.Sprintf("multiple root terms in closure: %s", strings.Join(e.Roots, ", "))
}

// Subgraph is the is_a closure of a set of significant terms. Edges are
// directed from child to parent so the root is the single sink.
type Subgraph struct {
	*simple.DirectedGraph

	// Root is the GO identifier of the sink term.
	Root string
	// Terms is the sorted set of GO identifiers in the graph.
	Terms []string

	significant []string
	nodes       map[string]*node
}

// Build returns the subgraph of ont spanned by the rows of table with
// p-values less than alpha and all their is_a ancestors. Terms that
// are not in the ontology result in an ontology.UnknownTermError and
// closures without a unique root result in a RootError.
func Build(ont *ontology.Ontology, table *enrich.Table, alpha float64) (*Subgraph, error) {
	rows := table.Significant(alpha)
	if len(rows) == 0 {
		return nil, ErrNoSignificantTerms
	}
	sig := make(map[string]enrich.Row, len(rows))
	for _, r := range rows {
		sig[r.ID] = r
	}
	ids := enrich.IDs(rows)
	closure, err := ont.Closure(ids)
	if err != nil {
		return nil, err
	}

	parents := make(map[string][]string, len(closure))
	var roots []string
	for _, id := range closure {
		p := ont.Parents(id)
		parents[id] = p
		if len(p) == 0 {
			roots = append(roots, id)
		}
	}
	if len(roots) != 1 {
		return nil, RootError{Roots: roots}
	}

	g := &Subgraph{
		DirectedGraph: simple.NewDirectedGraph(),
		Root:          roots[0],
		Terms:         closure,
		significant:   ids,
		nodes:         make(map[string]*node, len(closure)),
	}
	for i, id := range closure {
		term, _ := ont.Term(id)
		if term.Name == "" {
			term.Name = id
		}
		n := &node{id: int64(i), term: term, root: id == g.Root}
		if r, ok := sig[id]; ok {
			n.row = &r
		}
		g.nodes[id] = n
		g.AddNode(n)
	}
	for _, id := range closure {
		for _, p := range parents[id] {
			g.SetEdge(g.NewEdge(g.nodes[id], g.nodes[p]))
		}
	}
	return g, nil
}

// Significant returns the GO identifiers of the significant terms in
// the order they appear in the enrichment table.
func (g *Subgraph) Significant() []string {
	return g.significant
}

// DOTAttributers implements the dot.Attributers interface.
func (g *Subgraph) DOTAttributers() (graph, node, edge encoding.Attributer) {
	return attributes{{Key: "rankdir", Value: "BT"}}, attributes{}, attributes{}
}

// MarshalDOT returns the DOT description of the styled subgraph.
func (g *Subgraph) MarshalDOT() ([]byte, error) {
	return dot.Marshal(g, "", "", "  ")
}

// WriteDOT writes the DOT description of the styled subgraph to path.
func (g *Subgraph) WriteDOT(path string) error {
	b, err := g.MarshalDOT()
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

// node is a styled GO term.
type node struct {
	id   int64
	term ontology.Term
	row  *enrich.Row // nil for non-significant terms.
	root bool
}

func (n *node) ID() int64 { return n.id }

// DOTID returns the quoted GO identifier; GO identifiers are not
// valid bare DOT IDs.
func (n *node) DOTID() string { return strconv.Quote(n.term.ID) }

func (n *node) Attributes() []encoding.Attribute {
	var attrs attributes
	switch {
	case n.root:
		attrs = attributes{
			{Key: "rank", Value: "sink"},
			{Key: "style", Value: "filled"},
		}
		if n.row != nil {
			attrs = append(attrs, encoding.Attribute{Key: "color", Value: color(n.row.P)})
		}
		attrs = append(attrs,
			encoding.Attribute{Key: "label", Value: n.term.ID + "\n" + n.term.Name},
			encoding.Attribute{Key: "tooltip", Value: n.term.Name},
		)
	case n.row != nil:
		attrs = attributes{
			{Key: "id", Value: n.term.ID},
			{Key: "shape", Value: "note"},
			{Key: "style", Value: "filled"},
			{Key: "color", Value: color(n.row.P)},
			{Key: "label", Value: fmt.Sprintf("%s\n%s\n%s\n(%d/%d)",
				n.term.ID, TruncateLabel(n.term.Name), pText(*n.row), n.row.Significant, n.row.Annotated)},
			{Key: "tooltip", Value: n.term.Name},
		}
	default:
		attrs = attributes{
			{Key: "style", Value: "filled"},
			{Key: "label", Value: n.term.ID},
			{Key: "tooltip", Value: n.term.Name},
		}
	}
	for i, a := range attrs {
		attrs[i].Value = strconv.Quote(a.Value)
	}
	return attrs
}

func pText(r enrich.Row) string {
	if r.PText != "" {
		return r.PText
	}
	return strconv.FormatFloat(r.P, 'g', 3, 64)
}

type attributes []encoding.Attribute

func (a attributes) Attributes() []encoding.Attribute { return a }

const (
	minHue = 170
	maxHue = 240

	saturation = 1.0
	value      = 1.0
)

// Hue returns the HSV hue in [0, 1] used to colour a term with the
// p-value p. Hue(0) is maxHue/360 and values increase as p decreases
// until they reach maxHue/360.
func Hue(p float64) float64 {
	if p == 0 {
		return maxHue / 360.0
	}
	return math.Min(minHue+math.Abs(math.Log(p)), maxHue) / 360
}

// color returns the Graphviz HSV colour for a p-value.
func color(p float64) string {
	return fmt.Sprintf("%.3f %.3f %.3f", Hue(p), saturation, value)
}

const (
	maxLabelLine = 20
	truncateAt   = 17
)

// TruncateLabel returns name wrapped to lines of at most 20 characters.
// Words are placed greedily. The first word longer than 20 characters
// is cut to its first 17 characters followed by "..." and ends the
// label. Names of 20 characters or fewer are returned unaltered.
func TruncateLabel(name string) string {
	if utf8.RuneCountInString(name) <= maxLabelLine {
		return name
	}
	var (
		lines []string
		line  string
	)
	for _, word := range strings.Fields(name) {
		if utf8.RuneCountInString(word) > maxLabelLine {
			if line != "" {
				lines = append(lines, line)
			}
			lines = append(lines, string([]rune(word)[:truncateAt])+"...")
			return strings.Join(lines, "\n")
		}
		switch {
		case line == "":
			line = word
		case utf8.RuneCountInString(line)+1+utf8.RuneCountInString(word) <= maxLabelLine:
			line += " " + word
		default:
			lines = append(lines, line)
			line = word
		}
	}
	if line != "" {
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}
