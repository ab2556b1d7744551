// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package report composes the HTML enrichment report for an identifier
// list.
package report

import (
	"bufio"
	"embed"
	"html/template"
	"io"
	"os"
	"strconv"

	"github.com/kortschak/goldwasher/internal/enrich"
	"github.com/kortschak/goldwasher/internal/layout"
	"github.com/kortschak/goldwasher/internal/lists"
)

//go:embed templates/report.html
var templates embed.FS

var reportTemplate = template.Must(template.ParseFS(templates, "templates/report.html"))

// NotFound is the text shown in place of an enrichment table with no
// significant terms.
const NotFound = "No significant enriched terms found!"

// Page is the content of a report.
type Page struct {
	Title string

	// Genes is the annotated identifier list.
	Genes []lists.Annotation

	// Aspects is the set of GO aspects to report.
	Aspects []layout.Target
	// Tables holds the enrichment results for each
	// target. Absent results are nil or missing.
	Tables map[layout.Target]*enrich.Table
	// Alpha is the significance threshold for table rows.
	Alpha float64

	// Graphs and Plots hold paths relative to the report
	// of the rendered aspect graphs and of the enrichment
	// bar charts for each target.
	Graphs map[layout.Target]string
	Plots  map[layout.Target]string

	// Members maps term and pathway identifiers to the
	// list identifiers annotated to them.
	Members map[string][]string

	Linkouts Linkouts
}

// SortKey returns the decimal expansion of p, used as the client-side
// sort key for p-value cells. Exponent formatted values do not sort
// correctly as text.
func SortKey(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64)
}

type view struct {
	Title string

	Tabs []tab
	GO   []section
	KEGG *section

	Described   []gene
	Undescribed []gene
	Total       int

	AnnotMap map[string][]string
	DescMap  map[string]string
	LinkMap  map[string]string
	Genes    []string
}

type tab struct {
	Target string
	Name   string
	Graph  string
}

type section struct {
	Target  string
	Name    string
	Visible bool
	Rows    []row
	Plot    string
}

type row struct {
	ID          string
	Link        string
	Term        string
	Annotated   int
	Significant int
	P           string
	SortKey     string
}

type gene struct {
	Anchor      template.HTML
	Description string
}

// Render writes the report to w.
func (p *Page) Render(w io.Writer) error {
	return reportTemplate.Execute(w, p.view())
}

// WriteFile writes the report to the file at path.
func (p *Page) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	err = p.Render(bw)
	if err == nil {
		err = bw.Flush()
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func (p *Page) view() view {
	v := view{
		Title:    p.Title,
		AnnotMap: make(map[string][]string),
		DescMap:  make(map[string]string),
		LinkMap:  make(map[string]string),
		Genes:    make([]string, 0, len(p.Genes)),
		Total:    len(p.Genes),
	}
	for _, g := range p.Genes {
		v.Genes = append(v.Genes, g.ID)
		v.LinkMap[g.ID] = string(p.Linkouts.DialogAnchor(g.ID))
		anchor := p.Linkouts.GeneAnchor(g.ID)
		if g.Description == "" {
			v.Undescribed = append(v.Undescribed, gene{Anchor: anchor})
			continue
		}
		v.DescMap[g.ID] = g.Description
		v.Described = append(v.Described, gene{Anchor: anchor, Description: g.Description})
	}

	for i, a := range p.Aspects {
		v.Tabs = append(v.Tabs, tab{Target: string(a), Name: a.Name(), Graph: p.Graphs[a]})
		s := p.section(a)
		s.Visible = i == 0
		v.GO = append(v.GO, s)
	}
	if t := p.Tables[layout.KEGG]; t != nil {
		s := p.section(layout.KEGG)
		v.KEGG = &s
	}

	for _, s := range append(v.GO, derefSection(v.KEGG)...) {
		for _, r := range s.Rows {
			if m, ok := p.Members[r.ID]; ok {
				v.AnnotMap[r.ID] = m
			}
		}
	}
	return v
}

func (p *Page) section(target layout.Target) section {
	s := section{Target: string(target), Name: target.Name()}
	for _, r := range p.Tables[target].Significant(p.Alpha) {
		s.Rows = append(s.Rows, row{
			ID:          r.ID,
			Link:        link(target, r.ID),
			Term:        r.Term,
			Annotated:   r.Annotated,
			Significant: r.Significant,
			P:           pText(r),
			SortKey:     SortKey(r.P),
		})
	}
	if len(s.Rows) != 0 {
		s.Plot = p.Plots[target]
	}
	return s
}

func derefSection(s *section) []section {
	if s == nil {
		return nil
	}
	return []section{*s}
}

func link(target layout.Target, id string) string {
	if target == layout.KEGG {
		return "https://www.genome.jp/dbget-bin/www_bget?pathway:map" + id
	}
	return "https://amigo.geneontology.org/amigo/term/" + id
}

func pText(r enrich.Row) string {
	if r.PText != "" {
		return r.PText
	}
	return strconv.FormatFloat(r.P, 'g', -1, 64)
}
