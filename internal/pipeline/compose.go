// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/kortschak/goldwasher/internal/enrich"
	"github.com/kortschak/goldwasher/internal/layout"
	"github.com/kortschak/goldwasher/internal/lists"
	"github.com/kortschak/goldwasher/internal/ontology"
	"github.com/kortschak/goldwasher/internal/outcome"
	"github.com/kortschak/goldwasher/internal/report"
)

// composer assembles reports for annotated lists.
type composer struct {
	workdir string
	svgdir  string
	outdir  string
	alpha   float64

	ont      *ontology.Ontology
	gomap    map[string][]string
	keggmap  map[string][]string
	linkouts report.Linkouts
}

// compose writes the report for the annotated list at path. Missing
// enrichment results, graphs and plots are left out of the report.
func (c composer) compose(path string) outcome.Outcome {
	base := layout.Base(path)
	o := outcome.Outcome{Stage: outcome.Report, List: base}

	genes, err := lists.ReadAnnotated(path)
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		return o
	}
	ids := make([]string, len(genes))
	for i, g := range genes {
		ids[i] = g.ID
	}

	page := report.Page{
		Title:    base,
		Genes:    genes,
		Aspects:  layout.Aspects,
		Tables:   make(map[layout.Target]*enrich.Table),
		Alpha:    c.alpha,
		Graphs:   make(map[layout.Target]string),
		Plots:    make(map[layout.Target]string),
		Members:  make(map[string][]string),
		Linkouts: c.linkouts,
	}
	for _, target := range layout.Targets {
		t, err := enrich.ReadTable(layout.EnrichmentPath(c.workdir, target, base), target)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				log.Printf("%s [%s]: omitting enrichment table: %v", base, target, err)
			}
			continue
		}
		page.Tables[target] = t

		sig := t.Significant(c.alpha)
		if len(sig) == 0 {
			continue
		}
		terms := enrich.IDs(sig)
		var members map[string][]string
		if target.IsGO() {
			members = report.GOMembers(c.ont, c.gomap, ids, terms)
		} else {
			members = report.KEGGMembers(c.keggmap, ids, terms)
		}
		for term, m := range members {
			page.Members[term] = m
		}

		plot := layout.PlotPath(c.outdir, base, target)
		err = report.PlotEnrichment(plot, fmt.Sprintf("%s %s", base, target.Name()), sig)
		if err != nil {
			log.Printf("%s [%s]: omitting plot: %v", base, target, err)
		} else {
			page.Plots[target] = c.rel(plot)
		}
	}
	for _, aspect := range layout.Aspects {
		graph := layout.GraphPath(c.svgdir, base, aspect, "svg")
		if _, err := os.Stat(graph); err == nil {
			page.Graphs[aspect] = c.rel(graph)
		}
	}

	dst := layout.ReportPath(c.outdir, base)
	err = page.WriteFile(dst)
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		return o
	}
	o.Path = dst
	return o
}

// rel returns path relative to the report directory in slash
// separated form.
func (c composer) rel(path string) string {
	r, err := filepath.Rel(c.outdir, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(r)
}
