// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline runs the stages of the enrichment reporting pipeline
// over the identifier lists in a working directory.
//
// Each stage completes across all lists before the next begins. Failures
// of individual lists are recorded as outcomes in the run Summary and do
// not stop the run. Configuration and input directory errors are
// returned.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/kortschak/goldwasher/internal/config"
	"github.com/kortschak/goldwasher/internal/dag"
	"github.com/kortschak/goldwasher/internal/enrich"
	"github.com/kortschak/goldwasher/internal/layout"
	"github.com/kortschak/goldwasher/internal/lists"
	"github.com/kortschak/goldwasher/internal/ontology"
	"github.com/kortschak/goldwasher/internal/outcome"
	"github.com/kortschak/goldwasher/internal/render"
	"github.com/kortschak/goldwasher/internal/report"
)

// Pipeline holds the state of a run.
type Pipeline struct {
	Config *config.Config

	// Engine computes enrichments. If nil, an R session
	// using the configured Rscript is started for each
	// enrichment stage.
	Engine enrich.Engine

	// Renderer and Format are used to lay out the
	// ontology subgraphs in the DAG stage.
	Renderer render.Renderer
	Format   render.Format

	// Include is a glob pattern restricting the input
	// files of each stage. All files are included if
	// it is empty. The DAG stage selects the lists
	// whose name, or list file name in the work
	// directory, matches the pattern.
	Include string

	Summary *Summary
	Metrics *Metrics

	ont *ontology.Ontology
}

// New returns a new Pipeline for a run of command started at now.
func New(command string, cfg *config.Config, now time.Time) *Pipeline {
	return &Pipeline{
		Config:   cfg,
		Renderer: render.Renderer{Command: cfg.Vars.Dot},
		Format:   render.SVG,
		Summary:  NewSummary(command, cfg, now),
		Metrics:  NewMetrics(),
	}
}

// record adds o to the run summary and metrics, logging items that were
// not successful.
func (p *Pipeline) record(o outcome.Outcome) {
	p.Summary.Outcomes = append(p.Summary.Outcomes, o)
	p.Metrics.observe(o)
	if o.Status != outcome.OK {
		log.Print(o)
	}
}

// Split splits the result tables in inputdir into up- and
// down-regulated identifier lists in outdir.
func (p *Pipeline) Split(ctx context.Context, inputdir, outdir string) error {
	defer p.Metrics.stage(outcome.Split)()
	log.Println("[splitting into up- and down-regulated lists]")

	paths, err := layout.ListFiles(inputdir, p.Include)
	if err != nil {
		return err
	}
	err = layout.MkdirAll(outdir)
	if err != nil {
		return err
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		o := outcome.Outcome{Stage: outcome.Split, List: layout.Base(path), Path: outdir}
		n, err := lists.Split(outdir, path)
		if err != nil {
			o.Status = outcome.Failed
			o.Err = err
		} else {
			log.Printf("%s: %d up, %d down", o.List, n.Up, n.Down)
		}
		p.record(o)
	}
	return nil
}

// Annotate writes copies of the lists in inputdir to outdir with their
// functional descriptions appended. It returns the paths of the
// annotated lists. Failure to read the description source or a list is
// returned as an error.
func (p *Pipeline) Annotate(ctx context.Context, inputdir, outdir string) ([]string, error) {
	defer p.Metrics.stage(outcome.Annotate)()
	log.Println("[annotating lists]")

	err := p.Config.Require("functionalDesc")
	if err != nil {
		return nil, err
	}
	desc, err := lists.LoadDescriptions(p.Config.Sources.FunctionalDesc)
	if err != nil {
		return nil, fmt.Errorf("failed to load descriptions: %w", err)
	}
	paths, err := layout.ListFiles(inputdir, p.Include)
	if err != nil {
		return nil, err
	}
	err = layout.MkdirAll(outdir)
	if err != nil {
		return nil, err
	}

	annotated := make([]string, 0, len(paths))
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return annotated, err
		}
		base := layout.Base(path)
		dst := filepath.Join(outdir, base+".tsv")
		o := outcome.Outcome{Stage: outcome.Annotate, List: base, Path: dst}
		_, err := desc.Annotate(dst, path)
		if err != nil {
			o.Status = outcome.Failed
			o.Err = err
			o.Path = ""
			p.record(o)
			return annotated, fmt.Errorf("failed to annotate %s: %w", path, err)
		}
		p.record(o)
		annotated = append(annotated, dst)
	}
	return annotated, nil
}

// Enrich computes GO aspect and KEGG pathway enrichment for the lists in
// workdir, writing the result tables below workdir.
func (p *Pipeline) Enrich(ctx context.Context, workdir string) error {
	paths, err := layout.ListFiles(workdir, p.Include)
	if err != nil {
		return err
	}
	return p.enrich(ctx, workdir, paths)
}

func (p *Pipeline) enrich(ctx context.Context, workdir string, paths []string) error {
	defer p.Metrics.stage(outcome.Enrich)()
	log.Println("[computing enrichment]")

	err := p.Config.Require("g_map")
	if err != nil {
		return err
	}
	engine := p.Engine
	if engine == nil {
		s, err := enrich.NewSession(p.Config.Vars.Rscript)
		if err != nil {
			return err
		}
		defer s.Close()
		engine = s
	}
	inv := enrich.Invoker{
		Engine:   engine,
		GOMap:    p.Config.Sources.GOMap,
		KEGGMap:  p.Config.Sources.KEGGMap,
		Organism: p.Config.Vars.Organism,
		Alpha:    p.Config.Vars.Alpha,
	}
	for _, path := range paths {
		for _, target := range layout.Targets {
			if err := ctx.Err(); err != nil {
				return err
			}
			p.record(inv.Run(ctx, workdir, path, target))
		}
	}
	return nil
}

// ontology returns the configured ontology, loading it on first use.
func (p *Pipeline) ontology() (*ontology.Ontology, error) {
	if p.ont != nil {
		return p.ont, nil
	}
	err := p.Config.Require("obofile")
	if err != nil {
		return nil, err
	}
	log.Println("[loading ontology]")
	p.ont, err = ontology.Load(p.Config.Sources.OBOFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load ontology: %w", err)
	}
	return p.ont, nil
}

// DAG builds and renders the enrichment subgraph for each GO aspect
// result table below workdir, writing the graphs to svgdir.
func (p *Pipeline) DAG(ctx context.Context, workdir, svgdir string) error {
	selected, err := layout.MatchBase(workdir, p.Include)
	if err != nil {
		return err
	}
	bases := make(map[layout.Target][]string)
	for _, aspect := range layout.Aspects {
		paths, err := layout.ListFiles(layout.EnrichmentDir(workdir, aspect), "")
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return err
		}
		for _, path := range paths {
			base, ok := layout.EnrichmentBase(path)
			if ok && selected(base) {
				bases[aspect] = append(bases[aspect], base)
			}
		}
	}
	return p.graphs(ctx, workdir, svgdir, p.Format, func(aspect layout.Target) []string {
		return bases[aspect]
	})
}

func (p *Pipeline) graphs(ctx context.Context, workdir, svgdir string, format render.Format, bases func(layout.Target) []string) error {
	defer p.Metrics.stage(outcome.DAG)()
	log.Println("[generating GO graphs]")

	ont, err := p.ontology()
	if err != nil {
		return err
	}
	err = layout.MkdirAll(svgdir)
	if err != nil {
		return err
	}
	for _, aspect := range layout.Aspects {
		for _, base := range bases(aspect) {
			if err := ctx.Err(); err != nil {
				return err
			}
			path := layout.EnrichmentPath(workdir, aspect, base)
			if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
				// Nothing to report for this aspect.
				continue
			}
			err := p.graph(ctx, ont, path, svgdir, base, aspect, format)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// graph builds and renders the subgraph for the result table at path.
// Only configuration errors are returned.
func (p *Pipeline) graph(ctx context.Context, ont *ontology.Ontology, path, svgdir, base string, aspect layout.Target, format render.Format) error {
	o := outcome.Outcome{Stage: outcome.DAG, List: base, Target: string(aspect)}

	table, err := enrich.ReadTable(path, aspect)
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		p.record(o)
		return nil
	}
	g, err := dag.Build(ont, table, p.Config.Vars.Alpha)
	if err != nil {
		o.Status = outcome.Failed
		if errors.Is(err, dag.ErrNoSignificantTerms) {
			o.Status = outcome.Skipped
		}
		o.Err = err
		o.Terms = enrich.IDs(table.Significant(p.Config.Vars.Alpha))
		p.record(o)
		return nil
	}
	o.Terms = g.Significant()

	dotPath := layout.GraphPath(svgdir, base, aspect, "dot")
	err = g.WriteDOT(dotPath)
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		p.record(o)
		return nil
	}
	o.Path = dotPath
	p.record(o)

	r := outcome.Outcome{Stage: outcome.Render, List: base, Target: string(aspect)}
	r.Path, err = p.Renderer.Render(ctx, dotPath, format)
	if err != nil {
		if errors.Is(err, render.ErrUnknownFormat) {
			return err
		}
		r.Status = outcome.Failed
		r.Err = err
	}
	p.record(r)
	return nil
}

// Report composes a report in outdir for each annotated list in
// workdir from the enrichment results below workdir and the graphs in
// svgdir.
func (p *Pipeline) Report(ctx context.Context, workdir, svgdir, outdir string) error {
	paths, err := layout.ListFiles(workdir, p.Include)
	if err != nil {
		return err
	}
	return p.report(ctx, workdir, svgdir, outdir, paths)
}

func (p *Pipeline) report(ctx context.Context, workdir, svgdir, outdir string, paths []string) error {
	defer p.Metrics.stage(outcome.Report)()
	log.Println("[assembling reports]")

	err := p.Config.Require("g_map")
	if err != nil {
		return err
	}
	ont, err := p.ontology()
	if err != nil {
		return err
	}
	gomap, err := report.LoadGOMapping(p.Config.Sources.GOMap)
	if err != nil {
		return fmt.Errorf("failed to load GO mapping: %w", err)
	}
	var keggmap map[string][]string
	if p.Config.Sources.KEGGMap != "" {
		keggmap, err = report.LoadKEGGMapping(p.Config.Sources.KEGGMap)
		if err != nil {
			return fmt.Errorf("failed to load KEGG mapping: %w", err)
		}
	}
	links := report.PlaceholderLinkouts()
	if p.Config.Sources.Organisms != "" {
		links, err = report.LoadLinkouts(p.Config.Sources.Organisms, p.Config.Vars.Organism)
		if err != nil {
			log.Printf("using placeholder links: %v", err)
		}
	}
	err = layout.MkdirAll(outdir)
	if err != nil {
		return err
	}

	c := composer{
		workdir:  workdir,
		svgdir:   svgdir,
		outdir:   outdir,
		alpha:    p.Config.Vars.Alpha,
		ont:      ont,
		gomap:    gomap,
		keggmap:  keggmap,
		linkouts: links,
	}
	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.record(c.compose(path))
	}
	return nil
}

// Run runs the complete reporting chain on the lists in inputdir. The
// annotated lists and their enrichment results are written to workdir,
// the reports to workdir/<savereports> and their graphs to
// workdir/<savereports>/<svgsuffix>.
func (p *Pipeline) Run(ctx context.Context, inputdir, workdir string) error {
	annotated, err := p.Annotate(ctx, inputdir, workdir)
	if err != nil {
		return err
	}
	err = p.enrich(ctx, workdir, annotated)
	if err != nil {
		return err
	}

	reports := filepath.Join(workdir, p.Config.Vars.SaveReports)
	svgdir := filepath.Join(reports, p.Config.Vars.SVGSuffix)
	bases := make([]string, len(annotated))
	for i, path := range annotated {
		bases[i] = layout.Base(path)
	}
	// The report embeds its graphs as SVG.
	err = p.graphs(ctx, workdir, svgdir, render.SVG, func(layout.Target) []string { return bases })
	if err != nil {
		return err
	}
	return p.report(ctx, workdir, svgdir, reports, annotated)
}
