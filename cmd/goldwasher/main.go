// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// goldwasher builds Gene Ontology and KEGG pathway enrichment reports for
// differential expression gene or transcript lists.
//
// Usage:
//
//  goldwasher <command> -config <file> -inputdir <dir> [options]
//
// The commands are run over every file in the input directory:
//
//  SPLIT   split two group baySeq result tables into up- and
//          down-regulated identifier lists
//  ANNOT   annotate identifier lists with functional descriptions
//  ENRICH  compute GO aspect and KEGG pathway enrichment with topGO
//          and GOstats via Rscript
//  DAG     build and render the GO subgraphs of enriched terms with
//          Graphviz dot
//  REPORT  run ANNOT, ENRICH and DAG and assemble an HTML report for
//          each list
//
// The configuration file is a TOML file with meta, vars and sources
// sections. The meta section is updated with the date and time of each
// run.
//
// Output directories default to directories below the input directory
// named by the splitsuffix, enrichsuffix and svgsuffix configuration
// variables. Reports are written to the savereports directory below the
// annotated list directory and expect the report support assets to be
// available in a support directory next to them.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kortschak/goldwasher/internal/config"
	"github.com/kortschak/goldwasher/internal/pipeline"
	"github.com/kortschak/goldwasher/internal/render"
)

var commands = []struct {
	name, help string
}{
	{"SPLIT", "split baySeq results into up- and down-regulated lists"},
	{"ANNOT", "annotate lists with functional descriptions"},
	{"ENRICH", "compute GO and KEGG enrichment for lists"},
	{"DAG", "build and render GO subgraphs from enrichment results"},
	{"REPORT", "run the pipeline from lists to HTML reports"},
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s <command> -config <file> -inputdir <dir> [options]\n\ncommands:\n", filepath.Base(os.Args[0]))
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-7s %s\n", c.name, c.help)
	}
	fmt.Fprintf(os.Stderr, "\nrun %s <command> -help for command options.\n", filepath.Base(os.Args[0]))
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	command := strings.ToUpper(os.Args[1])
	known := false
	for _, c := range commands {
		if c.name == command {
			known = true
			break
		}
	}
	if !known {
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	fs := flag.NewFlagSet(command, flag.ExitOnError)
	var (
		cfgPath  = fs.String("config", "", "specify the configuration file (required)")
		inputdir = fs.String("inputdir", "", "specify the input directory (required)")
		include  = fs.String("include", "", "only process input files matching this glob pattern")
		summary  = fs.String("summary", "", "specify the JSON run summary output file")
		metrics  = fs.String("metrics", "", "specify the Prometheus text format metrics output file")
	)
	outdir := new(string)
	if command != "ENRICH" {
		outdir = fs.String("outdir", "", "specify the output directory")
	}
	format := new(string)
	if command == "DAG" {
		format = fs.String("format", "svg", "specify the graph output format (svg, png or cmap)")
	}
	fs.Parse(os.Args[2:])
	if *cfgPath == "" || *inputdir == "" {
		fs.Usage()
		os.Exit(2)
	}

	log.Println(os.Args)
	now := time.Now()
	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	err = config.Stamp(*cfgPath, now)
	if err != nil {
		log.Fatalf("failed to update configuration: %v", err)
	}
	cfg.Meta = config.NewMeta(now)

	p := pipeline.New(command, cfg, now)
	p.Include = *include
	if command == "DAG" {
		p.Format, err = render.ParseFormat(*format)
		if err != nil {
			log.Fatal(err)
		}
	}

	dir := func(name string) string {
		if *outdir != "" {
			return *outdir
		}
		return filepath.Join(*inputdir, name)
	}
	ctx := context.Background()
	switch command {
	case "SPLIT":
		err = p.Split(ctx, *inputdir, dir(cfg.Vars.SplitSuffix))
	case "ANNOT":
		_, err = p.Annotate(ctx, *inputdir, dir(cfg.Vars.EnrichSuffix))
	case "ENRICH":
		err = p.Enrich(ctx, *inputdir)
	case "DAG":
		err = p.DAG(ctx, *inputdir, dir(cfg.Vars.SVGSuffix))
	case "REPORT":
		err = p.Run(ctx, *inputdir, dir(cfg.Vars.EnrichSuffix))
	}
	p.Summary.Finished = time.Now()

	if perr := p.Summary.Print(os.Stderr); perr != nil {
		log.Println(perr)
	}
	if *summary != "" {
		if serr := p.Summary.WriteFile(*summary); serr != nil {
			log.Printf("failed to write summary: %v", serr)
		}
	}
	if *metrics != "" {
		if merr := p.Metrics.WriteFile(*metrics); merr != nil {
			log.Printf("failed to write metrics: %v", merr)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}
