// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package layout defines the working directory layout shared by the
// pipeline stages. Paths produced here are a compatibility contract
// with existing pipeline outputs and must not change.
package layout

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Target is an enrichment target: one of the three Gene Ontology
// aspects or KEGG pathways.
type Target string

const (
	BP   Target = "BP"
	MF   Target = "MF"
	CC   Target = "CC"
	KEGG Target = "KEGG"
)

// Aspects is the set of Gene Ontology aspects in report order.
var Aspects = []Target{BP, MF, CC}

// Targets is the set of all enrichment targets in report order.
var Targets = []Target{BP, MF, CC, KEGG}

// ParseTarget returns the Target named by s, ignoring case.
func ParseTarget(s string) (Target, error) {
	t := Target(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case BP, MF, CC, KEGG:
		return t, nil
	}
	return "", fmt.Errorf("unknown enrichment target: %q", s)
}

// IsGO returns whether t is a Gene Ontology aspect.
func (t Target) IsGO() bool {
	return t == BP || t == MF || t == CC
}

// Name returns the human readable name of the target.
func (t Target) Name() string {
	switch t {
	case BP:
		return "Biological Process"
	case MF:
		return "Molecular Function"
	case CC:
		return "Cellular Component"
	case KEGG:
		return "KEGG pathways"
	default:
		return string(t)
	}
}

// Namespace returns the OBO namespace of a Gene Ontology aspect.
func (t Target) Namespace() string {
	switch t {
	case BP:
		return "biological_process"
	case MF:
		return "molecular_function"
	case CC:
		return "cellular_component"
	default:
		return ""
	}
}

const enrichmentSuffix = "_enrichment.tsv"

// EnrichmentDir returns the directory holding enrichment results for
// the target below workdir.
func EnrichmentDir(workdir string, target Target) string {
	if target == KEGG {
		return filepath.Join(workdir, "keggenrich")
	}
	return filepath.Join(workdir, "goenrich", string(target))
}

// EnrichmentPath returns the path of the enrichment result table for
// the list named base.
//
//  <workdir>/goenrich/<ASPECT>/<base>_enrichment.tsv
//  <workdir>/keggenrich/<base>_enrichment.tsv
func EnrichmentPath(workdir string, target Target, base string) string {
	return filepath.Join(EnrichmentDir(workdir, target), base+enrichmentSuffix)
}

// EnrichmentBase returns the list name for an enrichment result file
// name and whether name is an enrichment result file name.
func EnrichmentBase(name string) (base string, ok bool) {
	name = filepath.Base(name)
	if !strings.HasSuffix(name, enrichmentSuffix) {
		return "", false
	}
	return strings.TrimSuffix(name, enrichmentSuffix), true
}

// GraphPath returns the path of a rendered aspect graph.
//
//  <svgdir>/<base>_<ASPECT>.<ext>
func GraphPath(svgdir, base string, aspect Target, ext string) string {
	return filepath.Join(svgdir, base+"_"+string(aspect)+"."+ext)
}

// ReportPath returns the path of the report for the list named base.
func ReportPath(outdir, base string) string {
	return filepath.Join(outdir, base+".html")
}

// PlotPath returns the path of the enrichment bar chart for the list
// named base.
func PlotPath(outdir, base string, target Target) string {
	return filepath.Join(outdir, "plots", base+"_"+string(target)+".png")
}

// Base returns the file name of path without its extension.
func Base(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// MkdirAll creates dir and any missing parents. It is not an error
// for dir to already exist.
func MkdirAll(dir string) error {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("could not create directory: %w", err)
	}
	return nil
}

// ListFiles returns the sorted paths of the regular files in dir. If
// include is not empty, only files whose names match the glob pattern
// are returned.
func ListFiles(dir, include string) ([]string, error) {
	var match glob.Glob
	if include != "" {
		var err error
		match, err = glob.Compile(include)
		if err != nil {
			return nil, fmt.Errorf("invalid include pattern %q: %w", include, err)
		}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		if match != nil && !match.Match(e.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, e.Name()))
	}
	sort.Strings(paths)
	return paths, nil
}

// MatchBase returns a function reporting whether the list named base
// is selected by the include glob pattern. A list is selected when the
// pattern matches base or matches the name of a file in dir with that
// base. All lists are selected when include is empty.
func MatchBase(dir, include string) (func(base string) bool, error) {
	if include == "" {
		return func(string) bool { return true }, nil
	}
	match, err := glob.Compile(include)
	if err != nil {
		return nil, fmt.Errorf("invalid include pattern %q: %w", include, err)
	}
	paths, err := ListFiles(dir, include)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	listed := make(map[string]bool, len(paths))
	for _, p := range paths {
		listed[Base(p)] = true
	}
	return func(base string) bool {
		return listed[base] || match.Match(base)
	}, nil
}
