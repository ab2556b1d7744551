// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kortschak/goldwasher/internal/config"
	"github.com/kortschak/goldwasher/internal/dag"
	"github.com/kortschak/goldwasher/internal/enrich"
	"github.com/kortschak/goldwasher/internal/layout"
	"github.com/kortschak/goldwasher/internal/outcome"
	"github.com/kortschak/goldwasher/internal/render"
	"github.com/kortschak/goldwasher/internal/report"
)

const (
	obo  = "http://purl.obolibrary.org/obo/GO_"
	rdfs = "http://www.w3.org/2000/01/rdf-schema#"
)

// goTriples holds two GO roots:
//
//  GO:0008150 biological_process
//  └── GO:0009987 cellular process
//      └── GO:0006915 apoptotic process
//  GO:0005575 cellular_component
//  └── GO:0005634 nucleus
const goTriples = `<` + obo + `0008150> <` + rdfs + `label> "biological_process" .
<` + obo + `0009987> <` + rdfs + `label> "cellular process" .
<` + obo + `0009987> <` + rdfs + `subClassOf> <` + obo + `0008150> .
<` + obo + `0006915> <` + rdfs + `label> "apoptotic process" .
<` + obo + `0006915> <` + rdfs + `subClassOf> <` + obo + `0009987> .
<` + obo + `0005575> <` + rdfs + `label> "cellular_component" .
<` + obo + `0005634> <` + rdfs + `label> "nucleus" .
<` + obo + `0005634> <` + rdfs + `subClassOf> <` + obo + `0005575> .
`

// fakeDot copies the DOT input to the output file.
const fakeDot = `#!/bin/sh
cp "$4" "$3"
`

// testEnv is a set of reference data files and an input directory
// holding a single identifier list.
type testEnv struct {
	data  string
	input string
	cfg   *config.Config
}

func newTestEnv(t *testing.T) testEnv {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("test requires a POSIX shell")
	}
	root := t.TempDir()
	env := testEnv{
		data:  filepath.Join(root, "data"),
		input: filepath.Join(root, "input"),
	}
	files := map[string]string{
		filepath.Join(env.data, "go.nt"):           goTriples,
		filepath.Join(env.data, "id2desc.txt"):     "Phatr3_J41413\tATP synthase subunit\n",
		filepath.Join(env.data, "id2go.map"):       "Phatr3_J41413\tGO:0006915\nPhatr3_J50012\tGO:0005634\n",
		filepath.Join(env.data, "kegg.map"):        "00190\tPhatr3_J50012\n",
		filepath.Join(env.data, "organisms.json"):  `{"phatr": {"insertlink1": "<a href=\"https://example.org/{{ id }}\">{{ id }}</a>", "insertlink2": "<a name=\"{{ id }}\" href=\"https://example.org/{{ id }}\">{{ id }}</a>"}}`,
		filepath.Join(env.data, "dot"):             fakeDot,
		filepath.Join(env.input, "treated_up.txt"): "Phatr3_J41413\nPhatr3_J50012\n",
	}
	for path, content := range files {
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o755))
	}
	env.cfg = &config.Config{
		Vars: config.Vars{
			Alpha:        0.05,
			Organism:     "phatr",
			SplitSuffix:  "splits",
			EnrichSuffix: "annotated",
			SVGSuffix:    "svg",
			SaveReports:  "reports",
			Rscript:      "Rscript",
			Dot:          filepath.Join(env.data, "dot"),
		},
		Sources: config.Sources{
			GOMap:          filepath.Join(env.data, "id2go.map"),
			KEGGMap:        filepath.Join(env.data, "kegg.map"),
			FunctionalDesc: filepath.Join(env.data, "id2desc.txt"),
			OBOFile:        filepath.Join(env.data, "go.nt"),
			Organisms:      filepath.Join(env.data, "organisms.json"),
		},
	}
	return env
}

// fakeEngine writes the table held for each target and reports no
// mapping for targets it has no table for.
type fakeEngine map[layout.Target]*enrich.Table

func (e fakeEngine) GO(_ context.Context, req enrich.GORequest) error {
	return e.write(req.Aspect, req.Out)
}

func (e fakeEngine) KEGG(_ context.Context, req enrich.KEGGRequest) error {
	return e.write(layout.KEGG, req.Out)
}

func (e fakeEngine) write(target layout.Target, path string) error {
	t, ok := e[target]
	if !ok {
		return enrich.ErrNoMapping
	}
	return enrich.WriteTable(path, t)
}

var runEngine = fakeEngine{
	layout.BP: {Target: layout.BP, Rows: []enrich.Row{
		{ID: "GO:0006915", Term: "apoptotic process", Annotated: 10, Significant: 3, P: 0.001},
		{ID: "GO:0009987", Term: "cellular process", Annotated: 5, Significant: 5, P: 0.2},
	}},
	layout.CC: {Target: layout.CC, Rows: []enrich.Row{
		{ID: "GO:0005634", Term: "nucleus", Annotated: 20, Significant: 1, P: 0.6},
	}},
	layout.KEGG: {Target: layout.KEGG, Rows: []enrich.Row{
		{ID: "00190", Term: "Oxidative phosphorylation", Annotated: 40, Significant: 2, P: 0.01},
	}},
}

func TestRun(t *testing.T) {
	env := newTestEnv(t)
	p := New("REPORT", env.cfg, time.Now())
	p.Engine = runEngine
	work := filepath.Join(env.input, "annotated")

	err := p.Run(context.Background(), env.input, work)
	require.NoError(t, err)

	for _, path := range []string{
		filepath.Join(work, "treated_up.tsv"),
		filepath.Join(work, "goenrich", "BP", "treated_up_enrichment.tsv"),
		filepath.Join(work, "goenrich", "CC", "treated_up_enrichment.tsv"),
		filepath.Join(work, "keggenrich", "treated_up_enrichment.tsv"),
		filepath.Join(work, "reports", "svg", "treated_up_BP.dot"),
		filepath.Join(work, "reports", "svg", "treated_up_BP.svg"),
		filepath.Join(work, "reports", "plots", "treated_up_BP.png"),
		filepath.Join(work, "reports", "plots", "treated_up_KEGG.png"),
		filepath.Join(work, "reports", "treated_up.html"),
	} {
		_, err := os.Stat(path)
		assert.NoError(t, err, "missing output")
	}
	for _, path := range []string{
		filepath.Join(work, "goenrich", "MF", "treated_up_enrichment.tsv"),
		filepath.Join(work, "reports", "svg", "treated_up_MF.svg"),
		filepath.Join(work, "reports", "svg", "treated_up_CC.svg"),
	} {
		_, err := os.Stat(path)
		assert.True(t, errors.Is(err, os.ErrNotExist), "unexpected output %s: %v", path, err)
	}

	annotated, err := os.ReadFile(filepath.Join(work, "treated_up.tsv"))
	require.NoError(t, err)
	assert.Equal(t, "Phatr3_J41413\tATP synthase subunit\nPhatr3_J50012\t\n", string(annotated))

	b, err := os.ReadFile(filepath.Join(work, "reports", "treated_up.html"))
	require.NoError(t, err)
	html := string(b)
	assert.Equal(t, 2, strings.Count(html, report.NotFound), "expected placeholders for MF and CC")
	assert.Contains(t, html, `data="svg/treated_up_BP.svg"`)
	assert.Contains(t, html, `src="plots/treated_up_BP.png"`)
	assert.Contains(t, html, `src="plots/treated_up_KEGG.png"`)
	assert.Contains(t, html, `id="sectionKEGG"`)
	assert.Contains(t, html, `"GO:0006915":["Phatr3_J41413"]`)
	assert.Contains(t, html, `"00190":["Phatr3_J50012"]`)
	assert.Contains(t, html, `href="https://example.org/Phatr3_J41413"`)

	counts := []struct {
		stage  outcome.Stage
		status outcome.Status
		want   int
	}{
		{outcome.Annotate, outcome.OK, 1},
		{outcome.Enrich, outcome.OK, 3},
		{outcome.Enrich, outcome.Skipped, 1},
		{outcome.DAG, outcome.OK, 1},
		{outcome.DAG, outcome.Skipped, 1},
		{outcome.Render, outcome.OK, 1},
		{outcome.Report, outcome.OK, 1},
	}
	for _, c := range counts {
		assert.Equal(t, c.want, p.Summary.Count(c.stage, c.status), "%s %s", c.stage, c.status)
		assert.Equal(t, float64(c.want), testutil.ToFloat64(p.Metrics.items.WithLabelValues(string(c.stage), c.status.String())),
			"metric %s %s", c.stage, c.status)
	}
	assert.False(t, p.Summary.Failed())

	summaryPath := filepath.Join(t.TempDir(), "summary.json")
	require.NoError(t, p.Summary.WriteFile(summaryPath))
	b, err = os.ReadFile(summaryPath)
	require.NoError(t, err)
	var doc struct {
		RunID    string `json:"run_id"`
		Command  string `json:"command"`
		Outcomes []struct {
			Stage  string `json:"stage"`
			Target string `json:"target"`
			Status string `json:"status"`
			Error  string `json:"error"`
		} `json:"outcomes"`
	}
	require.NoError(t, json.Unmarshal(b, &doc))
	_, err = uuid.Parse(doc.RunID)
	assert.NoError(t, err, "invalid run ID")
	assert.Equal(t, "REPORT", doc.Command)
	assert.Len(t, doc.Outcomes, len(p.Summary.Outcomes))
	var skipped []string
	for _, o := range doc.Outcomes {
		if o.Status == "skipped" {
			skipped = append(skipped, o.Stage+" "+o.Target+": "+o.Error)
		}
	}
	sort.Strings(skipped)
	assert.Equal(t, []string{
		"dag CC: " + dag.ErrNoSignificantTerms.Error(),
		"enrich MF: " + enrich.ErrNoMapping.Error(),
	}, skipped)

	metricsPath := filepath.Join(t.TempDir(), "goldwasher.prom")
	require.NoError(t, p.Metrics.WriteFile(metricsPath))
	b, err = os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(b), `goldwasher_items_total{stage="enrich",status="ok"} 3`)
	assert.Contains(t, string(b), "goldwasher_stage_seconds_count{stage=\"dag\"} 1")
	assert.Contains(t, string(b), "goldwasher_last_run_timestamp_seconds")

	var buf bytes.Buffer
	require.NoError(t, p.Summary.Print(&buf))
	assert.Contains(t, buf.String(), "REPORT run "+p.Summary.RunID)
	assert.Contains(t, buf.String(), "enrich treated_up [MF]")
	assert.Contains(t, buf.String(), "dag treated_up [CC]")
}

func TestRunIdempotent(t *testing.T) {
	env := newTestEnv(t)
	work := filepath.Join(env.input, "annotated")
	for i := 0; i < 2; i++ {
		p := New("REPORT", env.cfg, time.Now())
		p.Engine = runEngine
		require.NoError(t, p.Run(context.Background(), env.input, work), "run %d", i)
		assert.Equal(t, 1, p.Summary.Count(outcome.Report, outcome.OK), "run %d", i)
	}
}

func writeTables(t *testing.T, work string, tables map[string]*enrich.Table) {
	t.Helper()
	for base, table := range tables {
		path := layout.EnrichmentPath(work, table.Target, base)
		require.NoError(t, layout.MkdirAll(filepath.Dir(path)))
		require.NoError(t, enrich.WriteTable(path, table))
	}
}

func TestDAG(t *testing.T) {
	env := newTestEnv(t)
	work := t.TempDir()
	writeTables(t, work, map[string]*enrich.Table{
		"two_roots": {Target: layout.BP, Rows: []enrich.Row{
			{ID: "GO:0006915", Term: "apoptotic process", Annotated: 10, Significant: 3, P: 0.001},
			{ID: "GO:0005634", Term: "nucleus", Annotated: 8, Significant: 4, P: 0.01},
		}},
		"unknown": {Target: layout.BP, Rows: []enrich.Row{
			{ID: "GO:9999999", Term: "made up", Annotated: 1, Significant: 1, P: 0.001},
		}},
		"good": {Target: layout.BP, Rows: []enrich.Row{
			{ID: "GO:0006915", Term: "apoptotic process", Annotated: 10, Significant: 3, P: 0.001},
		}},
	})
	svgdir := filepath.Join(work, "svg")

	p := New("DAG", env.cfg, time.Now())
	p.Format = render.PNG
	require.NoError(t, p.DAG(context.Background(), work, svgdir))

	byList := make(map[string]outcome.Outcome)
	for _, o := range p.Summary.Outcomes {
		if o.Stage == outcome.DAG {
			byList[o.List] = o
		}
	}
	require.Len(t, byList, 3)

	o := byList["two_roots"]
	assert.Equal(t, outcome.Failed, o.Status)
	var rootErr dag.RootError
	require.True(t, errors.As(o.Err, &rootErr), "unexpected error: %v", o.Err)
	assert.Equal(t, []string{"GO:0005575", "GO:0008150"}, rootErr.Roots)
	assert.Equal(t, []string{"GO:0006915", "GO:0005634"}, o.Terms)

	o = byList["unknown"]
	assert.Equal(t, outcome.Failed, o.Status)
	assert.Equal(t, []string{"GO:9999999"}, o.Terms)

	o = byList["good"]
	assert.Equal(t, outcome.OK, o.Status)
	assert.Equal(t, filepath.Join(svgdir, "good_BP.dot"), o.Path)
	_, err := os.Stat(filepath.Join(svgdir, "good_BP.png"))
	assert.NoError(t, err)
	assert.Equal(t, 1, p.Summary.Count(outcome.Render, outcome.OK))

	require.NoError(t, os.WriteFile(filepath.Join(work, "good.tsv"), []byte("Phatr3_J41413\tATP synthase\n"), 0o644))
	p = New("DAG", env.cfg, time.Now())
	p.Include = "*.tsv"
	require.NoError(t, p.DAG(context.Background(), work, svgdir))
	assert.Equal(t, 1, p.Summary.Count(outcome.DAG, outcome.OK))
	assert.Equal(t, 0, p.Summary.Count(outcome.DAG, outcome.Failed))

	p = New("DAG", env.cfg, time.Now())
	p.Include = "unk*"
	require.NoError(t, p.DAG(context.Background(), work, svgdir))
	assert.Equal(t, 0, p.Summary.Count(outcome.DAG, outcome.OK))
	assert.Equal(t, 1, p.Summary.Count(outcome.DAG, outcome.Failed))

	p = New("DAG", env.cfg, time.Now())
	p.Format = render.Format("pdf")
	err = p.DAG(context.Background(), work, svgdir)
	assert.True(t, errors.Is(err, render.ErrUnknownFormat), "expected unknown format error, got: %v", err)
}

func TestReportAbsent(t *testing.T) {
	env := newTestEnv(t)
	work := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(work, "treated_down.tsv"), []byte("Phatr3_J50012\t\n"), 0o644))
	outdir := filepath.Join(work, "reports")

	p := New("REPORT", env.cfg, time.Now())
	require.NoError(t, p.Report(context.Background(), work, filepath.Join(outdir, "svg"), outdir))
	require.Equal(t, 1, p.Summary.Count(outcome.Report, outcome.OK))

	b, err := os.ReadFile(filepath.Join(outdir, "treated_down.html"))
	require.NoError(t, err)
	assert.Equal(t, len(layout.Aspects), strings.Count(string(b), report.NotFound))
	assert.NotContains(t, string(b), "sectionKEGG")
	assert.NotContains(t, string(b), "<object")
}

const baySeq = "annotation\tLikelihood\tordering\tFDR.DE\n" +
	"Phatr3_J41413\t0.99\t2>1\t0.001\n" +
	"Phatr3_J50012\t0.98\t1>2\t0.002\n" +
	"Phatr3_EG02330\t0.97\tNA\t0.003\n"

func TestSplit(t *testing.T) {
	input := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(input, "treated.tsv"), []byte(baySeq), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(input, "broken.tsv"), []byte("id\tvalue\n"), 0o644))
	outdir := filepath.Join(input, "splits")

	p := New("SPLIT", &config.Config{}, time.Now())
	require.NoError(t, p.Split(context.Background(), input, outdir))
	assert.Equal(t, 1, p.Summary.Count(outcome.Split, outcome.OK))
	assert.Equal(t, 1, p.Summary.Count(outcome.Split, outcome.Failed))
	assert.True(t, p.Summary.Failed())

	up, err := os.ReadFile(filepath.Join(outdir, "treated_up.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Phatr3_J41413\n", string(up))
	down, err := os.ReadFile(filepath.Join(outdir, "treated_down.txt"))
	require.NoError(t, err)
	assert.Equal(t, "Phatr3_J50012\n", string(down))

	err = p.Split(context.Background(), filepath.Join(input, "absent"), outdir)
	assert.Error(t, err)
}

func TestConfigErrors(t *testing.T) {
	input := t.TempDir()
	p := New("REPORT", &config.Config{}, time.Now())

	_, err := p.Annotate(context.Background(), input, filepath.Join(input, "annotated"))
	assert.EqualError(t, err, "missing configuration: sources.functionalDesc")

	err = p.Enrich(context.Background(), input)
	assert.EqualError(t, err, "missing configuration: sources.g_map")

	err = p.DAG(context.Background(), input, filepath.Join(input, "svg"))
	assert.EqualError(t, err, "missing configuration: sources.obofile")
}

func TestContextCancelled(t *testing.T) {
	env := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New("ENRICH", env.cfg, time.Now())
	p.Engine = runEngine
	err := p.Enrich(ctx, env.input)
	assert.True(t, errors.Is(err, context.Canceled), "expected cancellation, got: %v", err)
	assert.Empty(t, p.Summary.Outcomes)
}
