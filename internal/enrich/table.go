// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package enrich

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kortschak/goldwasher/internal/layout"
)

// Row is a single enriched term.
type Row struct {
	ID          string
	Term        string
	Annotated   int
	Significant int

	// P is the enrichment p-value. PText is the text
	// the value was read from, for example "< 1e-30".
	P     float64
	PText string
}

// Table is an enrichment result table for one target.
type Table struct {
	Target layout.Target
	Rows   []Row
}

// columns holds the header names of the fields of a Row in the
// result table format for a target.
type columns struct {
	id, term, annotated, significant, p string
}

var (
	// goColumns are the topGO GenTable column names.
	goColumns = columns{
		id:          "GO.ID",
		term:        "Term",
		annotated:   "Annotated",
		significant: "Significant",
		p:           "elimFisher",
	}
	// keggColumns are the GOstats hyperGTest summary column names.
	keggColumns = columns{
		id:          "KEGGID",
		term:        "Term",
		annotated:   "Size",
		significant: "Count",
		p:           "Pvalue",
	}
)

func columnsFor(target layout.Target) columns {
	if target == layout.KEGG {
		return keggColumns
	}
	return goColumns
}

// ReadTable reads the enrichment result table for target at path.
// GO tables are in the topGO GenTable format and KEGG tables are in
// the GOstats summary format. Extra columns are ignored.
func ReadTable(path string, target layout.Target) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	t, err := readTable(f, target)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

func readTable(r io.Reader, target layout.Target) (*Table, error) {
	cols := columnsFor(target)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	if !sc.Scan() {
		if sc.Err() != nil {
			return nil, sc.Err()
		}
		return nil, errors.New("empty result table")
	}
	header := strings.Split(sc.Text(), "\t")
	idx := make(map[string]int)
	for i, h := range header {
		idx[strings.TrimSpace(h)] = i
	}
	var pos [5]int
	for i, name := range []string{cols.id, cols.term, cols.annotated, cols.significant, cols.p} {
		c, ok := idx[name]
		if !ok {
			return nil, fmt.Errorf("missing %s column", name)
		}
		pos[i] = c
	}

	t := &Table{Target: target}
	line := 1
	for sc.Scan() {
		line++
		if strings.TrimSpace(sc.Text()) == "" {
			continue
		}
		fields := strings.Split(sc.Text(), "\t")
		for _, c := range pos {
			if c >= len(fields) {
				return nil, fmt.Errorf("line %d: too few fields", line)
			}
		}
		var (
			row Row
			err error
		)
		row.ID = strings.TrimSpace(fields[pos[0]])
		row.Term = strings.TrimSpace(fields[pos[1]])
		row.Annotated, err = strconv.Atoi(strings.TrimSpace(fields[pos[2]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row.Significant, err = strconv.Atoi(strings.TrimSpace(fields[pos[3]]))
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		row.PText = strings.TrimSpace(fields[pos[4]])
		row.P, err = ParseP(row.PText)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		t.Rows = append(t.Rows, row)
	}
	return t, sc.Err()
}

// ParseP returns the value of a p-value as written by topGO or GOstats.
// Values given as an upper bound, for example "< 1e-30", are returned
// as the bound.
func ParseP(s string) (float64, error) {
	s = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(s), "<"))
	return strconv.ParseFloat(s, 64)
}

// Significant returns the rows of t with a p-value less than alpha.
// It returns nil if t is nil.
func (t *Table) Significant(alpha float64) []Row {
	if t == nil {
		return nil
	}
	var rows []Row
	for _, r := range t.Rows {
		if r.P < alpha {
			rows = append(rows, r)
		}
	}
	return rows
}

// IDs returns the identifiers of rows in order.
func IDs(rows []Row) []string {
	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids
}

// WriteTable writes t to path in the result table format for its target.
func WriteTable(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := bufio.NewWriter(f)
	err = writeTable(w, t)
	if err != nil {
		f.Close()
		return err
	}
	err = w.Flush()
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeTable(w io.Writer, t *Table) error {
	cols := columnsFor(t.Target)
	_, err := fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", cols.id, cols.term, cols.annotated, cols.significant, cols.p)
	if err != nil {
		return err
	}
	for _, r := range t.Rows {
		p := r.PText
		if p == "" {
			p = strconv.FormatFloat(r.P, 'g', -1, 64)
		}
		_, err = fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n", r.ID, r.Term, r.Annotated, r.Significant, p)
		if err != nil {
			return err
		}
	}
	return nil
}
