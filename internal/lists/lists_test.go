// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lists

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/pkg/diff"
	"github.com/pkg/diff/write"
)

const baySeqResult = "annotation\tLikelihood\tordering\tFDR.DE\n" +
	"Phatr3_J45821.t1\t0.99\t1>2\t0.001\n" +
	"Phatr3_EG02093.t1\t0.98\t2>1\t0.002\n" +
	"Phatr3_J41413.t1\t0.97\t1>2\t0.003\n" +
	"Phatr3_J50012.t1\t0.50\t1=2\t0.400\n" +
	"Phatr3_J49202.t1\t0.96\t2>1\t0.004\n"

func TestSplit(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "wt_vs_ko.tsv")
	err := os.WriteFile(in, []byte(baySeqResult), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "splits")

	n, err := Split(dst, in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != (Counts{Up: 2, Down: 2}) {
		t.Errorf("unexpected counts: got:%+v want:%+v", n, Counts{Up: 2, Down: 2})
	}

	for _, test := range []struct {
		name string
		want string
	}{
		{name: "wt_vs_ko_down.txt", want: "Phatr3_J45821.t1\nPhatr3_J41413.t1\n"},
		{name: "wt_vs_ko_up.txt", want: "Phatr3_EG02093.t1\nPhatr3_J49202.t1\n"},
	} {
		got, err := os.ReadFile(filepath.Join(dst, test.name))
		if err != nil {
			t.Fatalf("failed to read output: %v", err)
		}
		if string(got) != test.want {
			var buf bytes.Buffer
			err := diff.Text("got", "want", string(got), test.want, &buf, write.TerminalColor())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			t.Errorf("unexpected output for %s:\n%s", test.name, &buf)
		}
	}

	src, err := os.ReadFile(in)
	if err != nil {
		t.Fatal(err)
	}
	if string(src) != baySeqResult {
		t.Error("input was mutated")
	}
}

func TestSplitExactlyOnce(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "r.tsv")
	err := os.WriteFile(in, []byte(baySeqResult), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Split(dir, in)
	if err != nil {
		t.Fatal(err)
	}
	down, err := ReadIDs(filepath.Join(dir, "r_down.txt"))
	if err != nil {
		t.Fatal(err)
	}
	up, err := ReadIDs(filepath.Join(dir, "r_up.txt"))
	if err != nil {
		t.Fatal(err)
	}
	seen := make(map[string]int)
	for _, id := range append(down, up...) {
		seen[id]++
	}
	for _, line := range strings.Split(strings.TrimSpace(baySeqResult), "\n")[1:] {
		f := strings.Split(line, "\t")
		want := 1
		if f[2] != Up && f[2] != Down {
			want = 0
		}
		if seen[f[0]] != want {
			t.Errorf("unexpected occurrence count for %s with ordering %q: got:%d want:%d", f[0], f[2], seen[f[0]], want)
		}
	}
}

func TestSplitMissingColumn(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "r.tsv")
	err := os.WriteFile(in, []byte("id\tordering\nx\t1>2\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = Split(dir, in)
	if err == nil {
		t.Error("expected error for missing annotation column")
	}
}

const descriptions = "Phatr3_J45821.t1\tFake Functional Annotation 1\n" +
	"Phatr3_EG02093.t1\t  Fake Functional Annotation 2  \n" +
	"no tab on this line\n" +
	"Phatr3_J41413.t1\tFake Functional Annotation 3\n" +
	"Phatr3_J41413.t1\tFake Functional Annotation 3b\n"

func TestLoadDescriptions(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "id2desc.txt")
	err := os.WriteFile(path, []byte(descriptions), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	got, err := LoadDescriptions(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Descriptions{
		"Phatr3_J45821.t1":  "Fake Functional Annotation 1",
		"Phatr3_EG02093.t1": "Fake Functional Annotation 2",
		"Phatr3_J41413.t1":  "Fake Functional Annotation 3b",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("unexpected descriptions:\ngot: %v\nwant:%v", got, want)
	}

	_, err = LoadDescriptions(filepath.Join(dir, "null.file"))
	if err == nil {
		t.Error("expected error for missing mapping file")
	}
}

func TestAnnotate(t *testing.T) {
	d := Descriptions{
		"Phatr3_J45821.t1": "Fake Functional Annotation 1",
		"Phatr3_J41413.t1": "Fake Functional Annotation 3",
	}
	const list = "Phatr3_J45821.t1\nPhatr3_UNKNOWN.t1\n\nPhatr3_J41413.t1\t0.003\n"
	const want = "Phatr3_J45821.t1\tFake Functional Annotation 1\n" +
		"Phatr3_UNKNOWN.t1\t\n" +
		"\t\n" +
		"Phatr3_J41413.t1\t0.003\tFake Functional Annotation 3\n"

	dir := t.TempDir()
	src := filepath.Join(dir, "list_up.txt")
	err := os.WriteFile(src, []byte(list), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(dir, "list_up.tsv")
	n, err := d.Annotate(dst, src)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("unexpected row count: got:%d want:4", n)
	}
	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != want {
		var buf bytes.Buffer
		err := diff.Text("got", "want", string(got), want, &buf, write.TerminalColor())
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		t.Errorf("unexpected annotated list:\n%s", &buf)
	}

	annots, err := ReadAnnotated(dst)
	if err != nil {
		t.Fatal(err)
	}
	wantAnnots := []Annotation{
		{ID: "Phatr3_J45821.t1", Description: "Fake Functional Annotation 1"},
		{ID: "Phatr3_UNKNOWN.t1", Description: ""},
		{ID: "Phatr3_J41413.t1", Description: "Fake Functional Annotation 3"},
	}
	if !reflect.DeepEqual(annots, wantAnnots) {
		t.Errorf("unexpected annotations:\ngot: %+v\nwant:%+v", annots, wantAnnots)
	}
}

func TestAnnotateErrors(t *testing.T) {
	dir := t.TempDir()
	var d Descriptions
	_, err := d.Annotate(filepath.Join(dir, "out.tsv"), filepath.Join(dir, "null.file"))
	if err == nil {
		t.Error("expected error for unreadable list")
	}

	src := filepath.Join(dir, "in.txt")
	err = os.WriteFile(src, []byte("a\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, err = d.Annotate(filepath.Join(dir, "forbidden", "out.tsv"), src)
	if err == nil {
		t.Error("expected error for unwritable destination")
	}
}
