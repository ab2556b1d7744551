// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lists

import (
	"bufio"
	"os"
	"strings"
)

// maxLine is the longest line accepted in list and description files.
const maxLine = 1 << 20

// Descriptions maps identifiers to their functional descriptions.
type Descriptions map[string]string

// LoadDescriptions returns the identifier to description mapping held in
// the two column tab-separated file at path. Keys and values are trimmed
// of surrounding white space and later entries replace earlier entries
// with the same key. Lines without a tab are ignored.
func LoadDescriptions(path string) (Descriptions, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	d := make(Descriptions)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		id, desc, ok := strings.Cut(sc.Text(), "\t")
		if !ok {
			continue
		}
		// Only the second column is the description.
		desc, _, _ = strings.Cut(desc, "\t")
		d[strings.TrimSpace(id)] = strings.TrimSpace(desc)
	}
	return d, sc.Err()
}

// Annotate writes a copy of the identifier list at src to dst with the
// description of the identifier in the first column of each line
// appended as an additional tab-separated column. Identifiers without a
// description get an empty column. Annotate returns the number of lines
// written, which is always the number of lines read.
func (d Descriptions) Annotate(dst, src string) (n int, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer func() {
		cerr := out.Close()
		if err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(out)

	sc := bufio.NewScanner(in)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		line := strings.TrimSuffix(sc.Text(), "\r")
		id, _, _ := strings.Cut(line, "\t")
		_, err = w.WriteString(line + "\t" + d[strings.TrimSpace(id)] + "\n")
		if err != nil {
			return n, err
		}
		n++
	}
	err = sc.Err()
	if err != nil {
		return n, err
	}
	return n, w.Flush()
}

// Annotation is an identifier and its functional description.
type Annotation struct {
	ID          string
	Description string
}

// ReadAnnotated returns the annotations held in an annotated list
// written by Annotate, in list order. The description is taken from
// the last column of each line. Repeated identifiers keep their first
// position and their last description.
func ReadAnnotated(path string) ([]Annotation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var annots []Annotation
	idx := make(map[string]int)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		fields := strings.Split(strings.TrimSuffix(sc.Text(), "\r"), "\t")
		id := strings.TrimSpace(fields[0])
		if id == "" {
			continue
		}
		var desc string
		if len(fields) > 1 {
			desc = strings.TrimSpace(fields[len(fields)-1])
		}
		if i, ok := idx[id]; ok {
			annots[i].Description = desc
			continue
		}
		idx[id] = len(annots)
		annots = append(annots, Annotation{ID: id, Description: desc})
	}
	return annots, sc.Err()
}

// ReadIDs returns the identifiers in the first column of the list at
// path, skipping empty lines.
func ReadIDs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ids []string
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), maxLine)
	for sc.Scan() {
		id, _, _ := strings.Cut(sc.Text(), "\t")
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}
	return ids, sc.Err()
}
