// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package lists

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/kortschak/goldwasher/internal/layout"
)

const (
	// Down is the ordering token for features more highly
	// expressed in group 1 than in group 2.
	Down = "1>2"
	// Up is the ordering token for features more highly
	// expressed in group 2 than in group 1.
	Up = "2>1"
)

// Counts holds the number of identifiers written by Split.
type Counts struct {
	Up, Down int
}

// Split partitions the rows of the two group baySeq result table at path
// into down- and up-regulated identifier lists according to the value
// of the ordering column, writing the identifiers held in the annotation
// column to <dst>/<base>_down.txt and <dst>/<base>_up.txt. Rows with any
// other ordering value are dropped. The dst directory is created if it
// does not exist.
func Split(dst, path string) (Counts, error) {
	var n Counts

	f, err := os.Open(path)
	if err != nil {
		return n, err
	}
	defer f.Close()

	c := csv.NewReader(f)
	c.Comma = '\t'
	c.Comment = '#'
	c.FieldsPerRecord = -1
	c.LazyQuotes = true

	header, err := c.Read()
	if err != nil {
		if err == io.EOF {
			return n, io.ErrUnexpectedEOF
		}
		return n, err
	}
	orderCol, idCol := -1, -1
	for i, h := range header {
		switch h {
		case "ordering":
			orderCol = i
		case "annotation":
			idCol = i
		}
	}
	if orderCol < 0 || idCol < 0 {
		return n, fmt.Errorf("%s: missing ordering or annotation column in header: %q", path, header)
	}

	err = layout.MkdirAll(dst)
	if err != nil {
		return n, err
	}
	base := layout.Base(path)
	down, err := newListWriter(filepath.Join(dst, base+"_down.txt"))
	if err != nil {
		return n, err
	}
	defer down.close()
	up, err := newListWriter(filepath.Join(dst, base+"_up.txt"))
	if err != nil {
		return n, err
	}
	defer up.close()

	c.ReuseRecord = true
	for {
		rec, err := c.Read()
		if err != nil {
			if err != io.EOF {
				return n, err
			}
			break
		}
		if orderCol >= len(rec) || idCol >= len(rec) {
			continue
		}
		switch rec[orderCol] {
		case Down:
			err = down.write(rec[idCol])
			n.Down++
		case Up:
			err = up.write(rec[idCol])
			n.Up++
		}
		if err != nil {
			return n, err
		}
	}

	err = down.close()
	if err != nil {
		return n, err
	}
	return n, up.close()
}

type listWriter struct {
	f *os.File
	w *bufio.Writer
}

func newListWriter(path string) (*listWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &listWriter{f: f, w: bufio.NewWriter(f)}, nil
}

func (l *listWriter) write(id string) error {
	_, err := l.w.WriteString(id)
	if err != nil {
		return err
	}
	return l.w.WriteByte('\n')
}

// close flushes and closes the list. It is safe to call more than once.
func (l *listWriter) close() error {
	if l.f == nil {
		return nil
	}
	err := l.w.Flush()
	cerr := l.f.Close()
	l.f = nil
	if err != nil {
		return err
	}
	return cerr
}
