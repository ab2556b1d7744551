// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owl

import (
	"encoding/xml"
	"io"

	"gonum.org/v1/gonum/graph/formats/rdf"
)

const owlNS = "http://www.w3.org/2002/07/owl#"

// Decoder is a Gene Ontology OBO in OWL class decoder. rdf.Statements
// returned by Unmarshal hold full IRI text and have zero Term UIDs so
// that an RDF-aware client graph can assign IDs.
type Decoder struct {
	xml *xml.Decoder

	curr int
	buf  []*rdf.Statement
	seen map[[3]string]bool
}

// NewDecoder returns a new Decoder that takes input from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		xml:  xml.NewDecoder(r),
		seen: make(map[[3]string]bool),
	}
}

// Unmarshal returns the next unique statement from the input stream.
// It returns io.EOF when the stream is exhausted.
func (dec *Decoder) Unmarshal() (*rdf.Statement, error) {
	for {
		for len(dec.buf[dec.curr:]) == 0 {
			err := dec.fillBuffer()
			if err != nil {
				return nil, err
			}
		}
		s := dec.buf[dec.curr]
		dec.buf[dec.curr] = nil
		dec.curr++
		if len(dec.buf[dec.curr:]) == 0 {
			dec.curr = 0
			dec.buf = dec.buf[:0]
		}
		triple := [3]string{s.Subject.Value, s.Predicate.Value, s.Object.Value}
		if !dec.seen[triple] {
			dec.seen[triple] = true
			return s, nil
		}
	}
}

// fillBuffer reads tokens until at least one class has been decoded
// or the stream ends. Elements other than the rdf:RDF wrapper and
// top-level owl:Class elements are skipped with their content.
func (dec *Decoder) fillBuffer() (err error) {
	defer func() {
		r := recover()
		switch r := r.(type) {
		case nil:
			return
		case error:
			err = r
		default:
			panic(r)
		}
	}()
	for {
		tok, err := dec.xml.Token()
		if err != nil {
			return err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch {
		case start.Name.Local == "RDF":
			// Descend into the document wrapper.
		case start.Name.Local == "Class" && start.Name.Space == owlNS:
			var c class
			err = dec.xml.DecodeElement(&c, &start)
			if err != nil {
				return err
			}
			n := len(dec.buf)
			dec.buf = c.collect(dec.buf)
			if len(dec.buf) != n {
				return nil
			}
		default:
			err = dec.xml.Skip()
			if err != nil {
				return err
			}
		}
	}
}
