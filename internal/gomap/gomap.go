// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package gomap builds identifier to GO term mappings from Ensembl RDF
// cross-reference data for use as the enrichment term mapping.
//
// Ensembl annotates GO terms to transcripts:
//
//  <transcript:Y> <rdfs:seeAlso> <obo:GO_Z> .
//
// and relates transcripts to genes:
//
//  <transcript:Y> <obo:SO_transcribed_from> <ensembl:X> .
//
// so gene level mappings are collected through the gene's transcripts.
package gomap

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"

	"github.com/kortschak/gogo"

	"github.com/kortschak/goldwasher/internal/ontology"
)

// Level is the identifier level of a mapping.
type Level int

const (
	Gene Level = iota
	Transcript
)

// ParseLevel returns the Level named by s.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gene":
		return Gene, nil
	case "transcript":
		return Transcript, nil
	default:
		return 0, fmt.Errorf("unknown mapping level: %q", s)
	}
}

const (
	transcribedFrom = "<obo:SO_transcribed_from>"
	seeAlso         = "<rdfs:seeAlso>"

	genePrefix       = "<ensembl:"
	transcriptPrefix = "<transcript:"
	goPrefix         = "<obo:GO_"
)

// Builder collects Ensembl cross-reference statements.
type Builder struct {
	g   *gogo.Graph
	dec rdf.Decoder
}

// NewBuilder returns a new Builder.
func NewBuilder() *Builder {
	return &Builder{g: gogo.NewGraph()}
}

// Add reads N-Triples or N-Quads Ensembl organism or cross-reference
// data from r, retaining the transcript to gene and transcript to GO
// term statements.
func (b *Builder) Add(r io.Reader) error {
	b.dec.Reset(r)
	for {
		s, err := b.dec.Unmarshal()
		if err != nil {
			if err != io.EOF {
				return fmt.Errorf("error during decoding: %w", err)
			}
			return nil
		}

		switch s.Predicate.Value {
		case transcribedFrom, seeAlso:
		case "<http://purl.obolibrary.org/obo/SO_transcribed_from>":
			s.Subject.Value = transcriptPrefix + strings.TrimPrefix(s.Subject.Value, "<http://rdf.ebi.ac.uk/resource/ensembl.transcript/")
			s.Predicate.Value = transcribedFrom
			s.Object.Value = genePrefix + strings.TrimPrefix(s.Object.Value, "<http://rdf.ebi.ac.uk/resource/ensembl/")
		case "<http://www.w3.org/2000/01/rdf-schema#seeAlso>":
			if !strings.HasPrefix(s.Object.Value, "<http://identifiers.org/go/GO:") {
				continue
			}
			s.Subject.Value = transcriptPrefix + strings.TrimPrefix(s.Subject.Value, "<http://rdf.ebi.ac.uk/resource/ensembl.transcript/")
			s.Predicate.Value = seeAlso
			s.Object.Value = goPrefix + strings.TrimPrefix(s.Object.Value, "<http://identifiers.org/go/GO:")
		default:
			continue
		}
		if s.Predicate.Value == seeAlso && !strings.HasPrefix(s.Object.Value, goPrefix) {
			continue
		}

		s.Subject.UID = 0
		s.Predicate.UID = 0
		s.Object.UID = 0
		b.g.AddStatement(s)
	}
}

// Mapping returns the GO terms annotated to each identifier at the
// given level. Terms are sorted and unique.
func (b *Builder) Mapping(level Level) map[string][]string {
	prefix := genePrefix
	if level == Transcript {
		prefix = transcriptPrefix
	}
	isGO := func(s *rdf.Statement) bool {
		return s.Predicate.Value == seeAlso && strings.HasPrefix(s.Object.Value, goPrefix)
	}

	m := make(map[string][]string)
	nodes := b.g.Nodes()
	for nodes.Next() {
		t := nodes.Node().(rdf.Term)
		if !strings.HasPrefix(t.Value, prefix) {
			continue
		}

		q := b.g.Query(t)
		if level == Gene {
			q = q.In(func(s *rdf.Statement) bool {
				return s.Predicate.Value == transcribedFrom
			})
		}
		terms := q.Out(isGO).Unique().Result()
		if len(terms) == 0 {
			continue
		}
		ids := make([]string, len(terms))
		for i, term := range terms {
			ids[i] = ontology.ID(term.Value)
		}
		sort.Strings(ids)
		m[strings.TrimSuffix(strings.TrimPrefix(t.Value, prefix), ">")] = ids
	}
	return m
}

// WriteMapping writes m to w in topGO readMappings format, ordered by
// identifier.
//
//  Phatr3_J41413	GO:0005524, GO:0016887
func WriteMapping(w io.Writer, m map[string][]string) error {
	ids := make([]string, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	bw := bufio.NewWriter(w)
	for _, id := range ids {
		_, err := fmt.Fprintf(bw, "%s\t%s\n", id, strings.Join(m[id], ", "))
		if err != nil {
			return err
		}
	}
	return bw.Flush()
}
