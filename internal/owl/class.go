// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package owl

import (
	"encoding/xml"
	"strings"

	"gonum.org/v1/gonum/graph/formats/rdf"
)

// class holds the parts of an owl:Class that are used to build the
// is_a hierarchy. Restrictions held in rdfs:subClassOf elements describe
// relations other than is_a, they have no rdf:resource attribute and so
// are dropped by claim.
type class struct {
	XMLName xml.Name

	About string `xml:"about,attr"`

	ID              []rdfDataType `xml:"id"`
	Label           []rdfDataType `xml:"label"`
	HasOBONamespace []rdfDataType `xml:"hasOBONamespace"`
	Deprecated      []rdfDataType `xml:"deprecated"`
	SubClassOf      []rdfDataType `xml:"subClassOf"`
}

func (c class) collect(dst []*rdf.Statement) []*rdf.Statement {
	if strings.TrimSpace(c.About) == "" {
		// Anonymous classes only occur within class expressions.
		return dst
	}
	subj := mustTerm(rdf.NewIRITerm(c.About))
	for _, field := range [][]rdfDataType{
		c.ID,
		c.Label,
		c.HasOBONamespace,
		c.Deprecated,
		c.SubClassOf,
	} {
		for _, e := range field {
			claim, text, qual, kind := e.claim()
			var obj rdf.Term
			switch kind {
			case rdf.IRI:
				obj = mustTerm(rdf.NewIRITerm(text))
			case rdf.Literal:
				obj = mustTerm(rdf.NewLiteralTerm(text, qual))
			default:
				continue
			}
			pred := mustTerm(rdf.NewIRITerm(claim))
			dst = append(dst, &rdf.Statement{Subject: subj, Predicate: pred, Object: obj})
		}
	}
	return dst
}

type rdfDataType struct {
	XMLName xml.Name

	Resource string `xml:"resource,attr"`
	Text     string `xml:",chardata"`
	Datatype string `xml:"datatype,attr"`
}

func (r rdfDataType) claim() (pred, obj, qual string, kind rdf.Kind) {
	switch {
	case strings.TrimSpace(r.Resource) != "":
		return r.XMLName.Space + r.XMLName.Local, r.Resource, "", rdf.IRI
	case strings.TrimSpace(r.Datatype) != "":
		return r.XMLName.Space + r.XMLName.Local, r.Text, r.Datatype, rdf.Literal
	case strings.TrimSpace(r.Text) != "":
		// Plain literal.
		return r.XMLName.Space + r.XMLName.Local, r.Text, "", rdf.Literal
	default:
		return
	}
}

func mustTerm(t rdf.Term, err error) rdf.Term {
	if err != nil {
		panic(err)
	}
	return t
}
