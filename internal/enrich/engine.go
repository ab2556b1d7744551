// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package enrich runs GO term and KEGG pathway enrichment for
// identifier lists and reads the resulting tables.
//
// The statistics are computed by an external Engine. The Session engine
// runs the R topGO and GOstats packages through Rscript.
package enrich

import (
	"context"
	"errors"

	"github.com/kortschak/goldwasher/internal/layout"
)

// ErrNoMapping is returned by an Engine when none of the target
// identifiers could be mapped to a term.
var ErrNoMapping = errors.New("no terms mapped to list members")

// Engine computes enrichment tables.
type Engine interface {
	// GO writes the topGO result table for the request to
	// req.Out.
	GO(ctx context.Context, req GORequest) error
	// KEGG writes the GOstats result table for the request
	// to req.Out.
	KEGG(ctx context.Context, req KEGGRequest) error
}

// GORequest is a GO term enrichment request.
type GORequest struct {
	// Aspect is the GO aspect to test.
	Aspect layout.Target
	// Targets is the set of identifiers of interest.
	Targets []string
	// Mapping is the path to the identifier to GO term mapping
	// in topGO readMappings format.
	Mapping string
	// Out is the path of the result table.
	Out string
}

// KEGGRequest is a KEGG pathway enrichment request.
type KEGGRequest struct {
	// Targets is the set of identifiers of interest.
	Targets []string
	// Mapping is the path to the two column pathway to
	// identifier mapping.
	Mapping string
	// Organism is the KEGG organism code.
	Organism string
	// Alpha is the p-value cut-off.
	Alpha float64
	// Out is the path of the result table.
	Out string
}
