// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package enrich

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/kortschak/goldwasher/internal/layout"
	"github.com/kortschak/goldwasher/internal/lists"
	"github.com/kortschak/goldwasher/internal/outcome"
)

// errNoKEGGMap is the reason given for skipping KEGG enrichment when no
// pathway mapping has been configured.
var errNoKEGGMap = errors.New("no KEGG mapping configured")

// Invoker runs enrichment for identifier lists and places the results
// in the working directory layout.
type Invoker struct {
	Engine Engine

	// GOMap and KEGGMap are the identifier to GO term and
	// KEGG pathway to identifier mapping files.
	GOMap   string
	KEGGMap string

	Organism string
	Alpha    float64
}

// Run performs enrichment for target on the list at listPath, writing
// the result table to the layout.EnrichmentPath below workdir. Lists
// with no mapped terms result in a skipped outcome and no result file.
func (inv Invoker) Run(ctx context.Context, workdir, listPath string, target layout.Target) outcome.Outcome {
	base := layout.Base(listPath)
	o := outcome.Outcome{
		Stage:  outcome.Enrich,
		List:   base,
		Target: string(target),
	}

	if target == layout.KEGG && inv.KEGGMap == "" {
		o.Status = outcome.Skipped
		o.Err = errNoKEGGMap
		return o
	}

	ids, err := lists.ReadIDs(listPath)
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		return o
	}

	err = layout.MkdirAll(layout.EnrichmentDir(workdir, target))
	if err != nil {
		o.Status = outcome.Failed
		o.Err = err
		return o
	}
	out := layout.EnrichmentPath(workdir, target, base)
	// Remove results of earlier runs so that an unmapped list
	// does not leave a stale table behind.
	err = os.Remove(out)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		o.Status = outcome.Failed
		o.Err = err
		return o
	}

	if target == layout.KEGG {
		err = inv.Engine.KEGG(ctx, KEGGRequest{
			Targets:  ids,
			Mapping:  inv.KEGGMap,
			Organism: inv.Organism,
			Alpha:    inv.Alpha,
			Out:      out,
		})
	} else {
		err = inv.Engine.GO(ctx, GORequest{
			Aspect:  target,
			Targets: ids,
			Mapping: inv.GOMap,
			Out:     out,
		})
	}
	switch {
	case err == nil:
		o.Status = outcome.OK
		o.Path = out
	case errors.Is(err, ErrNoMapping):
		o.Status = outcome.Skipped
		o.Err = err
	default:
		o.Status = outcome.Failed
		o.Err = fmt.Errorf("%s enrichment: %w", target, err)
	}
	return o
}
