// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// goldmap maps Ensembl gene or transcript identifiers to GO terms based on
// Ensembl database cross-reference data, writing the mapping in the topGO
// readMappings format used by the goldwasher g_map source.
package main

import (
	"compress/gzip"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/kortschak/goldwasher/internal/gomap"
)

func main() {
	var (
		orgPath  = flag.String("org", "", "specify the Ensembl organism data (.nt[.gz]/.nq[.gz] - required)")
		xrefPath = flag.String("xref", "", "specify the Ensembl xref data (.nt[.gz]/.nq[.gz] - required)")
		level    = flag.String("level", "gene", "specify the identifier level (gene or transcript)")
		out      = flag.String("out", "", "specify the mapping output file (default stdout)")
		help     = flag.Bool("help", false, "print help text")
	)

	flag.Parse()

	if *help {
		flag.Usage()
		fmt.Fprintf(os.Stderr, `
%s maps Ensembl identifiers to GO terms based on Ensembl cross-reference
data. It outputs the mapping in the form:

 Phatr3_J41413	GO:0005524, GO:0016887

for each identifier with at least one GO term annotation.

Input data can be obtained from ftp://ftp.ensembl.org/pub/current_rdf
in Turtle format. These files must first be converted to N-Triples.

Copyright ©2021 Dan Kortschak. All rights reserved.

`, filepath.Base(os.Args[0]))
		os.Exit(0)
	}

	if *orgPath == "" || *xrefPath == "" {
		flag.Usage()
		os.Exit(2)
	}
	lvl, err := gomap.ParseLevel(*level)
	if err != nil {
		log.Fatal(err)
	}

	b := gomap.NewBuilder()
	for _, path := range []string{*orgPath, *xrefPath} {
		err := add(b, path)
		if err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
	m := b.Mapping(lvl)
	log.Printf("mapped %d identifiers", len(m))

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			log.Fatal(err)
		}
		defer func() {
			err := f.Close()
			if err != nil {
				log.Fatal(err)
			}
		}()
		w = f
	}
	err = gomap.WriteMapping(w, m)
	if err != nil {
		log.Fatal(err)
	}
}

func add(b *gomap.Builder, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return err
		}
		defer gz.Close()
		r = gz
	}
	return b.Add(r)
}
