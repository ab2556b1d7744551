// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"bufio"
	"os"
	"sort"
	"strings"

	"github.com/kortschak/goldwasher/internal/ontology"
)

// LoadGOMapping returns the identifier to GO term mapping held in the
// topGO readMappings format file at path:
//
//  Phatr3_J41413	GO:0005524, GO:0016887
func LoadGOMapping(path string) (map[string][]string, error) {
	return readMapping(path, func(fields []string, dst map[string][]string) {
		id := strings.TrimSpace(fields[0])
		for _, term := range strings.Split(fields[1], ",") {
			term = strings.TrimSpace(term)
			if term != "" {
				dst[id] = append(dst[id], term)
			}
		}
	})
}

// LoadKEGGMapping returns the pathway to identifier mapping held in the
// two column pathway, identifier file at path.
func LoadKEGGMapping(path string) (map[string][]string, error) {
	return readMapping(path, func(fields []string, dst map[string][]string) {
		pathway := strings.TrimSpace(fields[0])
		dst[pathway] = append(dst[pathway], strings.TrimSpace(fields[1]))
	})
}

func readMapping(path string, add func(fields []string, dst map[string][]string)) (map[string][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	m := make(map[string][]string)
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		fields := strings.SplitN(sc.Text(), "\t", 3)
		if len(fields) < 2 || strings.TrimSpace(fields[0]) == "" {
			continue
		}
		add(fields, m)
	}
	return m, sc.Err()
}

// GOMembers returns the members of ids annotated to each of terms,
// either directly in gomap or through an is_a descendant of the term.
// Annotations to terms that are not in the ontology are only counted
// for the term itself.
func GOMembers(ont *ontology.Ontology, gomap map[string][]string, ids, terms []string) map[string][]string {
	want := make(map[string]bool, len(terms))
	for _, t := range terms {
		want[t] = true
	}
	ancestors := make(map[string][]string)
	members := make(map[string][]string, len(terms))
	for _, id := range unique(ids) {
		seen := make(map[string]bool)
		for _, direct := range gomap[id] {
			anc, ok := ancestors[direct]
			if !ok {
				var err error
				anc, err = ont.Closure([]string{direct})
				if err != nil {
					anc = []string{direct}
				}
				ancestors[direct] = anc
			}
			for _, t := range anc {
				if want[t] && !seen[t] {
					seen[t] = true
					members[t] = append(members[t], id)
				}
			}
		}
	}
	return members
}

// KEGGMembers returns the members of ids in each of pathways according
// to keggmap.
func KEGGMembers(keggmap map[string][]string, ids, pathways []string) map[string][]string {
	in := make(map[string]bool, len(ids))
	for _, id := range ids {
		in[id] = true
	}
	members := make(map[string][]string, len(pathways))
	for _, p := range pathways {
		for _, id := range unique(keggmap[p]) {
			if in[id] {
				members[p] = append(members[p], id)
			}
		}
	}
	return members
}

func unique(s []string) []string {
	u := append([]string(nil), s...)
	sort.Strings(u)
	n := 0
	for i, v := range u {
		if i != 0 && v == u[n-1] {
			continue
		}
		u[n] = v
		n++
	}
	return u[:n]
}
