// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package report

import (
	"encoding/json"
	"fmt"
	"html"
	"html/template"
	"os"
	"regexp"

	"github.com/microcosm-cc/bluemonday"
)

// Linkouts renders identifier anchors to an organism's external
// databases.
type Linkouts struct {
	// Dialog and Gene are anchor templates with {{ id }}
	// placeholders for the member lists of term dialogs and
	// the identifier table.
	Dialog string
	Gene   string
}

// Placeholder anchor templates used when no organism linkouts are
// available.
const (
	placeholderDialog = `<a href="#null">{{ id }}</a>`
	placeholderGene   = `<a name="{{ id }}" href="#null">{{ id }}</a>`
)

// PlaceholderLinkouts returns Linkouts that render non-linking anchors.
func PlaceholderLinkouts() Linkouts {
	return Linkouts{Dialog: placeholderDialog, Gene: placeholderGene}
}

// LoadLinkouts returns the linkouts for organism from the organism
// registry at path. The registry is a JSON object keyed by organism:
//
//  {"phatr": {"insertlink1": "<a href=\"https://example.org/{{ id }}\">{{ id }}</a>", "insertlink2": "..."}}
//
// If the registry cannot be read or does not hold the organism, the
// placeholder linkouts are returned with a non-nil error.
func LoadLinkouts(path, organism string) (Linkouts, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return PlaceholderLinkouts(), err
	}
	var registry map[string]struct {
		Dialog string `json:"insertlink1"`
		Gene   string `json:"insertlink2"`
	}
	err = json.Unmarshal(b, &registry)
	if err != nil {
		return PlaceholderLinkouts(), fmt.Errorf("%s: %w", path, err)
	}
	l, ok := registry[organism]
	if !ok {
		return PlaceholderLinkouts(), fmt.Errorf("%s: no linkouts for organism %q", path, organism)
	}
	links := PlaceholderLinkouts()
	if l.Dialog != "" {
		links.Dialog = l.Dialog
	}
	if l.Gene != "" {
		links.Gene = l.Gene
	}
	return links, nil
}

var idPlaceholder = regexp.MustCompile(`{{\s*id\s*}}`)

// anchorPolicy permits only anchors and the text they contain.
var anchorPolicy = func() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.AllowStandardURLs()
	p.AllowAttrs("href", "name", "title", "target", "alt").OnElements("a")
	return p
}()

// DialogAnchor returns the sanitised dialog anchor for id.
func (l Linkouts) DialogAnchor(id string) template.HTML {
	return render(l.Dialog, id)
}

// GeneAnchor returns the sanitised identifier table anchor for id.
func (l Linkouts) GeneAnchor(id string) template.HTML {
	return render(l.Gene, id)
}

func render(tmpl, id string) template.HTML {
	a := idPlaceholder.ReplaceAllLiteralString(tmpl, html.EscapeString(id))
	return template.HTML(anchorPolicy.Sanitize(a))
}
