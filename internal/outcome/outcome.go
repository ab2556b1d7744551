// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package outcome records the result of processing one item in a
// pipeline stage.
package outcome

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stage is a pipeline stage name.
type Stage string

const (
	Split    Stage = "split"
	Annotate Stage = "annotate"
	Enrich   Stage = "enrich"
	DAG      Stage = "dag"
	Render   Stage = "render"
	Report   Stage = "report"
)

// Status is the final state of a processed item.
type Status int

const (
	OK Status = iota
	Skipped
	Failed
)

func (s Status) String() string {
	switch s {
	case OK:
		return "ok"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Outcome is the result of processing one list for one target in a
// stage. Err holds the reason for skipped and failed outcomes.
type Outcome struct {
	Stage  Stage    `json:"stage"`
	List   string   `json:"list"`
	Target string   `json:"target,omitempty"`
	Status Status   `json:"status"`
	Path   string   `json:"path,omitempty"`
	Terms  []string `json:"terms,omitempty"`
	Err    error    `json:"-"`
}

// MarshalJSON implements json.Marshaler, rendering Err as text.
func (o Outcome) MarshalJSON() ([]byte, error) {
	type plain Outcome
	var msg string
	if o.Err != nil {
		msg = o.Err.Error()
	}
	return json.Marshal(struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(o), Error: msg})
}

func (o Outcome) String() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s %s", o.Stage, o.List)
	if o.Target != "" {
		fmt.Fprintf(&buf, " [%s]", o.Target)
	}
	fmt.Fprintf(&buf, ": %s", o.Status)
	if o.Err != nil {
		fmt.Fprintf(&buf, ": %v", o.Err)
	}
	if len(o.Terms) != 0 {
		fmt.Fprintf(&buf, " (terms: %s)", strings.Join(o.Terms, ", "))
	}
	return buf.String()
}
