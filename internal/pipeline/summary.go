// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package pipeline

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kortschak/goldwasher/internal/config"
	"github.com/kortschak/goldwasher/internal/outcome"
)

// Summary is the record of a pipeline run.
type Summary struct {
	// RunID uniquely identifies the run.
	RunID   string `json:"run_id"`
	Command string `json:"command"`

	Started  time.Time `json:"started"`
	Finished time.Time `json:"finished"`

	Config *config.Config `json:"config,omitempty"`

	// Outcomes holds the result of each item processed
	// by each stage in the order they were processed.
	Outcomes []outcome.Outcome `json:"outcomes"`
}

// NewSummary returns a new Summary for a run of command started at now.
func NewSummary(command string, cfg *config.Config, now time.Time) *Summary {
	return &Summary{
		RunID:   uuid.NewString(),
		Command: command,
		Started: now,
		Config:  cfg,
	}
}

// Count returns the number of outcomes for the stage with the given
// status.
func (s *Summary) Count(stage outcome.Stage, status outcome.Status) int {
	var n int
	for _, o := range s.Outcomes {
		if o.Stage == stage && o.Status == status {
			n++
		}
	}
	return n
}

// Failed returns whether any item failed.
func (s *Summary) Failed() bool {
	for _, o := range s.Outcomes {
		if o.Status == outcome.Failed {
			return true
		}
	}
	return false
}

// WriteFile writes the summary to path in JSON format.
func (s *Summary) WriteFile(path string) error {
	b, err := json.MarshalIndent(s, "", "\t")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3B82F6"))
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	detailStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748B")).Italic(true)

	statusStyles = map[outcome.Status]lipgloss.Style{
		outcome.OK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		outcome.Skipped: lipgloss.NewStyle().Foreground(lipgloss.Color("#FBBF24")),
		outcome.Failed:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F87171")).Bold(true),
	}
)

// Print writes a table of the outcomes that were not successful and
// the per-stage totals to w.
func (s *Summary) Print(w io.Writer) error {
	var buf strings.Builder
	fmt.Fprintln(&buf, titleStyle.Render(fmt.Sprintf("%s run %s", s.Command, s.RunID)))

	var stages []outcome.Stage
	seen := make(map[outcome.Stage]bool)
	for _, o := range s.Outcomes {
		if !seen[o.Stage] {
			seen[o.Stage] = true
			stages = append(stages, o.Stage)
		}
	}
	if len(stages) == 0 {
		fmt.Fprintln(&buf, detailStyle.Render("no items processed"))
		_, err := io.WriteString(w, buf.String())
		return err
	}

	width := len("stage")
	for _, st := range stages {
		if len(st) > width {
			width = len(st)
		}
	}
	cell := lipgloss.NewStyle().Width(width + 2)
	num := lipgloss.NewStyle().Width(9)
	fmt.Fprintln(&buf, lipgloss.JoinHorizontal(lipgloss.Top,
		cell.Inherit(headerStyle).Render("stage"),
		num.Inherit(headerStyle).Render("ok"),
		num.Inherit(headerStyle).Render("skipped"),
		num.Inherit(headerStyle).Render("failed"),
	))
	for _, st := range stages {
		cols := []string{cell.Render(string(st))}
		for _, status := range []outcome.Status{outcome.OK, outcome.Skipped, outcome.Failed} {
			n := s.Count(st, status)
			text := fmt.Sprint(n)
			if n != 0 {
				text = statusStyles[status].Render(text)
			}
			cols = append(cols, num.Render(text))
		}
		fmt.Fprintln(&buf, lipgloss.JoinHorizontal(lipgloss.Top, cols...))
	}

	for _, o := range s.Outcomes {
		if o.Status == outcome.OK {
			continue
		}
		item := o.List
		if o.Target != "" {
			item += " [" + o.Target + "]"
		}
		line := fmt.Sprintf("%s %s %s", statusStyles[o.Status].Render(o.Status.String()), o.Stage, item)
		if o.Err != nil {
			line += " " + detailStyle.Render(o.Err.Error())
		}
		fmt.Fprintln(&buf, line)
	}

	_, err := io.WriteString(w, buf.String())
	return err
}
