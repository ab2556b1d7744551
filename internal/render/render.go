// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package render lays out DOT graph descriptions with Graphviz.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// ErrUnknownFormat is returned for unsupported output formats.
var ErrUnknownFormat = errors.New("unknown output format")

// Format is a Graphviz output format.
type Format string

const (
	SVG  Format = "svg"
	PNG  Format = "png"
	CMap Format = "cmap"
)

// ParseFormat returns the Format named by s.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case SVG, PNG, CMap:
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

// Flag returns the dot output flag for the format.
func (f Format) Flag() string {
	switch f {
	case CMap:
		return "-Tcmapx"
	default:
		return "-T" + string(f)
	}
}

// Ext returns the file extension of images in the format.
func (f Format) Ext() string {
	switch f {
	case CMap:
		return "map"
	default:
		return string(f)
	}
}

// Renderer runs the Graphviz dot layout command.
type Renderer struct {
	// Command is the dot executable. If empty, "dot"
	// is used.
	Command string
}

// Render lays out the DOT file at dotPath and writes the image in the
// given format next to it, with the extension replaced. It returns the
// path of the image.
func (r Renderer) Render(ctx context.Context, dotPath string, format Format) (string, error) {
	switch format {
	case SVG, PNG, CMap:
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	command := r.Command
	if command == "" {
		command = "dot"
	}
	out := strings.TrimSuffix(dotPath, filepath.Ext(dotPath)) + "." + format.Ext()

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, command, format.Flag(), "-o", out, dotPath)
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		os.Remove(out)
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return "", fmt.Errorf("%s: %w", command, err)
		}
		return "", fmt.Errorf("%s: %w: %s", command, err, msg)
	}
	return out, nil
}
