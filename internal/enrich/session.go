// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package enrich

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
)

//go:embed scripts/*.R
var scripts embed.FS

// noMappingStatus is the exit status used by the R scripts to signal
// that no term could be mapped to the targets.
const noMappingStatus = 3

// Session is an Engine that runs the R topGO and GOstats packages
// with Rscript. Each Session has its own scratch directory and calls
// on a Session are serialised. A Session must be closed after use.
type Session struct {
	command string
	dir     string

	mu sync.Mutex
}

// NewSession returns a new Session that runs R scripts with the given
// Rscript command. If command is empty "Rscript" is used.
func NewSession(command string) (*Session, error) {
	if command == "" {
		command = "Rscript"
	}
	dir, err := os.MkdirTemp("", "goldwasher-r-")
	if err != nil {
		return nil, fmt.Errorf("could not create R scratch directory: %w", err)
	}
	for _, name := range []string{"topgo.R", "kegg.R"} {
		b, err := scripts.ReadFile("scripts/" + name)
		if err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
		err = os.WriteFile(filepath.Join(dir, name), b, 0o644)
		if err != nil {
			os.RemoveAll(dir)
			return nil, err
		}
	}
	return &Session{command: command, dir: dir}, nil
}

// Close removes the Session's scratch directory.
func (s *Session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return os.RemoveAll(s.dir)
}

// GO runs topGO classic and elim Fisher tests for the request.
func (s *Session) GO(ctx context.Context, req GORequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.writeTargets(req.Targets)
	if err != nil {
		return err
	}
	return s.run(ctx, "topgo.R", req.Mapping, string(req.Aspect), targets, req.Out)
}

// KEGG runs a GOstats hypergeometric test over KEGG pathways for the
// request.
func (s *Session) KEGG(ctx context.Context, req KEGGRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	targets, err := s.writeTargets(req.Targets)
	if err != nil {
		return err
	}
	alpha := strconv.FormatFloat(req.Alpha, 'g', -1, 64)
	return s.run(ctx, "kegg.R", req.Mapping, req.Organism, alpha, targets, req.Out)
}

func (s *Session) writeTargets(ids []string) (string, error) {
	path := filepath.Join(s.dir, "targets.txt")
	err := os.WriteFile(path, []byte(strings.Join(ids, "\n")+"\n"), 0o644)
	if err != nil {
		return "", fmt.Errorf("could not write targets: %w", err)
	}
	return path, nil
}

func (s *Session) run(ctx context.Context, script string, args ...string) error {
	cmd := exec.CommandContext(ctx, s.command, append([]string{filepath.Join(s.dir, script)}, args...)...)
	cmd.Dir = s.dir
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == noMappingStatus {
			return ErrNoMapping
		}
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return fmt.Errorf("%s failed: %w", script, err)
		}
		return fmt.Errorf("%s failed: %w: %s", script, err, msg)
	}
	return nil
}
