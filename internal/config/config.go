// Copyright ©2021 Dan Kortschak. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config reads and stamps the pipeline configuration file.
//
// The configuration is a TOML file with three sections:
//
//  [meta]
//  date = "2021-05-22"
//  time = "10:17:03"
//
//  [vars]
//  alpha = 0.05
//  organism = "phatr"
//  splitsuffix = "splits"
//  enrichsuffix = "annotated"
//  savereports = "reports"
//
//  [sources]
//  g_map = "~/data/id2go.map"
//  kegg_map = "~/data/kegg.map"
//  functionalDesc = "~/data/id2desc.txt"
//  obofile = "~/data/go.owl.gz"
//  organisms = "organisms.json"
//
// The date and time keys of the meta section are updated in place by
// Stamp on each run.
package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the pipeline configuration.
type Config struct {
	Meta    Meta    `toml:"meta" json:"meta"`
	Vars    Vars    `toml:"vars" json:"vars"`
	Sources Sources `toml:"sources" json:"sources"`
}

// Meta records when the configuration was last used.
type Meta struct {
	Date string `toml:"date,omitempty" json:"date,omitempty"`
	Time string `toml:"time,omitempty" json:"time,omitempty"`
}

// Vars holds the analysis parameters and output directory names.
type Vars struct {
	// Alpha is the enrichment significance threshold.
	Alpha float64 `toml:"alpha" json:"alpha"`
	// Organism is the KEGG organism code and the key
	// into the organism link-out registry.
	Organism string `toml:"organism,omitempty" json:"organism"`

	// SplitSuffix, EnrichSuffix, SVGSuffix and SaveReports
	// are the default output directory names below the
	// input directory for the SPLIT, ANNOT, DAG and REPORT
	// commands.
	SplitSuffix  string `toml:"splitsuffix,omitempty" json:"splitsuffix"`
	EnrichSuffix string `toml:"enrichsuffix,omitempty" json:"enrichsuffix"`
	SVGSuffix    string `toml:"svgsuffix,omitempty" json:"svgsuffix"`
	SaveReports  string `toml:"savereports,omitempty" json:"savereports"`

	// Rscript and Dot are the external commands.
	Rscript string `toml:"rscript,omitempty" json:"rscript"`
	Dot     string `toml:"dot,omitempty" json:"dot"`
}

// Sources holds the paths to reference data.
type Sources struct {
	GOMap          string `toml:"g_map,omitempty" json:"g_map,omitempty"`
	KEGGMap        string `toml:"kegg_map,omitempty" json:"kegg_map,omitempty"`
	FunctionalDesc string `toml:"functionalDesc,omitempty" json:"functionalDesc,omitempty"`
	OBOFile        string `toml:"obofile,omitempty" json:"obofile,omitempty"`
	Organisms      string `toml:"organisms,omitempty" json:"organisms,omitempty"`
}

// NewMeta returns the Meta recording a run at now.
func NewMeta(now time.Time) Meta {
	return Meta{
		Date: now.Format("2006-01-02"),
		Time: now.Format("15:04:05"),
	}
}

const defaultAlpha = 0.05

// Load returns the configuration held in the file at path with defaults
// applied and home directory references in source paths expanded.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg, md, err := decode(path, data)
	if err != nil {
		return nil, err
	}

	if !md.IsDefined("vars", "alpha") {
		cfg.Vars.Alpha = defaultAlpha
	}
	applyDefaults(cfg)
	err = expandSources(&cfg.Sources)
	if err != nil {
		return nil, err
	}
	err = validate(cfg)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// decode decodes data read from path, rejecting keys that do not
// correspond to a configuration field.
func decode(path string, data []byte) (*Config, toml.MetaData, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, md, fmt.Errorf("%s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, md, fmt.Errorf("%s: unknown configuration keys: %s", path, strings.Join(keys, ", "))
	}
	return &cfg, md, nil
}

func applyDefaults(cfg *Config) {
	defaults := []struct {
		field *string
		value string
	}{
		{&cfg.Vars.SplitSuffix, "splits"},
		{&cfg.Vars.EnrichSuffix, "annotated"},
		{&cfg.Vars.SVGSuffix, "svg"},
		{&cfg.Vars.SaveReports, "reports"},
		{&cfg.Vars.Rscript, "Rscript"},
		{&cfg.Vars.Dot, "dot"},
	}
	for _, d := range defaults {
		if strings.TrimSpace(*d.field) == "" {
			*d.field = d.value
		}
	}
}

func validate(cfg *Config) error {
	if !(cfg.Vars.Alpha > 0 && cfg.Vars.Alpha <= 1) {
		return fmt.Errorf("alpha out of range (0, 1]: %v", cfg.Vars.Alpha)
	}
	return nil
}

func expandSources(s *Sources) error {
	for _, p := range []*string{&s.GOMap, &s.KEGGMap, &s.FunctionalDesc, &s.OBOFile, &s.Organisms} {
		var err error
		*p, err = ExpandHome(*p)
		if err != nil {
			return err
		}
	}
	return nil
}

// ExpandHome returns path with a leading "~/" replaced by the user's
// home directory.
func ExpandHome(path string) (string, error) {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~")), nil
}

// Require returns an error if any of the named sources is not set.
// Names are the keys used in the sources section.
func (c *Config) Require(names ...string) error {
	var missing []string
	for _, n := range names {
		var v string
		switch n {
		case "g_map":
			v = c.Sources.GOMap
		case "kegg_map":
			v = c.Sources.KEGGMap
		case "functionalDesc":
			v = c.Sources.FunctionalDesc
		case "obofile":
			v = c.Sources.OBOFile
		case "organisms":
			v = c.Sources.Organisms
		default:
			return fmt.Errorf("unknown source: %s", n)
		}
		if strings.TrimSpace(v) == "" {
			missing = append(missing, "sources."+n)
		}
	}
	if len(missing) != 0 {
		return fmt.Errorf("missing configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Stamp rewrites the date and time keys of the meta section of the
// configuration file at path with the date and time of now. All other
// text in the file is left unaltered. Files that are not valid
// configurations are not modified.
func Stamp(path string, now time.Time) error {
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	_, _, err = decode(path, data)
	if err != nil {
		return err
	}

	meta := NewMeta(now)
	stamped := stampMeta(data, meta.Date, meta.Time)
	_, _, err = decode(path, stamped)
	if err != nil {
		return fmt.Errorf("stamping failed: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	_, err = tmp.Write(stamped)
	if err == nil {
		err = tmp.Chmod(fi.Mode().Perm())
	}
	if err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	err = tmp.Close()
	if err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// stampMeta returns data with the meta section date and time keys set.
// Keys that are absent are added at the end of the meta section and a
// meta section is added at the start of the file if there is none.
func stampMeta(data []byte, date, clock string) []byte {
	values := []struct{ key, value string }{
		{"date", date},
		{"time", clock},
	}
	keyLine := func(key, value string) string {
		return fmt.Sprintf("%s = %q\n", key, value)
	}

	var (
		buf      bytes.Buffer
		blank    []string // Blank lines held back within the meta section.
		inMeta   bool
		haveMeta bool
		set      = make(map[string]bool)
	)
	endMeta := func() {
		for _, v := range values {
			if !set[v.key] {
				buf.WriteString(keyLine(v.key, v.value))
				set[v.key] = true
			}
		}
		for _, l := range blank {
			buf.WriteString(l)
		}
		blank = blank[:0]
		inMeta = false
	}
	for _, l := range strings.SplitAfter(string(data), "\n") {
		if l == "" {
			continue
		}
		if !strings.HasSuffix(l, "\n") {
			l += "\n"
		}
		trimmed := strings.TrimSpace(l)
		switch {
		case strings.HasPrefix(trimmed, "["):
			if inMeta {
				endMeta()
			}
			name := strings.SplitN(trimmed, "#", 2)[0]
			if strings.TrimSpace(strings.Trim(strings.TrimSpace(name), "[]")) == "meta" {
				inMeta = true
				haveMeta = true
			}
		case inMeta && trimmed == "":
			blank = append(blank, l)
			continue
		case inMeta:
			for _, v := range values {
				k := strings.SplitN(trimmed, "=", 2)
				if len(k) == 2 && strings.TrimSpace(k[0]) == v.key {
					l = keyLine(v.key, v.value)
					set[v.key] = true
				}
			}
		}
		for _, b := range blank {
			buf.WriteString(b)
		}
		blank = blank[:0]
		buf.WriteString(l)
	}
	if inMeta {
		endMeta()
	}
	if haveMeta {
		return buf.Bytes()
	}

	var stamped bytes.Buffer
	stamped.WriteString("[meta]\n")
	for _, v := range values {
		stamped.WriteString(keyLine(v.key, v.value))
	}
	if buf.Len() != 0 {
		stamped.WriteString("\n")
	}
	stamped.Write(buf.Bytes())
	return stamped.Bytes()
}
