// Package pipeline orchestrates one archive run: filter the normalized item
// index, group it into threads and conversations, persist every stage's
// input and output as content-addressed blobs, and record the run in an
// immutable checkpoint manifest.
package pipeline

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spoolhq/spool/internal/item"
)

// SourcesConfig names the source-tag sets used for classification.
type SourcesConfig struct {
	Self    []string `yaml:"self"`
	Context []string `yaml:"context"`
}

// FilterConfig holds the pre-grouping filter rules. Zero values disable the
// corresponding rule.
type FilterConfig struct {
	// Since/Until bound item creation time (inclusive, ISO-8601 or
	// YYYY-MM-DD). Items with unparseable timestamps pass through.
	Since string `yaml:"since"`
	Until string `yaml:"until"`

	// MinLength drops items whose text is shorter, in runes.
	MinLength int `yaml:"minLength"`

	// RequireMedia drops items without attachments.
	RequireMedia bool `yaml:"requireMedia"`
}

// DecisionsConfig points at an append-only decision log to fold and record.
type DecisionsConfig struct {
	Path            string   `yaml:"path"`
	AllowedStatuses []string `yaml:"allowedStatuses"`
}

// Config is the explicit, file-loadable configuration for a run. It is
// passed by value through every call; there is no ambient workspace state.
type Config struct {
	Workspace  string          `yaml:"workspace"`
	SourceRefs []string        `yaml:"sourceRefs"`
	Sources    SourcesConfig   `yaml:"sources"`
	Filter     FilterConfig    `yaml:"filter"`
	Decisions  DecisionsConfig `yaml:"decisions"`
	Notes      string          `yaml:"notes"`
}

// DefaultConfig returns the configuration used when no file is given:
// workspace "workspace", default source sets, no filtering.
func DefaultConfig() Config {
	return Config{
		Workspace: "workspace",
		Sources: SourcesConfig{
			Self:    []string{item.SourcePost},
			Context: []string{item.SourceContext},
		},
	}
}

// LoadConfig reads a YAML config file over the defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
