package engine

import (
	_ "embed"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

//go:embed engine_config.yaml
var defaultConfig []byte

// AnyMediaType matches every source media type in a SourceTarget.
const AnyMediaType = "*"

// Config lists the transformers an engine offers, in the same shape the
// engine reports at GET /transform/config.
type Config struct {
	TransformOptions map[string][]TransformOption `yaml:"transformOptions" json:"transformOptions"`
	Transformers     []Transformer                `yaml:"transformers" json:"transformers"`
}

// TransformOption names an option a transformer accepts.
type TransformOption struct {
	Name     string `yaml:"name" json:"name"`
	Required bool   `yaml:"required" json:"required,omitempty"`
}

// SourceTarget is a supported mimetype pair.
type SourceTarget struct {
	SourceMediaType    string `yaml:"sourceMediaType" json:"sourceMediaType"`
	TargetMediaType    string `yaml:"targetMediaType" json:"targetMediaType"`
	MaxSourceSizeBytes int64  `yaml:"maxSourceSizeBytes" json:"maxSourceSizeBytes,omitempty"`
}

// Transformer binds a name and its supported pairs to an executor.
type Transformer struct {
	TransformerName              string         `yaml:"transformerName" json:"transformerName"`
	Executor                     string         `yaml:"executor" json:"-"`
	SupportedSourceAndTargetList []SourceTarget `yaml:"supportedSourceAndTargetList" json:"supportedSourceAndTargetList"`
	TransformOptions             []string       `yaml:"transformOptions" json:"transformOptions,omitempty"`
}

// ParseConfig parses YAML into Config.
func ParseConfig(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse engine config: %w", err)
	}
	return cfg, nil
}

// LoadConfig reads and validates the engine config at path, or the built-in
// config when path is empty.
func LoadConfig(path string) (*Config, error) {
	data := defaultConfig
	if path != "" {
		var err error
		if data, err = os.ReadFile(path); err != nil {
			return nil, fmt.Errorf("read engine config: %w", err)
		}
	}
	cfg, err := ParseConfig(data)
	if err != nil {
		return nil, err
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("invalid engine config: %v", errs)
	}
	return cfg, nil
}

var nameRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Validate returns every problem found in the config.
func (c *Config) Validate() []string {
	var errors []string

	if len(c.Transformers) == 0 {
		errors = append(errors, "at least one transformer is required")
	}

	seen := map[string]bool{}
	for i, t := range c.Transformers {
		if !nameRe.MatchString(t.TransformerName) {
			errors = append(errors, fmt.Sprintf("transformer %d: name must be alphanumeric with hyphens/underscores (got '%s')", i, t.TransformerName))
		}
		if seen[t.TransformerName] {
			errors = append(errors, fmt.Sprintf("transformer %d (%s): duplicate name", i, t.TransformerName))
		}
		seen[t.TransformerName] = true

		if t.Executor == "" {
			errors = append(errors, fmt.Sprintf("transformer %d (%s): executor is required", i, t.TransformerName))
		}
		if len(t.SupportedSourceAndTargetList) == 0 {
			errors = append(errors, fmt.Sprintf("transformer %d (%s): at least one source/target pair is required", i, t.TransformerName))
		}
		for j, st := range t.SupportedSourceAndTargetList {
			if st.SourceMediaType == "" || st.TargetMediaType == "" {
				errors = append(errors, fmt.Sprintf("transformer %d (%s): pair %d needs source and target media types", i, t.TransformerName, j))
			}
			if st.MaxSourceSizeBytes < 0 {
				errors = append(errors, fmt.Sprintf("transformer %d (%s): pair %d maxSourceSizeBytes must be non-negative", i, t.TransformerName, j))
			}
		}
		for _, group := range t.TransformOptions {
			if _, ok := c.TransformOptions[group]; !ok {
				errors = append(errors, fmt.Sprintf("transformer %d (%s): unknown transformOptions group '%s'", i, t.TransformerName, group))
			}
		}
	}

	for group, opts := range c.TransformOptions {
		for j, o := range opts {
			if o.Name == "" {
				errors = append(errors, fmt.Sprintf("transformOptions '%s': option %d name is required", group, j))
			}
		}
	}

	return errors
}

// Supports returns the matching pair when t handles source to target.
func (t Transformer) Supports(source, target string) (SourceTarget, bool) {
	for _, st := range t.SupportedSourceAndTargetList {
		if st.TargetMediaType != target {
			continue
		}
		if st.SourceMediaType == source || st.SourceMediaType == AnyMediaType {
			return st, true
		}
	}
	return SourceTarget{}, false
}

// Options returns every option t accepts across its option groups.
func (c *Config) Options(t Transformer) []TransformOption {
	var out []TransformOption
	for _, group := range t.TransformOptions {
		out = append(out, c.TransformOptions[group]...)
	}
	return out
}

// WithoutExecutor returns a copy of cfg without the transformers bound to executor.
func (c *Config) WithoutExecutor(executor string) *Config {
	out := &Config{TransformOptions: c.TransformOptions}
	for _, t := range c.Transformers {
		if t.Executor != executor {
			out.Transformers = append(out.Transformers, t)
		}
	}
	return out
}
