// Package config loads the optional firelift.yaml configuration file.
// Command-line flags always override file values.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/firelift/firelift/internal/rewrite"
)

// DefaultFileName is looked for in the working directory when no --config
// flag is given.
const DefaultFileName = "firelift.yaml"

// Config is the root of the configuration file.
type Config struct {
	Migrate MigrateConfig `yaml:"migrate"`
	Export  ExportConfig  `yaml:"export"`
}

// RewriteRule is one user-supplied substitution, appended after the built-in
// rule table.
type RewriteRule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

// MigrateConfig overrides source-collection filters and extends the rewrite
// table.
type MigrateConfig struct {
	ExcludeDirs []string      `yaml:"exclude_dirs"`
	Extensions  []string      `yaml:"extensions"`
	ExtraRules  []RewriteRule `yaml:"extra_rules"`
}

// ExportConfig provides defaults for the export command's flags.
type ExportConfig struct {
	BatchSize             int  `yaml:"batch_size"`
	Limit                 int  `yaml:"limit"`
	IncludeSubcollections bool `yaml:"include_subcollections"`
	MaxDepth              int  `yaml:"max_depth"`
	SubcollectionLimit    int  `yaml:"subcollection_limit"`
}

// Load reads and parses the file at path. A missing file is an error; use
// LoadDefault for the optional working-directory lookup.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadDefault loads DefaultFileName from the working directory, returning an
// empty config when the file does not exist.
func LoadDefault() (*Config, error) {
	cfg, err := Load(DefaultFileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}
	return cfg, nil
}

// CompiledRules compiles the extra rewrite rules, preserving file order.
func (c *Config) CompiledRules() ([]rewrite.Rule, error) {
	rules := make([]rewrite.Rule, 0, len(c.Migrate.ExtraRules))
	for _, r := range c.Migrate.ExtraRules {
		rule, err := rewrite.CompileRule(r.Pattern, r.Replacement)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}
