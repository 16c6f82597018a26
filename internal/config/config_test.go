package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdir is a stand-in for t.Chdir, which requires Go 1.24.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() {
		if err := os.Chdir(prev); err != nil {
			t.Errorf("restoring working directory: %v", err)
		}
	})
}

const sampleConfig = `
migrate:
  exclude_dirs: [node_modules, generated]
  extensions: [".js", ".ts"]
  extra_rules:
    - pattern: 'legacyHelper\('
      replacement: 'modernHelper('
export:
  batch_size: 250
  include_subcollections: true
  max_depth: 2
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "firelift.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"node_modules", "generated"}, cfg.Migrate.ExcludeDirs)
	assert.Equal(t, []string{".js", ".ts"}, cfg.Migrate.Extensions)
	require.Len(t, cfg.Migrate.ExtraRules, 1)
	assert.Equal(t, 250, cfg.Export.BatchSize)
	assert.True(t, cfg.Export.IncludeSubcollections)
	assert.Equal(t, 2, cfg.Export.MaxDepth)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_MalformedYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "migrate: [not: a: mapping"))
	assert.Error(t, err)
}

func TestLoadDefault_MissingFileIsEmptyConfig(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Empty(t, cfg.Migrate.ExcludeDirs)
	assert.Zero(t, cfg.Export.BatchSize)
}

func TestLoadDefault_ReadsWorkingDirectoryFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFileName), []byte(sampleConfig), 0644))
	chdir(t, dir)

	cfg, err := LoadDefault()
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Export.BatchSize)
}

func TestCompiledRules(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	rules, err := cfg.CompiledRules()
	require.NoError(t, err)
	require.Len(t, rules, 1)
}

func TestCompiledRules_InvalidPattern(t *testing.T) {
	cfg := &Config{Migrate: MigrateConfig{ExtraRules: []RewriteRule{{Pattern: "([", Replacement: "x"}}}}
	_, err := cfg.CompiledRules()
	assert.Error(t, err)
}
