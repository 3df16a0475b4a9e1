package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Nutonspeed/BN-Aura/internal/config"
)

const baseConfig = `
output_dir = "artifacts"
seed = 7
samples = 500
test_size = 0.25

[log]
level = "debug"
format = "json"

[boosting]
n_estimators = 50
learning_rate = 0.05

[recommender]
n_neighbors = 3
`

const overlayConfig = `
seed = 99

[boosting]
max_depth = 4
`

var envVars = []string{
	config.EnvBNAuraEnv,
	config.EnvBNAuraOutputDir,
	config.EnvBNAuraSeed,
	"BNAURA_LOG_LEVEL",
	"BNAURA_LOG_FORMAT",
	"BNAURA_STORAGE_BACKEND",
	"BNAURA_STORAGE_CONTAINER",
	"BNAURA_STORAGE_CONNECTION_STRING",
}

// isolate runs the test in an empty directory with no BNAURA_* variables.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envVars {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	isolate(t)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "models" {
		t.Errorf("OutputDir = %q, want models", cfg.OutputDir)
	}
	if cfg.Seed != 42 || cfg.Samples != 1000 || cfg.TestSize != 0.2 {
		t.Errorf("seed/samples/test_size = %d/%d/%g", cfg.Seed, cfg.Samples, cfg.TestSize)
	}
	if cfg.Boosting.NEstimators != 100 || cfg.Boosting.LearningRate != 0.1 || cfg.Boosting.MaxDepth != 3 {
		t.Errorf("boosting = %+v", cfg.Boosting)
	}
	if cfg.Recommender.NNeighbors != 5 {
		t.Errorf("n_neighbors = %d, want 5", cfg.Recommender.NNeighbors)
	}
	if cfg.Storage.Backend != config.BackendFile {
		t.Errorf("backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Log.Level != "info" || cfg.Log.Format != "text" {
		t.Errorf("log = %+v", cfg.Log)
	}
	if cfg.Env() != "local" {
		t.Errorf("Env = %q, want local", cfg.Env())
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "custom.toml", baseConfig)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "artifacts" || cfg.Seed != 7 || cfg.Samples != 500 || cfg.TestSize != 0.25 {
		t.Errorf("root = %+v", cfg)
	}
	if cfg.Boosting.NEstimators != 50 || cfg.Boosting.LearningRate != 0.05 {
		t.Errorf("boosting = %+v", cfg.Boosting)
	}
	// unset fields still get defaults
	if cfg.Boosting.MaxDepth != 3 || cfg.Boosting.MinSamplesLeaf != 1 {
		t.Errorf("boosting defaults = %+v", cfg.Boosting)
	}
	if cfg.Recommender.NNeighbors != 3 || cfg.Recommender.Customers != 100 {
		t.Errorf("recommender = %+v", cfg.Recommender)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("log = %+v", cfg.Log)
	}
}

func TestLoadPicksUpBaseFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, config.BaseConfigFile, baseConfig)

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 7 {
		t.Errorf("Seed = %d, want 7 from config.toml", cfg.Seed)
	}
}

func TestLoadOverlay(t *testing.T) {
	dir := isolate(t)
	writeFile(t, dir, config.BaseConfigFile, baseConfig)
	writeFile(t, dir, "config.staging.toml", overlayConfig)
	t.Setenv(config.EnvBNAuraEnv, "staging")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 99 {
		t.Errorf("Seed = %d, want overlay 99", cfg.Seed)
	}
	if cfg.Boosting.MaxDepth != 4 || cfg.Boosting.NEstimators != 50 {
		t.Errorf("boosting = %+v, want depth 4 over base estimators 50", cfg.Boosting)
	}
	if cfg.Env() != "staging" {
		t.Errorf("Env = %q", cfg.Env())
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv(config.EnvBNAuraOutputDir, "/tmp/bnaura")
	t.Setenv(config.EnvBNAuraSeed, "123")
	t.Setenv("BNAURA_LOG_LEVEL", "WARN")
	t.Setenv("BNAURA_STORAGE_BACKEND", "azure")
	t.Setenv("BNAURA_STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.OutputDir != "/tmp/bnaura" || cfg.Seed != 123 {
		t.Errorf("output_dir/seed = %q/%d", cfg.OutputDir, cfg.Seed)
	}
	if cfg.Log.Level != "warn" {
		t.Errorf("log level = %q, want warn", cfg.Log.Level)
	}
	if cfg.Storage.Backend != config.BackendAzure || cfg.Storage.ContainerName != "models" {
		t.Errorf("storage = %+v", cfg.Storage)
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		content string
		env     map[string]string
		wantErr string
	}{
		{"tiny sample", "samples = 5", nil, "samples"},
		{"test size", "test_size = 1.5", nil, "test_size"},
		{"log format", "[log]\nformat = \"xml\"", nil, "format"},
		{"learning rate", "[boosting]\nlearning_rate = 2.0", nil, "learning_rate"},
		{"backend", "[storage]\nbackend = \"s3\"", nil, "unknown backend"},
		{"azure without connection", "[storage]\nbackend = \"azure\"", nil, "connection_string"},
		{"bad seed", "", map[string]string{config.EnvBNAuraSeed: "abc"}, config.EnvBNAuraSeed},
		{"malformed toml", "seed = [", nil, "parse config"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			path := writeFile(t, dir, "bad.toml", tt.content)

			_, err := config.Load(path)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	isolate(t)
	if _, err := config.Load("does-not-exist.toml"); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg.Samples != 1000 || cfg.Boosting.NEstimators != 100 || cfg.Storage.Backend != config.BackendFile {
		t.Errorf("Default = %+v", cfg)
	}
}

func TestZeroSeedMeansDefault(t *testing.T) {
	dir := isolate(t)
	path := writeFile(t, dir, "zero.toml", "seed = 0\n")

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Seed != 42 {
		t.Errorf("Seed = %d, want default 42 for seed = 0", cfg.Seed)
	}
}
