package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cinelog/internal/config"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, path, err := config.Load(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if path == "" {
		t.Fatal("expected resolved path")
	}
	if cfg.TMDB.BaseURL != "https://api.themoviedb.org/3" {
		t.Fatalf("unexpected base url %q", cfg.TMDB.BaseURL)
	}
	if cfg.Matching.AcceptThreshold != 0.60 {
		t.Fatalf("unexpected accept threshold %v", cfg.Matching.AcceptThreshold)
	}
	if cfg.Run.Workers != 4 {
		t.Fatalf("unexpected workers %d", cfg.Run.Workers)
	}
}

func TestLoadPartialFileBackfillsDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
[tmdb]
api_key = "k"

[matching]
accept_threshold = 0.75
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TMDB.APIKey != "k" {
		t.Fatalf("expected api key from file, got %q", cfg.TMDB.APIKey)
	}
	if cfg.Matching.AcceptThreshold != 0.75 {
		t.Fatalf("expected threshold from file, got %v", cfg.Matching.AcceptThreshold)
	}
	if cfg.Matching.TieMargin != 0.05 {
		t.Fatalf("expected default tie margin, got %v", cfg.Matching.TieMargin)
	}
	if cfg.TMDB.TimeoutSeconds != 15 {
		t.Fatalf("expected default timeout, got %d", cfg.TMDB.TimeoutSeconds)
	}
}

func TestValidateRejectsBadThresholds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*config.Config)
		want   string
	}{
		{"threshold above one", func(c *config.Config) { c.Matching.AcceptThreshold = 1.5 }, "accept_threshold"},
		{"margin above threshold", func(c *config.Config) { c.Matching.TieMargin = 0.9 }, "tie_margin"},
		{"zero workers", func(c *config.Config) { c.Run.Workers = -1 }, "workers"},
		{"bad log format", func(c *config.Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := config.Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestRequireTMDB(t *testing.T) {
	cfg := config.Default()
	if err := cfg.RequireTMDB(); err == nil {
		t.Fatal("expected error for missing api key")
	}
	cfg.TMDB.APIKey = "k"
	if err := cfg.RequireTMDB(); err != nil {
		t.Fatalf("RequireTMDB: %v", err)
	}
}

func TestWriteSampleRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := config.WriteSample(path); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[tmdb]") {
		t.Fatal("sample config missing tmdb section")
	}
	if err := config.WriteSample(path); err == nil {
		t.Fatal("expected error writing over existing file")
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skipf("no home dir: %v", err)
	}
	got, err := config.ExpandPath("~/x")
	if err != nil {
		t.Fatalf("ExpandPath: %v", err)
	}
	if got != filepath.Join(home, "x") {
		t.Fatalf("unexpected expansion %q", got)
	}
}
