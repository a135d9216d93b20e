package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load([]string{"--cases", "us-states.csv"})
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.SnapshotDate != "2022-05-12" {
		t.Errorf("Expected default snapshot date, but got '%s'", cfg.SnapshotDate)
	}
	if cfg.Addr != "127.0.0.1:8080" {
		t.Errorf("Expected default addr, but got '%s'", cfg.Addr)
	}
	if !cfg.Serve {
		t.Error("Expected serve to default to true")
	}
	if cfg.Elections != "president_county_candidate.csv" {
		t.Errorf("Expected default elections path, but got '%s'", cfg.Elections)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "casevote.yaml")
	content := "cases: file-cases.csv\nsnapshot_date: \"2021-01-01\"\naddr: \"0.0.0.0:9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CASEVOTE_SNAPSHOT_DATE", "2021-06-01")

	cfg, err := Load([]string{"--config", path, "--addr", "localhost:7000", "--serve=false"})
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.Cases != "file-cases.csv" {
		t.Errorf("Expected cases from the file, but got '%s'", cfg.Cases)
	}
	if cfg.SnapshotDate != "2021-06-01" {
		t.Errorf("Expected the environment to override the file, but got '%s'", cfg.SnapshotDate)
	}
	if cfg.Addr != "localhost:7000" {
		t.Errorf("Expected the flag to override the file, but got '%s'", cfg.Addr)
	}
	if cfg.Serve {
		t.Error("Expected --serve=false to win over the default")
	}
}

func TestLoadValidation(t *testing.T) {
	testCases := []struct {
		name  string
		args  []string
		field string
	}{
		{name: "bad date", args: []string{"--cases", "c.csv", "--snapshot-date", "12/05/2022"}, field: "SnapshotDate"},
		{name: "no cases source", args: []string{}, field: "Cases"},
		{name: "bad addr", args: []string{"--cases", "c.csv", "--addr", "nowhere"}, field: "Addr"},
		{name: "bad export", args: []string{"--cases", "c.csv", "--export", "out.csv"}, field: "Export"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(tc.args)
			if err == nil {
				t.Fatal("Expected a validation error")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("Expected the error to name %s, but got %v", tc.field, err)
			}
		})
	}
}

func TestCasesRepoReplacesCasesPath(t *testing.T) {
	cfg, err := Load([]string{"--cases-repo", "https://github.com/nytimes/covid-19-data.git"})
	if err != nil {
		t.Fatalf("Load() returned an unexpected error: %v", err)
	}
	if cfg.CasesFile != "us-states.csv" {
		t.Errorf("Expected the default cases file, but got '%s'", cfg.CasesFile)
	}
}
