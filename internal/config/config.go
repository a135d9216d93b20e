// Package config assembles the runtime configuration from defaults, an
// optional YAML file, CASEVOTE_* environment variables and command-line
// flags, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

const envPrefix = "CASEVOTE_"

// Config holds every setting of the dashboard.
type Config struct {
	Cases        string `koanf:"cases" validate:"required_without=CasesRepo"`
	Elections    string `koanf:"elections" validate:"required"`
	SnapshotDate string `koanf:"snapshot_date" validate:"required,datetime=2006-01-02"`
	DB           string `koanf:"db" validate:"required"`
	Addr         string `koanf:"addr" validate:"required,hostname_port"`
	DataDir      string `koanf:"data_dir" validate:"required"`
	CasesRepo    string `koanf:"cases_repo" validate:"omitempty,url"`
	CasesFile    string `koanf:"cases_file" validate:"required"`
	Export       string `koanf:"export" validate:"omitempty,endswith=.xlsx"`
	Serve        bool   `koanf:"serve"`
	Sync         bool   `koanf:"sync"`
}

// Defaults are applied before any other source.
var Defaults = map[string]interface{}{
	"snapshot_date": "2022-05-12",
	"db":            "casevote.db",
	"addr":          "127.0.0.1:8080",
	"data_dir":      "repos",
	"cases_file":    "us-states.csv",
	"elections":     "president_county_candidate.csv",
	"serve":         true,
}

// ErrHelp is returned when -h/--help was requested.
var ErrHelp = pflag.ErrHelp

// Load parses args (without the program name) and merges all sources.
func Load(args []string) (Config, error) {
	fs := pflag.NewFlagSet("casevote", pflag.ContinueOnError)
	configPath := fs.String("config", "", "Path to a YAML configuration file")
	fs.String("cases", "", "Path to the state-day case series CSV")
	fs.String("elections", "", "Path to the county election results CSV")
	fs.String("snapshot-date", "", "Date (YYYY-MM-DD) the case series is cut at")
	fs.String("db", "", "Path to the SQLite database file")
	fs.String("addr", "", "Address the dashboard listens on")
	fs.String("data-dir", "", "Directory dataset repositories are cloned into")
	fs.String("cases-repo", "", "Git URL of a repository containing the case series")
	fs.String("cases-file", "", "Path of the case series inside --cases-repo")
	fs.String("export", "", "Write the prepared tables to this .xlsx file")
	fs.Bool("serve", false, "Serve the dashboard")
	fs.Bool("sync", false, "Pull dataset repositories before preparing")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(Defaults, "."), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load defaults: %w", err)
	}

	if *configPath != "" {
		if err := k.Load(file.Provider(*configPath), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("failed to load config file %s: %w", *configPath, err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load environment: %w", err)
	}

	if err := k.Load(posflag.ProviderWithFlag(fs, ".", k, flagKey(fs)), nil); err != nil {
		return Config{}, fmt.Errorf("failed to load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := Validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints and reports every violation at once.
func Validate(cfg Config) error {
	err := validator.New().Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("failed to validate config: %w", err)
	}
	msgs := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msgs = append(msgs, fmt.Sprintf("%s fails %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// envKey turns CASEVOTE_SNAPSHOT_DATE into snapshot_date.
func envKey(s string) string {
	return strings.ToLower(strings.TrimPrefix(s, envPrefix))
}

// flagKey maps --snapshot-date onto the snapshot_date key.
func flagKey(fs *pflag.FlagSet) func(*pflag.Flag) (string, interface{}) {
	return func(f *pflag.Flag) (string, interface{}) {
		return strings.ReplaceAll(f.Name, "-", "_"), posflag.FlagVal(fs, f)
	}
}
