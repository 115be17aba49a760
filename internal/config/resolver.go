package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type ValueSource string

const (
	SourceUnknown ValueSource = "unknown"
	SourceConfig  ValueSource = "config"
	SourceEnv     ValueSource = "env"
	SourceCLI     ValueSource = "cli"
	SourceDefault ValueSource = "default"
)

const (
	DefaultUser      = "default"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultWorkers   = 4
)

type ResolvedValue struct {
	Value  string      `json:"value"`
	Source ValueSource `json:"source"`
	From   string      `json:"from,omitempty"`
}

type ResolveOptions struct {
	ConfigPath   string
	CLISamplesDB string
	CLIRulesDB   string
	CLIUser      string
	CLILogLevel  string
	CLIWorkers   string
}

type ResolvedConfig struct {
	ConfigPath string `json:"config_path"`

	SamplesDB ResolvedValue `json:"samples_db"`
	RulesDB   ResolvedValue `json:"rules_db"`
	User      ResolvedValue `json:"user"`
	LogLevel  ResolvedValue `json:"log_level"`
	LogFormat ResolvedValue `json:"log_format"`
	Workers   ResolvedValue `json:"workers"`

	// RequiredColumns overrides the canonical column list padded into every
	// reconstructed sample. Empty means the built-in list.
	RequiredColumns []string `json:"required_columns,omitempty"`
}

type fileConfig struct {
	SamplesDB string `yaml:"samples_db"`
	RulesDB   string `yaml:"rules_db"`
	User      string `yaml:"user"`
	Workers   int    `yaml:"workers"`
	Log       struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	RequiredColumns []string `yaml:"required_columns"`
}

func DefaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cbc", "config.yaml")
}

func defaultDataPath(name string) string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".cbc", name)
}

func ResolveConfig(opts ResolveOptions) (ResolvedConfig, error) {
	path := strings.TrimSpace(opts.ConfigPath)
	if path == "" {
		path = DefaultConfigPath()
	}

	out := ResolvedConfig{
		ConfigPath: path,
		SamplesDB:  ResolvedValue{Value: defaultDataPath("samples.db"), Source: SourceDefault, From: "built-in default"},
		RulesDB:    ResolvedValue{Value: defaultDataPath("rules.db"), Source: SourceDefault, From: "built-in default"},
		User:       ResolvedValue{Value: DefaultUser, Source: SourceDefault, From: "built-in default"},
		LogLevel:   ResolvedValue{Value: DefaultLogLevel, Source: SourceDefault, From: "built-in default"},
		LogFormat:  ResolvedValue{Value: DefaultLogFormat, Source: SourceDefault, From: "built-in default"},
		Workers:    ResolvedValue{Value: strconv.Itoa(DefaultWorkers), Source: SourceDefault, From: "built-in default"},
	}

	cfg, err := loadConfig(path)
	if err != nil {
		return out, err
	}

	if cfg != nil {
		apply(&out.SamplesDB, cfg.SamplesDB, SourceConfig, path)
		apply(&out.RulesDB, cfg.RulesDB, SourceConfig, path)
		apply(&out.User, cfg.User, SourceConfig, path)
		apply(&out.LogLevel, cfg.Log.Level, SourceConfig, path)
		apply(&out.LogFormat, cfg.Log.Format, SourceConfig, path)
		if cfg.Workers > 0 {
			apply(&out.Workers, strconv.Itoa(cfg.Workers), SourceConfig, path)
		}
		for _, c := range cfg.RequiredColumns {
			if c = strings.TrimSpace(c); c != "" {
				out.RequiredColumns = append(out.RequiredColumns, c)
			}
		}
	}

	applyEnv(&out.SamplesDB, "CBC_SAMPLES_DB")
	applyEnv(&out.RulesDB, "CBC_RULES_DB")
	applyEnv(&out.User, "CBC_USER")
	applyEnv(&out.LogLevel, "CBC_LOG_LEVEL")
	applyEnv(&out.LogFormat, "CBC_LOG_FORMAT")
	applyEnv(&out.Workers, "CBC_WORKERS")

	apply(&out.SamplesDB, opts.CLISamplesDB, SourceCLI, "--samples-db")
	apply(&out.RulesDB, opts.CLIRulesDB, SourceCLI, "--rules-db")
	apply(&out.User, opts.CLIUser, SourceCLI, "--user")
	apply(&out.LogLevel, opts.CLILogLevel, SourceCLI, "--log-level")
	apply(&out.Workers, opts.CLIWorkers, SourceCLI, "--workers")

	out.SamplesDB.Value = expandUserPath(out.SamplesDB.Value)
	out.RulesDB.Value = expandUserPath(out.RulesDB.Value)

	if _, err := out.WorkerCount(); err != nil {
		return out, err
	}
	return out, nil
}

// WorkerCount parses the resolved worker setting.
func (r ResolvedConfig) WorkerCount() (int, error) {
	v := strings.TrimSpace(r.Workers.Value)
	if v == "" {
		return DefaultWorkers, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid workers %q from %s: must be a positive integer", v, r.Workers.Source)
	}
	return n, nil
}

func apply(dst *ResolvedValue, raw string, source ValueSource, from string) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return
	}
	*dst = ResolvedValue{Value: v, Source: source, From: from}
}

func applyEnv(dst *ResolvedValue, envKey string) {
	if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
		*dst = ResolvedValue{Value: v, Source: SourceEnv, From: envKey}
	}
}

func loadConfig(path string) (*fileConfig, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var cfg fileConfig
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &cfg, nil
}

func expandUserPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
