package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CBC_SAMPLES_DB", "CBC_RULES_DB", "CBC_USER", "CBC_LOG_LEVEL", "CBC_LOG_FORMAT", "CBC_WORKERS"} {
		t.Setenv(k, "")
	}
}

func TestResolveConfig_Precedence_ConfigEnvCLI(t *testing.T) {
	clearEnv(t)
	tmp := t.TempDir()
	cfgPath := filepath.Join(tmp, "config.yaml")
	yaml := `samples_db: ~/.cbc/from-config.db
rules_db: /data/rules.db
user: anouk
workers: 8
log:
  level: debug
  format: json
`
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CBC_SAMPLES_DB", "/env/samples.db")
	t.Setenv("CBC_USER", "env-user")

	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath:   cfgPath,
		CLISamplesDB: "/cli/samples.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}

	if resolved.SamplesDB.Source != SourceCLI || resolved.SamplesDB.Value != "/cli/samples.db" {
		t.Fatalf("expected samples db from cli, got %+v", resolved.SamplesDB)
	}
	if resolved.User.Source != SourceEnv || resolved.User.From != "CBC_USER" {
		t.Fatalf("expected user from env, got %+v", resolved.User)
	}
	if resolved.RulesDB.Source != SourceConfig || resolved.RulesDB.Value != "/data/rules.db" {
		t.Fatalf("expected rules db from config, got %+v", resolved.RulesDB)
	}
	if resolved.LogFormat.Value != "json" {
		t.Fatalf("expected json log format, got %q", resolved.LogFormat.Value)
	}
	if n, err := resolved.WorkerCount(); err != nil || n != 8 {
		t.Fatalf("WorkerCount = %d, %v", n, err)
	}
}

func TestResolveConfig_DefaultsWhenFileMissing(t *testing.T) {
	clearEnv(t)
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.User.Value != DefaultUser || resolved.User.Source != SourceDefault {
		t.Fatalf("unexpected default user %+v", resolved.User)
	}
	if !strings.HasSuffix(resolved.SamplesDB.Value, filepath.Join(".cbc", "samples.db")) {
		t.Fatalf("unexpected default samples db %q", resolved.SamplesDB.Value)
	}
	if n, _ := resolved.WorkerCount(); n != DefaultWorkers {
		t.Fatalf("expected %d workers, got %d", DefaultWorkers, n)
	}
	if len(resolved.RequiredColumns) != 0 {
		t.Fatalf("expected no column override, got %v", resolved.RequiredColumns)
	}
}

func TestResolveConfig_RequiredColumns(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	yaml := "required_columns:\n  - pH-waarde\n  - \" \"\n  - Lutum\n"
	if err := os.WriteFile(cfgPath, []byte(yaml), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	resolved, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if len(resolved.RequiredColumns) != 2 || resolved.RequiredColumns[1] != "Lutum" {
		t.Fatalf("unexpected required columns %v", resolved.RequiredColumns)
	}
}

func TestResolveConfig_InvalidWorkers(t *testing.T) {
	clearEnv(t)
	t.Setenv("CBC_WORKERS", "zero")
	_, err := ResolveConfig(ResolveOptions{ConfigPath: filepath.Join(t.TempDir(), "absent.yaml")})
	if err == nil || !strings.Contains(err.Error(), "invalid workers") {
		t.Fatalf("expected invalid workers error, got %v", err)
	}
}

func TestResolveConfig_BadYAML(t *testing.T) {
	clearEnv(t)
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("user: [unterminated"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := ResolveConfig(ResolveOptions{ConfigPath: cfgPath}); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestResolveConfig_ExpandsHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)
	resolved, err := ResolveConfig(ResolveOptions{
		ConfigPath: filepath.Join(home, "absent.yaml"),
		CLIRulesDB: "~/rules.db",
	})
	if err != nil {
		t.Fatalf("ResolveConfig: %v", err)
	}
	if resolved.RulesDB.Value != filepath.Join(home, "rules.db") {
		t.Fatalf("expected expanded path, got %q", resolved.RulesDB.Value)
	}
}
