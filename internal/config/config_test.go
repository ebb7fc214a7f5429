package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsApplyWhenNoFileOrEnv(t *testing.T) {
	cfg, err := Load("does-not-exist.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Volatility.MinChange24h != 10 {
		t.Errorf("expected default minChange24h=10, got %v", cfg.Volatility.MinChange24h)
	}
	if cfg.Cadences.FundingOISeconds != 120 {
		t.Errorf("expected default funding/OI cadence 120s, got %d", cfg.Cadences.FundingOISeconds)
	}
	if cfg.Cadences.SnapshotSeconds != 2 {
		t.Errorf("expected default snapshot cadence 2s, got %d", cfg.Cadences.SnapshotSeconds)
	}
}

func TestLoad_EnvOverridesTakePrecedence(t *testing.T) {
	t.Setenv("VOLATILITY_MIN_CHANGE_24H", "25")
	t.Setenv("ML_ENABLED", "true")
	t.Setenv("STORAGE_PORT", "5433")

	cfg, err := Load("does-not-exist.json")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Volatility.MinChange24h != 25 {
		t.Errorf("expected env override to win, got %v", cfg.Volatility.MinChange24h)
	}
	if !cfg.ML.Enabled {
		t.Error("expected ML_ENABLED=true to be honored")
	}
	if cfg.Storage.Port != 5433 {
		t.Errorf("expected STORAGE_PORT override, got %d", cfg.Storage.Port)
	}
}

func TestLoad_ReadsJSONFileWhenPresent(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "config-*.json")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(`{"volatility":{"min_change_24h":42}}`); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	f.Close()

	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Volatility.MinChange24h != 42 {
		t.Errorf("expected file value 42 to survive with no env override, got %v", cfg.Volatility.MinChange24h)
	}
}
