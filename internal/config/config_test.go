package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"chinchon-service/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: "9000"
database:
  driver: sqlite
  dsn: "file::memory:"
game:
  targetScore: 50
  splitSets: true
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Database.Driver != "sqlite" {
		t.Fatalf("unexpected server/database section: %+v %+v", cfg.Server, cfg.Database)
	}
	rules := cfg.Game.Rules()
	if cfg.Game.TargetScore != 50 || rules.CutThreshold != 5 || rules.ChinchonBonus != 25 || !rules.SplitSets {
		t.Fatalf("unexpected game section: %+v", cfg.Game)
	}
	if cfg.Game.TurnSeconds != 30 || cfg.Game.DefaultDifficulty != "medium" {
		t.Fatalf("defaults not applied: %+v", cfg.Game)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
`)
	t.Setenv("CHINCHON_GAME_CUTTHRESHOLD", "3")
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.Game.CutThreshold != 3 {
		t.Fatalf("expected env override to 3, got %d", cfg.Game.CutThreshold)
	}
}

func TestLoadRejectsInvalidTarget(t *testing.T) {
	path := writeConfig(t, `
database:
  driver: sqlite
game:
  targetScore: 75
`)
	if _, err := config.Load(path); err == nil {
		t.Fatalf("expected target 75 to be rejected")
	}
}
