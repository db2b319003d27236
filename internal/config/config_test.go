package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadEnvOnlyDefaults(t *testing.T) {
	t.Setenv("LB_ROUND_WIN_COINS", "25")
	t.Setenv("LB_DB_DSN", "host=db")
	cfg, err := Load("", true)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Round.WinCoins != 25 {
		t.Fatalf("win_coins=%d want=25", cfg.Round.WinCoins)
	}
	if cfg.DB.DSN != "host=db" {
		t.Fatalf("dsn=%q", cfg.DB.DSN)
	}
	if cfg.Round.MaxOpen != 10*time.Minute || cfg.Round.StartingCoins != 100 {
		t.Fatalf("round=%+v", cfg.Round)
	}
	if len(cfg.Sponsors) != len(DefaultSponsors()) {
		t.Fatalf("sponsors=%v", cfg.Sponsors)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
db:
  driver: memory
round:
  max_open: 2m
sponsors: ["Acme"]
rewards:
  - id: hat
    title: Hat
    cost: 40
`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(path, false)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.DB.Driver != "memory" || cfg.Round.MaxOpen != 2*time.Minute {
		t.Fatalf("cfg=%+v", cfg)
	}
	if len(cfg.Sponsors) != 1 || cfg.Sponsors[0] != "Acme" {
		t.Fatalf("sponsors=%v", cfg.Sponsors)
	}
	if len(cfg.Rewards) != 1 || cfg.Rewards[0].Cost != 40 {
		t.Fatalf("rewards=%+v", cfg.Rewards)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), false); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
