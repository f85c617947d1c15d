package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"CONFIG_FILE", "PORT", "DATABASE_URL", "REDIS_URL", "MAP_ORDER", "TWO_OPT_MAX_ITERS", "RATE_RPS", "RATE_BURST"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q", cfg.Port)
	}
	if cfg.MapOrder != "regions" {
		t.Fatalf("mapOrder = %q", cfg.MapOrder)
	}
	if cfg.TwoOptIters != 50 {
		t.Fatalf("twoOptIters = %d", cfg.TwoOptIters)
	}
	if len(cfg.Regions) == 0 {
		t.Fatal("expected built-in region table")
	}
}

func TestLoadYAMLFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := strings.Join([]string{
		"port: \"9090\"",
		"mapOrder: centroids",
		"twoOptMaxIterations: 10",
		"rateRps: 25.5",
		"rateBurst: 50",
		"regions:",
		"  north: [1, 2, 3]",
		"  south: [4]",
	}, "\n")
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "9090" || cfg.MapOrder != "centroids" || cfg.TwoOptIters != 10 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.RateRPS != 25.5 || cfg.RateBurst != 50 {
		t.Fatalf("rate config: rps=%v burst=%d", cfg.RateRPS, cfg.RateBurst)
	}
	if got := cfg.Regions["north"]; len(got) != 3 || got[0] != 1 {
		t.Fatalf("regions[north] = %v", got)
	}
	if _, ok := cfg.Regions["coastal lowlands"]; ok {
		t.Fatal("file regions should replace the built-in table")
	}
}

func TestEnvOverridesFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"9090\"\nmapOrder: centroids\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7070")
	t.Setenv("MAP_ORDER", "regions")
	t.Setenv("TWO_OPT_MAX_ITERS", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "7070" || cfg.MapOrder != "regions" || cfg.TwoOptIters != 5 {
		t.Fatalf("env should win: %+v", cfg)
	}
}

func TestLoadRejectsBadMapOrder(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAP_ORDER", "spiral")
	if _, err := Load(); err == nil {
		t.Fatal("expected error for unknown mapOrder")
	}
}

func TestLoadExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
