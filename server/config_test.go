package server

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaultsWhenEnvFileMissing(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg != DefaultConfig() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "arena.env")
	if err := os.WriteFile(envFile, []byte("ARENA_WORLD_SIZE=200\nARENA_TICK_PERIOD=20ms\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("ARENA_ATTACK_DAMAGE", "7.5")
	// godotenv.Load 不覆盖已存在的变量，测试结束后由 t.Setenv 恢复
	t.Setenv("ARENA_WORLD_SIZE", "")
	os.Unsetenv("ARENA_WORLD_SIZE")
	t.Setenv("ARENA_TICK_PERIOD", "")
	os.Unsetenv("ARENA_TICK_PERIOD")

	cfg, err := LoadConfig(envFile)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.WorldSize != 200 {
		t.Fatalf("WorldSize = %v, want 200", cfg.WorldSize)
	}
	if cfg.TickPeriod != 20*time.Millisecond {
		t.Fatalf("TickPeriod = %v, want 20ms", cfg.TickPeriod)
	}
	if cfg.AttackDamage != 7.5 {
		t.Fatalf("AttackDamage = %v, want 7.5", cfg.AttackDamage)
	}
	if cfg.TickSeconds() != 0.02 {
		t.Fatalf("TickSeconds = %v, want 0.02", cfg.TickSeconds())
	}
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	t.Setenv("ARENA_ATTACK_COOLDOWN", "soon")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected parse error")
	}

	t.Setenv("ARENA_ATTACK_COOLDOWN", "")
	t.Setenv("ARENA_WORLD_SIZE", "-1")
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected validation error")
	}
}
