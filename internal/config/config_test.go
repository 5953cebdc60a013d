package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"personalpage/internal/persistence/kv"
	"personalpage/internal/profile"
)

func TestLoad_PageYAML(t *testing.T) {
	cfg, err := Load("../../configs/page.yaml")
	if err != nil {
		t.Fatalf("load page.yaml: %v", err)
	}
	if cfg.Keys.Posts != "hw1_posts_v1" || cfg.Keys.Profile != "hw1_profile_v1" {
		t.Fatalf("keys=%+v", cfg.Keys)
	}
	if cfg.Backup.Every != 10*time.Minute {
		t.Fatalf("backup.every=%v", cfg.Backup.Every)
	}
	if len(cfg.Avatar.Presets) != 8 {
		t.Fatalf("presets=%d", len(cfg.Avatar.Presets))
	}
	if cfg.DefaultProfile != profile.Default() {
		t.Fatalf("default_profile=%+v", cfg.DefaultProfile)
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Store.Backend != kv.BackendSQLite {
		t.Fatalf("backend=%q", cfg.Store.Backend)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "page.yaml")
	body := "locale: EN\nstore:\n  backend: memory\navatar:\n  presets: [' /a.png ', '/a.png', '']\n"
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Locale != "en" || cfg.Store.Backend != kv.BackendMemory {
		t.Fatalf("locale=%q backend=%q", cfg.Locale, cfg.Store.Backend)
	}
	if len(cfg.Avatar.Presets) != 1 || cfg.Avatar.Presets[0] != "/a.png" {
		t.Fatalf("presets=%q", cfg.Avatar.Presets)
	}
	if cfg.Keys.Posts != "hw1_posts_v1" || cfg.Backup.Every != 10*time.Minute {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidate_Rejects(t *testing.T) {
	cases := map[string]func(*Config){
		"locale":        func(c *Config) { c.Locale = "xx" },
		"timezone":      func(c *Config) { c.Timezone = "Nowhere/Else" },
		"redis addr":    func(c *Config) { c.Store.Backend = kv.BackendRedis },
		"postgres dsn":  func(c *Config) { c.Store.Backend = kv.BackendPostgres },
		"same keys":     func(c *Config) { c.Keys.Profile = c.Keys.Posts },
		"preset scheme": func(c *Config) { c.Avatar.Presets = []string{"javascript:alert(1)"} },
		"backup every":  func(c *Config) { c.Backup.Every = -time.Second },
	}
	for name, mutate := range cases {
		cfg := Defaults()
		mutate(&cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected validation error", name)
		}
	}

	cfg := Defaults()
	cfg.Store.Backend = "etcd"
	if err := cfg.Validate(); !errors.Is(err, kv.ErrUnknownBackend) {
		t.Fatalf("unknown backend err=%v", err)
	}
}

func TestStoreConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Store.Backend = kv.BackendRedis
	cfg.Store.RedisAddr = "127.0.0.1:6379"
	cfg.Store.KeyPrefix = "pp:"
	sc := cfg.StoreConfig()
	if sc.Backend != kv.BackendRedis || sc.RedisAddr != "127.0.0.1:6379" || sc.KeyPrefix != "pp:" {
		t.Fatalf("store config=%+v", sc)
	}
}
