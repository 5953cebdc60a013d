package config

import (
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"personalpage/internal/persistence/kv"
	"personalpage/internal/posts"
	"personalpage/internal/profile"
)

type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	Locale      string `yaml:"locale"`
	Timezone    string `yaml:"timezone"`
	LiveUpdates bool   `yaml:"live_updates"`

	Store          StoreSpec       `yaml:"store"`
	Keys           KeySpec         `yaml:"keys"`
	Avatar         AvatarSpec      `yaml:"avatar"`
	DefaultProfile profile.Profile `yaml:"default_profile"`
	Backup         BackupSpec      `yaml:"backup"`
	Journal        JournalSpec     `yaml:"journal"`
}

type StoreSpec struct {
	Backend       string `yaml:"backend"`
	Dir           string `yaml:"dir"`
	Path          string `yaml:"path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
	KeyPrefix     string `yaml:"key_prefix"`
	DSN           string `yaml:"dsn"`
}

type KeySpec struct {
	Posts   string `yaml:"posts"`
	Profile string `yaml:"profile"`
}

type AvatarSpec struct {
	Presets        []string `yaml:"presets"`
	MaxUploadBytes int64    `yaml:"max_upload_bytes"`
}

type BackupSpec struct {
	Dir   string        `yaml:"dir"`
	Every time.Duration `yaml:"every"`
	Keep  int           `yaml:"keep"`
}

type JournalSpec struct {
	Dir string `yaml:"dir"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("page.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("page.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	presets := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		presets = append(presets, fmt.Sprintf("https://i.pravatar.cc/96?img=%d", i+4))
	}
	return Config{
		ListenAddr:  ":8080",
		Locale:      profile.DefaultLocale,
		Timezone:    "Local",
		LiveUpdates: true,
		Store: StoreSpec{
			Backend: kv.BackendSQLite,
			Dir:     "data/kv",
			Path:    "data/page.sqlite",
		},
		Keys: KeySpec{
			Posts:   posts.DefaultKey,
			Profile: profile.DefaultKey,
		},
		Avatar: AvatarSpec{
			Presets:        presets,
			MaxUploadBytes: 2 << 20,
		},
		DefaultProfile: profile.Default(),
		Backup: BackupSpec{
			Dir:   "data/backups",
			Every: 10 * time.Minute,
			Keep:  48,
		},
		Journal: JournalSpec{Dir: "data/journal"},
	}
}

// Normalize trims values and fills blanks back in from Defaults, so a partial
// file only has to name what it changes.
func (c *Config) Normalize() {
	def := Defaults()
	c.ListenAddr = strings.TrimSpace(c.ListenAddr)
	if c.ListenAddr == "" {
		c.ListenAddr = def.ListenAddr
	}
	c.Locale = strings.ToLower(strings.TrimSpace(c.Locale))
	if c.Locale == "" {
		c.Locale = def.Locale
	}
	c.Timezone = strings.TrimSpace(c.Timezone)
	if c.Timezone == "" {
		c.Timezone = def.Timezone
	}

	c.Store.Backend = strings.ToLower(strings.TrimSpace(c.Store.Backend))
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if strings.TrimSpace(c.Store.Dir) == "" {
		c.Store.Dir = def.Store.Dir
	}
	if strings.TrimSpace(c.Store.Path) == "" {
		c.Store.Path = def.Store.Path
	}

	c.Keys.Posts = strings.TrimSpace(c.Keys.Posts)
	if c.Keys.Posts == "" {
		c.Keys.Posts = def.Keys.Posts
	}
	c.Keys.Profile = strings.TrimSpace(c.Keys.Profile)
	if c.Keys.Profile == "" {
		c.Keys.Profile = def.Keys.Profile
	}

	presets := c.Avatar.Presets[:0]
	seen := map[string]bool{}
	for _, p := range c.Avatar.Presets {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		presets = append(presets, p)
	}
	c.Avatar.Presets = presets
	if c.Avatar.MaxUploadBytes <= 0 {
		c.Avatar.MaxUploadBytes = def.Avatar.MaxUploadBytes
	}

	if c.DefaultProfile == (profile.Profile{}) {
		c.DefaultProfile = def.DefaultProfile
	}

	if strings.TrimSpace(c.Backup.Dir) == "" {
		c.Backup.Dir = def.Backup.Dir
	}
	if c.Backup.Keep < 0 {
		c.Backup.Keep = 0
	}
	if strings.TrimSpace(c.Journal.Dir) == "" {
		c.Journal.Dir = def.Journal.Dir
	}
}

func (c Config) Validate() error {
	if !profile.SupportedLocale(c.Locale) {
		return fmt.Errorf("locale %q is not supported", c.Locale)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	switch c.Store.Backend {
	case kv.BackendMemory, kv.BackendFile, kv.BackendSQLite:
	case kv.BackendRedis:
		if strings.TrimSpace(c.Store.RedisAddr) == "" {
			return fmt.Errorf("store.redis_addr must be set for the redis backend")
		}
	case kv.BackendPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("store.dsn must be set for the postgres backend")
		}
	default:
		return fmt.Errorf("store.backend %q: %w", c.Store.Backend, kv.ErrUnknownBackend)
	}
	if c.Keys.Posts == c.Keys.Profile {
		return fmt.Errorf("keys.posts and keys.profile must differ")
	}
	for i, p := range c.Avatar.Presets {
		if !strings.HasPrefix(p, "https://") && !strings.HasPrefix(p, "http://") && !strings.HasPrefix(p, "/") {
			return fmt.Errorf("avatar.presets[%d] %q must be an http(s) or site-relative URL", i, p)
		}
	}
	if c.Backup.Every < 0 {
		return fmt.Errorf("backup.every must be >= 0")
	}
	return nil
}

// StoreConfig converts the store section into kv.Open's options.
func (c Config) StoreConfig() kv.Config {
	return kv.Config{
		Backend:       c.Store.Backend,
		Dir:           c.Store.Dir,
		Path:          c.Store.Path,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		KeyPrefix:     c.Store.KeyPrefix,
		DSN:           c.Store.DSN,
	}
}

func (c Config) Location() *time.Location {
	if c.Timezone == "Local" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
