package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/basket/tasklist/internal/otel"
	"github.com/basket/tasklist/internal/tasks"
)

// DefaultPageSizes are the page-size choices offered by the list view.
var DefaultPageSizes = []int{5, 10, 20, 50}

type BackupConfig struct {
	// Schedule is a five-field cron expression. Empty disables scheduled backups.
	Schedule string `yaml:"schedule"`
	Dir      string `yaml:"dir"`
	Keep     int    `yaml:"keep"`
}

type Config struct {
	HomeDir string `yaml:"-"`

	LogLevel        string `yaml:"log_level"`
	StorageKey      string `yaml:"storage_key"`
	DefaultPageSize int    `yaml:"default_page_size"`
	PageSizes       []int  `yaml:"page_sizes"`
	DBPath          string `yaml:"db_path"`

	Backup BackupConfig `yaml:"backup"`
	OTel   otel.Config  `yaml:"otel"`

	// NeedsInit is set when config.yaml does not exist yet.
	NeedsInit bool `yaml:"-"`
}

// ConfigPath returns the path to config.yaml within the given home directory.
func ConfigPath(homeDir string) string {
	return filepath.Join(homeDir, "config.yaml")
}

// LogsDir is where system.jsonl is written.
func (c Config) LogsDir() string {
	return filepath.Join(c.HomeDir, "logs")
}

// Fingerprint returns a stable hash of the settings that affect behavior.
func (c Config) Fingerprint() string {
	h := fnv.New64a()
	fmt.Fprintf(h, "log=%s|key=%s|size=%d|sizes=%v|db=%s|backup=%s,%s,%d|otel=%t,%s",
		c.LogLevel, c.StorageKey, c.DefaultPageSize, c.PageSizes, c.DBPath,
		c.Backup.Schedule, c.Backup.Dir, c.Backup.Keep, c.OTel.Enabled, c.OTel.Exporter)
	return fmt.Sprintf("cfg-%x", h.Sum64())
}

func defaultConfig() Config {
	return Config{
		LogLevel:        "info",
		StorageKey:      tasks.DefaultStorageKey,
		DefaultPageSize: tasks.DefaultPageSize,
		PageSizes:       slices.Clone(DefaultPageSizes),
		Backup:          BackupConfig{Keep: 7},
		OTel:            otel.Config{Exporter: "stdout", ServiceName: "tasklist", SampleRate: 1.0},
	}
}

func HomeDir() string {
	if override := os.Getenv("TASKLIST_HOME"); override != "" {
		return override
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		home = "."
	}
	return filepath.Join(home, ".tasklist")
}

// Load reads config.yaml from HomeDir, applies environment overrides and
// fills defaults. A missing file is not an error.
func Load() (Config, error) {
	cfg := defaultConfig()
	cfg.HomeDir = HomeDir()

	if err := os.MkdirAll(cfg.HomeDir, 0o755); err != nil {
		return cfg, fmt.Errorf("create tasklist home: %w", err)
	}

	data, err := os.ReadFile(ConfigPath(cfg.HomeDir))
	if err != nil {
		if os.IsNotExist(err) {
			cfg.NeedsInit = true
		} else {
			return cfg, fmt.Errorf("read config.yaml: %w", err)
		}
	} else if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config.yaml: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func normalize(cfg *Config) {
	cfg.LogLevel = strings.ToLower(strings.TrimSpace(cfg.LogLevel))
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	cfg.StorageKey = strings.TrimSpace(cfg.StorageKey)
	if cfg.StorageKey == "" {
		cfg.StorageKey = tasks.DefaultStorageKey
	}

	sizes := make([]int, 0, len(cfg.PageSizes))
	for _, n := range cfg.PageSizes {
		if n > 0 {
			sizes = append(sizes, n)
		}
	}
	slices.Sort(sizes)
	sizes = slices.Compact(sizes)
	if len(sizes) == 0 {
		sizes = slices.Clone(DefaultPageSizes)
	}
	cfg.PageSizes = sizes
	if !slices.Contains(cfg.PageSizes, cfg.DefaultPageSize) {
		cfg.DefaultPageSize = cfg.PageSizes[0]
	}

	cfg.DBPath = resolvePath(cfg.HomeDir, cfg.DBPath, "tasklist.db")
	cfg.Backup.Dir = resolvePath(cfg.HomeDir, cfg.Backup.Dir, "backups")
	cfg.Backup.Schedule = strings.TrimSpace(cfg.Backup.Schedule)
	if cfg.Backup.Keep <= 0 {
		cfg.Backup.Keep = 7
	}

	if cfg.OTel.ServiceName == "" {
		cfg.OTel.ServiceName = "tasklist"
	}
	if cfg.OTel.SampleRate <= 0 || cfg.OTel.SampleRate > 1 {
		cfg.OTel.SampleRate = 1.0
	}
}

// resolvePath makes p absolute relative to home, falling back to home/def.
func resolvePath(home, p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return filepath.Join(home, def)
	}
	if strings.HasPrefix(p, "~/") {
		if userHome, err := os.UserHomeDir(); err == nil {
			return filepath.Join(userHome, p[2:])
		}
	}
	if !filepath.IsAbs(p) {
		return filepath.Join(home, p)
	}
	return p
}

func applyEnvOverrides(cfg *Config) {
	if raw := os.Getenv("TASKLIST_LOG_LEVEL"); raw != "" {
		cfg.LogLevel = raw
	}
	if raw := os.Getenv("TASKLIST_STORAGE_KEY"); raw != "" {
		cfg.StorageKey = raw
	}
	if raw := os.Getenv("TASKLIST_PAGE_SIZE"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			cfg.DefaultPageSize = v
		}
	}
	if raw := os.Getenv("TASKLIST_DB_PATH"); raw != "" {
		cfg.DBPath = raw
	}
	if raw := os.Getenv("TASKLIST_BACKUP_SCHEDULE"); raw != "" {
		cfg.Backup.Schedule = raw
	}
	if raw := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); raw != "" {
		cfg.OTel.Endpoint = raw
	}
}
