package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const starterHeader = `# tasklist configuration.
# db_path and backup.dir are relative to this directory unless absolute.
# backup.schedule takes a five-field cron expression, e.g. "0 3 * * *".
`

// StarterConfig renders the default configuration as YAML.
func StarterConfig() ([]byte, error) {
	cfg := defaultConfig()
	cfg.DBPath = "tasklist.db"
	cfg.Backup.Dir = "backups"
	body, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("marshal starter config: %w", err)
	}
	return append([]byte(starterHeader), body...), nil
}

// WriteStarter writes the starter config.yaml into homeDir. It never
// overwrites an existing file.
func WriteStarter(homeDir string) (string, error) {
	path := ConfigPath(homeDir)
	if err := os.MkdirAll(homeDir, 0o755); err != nil {
		return path, fmt.Errorf("create tasklist home: %w", err)
	}
	body, err := StarterConfig()
	if err != nil {
		return path, err
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return path, fmt.Errorf("config already exists: %s", path)
		}
		return path, fmt.Errorf("create config.yaml: %w", err)
	}
	if _, err := f.Write(body); err != nil {
		_ = f.Close()
		return path, fmt.Errorf("write config.yaml: %w", err)
	}
	return path, f.Close()
}
