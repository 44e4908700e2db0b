package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const appName = "lazyboard"

type Config struct {
	DBPath         string `json:"db_path"`
	WebEnabled     bool   `json:"web_enabled"`
	WebPort        int    `json:"web_port"`
	Debug          bool   `json:"debug"`
	DefaultProject string `json:"default_project"`
}

func Default() Config {
	return Config{WebPort: 8080, DefaultProject: "Inbox"}
}

func DefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, appName, "config.json"), nil
}

// DefaultDBPath places the database next to the config file.
func DefaultDBPath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), appName+".db")
}

func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

// Load reads the config at path. A missing file yields Default().
func Load(path string) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return Config{}, err
	}

	if err := json.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, err
	}
	return config, nil
}

func (c Config) Validate() error {
	if c.WebPort < 1 || c.WebPort > 65535 {
		return fmt.Errorf("invalid web_port %d", c.WebPort)
	}
	if strings.TrimSpace(c.DefaultProject) == "" {
		return fmt.Errorf("default_project is required")
	}
	return nil
}

func Save(path string, cfg Config) error {
	if err := EnsureDir(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}
