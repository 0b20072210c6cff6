package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Addr            string        `yaml:"addr"`
	APITimeout      time.Duration `yaml:"timeout"`
	DatabasePath    string        `yaml:"database_path"`
	DocumentDir     string        `yaml:"document_dir"`
	RefreshSchedule string        `yaml:"refresh_schedule"`
	Workers         int           `yaml:"workers"`
}

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Addr:            getEnv("REPAIRDESK_ADDR", ":8080"),
		APITimeout:      15 * time.Second,
		DatabasePath:    getEnv("REPAIRDESK_DATABASE_PATH", "repairdesk.db"),
		DocumentDir:     getEnv("REPAIRDESK_DOCUMENT_DIR", "documents"),
		RefreshSchedule: getEnv("REPAIRDESK_REFRESH_SCHEDULE", "@every 5m"),
		Workers:         2,
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, err
		}
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}
