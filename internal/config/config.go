package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	HTTPAddr       string      `yaml:"http_addr"       json:"-"`
	DBPath         string      `yaml:"db_path"         json:"-"`
	DefaultRoot    string      `yaml:"default_root"    json:"default_root"`
	RescanSchedule string      `yaml:"rescan_schedule" json:"rescan_schedule"`
	ScanPaused     bool        `yaml:"scan_paused"     json:"scan_paused"`
	ScanWorkers    ScanWorkers `yaml:"scan_workers"    json:"scan_workers"`
	ProgressEvery  int         `yaml:"progress_every"  json:"progress_every"`
	MaxRectangles  int         `yaml:"max_rectangles"  json:"max_rectangles"`
	LogLevel       string      `yaml:"log_level"       json:"-"`
}

// ScanWorkers holds concurrency knobs for the scanner.
type ScanWorkers struct {
	Walkers int `yaml:"walkers" json:"walkers"`
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = "127.0.0.1:8090"
	}
	if c.DBPath == "" {
		c.DBPath = "foldermap.db"
	}
	if c.ScanWorkers.Walkers == 0 {
		c.ScanWorkers.Walkers = 4
	}
	if c.ProgressEvery == 0 {
		c.ProgressEvery = 200
	}
	if c.MaxRectangles == 0 {
		c.MaxRectangles = 400
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads and parses the YAML config file at path.
// If the file does not exist, Load returns a default Config so the server
// can start without one.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		var cfg Config
		cfg.applyDefaults()
		return &cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open config %q: %w", path, err)
	}
	defer f.Close()

	var cfg Config
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}
