package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nforsman/scandir"
)

// Config holds all configuration loaded from config.yaml.
type Config struct {
	ScanRoots     []string `yaml:"scan_roots"     json:"scan_roots"`
	Schedule      string   `yaml:"schedule"       json:"schedule"`
	ScanPaused    bool     `yaml:"scan_paused"    json:"scan_paused"`
	RetentionDays int      `yaml:"retention_days" json:"retention_days"`
	DBPath        string   `yaml:"db_path"        json:"-"`
	HTTPAddr      string   `yaml:"http_addr"      json:"-"`
	LogLevel      string   `yaml:"log_level"      json:"-"`
	Scan          Scan     `yaml:"scan"           json:"scan"`
}

// Scan holds the traversal knobs applied to managed scans.
type Scan struct {
	Sorted        bool     `yaml:"sorted"         json:"sorted"`
	SkipHidden    bool     `yaml:"skip_hidden"    json:"skip_hidden"`
	MaxDepth      int      `yaml:"max_depth"      json:"max_depth"`
	MaxFiles      int      `yaml:"max_files"      json:"max_files"`
	DirInclude    []string `yaml:"dir_include"    json:"dir_include"`
	DirExclude    []string `yaml:"dir_exclude"    json:"dir_exclude"`
	FileInclude   []string `yaml:"file_include"   json:"file_include"`
	FileExclude   []string `yaml:"file_exclude"   json:"file_exclude"`
	CaseSensitive bool     `yaml:"case_sensitive" json:"case_sensitive"`
	Extended      bool     `yaml:"extended"       json:"extended"`
}

// Options converts the scan section into engine options. store selects
// whether the engine retains drained results; pollers that persist as
// they go pass false to keep memory bounded.
func (s Scan) Options(store bool) *scandir.Options {
	rt := scandir.ReturnBasic
	if s.Extended {
		rt = scandir.ReturnExtended
	}
	return &scandir.Options{
		Sorted:        s.Sorted,
		SkipHidden:    s.SkipHidden,
		MaxDepth:      s.MaxDepth,
		MaxFiles:      s.MaxFiles,
		DirInclude:    s.DirInclude,
		DirExclude:    s.DirExclude,
		FileInclude:   s.FileInclude,
		FileExclude:   s.FileExclude,
		CaseSensitive: s.CaseSensitive,
		ReturnType:    rt,
		Store:         store,
	}
}

// applyDefaults fills zero/empty fields with sensible defaults.
func (c *Config) applyDefaults() {
	if c.Schedule == "" {
		c.Schedule = "0 2 * * *"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 30
	}
	if c.DBPath == "" {
		c.DBPath = "scandir.db"
	}
	if c.HTTPAddr == "" {
		c.HTTPAddr = ":8080"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
}

// Load reads and parses the YAML config file at path. Unknown keys are
// rejected so typos fail loudly. If the file does not exist, Load returns
// a default Config so the server can start without one.
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
