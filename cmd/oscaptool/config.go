package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"

	"github.com/rendis/oscaptool/internal/isolation"
)

// Config holds all oscaptool configuration.
// Priority: env vars > settings.json > defaults.
type Config struct {
	WorkflowsPath string   `json:"workflows_path"`
	ResultsDir    string   `json:"results_dir"`
	LogLevel      string   `json:"log_level"`
	ReadOnlyPaths []string `json:"read_only_paths"`
	WritablePaths []string `json:"writable_paths"`
	PoolSize      int      `json:"pool_size"`
}

func defaultConfig() Config {
	return Config{
		ResultsDir: filepath.Join(oscaptoolDir(), "results"),
		LogLevel:   "warn",
		PoolSize:   4,
	}
}

func oscaptoolDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".oscaptool"
	}
	return filepath.Join(home, ".oscaptool")
}

func settingsPath() string {
	return filepath.Join(oscaptoolDir(), "settings.json")
}

func loadConfig() Config {
	cfg := defaultConfig()

	// Layer 2: settings.json (ignore if missing).
	if data, err := os.ReadFile(settingsPath()); err == nil {
		_ = json.Unmarshal(data, &cfg)
	}

	// Layer 3: env vars override.
	if v := os.Getenv("OSCAPTOOL_WORKFLOWS_PATH"); v != "" {
		cfg.WorkflowsPath = v
	}
	if v := os.Getenv("OSCAPTOOL_RESULTS_DIR"); v != "" {
		cfg.ResultsDir = v
	}
	if v := os.Getenv("OSCAPTOOL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("OSCAPTOOL_READ_ONLY_PATHS"); v != "" {
		cfg.ReadOnlyPaths = filepath.SplitList(v)
	}
	if v := os.Getenv("OSCAPTOOL_WRITABLE_PATHS"); v != "" {
		cfg.WritablePaths = filepath.SplitList(v)
	}
	if v := os.Getenv("OSCAPTOOL_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.PoolSize = n
		}
	}

	return cfg
}

// limits returns the file access rules handed to the actions.
func (c Config) limits() isolation.ResourceLimits {
	return isolation.ResourceLimits{
		ReadOnlyPaths: c.ReadOnlyPaths,
		WritablePaths: c.WritablePaths,
	}
}
