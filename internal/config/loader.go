// Package config loads gateway configuration from JSON, YAML, or TOML
// files and merges it with environment and built-in defaults. Precedence
// is flags > environment > file > defaults; the flag layer is applied by
// the command front.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// MonitorConfig tunes the download progress estimator. The defaults are
// the compatibility thresholds; they are configurable, not law.
type MonitorConfig struct {
	// Poll and minimum emission interval in milliseconds.
	PollIntervalMS int `json:"poll_interval_ms" yaml:"poll_interval_ms" toml:"poll_interval_ms"`
	// Hard ceiling on monitor lifetime in minutes.
	MaxMinutes int `json:"max_minutes" yaml:"max_minutes" toml:"max_minutes"`
	// Percentage at which the download is declared effectively done.
	CompleteAtPct float64 `json:"complete_at_pct" yaml:"complete_at_pct" toml:"complete_at_pct"`
	// Seconds without size growth that count as a stall.
	StallAfterSec int `json:"stall_after_sec" yaml:"stall_after_sec" toml:"stall_after_sec"`
	// Stalls only terminate the monitor above this percentage.
	StallAbovePct float64 `json:"stall_above_pct" yaml:"stall_above_pct" toml:"stall_above_pct"`
}

// Config holds runtime parameters for the gateway.
// Zero values mean "unspecified" and lose against lower-precedence layers
// in Merge.
type Config struct {
	Model      string        `json:"model" yaml:"model" toml:"model"`
	CacheDir   string        `json:"cache_dir" yaml:"cache_dir" toml:"cache_dir"`
	Device     string        `json:"device" yaml:"device" toml:"device"`
	DebugAddr  string        `json:"debug_addr" yaml:"debug_addr" toml:"debug_addr"`
	WhisperBin string        `json:"whisper_bin" yaml:"whisper_bin" toml:"whisper_bin"`
	FFmpegPath string        `json:"ffmpeg_path" yaml:"ffmpeg_path" toml:"ffmpeg_path"`
	BeamSize   int           `json:"beam_size" yaml:"beam_size" toml:"beam_size"`
	LogLevel   string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat  string        `json:"log_format" yaml:"log_format" toml:"log_format"`
	Monitor    MonitorConfig `json:"monitor" yaml:"monitor" toml:"monitor"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model:     "base",
		Device:    "auto",
		BeamSize:  5,
		LogLevel:  "info",
		LogFormat: "console",
		Monitor: MonitorConfig{
			PollIntervalMS: 500,
			MaxMinutes:     30,
			CompleteAtPct:  95,
			StallAfterSec:  10,
			StallAbovePct:  90,
		},
	}
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Merge overlays over onto base; non-zero fields of over win.
func Merge(base, over Config) Config {
	out := base
	if over.Model != "" {
		out.Model = over.Model
	}
	if over.CacheDir != "" {
		out.CacheDir = over.CacheDir
	}
	if over.Device != "" {
		out.Device = over.Device
	}
	if over.DebugAddr != "" {
		out.DebugAddr = over.DebugAddr
	}
	if over.WhisperBin != "" {
		out.WhisperBin = over.WhisperBin
	}
	if over.FFmpegPath != "" {
		out.FFmpegPath = over.FFmpegPath
	}
	if over.BeamSize > 0 {
		out.BeamSize = over.BeamSize
	}
	if over.LogLevel != "" {
		out.LogLevel = over.LogLevel
	}
	if over.LogFormat != "" {
		out.LogFormat = over.LogFormat
	}
	if over.Monitor.PollIntervalMS > 0 {
		out.Monitor.PollIntervalMS = over.Monitor.PollIntervalMS
	}
	if over.Monitor.MaxMinutes > 0 {
		out.Monitor.MaxMinutes = over.Monitor.MaxMinutes
	}
	if over.Monitor.CompleteAtPct > 0 {
		out.Monitor.CompleteAtPct = over.Monitor.CompleteAtPct
	}
	if over.Monitor.StallAfterSec > 0 {
		out.Monitor.StallAfterSec = over.Monitor.StallAfterSec
	}
	if over.Monitor.StallAbovePct > 0 {
		out.Monitor.StallAbovePct = over.Monitor.StallAbovePct
	}
	return out
}

// ApplyEnv overlays WHISPERD_* environment variables onto cfg.
func ApplyEnv(cfg *Config) {
	if v := os.Getenv("WHISPERD_MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("WHISPERD_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("WHISPERD_DEVICE"); v != "" {
		cfg.Device = v
	}
	if v := os.Getenv("WHISPERD_DEBUG_ADDR"); v != "" {
		cfg.DebugAddr = v
	}
	if v := os.Getenv("WHISPERD_WHISPER_BIN"); v != "" {
		cfg.WhisperBin = v
	}
	if v := os.Getenv("WHISPERD_FFMPEG_PATH"); v != "" {
		cfg.FFmpegPath = v
	}
	if v := os.Getenv("WHISPERD_BEAM_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.BeamSize = n
		}
	}
	if v := os.Getenv("WHISPERD_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("WHISPERD_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
}
