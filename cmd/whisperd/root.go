package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"whisperd/internal/assets"
	"whisperd/internal/config"
	"whisperd/internal/device"
	"whisperd/internal/engine"
	"whisperd/internal/hub"
	"whisperd/internal/manager"
	"whisperd/internal/progress"
)

// rootFlags holds the persistent flag values. Only flags the user actually
// set participate in the precedence merge, so the registered defaults stay
// empty and the real defaults live in config.Default.
type rootFlags struct {
	configPath string
	model      string
	cacheDir   string
	deviceStr  string
	logLevel   string
	logFormat  string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}
	root := &cobra.Command{
		Use:           "whisperd",
		Short:         "Local speech-to-text gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVar(&flags.configPath, "config", "", "config file (.json, .yaml, .toml)")
	pf.StringVar(&flags.model, "model", "", "model identifier (default \"base\")")
	pf.StringVar(&flags.cacheDir, "cache-dir", "", "model cache root (default \""+assets.DefaultRoot+"\")")
	pf.StringVar(&flags.deviceStr, "device", "", "compute device: auto, cuda, or cpu (default \"auto\")")
	pf.StringVar(&flags.logLevel, "log-level", "", "log level: trace, debug, info, warn, error (default \"info\")")
	pf.StringVar(&flags.logFormat, "log-format", "", "log format: console or json (default \"console\")")

	root.AddCommand(
		newServeCmd(flags),
		newTranscribeCmd(flags),
		newDownloadCmd(flags),
		newCheckCmd(flags),
		newListCmd(flags),
		newDeleteCmd(flags),
		newCheckFFmpegCmd(flags),
	)
	return root
}

// resolveConfig applies the precedence chain: flags over environment over
// config file over built-in defaults.
func resolveConfig(flags *rootFlags) (config.Config, error) {
	cfg := config.Default()
	if flags.configPath != "" {
		fileCfg, err := config.Load(flags.configPath)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", flags.configPath, err)
		}
		cfg = config.Merge(cfg, fileCfg)
	}
	config.ApplyEnv(&cfg)
	cfg = config.Merge(cfg, config.Config{
		Model:     flags.model,
		CacheDir:  flags.cacheDir,
		Device:    flags.deviceStr,
		LogLevel:  flags.logLevel,
		LogFormat: flags.logFormat,
	})
	return cfg, nil
}

// newLogger builds the process logger on stderr; stdout belongs to the
// response channel.
func newLogger(cfg config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	var log zerolog.Logger
	if cfg.LogFormat == "json" {
		log = zerolog.New(os.Stderr)
	} else {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return log.Level(level).With().Timestamp().Logger()
}

// buildManager wires the model manager from a resolved configuration.
// whisperBin overrides binary discovery; sink receives progress events.
func buildManager(cfg config.Config, whisperBin string, sink progress.Sink, log zerolog.Logger) (*manager.Manager, error) {
	store, err := assets.New(cfg.CacheDir)
	if err != nil {
		return nil, fmt.Errorf("open model cache: %w", err)
	}

	var adapter engine.Adapter
	if bin := engine.DiscoverBinary(whisperBin); bin != "" {
		adapter = engine.NewServerAdapter(bin, log)
	} else {
		adapter = engine.NewUnavailableAdapter("whisper-server binary not found")
	}

	return manager.New(manager.ManagerConfig{
		Store:    store,
		Adapter:  adapter,
		Selector: device.New(log, cfg.Device),
		Fetcher:  hub.New(hub.DefaultBaseURL, log),
		Sink:     sink,
		Monitor:  monitorOptions(cfg.Monitor),
		BeamSize: cfg.BeamSize,
		Logger:   log,
	}), nil
}

func monitorOptions(mc config.MonitorConfig) progress.Options {
	return progress.Options{
		PollInterval:  time.Duration(mc.PollIntervalMS) * time.Millisecond,
		EmitInterval:  time.Duration(mc.PollIntervalMS) * time.Millisecond,
		MaxDuration:   time.Duration(mc.MaxMinutes) * time.Minute,
		CompleteAtPct: mc.CompleteAtPct,
		StallAfter:    time.Duration(mc.StallAfterSec) * time.Second,
		StallAbovePct: mc.StallAbovePct,
	}
}

// printJSON writes v as one compact JSON line on stdout.
func printJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Println(string(b))
	return err
}

// errResult marks a one-shot command as failed after its JSON result was
// already printed; main maps it to a non-zero exit.
var errResult = fmt.Errorf("operation failed")
