package main

import (
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"sttd/internal/config"
	"sttd/internal/logging"
)

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	configPath string
	logLevel   string
	logFormat  string
	getenv     func(string) string
}

// addCoreFlags registers the flags that shape the pool and its loader.
func addCoreFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("models-dir", "", "Directory holding ggml-<size>.bin weights")
	f.String("device", "", "Device policy: auto|cpu|cuda")
	f.Int("max-models", 0, "Maximum number of loaded models")
	f.String("whisper-bin", "", "whisper-server executable")
}

// addServeFlags registers the flags only meaningful for serve.
func addServeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("addr", "", "HTTP listen address, e.g. :8000")
	f.String("storage-dir", "", "Root directory for uploaded sessions")
	f.String("static-dir", "", "Frontend directory served under /app/")
	f.String("history-db", "", "SQLite database for transcription history")
	f.String("default-model", "", "Model preloaded at startup")
	f.Bool("no-preload", false, "Skip model preloading at startup")
	f.String("cors-origins", "", "Comma-separated allowed CORS origins")
	f.Int("max-concurrent", 0, "Maximum concurrent transcriptions")
}

// resolveConfig layers the config file, STTD_* environment, changed flags
// and finally defaults, in that order of increasing precedence except for
// defaults which only fill gaps.
func resolveConfig(cmd *cobra.Command, opts *rootOptions) (config.Config, error) {
	var cfg config.Config
	if opts.configPath != "" {
		c, err := config.Load(opts.configPath)
		if err != nil {
			return cfg, err
		}
		cfg = c
	}
	overlay(cmd, opts, &cfg)
	config.ApplyDefaults(&cfg)
	return cfg, nil
}

// overlay applies the environment and changed flags on top of cfg. A hot
// reload runs it too, so values pinned by env or flags survive file edits.
func overlay(cmd *cobra.Command, opts *rootOptions, cfg *config.Config) {
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	config.ApplyEnv(cfg, getenv)
	applyFlags(cmd, cfg)
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}
	if opts.logFormat != "" {
		cfg.Log.Format = opts.logFormat
	}
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			if v, err := fs.GetString(name); err == nil {
				*dst = v
			}
		}
	}
	num := func(name string, dst *int) {
		if fs.Changed(name) {
			if v, err := fs.GetInt(name); err == nil {
				*dst = v
			}
		}
	}
	str("addr", &cfg.Addr)
	str("models-dir", &cfg.ModelsDir)
	str("storage-dir", &cfg.StorageDir)
	str("static-dir", &cfg.StaticDir)
	str("history-db", &cfg.HistoryDB)
	str("device", &cfg.Device)
	str("default-model", &cfg.DefaultModel)
	str("whisper-bin", &cfg.Whisper.Bin)
	num("max-models", &cfg.MaxModels)
	num("max-concurrent", &cfg.MaxConcurrent)
	if fs.Changed("no-preload") {
		if v, err := fs.GetBool("no-preload"); err == nil {
			cfg.NoPreload = v
		}
	}
	if fs.Changed("cors-origins") {
		if v, err := fs.GetString("cors-origins"); err == nil {
			cfg.CORSOrigins = splitCSV(v)
		}
	}
}

// splitCSV splits a comma-separated list, trimming blanks.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// newLogger builds the process logger. The logger itself passes every level
// and the zerolog global level is the live knob, so a config reload can
// raise or lower verbosity.
func newLogger(c config.Log) (zerolog.Logger, func()) {
	l, closer := logging.New(logging.Options{
		Level:      "trace",
		Format:     c.Format,
		File:       c.File,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
	})
	zerolog.SetGlobalLevel(logging.ParseLevel(c.Level))
	return l, func() { _ = closer.Close() }
}
