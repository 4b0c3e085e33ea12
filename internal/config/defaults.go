package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"
)

// Defaults applied by ApplyDefaults.
const (
	DefaultAddr             = ":8000"
	DefaultMaxModels        = 1
	DefaultDevice           = "auto"
	DefaultModel            = "large-v3"
	DefaultFallbackLanguage = "vi"
	DefaultMaxConcurrent    = 1
	DefaultMaxQueue         = 8
	DefaultQueueWaitMS      = 30_000
	DefaultMaxUploadMB      = 100
	DefaultWhisperBin       = "whisper-server"
	DefaultWhisperHost      = "127.0.0.1"
	DefaultReadyTimeout     = 60
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "console"
)

// DefaultDataDir returns the per-user data directory for sttd.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "sttd")
	}
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(home, "AppData", "Local", "sttd")
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "sttd")
	default:
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, "sttd")
		}
		return filepath.Join(home, ".local", "share", "sttd")
	}
}

// ApplyDefaults fills unspecified fields.
func ApplyDefaults(c *Config) {
	data := DefaultDataDir()
	setStr(&c.Addr, DefaultAddr)
	setStr(&c.ModelsDir, filepath.Join(data, "models"))
	setStr(&c.StorageDir, filepath.Join(data, "storage"))
	setStr(&c.HistoryDB, filepath.Join(data, "history.db"))
	setStr(&c.StateFile, filepath.Join(data, "pool_state.json"))
	setInt(&c.MaxModels, DefaultMaxModels)
	setStr(&c.Device, DefaultDevice)
	setStr(&c.DefaultModel, DefaultModel)
	setInt(&c.MaxUploadMB, DefaultMaxUploadMB)
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"http://localhost:8000", "http://127.0.0.1:8000"}
	}
	setStr(&c.FallbackLanguage, DefaultFallbackLanguage)
	setInt(&c.MaxConcurrent, DefaultMaxConcurrent)
	setInt(&c.MaxQueue, DefaultMaxQueue)
	setInt(&c.QueueWaitMS, DefaultQueueWaitMS)

	setStr(&c.Whisper.Bin, DefaultWhisperBin)
	setStr(&c.Whisper.Host, DefaultWhisperHost)
	setInt(&c.Whisper.ReadyTimeoutSeconds, DefaultReadyTimeout)

	setStr(&c.Log.Level, DefaultLogLevel)
	setStr(&c.Log.Format, DefaultLogFormat)
}

func setStr(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if *dst <= 0 {
		*dst = v
	}
}

// ApplyEnv overrides fields from STTD_* variables. getenv is usually
// os.Getenv. Malformed numbers are ignored.
func ApplyEnv(c *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	str("STTD_ADDR", &c.Addr)
	str("STTD_MODELS_DIR", &c.ModelsDir)
	str("STTD_STORAGE_DIR", &c.StorageDir)
	str("STTD_STATIC_DIR", &c.StaticDir)
	str("STTD_HISTORY_DB", &c.HistoryDB)
	str("STTD_DEVICE", &c.Device)
	str("STTD_DEFAULT_MODEL", &c.DefaultModel)
	str("STTD_WHISPER_BIN", &c.Whisper.Bin)
	str("STTD_LOG_LEVEL", &c.Log.Level)
	str("STTD_LOG_FILE", &c.Log.File)
	num("STTD_MAX_MODELS", &c.MaxModels)
	num("STTD_MAX_CONCURRENT", &c.MaxConcurrent)
}

// QueueWait returns the admission wait as a duration.
func (c Config) QueueWait() time.Duration { return time.Duration(c.QueueWaitMS) * time.Millisecond }

// LanguageFallback returns the code for unrecognized labels, empty when
// StrictLanguage is set.
func (c Config) LanguageFallback() string {
	if c.StrictLanguage {
		return ""
	}
	return c.FallbackLanguage
}

// MaxUploadBytes returns the upload size limit in bytes.
func (c Config) MaxUploadBytes() int64 { return int64(c.MaxUploadMB) << 20 }
