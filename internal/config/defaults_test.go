package config

import (
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var c Config
	ApplyDefaults(&c)
	if c.Addr != DefaultAddr || c.MaxModels != 1 || c.Device != "auto" || c.DefaultModel != "large-v3" {
		t.Fatalf("unexpected defaults: %+v", c)
	}
	if c.ModelsDir == "" || c.StorageDir == "" || c.HistoryDB == "" || c.StateFile == "" {
		t.Fatalf("paths not defaulted: %+v", c)
	}
	if c.LanguageFallback() != "vi" {
		t.Fatalf("fallback = %q", c.LanguageFallback())
	}
	if c.QueueWait() != 30*time.Second || c.MaxUploadBytes() != 100<<20 {
		t.Fatalf("unexpected limits: %v %d", c.QueueWait(), c.MaxUploadBytes())
	}
	if c.Whisper.Bin != "whisper-server" || c.Log.Format != "console" {
		t.Fatalf("unexpected nested defaults: %+v", c)
	}
}

func TestApplyDefaults_KeepsExplicit(t *testing.T) {
	c := Config{Addr: ":1", MaxModels: 3, StrictLanguage: true, CORSOrigins: []string{"x"}}
	ApplyDefaults(&c)
	if c.Addr != ":1" || c.MaxModels != 3 || len(c.CORSOrigins) != 1 {
		t.Fatalf("explicit values overwritten: %+v", c)
	}
	if c.LanguageFallback() != "" {
		t.Fatalf("strict config should have no fallback")
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"STTD_ADDR":           ":9000",
		"STTD_MAX_MODELS":     "2",
		"STTD_DEVICE":         "cpu",
		"STTD_LOG_LEVEL":      "debug",
		"STTD_MAX_CONCURRENT": "oops",
	}
	c := Config{MaxConcurrent: 4}
	ApplyEnv(&c, func(k string) string { return env[k] })
	if c.Addr != ":9000" || c.MaxModels != 2 || c.Device != "cpu" || c.Log.Level != "debug" {
		t.Fatalf("env not applied: %+v", c)
	}
	if c.MaxConcurrent != 4 {
		t.Fatalf("malformed number should be ignored, got %d", c.MaxConcurrent)
	}
}
