package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var schemaJSON []byte

const schemaURL = "config.schema.json"

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by ApplyDefaults.
type Config struct {
	Addr         string   `json:"addr" yaml:"addr" toml:"addr"`
	ModelsDir    string   `json:"models_dir" yaml:"models_dir" toml:"models_dir"`
	StorageDir   string   `json:"storage_dir" yaml:"storage_dir" toml:"storage_dir"`
	StaticDir    string   `json:"static_dir" yaml:"static_dir" toml:"static_dir"`
	HistoryDB    string   `json:"history_db" yaml:"history_db" toml:"history_db"`
	StateFile    string   `json:"state_file" yaml:"state_file" toml:"state_file"`
	MaxModels    int      `json:"max_models" yaml:"max_models" toml:"max_models"`
	Device       string   `json:"device" yaml:"device" toml:"device"`
	DefaultModel string   `json:"default_model" yaml:"default_model" toml:"default_model"`
	NoPreload    bool     `json:"no_preload" yaml:"no_preload" toml:"no_preload"`
	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxUploadMB  int      `json:"max_upload_mb" yaml:"max_upload_mb" toml:"max_upload_mb"`

	FallbackLanguage string `json:"fallback_language" yaml:"fallback_language" toml:"fallback_language"`
	StrictLanguage   bool   `json:"strict_language" yaml:"strict_language" toml:"strict_language"`
	MaxConcurrent    int    `json:"max_concurrent" yaml:"max_concurrent" toml:"max_concurrent"`
	MaxQueue         int    `json:"max_queue" yaml:"max_queue" toml:"max_queue"`
	QueueWaitMS      int    `json:"queue_wait_ms" yaml:"queue_wait_ms" toml:"queue_wait_ms"`

	Whisper Whisper `json:"whisper" yaml:"whisper" toml:"whisper"`
	Log     Log     `json:"log" yaml:"log" toml:"log"`
}

// Whisper configures the whisper-server subprocesses.
type Whisper struct {
	Bin                   string   `json:"bin" yaml:"bin" toml:"bin"`
	Host                  string   `json:"host" yaml:"host" toml:"host"`
	PortStart             int      `json:"port_start" yaml:"port_start" toml:"port_start"`
	PortEnd               int      `json:"port_end" yaml:"port_end" toml:"port_end"`
	Threads               int      `json:"threads" yaml:"threads" toml:"threads"`
	ExtraArgs             []string `json:"extra_args" yaml:"extra_args" toml:"extra_args"`
	ReadyTimeoutSeconds   int      `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds"`
	RequestTimeoutSeconds int      `json:"request_timeout_seconds" yaml:"request_timeout_seconds" toml:"request_timeout_seconds"`
}

// Log configures logging output.
type Log struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

// Load reads a configuration file based on its extension and validates it
// against the embedded schema.
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
	var raw any
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &raw); err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".json":
		if err := json.Unmarshal(b, &raw); err != nil {
			return cfg, err
		}
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	case ".toml":
		if err := toml.Unmarshal(b, &raw); err != nil {
			return cfg, err
		}
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, err
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	if err := Validate(raw); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks a decoded document against the config schema. Values are
// normalized through JSON first so YAML and TOML numbers validate the same.
func Validate(doc any) error {
	if doc == nil {
		return nil
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("config: normalize: %w", err)
	}
	var norm any
	if err := json.Unmarshal(b, &norm); err != nil {
		return fmt.Errorf("config: normalize: %w", err)
	}
	schema, err := compileSchema()
	if err != nil {
		return err
	}
	if err := schema.Validate(norm); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}

func compileSchema() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("config: schema resource: %w", err)
	}
	s, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("config: compile schema: %w", err)
	}
	return s, nil
}
