package whisper

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Config controls how whisper-server processes are spawned.
type Config struct {
	// Bin is the whisper-server executable, a path or a name on PATH.
	Bin  string
	Host string
	// PortStart/PortEnd bound the listen port; zero means any free port.
	PortStart int
	PortEnd   int
	Threads   int
	ExtraArgs []string

	ReadyTimeout time.Duration
	StopTimeout  time.Duration
	// RequestTimeout caps a single /inference call; zero means ctx only.
	RequestTimeout time.Duration

	Logger *zerolog.Logger
}

const (
	defaultBin          = "whisper-server"
	defaultHost         = "127.0.0.1"
	defaultReadyTimeout = 60 * time.Second
	defaultStopTimeout  = 2 * time.Second
)

func (c Config) withDefaults() Config {
	if strings.TrimSpace(c.Bin) == "" {
		c.Bin = defaultBin
	}
	if strings.TrimSpace(c.Host) == "" {
		c.Host = defaultHost
	}
	if c.ReadyTimeout <= 0 {
		c.ReadyTimeout = defaultReadyTimeout
	}
	if c.StopTimeout <= 0 {
		c.StopTimeout = defaultStopTimeout
	}
	return c
}
