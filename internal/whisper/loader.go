// Package whisper runs whisper.cpp models through whisper-server
// subprocesses, one process per (model, device) pool entry.
package whisper

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"sttd/internal/device"
	"sttd/internal/pool"
)

// ModelResolver maps a model id to its weights file.
type ModelResolver interface {
	Path(modelID string) (string, error)
}

// Loader spawns whisper-server processes. It implements pool.Loader.
type Loader struct {
	cfg    Config
	models ModelResolver
	log    zerolog.Logger
}

var _ pool.Loader = (*Loader)(nil)

// NewLoader returns a Loader resolving weights through models.
func NewLoader(cfg Config, models ModelResolver) *Loader {
	cfg = cfg.withDefaults()
	l := &Loader{cfg: cfg, models: models, log: zerolog.Nop()}
	if cfg.Logger != nil {
		l.log = cfg.Logger.With().Str("component", "whisper").Logger()
	}
	return l
}

// Args returns the command line for serving modelPath on dev.
func (l *Loader) Args(modelPath string, dev device.ID, port int) []string {
	args := []string{
		"-m", modelPath,
		"--host", l.cfg.Host,
		"--port", strconv.Itoa(port),
	}
	if l.cfg.Threads > 0 {
		args = append(args, "-t", strconv.Itoa(l.cfg.Threads))
	}
	if !dev.IsAccelerator() {
		args = append(args, "-ng")
	}
	return append(args, l.cfg.ExtraArgs...)
}

// Load starts whisper-server for modelID on dev and waits until it reports
// healthy. The process is killed if it exits early, the ready timeout
// passes or ctx is done.
func (l *Loader) Load(ctx context.Context, modelID string, dev device.ID) (pool.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	modelPath, err := l.models.Path(modelID)
	if err != nil {
		return nil, err
	}
	bin, err := exec.LookPath(l.cfg.Bin)
	if err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("whisper-server binary %q not found: %v", l.cfg.Bin, err))
	}
	port, err := l.cfg.pickPort()
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(bin, l.Args(modelPath, dev, port)...)
	stderr := &tailBuffer{}
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return nil, ErrDependencyUnavailable(fmt.Sprintf("start whisper-server: %v", err))
	}

	s := &Server{
		model:       modelID,
		dev:         dev,
		path:        modelPath,
		port:        port,
		baseURL:     "http://" + l.cfg.Host + ":" + strconv.Itoa(port),
		cmd:         cmd,
		stderr:      stderr,
		exited:      make(chan struct{}),
		stopTimeout: l.cfg.StopTimeout,
		reqTimeout:  l.cfg.RequestTimeout,
		log:         l.log.With().Str("model", modelID).Str("device", string(dev)).Int("pid", cmd.Process.Pid).Logger(),
	}
	s.client = resty.New().SetBaseURL(s.baseURL)
	go func() {
		s.waitErr = cmd.Wait()
		close(s.exited)
	}()
	s.log.Info().Str("path", modelPath).Int("port", port).Msg("whisper-server started")

	if err := s.waitReady(ctx, l.cfg.ReadyTimeout); err != nil {
		_ = s.Close()
		return nil, err
	}
	if dev.IsAccelerator() {
		if marker := cpuBackendMarker(stderr.String()); marker != "" {
			_ = s.Close()
			return nil, fmt.Errorf("%w: %q on %s", ErrNoAccelerator, marker, dev)
		}
	}
	s.log.Info().Str("url", s.baseURL).Msg("whisper-server ready")
	return s, nil
}

func (s *Server) waitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	tick := time.NewTicker(100 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-s.exited:
			if s.waitErr != nil {
				return fmt.Errorf("whisper-server exited early: %v; stderr tail: %s", s.waitErr, s.stderr.String())
			}
			return fmt.Errorf("whisper-server exited before ready: %s", s.baseURL)
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			s.log.Warn().Msg("whisper-server readiness timeout")
			return fmt.Errorf("whisper-server not ready in %s: %s", timeout, s.baseURL)
		case <-tick.C:
			if s.healthy(ctx) {
				return nil
			}
		}
	}
}

func (s *Server) healthy(ctx context.Context) bool {
	hctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	resp, err := s.client.R().SetContext(hctx).Get("/health")
	if err != nil {
		return false
	}
	return resp.StatusCode() == http.StatusOK
}

// Lines whisper.cpp prints when a GPU build finds no usable device and
// keeps running on the CPU backend.
var cpuBackendMarkers = []string{
	"no GPU found",
	"failed to initialize CUDA",
	"no CUDA-capable device",
}

func cpuBackendMarker(stderr string) string {
	for _, m := range cpuBackendMarkers {
		if strings.Contains(stderr, m) {
			return m
		}
	}
	return ""
}

// errExited is returned by Transcribe once the process is gone.
var errExited = errors.New("whisper-server process has exited")
