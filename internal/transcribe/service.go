// Package transcribe is the transcription entry point: it validates the
// language, reserves an inference slot, acquires a model from the pool and
// runs it on one audio file.
package transcribe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/common/fsutil"
	"sttd/internal/pool"
)

// Task is the inference task passed to every model.
const Task = "transcribe"

// Acquirer is the pool operation the service depends on.
type Acquirer interface {
	Acquire(ctx context.Context, modelID string) (pool.Model, pool.Key, error)
}

// Config wires a Service.
type Config struct {
	Pool Acquirer
	// FallbackLanguage is the code used for unrecognized language labels.
	// Empty makes unrecognized labels a ValidationError.
	FallbackLanguage string
	// ValidModel, when set, rejects model ids before acquisition.
	ValidModel func(string) bool

	MaxConcurrent int
	MaxQueue      int
	MaxWait       time.Duration

	Logger *zerolog.Logger
}

// Service runs transcriptions. It is safe for concurrent use.
type Service struct {
	pool       Acquirer
	fallback   string
	validModel func(string) bool
	lim        *limiter
	log        zerolog.Logger
}

// Outcome is the detailed result of one transcription.
type Outcome struct {
	Text      string
	Language  string
	AudioPath string
	Key       pool.Key
	Duration  time.Duration
}

// New constructs a Service.
func New(cfg Config) *Service {
	s := &Service{
		pool:       cfg.Pool,
		fallback:   cfg.FallbackLanguage,
		validModel: cfg.ValidModel,
		lim:        newLimiter(cfg.MaxConcurrent, cfg.MaxQueue, cfg.MaxWait),
		log:        zerolog.Nop(),
	}
	if cfg.Logger != nil {
		s.log = cfg.Logger.With().Str("component", "transcribe").Logger()
	}
	return s
}

// Transcribe returns the text of the audio at audioPath.
func (s *Service) Transcribe(ctx context.Context, audioPath, language, modelSize string) (string, error) {
	out, err := s.Run(ctx, audioPath, language, modelSize)
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// Inflight returns the number of transcriptions currently running.
func (s *Service) Inflight() int { return s.lim.running() }

// Run is Transcribe with the device, language code and timing reported.
func (s *Service) Run(ctx context.Context, audioPath, language, modelSize string) (Outcome, error) {
	code, err := s.resolveLanguage(language)
	if err != nil {
		return Outcome{}, &TranscriptionError{Op: "language", Err: err}
	}
	if s.validModel != nil && !s.validModel(modelSize) {
		return Outcome{}, &TranscriptionError{Op: "acquire", Err: &ValidationError{Field: "model_size", Value: modelSize}}
	}
	abs, err := filepath.Abs(audioPath)
	if err != nil {
		return Outcome{}, &TranscriptionError{Op: "audio", Err: err}
	}
	if !fsutil.IsFile(abs) {
		return Outcome{}, &TranscriptionError{Op: "audio", Err: fmt.Errorf("%s: %w", abs, os.ErrNotExist)}
	}

	release, err := s.lim.begin(ctx)
	if err != nil {
		return Outcome{}, &TranscriptionError{Op: "admit", Err: err}
	}
	defer release()

	start := time.Now()
	m, key, err := s.pool.Acquire(ctx, modelSize)
	if err != nil {
		s.log.Error().Str("model", modelSize).Err(err).Msg("acquire failed")
		return Outcome{}, &TranscriptionError{Op: "acquire", Err: err}
	}
	res, err := m.Transcribe(ctx, abs, pool.Options{Language: code, Task: Task})
	if err != nil {
		s.log.Error().Str("model", modelSize).Str("device", string(key.Device)).Str("audio", abs).Err(err).Msg("inference failed")
		return Outcome{}, &TranscriptionError{Op: "infer", Err: err}
	}
	out := Outcome{Text: res.Text, Language: code, AudioPath: abs, Key: key, Duration: time.Since(start)}
	s.log.Info().
		Str("model", modelSize).
		Str("device", string(key.Device)).
		Str("language", code).
		Dur("dur", out.Duration).
		Int("chars", len(out.Text)).
		Msg("transcription done")
	return out, nil
}

func (s *Service) resolveLanguage(label string) (string, error) {
	if code, ok := LanguageCode(label); ok {
		return code, nil
	}
	if s.fallback == "" {
		return "", LanguageError(label)
	}
	s.log.Warn().Str("language", label).Str("fallback", s.fallback).Msg("unrecognized language, using fallback")
	return s.fallback, nil
}
