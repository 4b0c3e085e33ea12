package whisper

import (
	"context"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"resty.dev/v3"

	"sttd/internal/device"
	"sttd/internal/pool"
)

// Server is a running whisper-server bound to one model and device.
type Server struct {
	model   string
	dev     device.ID
	path    string
	port    int
	baseURL string

	cmd     *exec.Cmd
	stderr  *tailBuffer
	exited  chan struct{}
	waitErr error

	client      *resty.Client
	stopTimeout time.Duration
	reqTimeout  time.Duration
	closeOnce   sync.Once
	log         zerolog.Logger
}

var _ pool.Model = (*Server)(nil)

type inferenceResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language,omitempty"`
	Duration float64 `json:"duration,omitempty"`
}

type inferenceError struct {
	Error string `json:"error"`
}

// BaseURL returns the server's http address.
func (s *Server) BaseURL() string { return s.baseURL }

// Transcribe posts the audio file to /inference and returns the text.
func (s *Server) Transcribe(ctx context.Context, audioPath string, opts pool.Options) (pool.Result, error) {
	select {
	case <-s.exited:
		return pool.Result{}, errExited
	default:
	}
	if s.reqTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.reqTimeout)
		defer cancel()
	}
	form := map[string]string{
		"response_format": "json",
		"temperature":     "0.0",
	}
	if opts.Language != "" {
		form["language"] = opts.Language
	}
	if opts.Task == "translate" {
		form["translate"] = "true"
	}

	start := time.Now()
	var out inferenceResponse
	var apiErr inferenceError
	resp, err := s.client.R().
		SetContext(ctx).
		SetFile("file", audioPath).
		SetFormData(form).
		SetResult(&out).
		SetError(&apiErr).
		Post("/inference")
	if err != nil {
		if ctx.Err() != nil {
			return pool.Result{}, ctx.Err()
		}
		return pool.Result{}, err
	}
	if resp.IsError() {
		body := apiErr.Error
		if body == "" {
			body = resp.String()
		}
		return pool.Result{}, &ServerError{Status: resp.StatusCode(), Body: body}
	}
	lang := out.Language
	if lang == "" {
		lang = opts.Language
	}
	res := pool.Result{
		Text:     strings.TrimSpace(out.Text),
		Language: lang,
		Duration: time.Since(start),
	}
	s.log.Debug().Str("audio", audioPath).Dur("dur", res.Duration).Int("chars", len(res.Text)).Msg("inference done")
	return res, nil
}

// Close terminates the process: SIGTERM first, then kill after the stop
// timeout. Safe to call more than once.
func (s *Server) Close() error {
	s.closeOnce.Do(func() {
		if s.cmd.Process != nil {
			_ = s.cmd.Process.Signal(syscall.SIGTERM)
			select {
			case <-s.exited:
			case <-time.After(s.stopTimeout):
				s.log.Warn().Msg("whisper-server did not stop, killing")
				_ = s.cmd.Process.Kill()
				<-s.exited
			}
		}
		s.log.Info().Msg("whisper-server stopped")
	})
	return nil
}
