// Package app implements the HTTP service on top of the storage, pool,
// transcription and history components.
package app

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/device"
	"sttd/internal/history"
	"sttd/internal/pool"
	"sttd/internal/registry"
	"sttd/internal/storage"
	"sttd/internal/transcribe"
	"sttd/pkg/types"
)

const (
	MsgUploaded    = "Audio file uploaded successfully"
	MsgTranscribed = "Transcription completed successfully"
)

// Config wires an App. Pool, Transcriber and Store are required.
type Config struct {
	Pool         *pool.Pool
	Transcriber  *transcribe.Service
	Store        *storage.Store
	Registry     *registry.Registry
	History      *history.Store
	Selector     *device.Selector
	DefaultModel string
	Logger       *zerolog.Logger
}

// App satisfies httpapi.Service.
type App struct {
	pool         *pool.Pool
	svc          *transcribe.Service
	store        *storage.Store
	reg          *registry.Registry
	hist         *history.Store
	sel          *device.Selector
	defaultModel string
	log          zerolog.Logger
	started      time.Time
	ready        atomic.Bool
}

// New constructs an App. It is not ready until Warm or SetReady is called.
func New(cfg Config) *App {
	a := &App{
		pool:         cfg.Pool,
		svc:          cfg.Transcriber,
		store:        cfg.Store,
		reg:          cfg.Registry,
		hist:         cfg.History,
		sel:          cfg.Selector,
		defaultModel: cfg.DefaultModel,
		log:          zerolog.Nop(),
		started:      time.Now(),
	}
	if cfg.Logger != nil {
		a.log = cfg.Logger.With().Str("component", "app").Logger()
	}
	return a
}

// Ready reports whether startup warmup has finished.
func (a *App) Ready() bool { return a.ready.Load() }

// SetReady flips the readiness flag.
func (a *App) SetReady(v bool) { a.ready.Store(v) }

// Warm preloads models in order and then marks the app ready. Failed
// preloads are returned but do not keep the app unready; the model is
// loaded lazily on first use instead.
func (a *App) Warm(ctx context.Context, modelIDs ...string) error {
	defer a.SetReady(true)
	if len(modelIDs) == 0 {
		return nil
	}
	err := a.pool.Preload(ctx, modelIDs...)
	if err != nil {
		a.log.Warn().Strs("models", modelIDs).Err(err).Msg("warmup incomplete")
	}
	return err
}

// Upload stores audio in a new session folder.
func (a *App) Upload(ctx context.Context, audio io.Reader, filename, language string) (types.UploadResponse, error) {
	if !transcribe.IsLabel(language) {
		return types.UploadResponse{}, transcribe.LanguageError(language)
	}
	if err := ctx.Err(); err != nil {
		return types.UploadResponse{}, err
	}
	sess, err := a.store.Save(audio, storage.Ext(filename))
	if err != nil {
		return types.UploadResponse{}, err
	}
	a.log.Info().Str("date", sess.Date).Str("session", sess.Time).Str("path", sess.AudioPath).Msg("audio stored")
	return types.UploadResponse{
		Message:       MsgUploaded,
		DateFolder:    sess.Date,
		SessionFolder: sess.Time,
		FilePath:      sess.AudioPath,
		Language:      language,
	}, nil
}

// Transcribe runs the stored session audio through the pool, writes the
// transcription next to it and records the run.
func (a *App) Transcribe(ctx context.Context, req types.TranscribeRequest) (types.TranscribeResponse, error) {
	sess, err := a.store.Open(req.DateFolder, req.SessionFolder)
	if err != nil {
		return types.TranscribeResponse{}, err
	}
	out, err := a.svc.Run(ctx, sess.AudioPath, req.Language, req.ModelSize)
	if err != nil {
		return types.TranscribeResponse{}, err
	}
	path, err := a.store.WriteTranscription(sess, out.Text)
	if err != nil {
		return types.TranscribeResponse{}, err
	}
	rec := types.TranscriptionRecord{
		DateFolder:        sess.Date,
		SessionFolder:     sess.Time,
		Language:          out.Language,
		ModelSize:         req.ModelSize,
		Device:            string(out.Key.Device),
		AudioPath:         out.AudioPath,
		TranscriptionPath: path,
		Chars:             len([]rune(out.Text)),
		DurationMS:        out.Duration.Milliseconds(),
	}
	if _, err := a.hist.Add(context.WithoutCancel(ctx), rec); err != nil {
		a.log.Warn().Str("session", sess.Date+"/"+sess.Time).Err(err).Msg("history record failed")
	}
	return types.TranscribeResponse{
		Message:           MsgTranscribed,
		Transcription:     out.Text,
		AudioPath:         out.AudioPath,
		TranscriptionPath: path,
	}, nil
}

// ListModels reports every model size and whether its weights are present.
func (a *App) ListModels() types.ModelsResponse {
	resp := types.ModelsResponse{Default: a.defaultModel}
	if a.reg != nil {
		resp.Models = a.reg.List()
	} else {
		resp.Models = make([]types.Model, 0, len(registry.Sizes))
		for _, s := range registry.Sizes {
			resp.Models = append(resp.Models, types.Model{ID: s})
		}
	}
	return resp
}

// Status builds the /api/status view of the pool. A history count failure
// is logged and reported as zero.
func (a *App) Status(ctx context.Context) types.StatusResponse {
	now := time.Now()
	snap := a.pool.Snapshot()
	resp := types.StatusResponse{
		Entries:        make([]types.EntryStatus, 0, len(snap)),
		Capacity:       a.pool.Capacity(),
		Inflight:       a.svc.Inflight(),
		UptimeSeconds:  int64(now.Sub(a.started).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
	for _, e := range snap {
		resp.Entries = append(resp.Entries, types.EntryStatus{
			Model:        e.Model,
			Device:       string(e.Device),
			LastUsedUnix: e.LastUsed.Unix(),
			LoadedAtUnix: e.LoadedAt.Unix(),
			Hits:         e.Hits,
		})
	}
	if a.hist != nil {
		n, err := a.hist.Count(ctx)
		if err != nil {
			a.log.Warn().Err(err).Msg("history count failed")
		}
		resp.TranscriptionsTotal = n
	}
	if a.sel != nil {
		resp.DevicePolicy = a.sel.Policy()
		resp.SelectedDevice = string(a.sel.Select())
	}
	return resp
}

// History returns recent transcriptions, newest first.
func (a *App) History(ctx context.Context, limit int) ([]types.TranscriptionRecord, error) {
	if a.hist == nil {
		return nil, nil
	}
	recs, err := a.hist.List(ctx, limit)
	if err != nil {
		return nil, errors.Join(errors.New("history unavailable"), err)
	}
	return recs, nil
}
