package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/app"
	"sttd/internal/config"
	"sttd/internal/history"
	"sttd/internal/httpapi"
	"sttd/internal/logging"
	"sttd/internal/pool"
	"sttd/internal/registry"
	"sttd/internal/storage"
	"sttd/internal/transcribe"
)

const shutdownGrace = 5 * time.Second

// runServe wires every component, serves until ctx is canceled and then
// shuts down: HTTP first, then in-flight work, then the pool. pin re-applies
// the env and flag layers to a reloaded file config.
func runServe(ctx context.Context, cfg config.Config, configPath string, pin func(*config.Config)) error {
	log, closeLog := newLogger(cfg.Log)
	defer closeLog()

	c, err := newCore(cfg, &log)
	if err != nil {
		return err
	}
	store, err := storage.New(cfg.StorageDir)
	if err != nil {
		return err
	}
	hist, err := history.Open(cfg.HistoryDB)
	if err != nil {
		return err
	}
	defer hist.Close()

	svc := transcribe.New(transcribe.Config{
		Pool:             c.pool,
		FallbackLanguage: cfg.LanguageFallback(),
		ValidModel:       registry.ValidSize,
		MaxConcurrent:    cfg.MaxConcurrent,
		MaxQueue:         cfg.MaxQueue,
		MaxWait:          cfg.QueueWait(),
		Logger:           &log,
	})
	a := app.New(app.Config{
		Pool:         c.pool,
		Transcriber:  svc,
		Store:        store,
		Registry:     c.reg,
		History:      hist,
		Selector:     c.sel,
		DefaultModel: cfg.DefaultModel,
		Logger:       &log,
	})

	if configPath != "" {
		w, err := config.NewWatcher(configPath, &log, func(next config.Config, err error) {
			if err != nil {
				return
			}
			applyReload(&log, c.pool, reloaded(next, pin))
		})
		if err != nil {
			log.Warn().Err(err).Msg("config hot reload disabled")
		} else {
			defer w.Close()
		}
	}

	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()
	httpapi.SetLogger(log)
	httpapi.SetBaseContext(baseCtx)
	httpapi.SetMaxUploadBytes(cfg.MaxUploadBytes())
	httpapi.SetStaticDir(cfg.StaticDir)
	httpapi.SetCORSOptions(len(cfg.CORSOrigins) > 0, cfg.CORSOrigins,
		[]string{http.MethodGet, http.MethodPost, http.MethodOptions},
		[]string{"Accept", "Content-Type", "X-Log-Level", "X-Request-Id"})
	srv := &http.Server{Addr: cfg.Addr, Handler: httpapi.NewMux(a), ReadHeaderTimeout: 10 * time.Second}

	go warm(baseCtx, &log, a, cfg)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("models_dir", c.reg.Dir()).Str("storage", store.Root()).Str("device_policy", c.sel.Policy()).Msg("sttd listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("graceful shutdown error")
	}
	cancelBase()
	if err := c.pool.SaveState(cfg.StateFile); err != nil {
		log.Warn().Err(err).Str("path", cfg.StateFile).Msg("save pool state")
	}
	if err := c.pool.Close(); err != nil {
		log.Warn().Err(err).Msg("pool close")
	}
	log.Info().Msg("sttd stopped")
	return serveErr
}

// warm replays the saved warm set, or the default model when there is none.
func warm(ctx context.Context, log *zerolog.Logger, a *app.App, cfg config.Config) {
	if cfg.NoPreload {
		a.SetReady(true)
		return
	}
	ids, err := pool.LoadState(cfg.StateFile, cfg.MaxModels)
	if err != nil {
		log.Warn().Err(err).Str("path", cfg.StateFile).Msg("ignoring pool state")
	}
	if len(ids) == 0 && cfg.DefaultModel != "" {
		ids = []string{cfg.DefaultModel}
	}
	_ = a.Warm(ctx, ids...)
}

// reloaded layers pin over a freshly loaded file config.
func reloaded(next config.Config, pin func(*config.Config)) config.Config {
	if pin != nil {
		pin(&next)
	}
	return next
}

// applyReload applies the settings that can change without a restart.
// Fields the file leaves unset keep their current values.
func applyReload(log *zerolog.Logger, p *pool.Pool, next config.Config) {
	if next.MaxModels > 0 {
		p.SetCapacity(next.MaxModels)
	}
	if next.Log.Level == "" {
		return
	}
	lvl := logging.ParseLevel(next.Log.Level)
	if lvl != zerolog.GlobalLevel() {
		zerolog.SetGlobalLevel(lvl)
		log.Info().Str("level", lvl.String()).Msg("log level changed")
	}
}
