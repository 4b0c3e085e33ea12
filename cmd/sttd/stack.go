package main

import (
	"time"

	"github.com/rs/zerolog"

	"sttd/internal/config"
	"sttd/internal/device"
	"sttd/internal/pool"
	"sttd/internal/registry"
	"sttd/internal/whisper"
)

// core is the model-serving part shared by serve and preload.
type core struct {
	reg  *registry.Registry
	sel  *device.Selector
	pool *pool.Pool
}

func newCore(cfg config.Config, log *zerolog.Logger) (*core, error) {
	reg, err := registry.New(cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	sel := device.NewSelector(cfg.Device, nil)
	loader := whisper.NewLoader(whisper.Config{
		Bin:            cfg.Whisper.Bin,
		Host:           cfg.Whisper.Host,
		PortStart:      cfg.Whisper.PortStart,
		PortEnd:        cfg.Whisper.PortEnd,
		Threads:        cfg.Whisper.Threads,
		ExtraArgs:      cfg.Whisper.ExtraArgs,
		ReadyTimeout:   time.Duration(cfg.Whisper.ReadyTimeoutSeconds) * time.Second,
		RequestTimeout: time.Duration(cfg.Whisper.RequestTimeoutSeconds) * time.Second,
		Logger:         log,
	}, reg)
	p := pool.New(pool.Config{
		MaxModels: cfg.MaxModels,
		Loader:    loader,
		Selector:  sel,
		Logger:    log,
	})
	return &core{reg: reg, sel: sel, pool: p}, nil
}
