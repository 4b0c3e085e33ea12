package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"sttd/internal/config"
)

// runPreload loads each size (the default model when none are given),
// reports where it landed, and shuts the processes down again.
func runPreload(ctx context.Context, w io.Writer, cfg config.Config, sizes []string) error {
	log, closeLog := newLogger(cfg.Log)
	defer closeLog()
	c, err := newCore(cfg, &log)
	if err != nil {
		return err
	}
	defer c.pool.Close()
	if len(sizes) == 0 {
		sizes = []string{cfg.DefaultModel}
	}
	var failed int
	for _, s := range sizes {
		start := time.Now()
		_, key, err := c.pool.Acquire(ctx, s)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%-10s FAILED  %v\n", s, err)
			continue
		}
		fmt.Fprintf(w, "%-10s ok      %s in %s\n", s, key.Device, time.Since(start).Round(time.Millisecond))
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d models failed to load", failed, len(sizes))
	}
	return nil
}
