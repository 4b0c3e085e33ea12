package config

import (
	"os"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "max_models: 1\n")

	got := make(chan Config, 4)
	w, err := NewWatcher(p, nil, func(c Config, err error) {
		if err == nil {
			got <- c
		}
	})
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()
	if w.Snapshot().MaxModels != 1 {
		t.Fatalf("initial snapshot: %+v", w.Snapshot())
	}

	if err := os.WriteFile(p, []byte("max_models: 3\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case c := <-got:
		if c.MaxModels != 3 {
			t.Fatalf("reloaded cfg: %+v", c)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload observed")
	}
	if w.Snapshot().MaxModels != 3 || w.ReloadCount() == 0 {
		t.Fatalf("snapshot not updated: %+v", w.Snapshot())
	}
}

func TestWatcher_InvalidReloadKeepsLastGood(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "cfg.yaml", "max_models: 2\n")

	errs := make(chan error, 4)
	w, err := NewWatcher(p, nil, func(c Config, err error) {
		if err != nil {
			errs <- err
		}
	})
	if err != nil {
		t.Fatalf("watcher: %v", err)
	}
	defer w.Close()

	if err := os.WriteFile(p, []byte("max_models: 0\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	select {
	case <-errs:
	case <-time.After(5 * time.Second):
		t.Fatalf("no reload error observed")
	}
	if w.Snapshot().MaxModels != 2 {
		t.Fatalf("last good config lost: %+v", w.Snapshot())
	}
}

func TestNewWatcher_InvalidInitial(t *testing.T) {
	p := writeTempFile(t, t.TempDir(), "cfg.yaml", "device: tpu\n")
	if _, err := NewWatcher(p, nil, nil); err == nil {
		t.Fatalf("expected initial load error")
	}
}
