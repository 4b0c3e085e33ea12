package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"sttd/internal/app"
	"sttd/internal/device"
	"sttd/internal/history"
	"sttd/internal/httpapi"
	"sttd/internal/pool"
	"sttd/internal/registry"
	"sttd/internal/storage"
	"sttd/internal/transcribe"
	"sttd/internal/whisper"
)

// buildFakeServer compiles the whisper-server stand-in once per test.
func buildFakeServer(t *testing.T) string {
	t.Helper()
	bin := filepath.Join(t.TempDir(), "fake_whisper_server")
	cmd := exec.Command("go", "build", "-o", bin, "../whisper/testdata/fake_whisper_server.go")
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("build fake server: %v: %s", err, string(out))
	}
	return bin
}

type stackOptions struct {
	policy        string
	weights       map[string]string // size -> model file content
	maxConcurrent int
	maxQueue      int
	maxWait       time.Duration
}

type stack struct {
	srv   *httptest.Server
	pool  *pool.Pool
	store *storage.Store
}

// newStack wires the full service against the fake whisper-server and
// serves it over a real listener.
func newStack(t *testing.T, o stackOptions) *stack {
	t.Helper()
	bin := buildFakeServer(t)
	modelsDir := t.TempDir()
	for size, content := range o.weights {
		if err := os.WriteFile(filepath.Join(modelsDir, registry.FileName(size)), []byte(content), 0o644); err != nil {
			t.Fatalf("write weights: %v", err)
		}
	}
	reg, err := registry.New(modelsDir)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	sel := device.NewSelector(o.policy, device.ProbeFunc(func() bool { return false }))
	p := pool.New(pool.Config{
		MaxModels: 1,
		Loader:    whisper.NewLoader(whisper.Config{Bin: bin, ReadyTimeout: 10 * time.Second}, reg),
		Selector:  sel,
	})
	t.Cleanup(func() { _ = p.Close() })

	store, err := storage.New(filepath.Join(t.TempDir(), "storage"))
	if err != nil {
		t.Fatalf("storage: %v", err)
	}
	hist, err := history.Open(":memory:")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	t.Cleanup(func() { _ = hist.Close() })

	svc := transcribe.New(transcribe.Config{
		Pool:          p,
		ValidModel:    registry.ValidSize,
		MaxConcurrent: o.maxConcurrent,
		MaxQueue:      o.maxQueue,
		MaxWait:       o.maxWait,
	})
	a := app.New(app.Config{
		Pool:        p,
		Transcriber: svc,
		Store:       store,
		Registry:    reg,
		History:     hist,
		Selector:    sel,
	})
	a.SetReady(true)
	srv := httptest.NewServer(httpapi.NewMux(a))
	t.Cleanup(srv.Close)
	return &stack{srv: srv, pool: p, store: store}
}

func writeAudio(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.webm")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	return p
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
