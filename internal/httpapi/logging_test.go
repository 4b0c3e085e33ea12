package httpapi

import (
	"bytes"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]LogLevel{
		"":      LevelOff,
		"off":   LevelOff,
		"error": LevelError,
		"info":  LevelInfo,
		"debug": LevelDebug,
		"loud":  LevelInfo,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Fatalf("parseLevel(%q)=%v want %v", in, got, want)
		}
	}
}

func TestRequestLogLevel_Overrides(t *testing.T) {
	r := httptest.NewRequest("GET", "/x?log=1", nil)
	if got := requestLogLevel(r); got != LevelDebug {
		t.Fatalf("query log=1: %v", got)
	}
	r = httptest.NewRequest("GET", "/x?log=error", nil)
	if got := requestLogLevel(r); got != LevelError {
		t.Fatalf("query log=error: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	r.Header.Set("X-Log-Level", "off")
	if got := requestLogLevel(r); got != LevelOff {
		t.Fatalf("header override failed: %v", got)
	}
	r = httptest.NewRequest("GET", "/x", nil)
	if got := requestLogLevel(r); got != defaultLogLevel {
		t.Fatalf("expected default level, got %v", got)
	}
}

func TestLogEnd_WritesStructuredLine(t *testing.T) {
	var buf bytes.Buffer
	prev := zlog
	defer func() { zlog = prev }()
	SetLogger(zerolog.New(&buf))

	r := httptest.NewRequest("POST", "/api/transcribe?log=debug", nil)
	logEnd(r, "transcribe", 500, time.Now(), errors.New("boom"), map[string]any{"model": "base"})
	out := buf.String()
	for _, want := range []string{`"op":"transcribe"`, `"status":500`, `"error":"boom"`, `"model":"base"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %s in %q", want, out)
		}
	}

	buf.Reset()
	r = httptest.NewRequest("POST", "/api/transcribe?log=error", nil)
	logEnd(r, "transcribe", 200, time.Now(), nil, nil)
	if buf.Len() != 0 {
		t.Fatalf("success should not be logged at error level: %q", buf.String())
	}
}

func TestLogEnd_NilLoggerIsNoop(t *testing.T) {
	prev := zlog
	defer func() { zlog = prev }()
	zlog = nil
	logEnd(httptest.NewRequest("GET", "/", nil), "noop", 200, time.Now(), nil, nil)
}
