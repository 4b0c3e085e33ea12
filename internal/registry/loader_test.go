package registry

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func touch(t *testing.T, dir, name string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(""), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
}

func TestLoadDir_FiltersGGML(t *testing.T) {
	dir := t.TempDir()
	for _, f := range []string{"ggml-base.bin", "GGML-tiny.BIN", "ggml-.bin", "notes.txt", "model.gguf"} {
		touch(t, dir, f)
	}
	if err := os.Mkdir(filepath.Join(dir, "ggml-dir.bin"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	models, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("scan error: %v", err)
	}
	if len(models) != 2 {
		t.Fatalf("expected 2 models, got %+v", models)
	}
	got := map[string]bool{}
	for _, m := range models {
		got[m.ID] = true
		if !filepath.IsAbs(m.Path) {
			t.Fatalf("path not absolute: %s", m.Path)
		}
	}
	if !got["base"] || !got["tiny"] {
		t.Fatalf("unexpected ids: %v", got)
	}
}

func TestRegistry_ListIgnoresOddlyNamedWeights(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "GGML-tiny.BIN")
	touch(t, dir, "ggml-base.en.bin")
	touch(t, dir, FileName("small"))
	r, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	for _, m := range r.List() {
		_, pathErr := r.Path(m.ID)
		if m.Available != (pathErr == nil) {
			t.Fatalf("%s: listed available=%v but Path err=%v", m.ID, m.Available, pathErr)
		}
		if m.Available != (m.ID == "small") {
			t.Fatalf("%s: available=%v", m.ID, m.Available)
		}
	}
}

func TestRegistry_ListMissingDir(t *testing.T) {
	r, err := New(filepath.Join(t.TempDir(), "nope"))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	list := r.List()
	if len(list) != len(Sizes) {
		t.Fatalf("expected %d entries, got %d", len(Sizes), len(list))
	}
	for _, m := range list {
		if m.Available {
			t.Fatalf("%s reported available", m.ID)
		}
	}
}

func TestLoadDir_MissingDir(t *testing.T) {
	if _, err := LoadDir(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatalf("expected error for missing dir")
	}
}

func TestRegistry_PathAndList(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, FileName("base"))
	r, err := New(dir)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	p, err := r.Path("base")
	if err != nil {
		t.Fatalf("path: %v", err)
	}
	if p != filepath.Join(r.Dir(), "ggml-base.bin") {
		t.Fatalf("unexpected path %s", p)
	}

	_, err = r.Path("large-v3")
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Size != "large-v3" {
		t.Fatalf("expected NotFoundError, got %v", err)
	}

	if _, err := r.Path("huge"); !errors.Is(err, ErrUnknownSize) {
		t.Fatalf("expected ErrUnknownSize, got %v", err)
	}

	list := r.List()
	if len(list) != len(Sizes) {
		t.Fatalf("expected %d entries, got %d", len(Sizes), len(list))
	}
	for _, m := range list {
		if (m.ID == "base") != m.Available {
			t.Fatalf("availability wrong for %+v", m)
		}
	}
}

func TestValidSize(t *testing.T) {
	for _, s := range Sizes {
		if !ValidSize(s) {
			t.Fatalf("%s should be valid", s)
		}
	}
	for _, s := range []string{"", "large", "Base", "large-v2"} {
		if ValidSize(s) {
			t.Fatalf("%q should be invalid", s)
		}
	}
}
