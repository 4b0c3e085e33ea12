package registry

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"sttd/internal/common/fsutil"
	"sttd/pkg/types"
)

// Sizes are the accepted model size identifiers, smallest first.
var Sizes = []string{"tiny", "base", "small", "medium", "large-v3"}

const (
	filePrefix = "ggml-"
	fileSuffix = ".bin"
)

// ErrUnknownSize is returned for a size outside Sizes.
var ErrUnknownSize = errors.New("unknown model size")

// NotFoundError reports a valid size whose weights file is missing.
type NotFoundError struct {
	Size string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("model %s: weights file %s not found", e.Size, e.Path)
}

// ValidSize reports whether s is one of Sizes.
func ValidSize(s string) bool { return slices.Contains(Sizes, s) }

// FileName returns the weights file name for a size, e.g. ggml-base.bin.
func FileName(size string) string { return filePrefix + size + fileSuffix }

// Registry resolves model sizes to weights files in one directory.
type Registry struct {
	dir string
}

// New returns a registry rooted at dir ('~' is expanded).
func New(dir string) (*Registry, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	return &Registry{dir: abs}, nil
}

// Dir returns the absolute models directory.
func (r *Registry) Dir() string { return r.dir }

// Path returns the weights file for size.
func (r *Registry) Path(size string) (string, error) {
	if !ValidSize(size) {
		return "", fmt.Errorf("%w: %q", ErrUnknownSize, size)
	}
	p := filepath.Join(r.dir, FileName(size))
	if !fsutil.IsFile(p) {
		return "", &NotFoundError{Size: size, Path: p}
	}
	return p, nil
}

// List reports every known size and whether its weights file is present.
// The directory is scanned once; an unreadable directory lists every size
// as unavailable.
func (r *Registry) List() []types.Model {
	present := map[string]string{}
	if found, err := LoadDir(r.dir); err == nil {
		for _, m := range found {
			present[filepath.Base(m.Path)] = m.Path
		}
	}
	out := make([]types.Model, 0, len(Sizes))
	for _, s := range Sizes {
		m := types.Model{ID: s}
		if p, ok := present[FileName(s)]; ok {
			m.Path = p
			m.Available = true
		}
		out = append(out, m)
	}
	return out
}

// LoadDir scans a directory for ggml-*.bin files. The ID is the file name
// without prefix and extension, so ggml-base.en.bin yields "base.en".
func LoadDir(dir string) ([]types.Model, error) {
	abs, err := fsutil.Resolve(dir)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(abs)
	if err != nil {
		return nil, fmt.Errorf("read dir: %w", err)
	}
	var models []types.Model
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		lower := strings.ToLower(name)
		if !strings.HasPrefix(lower, filePrefix) || !strings.HasSuffix(lower, fileSuffix) {
			continue
		}
		id := name[len(filePrefix) : len(name)-len(fileSuffix)]
		if id == "" {
			continue
		}
		models = append(models, types.Model{ID: id, Path: filepath.Join(abs, name), Available: true})
	}
	return models, nil
}
