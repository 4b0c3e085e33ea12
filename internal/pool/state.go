package pool

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"sttd/internal/common/fsutil"
)

type stateRecord struct {
	Model        string `json:"model"`
	Device       string `json:"device"`
	LastUsedUnix int64  `json:"last_used_unix"`
}

// SaveState writes the current warm set to path as JSON, most recently used
// first. An empty path is a no-op.
func (p *Pool) SaveState(path string) error {
	if path == "" {
		return nil
	}
	snap := p.Snapshot()
	recs := make([]stateRecord, 0, len(snap))
	for _, s := range snap {
		recs = append(recs, stateRecord{Model: s.Model, Device: string(s.Device), LastUsedUnix: s.LastUsed.Unix()})
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].LastUsedUnix > recs[j].LastUsedUnix })
	b, err := json.MarshalIndent(recs, "", "  ")
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, b, 0o644); err != nil {
		return fmt.Errorf("save pool state: %w", err)
	}
	return nil
}

// LoadState reads a file written by SaveState and returns the model ids to
// warm, least recently used first, so that replaying them through Preload
// leaves the most recent model as the newest entry. Duplicate ids are
// collapsed and at most limit ids are returned when limit > 0. A missing
// file yields no ids and no error.
func LoadState(path string, limit int) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var recs []stateRecord
	if err := json.Unmarshal(b, &recs); err != nil {
		return nil, fmt.Errorf("decode state %s: %w", path, err)
	}
	sort.SliceStable(recs, func(i, j int) bool { return recs[i].LastUsedUnix > recs[j].LastUsedUnix })
	seen := make(map[string]bool, len(recs))
	var ids []string
	for _, r := range recs {
		if r.Model == "" || seen[r.Model] {
			continue
		}
		seen[r.Model] = true
		ids = append(ids, r.Model)
		if limit > 0 && len(ids) == limit {
			break
		}
	}
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids, nil
}
