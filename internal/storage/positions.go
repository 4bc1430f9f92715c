// =============================
// File: internal/storage/positions.go
// =============================
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/rovshanmuradov/evm-sniper/internal/task"
)

// DefaultPositionsFile is used when no path is configured.
const DefaultPositionsFile = "positions.json"

// PositionTracker is a set of executed pair addresses backed by a JSON array file.
// The whole file is read on construction and rewritten on every Add.
type PositionTracker struct {
	mu     sync.Mutex
	path   string
	pairs  map[string]struct{}
	logger *zap.Logger
}

// NewPositionTracker loads path. A missing, unreadable or corrupt file yields
// an empty tracker; the problem is logged, not returned.
func NewPositionTracker(path string, logger *zap.Logger) *PositionTracker {
	if path == "" {
		path = DefaultPositionsFile
	}
	pt := &PositionTracker{
		path:   path,
		pairs:  make(map[string]struct{}),
		logger: logger.Named("positions"),
	}
	pt.load()
	return pt
}

func (pt *PositionTracker) load() {
	data, err := os.ReadFile(pt.path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			pt.logger.Warn("Failed to read positions file, starting empty",
				zap.String("path", pt.path), zap.Error(err))
		}
		return
	}

	var pairs []string
	if err := json.Unmarshal(data, &pairs); err != nil {
		pt.logger.Warn("Corrupt positions file, starting empty",
			zap.String("path", pt.path), zap.Error(err))
		return
	}
	for _, p := range pairs {
		pt.pairs[task.PairKey(p)] = struct{}{}
	}
	pt.logger.Info("Loaded positions", zap.String("path", pt.path), zap.Int("count", len(pt.pairs)))
}

// Has reports whether pair was already executed.
func (pt *PositionTracker) Has(pair string) bool {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	_, ok := pt.pairs[task.PairKey(pair)]
	return ok
}

// Add records pair and persists the full set. The in-memory set keeps pair
// even when the write fails.
func (pt *PositionTracker) Add(pair string) error {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	pt.pairs[task.PairKey(pair)] = struct{}{}
	if err := pt.persist(); err != nil {
		pt.logger.Error("Failed to persist positions", zap.String("path", pt.path), zap.Error(err))
		return err
	}
	return nil
}

// Len returns the number of recorded pairs.
func (pt *PositionTracker) Len() int {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return len(pt.pairs)
}

// All returns the recorded pairs sorted.
func (pt *PositionTracker) All() []string {
	pt.mu.Lock()
	defer pt.mu.Unlock()
	return pt.sorted()
}

func (pt *PositionTracker) sorted() []string {
	out := make([]string, 0, len(pt.pairs))
	for p := range pt.pairs {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// persist writes to a temp file and renames it over the target. Caller holds mu.
func (pt *PositionTracker) persist() error {
	if dir := filepath.Dir(pt.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create positions dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(pt.sorted(), "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	tmp := pt.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write positions: %w", err)
	}
	if err := os.Rename(tmp, pt.path); err != nil {
		return fmt.Errorf("replace positions: %w", err)
	}
	return nil
}
