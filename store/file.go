package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"stoicbot/types"
)

// FileStore persists state as JSON files under a directory: a single-integer
// counter file plus one run_YYYY-MM-DD.json array per calendar day. Writes
// are whole-file rewrites guarded by a process-local mutex; there is no
// cross-process lock because only one orchestrator instance runs at a time
// by design.
type FileStore struct {
	mu  sync.Mutex
	dir string
}

const counterFileName = "post_count.json"

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

type counterFile struct {
	Count int `json:"count"`
}

func (f *FileStore) counterPath() string { return filepath.Join(f.dir, counterFileName) }

func (f *FileStore) runLogPath(day time.Time) string {
	return filepath.Join(f.dir, fmt.Sprintf("run_%s.json", DayKey(day)))
}

func (f *FileStore) ReadCounter(ctx context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readCounterLocked()
}

func (f *FileStore) readCounterLocked() (int, error) {
	data, err := os.ReadFile(f.counterPath())
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read counter: %w", err)
	}
	var c counterFile
	if err := json.Unmarshal(data, &c); err != nil {
		return 0, fmt.Errorf("parse counter: %w", err)
	}
	return c.Count, nil
}

func (f *FileStore) WriteCounterIfUnchanged(ctx context.Context, old, next int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	cur, err := f.readCounterLocked()
	if err != nil {
		return err
	}
	if cur != old {
		return fmt.Errorf("%w: have %d, expected %d", ErrCounterConflict, cur, old)
	}

	data, err := json.Marshal(counterFile{Count: next})
	if err != nil {
		return err
	}
	if err := writeFileAtomic(f.counterPath(), data); err != nil {
		return fmt.Errorf("write counter: %w", err)
	}
	return nil
}

func (f *FileStore) AppendRun(ctx context.Context, rec types.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.runLogPath(rec.StartTime)

	var runs []types.RunRecord
	if data, err := os.ReadFile(path); err == nil {
		// A corrupt day file starts a fresh array rather than losing the run.
		_ = json.Unmarshal(data, &runs)
	}

	runs = append(runs, rec)

	data, err := json.MarshalIndent(runs, "", "  ")
	if err != nil {
		return err
	}
	if err := writeFileAtomic(path, data); err != nil {
		return fmt.Errorf("append run record: %w", err)
	}
	return nil
}

func (f *FileStore) RunsForDay(ctx context.Context, day time.Time) ([]types.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.runLogPath(day))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read run log: %w", err)
	}
	var runs []types.RunRecord
	if err := json.Unmarshal(data, &runs); err != nil {
		return nil, fmt.Errorf("parse run log: %w", err)
	}
	return runs, nil
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// cannot leave a truncated counter or run log behind.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
