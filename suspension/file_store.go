package suspension

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// FileStore is a directory-backed Store, one JSON file per executionId.
type FileStore struct {
	dir                 string
	withCodecValidation bool
	mu                  sync.Mutex
}

// NewFileStore returns a FileStore rooted at dir. When withCodecValidation
// is true, Save re-decodes the freshly-written file and fails the save if
// the round trip doesn't reproduce the same executionId, catching a codec
// regression before it corrupts a checkpoint a caller will later depend on.
func NewFileStore(dir string, withCodecValidation bool) *FileStore {
	return &FileStore{dir: dir, withCodecValidation: withCodecValidation}
}

func (f *FileStore) path(handle SuspensionHandle) string {
	return filepath.Join(f.dir, string(handle)+".json")
}

func (f *FileStore) Save(exec *SuspendedExecution) (SuspensionHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return "", fmt.Errorf("suspension: file store: creating %s: %w", f.dir, err)
	}

	handle := SuspensionHandle(exec.ExecutionID)
	data, err := json.MarshalIndent(Encode(exec), "", "  ")
	if err != nil {
		return "", fmt.Errorf("suspension: file store: encoding %s: %w", exec.ExecutionID, err)
	}

	path := f.path(handle)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("suspension: file store: writing %s: %w", path, err)
	}

	if f.withCodecValidation {
		reloaded, _, err := f.load(handle)
		if err != nil {
			return "", fmt.Errorf("suspension: file store: codec validation for %s: %w", exec.ExecutionID, err)
		}
		if reloaded.ExecutionID != exec.ExecutionID {
			return "", fmt.Errorf("suspension: file store: codec validation for %s: round trip produced executionId %q", exec.ExecutionID, reloaded.ExecutionID)
		}
	}
	return handle, nil
}

func (f *FileStore) Load(handle SuspensionHandle) (*SuspendedExecution, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.load(handle)
}

func (f *FileStore) load(handle SuspensionHandle) (*SuspendedExecution, bool, error) {
	data, err := os.ReadFile(f.path(handle))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("suspension: file store: reading %s: %w", handle, err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, false, fmt.Errorf("suspension: file store: parsing %s: %w", handle, err)
	}
	exec, err := Decode(raw)
	if err != nil {
		return nil, false, fmt.Errorf("suspension: file store: decoding %s: %w", handle, err)
	}
	return exec, true, nil
}

func (f *FileStore) Delete(handle SuspensionHandle) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := f.path(handle)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return false, nil
	}
	if err := os.Remove(path); err != nil {
		return false, fmt.Errorf("suspension: file store: deleting %s: %w", path, err)
	}
	return true, nil
}

func (f *FileStore) List(filter Filter) ([]Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	matches, err := filepath.Glob(filepath.Join(f.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("suspension: file store: listing %s: %w", f.dir, err)
	}

	var out []Summary
	for _, path := range matches {
		handle := SuspensionHandle(strings.TrimSuffix(filepath.Base(path), ".json"))
		exec, ok, err := f.load(handle)
		if err != nil || !ok {
			continue
		}
		if matchesFilter(exec, filter) {
			out = append(out, summarize(handle, exec))
		}
	}
	return out, nil
}
