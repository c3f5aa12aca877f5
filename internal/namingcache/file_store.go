package namingcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/gofrs/flock"

	"flightstrip/internal/fileutil"
	"flightstrip/internal/logging"
	"flightstrip/internal/naming"
)

// FileStore keeps schemes in a JSON object mapping block key to
// [{"<position>": count, ...}, "<separator>"].
//
// The file is re-read on every call so concurrent processes see each other's
// writes. Writers take the mutex and an exclusive lock on <path>.lock, then
// replace the file via a temp file and rename; readers therefore never see a
// partial file and need no lock file.
type FileStore struct {
	path   string
	logger *slog.Logger
	mu     sync.RWMutex
	lock   *flock.Flock
}

// NewFileStore creates a file store. The file is created by the first Lookup
// or Store.
func NewFileStore(path string, logger *slog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logging.NewComponentLogger(logger, "namingcache"),
		lock:   flock.New(path + ".lock"),
	}
}

func (s *FileStore) Path() string { return s.path }

func (s *FileStore) Kind() string { return "json" }

// Close releases nothing; locks are held only for the duration of a call.
func (s *FileStore) Close() error { return nil }

// Lookup returns the scheme cached for key. A missing file is created empty.
func (s *FileStore) Lookup(key string) (naming.Scheme, bool) {
	key, err := normalizeKey(key)
	if err != nil {
		return naming.Scheme{}, false
	}
	if err := s.ensureFile(); err != nil {
		logging.WarnWithContext(s.logger, "naming cache not created", "naming_cache_create_failed",
			logging.Error(err),
			logging.String("path", s.path),
			logging.String(logging.FieldImpact, "the cache file is created by the next store"),
		)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.readOrEmpty()
	scheme, ok := entries[key]
	return scheme, ok
}

// Store records scheme for key, replacing any previous entry.
func (s *FileStore) Store(key string, scheme naming.Scheme) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	if len(scheme.Kept) == 0 {
		return fmt.Errorf("scheme for block %q keeps no positions", key)
	}
	err = s.update(func(entries map[string]naming.Scheme) (bool, error) {
		entries[key] = cloneScheme(scheme)
		return true, nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug("cached naming scheme",
		logging.String(logging.FieldBlock, key),
		logging.Any("kept", scheme.Positions()),
		logging.String("separator", scheme.Separator))
	return nil
}

// Remove deletes the entry for key.
func (s *FileStore) Remove(key string) error {
	key, err := normalizeKey(key)
	if err != nil {
		return err
	}
	return s.update(func(entries map[string]naming.Scheme) (bool, error) {
		if _, ok := entries[key]; !ok {
			return false, notFound(key)
		}
		delete(entries, key)
		return true, nil
	})
}

// Clear removes every entry.
func (s *FileStore) Clear() error {
	return s.update(func(entries map[string]naming.Scheme) (bool, error) {
		clear(entries)
		return true, nil
	})
}

// List returns all entries sorted by block key.
func (s *FileStore) List() ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := s.read()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(entries))
	for key, scheme := range entries {
		out = append(out, Entry{Key: key, Scheme: scheme})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// Count returns the number of cached blocks.
func (s *FileStore) Count() (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// update runs a read-modify-write cycle under both locks. A corrupt file is
// replaced rather than blocking writers.
func (s *FileStore) update(mutate func(map[string]naming.Scheme) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create cache directory: %w", err)
		}
	}
	if err := s.lock.Lock(); err != nil {
		return fmt.Errorf("acquire naming cache lock: %w", err)
	}
	defer s.unlock()

	entries := s.readOrEmpty()
	changed, err := mutate(entries)
	if err != nil || !changed {
		return err
	}
	if err := s.write(entries); err != nil {
		return fmt.Errorf("persist naming cache: %w", err)
	}
	return nil
}

func (s *FileStore) ensureFile() error {
	if _, err := os.Stat(s.path); !errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	// update re-reads under the lock, so a file created meanwhile is kept.
	return s.update(func(map[string]naming.Scheme) (bool, error) { return true, nil })
}

func (s *FileStore) unlock() {
	if err := s.lock.Unlock(); err != nil {
		s.logger.Debug("release naming cache lock failed", logging.Error(err))
	}
}

func (s *FileStore) readOrEmpty() map[string]naming.Scheme {
	entries, err := s.read()
	if err != nil {
		s.warnUnreadable(err)
		return map[string]naming.Scheme{}
	}
	return entries
}

func (s *FileStore) warnUnreadable(err error) {
	logging.WarnWithContext(s.logger, "naming cache unreadable", "naming_cache_load_failed",
		logging.Error(err),
		logging.String("path", s.path),
		logging.String(logging.FieldErrorHint, "the file is rewritten on the next successful inference"),
		logging.String(logging.FieldImpact, "cached blocks will be analysed again"),
	)
}

func (s *FileStore) read() (map[string]naming.Scheme, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]naming.Scheme{}, nil
		}
		return nil, fmt.Errorf("read naming cache: %w", err)
	}
	return decodeFile(data)
}

func (s *FileStore) write(entries map[string]naming.Scheme) error {
	data, err := encodeFile(entries)
	if err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(s.path, data, 0o644)
}

func decodeFile(data []byte) (map[string]naming.Scheme, error) {
	entries := map[string]naming.Scheme{}
	if len(bytes.TrimSpace(data)) == 0 {
		return entries, nil
	}
	var raw map[string][]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse naming cache: %w", err)
	}
	for key, pair := range raw {
		scheme, err := decodeEntry(pair)
		if err != nil {
			return nil, fmt.Errorf("parse naming cache entry %q: %w", key, err)
		}
		entries[key] = scheme
	}
	return entries, nil
}

func decodeEntry(pair []json.RawMessage) (naming.Scheme, error) {
	if len(pair) != 2 {
		return naming.Scheme{}, fmt.Errorf("expected [kept, separator], got %d elements", len(pair))
	}
	var kept map[string]int
	if err := json.Unmarshal(pair[0], &kept); err != nil {
		return naming.Scheme{}, fmt.Errorf("kept positions: %w", err)
	}
	if len(kept) == 0 {
		return naming.Scheme{}, errors.New("no kept positions")
	}
	var separator string
	if err := json.Unmarshal(pair[1], &separator); err != nil {
		return naming.Scheme{}, fmt.Errorf("separator: %w", err)
	}
	scheme := naming.Scheme{Kept: make(map[int]int, len(kept)), Separator: separator}
	for position, count := range kept {
		p, err := strconv.Atoi(position)
		if err != nil || p < 0 {
			return naming.Scheme{}, fmt.Errorf("position %q is not a subpart index", position)
		}
		scheme.Kept[p] = count
	}
	return scheme, nil
}

func encodeFile(entries map[string]naming.Scheme) ([]byte, error) {
	out := make(map[string][2]any, len(entries))
	for key, scheme := range entries {
		kept := make(map[string]int, len(scheme.Kept))
		for p, c := range scheme.Kept {
			kept[strconv.Itoa(p)] = c
		}
		out[key] = [2]any{kept, scheme.Separator}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return nil, fmt.Errorf("marshal naming cache: %w", err)
	}
	return buf.Bytes(), nil
}
