// Package settings persists user preferences as a single JSON object.
//
// A Store is loaded once and written back after every change. Keys are
// arbitrary strings and values any JSON value; there is no schema. Load
// problems never stop the application: they are logged and the store starts
// empty. Save problems are logged and returned to the caller.
package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/goccy/go-json"

	"github.com/alnah/markforge/internal/fileutil"
)

// FileName is the settings file created in the user's home directory.
const FileName = ".markforge-config.json"

// Well-known keys written by the application.
const (
	KeyLastOpened    = "lastOpenedFile"
	KeyLastExportDir = "lastExportDir"
)

// filePerm keeps settings private to the user.
const filePerm = 0o600

// Sentinel errors for settings operations.
var (
	ErrEmptyKey = errors.New("settings key cannot be empty")
	ErrSave     = errors.New("saving settings failed")
	ErrValue    = errors.New("settings value is not JSON-encodable")
)

// DefaultPath returns ~/.markforge-config.json.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Store is a JSON-backed key/value store. Safe for concurrent use.
type Store struct {
	path   string
	logger *slog.Logger

	mu   sync.Mutex
	data map[string]any
}

// Open loads the store at path. It never fails: a missing file yields an
// empty store and a corrupt or unreadable one is logged and ignored.
// A nil logger discards log output.
func Open(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	s := &Store{path: path, logger: logger, data: map[string]any{}}
	s.load()
	return s
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path) // #nosec G304 -- user settings path
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Error("loading settings", "path", s.path, "error", err)
		return
	}

	data := map[string]any{}
	if err := json.Unmarshal(raw, &data); err != nil {
		s.logger.Error("loading settings", "path", s.path, "error", err)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	s.data = data
}

// Get returns the value for key, or def when the key is absent.
func (s *Store) Get(key string, def any) any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok := s.data[key]; ok {
		return v
	}
	return def
}

// GetString returns the value for key when it is a string, else def.
func (s *Store) GetString(key, def string) string {
	if v, ok := s.Get(key, nil).(string); ok {
		return v
	}
	return def
}

// Keys returns all keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Set stores value under key and saves. The in-memory value is kept even if
// saving fails.
func (s *Store) Set(key string, value any) error {
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := json.Marshal(value); err != nil {
		return fmt.Errorf("%w: %v", ErrValue, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return s.saveLocked()
}

// Delete removes key and saves. Deleting a missing key still saves.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
	return s.saveLocked()
}

// Clear removes every key and saves.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = map[string]any{}
	return s.saveLocked()
}

// Snapshot returns the store contents as indented JSON.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return encode(s.data)
}

func (s *Store) saveLocked() error {
	out, err := encode(s.data)
	if err == nil {
		err = fileutil.WriteFileAtomic(s.path, out, filePerm)
	}
	if err != nil {
		s.logger.Error("saving settings", "path", s.path, "error", err)
		return fmt.Errorf("%w: %v", ErrSave, err)
	}
	return nil
}

// encode writes two-space indented JSON without HTML escaping so paths and
// markup stay readable in the file.
func encode(data map[string]any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(data); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
