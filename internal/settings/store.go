// Package settings persists the shared shell settings document and
// serializes all writers behind a single process-wide lock. Several windows
// write through the same store; optimistic version checks decide which
// writer's state survives.
package settings

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

// Document is the on-disk settings object. Values stay raw so the store
// never has to understand what callers keep under each key.
type Document map[string]json.RawMessage

// Top-level keys the store will persist. Anything else found on disk is a
// legacy artifact from the pre-versioned flat layout and gets pruned on the
// next accepted write.
var allowedKeys = map[string]bool{
	"_version": true,
	"global":   true,
	"sites":    true,
}

// Result reports the outcome of a write.
type Result int

const (
	Committed Result = iota
	Rejected
)

func (r Result) String() string {
	if r == Committed {
		return "committed"
	}
	return "rejected"
}

// writeMu serializes every read-check-merge-write cycle in the process,
// across all Store instances and therefore all windows.
var writeMu sync.Mutex

// Store reads and writes the settings file.
type Store struct {
	path   string
	logger *slog.Logger
}

// NewStore creates a store for the given file path.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{path: path, logger: logger}
}

// DefaultPath returns the standard settings file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "readershell", "settings.json"), nil
}

// Read loads the current document. A missing or unparseable file degrades
// to an empty document; reads never fail the caller.
func (s *Store) Read() Document {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return Document{}
	}
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.logger.Warn("settings file unparseable, using defaults", "path", s.path, "error", err)
		return Document{}
	}
	if doc == nil {
		doc = Document{}
	}
	return doc
}

// Version extracts the document's _version counter, 0 when absent.
func (d Document) Version() uint64 {
	raw, ok := d["_version"]
	if !ok {
		return 0
	}
	var v uint64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

// Write applies an update without a version check. Allow-listed keys in the
// update replace the stored values wholesale; _version is taken from the
// update when present, otherwise left as stored.
func (s *Store) Write(update Document) Result {
	return s.write(update, 0, false)
}

// WriteVersioned applies an update guarded by optimistic locking: the write
// is accepted only when version is strictly greater than the stored
// _version. A rejected write touches nothing on disk and is not an error;
// it means a newer writer already holds ground truth.
func (s *Store) WriteVersioned(update Document, version uint64) Result {
	return s.write(update, version, true)
}

func (s *Store) write(update Document, version uint64, versioned bool) Result {
	writeMu.Lock()
	defer writeMu.Unlock()

	current := s.Read()

	if versioned {
		stored := current.Version()
		if version <= stored {
			s.logger.Debug("rejecting stale settings write",
				"incoming", version, "stored", stored)
			return Rejected
		}
	}

	// Prune legacy top-level keys regardless of what the update mentions.
	for key := range current {
		if !allowedKeys[key] {
			s.logger.Info("removing legacy settings key", "key", key)
			delete(current, key)
		}
	}

	// Shallow merge: each allowed key present in the update replaces the
	// stored value wholesale. Callers wanting finer-grained updates must
	// read-merge-write themselves.
	for key, value := range update {
		if allowedKeys[key] {
			current[key] = value
		}
	}

	// The version argument always wins over whatever _version the update
	// carried, so a stale payload cannot roll the counter back.
	if versioned {
		ver, err := json.Marshal(version)
		if err == nil {
			current["_version"] = ver
		}
	}

	s.persist(current)
	return Committed
}

// persist serializes and writes the document. Failures are logged and
// swallowed: the caller's in-memory state is already ahead of disk and the
// next read reflects whatever survived.
func (s *Store) persist(doc Document) {
	data, err := marshalDocument(doc)
	if err != nil {
		s.logger.Error("failed to serialize settings", "error", err)
		return
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		s.logger.Error("failed to create settings directory", "error", err)
		return
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		s.logger.Error("failed to write settings", "path", tmp, "error", err)
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Error("failed to persist settings", "path", s.path, "error", err)
	}
}

func marshalDocument(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
