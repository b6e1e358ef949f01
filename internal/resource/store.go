package resource

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// Store persists one record per (type, id) as a JSON file under the library
// root. A missing file is "absent", never an error; writes replace the whole
// record atomically via a temp file and rename.
type Store struct {
	root   string
	logger *zap.Logger
}

// NewStore creates a store rooted at the library directory. A nil logger is
// replaced with a no-op logger.
func NewStore(root string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{root: root, logger: logger}
}

// Root returns the library root directory.
func (s *Store) Root() string { return s.root }

// Path returns the deterministic file path for a record.
func (s *Store) Path(typ Type, id string) string {
	return filepath.Join(s.root, typ.Dir(), id+".json")
}

// Save writes the payload for (typ, id), creating parent directories as
// needed. The write is temp-then-rename so readers never observe a
// half-written file.
func (s *Store) Save(typ Type, id string, payload map[string]any) error {
	if id == "" {
		return fmt.Errorf("resource: empty id for type %s", typ)
	}
	path := s.Path(typ, id)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create resource directory: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s %q: %w", typ, id, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary resource file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename resource file: %w", err)
	}

	s.logger.Debug("resource saved",
		zap.String("type", string(typ)),
		zap.String("id", id))
	return nil
}

// Load reads the payload for (typ, id). An absent record returns (nil, nil).
// A file that exists but fails to parse returns a *MalformedRecordError.
func (s *Store) Load(typ Type, id string) (map[string]any, error) {
	path := s.Path(typ, id)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read resource file: %w", err)
	}

	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, &MalformedRecordError{Type: typ, ID: id, Path: path, Err: err}
	}
	return payload, nil
}

// Exists reports whether a record file is present.
func (s *Store) Exists(typ Type, id string) bool {
	_, err := os.Stat(s.Path(typ, id))
	return err == nil
}

// Delete removes a record file. It reports whether a file was actually
// removed; deleting an absent record is a no-op.
func (s *Store) Delete(typ Type, id string) (bool, error) {
	path := s.Path(typ, id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete resource file: %w", err)
	}
	s.logger.Debug("resource deleted",
		zap.String("type", string(typ)),
		zap.String("id", id))
	return true, nil
}

// List returns the IDs of every record of the given type, ordered by
// filename. A missing type directory yields an empty list.
func (s *Store) List(typ Type) ([]string, error) {
	dir := filepath.Join(s.root, typ.Dir())
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan resource directory: %w", err)
	}

	ids := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}
