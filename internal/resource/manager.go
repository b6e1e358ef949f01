package resource

import (
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"
)

type cacheKey struct {
	typ Type
	id  string
}

type cacheEntry struct {
	payload  map[string]any
	mtimeNS  int64
	fileSize int64
}

// Manager wraps the Store with whole-library enumeration, an mtime-keyed
// payload cache, and the library fingerprint used to detect changes made by
// other processes.
//
// The fingerprint baseline is refreshed after every write performed through
// the Manager, so HasLibraryChanged only reports modifications that arrived
// from outside the current session.
type Manager struct {
	store  *Store
	logger *zap.Logger

	mu          sync.Mutex
	cache       map[cacheKey]cacheEntry
	fingerprint string
}

// NewManager creates a manager over a library root. A nil logger is replaced
// with a no-op logger.
func NewManager(root string, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		store:  NewStore(root, logger),
		logger: logger,
		cache:  make(map[cacheKey]cacheEntry),
	}
}

// Store exposes the underlying store for callers that need raw paths.
func (m *Manager) Store() *Store { return m.store }

// SaveResource persists a record and refreshes the library fingerprint so the
// write is not later mistaken for an external change.
func (m *Manager) SaveResource(typ Type, id string, payload map[string]any) error {
	if err := m.store.Save(typ, id, payload); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.cacheStore(typ, id, payload)
	return m.refreshFingerprintLocked()
}

// LoadResource reads a record, serving repeated reads of an unchanged file
// from the cache. Absent records return (nil, nil).
func (m *Manager) LoadResource(typ Type, id string) (map[string]any, error) {
	path := m.store.Path(typ, id)
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to stat resource file: %w", err)
	}

	key := cacheKey{typ, id}
	m.mu.Lock()
	if entry, ok := m.cache[key]; ok &&
		entry.mtimeNS == info.ModTime().UnixNano() && entry.fileSize == info.Size() {
		m.mu.Unlock()
		return entry.payload, nil
	}
	m.mu.Unlock()

	payload, err := m.store.Load(typ, id)
	if err != nil || payload == nil {
		return payload, err
	}

	m.mu.Lock()
	m.cache[key] = cacheEntry{
		payload:  payload,
		mtimeNS:  info.ModTime().UnixNano(),
		fileSize: info.Size(),
	}
	m.mu.Unlock()
	return payload, nil
}

// ResourceExists reports whether a record is present on disk.
func (m *Manager) ResourceExists(typ Type, id string) bool {
	return m.store.Exists(typ, id)
}

// DeleteResource removes a record and refreshes the fingerprint.
func (m *Manager) DeleteResource(typ Type, id string) (bool, error) {
	removed, err := m.store.Delete(typ, id)
	if err != nil {
		return false, err
	}
	if !removed {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.cache, cacheKey{typ, id})
	return true, m.refreshFingerprintLocked()
}

// ListResources returns the ordered IDs of one resource type.
func (m *Manager) ListResources(typ Type) ([]string, error) {
	return m.store.List(typ)
}

// ListAllResources enumerates every known type. Types with no records map to
// an empty slice so callers can range without nil checks.
func (m *Manager) ListAllResources() (map[Type][]string, error) {
	all := make(map[Type][]string)
	for _, typ := range AllTypes() {
		ids, err := m.store.List(typ)
		if err != nil {
			return nil, err
		}
		if ids == nil {
			ids = []string{}
		}
		all[typ] = ids
	}
	return all, nil
}

// Fingerprint returns the current baseline fingerprint, computing it on
// first use.
func (m *Manager) Fingerprint() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fingerprint == "" {
		if err := m.refreshFingerprintLocked(); err != nil {
			return "", err
		}
	}
	return m.fingerprint, nil
}

// HasLibraryChanged reports whether the on-disk library differs from the
// baseline fingerprint, i.e. whether something outside this session wrote to
// it since the last refresh.
func (m *Manager) HasLibraryChanged() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fingerprint == "" {
		// No baseline yet: establish one, nothing to compare against.
		return false, m.refreshFingerprintLocked()
	}
	current, err := m.computeFingerprint()
	if err != nil {
		return false, err
	}
	return current != m.fingerprint, nil
}

// RefreshFingerprint recomputes the baseline from the current on-disk state.
// Must be called before any save so external edits are absorbed rather than
// clobbered, and after out-of-band file changes have been accepted.
func (m *Manager) RefreshFingerprint() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshFingerprintLocked()
}

// InvalidateCache drops every cached payload. Used after external changes
// are detected so stale documents are re-read from disk.
func (m *Manager) InvalidateCache() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache = make(map[cacheKey]cacheEntry)
}

func (m *Manager) cacheStore(typ Type, id string, payload map[string]any) {
	path := m.store.Path(typ, id)
	info, err := os.Stat(path)
	if err != nil {
		delete(m.cache, cacheKey{typ, id})
		return
	}
	m.cache[cacheKey{typ, id}] = cacheEntry{
		payload:  payload,
		mtimeNS:  info.ModTime().UnixNano(),
		fileSize: info.Size(),
	}
}

func (m *Manager) refreshFingerprintLocked() error {
	fp, err := m.computeFingerprint()
	if err != nil {
		return err
	}
	if fp != m.fingerprint {
		m.logger.Debug("library fingerprint refreshed", zap.String("fingerprint", fp))
	}
	m.fingerprint = fp
	return nil
}

// computeFingerprint digests (path, size, mtime) of every resource file into
// a cheap aggregate signature. Content hashing is deliberately avoided; the
// signature only needs to notice that something changed.
func (m *Manager) computeFingerprint() (string, error) {
	var lines []string
	root := m.store.Root()

	for _, typ := range AllTypes() {
		dir := filepath.Join(root, typ.Dir())
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return "", fmt.Errorf("failed to scan %s: %w", dir, err)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			info, err := entry.Info()
			if err != nil {
				continue
			}
			lines = append(lines, fmt.Sprintf("%s/%s|%d|%d",
				typ.Dir(), entry.Name(), info.Size(), info.ModTime().UnixNano()))
		}
	}

	sort.Strings(lines)
	digest := fnv.New64a()
	for _, line := range lines {
		digest.Write([]byte(line))
		digest.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}
