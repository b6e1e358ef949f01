package pack

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Reserved identifiers for the synthetic views. They are valid values for
// the last-opened pointer but never correspond to a manifest file.
const (
	GlobalViewID       = "global_view"
	UnclassifiedViewID = "unclassified_view"
)

// lastOpenedFile is the pointer record's filename inside the packages
// directory. Excluded from manifest scans.
const lastOpenedFile = "last_opened.json"

// PackageInfo is the listing projection of one manifest.
type PackageInfo struct {
	PackageID   string `json:"package_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	UpdatedAt   string `json:"updated_at"`
}

// IndexManager provides CRUD and discovery over package manifests, one JSON
// file per package. Membership mutations can be applied out-of-band via
// AddResource/RemoveResource without the package being "current".
type IndexManager struct {
	dir    string
	logger *zap.Logger
}

// NewIndexManager creates a manager over the packages directory. A nil
// logger is replaced with a no-op logger.
func NewIndexManager(dir string, logger *zap.Logger) *IndexManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IndexManager{dir: dir, logger: logger}
}

// Dir returns the packages directory.
func (m *IndexManager) Dir() string { return m.dir }

func (m *IndexManager) manifestPath(packageID string) string {
	return filepath.Join(m.dir, packageID+".json")
}

// CreatePackage generates a fresh unique package ID, persists an empty
// manifest, and returns it. An ID collision is practically unreachable with
// uuid generation, but silent overwrite of an existing manifest is forbidden,
// so it fails loudly.
func (m *IndexManager) CreatePackage(name string) (*Index, error) {
	packageID := uuid.NewString()
	if _, err := os.Stat(m.manifestPath(packageID)); err == nil {
		return nil, fmt.Errorf("package id collision: %s already exists", packageID)
	}

	idx := NewIndex(packageID, name)
	if err := m.SaveIndex(idx); err != nil {
		return nil, err
	}
	m.logger.Info("package created",
		zap.String("package_id", packageID),
		zap.String("name", name))
	return idx, nil
}

// LoadIndex reads one manifest. An absent package returns (nil, nil).
func (m *IndexManager) LoadIndex(packageID string) (*Index, error) {
	data, err := os.ReadFile(m.manifestPath(packageID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read package manifest: %w", err)
	}
	return Decode(data)
}

// SaveIndex persists one manifest atomically.
func (m *IndexManager) SaveIndex(idx *Index) error {
	if idx == nil || idx.PackageID == "" {
		return fmt.Errorf("cannot save manifest without a package id")
	}
	data, err := idx.Marshal()
	if err != nil {
		return fmt.Errorf("failed to marshal package manifest: %w", err)
	}

	path := m.manifestPath(idx.PackageID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create packages directory: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temporary manifest file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}

// DeletePackage removes one manifest file. Resources it referenced stay in
// the library; they simply become unclassified.
func (m *IndexManager) DeletePackage(packageID string) (bool, error) {
	if err := os.Remove(m.manifestPath(packageID)); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete manifest file: %w", err)
	}
	return true, nil
}

// ListPackages scans the packages directory and returns one PackageInfo per
// readable manifest, ordered by name then ID. Malformed manifests are logged
// and skipped, never fatal to the scan.
func (m *IndexManager) ListPackages() ([]PackageInfo, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan packages directory: %w", err)
	}

	var infos []PackageInfo
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || name == lastOpenedFile {
			continue
		}
		packageID := strings.TrimSuffix(name, ".json")
		idx, err := m.LoadIndex(packageID)
		if err != nil {
			m.logger.Warn("skipping unreadable package manifest",
				zap.String("file", name),
				zap.Error(err))
			continue
		}
		if idx == nil {
			continue
		}
		infos = append(infos, PackageInfo{
			PackageID:   idx.PackageID,
			Name:        idx.Name,
			Description: idx.Description,
			UpdatedAt:   idx.UpdatedAt,
		})
	}

	sort.Slice(infos, func(i, j int) bool {
		if infos[i].Name != infos[j].Name {
			return infos[i].Name < infos[j].Name
		}
		return infos[i].PackageID < infos[j].PackageID
	})
	return infos, nil
}

type lastOpenedRecord struct {
	PackageID string `json:"package_id"`
}

// LastOpened returns the persisted last-opened package pointer, which may be
// a real package ID or one of the view sentinels. Empty string when unset.
func (m *IndexManager) LastOpened() (string, error) {
	data, err := os.ReadFile(filepath.Join(m.dir, lastOpenedFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read last-opened pointer: %w", err)
	}
	var record lastOpenedRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return "", fmt.Errorf("failed to parse last-opened pointer: %w", err)
	}
	return record.PackageID, nil
}

// SetLastOpened persists the last-opened pointer.
func (m *IndexManager) SetLastOpened(packageID string) error {
	data, err := json.MarshalIndent(lastOpenedRecord{PackageID: packageID}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(m.dir, 0755); err != nil {
		return fmt.Errorf("failed to create packages directory: %w", err)
	}
	path := filepath.Join(m.dir, lastOpenedFile)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write last-opened pointer: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to persist last-opened pointer: %w", err)
	}
	return nil
}

// AddResource loads a manifest, adds one membership reference, and persists
// the manifest immediately. The package does not need to be open anywhere.
// Reports whether the manifest changed.
func (m *IndexManager) AddResource(packageID string, category Category, resourceID string) (bool, error) {
	return m.mutate(packageID, category, resourceID, true)
}

// RemoveResource is the inverse of AddResource.
func (m *IndexManager) RemoveResource(packageID string, category Category, resourceID string) (bool, error) {
	return m.mutate(packageID, category, resourceID, false)
}

func (m *IndexManager) mutate(packageID string, category Category, resourceID string, add bool) (bool, error) {
	if err := category.Validate(); err != nil {
		return false, err
	}
	idx, err := m.LoadIndex(packageID)
	if err != nil {
		return false, err
	}
	if idx == nil {
		return false, fmt.Errorf("package %s not found", packageID)
	}

	var changed bool
	if add {
		changed = category.Add(idx, resourceID)
	} else {
		changed = category.Remove(idx, resourceID)
	}
	if !changed {
		return false, nil
	}
	return true, m.SaveIndex(idx)
}

// Fingerprint digests every package's (id, updated_at) pair. The
// unclassified view keys its membership memoization on this value: any
// manifest change produces a different fingerprint.
func (m *IndexManager) Fingerprint() (string, error) {
	infos, err := m.ListPackages()
	if err != nil {
		return "", err
	}
	lines := make([]string, 0, len(infos))
	for _, info := range infos {
		lines = append(lines, info.PackageID+"|"+info.UpdatedAt)
	}
	sort.Strings(lines)

	digest := fnv.New64a()
	for _, line := range lines {
		digest.Write([]byte(line))
		digest.Write([]byte{'\n'})
	}
	return fmt.Sprintf("%016x", digest.Sum64()), nil
}
