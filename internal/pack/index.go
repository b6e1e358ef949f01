package pack

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/packsmith-editor/packsmith/internal/resource"
)

// Index is a package manifest: membership lists plus metadata. It stores
// resource ID references, never resource payload. All mutation goes through
// the add/remove accessors, each of which is idempotent and bumps UpdatedAt
// when something actually changed.
type Index struct {
	PackageID   string
	Name        string
	Description string
	Resources   *Resources

	// ResourceNames caches display metadata per resource ID for list UIs.
	ResourceNames map[string]map[string]any

	// LevelEntityID references the package's one distinguished instance, if
	// any. The instance itself lives in the library like any other.
	LevelEntityID string

	// Signals may hold full signal definitions in memory, but only the ID
	// placeholder map is ever serialized; the definitions are owned by the
	// package's signals management resource.
	Signals map[string]map[string]any

	CreatedAt string
	UpdatedAt string
}

// NewIndex creates an empty manifest with fresh timestamps.
func NewIndex(packageID, name string) *Index {
	now := time.Now().Format(time.RFC3339Nano)
	return &Index{
		PackageID:     packageID,
		Name:          name,
		Resources:     NewResources(),
		ResourceNames: make(map[string]map[string]any),
		Signals:       make(map[string]map[string]any),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (idx *Index) touch() {
	idx.UpdatedAt = time.Now().Format(time.RFC3339Nano)
}

// AddTemplate adds a template reference. No-op if already present.
func (idx *Index) AddTemplate(id string) bool {
	var changed bool
	idx.Resources.Templates, changed = appendUnique(idx.Resources.Templates, id)
	if changed {
		idx.touch()
	}
	return changed
}

// RemoveTemplate removes a template reference. No-op if absent.
func (idx *Index) RemoveTemplate(id string) bool {
	var changed bool
	idx.Resources.Templates, changed = removeID(idx.Resources.Templates, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) AddInstance(id string) bool {
	var changed bool
	idx.Resources.Instances, changed = appendUnique(idx.Resources.Instances, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) RemoveInstance(id string) bool {
	var changed bool
	idx.Resources.Instances, changed = removeID(idx.Resources.Instances, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) AddGraph(id string) bool {
	var changed bool
	idx.Resources.Graphs, changed = appendUnique(idx.Resources.Graphs, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) RemoveGraph(id string) bool {
	var changed bool
	idx.Resources.Graphs, changed = removeID(idx.Resources.Graphs, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) AddComposite(id string) bool {
	var changed bool
	idx.Resources.Composites, changed = appendUnique(idx.Resources.Composites, id)
	if changed {
		idx.touch()
	}
	return changed
}

func (idx *Index) RemoveComposite(id string) bool {
	var changed bool
	idx.Resources.Composites, changed = removeID(idx.Resources.Composites, id)
	if changed {
		idx.touch()
	}
	return changed
}

// AddCombatPreset adds a preset reference to one combat bucket. Unknown
// buckets are rejected as a programmer error.
func (idx *Index) AddCombatPreset(bucket resource.CombatBucket, id string) bool {
	if !bucket.Valid() {
		return false
	}
	list, changed := appendUnique(idx.Resources.CombatPresets[bucket], id)
	if changed {
		idx.Resources.CombatPresets[bucket] = list
		idx.touch()
	}
	return changed
}

func (idx *Index) RemoveCombatPreset(bucket resource.CombatBucket, id string) bool {
	if !bucket.Valid() {
		return false
	}
	list, changed := removeID(idx.Resources.CombatPresets[bucket], id)
	if changed {
		idx.Resources.CombatPresets[bucket] = list
		idx.touch()
	}
	return changed
}

func (idx *Index) AddManagementResource(field resource.ManagementField, id string) bool {
	if !field.Valid() {
		return false
	}
	list, changed := appendUnique(idx.Resources.Management[field], id)
	if changed {
		idx.Resources.Management[field] = list
		idx.touch()
	}
	return changed
}

func (idx *Index) RemoveManagementResource(field resource.ManagementField, id string) bool {
	if !field.Valid() {
		return false
	}
	list, changed := removeID(idx.Resources.Management[field], id)
	if changed {
		idx.Resources.Management[field] = list
		idx.touch()
	}
	return changed
}

// SetSignals replaces the manifest's signal set with the given definitions.
// Only the ID set matters for change detection, since the manifest serializes
// placeholders.
func (idx *Index) SetSignals(defs map[string]map[string]any) bool {
	same := len(defs) == len(idx.Signals)
	if same {
		for signalID := range defs {
			if _, ok := idx.Signals[signalID]; !ok {
				same = false
				break
			}
		}
	}
	if same {
		return false
	}
	replacement := make(map[string]map[string]any, len(defs))
	for signalID, def := range defs {
		replacement[signalID] = def
	}
	idx.Signals = replacement
	idx.touch()
	return true
}

// SetLevelEntity points the manifest at its distinguished instance. An empty
// ID clears it.
func (idx *Index) SetLevelEntity(instanceID string) bool {
	if idx.LevelEntityID == instanceID {
		return false
	}
	idx.LevelEntityID = instanceID
	idx.touch()
	return true
}

// indexFile is the on-disk manifest shape.
type indexFile struct {
	PackageID     string                    `json:"package_id"`
	Name          string                    `json:"name"`
	Description   string                    `json:"description"`
	Resources     *Resources                `json:"resources"`
	ResourceNames map[string]map[string]any `json:"resource_names"`
	LevelEntityID string                    `json:"level_entity_id,omitempty"`
	Signals       map[string]map[string]any `json:"signals"`
	CreatedAt     string                    `json:"created_at"`
	UpdatedAt     string                    `json:"updated_at"`
}

// Marshal serializes the manifest. Signals are reduced to an ID-only
// placeholder map: the full definitions belong to the package's signals
// management resource, never to the manifest.
func (idx *Index) Marshal() ([]byte, error) {
	placeholders := make(map[string]map[string]any, len(idx.Signals))
	for signalID := range idx.Signals {
		if signalID == "" {
			continue
		}
		placeholders[signalID] = map[string]any{}
	}

	file := indexFile{
		PackageID:     idx.PackageID,
		Name:          idx.Name,
		Description:   idx.Description,
		Resources:     idx.Resources,
		ResourceNames: idx.ResourceNames,
		LevelEntityID: idx.LevelEntityID,
		Signals:       placeholders,
		CreatedAt:     idx.CreatedAt,
		UpdatedAt:     idx.UpdatedAt,
	}
	return json.MarshalIndent(file, "", "  ")
}

// Decode deserializes a manifest. Missing categories and buckets default to
// empty lists so older manifests stay loadable.
func Decode(data []byte) (*Index, error) {
	var file indexFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse package manifest: %w", err)
	}
	if file.PackageID == "" {
		return nil, fmt.Errorf("package manifest missing package_id")
	}

	idx := &Index{
		PackageID:     file.PackageID,
		Name:          file.Name,
		Description:   file.Description,
		Resources:     file.Resources,
		ResourceNames: file.ResourceNames,
		LevelEntityID: file.LevelEntityID,
		Signals:       file.Signals,
		CreatedAt:     file.CreatedAt,
		UpdatedAt:     file.UpdatedAt,
	}
	if idx.Resources == nil {
		idx.Resources = NewResources()
	} else {
		idx.Resources.normalize()
	}
	if idx.ResourceNames == nil {
		idx.ResourceNames = make(map[string]map[string]any)
	}
	if idx.Signals == nil {
		idx.Signals = make(map[string]map[string]any)
	}
	return idx, nil
}
