package view

import (
	"sync"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// SignalsResourceID returns the ID of the management resource that owns a
// package's full signal definitions. The manifest itself only carries the ID
// placeholder map.
func SignalsResourceID(packageID string) string {
	return packageID + "_signals"
}

// PackageView resolves one manifest's ID references into live documents,
// lazily and per category. The view borrows the manifest; it owns only the
// caches. Callers must invalidate the matching cache whenever a manifest
// membership list changes; a stale cache would let a re-added resource
// still read as absent.
type PackageView struct {
	index     *pack.Index
	resources *resource.Manager
	logger    *zap.Logger

	mu          sync.Mutex
	templates   map[string]map[string]any
	instances   map[string]map[string]any
	combat      map[resource.CombatBucket]map[string]map[string]any
	management  map[resource.ManagementField]map[string]map[string]any
	signals     map[string]map[string]any
	levelEntity map[string]any
	levelLoaded bool
}

var _ View = (*PackageView)(nil)

// NewPackageView creates a view over one manifest. A nil logger is replaced
// with a no-op logger.
func NewPackageView(index *pack.Index, resources *resource.Manager, logger *zap.Logger) *PackageView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PackageView{
		index:     index,
		resources: resources,
		logger:    logger,
	}
}

// Index returns the borrowed manifest.
func (v *PackageView) Index() *pack.Index { return v.index }

func (v *PackageView) PackageID() string   { return v.index.PackageID }
func (v *PackageView) DisplayName() string { return v.index.Name }

// resolveList loads each referenced document, skipping missing and malformed
// records so one bad reference never blocks the rest.
func (v *PackageView) resolveList(typ resource.Type, ids []string) map[string]map[string]any {
	resolved := make(map[string]map[string]any, len(ids))
	for _, id := range ids {
		doc, err := v.resources.LoadResource(typ, id)
		if err != nil {
			v.logger.Warn("skipping unreadable resource",
				zap.String("type", string(typ)),
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		if doc == nil {
			// Dangling reference: tolerated, reported by the validation pass.
			continue
		}
		resolved[id] = doc
	}
	return resolved
}

func (v *PackageView) Templates() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.templates == nil {
		v.templates = v.resolveList(resource.TypeTemplate, v.index.Resources.Templates)
	}
	return v.templates
}

func (v *PackageView) Instances() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.instances == nil {
		v.instances = v.resolveList(resource.TypeInstance, v.index.Resources.Instances)
	}
	return v.instances
}

func (v *PackageView) Template(id string) (map[string]any, bool) {
	doc, ok := v.Templates()[id]
	return doc, ok
}

func (v *PackageView) Instance(id string) (map[string]any, bool) {
	doc, ok := v.Instances()[id]
	return doc, ok
}

func (v *PackageView) CombatPresets(bucket resource.CombatBucket) map[string]map[string]any {
	if !bucket.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.combat == nil {
		v.combat = make(map[resource.CombatBucket]map[string]map[string]any)
	}
	if v.combat[bucket] == nil {
		v.combat[bucket] = v.resolveList(bucket.ResourceType(), v.index.Resources.CombatPresets[bucket])
	}
	return v.combat[bucket]
}

func (v *PackageView) Management(field resource.ManagementField) map[string]map[string]any {
	if !field.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.management == nil {
		v.management = make(map[resource.ManagementField]map[string]map[string]any)
	}
	if v.management[field] == nil {
		v.management[field] = v.resolveList(field.ResourceType(), v.index.Resources.Management[field])
	}
	return v.management[field]
}

// Signals returns the package's full signal definitions from its signals
// management resource. When the resource is missing, the manifest's
// placeholder map is surfaced so signal IDs remain visible.
func (v *PackageView) Signals() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.signals != nil {
		return v.signals
	}

	v.signals = make(map[string]map[string]any)
	doc, err := v.resources.LoadResource(
		resource.FieldSignals.ResourceType(), SignalsResourceID(v.index.PackageID))
	if err != nil {
		v.logger.Warn("skipping unreadable signals resource",
			zap.String("package_id", v.index.PackageID),
			zap.Error(err))
	}
	if doc != nil {
		if defs, ok := doc["signals"].(map[string]any); ok {
			for signalID, raw := range defs {
				if def, ok := raw.(map[string]any); ok {
					v.signals[signalID] = def
				}
			}
			return v.signals
		}
	}
	for signalID, def := range v.index.Signals {
		v.signals[signalID] = def
	}
	return v.signals
}

func (v *PackageView) LevelEntity() (map[string]any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.levelLoaded {
		v.levelLoaded = true
		if v.index.LevelEntityID != "" {
			doc, err := v.resources.LoadResource(resource.TypeInstance, v.index.LevelEntityID)
			if err != nil {
				v.logger.Warn("skipping unreadable level entity",
					zap.String("instance_id", v.index.LevelEntityID),
					zap.Error(err))
			}
			v.levelEntity = doc
		}
	}
	return v.levelEntity, v.levelEntity != nil
}

// InvalidateTemplates drops the template cache. Call after the manifest's
// template list changes.
func (v *PackageView) InvalidateTemplates() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.templates = nil
}

// InvalidateInstances drops the instance and level-entity caches.
func (v *PackageView) InvalidateInstances() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.instances = nil
	v.levelEntity = nil
	v.levelLoaded = false
}

// InvalidateCombat drops one combat bucket's cache, or all buckets when
// bucket is empty.
func (v *PackageView) InvalidateCombat(bucket resource.CombatBucket) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if bucket == "" {
		v.combat = nil
		return
	}
	if v.combat != nil {
		delete(v.combat, bucket)
	}
}

// InvalidateManagement drops one management field's cache, or all fields
// when field is empty.
func (v *PackageView) InvalidateManagement(field resource.ManagementField) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if field == "" {
		v.management = nil
		return
	}
	if v.management != nil {
		delete(v.management, field)
	}
}

// InvalidateSignals drops the signals cache.
func (v *PackageView) InvalidateSignals() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.signals = nil
}

func (v *PackageView) InvalidateAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.templates = nil
	v.instances = nil
	v.combat = nil
	v.management = nil
	v.signals = nil
	v.levelEntity = nil
	v.levelLoaded = false
}
