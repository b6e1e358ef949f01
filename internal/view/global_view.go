package view

import (
	"sync"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// SyntheticResourceID returns the fixed resource ID a synthetic view uses
// for a single-config management field, e.g. "global_view_level_settings".
// Synthetic views have no manifest, so these IDs are the only join key.
func SyntheticResourceID(viewID string, field resource.ManagementField) string {
	return viewID + "_" + string(field)
}

// GlobalView presents the union of every resource in the library behind the
// same surface as a PackageView. It has no backing manifest: collections are
// computed from library enumeration and cached until invalidated.
type GlobalView struct {
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

var _ View = (*GlobalView)(nil)

// NewGlobalView creates the all-resources view.
func NewGlobalView(resources *resource.Manager, logger *zap.Logger) *GlobalView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GlobalView{resources: resources, logger: logger}
}

func (v *GlobalView) PackageID() string   { return pack.GlobalViewID }
func (v *GlobalView) DisplayName() string { return "All Resources" }

// resolveAll enumerates and loads every record of one type, skipping
// malformed files.
func (v *GlobalView) resolveAll(typ resource.Type) map[string]map[string]any {
	resolved := make(map[string]map[string]any)
	ids, err := v.resources.ListResources(typ)
	if err != nil {
		v.logger.Warn("failed to enumerate resources",
			zap.String("type", string(typ)),
			zap.Error(err))
		return resolved
	}
	for _, id := range ids {
		doc, err := v.resources.LoadResource(typ, id)
		if err != nil {
			v.logger.Warn("skipping unreadable resource",
				zap.String("type", string(typ)),
				zap.String("id", id),
				zap.Error(err))
			continue
		}
		if doc != nil {
			resolved[id] = doc
		}
	}
	return resolved
}

func (v *GlobalView) Templates() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.templates == nil {
		v.templates = v.resolveAll(resource.TypeTemplate)
	}
	return v.templates
}

func (v *GlobalView) Instances() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.instances == nil {
		v.instances = v.resolveAll(resource.TypeInstance)
	}
	return v.instances
}

func (v *GlobalView) Template(id string) (map[string]any, bool) {
	doc, ok := v.Templates()[id]
	return doc, ok
}

func (v *GlobalView) Instance(id string) (map[string]any, bool) {
	doc, ok := v.Instances()[id]
	return doc, ok
}

func (v *GlobalView) CombatPresets(bucket resource.CombatBucket) map[string]map[string]any {
	if !bucket.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.combat == nil {
		v.combat = make(map[resource.CombatBucket]map[string]map[string]any)
	}
	if v.combat[bucket] == nil {
		v.combat[bucket] = v.resolveAll(bucket.ResourceType())
	}
	return v.combat[bucket]
}

func (v *GlobalView) Management(field resource.ManagementField) map[string]map[string]any {
	if !field.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.management == nil {
		v.management = make(map[resource.ManagementField]map[string]map[string]any)
	}
	if v.management[field] == nil {
		if field.SingleConfig() {
			// Single-config fields expose only the view's own aggregate
			// config body, created on first save under the synthetic ID.
			resolved := make(map[string]map[string]any, 1)
			syntheticID := SyntheticResourceID(pack.GlobalViewID, field)
			doc, err := v.resources.LoadResource(field.ResourceType(), syntheticID)
			if err != nil {
				v.logger.Warn("skipping unreadable synthetic config",
					zap.String("id", syntheticID),
					zap.Error(err))
			}
			if doc != nil {
				resolved[syntheticID] = doc
			}
			v.management[field] = resolved
		} else {
			v.management[field] = v.resolveAll(field.ResourceType())
		}
	}
	return v.management[field]
}

// Signals aggregates the definitions of every signals management resource in
// the library.
func (v *GlobalView) Signals() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.signals != nil {
		return v.signals
	}
	v.signals = make(map[string]map[string]any)
	for _, doc := range v.resolveAll(resource.FieldSignals.ResourceType()) {
		defs, ok := doc["signals"].(map[string]any)
		if !ok {
			continue
		}
		for signalID, raw := range defs {
			if def, ok := raw.(map[string]any); ok {
				v.signals[signalID] = def
			}
		}
	}
	return v.signals
}

// LevelEntity scans the instance set for the record flagged as a level
// entity via metadata.is_level_entity. Editing it here edits the record
// itself; which package owns it is the manifest's business.
func (v *GlobalView) LevelEntity() (map[string]any, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.levelLoaded {
		v.levelLoaded = true
		if v.instances == nil {
			v.instances = v.resolveAll(resource.TypeInstance)
		}
		for _, doc := range v.instances {
			if metadataFlag(doc, "is_level_entity") {
				v.levelEntity = doc
				break
			}
		}
	}
	return v.levelEntity, v.levelEntity != nil
}

// PutTemplate writes a template straight to the library and drops the
// template cache. The global view has no manifest to update.
func (v *GlobalView) PutTemplate(id string, doc map[string]any) error {
	if err := v.resources.SaveResource(resource.TypeTemplate, id, doc); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.templates = nil
	return nil
}

// PutInstance writes an instance straight to the library and drops the
// instance cache.
func (v *GlobalView) PutInstance(id string, doc map[string]any) error {
	if err := v.resources.SaveResource(resource.TypeInstance, id, doc); err != nil {
		return err
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.instances = nil
	v.levelEntity = nil
	v.levelLoaded = false
	return nil
}

func (v *GlobalView) InvalidateAll() {
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
