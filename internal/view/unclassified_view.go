package view

import (
	"sync"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// UnclassifiedView presents the resources referenced by no package: the set
// difference between the library and the union of every manifest's
// membership lists. It holds no source of truth of its own.
//
// Membership union is O(resources x packages) to build, so it is memoized
// keyed by the package-list fingerprint (package_id + updated_at pairs) and
// rebuilt only when some manifest changed.
type UnclassifiedView struct {
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger

	mu                    sync.Mutex
	membershipFingerprint string
	membership            map[resource.Type]map[string]struct{}

	templates  map[string]map[string]any
	instances  map[string]map[string]any
	combat     map[resource.CombatBucket]map[string]map[string]any
	management map[resource.ManagementField]map[string]map[string]any
}

var _ View = (*UnclassifiedView)(nil)

// NewUnclassifiedView creates the unreferenced-resources view.
func NewUnclassifiedView(resources *resource.Manager, packages *pack.IndexManager, logger *zap.Logger) *UnclassifiedView {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnclassifiedView{
		resources: resources,
		packages:  packages,
		logger:    logger,
	}
}

func (v *UnclassifiedView) PackageID() string   { return pack.UnclassifiedViewID }
func (v *UnclassifiedView) DisplayName() string { return "Unclassified Resources" }

// ensureMembershipLocked rebuilds the per-type membership union when the
// package-list fingerprint moved. Caller holds v.mu.
func (v *UnclassifiedView) ensureMembershipLocked() map[resource.Type]map[string]struct{} {
	fingerprint, err := v.packages.Fingerprint()
	if err != nil {
		v.logger.Warn("failed to fingerprint package list", zap.Error(err))
		fingerprint = ""
	}
	if v.membership != nil && fingerprint != "" && fingerprint == v.membershipFingerprint {
		return v.membership
	}

	membership := make(map[resource.Type]map[string]struct{})
	infos, err := v.packages.ListPackages()
	if err != nil {
		v.logger.Warn("failed to list packages", zap.Error(err))
		infos = nil
	}
	for _, info := range infos {
		idx, err := v.packages.LoadIndex(info.PackageID)
		if err != nil || idx == nil {
			continue
		}
		for typ, ids := range idx.Resources.IDsByType() {
			set := membership[typ]
			if set == nil {
				set = make(map[string]struct{})
				membership[typ] = set
			}
			for _, id := range ids {
				set[id] = struct{}{}
			}
		}
		if idx.LevelEntityID != "" {
			set := membership[resource.TypeInstance]
			if set == nil {
				set = make(map[string]struct{})
				membership[resource.TypeInstance] = set
			}
			set[idx.LevelEntityID] = struct{}{}
		}
	}

	v.membership = membership
	v.membershipFingerprint = fingerprint
	// Membership moved, so every derived collection is stale.
	v.templates = nil
	v.instances = nil
	v.combat = nil
	v.management = nil
	return v.membership
}

// resolveUnclassifiedLocked loads every record of the type that no package
// references. Caller holds v.mu and has refreshed membership.
func (v *UnclassifiedView) resolveUnclassifiedLocked(typ resource.Type) map[string]map[string]any {
	membership := v.membership[typ]
	resolved := make(map[string]map[string]any)

	ids, err := v.resources.ListResources(typ)
	if err != nil {
		v.logger.Warn("failed to enumerate resources",
			zap.String("type", string(typ)),
			zap.Error(err))
		return resolved
	}
	for _, id := range ids {
		if _, referenced := membership[id]; referenced {
			continue
		}
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

func (v *UnclassifiedView) Templates() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureMembershipLocked()
	if v.templates == nil {
		v.templates = v.resolveUnclassifiedLocked(resource.TypeTemplate)
	}
	return v.templates
}

func (v *UnclassifiedView) Instances() map[string]map[string]any {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureMembershipLocked()
	if v.instances == nil {
		v.instances = v.resolveUnclassifiedLocked(resource.TypeInstance)
	}
	return v.instances
}

func (v *UnclassifiedView) Template(id string) (map[string]any, bool) {
	doc, ok := v.Templates()[id]
	return doc, ok
}

func (v *UnclassifiedView) Instance(id string) (map[string]any, bool) {
	doc, ok := v.Instances()[id]
	return doc, ok
}

func (v *UnclassifiedView) CombatPresets(bucket resource.CombatBucket) map[string]map[string]any {
	if !bucket.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureMembershipLocked()
	if v.combat == nil {
		v.combat = make(map[resource.CombatBucket]map[string]map[string]any)
	}
	if v.combat[bucket] == nil {
		v.combat[bucket] = v.resolveUnclassifiedLocked(bucket.ResourceType())
	}
	return v.combat[bucket]
}

func (v *UnclassifiedView) Management(field resource.ManagementField) map[string]map[string]any {
	if !field.Valid() {
		return map[string]map[string]any{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	v.ensureMembershipLocked()
	if v.management == nil {
		v.management = make(map[resource.ManagementField]map[string]map[string]any)
	}
	if v.management[field] == nil {
		v.management[field] = v.resolveUnclassifiedLocked(field.ResourceType())
	}
	return v.management[field]
}

// UnclassifiedIDs returns the ordered IDs of every record of one type that
// no package references, without loading payloads. Used by graph-library
// listings to show standalone graphs.
func (v *UnclassifiedView) UnclassifiedIDs(typ resource.Type) ([]string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	membership := v.ensureMembershipLocked()[typ]

	ids, err := v.resources.ListResources(typ)
	if err != nil {
		return nil, err
	}
	unclassified := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, referenced := membership[id]; !referenced {
			unclassified = append(unclassified, id)
		}
	}
	return unclassified, nil
}

// Signals returns an empty map: signal definitions are package-scoped, so
// there is no meaningful "unclassified" signal set. An unreferenced signals
// resource still shows up under Management(FieldSignals).
func (v *UnclassifiedView) Signals() map[string]map[string]any {
	return map[string]map[string]any{}
}

// LevelEntity always reports absent: a level entity is by definition bound
// to a package.
func (v *UnclassifiedView) LevelEntity() (map[string]any, bool) {
	return nil, false
}

func (v *UnclassifiedView) InvalidateAll() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.membership = nil
	v.membershipFingerprint = ""
	v.templates = nil
	v.instances = nil
	v.combat = nil
	v.management = nil
}
