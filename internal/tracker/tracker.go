// Package tracker answers "who references graph X" queries across every
// package, plus the reverse "which graphs embed composite Y" search.
package tracker

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// EntityKind identifies the kind of entity holding a graph reference.
type EntityKind string

const (
	EntityTemplate    EntityKind = "template"
	EntityInstance    EntityKind = "instance"
	EntityLevelEntity EntityKind = "level_entity"
)

// Graph-reference list fields per entity kind.
const (
	templateGraphsField = "default_graphs"
	instanceGraphsField = "additional_graphs"
)

// Reference is one occurrence of a graph ID inside an entity of a package.
// A graph referenced from two packages yields two references.
type Reference struct {
	EntityKind EntityKind
	EntityID   string
	EntityName string
	PackageID  string
}

// CompositeUsage describes one graph that embeds a composite node.
type CompositeUsage struct {
	GraphID   string
	GraphName string
	NodeIDs   []string
}

// ReferenceTracker maintains a reverse index from graph ID to the entities
// referencing it. The index is rebuilt lazily whenever the library
// fingerprint moves, so a burst of lookups during a list refresh costs one
// scan instead of one per graph.
type ReferenceTracker struct {
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger

	mu                sync.Mutex
	cacheFingerprint  string
	referencesByGraph map[string][]Reference
	compositeUsage    map[string][]CompositeUsage
}

// NewReferenceTracker creates a tracker over the library and package set.
func NewReferenceTracker(resources *resource.Manager, packages *pack.IndexManager, logger *zap.Logger) *ReferenceTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceTracker{
		resources:      resources,
		packages:       packages,
		logger:         logger,
		compositeUsage: make(map[string][]CompositeUsage),
	}
}

// InvalidateReferenceCache forces the next query to rescan. Call after any
// write that can change reference relationships (templates, instances,
// manifests).
func (t *ReferenceTracker) InvalidateReferenceCache() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cacheFingerprint = ""
	t.referencesByGraph = nil
}

// FindReferences returns every (entity, package) occurrence of the graph,
// with no deduplication across packages.
func (t *ReferenceTracker) FindReferences(graphID string) ([]Reference, error) {
	if graphID == "" {
		return nil, nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ensureCacheLocked(); err != nil {
		return nil, err
	}
	refs := t.referencesByGraph[graphID]
	out := make([]Reference, len(refs))
	copy(out, refs)
	return out, nil
}

// FindPackagesUsingGraph is the deduplicated package-ID projection of
// FindReferences.
func (t *ReferenceTracker) FindPackagesUsingGraph(graphID string) ([]string, error) {
	refs, err := t.FindReferences(graphID)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(refs))
	var packageIDs []string
	for _, ref := range refs {
		if _, ok := seen[ref.PackageID]; ok {
			continue
		}
		seen[ref.PackageID] = struct{}{}
		packageIDs = append(packageIDs, ref.PackageID)
	}
	sort.Strings(packageIDs)
	return packageIDs, nil
}

// ReferenceCount returns the number of occurrences of the graph.
func (t *ReferenceTracker) ReferenceCount(graphID string) (int, error) {
	refs, err := t.FindReferences(graphID)
	if err != nil {
		return 0, err
	}
	return len(refs), nil
}

// UpdateReference substitutes oldGraphID with newGraphID in one entity's
// graph-reference list and persists the entity. Reports whether anything
// changed. Used when a graph is renamed or reassigned an ID.
func (t *ReferenceTracker) UpdateReference(kind EntityKind, entityID, oldGraphID, newGraphID string) (bool, error) {
	var typ resource.Type
	var field string
	switch kind {
	case EntityTemplate:
		typ, field = resource.TypeTemplate, templateGraphsField
	case EntityInstance, EntityLevelEntity:
		typ, field = resource.TypeInstance, instanceGraphsField
	default:
		return false, fmt.Errorf("unknown entity kind %q", kind)
	}

	doc, err := t.resources.LoadResource(typ, entityID)
	if err != nil {
		return false, err
	}
	if doc == nil {
		return false, nil
	}

	graphs, ok := doc[field].([]any)
	if !ok {
		return false, nil
	}
	changed := false
	for i, raw := range graphs {
		if id, ok := raw.(string); ok && id == oldGraphID {
			graphs[i] = newGraphID
			changed = true
		}
	}
	if !changed {
		return false, nil
	}

	doc[field] = graphs
	if err := t.resources.SaveResource(typ, entityID, doc); err != nil {
		return false, err
	}
	t.InvalidateReferenceCache()
	return true, nil
}

// FindGraphsUsingComposite lists every graph embedding the named composite
// node, i.e. graphs containing nodes with category "composite/<name>".
// Results are cached per composite name until invalidated.
func (t *ReferenceTracker) FindGraphsUsingComposite(name string) ([]CompositeUsage, error) {
	if name == "" {
		return nil, nil
	}
	t.mu.Lock()
	if cached, ok := t.compositeUsage[name]; ok {
		t.mu.Unlock()
		return cached, nil
	}
	t.mu.Unlock()

	target := "composite/" + name
	graphIDs, err := t.resources.ListResources(resource.TypeGraph)
	if err != nil {
		return nil, err
	}

	var usages []CompositeUsage
	for _, graphID := range graphIDs {
		doc, err := t.resources.LoadResource(resource.TypeGraph, graphID)
		if err != nil {
			t.logger.Warn("skipping unreadable graph",
				zap.String("graph_id", graphID),
				zap.Error(err))
			continue
		}
		if doc == nil {
			continue
		}
		payload := doc
		if inner, ok := doc["data"].(map[string]any); ok {
			payload = inner
		}
		nodes, _ := payload["nodes"].([]any)
		var nodeIDs []string
		for _, raw := range nodes {
			node, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			category, _ := node["category"].(string)
			nodeID, _ := node["id"].(string)
			if category == target && nodeID != "" {
				nodeIDs = append(nodeIDs, nodeID)
			}
		}
		if len(nodeIDs) == 0 {
			continue
		}
		graphName, _ := doc["name"].(string)
		if graphName == "" {
			graphName = graphID
		}
		usages = append(usages, CompositeUsage{
			GraphID:   graphID,
			GraphName: graphName,
			NodeIDs:   nodeIDs,
		})
	}

	t.mu.Lock()
	t.compositeUsage[name] = usages
	t.mu.Unlock()
	return usages, nil
}

// ClearCompositeUsageCache drops the cache for one composite name, or the
// whole cache when name is empty.
func (t *ReferenceTracker) ClearCompositeUsageCache(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if name == "" {
		t.compositeUsage = make(map[string][]CompositeUsage)
		return
	}
	delete(t.compositeUsage, name)
}

// ensureCacheLocked rebuilds the reverse index when the library fingerprint
// moved since the last scan. Caller holds t.mu.
func (t *ReferenceTracker) ensureCacheLocked() error {
	libraryFP, err := t.resources.Fingerprint()
	if err != nil {
		return err
	}
	packagesFP, err := t.packages.Fingerprint()
	if err != nil {
		return err
	}
	fingerprint := libraryFP + ":" + packagesFP
	if t.referencesByGraph != nil && t.cacheFingerprint == fingerprint {
		return nil
	}

	byGraph := make(map[string][]Reference)
	infos, err := t.packages.ListPackages()
	if err != nil {
		return err
	}
	for _, info := range infos {
		idx, err := t.packages.LoadIndex(info.PackageID)
		if err != nil {
			t.logger.Warn("skipping unreadable manifest during reference scan",
				zap.String("package_id", info.PackageID),
				zap.Error(err))
			continue
		}
		if idx == nil {
			continue
		}

		for _, templateID := range idx.Resources.Templates {
			t.collectEntityRefs(byGraph, EntityTemplate, resource.TypeTemplate,
				templateID, templateGraphsField, idx.PackageID)
		}
		for _, instanceID := range idx.Resources.Instances {
			t.collectEntityRefs(byGraph, EntityInstance, resource.TypeInstance,
				instanceID, instanceGraphsField, idx.PackageID)
		}
		if idx.LevelEntityID != "" {
			t.collectEntityRefs(byGraph, EntityLevelEntity, resource.TypeInstance,
				idx.LevelEntityID, instanceGraphsField, idx.PackageID)
		}
	}

	t.referencesByGraph = byGraph
	t.cacheFingerprint = fingerprint
	return nil
}

func (t *ReferenceTracker) collectEntityRefs(
	byGraph map[string][]Reference,
	kind EntityKind,
	typ resource.Type,
	entityID, field, packageID string,
) {
	doc, err := t.resources.LoadResource(typ, entityID)
	if err != nil {
		t.logger.Warn("skipping unreadable entity during reference scan",
			zap.String("type", string(typ)),
			zap.String("id", entityID),
			zap.Error(err))
		return
	}
	if doc == nil {
		return
	}
	graphs, ok := doc[field].([]any)
	if !ok {
		return
	}
	name, _ := doc["name"].(string)
	for _, raw := range graphs {
		graphID, ok := raw.(string)
		if !ok || graphID == "" {
			continue
		}
		byGraph[graphID] = append(byGraph[graphID], Reference{
			EntityKind: kind,
			EntityID:   entityID,
			EntityName: name,
			PackageID:  packageID,
		})
	}
}
