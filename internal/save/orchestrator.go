package save

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
	"github.com/packsmith-editor/packsmith/internal/view"
)

// Request describes one save operation. Index is nil when the active context
// is a synthetic Global or Unclassified view; those have no manifest, so
// writes land under fixed synthetic resource IDs and no manifest write
// occurs.
type Request struct {
	View      view.View
	Index     *pack.Index
	Snapshot  Snapshot
	ForceFull bool

	// SaveGraph persists the currently open graph. Supplied per request by
	// the editing layer, which owns the graph document; invoked when the
	// graph flag is set or the save is forced. Without it a graph-only edit
	// cannot be persisted and its flag stays dirty.
	SaveGraph func() error
}

// Orchestrator walks a dirty snapshot and persists exactly the affected
// sub-regions through the resource manager, then syncs the manifest and
// refreshes the library fingerprint. One bad resource never aborts the save:
// it is logged and skipped, and the rest of the snapshot proceeds.
type Orchestrator struct {
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger

	// flushPanel is consulted before container writes so the save sees the
	// latest in-memory edits. Supplied by the editing layer; may be nil.
	flushPanel func() error
}

// NewOrchestrator creates a save orchestrator. flushPanel and logger may be
// nil.
func NewOrchestrator(resources *resource.Manager, packages *pack.IndexManager, flushPanel func() error, logger *zap.Logger) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		resources:  resources,
		packages:   packages,
		logger:     logger,
		flushPanel: flushPanel,
	}
}

// Save runs the save algorithm against the request's snapshot. It reports
// whether any write occurred; callers observing false must not clear their
// dirty flags.
func (o *Orchestrator) Save(req Request) (bool, error) {
	if req.View == nil {
		return false, fmt.Errorf("save requested with no active view")
	}

	// Absorb externally-applied library changes before writing. The contract
	// is resync-then-write, never diff-merge.
	if err := o.resources.RefreshFingerprint(); err != nil {
		return false, fmt.Errorf("failed to resync library fingerprint: %w", err)
	}

	if !req.ForceFull && req.Snapshot.IsEmpty() {
		return false, nil
	}

	if o.flushPanel != nil && (req.ForceFull || req.Snapshot.needsPanelFlush()) {
		if err := o.flushPanel(); err != nil {
			return false, fmt.Errorf("failed to flush pending edits: %w", err)
		}
	}

	var wrote bool
	if req.SaveGraph != nil && (req.Snapshot.Graph || req.ForceFull) {
		if err := req.SaveGraph(); err != nil {
			return false, fmt.Errorf("failed to persist open graph: %w", err)
		}
		wrote = true
	}

	var branchWrote bool
	var err error
	if req.Index != nil {
		branchWrote, err = o.savePackage(req)
	} else {
		branchWrote, err = o.saveSyntheticView(req)
	}
	wrote = wrote || branchWrote
	if err != nil {
		return wrote, err
	}

	if wrote {
		if err := o.resources.RefreshFingerprint(); err != nil {
			return wrote, fmt.Errorf("failed to refresh library fingerprint: %w", err)
		}
	}
	return wrote, nil
}

// savePackage persists the dirty sub-regions of a real package and syncs the
// manifest when anything index-relevant changed.
func (o *Orchestrator) savePackage(req Request) (bool, error) {
	idx := req.Index
	snap := req.Snapshot
	wrote := false
	indexChanged := false

	wrote = o.saveContainers(req) || wrote

	if snap.Combat || req.ForceFull {
		combatWrote, combatChanged := o.syncCombatPresets(req.View, idx)
		wrote = wrote || combatWrote
		indexChanged = indexChanged || combatChanged
	}

	if len(snap.Management) > 0 || snap.ManagementResyncAll || req.ForceFull {
		managementWrote, managementChanged := o.syncManagement(req.View, idx, o.managementFields(req))
		wrote = wrote || managementWrote
		indexChanged = indexChanged || managementChanged
	}

	if snap.Signals || req.ForceFull {
		signalsWrote, signalsChanged := o.syncSignals(req.View, idx)
		wrote = wrote || signalsWrote
		indexChanged = indexChanged || signalsChanged
	}

	if indexChanged || snap.Index || req.ForceFull {
		if err := o.packages.SaveIndex(idx); err != nil {
			return wrote, fmt.Errorf("failed to persist manifest %s: %w", idx.PackageID, err)
		}
		wrote = true
	}
	return wrote, nil
}

// saveSyntheticView persists the dirty sub-regions of a Global or
// Unclassified view. Writes land under the view's fixed resource IDs; there
// is no manifest to update.
func (o *Orchestrator) saveSyntheticView(req Request) (bool, error) {
	snap := req.Snapshot
	wrote := o.saveContainers(req)

	if snap.Combat || req.ForceFull {
		for _, bucket := range resource.CombatBuckets {
			for id, doc := range req.View.CombatPresets(bucket) {
				wrote = o.writeCombatPreset(bucket, id, doc) || wrote
			}
		}
	}

	if len(snap.Management) > 0 || snap.ManagementResyncAll || req.ForceFull {
		for _, field := range o.managementFields(req) {
			for id, doc := range req.View.Management(field) {
				wrote = o.writeResource(field.ResourceType(), id, doc) || wrote
			}
		}
	}

	if snap.Signals || req.ForceFull {
		defs := req.View.Signals()
		if len(defs) > 0 {
			doc := map[string]any{"signals": signalDocs(defs)}
			id := view.SignalsResourceID(req.View.PackageID())
			wrote = o.writeResource(resource.FieldSignals.ResourceType(), id, doc) || wrote
		}
	}
	return wrote, nil
}

// saveContainers persists the dirty template and instance records, or every
// record the view resolves when forcing a full save. Shared by the package
// and synthetic branches: both pull documents from the view and write them to
// the library.
func (o *Orchestrator) saveContainers(req Request) bool {
	snap := req.Snapshot
	wrote := false

	if req.ForceFull {
		for id, doc := range req.View.Templates() {
			wrote = o.writeResource(resource.TypeTemplate, id, doc) || wrote
		}
		for id, doc := range req.View.Instances() {
			wrote = o.writeResource(resource.TypeInstance, id, doc) || wrote
		}
		wrote = o.saveLevelEntity(req) || wrote
		return wrote
	}

	for id := range snap.TemplateIDs {
		doc, ok := req.View.Template(id)
		if !ok {
			o.logger.Warn("dirty template not resolvable, skipping",
				zap.String("id", id))
			continue
		}
		wrote = o.writeResource(resource.TypeTemplate, id, doc) || wrote
	}
	for id := range snap.InstanceIDs {
		doc, ok := req.View.Instance(id)
		if !ok {
			o.logger.Warn("dirty instance not resolvable, skipping",
				zap.String("id", id))
			continue
		}
		wrote = o.writeResource(resource.TypeInstance, id, doc) || wrote
	}

	if snap.LevelEntity {
		wrote = o.saveLevelEntity(req) || wrote
	}
	return wrote
}

// saveLevelEntity persists the view's level entity. A real package names the
// record via its manifest; a synthetic view falls back to the document's own
// id field.
func (o *Orchestrator) saveLevelEntity(req Request) bool {
	doc, ok := req.View.LevelEntity()
	if !ok {
		return false
	}
	id := ""
	if req.Index != nil {
		id = req.Index.LevelEntityID
	} else if raw, ok := doc["id"].(string); ok {
		id = raw
	}
	if id == "" {
		return false
	}
	return o.writeResource(resource.TypeInstance, id, doc)
}

// syncCombatPresets writes every preset the view resolves and reconciles the
// manifest's bucket lists with the written IDs.
func (o *Orchestrator) syncCombatPresets(v view.View, idx *pack.Index) (wrote, indexChanged bool) {
	for _, bucket := range resource.CombatBuckets {
		docs := v.CombatPresets(bucket)
		written := make(map[string]struct{}, len(docs))
		for id, doc := range docs {
			if o.writeCombatPreset(bucket, id, doc) {
				wrote = true
			}
			written[id] = struct{}{}
		}

		for _, id := range append([]string(nil), idx.Resources.CombatPresets[bucket]...) {
			if _, ok := written[id]; !ok {
				indexChanged = idx.RemoveCombatPreset(bucket, id) || indexChanged
			}
		}
		for _, id := range sortedKeys(written) {
			indexChanged = idx.AddCombatPreset(bucket, id) || indexChanged
		}
	}
	return wrote, indexChanged
}

// syncManagement writes the records of each given field and reconciles the
// manifest's management lists.
func (o *Orchestrator) syncManagement(v view.View, idx *pack.Index, fields []resource.ManagementField) (wrote, indexChanged bool) {
	for _, field := range fields {
		docs := v.Management(field)
		written := make(map[string]struct{}, len(docs))
		for id, doc := range docs {
			if o.writeResource(field.ResourceType(), id, doc) {
				wrote = true
			}
			written[id] = struct{}{}
		}

		for _, id := range append([]string(nil), idx.Resources.Management[field]...) {
			if _, ok := written[id]; !ok {
				indexChanged = idx.RemoveManagementResource(field, id) || indexChanged
			}
		}
		for _, id := range sortedKeys(written) {
			indexChanged = idx.AddManagementResource(field, id) || indexChanged
		}
	}
	return wrote, indexChanged
}

// syncSignals persists the package's full signal definitions to its signals
// management resource and reduces the manifest to ID placeholders.
func (o *Orchestrator) syncSignals(v view.View, idx *pack.Index) (wrote, indexChanged bool) {
	defs := v.Signals()
	doc := map[string]any{"signals": signalDocs(defs)}
	id := view.SignalsResourceID(idx.PackageID)
	wrote = o.writeResource(resource.FieldSignals.ResourceType(), id, doc)
	indexChanged = idx.SetSignals(defs)
	return wrote, indexChanged
}

// writeCombatPreset normalizes the bucket-specific ID field before writing so
// the record always agrees with its filename.
func (o *Orchestrator) writeCombatPreset(bucket resource.CombatBucket, id string, doc map[string]any) bool {
	doc[bucket.IDField()] = id
	return o.writeResource(bucket.ResourceType(), id, doc)
}

// writeResource persists one record, logging and absorbing the failure so one
// bad payload never aborts the rest of the save.
func (o *Orchestrator) writeResource(typ resource.Type, id string, doc map[string]any) bool {
	if err := o.resources.SaveResource(typ, id, doc); err != nil {
		o.logger.Warn("failed to persist resource, skipping",
			zap.String("type", string(typ)),
			zap.String("id", id),
			zap.Error(err))
		return false
	}
	return true
}

// managementFields resolves which management fields the save touches: the
// snapshotted subset, or all of them on a full resync or forced save.
func (o *Orchestrator) managementFields(req Request) []resource.ManagementField {
	if req.ForceFull || req.Snapshot.ManagementResyncAll {
		return resource.ManagementFields
	}
	fields := make([]resource.ManagementField, 0, len(req.Snapshot.Management))
	for _, field := range resource.ManagementFields {
		if _, ok := req.Snapshot.Management[field]; ok {
			fields = append(fields, field)
		}
	}
	return fields
}

func signalDocs(defs map[string]map[string]any) map[string]any {
	out := make(map[string]any, len(defs))
	for signalID, def := range defs {
		out[signalID] = def
	}
	return out
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
