// Package save accumulates fine-grained dirty flags for the open package
// context and persists exactly the affected sub-regions on save. The
// orchestrator snapshots the flags, writes through the resource manager and
// index manager, and clears only the snapshotted subset so edits made during
// a save are never lost.
package save

import (
	"sync"

	"github.com/packsmith-editor/packsmith/internal/resource"
)

// Snapshot is an immutable copy of the dirty flags taken at the start of a
// save. New edits accumulate in the live DirtyState while the save runs
// against the snapshot.
type Snapshot struct {
	Graph       bool
	TemplateIDs map[string]struct{}
	InstanceIDs map[string]struct{}
	LevelEntity bool
	Combat      bool

	Management          map[resource.ManagementField]struct{}
	ManagementResyncAll bool

	Signals bool
	Index   bool
}

// IsEmpty reports whether no flag is set.
func (s Snapshot) IsEmpty() bool {
	return !s.Graph &&
		len(s.TemplateIDs) == 0 &&
		len(s.InstanceIDs) == 0 &&
		!s.LevelEntity &&
		!s.Combat &&
		len(s.Management) == 0 &&
		!s.ManagementResyncAll &&
		!s.Signals &&
		!s.Index
}

// needsPanelFlush reports whether the save must flush the edit panel first:
// any in-memory edit to the graph or an entity container could otherwise be
// persisted stale.
func (s Snapshot) needsPanelFlush() bool {
	return s.Graph || len(s.TemplateIDs) > 0 || len(s.InstanceIDs) > 0
}

// DirtyState tracks which sub-regions of the open package have been edited
// since the last save. The editing layer marks regions as it mutates them;
// the orchestrator consumes a snapshot per save.
type DirtyState struct {
	mu   sync.Mutex
	snap Snapshot
}

// NewDirtyState returns a clean state.
func NewDirtyState() *DirtyState {
	return &DirtyState{}
}

// MarkGraph flags the open graph as edited.
func (d *DirtyState) MarkGraph() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.Graph = true
}

// MarkTemplate flags one template as edited.
func (d *DirtyState) MarkTemplate(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snap.TemplateIDs == nil {
		d.snap.TemplateIDs = make(map[string]struct{})
	}
	d.snap.TemplateIDs[id] = struct{}{}
}

// MarkInstance flags one instance as edited.
func (d *DirtyState) MarkInstance(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snap.InstanceIDs == nil {
		d.snap.InstanceIDs = make(map[string]struct{})
	}
	d.snap.InstanceIDs[id] = struct{}{}
}

// MarkLevelEntity flags the package's level entity as edited.
func (d *DirtyState) MarkLevelEntity() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.LevelEntity = true
}

// MarkCombat flags the combat-preset buckets as edited.
func (d *DirtyState) MarkCombat() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.Combat = true
}

// MarkManagement flags one management field as edited.
func (d *DirtyState) MarkManagement(field resource.ManagementField) {
	if !field.Valid() {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.snap.Management == nil {
		d.snap.Management = make(map[resource.ManagementField]struct{})
	}
	d.snap.Management[field] = struct{}{}
}

// MarkManagementResyncAll requests a full management resync on the next save,
// regardless of which individual fields were marked.
func (d *DirtyState) MarkManagementResyncAll() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.ManagementResyncAll = true
}

// MarkSignals flags the signal set as edited.
func (d *DirtyState) MarkSignals() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.Signals = true
}

// MarkIndex flags manifest metadata (name, description, membership) as edited.
func (d *DirtyState) MarkIndex() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap.Index = true
}

// IsClean reports whether no region is flagged.
func (d *DirtyState) IsClean() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snap.IsEmpty()
}

// Snapshot returns a copy of the current flags. The live state keeps
// accumulating independently of the copy.
func (d *DirtyState) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()
	copied := d.snap
	copied.TemplateIDs = copySet(d.snap.TemplateIDs)
	copied.InstanceIDs = copySet(d.snap.InstanceIDs)
	if d.snap.Management != nil {
		copied.Management = make(map[resource.ManagementField]struct{}, len(d.snap.Management))
		for field := range d.snap.Management {
			copied.Management[field] = struct{}{}
		}
	}
	return copied
}

// Consume clears exactly the flags captured in the snapshot. Flags raised
// after the snapshot was taken survive, so edits made during a save are
// picked up by the next one.
func (d *DirtyState) Consume(snap Snapshot) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if snap.Graph {
		d.snap.Graph = false
	}
	for id := range snap.TemplateIDs {
		delete(d.snap.TemplateIDs, id)
	}
	for id := range snap.InstanceIDs {
		delete(d.snap.InstanceIDs, id)
	}
	if snap.LevelEntity {
		d.snap.LevelEntity = false
	}
	if snap.Combat {
		d.snap.Combat = false
	}
	for field := range snap.Management {
		delete(d.snap.Management, field)
	}
	if snap.ManagementResyncAll {
		d.snap.ManagementResyncAll = false
	}
	if snap.Signals {
		d.snap.Signals = false
	}
	if snap.Index {
		d.snap.Index = false
	}
}

// Clear wipes every flag. Called when a different package is opened.
func (d *DirtyState) Clear() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.snap = Snapshot{}
}

func copySet(set map[string]struct{}) map[string]struct{} {
	if set == nil {
		return nil
	}
	copied := make(map[string]struct{}, len(set))
	for id := range set {
		copied[id] = struct{}{}
	}
	return copied
}
