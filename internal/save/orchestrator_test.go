package save

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
	"github.com/packsmith-editor/packsmith/internal/view"
)

type fixture struct {
	resources *resource.Manager
	packages  *pack.IndexManager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	root := t.TempDir()
	return &fixture{
		resources: resource.NewManager(filepath.Join(root, "library"), nil),
		packages:  pack.NewIndexManager(filepath.Join(root, "packages"), nil),
	}
}

func (f *fixture) orchestrator(flush func() error) *Orchestrator {
	return NewOrchestrator(f.resources, f.packages, flush, nil)
}

func (f *fixture) save(t *testing.T, doc map[string]any, typ resource.Type, id string) {
	t.Helper()
	require.NoError(t, f.resources.SaveResource(typ, id, doc))
}

func (f *fixture) packageView(t *testing.T, name string) (*view.PackageView, *pack.Index) {
	t.Helper()
	idx, err := f.packages.CreatePackage(name)
	require.NoError(t, err)
	return view.NewPackageView(idx, f.resources, nil), idx
}

func (f *fixture) readBack(t *testing.T, typ resource.Type, id string) map[string]any {
	t.Helper()
	doc, err := resource.NewManager(f.resources.Store().Root(), nil).LoadResource(typ, id)
	require.NoError(t, err)
	return doc
}

func TestSave_NoOpOnEmptySnapshot(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")

	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx})
	require.NoError(t, err)
	assert.False(t, wrote)
}

func TestSave_DirtyTemplatePersistsInMemoryEdit(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Guard", "hp": float64(10)}, resource.TypeTemplate, "t1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t1")

	doc, ok := v.Template("t1")
	require.True(t, ok)
	doc["hp"] = float64(99)

	snap := Snapshot{TemplateIDs: map[string]struct{}{"t1": {}}}
	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx, Snapshot: snap})
	require.NoError(t, err)
	assert.True(t, wrote)

	persisted := f.readBack(t, resource.TypeTemplate, "t1")
	assert.Equal(t, float64(99), persisted["hp"])
}

func TestSave_PanelFlushRunsForContainerEdits(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")

	flushed := false
	orch := f.orchestrator(func() error {
		flushed = true
		return nil
	})

	_, err := orch.Save(Request{View: v, Index: idx, Snapshot: Snapshot{Graph: true}})
	require.NoError(t, err)
	assert.True(t, flushed)

	flushed = false
	_, err = orch.Save(Request{View: v, Index: idx, Snapshot: Snapshot{Combat: true}})
	require.NoError(t, err)
	assert.False(t, flushed, "combat-only edits never touch the panel buffer")
}

func TestSave_GraphOnlyEditPersistsViaHook(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")

	state := NewDirtyState()
	state.MarkGraph()
	snap := state.Snapshot()

	wrote, err := f.orchestrator(nil).Save(Request{
		View:     v,
		Index:    idx,
		Snapshot: snap,
		SaveGraph: func() error {
			return f.resources.SaveResource(resource.TypeGraph, "g1", map[string]any{"nodes": []any{}})
		},
	})
	require.NoError(t, err)
	assert.True(t, wrote, "a graph-only edit must count as a write")

	persisted := f.readBack(t, resource.TypeGraph, "g1")
	assert.NotNil(t, persisted)

	// The write lets the caller consume the flag, so the package goes clean.
	state.Consume(snap)
	assert.True(t, state.IsClean())
}

func TestSave_GraphHookFailureAbortsSave(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")

	wrote, err := f.orchestrator(nil).Save(Request{
		View:     v,
		Index:    idx,
		Snapshot: Snapshot{Graph: true},
		SaveGraph: func() error {
			return assert.AnError
		},
	})
	assert.Error(t, err)
	assert.False(t, wrote)
}

func TestSave_IndexFlagPersistsManifest(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")
	idx.Name = "Renamed"

	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx, Snapshot: Snapshot{Index: true}})
	require.NoError(t, err)
	assert.True(t, wrote)

	loaded, err := f.packages.LoadIndex(idx.PackageID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", loaded.Name)
}

func TestSave_CombatSyncReconcilesDanglingIndexEntry(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Fireball"}, resource.BucketSkills.ResourceType(), "sk1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddCombatPreset(resource.BucketSkills, "sk1")
	idx.AddCombatPreset(resource.BucketSkills, "sk-gone")

	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx, Snapshot: Snapshot{Combat: true}})
	require.NoError(t, err)
	assert.True(t, wrote)

	loaded, err := f.packages.LoadIndex(idx.PackageID)
	require.NoError(t, err)
	assert.Equal(t, []string{"sk1"}, loaded.Resources.CombatPresets[resource.BucketSkills])

	// The write normalizes the bucket's ID field.
	persisted := f.readBack(t, resource.BucketSkills.ResourceType(), "sk1")
	assert.Equal(t, "sk1", persisted["skill_id"])
}

func TestSave_SignalsSyncWritesResourceAndPlaceholders(t *testing.T) {
	f := newFixture(t)
	v, idx := f.packageView(t, "Alpha")
	idx.Signals["on_boss_death"] = map[string]any{"args": []any{"boss_id"}}

	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx, Snapshot: Snapshot{Signals: true, Index: true}})
	require.NoError(t, err)
	assert.True(t, wrote)

	persisted := f.readBack(t, resource.FieldSignals.ResourceType(), view.SignalsResourceID(idx.PackageID))
	defs, ok := persisted["signals"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, defs, "on_boss_death")

	// Manifest keeps only the ID placeholder.
	data, err := os.ReadFile(filepath.Join(f.packages.Dir(), idx.PackageID+".json"))
	require.NoError(t, err)
	loaded, err := pack.Decode(data)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{}, loaded.Signals["on_boss_death"])
}

func TestSave_PartialFailureIsolation(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Good"}, resource.TypeTemplate, "t-good")
	f.save(t, map[string]any{"name": "Bad"}, resource.TypeTemplate, "t-bad")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t-good")
	idx.AddTemplate("t-bad")

	good, ok := v.Template("t-good")
	require.True(t, ok)
	good["hp"] = float64(7)
	bad, ok := v.Template("t-bad")
	require.True(t, ok)
	bad["broken"] = make(chan int) // unserializable

	snap := Snapshot{TemplateIDs: map[string]struct{}{"t-good": {}, "t-bad": {}}}
	wrote, err := f.orchestrator(nil).Save(Request{View: v, Index: idx, Snapshot: snap})
	require.NoError(t, err, "one bad payload must not abort the save")
	assert.True(t, wrote)

	persisted := f.readBack(t, resource.TypeTemplate, "t-good")
	assert.Equal(t, float64(7), persisted["hp"])
}

func TestSave_ForceFullThenIncrementalEquivalence(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Guard", "hp": float64(10)}, resource.TypeTemplate, "t1")
	f.save(t, map[string]any{"name": "Guard #1"}, resource.TypeInstance, "i1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t1")
	idx.AddInstance("i1")

	doc, ok := v.Template("t1")
	require.True(t, ok)
	doc["hp"] = float64(42)

	orch := f.orchestrator(nil)
	snap := Snapshot{TemplateIDs: map[string]struct{}{"t1": {}}}
	_, err := orch.Save(Request{View: v, Index: idx, Snapshot: snap})
	require.NoError(t, err)

	afterIncremental, err := os.ReadFile(f.resources.Store().Path(resource.TypeTemplate, "t1"))
	require.NoError(t, err)

	// A full save right after must leave identical persisted state.
	_, err = orch.Save(Request{View: v, Index: idx, ForceFull: true})
	require.NoError(t, err)

	afterFull, err := os.ReadFile(f.resources.Store().Path(resource.TypeTemplate, "t1"))
	require.NoError(t, err)
	assert.Equal(t, afterIncremental, afterFull)
}

func TestSave_SyntheticViewWritesNoManifest(t *testing.T) {
	f := newFixture(t)
	syntheticID := view.SyntheticResourceID(pack.GlobalViewID, resource.FieldLevelSettings)
	f.save(t, map[string]any{"gravity": float64(9)}, resource.FieldLevelSettings.ResourceType(), syntheticID)

	v := view.NewGlobalView(f.resources, nil)
	doc := v.Management(resource.FieldLevelSettings)[syntheticID]
	require.NotNil(t, doc)
	doc["gravity"] = float64(12)

	snap := Snapshot{Management: map[resource.ManagementField]struct{}{resource.FieldLevelSettings: {}}}
	wrote, err := f.orchestrator(nil).Save(Request{View: v, Snapshot: snap})
	require.NoError(t, err)
	assert.True(t, wrote)

	persisted := f.readBack(t, resource.FieldLevelSettings.ResourceType(), syntheticID)
	assert.Equal(t, float64(12), persisted["gravity"])

	infos, err := f.packages.ListPackages()
	require.NoError(t, err)
	assert.Empty(t, infos, "synthetic saves never create manifests")
}

func TestSave_RequiresView(t *testing.T) {
	f := newFixture(t)
	_, err := f.orchestrator(nil).Save(Request{})
	assert.Error(t, err)
}

func TestScheduler_CoalescesBurstIntoOneSave(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Guard", "hp": float64(1)}, resource.TypeTemplate, "t1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t1")
	doc, ok := v.Template("t1")
	require.True(t, ok)
	doc["hp"] = float64(5)

	state := NewDirtyState()
	sched := NewScheduler(f.orchestrator(nil), state, 20*time.Millisecond, func() Request {
		return Request{View: v, Index: idx}
	}, nil)
	defer sched.Stop()

	results := make(chan bool, 4)
	sched.SetOnResult(func(wrote bool, err error) {
		require.NoError(t, err)
		results <- wrote
	})

	for i := 0; i < 3; i++ {
		state.MarkTemplate("t1")
		sched.Schedule(false)
	}

	select {
	case wrote := <-results:
		assert.True(t, wrote)
	case <-time.After(2 * time.Second):
		t.Fatal("debounced save never fired")
	}

	assert.True(t, state.IsClean(), "flags consumed after a successful write")
	persisted := f.readBack(t, resource.TypeTemplate, "t1")
	assert.Equal(t, float64(5), persisted["hp"])

	select {
	case <-results:
		t.Fatal("burst produced more than one save")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestScheduler_FlushSavesImmediately(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Guard"}, resource.TypeTemplate, "t1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t1")

	state := NewDirtyState()
	state.MarkTemplate("t1")

	sched := NewScheduler(f.orchestrator(nil), state, time.Hour, func() Request {
		return Request{View: v, Index: idx}
	}, nil)
	defer sched.Stop()
	sched.Schedule(false)

	wrote, err := sched.Flush()
	require.NoError(t, err)
	assert.True(t, wrote)
	assert.True(t, state.IsClean())
}

func TestScheduler_FlushNotifiesResultListener(t *testing.T) {
	f := newFixture(t)
	f.save(t, map[string]any{"name": "Guard"}, resource.TypeTemplate, "t1")

	v, idx := f.packageView(t, "Alpha")
	idx.AddTemplate("t1")

	state := NewDirtyState()
	state.MarkTemplate("t1")

	sched := NewScheduler(f.orchestrator(nil), state, time.Hour, func() Request {
		return Request{View: v, Index: idx}
	}, nil)
	defer sched.Stop()

	var gotWrote bool
	var gotErr error
	notified := false
	sched.SetOnResult(func(wrote bool, err error) {
		notified = true
		gotWrote = wrote
		gotErr = err
	})

	_, err := sched.Flush()
	require.NoError(t, err)
	assert.True(t, notified, "an explicit flush must reach the listener too")
	assert.True(t, gotWrote)
	assert.NoError(t, gotErr)
}
