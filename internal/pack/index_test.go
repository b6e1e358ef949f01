package pack

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsmith-editor/packsmith/internal/resource"
)

func TestIndex_AddIsIdempotent(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")

	assert.True(t, idx.AddTemplate("tpl-1"))
	assert.False(t, idx.AddTemplate("tpl-1"))
	assert.Equal(t, []string{"tpl-1"}, idx.Resources.Templates)

	assert.True(t, idx.AddCombatPreset(resource.BucketSkills, "skill-1"))
	assert.False(t, idx.AddCombatPreset(resource.BucketSkills, "skill-1"))
	assert.Equal(t, []string{"skill-1"}, idx.Resources.CombatPresets[resource.BucketSkills])
}

func TestIndex_RemoveIsIdempotent(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")
	idx.AddGraph("g1")

	assert.True(t, idx.RemoveGraph("g1"))
	assert.False(t, idx.RemoveGraph("g1"))
	assert.Empty(t, idx.Resources.Graphs)

	assert.False(t, idx.RemoveManagementResource(resource.FieldTimers, "never-added"))
}

func TestIndex_MutationBumpsUpdatedAt(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")
	idx.UpdatedAt = "2020-01-01T00:00:00Z"

	idx.AddInstance("inst-1")
	assert.NotEqual(t, "2020-01-01T00:00:00Z", idx.UpdatedAt)

	// A no-op edit must not bump the timestamp.
	idx.UpdatedAt = "2020-01-01T00:00:00Z"
	idx.AddInstance("inst-1")
	assert.Equal(t, "2020-01-01T00:00:00Z", idx.UpdatedAt)
}

func TestIndex_UnknownBucketRejected(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")

	assert.False(t, idx.AddCombatPreset(resource.CombatBucket("pets"), "x"))
	assert.False(t, idx.AddManagementResource(resource.ManagementField("nope"), "x"))
}

func TestIndex_MarshalEmitsSignalPlaceholders(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")
	idx.Signals["sig-1"] = map[string]any{
		"signal_name": "door_opened",
		"parameters":  []any{map[string]any{"name": "door_id"}},
	}

	data, err := idx.Marshal()
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	signals, ok := raw["signals"].(map[string]any)
	require.True(t, ok)
	placeholder, ok := signals["sig-1"].(map[string]any)
	require.True(t, ok)
	assert.Empty(t, placeholder, "manifest must carry signal IDs only, never definitions")
}

func TestDecode_DefaultsMissingCategories(t *testing.T) {
	// An older manifest without composites, combat buckets, or management.
	legacy := `{
		"package_id": "pkg-legacy",
		"name": "Legacy",
		"resources": {"templates": ["tpl-1"], "graphs": ["g1"]},
		"created_at": "2021-05-01T10:00:00Z",
		"updated_at": "2021-05-02T10:00:00Z"
	}`

	idx, err := Decode([]byte(legacy))
	require.NoError(t, err)

	assert.Equal(t, []string{"tpl-1"}, idx.Resources.Templates)
	assert.NotNil(t, idx.Resources.Composites)
	for _, bucket := range resource.CombatBuckets {
		assert.NotNil(t, idx.Resources.CombatPresets[bucket])
	}
	for _, field := range resource.ManagementFields {
		assert.NotNil(t, idx.Resources.Management[field])
	}
	assert.NotNil(t, idx.Signals)
}

func TestDecode_RejectsMissingPackageID(t *testing.T) {
	_, err := Decode([]byte(`{"name": "anonymous"}`))
	assert.Error(t, err)
}

func TestDecode_RoundTrip(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")
	idx.Description = "test package"
	idx.AddTemplate("tpl-1")
	idx.AddInstance("inst-1")
	idx.AddManagementResource(resource.FieldTimers, "timer-1")
	idx.SetLevelEntity("inst-1")

	data, err := idx.Marshal()
	require.NoError(t, err)

	decoded, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, idx.PackageID, decoded.PackageID)
	assert.Equal(t, idx.Resources.Templates, decoded.Resources.Templates)
	assert.Equal(t, idx.Resources.Management[resource.FieldTimers],
		decoded.Resources.Management[resource.FieldTimers])
	assert.Equal(t, "inst-1", decoded.LevelEntityID)
}

func TestResources_IDsByType(t *testing.T) {
	r := NewResources()
	r.Templates = []string{"tpl-1"}
	r.CombatPresets[resource.BucketItems] = []string{"item-1"}
	r.Management[resource.FieldPaths] = []string{"path-1"}

	byType := r.IDsByType()
	assert.Equal(t, []string{"tpl-1"}, byType[resource.TypeTemplate])
	assert.Equal(t, []string{"item-1"}, byType[resource.TypeItem])
	assert.Equal(t, []string{"path-1"}, byType[resource.FieldPaths.ResourceType()])
}

func TestCategory_Dispatch(t *testing.T) {
	idx := NewIndex("pkg-1", "Alpha")

	tests := []struct {
		category Category
		id       string
		check    func() []string
	}{
		{Templates(), "tpl-1", func() []string { return idx.Resources.Templates }},
		{Instances(), "inst-1", func() []string { return idx.Resources.Instances }},
		{Graphs(), "g1", func() []string { return idx.Resources.Graphs }},
		{Composites(), "comp-1", func() []string { return idx.Resources.Composites }},
		{Combat(resource.BucketProjectiles), "proj-1",
			func() []string { return idx.Resources.CombatPresets[resource.BucketProjectiles] }},
		{Management(resource.FieldShields), "shield-1",
			func() []string { return idx.Resources.Management[resource.FieldShields] }},
	}

	for _, tt := range tests {
		t.Run(tt.category.String(), func(t *testing.T) {
			assert.True(t, tt.category.Add(idx, tt.id))
			assert.Equal(t, []string{tt.id}, tt.check())
			assert.True(t, tt.category.Remove(idx, tt.id))
			assert.Empty(t, tt.check())
		})
	}
}

func TestCategory_Validate(t *testing.T) {
	assert.NoError(t, Templates().Validate())
	assert.NoError(t, Combat(resource.BucketSkills).Validate())
	assert.Error(t, Combat(resource.CombatBucket("pets")).Validate())
	assert.Error(t, Management(resource.ManagementField("nope")).Validate())
	assert.Error(t, Category{Kind: CategoryKind(99)}.Validate())
}
