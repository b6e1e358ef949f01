package resource

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_SaveAndLoad(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	payload := map[string]any{
		"name":           "Guard Tower",
		"entity_type":    "structure",
		"default_graphs": []any{"graph-1", "graph-2"},
	}
	err := store.Save(TypeTemplate, "tpl-1", payload)
	require.NoError(t, err)

	loaded, err := store.Load(TypeTemplate, "tpl-1")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Guard Tower", loaded["name"])
	assert.Equal(t, []any{"graph-1", "graph-2"}, loaded["default_graphs"])
}

func TestStore_LoadAbsent(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	payload, err := store.Load(TypeGraph, "missing")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestStore_LoadMalformed(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, nil)

	dir := filepath.Join(root, TypeGraph.Dir())
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.json"), []byte("{not json"), 0644))

	_, err := store.Load(TypeGraph, "broken")
	require.Error(t, err)
	assert.True(t, IsMalformed(err))
}

func TestStore_SaveOverwritesWholeRecord(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	require.NoError(t, store.Save(TypeInstance, "inst-1", map[string]any{
		"name":  "old",
		"extra": "field",
	}))
	require.NoError(t, store.Save(TypeInstance, "inst-1", map[string]any{
		"name": "new",
	}))

	loaded, err := store.Load(TypeInstance, "inst-1")
	require.NoError(t, err)
	assert.Equal(t, "new", loaded["name"])
	_, hasExtra := loaded["extra"]
	assert.False(t, hasExtra, "save must replace the whole record, not patch it")
}

func TestStore_SaveLeavesNoTempFile(t *testing.T) {
	root := t.TempDir()
	store := NewStore(root, nil)

	require.NoError(t, store.Save(TypeTemplate, "tpl-1", map[string]any{"name": "x"}))

	entries, err := os.ReadDir(filepath.Join(root, TypeTemplate.Dir()))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "tpl-1.json", entries[0].Name())
}

func TestStore_ListOrderedByFilename(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	for _, id := range []string{"charlie", "alpha", "bravo"} {
		require.NoError(t, store.Save(TypeGraph, id, map[string]any{"name": id}))
	}

	ids, err := store.List(TypeGraph)
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, ids)
}

func TestStore_ListMissingDirectory(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	ids, err := store.List(TypeComposite)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestStore_Delete(t *testing.T) {
	store := NewStore(t.TempDir(), nil)

	require.NoError(t, store.Save(TypeSkill, "fireball", map[string]any{"name": "Fireball"}))

	removed, err := store.Delete(TypeSkill, "fireball")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Delete(TypeSkill, "fireball")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestManagementFieldDirectories(t *testing.T) {
	for _, field := range ManagementFields {
		typ := field.ResourceType()
		assert.True(t, typ.Valid(), "management field %s must map to a known type", field)
		assert.Equal(t, "management/"+string(field), typ.Dir())
	}
}

func TestCombatBucketTable(t *testing.T) {
	assert.Equal(t, TypeSkill, BucketSkills.ResourceType())
	assert.Equal(t, "skill_id", BucketSkills.IDField())
	assert.Equal(t, "class_id", BucketPlayerClasses.IDField())
	assert.False(t, CombatBucket("pets").Valid())
}
