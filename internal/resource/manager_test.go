package resource

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_SaveRefreshesFingerprint(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.RefreshFingerprint())

	require.NoError(t, m.SaveResource(TypeTemplate, "tpl-1", map[string]any{"name": "a"}))

	changed, err := m.HasLibraryChanged()
	require.NoError(t, err)
	assert.False(t, changed, "a write through the manager must not look like an external change")
}

func TestManager_DetectsExternalChange(t *testing.T) {
	root := t.TempDir()
	m := NewManager(root, nil)
	require.NoError(t, m.SaveResource(TypeTemplate, "tpl-1", map[string]any{"name": "a"}))

	// Simulate another process rewriting the file.
	path := filepath.Join(root, TypeTemplate.Dir(), "tpl-1.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"name":"edited elsewhere"}`), 0644))
	future := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(path, future, future))

	changed, err := m.HasLibraryChanged()
	require.NoError(t, err)
	assert.True(t, changed)

	require.NoError(t, m.RefreshFingerprint())
	changed, err = m.HasLibraryChanged()
	require.NoError(t, err)
	assert.False(t, changed)
}

func TestManager_LoadCachesUnchangedFile(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.SaveResource(TypeGraph, "g1", map[string]any{"name": "Graph"}))

	first, err := m.LoadResource(TypeGraph, "g1")
	require.NoError(t, err)
	second, err := m.LoadResource(TypeGraph, "g1")
	require.NoError(t, err)

	// Same backing document: edits through one reference are visible through
	// the other, which is what the editing layer relies on.
	first["name"] = "Renamed"
	assert.Equal(t, "Renamed", second["name"])
}

func TestManager_LoadAbsent(t *testing.T) {
	m := NewManager(t.TempDir(), nil)

	payload, err := m.LoadResource(TypeInstance, "missing")
	require.NoError(t, err)
	assert.Nil(t, payload)
}

func TestManager_ListAllResources(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.SaveResource(TypeTemplate, "tpl-1", map[string]any{"name": "a"}))
	require.NoError(t, m.SaveResource(TypeGraph, "g1", map[string]any{"name": "b"}))
	require.NoError(t, m.SaveResource(FieldTimers.ResourceType(), "timer-1", map[string]any{"interval": 5}))

	all, err := m.ListAllResources()
	require.NoError(t, err)
	assert.Equal(t, []string{"tpl-1"}, all[TypeTemplate])
	assert.Equal(t, []string{"g1"}, all[TypeGraph])
	assert.Equal(t, []string{"timer-1"}, all[FieldTimers.ResourceType()])
	assert.Empty(t, all[TypeComposite])
}

func TestManager_DeleteRefreshesFingerprint(t *testing.T) {
	m := NewManager(t.TempDir(), nil)
	require.NoError(t, m.SaveResource(TypeItem, "potion", map[string]any{"name": "Potion"}))

	removed, err := m.DeleteResource(TypeItem, "potion")
	require.NoError(t, err)
	assert.True(t, removed)

	changed, err := m.HasLibraryChanged()
	require.NoError(t, err)
	assert.False(t, changed)

	payload, err := m.LoadResource(TypeItem, "potion")
	require.NoError(t, err)
	assert.Nil(t, payload)
}
