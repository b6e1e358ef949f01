package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packsmith-editor/packsmith/internal/resource"
)

func TestUnclassifiedView_SetDifference(t *testing.T) {
	f := newFixture(t)
	f.saveResource(t, resource.TypeTemplate, "tpl-used", map[string]any{"name": "used"})
	f.saveResource(t, resource.TypeTemplate, "tpl-orphan", map[string]any{"name": "orphan"})

	idx, err := f.packages.CreatePackage("Alpha")
	require.NoError(t, err)
	idx.AddTemplate("tpl-used")
	require.NoError(t, f.packages.SaveIndex(idx))

	v := NewUnclassifiedView(f.resources, f.packages, nil)
	templates := v.Templates()
	require.Len(t, templates, 1)
	_, ok := templates["tpl-orphan"]
	assert.True(t, ok)
}

func TestUnclassifiedView_PartitionInvariant(t *testing.T) {
	f := newFixture(t)
	for _, id := range []string{"g1", "g2", "g3", "g4"} {
		f.saveResource(t, resource.TypeGraph, id, map[string]any{"name": id})
	}

	alpha, err := f.packages.CreatePackage("Alpha")
	require.NoError(t, err)
	alpha.AddGraph("g1")
	require.NoError(t, f.packages.SaveIndex(alpha))

	bravo, err := f.packages.CreatePackage("Bravo")
	require.NoError(t, err)
	bravo.AddGraph("g2")
	// g1 is also referenced by Bravo: shared membership, still classified.
	bravo.AddGraph("g1")
	require.NoError(t, f.packages.SaveIndex(bravo))

	v := NewUnclassifiedView(f.resources, f.packages, nil)
	assert.Empty(t, v.CombatPresets(resource.BucketSkills))

	unclassified, err := v.UnclassifiedIDs(resource.TypeGraph)
	require.NoError(t, err)
	assert.Equal(t, []string{"g3", "g4"}, unclassified)
}

func TestUnclassifiedView_RefreshOnManifestChange(t *testing.T) {
	f := newFixture(t)
	f.saveResource(t, resource.TypeInstance, "inst-1", map[string]any{"name": "spawn"})

	v := NewUnclassifiedView(f.resources, f.packages, nil)
	require.Len(t, v.Instances(), 1)

	idx, err := f.packages.CreatePackage("Alpha")
	require.NoError(t, err)
	idx.AddInstance("inst-1")
	require.NoError(t, f.packages.SaveIndex(idx))

	// The package-list fingerprint moved, so the set recomputes without an
	// explicit invalidation.
	assert.Empty(t, v.Instances())
}

func TestUnclassifiedView_LevelEntityCountsAsReferenced(t *testing.T) {
	f := newFixture(t)
	f.saveResource(t, resource.TypeInstance, "inst-level", map[string]any{
		"name":     "Level",
		"metadata": map[string]any{"is_level_entity": true},
	})

	idx, err := f.packages.CreatePackage("Alpha")
	require.NoError(t, err)
	idx.SetLevelEntity("inst-level")
	require.NoError(t, f.packages.SaveIndex(idx))

	v := NewUnclassifiedView(f.resources, f.packages, nil)
	assert.Empty(t, v.Instances())

	_, ok := v.LevelEntity()
	assert.False(t, ok, "the unclassified view never has a level entity")
}

func TestUnclassifiedView_NoPackages(t *testing.T) {
	f := newFixture(t)
	f.saveResource(t, resource.TypeComposite, "comp-1", map[string]any{"name": "combo"})

	v := NewUnclassifiedView(f.resources, f.packages, nil)
	unclassified, err := v.UnclassifiedIDs(resource.TypeComposite)
	require.NoError(t, err)
	assert.Equal(t, []string{"comp-1"}, unclassified)
	assert.Empty(t, v.Signals())
}
