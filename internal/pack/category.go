package pack

import (
	"fmt"

	"github.com/packsmith-editor/packsmith/internal/resource"
)

// CategoryKind enumerates the manifest categories a resource reference can
// belong to.
type CategoryKind int

const (
	KindTemplates CategoryKind = iota
	KindInstances
	KindGraphs
	KindComposites
	KindCombatPreset
	KindManagement
)

// Category is a closed tagged union addressing one membership list in a
// manifest. Bucket is set only for KindCombatPreset, Field only for
// KindManagement.
type Category struct {
	Kind   CategoryKind
	Bucket resource.CombatBucket
	Field  resource.ManagementField
}

func Templates() Category  { return Category{Kind: KindTemplates} }
func Instances() Category  { return Category{Kind: KindInstances} }
func Graphs() Category     { return Category{Kind: KindGraphs} }
func Composites() Category { return Category{Kind: KindComposites} }

func Combat(bucket resource.CombatBucket) Category {
	return Category{Kind: KindCombatPreset, Bucket: bucket}
}

func Management(field resource.ManagementField) Category {
	return Category{Kind: KindManagement, Field: field}
}

// Validate rejects categories whose variant payload is missing or unknown.
func (c Category) Validate() error {
	switch c.Kind {
	case KindTemplates, KindInstances, KindGraphs, KindComposites:
		return nil
	case KindCombatPreset:
		if !c.Bucket.Valid() {
			return fmt.Errorf("unknown combat bucket %q", c.Bucket)
		}
		return nil
	case KindManagement:
		if !c.Field.Valid() {
			return fmt.Errorf("unknown management field %q", c.Field)
		}
		return nil
	default:
		return fmt.Errorf("unknown category kind %d", c.Kind)
	}
}

func (c Category) String() string {
	switch c.Kind {
	case KindTemplates:
		return "templates"
	case KindInstances:
		return "instances"
	case KindGraphs:
		return "graphs"
	case KindComposites:
		return "composites"
	case KindCombatPreset:
		return "combat_presets." + string(c.Bucket)
	case KindManagement:
		return "management." + string(c.Field)
	default:
		return fmt.Sprintf("category(%d)", c.Kind)
	}
}

type categoryOps struct {
	add    func(*Index, Category, string) bool
	remove func(*Index, Category, string) bool
}

// categoryTable maps each kind to its manifest accessors, giving
// compile-time exhaustiveness instead of stringly-typed branching.
var categoryTable = map[CategoryKind]categoryOps{
	KindTemplates: {
		add:    func(idx *Index, _ Category, id string) bool { return idx.AddTemplate(id) },
		remove: func(idx *Index, _ Category, id string) bool { return idx.RemoveTemplate(id) },
	},
	KindInstances: {
		add:    func(idx *Index, _ Category, id string) bool { return idx.AddInstance(id) },
		remove: func(idx *Index, _ Category, id string) bool { return idx.RemoveInstance(id) },
	},
	KindGraphs: {
		add:    func(idx *Index, _ Category, id string) bool { return idx.AddGraph(id) },
		remove: func(idx *Index, _ Category, id string) bool { return idx.RemoveGraph(id) },
	},
	KindComposites: {
		add:    func(idx *Index, _ Category, id string) bool { return idx.AddComposite(id) },
		remove: func(idx *Index, _ Category, id string) bool { return idx.RemoveComposite(id) },
	},
	KindCombatPreset: {
		add: func(idx *Index, c Category, id string) bool {
			return idx.AddCombatPreset(c.Bucket, id)
		},
		remove: func(idx *Index, c Category, id string) bool {
			return idx.RemoveCombatPreset(c.Bucket, id)
		},
	},
	KindManagement: {
		add: func(idx *Index, c Category, id string) bool {
			return idx.AddManagementResource(c.Field, id)
		},
		remove: func(idx *Index, c Category, id string) bool {
			return idx.RemoveManagementResource(c.Field, id)
		},
	},
}

// Add applies the category's add accessor to the manifest.
func (c Category) Add(idx *Index, id string) bool {
	return categoryTable[c.Kind].add(idx, c, id)
}

// Remove applies the category's remove accessor to the manifest.
func (c Category) Remove(idx *Index, id string) bool {
	return categoryTable[c.Kind].remove(idx, c, id)
}
