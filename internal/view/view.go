// Package view provides read/resolve façades over the resource library:
// one per open package, plus the synthetic global and unclassified views.
// A view borrows its manifest and owns only derived caches; the library
// remains the single source of truth.
package view

import (
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// View is the shared surface of PackageView, GlobalView, and
// UnclassifiedView. Lookup misses are data, not errors: absent entries
// return ok=false and enumeration maps simply omit them.
type View interface {
	// PackageID returns the backing package ID, or one of the reserved view
	// sentinels for the synthetic views.
	PackageID() string

	// DisplayName returns the human-readable name of the view.
	DisplayName() string

	// Templates returns the resolved template documents keyed by ID.
	Templates() map[string]map[string]any

	// Instances returns the resolved instance documents keyed by ID.
	Instances() map[string]map[string]any

	// Template resolves one template document.
	Template(id string) (map[string]any, bool)

	// Instance resolves one instance document.
	Instance(id string) (map[string]any, bool)

	// CombatPresets returns the resolved documents of one combat bucket.
	CombatPresets(bucket resource.CombatBucket) map[string]map[string]any

	// Management returns the resolved documents of one management field.
	Management(field resource.ManagementField) map[string]map[string]any

	// Signals returns the signal definitions visible to this view.
	Signals() map[string]map[string]any

	// LevelEntity resolves the distinguished level-entity instance, when the
	// view has one.
	LevelEntity() (map[string]any, bool)

	// InvalidateAll drops every derived cache. Required after any write path
	// the view did not perform itself.
	InvalidateAll()
}

// metadataFlag reads a boolean flag from a document's metadata sub-map.
func metadataFlag(doc map[string]any, flag string) bool {
	metadata, ok := doc["metadata"].(map[string]any)
	if !ok {
		return false
	}
	value, ok := metadata[flag].(bool)
	return ok && value
}
