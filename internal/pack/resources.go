// Package pack models package manifests: lightweight indexes that group
// library resources into named collections by ID reference only. A manifest
// never embeds resource payload; the library remains the single ground truth.
package pack

import (
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// Resources holds a package's categorized resource ID lists. Lists are
// ordered and duplicate-free; an ID listed here is a soft promise that a
// matching record exists in the library (dangling references are tolerated
// at read time).
type Resources struct {
	Templates  []string `json:"templates"`
	Instances  []string `json:"instances"`
	Graphs     []string `json:"graphs"`
	Composites []string `json:"composites"`

	CombatPresets map[resource.CombatBucket][]string    `json:"combat_presets"`
	Management    map[resource.ManagementField][]string `json:"management"`
}

// NewResources returns an empty Resources with every bucket present.
func NewResources() *Resources {
	r := &Resources{}
	r.normalize()
	return r
}

// normalize fills in any missing list or bucket so older manifests that
// predate a category remain loadable (additive schema evolution).
func (r *Resources) normalize() {
	if r.Templates == nil {
		r.Templates = []string{}
	}
	if r.Instances == nil {
		r.Instances = []string{}
	}
	if r.Graphs == nil {
		r.Graphs = []string{}
	}
	if r.Composites == nil {
		r.Composites = []string{}
	}
	if r.CombatPresets == nil {
		r.CombatPresets = make(map[resource.CombatBucket][]string, len(resource.CombatBuckets))
	}
	for _, bucket := range resource.CombatBuckets {
		if r.CombatPresets[bucket] == nil {
			r.CombatPresets[bucket] = []string{}
		}
	}
	if r.Management == nil {
		r.Management = make(map[resource.ManagementField][]string, len(resource.ManagementFields))
	}
	for _, field := range resource.ManagementFields {
		if r.Management[field] == nil {
			r.Management[field] = []string{}
		}
	}
}

// AllIDs returns every referenced resource ID across all categories.
func (r *Resources) AllIDs() []string {
	var ids []string
	ids = append(ids, r.Templates...)
	ids = append(ids, r.Instances...)
	ids = append(ids, r.Graphs...)
	ids = append(ids, r.Composites...)
	for _, bucket := range resource.CombatBuckets {
		ids = append(ids, r.CombatPresets[bucket]...)
	}
	for _, field := range resource.ManagementFields {
		ids = append(ids, r.Management[field]...)
	}
	return ids
}

// IDsByType returns the membership lists keyed by backing resource type.
// Used by the unclassified view to build per-type membership sets.
func (r *Resources) IDsByType() map[resource.Type][]string {
	byType := map[resource.Type][]string{
		resource.TypeTemplate:  r.Templates,
		resource.TypeInstance:  r.Instances,
		resource.TypeGraph:     r.Graphs,
		resource.TypeComposite: r.Composites,
	}
	for _, bucket := range resource.CombatBuckets {
		byType[bucket.ResourceType()] = r.CombatPresets[bucket]
	}
	for _, field := range resource.ManagementFields {
		byType[field.ResourceType()] = r.Management[field]
	}
	return byType
}

// appendUnique adds id to the list unless already present. Reports whether
// the list changed.
func appendUnique(list []string, id string) ([]string, bool) {
	for _, existing := range list {
		if existing == id {
			return list, false
		}
	}
	return append(list, id), true
}

// removeID removes id from the list if present. Reports whether the list
// changed.
func removeID(list []string, id string) ([]string, bool) {
	for i, existing := range list {
		if existing == id {
			return append(list[:i], list[i+1:]...), true
		}
	}
	return list, false
}
