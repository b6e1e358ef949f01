// Package importer translates legacy monolithic package documents into the
// discrete-record layout: every embedded sub-document becomes its own library
// record and a fresh manifest references them by ID. The legacy document is
// never stored verbatim.
package importer

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
	"github.com/packsmith-editor/packsmith/internal/view"
)

// legacyDocument is the monolithic package shape produced by older exports:
// resource payloads embedded directly, keyed by ID.
type legacyDocument struct {
	Name        string `json:"name"`
	Description string `json:"description"`

	Templates  map[string]map[string]any `json:"templates"`
	Instances  map[string]map[string]any `json:"instances"`
	Graphs     map[string]map[string]any `json:"graphs"`
	Composites map[string]map[string]any `json:"composites"`

	CombatPresets map[string]map[string]map[string]any `json:"combat_presets"`
	Management    map[string]map[string]map[string]any `json:"management"`

	Signals       map[string]map[string]any `json:"signals"`
	LevelEntityID string                    `json:"level_entity_id"`
}

// Result summarizes one import.
type Result struct {
	Index    *pack.Index
	Imported int
	Skipped  int
}

// Importer decomposes legacy documents into library records and manifests.
type Importer struct {
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger
}

// NewImporter creates an importer. A nil logger is replaced with a no-op
// logger.
func NewImporter(resources *resource.Manager, packages *pack.IndexManager, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{resources: resources, packages: packages, logger: logger}
}

// ImportFile imports one legacy document from disk.
func (im *Importer) ImportFile(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read legacy document: %w", err)
	}
	return im.Import(data)
}

// Import decomposes a legacy document. The package always receives a fresh
// ID; embedded records keep their legacy IDs, or get a fresh one when the
// key is empty. Records that fail to persist are logged and skipped so one
// bad payload never sinks the import.
func (im *Importer) Import(data []byte) (*Result, error) {
	var doc legacyDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse legacy document: %w", err)
	}
	if doc.Name == "" {
		return nil, fmt.Errorf("legacy document missing package name")
	}

	idx, err := im.packages.CreatePackage(doc.Name)
	if err != nil {
		return nil, err
	}
	idx.Description = doc.Description

	result := &Result{Index: idx}

	im.importCategory(result, doc.Templates, resource.TypeTemplate, idx.AddTemplate)
	im.importCategory(result, doc.Instances, resource.TypeInstance, idx.AddInstance)
	im.importCategory(result, doc.Graphs, resource.TypeGraph, idx.AddGraph)
	im.importCategory(result, doc.Composites, resource.TypeComposite, idx.AddComposite)

	for _, bucket := range resource.CombatBuckets {
		docs := doc.CombatPresets[string(bucket)]
		im.importCategory(result, docs, bucket.ResourceType(), func(id string) bool {
			return idx.AddCombatPreset(bucket, id)
		})
	}

	for _, field := range resource.ManagementFields {
		docs := doc.Management[string(field)]
		im.importCategory(result, docs, field.ResourceType(), func(id string) bool {
			return idx.AddManagementResource(field, id)
		})
	}

	if len(doc.Signals) > 0 {
		idx.SetSignals(doc.Signals)
		signalsDoc := map[string]any{"signals": toAnyMap(doc.Signals)}
		signalsID := view.SignalsResourceID(idx.PackageID)
		if err := im.resources.SaveResource(resource.FieldSignals.ResourceType(), signalsID, signalsDoc); err != nil {
			im.logger.Warn("failed to persist imported signals, skipping",
				zap.String("package_id", idx.PackageID),
				zap.Error(err))
			result.Skipped++
		} else {
			result.Imported++
		}
	}

	if doc.LevelEntityID != "" {
		idx.SetLevelEntity(doc.LevelEntityID)
	}

	if err := im.packages.SaveIndex(idx); err != nil {
		return nil, fmt.Errorf("failed to persist imported manifest: %w", err)
	}

	im.logger.Info("imported legacy package",
		zap.String("package_id", idx.PackageID),
		zap.String("name", idx.Name),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// importCategory persists one category's embedded documents and registers
// each successfully written ID in the manifest.
func (im *Importer) importCategory(result *Result, docs map[string]map[string]any, typ resource.Type, register func(id string) bool) {
	for id, payload := range docs {
		if id == "" {
			id = uuid.NewString()
		}
		if payload == nil {
			payload = map[string]any{}
		}
		if err := im.resources.SaveResource(typ, id, payload); err != nil {
			im.logger.Warn("failed to persist imported record, skipping",
				zap.String("type", string(typ)),
				zap.String("id", id),
				zap.Error(err))
			result.Skipped++
			continue
		}
		register(id)
		result.Imported++
	}
}

func toAnyMap(defs map[string]map[string]any) map[string]any {
	out := make(map[string]any, len(defs))
	for id, def := range defs {
		out[id] = def
	}
	return out
}
