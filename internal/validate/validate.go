// Package validate runs the workspace consistency pass: dangling manifest
// references, malformed resource files, duplicate membership, and missing
// level entities. Findings are collected as issues, never raised as errors;
// the core tolerates all of them at read time.
package validate

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/packsmith-editor/packsmith/internal/pack"
	"github.com/packsmith-editor/packsmith/internal/resource"
)

// Kind classifies a validation finding.
type Kind string

const (
	KindDanglingReference  Kind = "dangling_reference"
	KindMalformedRecord    Kind = "malformed_record"
	KindDuplicateMember    Kind = "duplicate_membership"
	KindMissingLevelEntity Kind = "missing_level_entity"
)

// Issue is one validation finding.
type Issue struct {
	Kind       Kind
	PackageID  string
	Type       resource.Type
	ResourceID string
	Message    string
}

func (i Issue) String() string {
	parts := []string{string(i.Kind)}
	if i.PackageID != "" {
		parts = append(parts, "package="+i.PackageID)
	}
	if i.ResourceID != "" {
		parts = append(parts, fmt.Sprintf("resource=%s/%s", i.Type, i.ResourceID))
	}
	return fmt.Sprintf("%s: %s", strings.Join(parts, " "), i.Message)
}

// Report aggregates the findings of one validation pass.
type Report struct {
	Issues []Issue
}

// HasIssues reports whether any finding was collected.
func (r *Report) HasIssues() bool { return len(r.Issues) > 0 }

// Count returns the number of findings.
func (r *Report) Count() int { return len(r.Issues) }

// ByKind returns the findings of one kind.
func (r *Report) ByKind(kind Kind) []Issue {
	var issues []Issue
	for _, issue := range r.Issues {
		if issue.Kind == kind {
			issues = append(issues, issue)
		}
	}
	return issues
}

func (r *Report) add(issue Issue) {
	r.Issues = append(r.Issues, issue)
}

// Validator checks every manifest against the library.
type Validator struct {
	resources *resource.Manager
	packages  *pack.IndexManager
	logger    *zap.Logger
}

// NewValidator creates a workspace validator. A nil logger is replaced with a
// no-op logger.
func NewValidator(resources *resource.Manager, packages *pack.IndexManager, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{resources: resources, packages: packages, logger: logger}
}

// Run walks every package manifest and every library record, collecting
// findings. It never fails on content problems; only I/O errors that prevent
// the walk itself surface as errors.
func (v *Validator) Run() (*Report, error) {
	report := &Report{}

	infos, err := v.packages.ListPackages()
	if err != nil {
		return nil, fmt.Errorf("failed to list packages: %w", err)
	}

	// owners tracks which packages claim each (type, id), for duplicate
	// detection across manifests.
	owners := make(map[resource.Type]map[string][]string)

	for _, info := range infos {
		idx, err := v.packages.LoadIndex(info.PackageID)
		if err != nil {
			report.add(Issue{
				Kind:      KindMalformedRecord,
				PackageID: info.PackageID,
				Message:   err.Error(),
			})
			continue
		}
		if idx == nil {
			continue
		}
		v.checkManifest(report, idx, owners)
	}

	v.reportDuplicates(report, owners)
	v.checkLibrary(report)
	return report, nil
}

func (v *Validator) checkManifest(report *Report, idx *pack.Index, owners map[resource.Type]map[string][]string) {
	for typ, ids := range idx.Resources.IDsByType() {
		for _, id := range ids {
			byID := owners[typ]
			if byID == nil {
				byID = make(map[string][]string)
				owners[typ] = byID
			}
			byID[id] = append(byID[id], idx.PackageID)

			if !v.resources.ResourceExists(typ, id) {
				report.add(Issue{
					Kind:       KindDanglingReference,
					PackageID:  idx.PackageID,
					Type:       typ,
					ResourceID: id,
					Message:    "manifest references a resource with no backing record",
				})
			}
		}
	}

	if idx.LevelEntityID != "" && !v.resources.ResourceExists(resource.TypeInstance, idx.LevelEntityID) {
		report.add(Issue{
			Kind:       KindMissingLevelEntity,
			PackageID:  idx.PackageID,
			Type:       resource.TypeInstance,
			ResourceID: idx.LevelEntityID,
			Message:    "level_entity_id has no backing instance record",
		})
	}
}

func (v *Validator) reportDuplicates(report *Report, owners map[resource.Type]map[string][]string) {
	for _, typ := range resource.AllTypes() {
		byID := owners[typ]
		ids := make([]string, 0, len(byID))
		for id := range byID {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			packageIDs := byID[id]
			if len(packageIDs) < 2 {
				continue
			}
			sort.Strings(packageIDs)
			report.add(Issue{
				Kind:       KindDuplicateMember,
				Type:       typ,
				ResourceID: id,
				Message:    fmt.Sprintf("referenced by multiple packages: %s", strings.Join(packageIDs, ", ")),
			})
		}
	}
}

// checkLibrary loads every record once to surface files that fail to parse.
func (v *Validator) checkLibrary(report *Report) {
	for _, typ := range resource.AllTypes() {
		ids, err := v.resources.ListResources(typ)
		if err != nil {
			v.logger.Warn("failed to enumerate resources",
				zap.String("type", string(typ)),
				zap.Error(err))
			continue
		}
		for _, id := range ids {
			if _, err := v.resources.LoadResource(typ, id); err != nil {
				report.add(Issue{
					Kind:       KindMalformedRecord,
					Type:       typ,
					ResourceID: id,
					Message:    err.Error(),
				})
			}
		}
	}
}
