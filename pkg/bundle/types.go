// Package bundle implements the portable export/import document: the
// bundle schema, the exporter (export-id allocation, reference
// remapping, secret stripping), the structural validator, the
// read-only conflict detector, and the mutating import executor.
//
// A bundle is constructed fresh on every export and has no server-side
// persistence; it is fully described by its JSON document.
package bundle

import (
	"time"

	"github.com/getflowcheck/flowcheck/pkg/model"
)

// Version is the bundle document version emitted by this exporter.
// Import accepts any bundle whose major component matches SupportedMajor.
const Version = "1.0.0"

// SupportedMajor is the bundle major version this importer accepts.
const SupportedMajor = 1

// RenameSuffix is appended to the natural key when importing a
// conflicting record under the rename strategy.
const RenameSuffix = " (imported)"

// EntityType names an exportable entity type. The string values are
// the bundle's top-level document keys.
type EntityType string

const (
	TypeFlowConfigs  EntityType = "flowConfigs"
	TypeQuestionSets EntityType = "questionSets"
	TypeTags         EntityType = "tags"
	TypeTests        EntityType = "tests"
	TypeRuns         EntityType = "runs"
)

// OrderedTypes lists the exportable types in dependency order:
// reference-free types first, then tests (which reference the former),
// then runs (which reference tests). Import processing must follow
// this order so the export-id map is populated before it is read.
var OrderedTypes = []EntityType{
	TypeFlowConfigs,
	TypeQuestionSets,
	TypeTags,
	TypeTests,
	TypeRuns,
}

// ParseEntityType maps a request string to an EntityType.
func ParseEntityType(s string) (EntityType, bool) {
	switch EntityType(s) {
	case TypeFlowConfigs, TypeQuestionSets, TypeTags, TypeTests, TypeRuns:
		return EntityType(s), true
	}
	return "", false
}

// HasNaturalKey reports whether the type participates in conflict
// detection. Runs do not: repeated runs of the same test are expected.
func (t EntityType) HasNaturalKey() bool {
	return t != TypeRuns
}

// Metadata describes the bundle document itself.
type Metadata struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Bundle is the portable document. Entity-type fields are pointers to
// slices so that an absent key ("type not requested") and an empty
// array ("requested, zero matches") stay distinguishable on the wire.
type Bundle struct {
	Metadata     Metadata             `json:"metadata"`
	FlowConfigs  *[]FlowConfigRecord  `json:"flowConfigs,omitempty"`
	QuestionSets *[]QuestionSetRecord `json:"questionSets,omitempty"`
	Tags         *[]TagRecord         `json:"tags,omitempty"`
	Tests        *[]TestRecord        `json:"tests,omitempty"`
	Runs         *[]RunRecord         `json:"runs,omitempty"`
}

// Has reports whether the bundle includes the given type key (present,
// possibly empty).
func (b *Bundle) Has(t EntityType) bool {
	switch t {
	case TypeFlowConfigs:
		return b.FlowConfigs != nil
	case TypeQuestionSets:
		return b.QuestionSets != nil
	case TypeTags:
		return b.Tags != nil
	case TypeTests:
		return b.Tests != nil
	case TypeRuns:
		return b.Runs != nil
	}
	return false
}

// FlowConfigRecord is the exported projection of a flow config. The
// owner id and the endpoint credential are deliberately absent.
type FlowConfigRecord struct {
	ExportID        string            `json:"exportId"`
	Name            string            `json:"name"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	RequestTemplate string            `json:"requestTemplate,omitempty"`
	ResponsePath    string            `json:"responsePath,omitempty"`
	TimeoutSeconds  int               `json:"timeoutSeconds,omitempty"`
}

// QuestionSetRecord is the exported projection of a question set.
type QuestionSetRecord struct {
	ExportID    string           `json:"exportId"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Questions   []model.Question `json:"questions,omitempty"`
}

// TagRecord is the exported projection of a tag.
type TagRecord struct {
	ExportID string `json:"exportId"`
	Name     string `json:"name"`
	Color    string `json:"color,omitempty"`
}

// TestRecord is the exported projection of a test. Foreign keys are
// replaced by export-id references; a reference is omitted when the
// source field was null or the referenced entity was not exported.
// The evaluator reference is always dropped: evaluators are not an
// exportable type.
type TestRecord struct {
	ExportID            string   `json:"exportId"`
	Name                string   `json:"name"`
	Description         string   `json:"description,omitempty"`
	FlowConfigExportID  string   `json:"flowConfigExportId,omitempty"`
	QuestionSetExportID string   `json:"questionSetExportId,omitempty"`
	TagExportIDs        []string `json:"tagExportIds,omitempty"`
	Threshold           float64  `json:"threshold,omitempty"`
}

// RunRecord is the exported projection of a run.
type RunRecord struct {
	ExportID     string            `json:"exportId"`
	TestExportID string            `json:"testExportId,omitempty"`
	Status       model.RunStatus   `json:"status"`
	Score        float64           `json:"score"`
	Results      []model.RunResult `json:"results,omitempty"`
	StartedAt    time.Time         `json:"startedAt,omitempty"`
	CompletedAt  time.Time         `json:"completedAt,omitempty"`
}
