package bundle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/getflowcheck/flowcheck/pkg/model"
	"github.com/getflowcheck/flowcheck/pkg/store"
)

// ConflictStrategy is the policy applied to every natural-key
// collision during one import.
type ConflictStrategy string

const (
	StrategySkip      ConflictStrategy = "skip"
	StrategyOverwrite ConflictStrategy = "overwrite"
	StrategyRename    ConflictStrategy = "rename"
)

// ParseStrategy validates a conflict strategy string.
func ParseStrategy(s string) (ConflictStrategy, error) {
	switch ConflictStrategy(s) {
	case StrategySkip, StrategyOverwrite, StrategyRename:
		return ConflictStrategy(s), nil
	}
	return "", fmt.Errorf("unknown conflict strategy %q", s)
}

// ImportOptions configures one import.
type ImportOptions struct {
	ConflictStrategy ConflictStrategy `json:"conflictStrategy"`
}

// ImportResult summarizes one import. Counts carry explicit zeroes for
// every type, including types absent from the bundle. Record-level
// failures land in Errors and never abort the import.
type ImportResult struct {
	Created     map[EntityType]int `json:"created"`
	Skipped     map[EntityType]int `json:"skipped"`
	Overwritten map[EntityType]int `json:"overwritten"`
	Renamed     map[EntityType]int `json:"renamed"`
	Errors      []string           `json:"errors"`
}

func newImportResult() *ImportResult {
	res := &ImportResult{
		Created:     make(map[EntityType]int, len(OrderedTypes)),
		Skipped:     make(map[EntityType]int, len(OrderedTypes)),
		Overwritten: make(map[EntityType]int, len(OrderedTypes)),
		Renamed:     make(map[EntityType]int, len(OrderedTypes)),
		Errors:      []string{},
	}
	for _, t := range OrderedTypes {
		res.Created[t] = 0
		res.Skipped[t] = 0
		res.Overwritten[t] = 0
		res.Renamed[t] = 0
	}
	return res
}

// refMap accumulates exportId -> new storage id bindings as records
// are processed. It is single-owner and sequentially threaded through
// the ordered pipeline; dependent types read bindings made by the
// types processed before them.
type refMap struct {
	ids map[string]string
}

func newRefMap() *refMap {
	return &refMap{ids: make(map[string]string)}
}

func (m *refMap) bind(exportID, storageID string) {
	if exportID != "" {
		m.ids[exportID] = storageID
	}
}

// resolve rewrites an export-id reference to the destination storage
// id. An empty or unknown export id resolves to "": the destination
// field is left unset rather than failing the record.
func (m *refMap) resolve(exportID string) string {
	return m.ids[exportID]
}

// typeOps is the per-entity-type variant behind the import pipeline.
// The executor's control flow is written once; adding an exportable
// type means adding one typeOps value, not touching the executor.
type typeOps[R any] struct {
	typ      EntityType
	exportID func(R) string
	name     func(R) string
	// create persists rec as a new entity under ownerID using name as
	// the natural-key value (already suffixed under rename), resolving
	// references through refs. Returns the new storage id.
	create func(ctx context.Context, ownerID, name string, rec R, refs *refMap) (string, error)
	// overwrite updates the existing entity's fields in place with the
	// incoming record's values, keeping its storage id and secrets.
	overwrite func(ctx context.Context, ownerID, existingID string, rec R, refs *refMap) error
}

// Importer performs the mutating import of a validated bundle.
type Importer struct {
	store    store.Store
	detector *Detector
}

// NewImporter creates an Importer backed by the given store.
func NewImporter(s store.Store) *Importer {
	return &Importer{store: s, detector: NewDetector(s)}
}

// Execute imports the bundle into ownerID's account. Types are
// processed strictly in dependency order and records sequentially
// within a type, so reference bindings exist before dependents need
// them and outcomes are deterministic across repeated runs. A record
// failure is recorded and processing continues; the import as a whole
// always completes with a summary.
func (im *Importer) Execute(ctx context.Context, ownerID string, b *Bundle, opts ImportOptions) (*ImportResult, error) {
	strategy, err := ParseStrategy(string(opts.ConflictStrategy))
	if err != nil {
		return nil, err
	}

	res := newImportResult()
	refs := newRefMap()

	for _, t := range OrderedTypes {
		if !b.Has(t) {
			continue
		}
		switch t {
		case TypeFlowConfigs:
			importRecords(ctx, ownerID, *b.FlowConfigs, im.flowConfigOps(), im.detector, strategy, refs, res)
		case TypeQuestionSets:
			importRecords(ctx, ownerID, *b.QuestionSets, im.questionSetOps(), im.detector, strategy, refs, res)
		case TypeTags:
			importRecords(ctx, ownerID, *b.Tags, im.tagOps(), im.detector, strategy, refs, res)
		case TypeTests:
			importRecords(ctx, ownerID, *b.Tests, im.testOps(), im.detector, strategy, refs, res)
		case TypeRuns:
			importRecords(ctx, ownerID, *b.Runs, im.runOps(), im.detector, strategy, refs, res)
		}
	}
	return res, nil
}

// importRecords runs the per-record pipeline for one type:
// resolve references, classify against the natural key, then create,
// skip, overwrite or rename. Errors are per-record and terminal for
// that record only.
func importRecords[R any](ctx context.Context, ownerID string, recs []R, ops typeOps[R], det *Detector, strategy ConflictStrategy, refs *refMap, res *ImportResult) {
	for _, rec := range recs {
		name := ops.name(rec)

		// Types without a natural key are always creatable.
		if !ops.typ.HasNaturalKey() {
			newID, err := ops.create(ctx, ownerID, name, rec, refs)
			if err != nil {
				res.recordError(ops.typ, ops.exportID(rec), err)
				continue
			}
			refs.bind(ops.exportID(rec), newID)
			res.Created[ops.typ]++
			continue
		}

		existingID, _, err := det.findExisting(ctx, ownerID, ops.typ, name)
		if errors.Is(err, store.ErrNotFound) {
			newID, createErr := ops.create(ctx, ownerID, name, rec, refs)
			if createErr != nil {
				res.recordError(ops.typ, name, createErr)
				continue
			}
			refs.bind(ops.exportID(rec), newID)
			res.Created[ops.typ]++
			continue
		}
		if err != nil {
			res.recordError(ops.typ, name, err)
			continue
		}

		switch strategy {
		case StrategySkip:
			// Bind to the existing entity so later dependents still
			// resolve to something meaningful.
			refs.bind(ops.exportID(rec), existingID)
			res.Skipped[ops.typ]++
		case StrategyOverwrite:
			if err := ops.overwrite(ctx, ownerID, existingID, rec, refs); err != nil {
				res.recordError(ops.typ, name, err)
				continue
			}
			refs.bind(ops.exportID(rec), existingID)
			res.Overwritten[ops.typ]++
		case StrategyRename:
			newID, err := ops.create(ctx, ownerID, name+RenameSuffix, rec, refs)
			if err != nil {
				res.recordError(ops.typ, name, err)
				continue
			}
			refs.bind(ops.exportID(rec), newID)
			res.Renamed[ops.typ]++
		}
	}
}

func (r *ImportResult) recordError(t EntityType, label string, err error) {
	if label == "" {
		label = "(unnamed)"
	}
	r.Errors = append(r.Errors, fmt.Sprintf("%s %q: %v", t, label, err))
}

func (im *Importer) flowConfigOps() typeOps[FlowConfigRecord] {
	return typeOps[FlowConfigRecord]{
		typ:      TypeFlowConfigs,
		exportID: func(r FlowConfigRecord) string { return r.ExportID },
		name:     func(r FlowConfigRecord) string { return r.Name },
		create: func(ctx context.Context, ownerID, name string, r FlowConfigRecord, _ *refMap) (string, error) {
			now := time.Now().UTC()
			fc := &model.FlowConfig{
				OwnerID:         ownerID,
				Name:            name,
				Endpoint:        r.Endpoint,
				Method:          r.Method,
				Headers:         r.Headers,
				RequestTemplate: r.RequestTemplate,
				ResponsePath:    r.ResponsePath,
				TimeoutSeconds:  r.TimeoutSeconds,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := im.store.FlowConfigs().Create(ctx, fc); err != nil {
				return "", err
			}
			return fc.ID, nil
		},
		overwrite: func(ctx context.Context, ownerID, existingID string, r FlowConfigRecord, _ *refMap) error {
			existing, err := im.store.FlowConfigs().Get(ctx, ownerID, existingID)
			if err != nil {
				return err
			}
			// The incoming record carries no credential; the existing
			// AuthToken stays untouched.
			existing.Endpoint = r.Endpoint
			existing.Method = r.Method
			existing.Headers = r.Headers
			existing.RequestTemplate = r.RequestTemplate
			existing.ResponsePath = r.ResponsePath
			existing.TimeoutSeconds = r.TimeoutSeconds
			existing.UpdatedAt = time.Now().UTC()
			return im.store.FlowConfigs().Update(ctx, existing)
		},
	}
}

func (im *Importer) questionSetOps() typeOps[QuestionSetRecord] {
	return typeOps[QuestionSetRecord]{
		typ:      TypeQuestionSets,
		exportID: func(r QuestionSetRecord) string { return r.ExportID },
		name:     func(r QuestionSetRecord) string { return r.Name },
		create: func(ctx context.Context, ownerID, name string, r QuestionSetRecord, _ *refMap) (string, error) {
			now := time.Now().UTC()
			qs := &model.QuestionSet{
				OwnerID:     ownerID,
				Name:        name,
				Description: r.Description,
				Questions:   r.Questions,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := im.store.QuestionSets().Create(ctx, qs); err != nil {
				return "", err
			}
			return qs.ID, nil
		},
		overwrite: func(ctx context.Context, ownerID, existingID string, r QuestionSetRecord, _ *refMap) error {
			existing, err := im.store.QuestionSets().Get(ctx, ownerID, existingID)
			if err != nil {
				return err
			}
			existing.Description = r.Description
			existing.Questions = r.Questions
			existing.UpdatedAt = time.Now().UTC()
			return im.store.QuestionSets().Update(ctx, existing)
		},
	}
}

func (im *Importer) tagOps() typeOps[TagRecord] {
	return typeOps[TagRecord]{
		typ:      TypeTags,
		exportID: func(r TagRecord) string { return r.ExportID },
		name:     func(r TagRecord) string { return r.Name },
		create: func(ctx context.Context, ownerID, name string, r TagRecord, _ *refMap) (string, error) {
			now := time.Now().UTC()
			tag := &model.Tag{
				OwnerID:   ownerID,
				Name:      name,
				Color:     r.Color,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := im.store.Tags().Create(ctx, tag); err != nil {
				return "", err
			}
			return tag.ID, nil
		},
		overwrite: func(ctx context.Context, ownerID, existingID string, r TagRecord, _ *refMap) error {
			existing, err := im.store.Tags().Get(ctx, ownerID, existingID)
			if err != nil {
				return err
			}
			existing.Color = r.Color
			existing.UpdatedAt = time.Now().UTC()
			return im.store.Tags().Update(ctx, existing)
		},
	}
}

func (im *Importer) testOps() typeOps[TestRecord] {
	return typeOps[TestRecord]{
		typ:      TypeTests,
		exportID: func(r TestRecord) string { return r.ExportID },
		name:     func(r TestRecord) string { return r.Name },
		create: func(ctx context.Context, ownerID, name string, r TestRecord, refs *refMap) (string, error) {
			now := time.Now().UTC()
			tst := &model.Test{
				OwnerID:       ownerID,
				Name:          name,
				Description:   r.Description,
				FlowConfigID:  refs.resolve(r.FlowConfigExportID),
				QuestionSetID: refs.resolve(r.QuestionSetExportID),
				TagIDs:        resolveAll(refs, r.TagExportIDs),
				Threshold:     r.Threshold,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := im.store.Tests().Create(ctx, tst); err != nil {
				return "", err
			}
			return tst.ID, nil
		},
		overwrite: func(ctx context.Context, ownerID, existingID string, r TestRecord, refs *refMap) error {
			existing, err := im.store.Tests().Get(ctx, ownerID, existingID)
			if err != nil {
				return err
			}
			existing.Description = r.Description
			existing.FlowConfigID = refs.resolve(r.FlowConfigExportID)
			existing.QuestionSetID = refs.resolve(r.QuestionSetExportID)
			existing.TagIDs = resolveAll(refs, r.TagExportIDs)
			existing.Threshold = r.Threshold
			existing.UpdatedAt = time.Now().UTC()
			return im.store.Tests().Update(ctx, existing)
		},
	}
}

func (im *Importer) runOps() typeOps[RunRecord] {
	return typeOps[RunRecord]{
		typ:      TypeRuns,
		exportID: func(r RunRecord) string { return r.ExportID },
		name:     func(RunRecord) string { return "" },
		create: func(ctx context.Context, ownerID, _ string, r RunRecord, refs *refMap) (string, error) {
			run := &model.Run{
				OwnerID:     ownerID,
				TestID:      refs.resolve(r.TestExportID),
				Status:      r.Status,
				Score:       r.Score,
				Results:     r.Results,
				StartedAt:   r.StartedAt,
				CompletedAt: r.CompletedAt,
				CreatedAt:   time.Now().UTC(),
			}
			if err := im.store.Runs().Create(ctx, run); err != nil {
				return "", err
			}
			return run.ID, nil
		},
		// Runs have no natural key, so overwrite is unreachable.
		overwrite: func(context.Context, string, string, RunRecord, *refMap) error {
			return fmt.Errorf("runs cannot conflict")
		},
	}
}

// resolveAll remaps a list of export-id references, dropping the ones
// that do not resolve.
func resolveAll(refs *refMap, exportIDs []string) []string {
	var out []string
	for _, e := range exportIDs {
		if storageID := refs.resolve(e); storageID != "" {
			out = append(out, storageID)
		}
	}
	return out
}
