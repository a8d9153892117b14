package bundle

import (
	"context"
	"fmt"
	"time"

	"github.com/getflowcheck/flowcheck/internal/id"
	"github.com/getflowcheck/flowcheck/pkg/store"
)

// ExportRequest selects what goes into a bundle. Types is required and
// non-empty; IDs optionally restricts a type to an explicit id subset.
// Ids the requesting owner does not own are silently excluded.
type ExportRequest struct {
	Types []EntityType
	IDs   map[EntityType][]string
}

// Exporter assembles bundles from an owner's entities.
type Exporter struct {
	store store.Store
}

// NewExporter creates an Exporter backed by the given store.
func NewExporter(s store.Store) *Exporter {
	return &Exporter{store: s}
}

// allocator assigns each exported entity a fresh export id and
// remembers the storage-id mapping so reference fields on dependent
// entities can be rewritten. Export ids are unique across all types
// within one bundle.
type allocator struct {
	byStorage map[string]string   // "<type>/<storageID>" -> exportID
	used      map[string]struct{} // all export ids handed out
}

func newAllocator() *allocator {
	return &allocator{
		byStorage: make(map[string]string),
		used:      make(map[string]struct{}),
	}
}

func (a *allocator) assign(t EntityType, storageID string) string {
	exportID := id.Export()
	for {
		if _, taken := a.used[exportID]; !taken {
			break
		}
		exportID = id.Export()
	}
	a.used[exportID] = struct{}{}
	a.byStorage[string(t)+"/"+storageID] = exportID
	return exportID
}

// lookup rewrites a storage-id reference to the export id of the
// referenced entity. Returns "" when the reference is null or the
// referenced entity was not selected for export; callers omit the
// field in that case.
func (a *allocator) lookup(t EntityType, storageID string) string {
	if storageID == "" {
		return ""
	}
	return a.byStorage[string(t)+"/"+storageID]
}

// Export builds a bundle containing the owner's entities of the
// requested types. Only requested type keys appear in the document;
// a requested type with zero matches appears as an empty array.
func (e *Exporter) Export(ctx context.Context, ownerID string, req ExportRequest) (*Bundle, error) {
	if len(req.Types) == 0 {
		return nil, fmt.Errorf("at least one entity type is required")
	}
	requested := make(map[EntityType]bool, len(req.Types))
	for _, t := range req.Types {
		if _, ok := ParseEntityType(string(t)); !ok {
			return nil, fmt.Errorf("unknown entity type %q", t)
		}
		requested[t] = true
	}

	b := &Bundle{Metadata: Metadata{Version: Version, ExportedAt: time.Now().UTC()}}
	alloc := newAllocator()

	// Walk types in dependency order so every reference a dependent
	// record might carry is already allocated when the record is built.
	for _, t := range OrderedTypes {
		if !requested[t] {
			continue
		}
		subset := idSet(req.IDs[t])
		var err error
		switch t {
		case TypeFlowConfigs:
			err = e.exportFlowConfigs(ctx, ownerID, subset, alloc, b)
		case TypeQuestionSets:
			err = e.exportQuestionSets(ctx, ownerID, subset, alloc, b)
		case TypeTags:
			err = e.exportTags(ctx, ownerID, subset, alloc, b)
		case TypeTests:
			err = e.exportTests(ctx, ownerID, subset, alloc, b)
		case TypeRuns:
			err = e.exportRuns(ctx, ownerID, subset, alloc, b)
		}
		if err != nil {
			return nil, fmt.Errorf("export %s: %w", t, err)
		}
	}
	return b, nil
}

// idSet returns nil for "no filter", or a membership set.
func idSet(ids []string) map[string]bool {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]bool, len(ids))
	for _, v := range ids {
		set[v] = true
	}
	return set
}

func selected(subset map[string]bool, entityID string) bool {
	return subset == nil || subset[entityID]
}

func (e *Exporter) exportFlowConfigs(ctx context.Context, ownerID string, subset map[string]bool, alloc *allocator, b *Bundle) error {
	items, err := e.store.FlowConfigs().List(ctx, ownerID)
	if err != nil {
		return err
	}
	records := make([]FlowConfigRecord, 0, len(items))
	for _, fc := range items {
		if !selected(subset, fc.ID) {
			continue
		}
		// AuthToken is a secret and never crosses into the bundle.
		records = append(records, FlowConfigRecord{
			ExportID:        alloc.assign(TypeFlowConfigs, fc.ID),
			Name:            fc.Name,
			Endpoint:        fc.Endpoint,
			Method:          fc.Method,
			Headers:         fc.Headers,
			RequestTemplate: fc.RequestTemplate,
			ResponsePath:    fc.ResponsePath,
			TimeoutSeconds:  fc.TimeoutSeconds,
		})
	}
	b.FlowConfigs = &records
	return nil
}

func (e *Exporter) exportQuestionSets(ctx context.Context, ownerID string, subset map[string]bool, alloc *allocator, b *Bundle) error {
	items, err := e.store.QuestionSets().List(ctx, ownerID)
	if err != nil {
		return err
	}
	records := make([]QuestionSetRecord, 0, len(items))
	for _, qs := range items {
		if !selected(subset, qs.ID) {
			continue
		}
		records = append(records, QuestionSetRecord{
			ExportID:    alloc.assign(TypeQuestionSets, qs.ID),
			Name:        qs.Name,
			Description: qs.Description,
			Questions:   qs.Questions,
		})
	}
	b.QuestionSets = &records
	return nil
}

func (e *Exporter) exportTags(ctx context.Context, ownerID string, subset map[string]bool, alloc *allocator, b *Bundle) error {
	items, err := e.store.Tags().List(ctx, ownerID)
	if err != nil {
		return err
	}
	records := make([]TagRecord, 0, len(items))
	for _, tag := range items {
		if !selected(subset, tag.ID) {
			continue
		}
		records = append(records, TagRecord{
			ExportID: alloc.assign(TypeTags, tag.ID),
			Name:     tag.Name,
			Color:    tag.Color,
		})
	}
	b.Tags = &records
	return nil
}

func (e *Exporter) exportTests(ctx context.Context, ownerID string, subset map[string]bool, alloc *allocator, b *Bundle) error {
	items, err := e.store.Tests().List(ctx, ownerID)
	if err != nil {
		return err
	}
	records := make([]TestRecord, 0, len(items))
	for _, tst := range items {
		if !selected(subset, tst.ID) {
			continue
		}
		rec := TestRecord{
			ExportID:            alloc.assign(TypeTests, tst.ID),
			Name:                tst.Name,
			Description:         tst.Description,
			FlowConfigExportID:  alloc.lookup(TypeFlowConfigs, tst.FlowConfigID),
			QuestionSetExportID: alloc.lookup(TypeQuestionSets, tst.QuestionSetID),
			Threshold:           tst.Threshold,
		}
		for _, tagID := range tst.TagIDs {
			if exp := alloc.lookup(TypeTags, tagID); exp != "" {
				rec.TagExportIDs = append(rec.TagExportIDs, exp)
			}
		}
		records = append(records, rec)
	}
	b.Tests = &records
	return nil
}

func (e *Exporter) exportRuns(ctx context.Context, ownerID string, subset map[string]bool, alloc *allocator, b *Bundle) error {
	items, err := e.store.Runs().List(ctx, ownerID)
	if err != nil {
		return err
	}
	records := make([]RunRecord, 0, len(items))
	for _, run := range items {
		if !selected(subset, run.ID) {
			continue
		}
		records = append(records, RunRecord{
			ExportID:     alloc.assign(TypeRuns, run.ID),
			TestExportID: alloc.lookup(TypeTests, run.TestID),
			Status:       run.Status,
			Score:        run.Score,
			Results:      run.Results,
			StartedAt:    run.StartedAt,
			CompletedAt:  run.CompletedAt,
		})
	}
	b.Runs = &records
	return nil
}
