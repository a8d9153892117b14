package bundle

import (
	"context"
	"errors"
	"fmt"

	"github.com/getflowcheck/flowcheck/pkg/store"
)

// ConflictRecord describes an incoming record whose natural key
// matches an entity the destination owner already has.
type ConflictRecord struct {
	Type             EntityType `json:"type"`
	IncomingExportID string     `json:"incomingExportId"`
	Name             string     `json:"name"`
	ExistingID       string     `json:"existingId"`
	ExistingSummary  string     `json:"existingSummary,omitempty"`
}

// PreviewResult is the read-only import preview: what would be
// created, what collides, and nothing mutated.
type PreviewResult struct {
	ToCreate  map[EntityType]int `json:"toCreate"`
	Conflicts []ConflictRecord   `json:"conflicts"`
	Errors    []string           `json:"errors"`
}

// Detector performs natural-key conflict detection against the
// destination owner's existing entities. It only ever reads.
type Detector struct {
	store store.Store
}

// NewDetector creates a Detector backed by the given store.
func NewDetector(s store.Store) *Detector {
	return &Detector{store: s}
}

// findExisting looks up an entity of type t owned by ownerID whose
// natural key equals name (exact, case-sensitive). Returns the
// existing entity's storage id and a human-readable summary, or
// store.ErrNotFound when the incoming record is creatable.
func (d *Detector) findExisting(ctx context.Context, ownerID string, t EntityType, name string) (string, string, error) {
	switch t {
	case TypeFlowConfigs:
		fc, err := d.store.FlowConfigs().FindByName(ctx, ownerID, name)
		if err != nil {
			return "", "", err
		}
		return fc.ID, fmt.Sprintf("flow config %q", fc.Name), nil
	case TypeQuestionSets:
		qs, err := d.store.QuestionSets().FindByName(ctx, ownerID, name)
		if err != nil {
			return "", "", err
		}
		return qs.ID, fmt.Sprintf("question set %q (%d questions)", qs.Name, len(qs.Questions)), nil
	case TypeTags:
		tag, err := d.store.Tags().FindByName(ctx, ownerID, name)
		if err != nil {
			return "", "", err
		}
		return tag.ID, fmt.Sprintf("tag %q", tag.Name), nil
	case TypeTests:
		tst, err := d.store.Tests().FindByName(ctx, ownerID, name)
		if err != nil {
			return "", "", err
		}
		return tst.ID, fmt.Sprintf("test %q", tst.Name), nil
	}
	return "", "", store.ErrNotFound
}

// recordKey is the (exportId, natural key) projection of one record,
// used by detection paths that do not care about the full payload.
type recordKey struct {
	exportID string
	name     string
}

// recordKeys extracts the key projection for one present bundle type.
func recordKeys(b *Bundle, t EntityType) []recordKey {
	var keys []recordKey
	switch t {
	case TypeFlowConfigs:
		for _, r := range *b.FlowConfigs {
			keys = append(keys, recordKey{r.ExportID, r.Name})
		}
	case TypeQuestionSets:
		for _, r := range *b.QuestionSets {
			keys = append(keys, recordKey{r.ExportID, r.Name})
		}
	case TypeTags:
		for _, r := range *b.Tags {
			keys = append(keys, recordKey{r.ExportID, r.Name})
		}
	case TypeTests:
		for _, r := range *b.Tests {
			keys = append(keys, recordKey{r.ExportID, r.Name})
		}
	case TypeRuns:
		for _, r := range *b.Runs {
			keys = append(keys, recordKey{r.ExportID, ""})
		}
	}
	return keys
}

// Preview classifies every record in the bundle against the
// destination owner's entities without mutating anything. Calling it
// any number of times never changes state.
func (d *Detector) Preview(ctx context.Context, ownerID string, b *Bundle) (*PreviewResult, error) {
	res := &PreviewResult{
		ToCreate:  make(map[EntityType]int),
		Conflicts: []ConflictRecord{},
		Errors:    []string{},
	}

	for _, t := range OrderedTypes {
		if !b.Has(t) {
			continue
		}
		for _, key := range recordKeys(b, t) {
			if !t.HasNaturalKey() {
				res.ToCreate[t]++
				continue
			}
			existingID, summary, err := d.findExisting(ctx, ownerID, t, key.name)
			switch {
			case errors.Is(err, store.ErrNotFound):
				res.ToCreate[t]++
			case err != nil:
				return nil, fmt.Errorf("preview %s: %w", t, err)
			default:
				res.Conflicts = append(res.Conflicts, ConflictRecord{
					Type:             t,
					IncomingExportID: key.exportID,
					Name:             key.name,
					ExistingID:       existingID,
					ExistingSummary:  summary,
				})
			}
		}
	}
	return res, nil
}
