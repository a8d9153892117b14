package bundle

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getflowcheck/flowcheck/pkg/model"
	"github.com/getflowcheck/flowcheck/pkg/store"
)

// exportAll round-trips ownerA's full graph through JSON the way the
// HTTP surface does, so import tests exercise the same document shape
// real clients send.
func exportAll(t *testing.T, s store.Store) *Bundle {
	t.Helper()
	b, err := NewExporter(s).Export(context.Background(), ownerA, ExportRequest{Types: allTypes()})
	require.NoError(t, err)

	doc, err := json.Marshal(b)
	require.NoError(t, err)
	parsed, err := Validate(doc)
	require.NoError(t, err)
	return parsed
}

func TestImportRoundTrip(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	res, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	// ownerB already has a "Checkout Flow", so that one is skipped;
	// everything else is new.
	assert.Equal(t, 0, res.Created[TypeFlowConfigs])
	assert.Equal(t, 1, res.Skipped[TypeFlowConfigs])
	assert.Equal(t, 1, res.Created[TypeQuestionSets])
	assert.Equal(t, 1, res.Created[TypeTags])
	assert.Equal(t, 1, res.Created[TypeTests])
	assert.Equal(t, 1, res.Created[TypeRuns])
	assert.Empty(t, res.Errors)

	imported, err := s.Tests().FindByName(ctx, ownerB, "Checkout smoke test")
	require.NoError(t, err)
	assert.Equal(t, ownerB, imported.OwnerID)
}

func TestImportRoundTripIntoFreshOwner(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	res, err := NewImporter(s).Execute(ctx, "owner-fresh", b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	for _, typ := range OrderedTypes {
		assert.Equal(t, 1, res.Created[typ], "%s created", typ)
		assert.Zero(t, res.Skipped[typ], "%s skipped", typ)
	}
	assert.Empty(t, res.Errors)

	fc, err := s.FlowConfigs().FindByName(ctx, "owner-fresh", "Checkout Flow")
	require.NoError(t, err)
	tst, err := s.Tests().FindByName(ctx, "owner-fresh", "Checkout smoke test")
	require.NoError(t, err)
	assert.Equal(t, fc.ID, tst.FlowConfigID)
}

func TestImportAssignsFreshStorageIDs(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	_, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategyRename})
	require.NoError(t, err)

	source, err := s.QuestionSets().FindByName(ctx, ownerA, "Checkout Questions")
	require.NoError(t, err)
	imported, err := s.QuestionSets().FindByName(ctx, ownerB, "Checkout Questions")
	require.NoError(t, err)
	assert.NotEqual(t, source.ID, imported.ID)
}

func TestImportIdempotentUnderSkip(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()
	imp := NewImporter(s)

	first, err := imp.Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)
	second, err := imp.Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	for _, typ := range []EntityType{TypeFlowConfigs, TypeQuestionSets, TypeTags, TypeTests} {
		assert.Zero(t, second.Created[typ], "%s created again on re-import", typ)
		assert.Equal(t, first.Created[typ]+first.Skipped[typ], second.Skipped[typ], "%s skip count", typ)
	}
	// Runs have no natural key and are created every time.
	assert.Equal(t, 1, second.Created[TypeRuns])

	runs, err := s.Runs().List(ctx, ownerB)
	require.NoError(t, err)
	assert.Len(t, runs, 2)
}

func TestImportOverwriteUpdatesInPlace(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	existing, err := s.FlowConfigs().FindByName(ctx, ownerB, "Checkout Flow")
	require.NoError(t, err)
	priorID, priorToken := existing.ID, existing.AuthToken

	res, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategyOverwrite})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Overwritten[TypeFlowConfigs])

	updated, err := s.FlowConfigs().FindByName(ctx, ownerB, "Checkout Flow")
	require.NoError(t, err)
	assert.Equal(t, priorID, updated.ID)
	assert.Equal(t, "https://flows.example.com/checkout", updated.Endpoint)
	// The bundle carries no credential; overwrite keeps the existing one.
	assert.Equal(t, priorToken, updated.AuthToken)
}

func TestImportRenameCreatesSuffixedEntity(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	res, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategyRename})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Renamed[TypeFlowConfigs])

	renamed, err := s.FlowConfigs().FindByName(ctx, ownerB, "Checkout Flow"+RenameSuffix)
	require.NoError(t, err)
	original, err := s.FlowConfigs().FindByName(ctx, ownerB, "Checkout Flow")
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, renamed.ID)
	assert.Equal(t, "https://other.example.com/checkout", original.Endpoint)
}

func TestImportRewritesReferences(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	_, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategyRename})
	require.NoError(t, err)

	tst, err := s.Tests().FindByName(ctx, ownerB, "Checkout smoke test")
	require.NoError(t, err)

	// The imported test must point at ownerB's copies, resolvable
	// through ownerB's store, never at the source storage ids.
	fc, err := s.FlowConfigs().Get(ctx, ownerB, tst.FlowConfigID)
	require.NoError(t, err)
	assert.Equal(t, "Checkout Flow"+RenameSuffix, fc.Name)

	qs, err := s.QuestionSets().Get(ctx, ownerB, tst.QuestionSetID)
	require.NoError(t, err)
	assert.Equal(t, "Checkout Questions", qs.Name)

	require.Len(t, tst.TagIDs, 1)
	_, err = s.Tags().Get(ctx, ownerB, tst.TagIDs[0])
	require.NoError(t, err)

	runs, err := s.Runs().List(ctx, ownerB)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, tst.ID, runs[0].TestID)
}

func TestImportSkipBindsDependentsToExistingEntity(t *testing.T) {
	s := seedStore(t)
	b := exportAll(t, s)
	ctx := context.Background()

	_, err := NewImporter(s).Execute(ctx, ownerB, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	existing, err := s.FlowConfigs().FindByName(ctx, ownerB, "Checkout Flow")
	require.NoError(t, err)
	tst, err := s.Tests().FindByName(ctx, ownerB, "Checkout smoke test")
	require.NoError(t, err)
	assert.Equal(t, existing.ID, tst.FlowConfigID)
}

func TestImportIdenticalRunsAreNeverDeduplicated(t *testing.T) {
	s := store.NewMemory()
	ctx := context.Background()

	runs := []RunRecord{
		{ExportID: "exp_aaaaaaaaaaaaaaaa", Status: model.RunStatusCompleted, Score: 0.5},
		{ExportID: "exp_bbbbbbbbbbbbbbbb", Status: model.RunStatusCompleted, Score: 0.5},
	}
	b := &Bundle{Metadata: Metadata{Version: Version}, Runs: &runs}

	res, err := NewImporter(s).Execute(ctx, ownerA, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created[TypeRuns])

	stored, err := s.Runs().List(ctx, ownerA)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestImportEmptyBundle(t *testing.T) {
	s := store.NewMemory()

	res, err := NewImporter(s).Execute(context.Background(), ownerA, &Bundle{
		Metadata: Metadata{Version: Version},
	}, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	for _, typ := range OrderedTypes {
		assert.Zero(t, res.Created[typ])
		assert.Zero(t, res.Skipped[typ])
		assert.Zero(t, res.Overwritten[typ])
		assert.Zero(t, res.Renamed[typ])
	}
	assert.Empty(t, res.Errors)
}

func TestImportRejectsUnknownStrategy(t *testing.T) {
	_, err := NewImporter(store.NewMemory()).Execute(context.Background(), ownerA, &Bundle{
		Metadata: Metadata{Version: Version},
	}, ImportOptions{ConflictStrategy: "merge"})
	assert.Error(t, err)
}

// failingTagStore rejects writes so record-level error handling can be
// observed without touching other types.
type failingTagStore struct {
	store.TagStore
}

var errTagWrite = errors.New("tag backend unavailable")

func (f *failingTagStore) Create(context.Context, *model.Tag) error { return errTagWrite }

type failingTagStoreWrapper struct {
	store.Store
	tags store.TagStore
}

func (w *failingTagStoreWrapper) Tags() store.TagStore { return w.tags }

func TestImportContinuesPastRecordErrors(t *testing.T) {
	mem := store.NewMemory()
	s := &failingTagStoreWrapper{Store: mem, tags: &failingTagStore{TagStore: mem.Tags()}}
	ctx := context.Background()

	tags := []TagRecord{{ExportID: "exp_aaaaaaaaaaaaaaaa", Name: "regression"}}
	sets := []QuestionSetRecord{{ExportID: "exp_bbbbbbbbbbbbbbbb", Name: "Smoke Questions"}}
	b := &Bundle{Metadata: Metadata{Version: Version}, Tags: &tags, QuestionSets: &sets}

	res, err := NewImporter(s).Execute(ctx, ownerA, b, ImportOptions{ConflictStrategy: StrategySkip})
	require.NoError(t, err)

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "regression")
	assert.Zero(t, res.Created[TypeTags])
	assert.Equal(t, 1, res.Created[TypeQuestionSets])
}
