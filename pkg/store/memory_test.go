package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/getflowcheck/flowcheck/pkg/model"
)

func TestMemoryCreateAssignsID(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	fc := &model.FlowConfig{OwnerID: "owner-a", Name: "Prod Flow", CreatedAt: time.Now()}
	require.NoError(t, s.FlowConfigs().Create(ctx, fc))
	assert.NotEmpty(t, fc.ID)

	got, err := s.FlowConfigs().Get(ctx, "owner-a", fc.ID)
	require.NoError(t, err)
	assert.Equal(t, "Prod Flow", got.Name)
}

func TestMemoryOwnerScoping(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	fc := &model.FlowConfig{OwnerID: "owner-a", Name: "Prod Flow"}
	require.NoError(t, s.FlowConfigs().Create(ctx, fc))

	// Another owner cannot see the entity through any read path.
	_, err := s.FlowConfigs().Get(ctx, "owner-b", fc.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = s.FlowConfigs().FindByName(ctx, "owner-b", "Prod Flow")
	assert.ErrorIs(t, err, ErrNotFound)

	list, err := s.FlowConfigs().List(ctx, "owner-b")
	require.NoError(t, err)
	assert.Empty(t, list)

	// Nor delete it.
	assert.ErrorIs(t, s.FlowConfigs().Delete(ctx, "owner-b", fc.ID), ErrNotFound)
}

func TestMemoryFindByNameIsCaseSensitive(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	require.NoError(t, s.Tags().Create(ctx, &model.Tag{OwnerID: "owner-a", Name: "Smoke"}))

	_, err := s.Tags().FindByName(ctx, "owner-a", "smoke")
	assert.ErrorIs(t, err, ErrNotFound)

	tag, err := s.Tags().FindByName(ctx, "owner-a", "Smoke")
	require.NoError(t, err)
	assert.Equal(t, "Smoke", tag.Name)
}

func TestMemoryListOrderIsDeterministic(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, name := range []string{"first", "second", "third"} {
		require.NoError(t, s.Tests().Create(ctx, &model.Test{
			OwnerID:   "owner-a",
			Name:      name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	list, err := s.Tests().List(ctx, "owner-a")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, "third", list[2].Name)
}

func TestMemoryDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	run := &model.Run{ID: "fixed", OwnerID: "owner-a"}
	require.NoError(t, s.Runs().Create(ctx, run))
	assert.ErrorIs(t, s.Runs().Create(ctx, &model.Run{ID: "fixed", OwnerID: "owner-a"}), ErrAlreadyExists)
}

func TestMemoryUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	ev := &model.Evaluator{OwnerID: "owner-a", Name: "Judge", Kind: "llm-judge"}
	require.NoError(t, s.Evaluators().Create(ctx, ev))

	ev.Model = "judge-large"
	require.NoError(t, s.Evaluators().Update(ctx, ev))

	got, err := s.Evaluators().Get(ctx, "owner-a", ev.ID)
	require.NoError(t, err)
	assert.Equal(t, "judge-large", got.Model)

	// Updating a nonexistent entity fails.
	assert.ErrorIs(t, s.Evaluators().Update(ctx, &model.Evaluator{ID: "missing", OwnerID: "owner-a"}), ErrNotFound)
}
