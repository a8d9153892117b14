// Package store is the entity store adapter: owner-scoped persistence
// interfaces for every entity type, plus an in-memory implementation.
//
// All lookups are scoped to an owner id. A Get or FindByName for an
// entity owned by someone else behaves exactly like a miss, so callers
// can never observe another owner's data through this layer.
package store

import (
	"context"
	"errors"

	"github.com/getflowcheck/flowcheck/pkg/model"
)

// Common errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
)

// FlowConfigStore handles flow configuration persistence.
type FlowConfigStore interface {
	List(ctx context.Context, ownerID string) ([]*model.FlowConfig, error)
	Get(ctx context.Context, ownerID, id string) (*model.FlowConfig, error)
	// FindByName looks up an entity by its natural key (exact,
	// case-sensitive). Returns ErrNotFound on a miss.
	FindByName(ctx context.Context, ownerID, name string) (*model.FlowConfig, error)
	Create(ctx context.Context, fc *model.FlowConfig) error
	Update(ctx context.Context, fc *model.FlowConfig) error
	Delete(ctx context.Context, ownerID, id string) error
}

// QuestionSetStore handles question set persistence.
type QuestionSetStore interface {
	List(ctx context.Context, ownerID string) ([]*model.QuestionSet, error)
	Get(ctx context.Context, ownerID, id string) (*model.QuestionSet, error)
	FindByName(ctx context.Context, ownerID, name string) (*model.QuestionSet, error)
	Create(ctx context.Context, qs *model.QuestionSet) error
	Update(ctx context.Context, qs *model.QuestionSet) error
	Delete(ctx context.Context, ownerID, id string) error
}

// TagStore handles tag persistence.
type TagStore interface {
	List(ctx context.Context, ownerID string) ([]*model.Tag, error)
	Get(ctx context.Context, ownerID, id string) (*model.Tag, error)
	FindByName(ctx context.Context, ownerID, name string) (*model.Tag, error)
	Create(ctx context.Context, tag *model.Tag) error
	Update(ctx context.Context, tag *model.Tag) error
	Delete(ctx context.Context, ownerID, id string) error
}

// TestStore handles test persistence.
type TestStore interface {
	List(ctx context.Context, ownerID string) ([]*model.Test, error)
	Get(ctx context.Context, ownerID, id string) (*model.Test, error)
	FindByName(ctx context.Context, ownerID, name string) (*model.Test, error)
	Create(ctx context.Context, tst *model.Test) error
	Update(ctx context.Context, tst *model.Test) error
	Delete(ctx context.Context, ownerID, id string) error
}

// RunStore handles run persistence. Runs have no natural key and are
// never updated in place, so the interface is narrower.
type RunStore interface {
	List(ctx context.Context, ownerID string) ([]*model.Run, error)
	Get(ctx context.Context, ownerID, id string) (*model.Run, error)
	Create(ctx context.Context, run *model.Run) error
	Delete(ctx context.Context, ownerID, id string) error
}

// EvaluatorStore handles evaluator persistence. Evaluators are not
// exportable; the store exists so tests can reference them.
type EvaluatorStore interface {
	List(ctx context.Context, ownerID string) ([]*model.Evaluator, error)
	Get(ctx context.Context, ownerID, id string) (*model.Evaluator, error)
	FindByName(ctx context.Context, ownerID, name string) (*model.Evaluator, error)
	Create(ctx context.Context, ev *model.Evaluator) error
	Update(ctx context.Context, ev *model.Evaluator) error
	Delete(ctx context.Context, ownerID, id string) error
}

// Store aggregates the per-entity-type stores.
type Store interface {
	FlowConfigs() FlowConfigStore
	QuestionSets() QuestionSetStore
	Tags() TagStore
	Tests() TestStore
	Runs() RunStore
	Evaluators() EvaluatorStore
}
