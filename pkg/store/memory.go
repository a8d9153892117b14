package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/getflowcheck/flowcheck/internal/id"
	"github.com/getflowcheck/flowcheck/pkg/model"
)

// accessors tells the generic collection how to read and write the
// identity fields of an entity type.
type accessors[T any] struct {
	id      func(*T) string
	setID   func(*T, string)
	owner   func(*T) string
	name    func(*T) string // returns "" for types without a natural key
	created func(*T) time.Time
}

// collection is a thread-safe in-memory table for one entity type.
type collection[T any] struct {
	mu    sync.RWMutex
	items map[string]*T
	acc   accessors[T]
}

func newCollection[T any](acc accessors[T]) *collection[T] {
	return &collection[T]{items: make(map[string]*T), acc: acc}
}

// list returns the owner's entities ordered by creation time then id,
// so repeated listings (and therefore exports) are deterministic.
func (c *collection[T]) list(ownerID string) []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*T, 0)
	for _, item := range c.items {
		if c.acc.owner(item) == ownerID {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		ti, tj := c.acc.created(out[i]), c.acc.created(out[j])
		if !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return c.acc.id(out[i]) < c.acc.id(out[j])
	})
	return out
}

func (c *collection[T]) get(ownerID, entityID string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[entityID]
	if !ok || c.acc.owner(item) != ownerID {
		return nil, ErrNotFound
	}
	return item, nil
}

func (c *collection[T]) findByName(ownerID, name string) (*T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, item := range c.items {
		if c.acc.owner(item) == ownerID && c.acc.name(item) == name {
			return item, nil
		}
	}
	return nil, ErrNotFound
}

func (c *collection[T]) create(item *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.acc.id(item) == "" {
		c.acc.setID(item, id.Storage())
	}
	if _, exists := c.items[c.acc.id(item)]; exists {
		return ErrAlreadyExists
	}
	c.items[c.acc.id(item)] = item
	return nil
}

func (c *collection[T]) update(item *T) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, ok := c.items[c.acc.id(item)]
	if !ok || c.acc.owner(existing) != c.acc.owner(item) {
		return ErrNotFound
	}
	c.items[c.acc.id(item)] = item
	return nil
}

func (c *collection[T]) delete(ownerID, entityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.items[entityID]
	if !ok || c.acc.owner(item) != ownerID {
		return ErrNotFound
	}
	delete(c.items, entityID)
	return nil
}

// Memory is an in-memory Store implementation. It backs the server in
// single-node deployments and every test in this repository.
type Memory struct {
	flowConfigs  *flowConfigMem
	questionSets *questionSetMem
	tags         *tagMem
	tests        *testMem
	runs         *runMem
	evaluators   *evaluatorMem
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		flowConfigs: &flowConfigMem{newCollection(accessors[model.FlowConfig]{
			id:      func(f *model.FlowConfig) string { return f.ID },
			setID:   func(f *model.FlowConfig, v string) { f.ID = v },
			owner:   func(f *model.FlowConfig) string { return f.OwnerID },
			name:    func(f *model.FlowConfig) string { return f.Name },
			created: func(f *model.FlowConfig) time.Time { return f.CreatedAt },
		})},
		questionSets: &questionSetMem{newCollection(accessors[model.QuestionSet]{
			id:      func(q *model.QuestionSet) string { return q.ID },
			setID:   func(q *model.QuestionSet, v string) { q.ID = v },
			owner:   func(q *model.QuestionSet) string { return q.OwnerID },
			name:    func(q *model.QuestionSet) string { return q.Name },
			created: func(q *model.QuestionSet) time.Time { return q.CreatedAt },
		})},
		tags: &tagMem{newCollection(accessors[model.Tag]{
			id:      func(t *model.Tag) string { return t.ID },
			setID:   func(t *model.Tag, v string) { t.ID = v },
			owner:   func(t *model.Tag) string { return t.OwnerID },
			name:    func(t *model.Tag) string { return t.Name },
			created: func(t *model.Tag) time.Time { return t.CreatedAt },
		})},
		tests: &testMem{newCollection(accessors[model.Test]{
			id:      func(t *model.Test) string { return t.ID },
			setID:   func(t *model.Test, v string) { t.ID = v },
			owner:   func(t *model.Test) string { return t.OwnerID },
			name:    func(t *model.Test) string { return t.Name },
			created: func(t *model.Test) time.Time { return t.CreatedAt },
		})},
		runs: &runMem{newCollection(accessors[model.Run]{
			id:      func(r *model.Run) string { return r.ID },
			setID:   func(r *model.Run, v string) { r.ID = v },
			owner:   func(r *model.Run) string { return r.OwnerID },
			name:    func(r *model.Run) string { return "" },
			created: func(r *model.Run) time.Time { return r.CreatedAt },
		})},
		evaluators: &evaluatorMem{newCollection(accessors[model.Evaluator]{
			id:      func(e *model.Evaluator) string { return e.ID },
			setID:   func(e *model.Evaluator, v string) { e.ID = v },
			owner:   func(e *model.Evaluator) string { return e.OwnerID },
			name:    func(e *model.Evaluator) string { return e.Name },
			created: func(e *model.Evaluator) time.Time { return e.CreatedAt },
		})},
	}
}

func (m *Memory) FlowConfigs() FlowConfigStore   { return m.flowConfigs }
func (m *Memory) QuestionSets() QuestionSetStore { return m.questionSets }
func (m *Memory) Tags() TagStore                 { return m.tags }
func (m *Memory) Tests() TestStore               { return m.tests }
func (m *Memory) Runs() RunStore                 { return m.runs }
func (m *Memory) Evaluators() EvaluatorStore     { return m.evaluators }

var _ Store = (*Memory)(nil)

type flowConfigMem struct{ c *collection[model.FlowConfig] }

func (s *flowConfigMem) List(_ context.Context, ownerID string) ([]*model.FlowConfig, error) {
	return s.c.list(ownerID), nil
}
func (s *flowConfigMem) Get(_ context.Context, ownerID, entityID string) (*model.FlowConfig, error) {
	return s.c.get(ownerID, entityID)
}
func (s *flowConfigMem) FindByName(_ context.Context, ownerID, name string) (*model.FlowConfig, error) {
	return s.c.findByName(ownerID, name)
}
func (s *flowConfigMem) Create(_ context.Context, fc *model.FlowConfig) error { return s.c.create(fc) }
func (s *flowConfigMem) Update(_ context.Context, fc *model.FlowConfig) error { return s.c.update(fc) }
func (s *flowConfigMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}

type questionSetMem struct{ c *collection[model.QuestionSet] }

func (s *questionSetMem) List(_ context.Context, ownerID string) ([]*model.QuestionSet, error) {
	return s.c.list(ownerID), nil
}
func (s *questionSetMem) Get(_ context.Context, ownerID, entityID string) (*model.QuestionSet, error) {
	return s.c.get(ownerID, entityID)
}
func (s *questionSetMem) FindByName(_ context.Context, ownerID, name string) (*model.QuestionSet, error) {
	return s.c.findByName(ownerID, name)
}
func (s *questionSetMem) Create(_ context.Context, qs *model.QuestionSet) error {
	return s.c.create(qs)
}
func (s *questionSetMem) Update(_ context.Context, qs *model.QuestionSet) error {
	return s.c.update(qs)
}
func (s *questionSetMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}

type tagMem struct{ c *collection[model.Tag] }

func (s *tagMem) List(_ context.Context, ownerID string) ([]*model.Tag, error) {
	return s.c.list(ownerID), nil
}
func (s *tagMem) Get(_ context.Context, ownerID, entityID string) (*model.Tag, error) {
	return s.c.get(ownerID, entityID)
}
func (s *tagMem) FindByName(_ context.Context, ownerID, name string) (*model.Tag, error) {
	return s.c.findByName(ownerID, name)
}
func (s *tagMem) Create(_ context.Context, tag *model.Tag) error { return s.c.create(tag) }
func (s *tagMem) Update(_ context.Context, tag *model.Tag) error { return s.c.update(tag) }
func (s *tagMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}

type testMem struct{ c *collection[model.Test] }

func (s *testMem) List(_ context.Context, ownerID string) ([]*model.Test, error) {
	return s.c.list(ownerID), nil
}
func (s *testMem) Get(_ context.Context, ownerID, entityID string) (*model.Test, error) {
	return s.c.get(ownerID, entityID)
}
func (s *testMem) FindByName(_ context.Context, ownerID, name string) (*model.Test, error) {
	return s.c.findByName(ownerID, name)
}
func (s *testMem) Create(_ context.Context, tst *model.Test) error { return s.c.create(tst) }
func (s *testMem) Update(_ context.Context, tst *model.Test) error { return s.c.update(tst) }
func (s *testMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}

type runMem struct{ c *collection[model.Run] }

func (s *runMem) List(_ context.Context, ownerID string) ([]*model.Run, error) {
	return s.c.list(ownerID), nil
}
func (s *runMem) Get(_ context.Context, ownerID, entityID string) (*model.Run, error) {
	return s.c.get(ownerID, entityID)
}
func (s *runMem) Create(_ context.Context, run *model.Run) error { return s.c.create(run) }
func (s *runMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}

type evaluatorMem struct{ c *collection[model.Evaluator] }

func (s *evaluatorMem) List(_ context.Context, ownerID string) ([]*model.Evaluator, error) {
	return s.c.list(ownerID), nil
}
func (s *evaluatorMem) Get(_ context.Context, ownerID, entityID string) (*model.Evaluator, error) {
	return s.c.get(ownerID, entityID)
}
func (s *evaluatorMem) FindByName(_ context.Context, ownerID, name string) (*model.Evaluator, error) {
	return s.c.findByName(ownerID, name)
}
func (s *evaluatorMem) Create(_ context.Context, ev *model.Evaluator) error { return s.c.create(ev) }
func (s *evaluatorMem) Update(_ context.Context, ev *model.Evaluator) error { return s.c.update(ev) }
func (s *evaluatorMem) Delete(_ context.Context, ownerID, entityID string) error {
	return s.c.delete(ownerID, entityID)
}
