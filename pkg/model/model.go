// Package model defines the entity types managed by the flowcheck
// control plane. Every entity is owner-scoped: OwnerID identifies the
// account the entity belongs to and is never serialized into export
// bundles.
package model

import "time"

// FlowConfig describes how to call an AI flow endpoint under test.
type FlowConfig struct {
	ID              string            `json:"id"`
	OwnerID         string            `json:"ownerId"`
	Name            string            `json:"name"`
	Endpoint        string            `json:"endpoint"`
	Method          string            `json:"method,omitempty"`
	Headers         map[string]string `json:"headers,omitempty"`
	RequestTemplate string            `json:"requestTemplate,omitempty"`
	ResponsePath    string            `json:"responsePath,omitempty"`
	TimeoutSeconds  int               `json:"timeoutSeconds,omitempty"`

	// AuthToken is the credential sent to the flow endpoint. It is a
	// secret: it must never appear in an export bundle.
	AuthToken string `json:"authToken,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Question is a single prompt/expectation pair inside a question set.
type Question struct {
	Text     string `json:"text"`
	Expected string `json:"expected,omitempty"`
}

// QuestionSet groups the questions a test asks of a flow.
type QuestionSet struct {
	ID          string     `json:"id"`
	OwnerID     string     `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Questions   []Question `json:"questions,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Tag is a label attached to tests for organization and filtering.
type Tag struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Name      string    `json:"name"`
	Color     string    `json:"color,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Test binds a flow config, a question set, tags and an evaluator into
// a runnable evaluation definition. All references are storage ids and
// may be empty when the test is not fully wired yet.
type Test struct {
	ID            string    `json:"id"`
	OwnerID       string    `json:"ownerId"`
	Name          string    `json:"name"`
	Description   string    `json:"description,omitempty"`
	FlowConfigID  string    `json:"flowConfigId,omitempty"`
	QuestionSetID string    `json:"questionSetId,omitempty"`
	TagIDs        []string  `json:"tagIds,omitempty"`
	EvaluatorID   string    `json:"evaluatorId,omitempty"`
	Threshold     float64   `json:"threshold,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// RunResult is the per-question outcome captured during a run.
type RunResult struct {
	Question string  `json:"question"`
	Expected string  `json:"expected,omitempty"`
	Answer   string  `json:"answer,omitempty"`
	Score    float64 `json:"score"`
	Passed   bool    `json:"passed"`
}

// Run is one captured execution of a test. Runs have no natural key:
// repeated runs of the same test are expected and never deduplicated.
type Run struct {
	ID          string      `json:"id"`
	OwnerID     string      `json:"ownerId"`
	TestID      string      `json:"testId,omitempty"`
	Status      RunStatus   `json:"status"`
	Score       float64     `json:"score"`
	Results     []RunResult `json:"results,omitempty"`
	StartedAt   time.Time   `json:"startedAt"`
	CompletedAt time.Time   `json:"completedAt,omitempty"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// Evaluator configures how answers are judged. Evaluators are not an
// exportable entity type; tests exported without their evaluator are
// imported with the reference unset.
type Evaluator struct {
	ID      string `json:"id"`
	OwnerID string `json:"ownerId"`
	Name    string `json:"name"`
	Kind    string `json:"kind"`
	Model   string `json:"model,omitempty"`
	Prompt  string `json:"prompt,omitempty"`

	// APIKey is the judge-model credential. Secret, never exported.
	APIKey string `json:"apiKey,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
