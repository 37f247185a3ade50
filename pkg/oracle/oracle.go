// Package oracle defines the pluggable LLM oracle trait the core consumes
// (spec §6, §9 "Mocked LLM queue in tests → pluggable oracle trait") and the
// JSON-salvage helper used to recover a schema-valid object from an oracle
// response that may carry surplus text (spec §6).
//
// The oracle itself — the LLM client — is out of scope (spec §1); this
// package only defines the seam the core calls through and a deterministic
// test double, grounded in the teacher's canned-response test fixtures for
// its own LLM client seam.
package oracle

import (
	"context"
	"fmt"
)

// Intent is the closed set of intents recognizeIntent may return (spec §6).
type Intent string

const (
	IntentCreateProject Intent = "create_project"
	IntentCreateTask    Intent = "create_task"
	IntentListProjects  Intent = "list_projects"
	IntentListTasks     Intent = "list_tasks"
	IntentUpdateProject Intent = "update_project"
	IntentCheckStatus   Intent = "check_status"
	IntentRunTask       Intent = "run_task"
	IntentParsePRD      Intent = "parse_prd"
	IntentParseTasks    Intent = "parse_tasks"
	IntentImportArtifact Intent = "import_artifact"
	IntentUnknown       Intent = "unknown"
)

// IntentResult is recognizeIntent's return value (spec §6).
type IntentResult struct {
	Intent       Intent         `json:"intent"`
	Confidence   float64        `json:"confidence"`
	Parameters   map[string]any `json:"parameters"`
	Alternatives []Intent       `json:"alternatives,omitempty"`
}

// AtomicRequest is detectAtomic's input: the minimal task/project shape the
// oracle needs to judge atomicity, decoupled from pkg/domain so this
// package has no dependency on the full entity model.
type AtomicRequest struct {
	Title              string
	Description        string
	EstimatedHours     float64
	AcceptanceCriteria int
	FilePaths          int
	ProjectContext     string
}

// AtomicResult is detectAtomic's return value (spec §4.7, §6).
type AtomicResult struct {
	IsAtomic           bool     `json:"isAtomic"`
	Confidence         float64  `json:"confidence"`
	Reasoning          string   `json:"reasoning"`
	EstimatedHours     float64  `json:"estimatedHours"`
	ComplexityFactors  []string `json:"complexityFactors,omitempty"`
	Recommendations    []string `json:"recommendations,omitempty"`
}

// DecomposeRequest is decomposeTask's input.
type DecomposeRequest struct {
	Title          string
	Description    string
	EstimatedHours float64
	ProjectContext string
}

// ChildTask is one decomposition candidate (spec §4.8 step 3).
type ChildTask struct {
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	EstimatedHours     float64  `json:"estimatedHours"`
	AcceptanceCriteria []string `json:"acceptanceCriteria"`
	Priority           string   `json:"priority"`
	Tags               []string `json:"tags,omitempty"`
}

// DecomposeResult is decomposeTask's return value.
type DecomposeResult struct {
	Tasks []ChildTask `json:"tasks"`
}

// Client is the oracle seam the core is injected with at construction
// (spec §9). Every call is expected to honor ctx cancellation.
type Client interface {
	RecognizeIntent(ctx context.Context, utterance string, context map[string]any) (*IntentResult, error)
	DetectAtomic(ctx context.Context, req AtomicRequest) (*AtomicResult, error)
	DecomposeTask(ctx context.Context, req DecomposeRequest) (*DecomposeResult, error)
}

// Unavailable is a sentinel the production client returns when the
// out-of-scope LLM backend cannot be reached, so callers can distinguish
// "oracle said no" from "oracle absent" (spec §4.7: "if the oracle is
// unreachable, fall back to the heuristic").
type Unavailable struct{ Err error }

func (u *Unavailable) Error() string { return fmt.Sprintf("oracle unavailable: %v", u.Err) }
func (u *Unavailable) Unwrap() error { return u.Err }
