package pipeline

import (
	"context"

	"github.com/jsperson/chathero/pkg/joins"
	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/planner"
	"github.com/jsperson/chathero/pkg/record"
	"github.com/jsperson/chathero/pkg/sandbox"
	"github.com/jsperson/chathero/pkg/validator"
)

// Phase is a stage of pipeline execution.
type Phase string

const (
	PhasePlanning     Phase = "planning"
	PhaseValidating   Phase = "validating"
	PhaseExecuting    Phase = "executing"
	PhaseProcessing   Phase = "processing"
	PhaseBudgeting    Phase = "budgeting"
	PhaseSynthesizing Phase = "synthesizing"
	PhaseDone         Phase = "done"
	PhaseFailed       Phase = "failed"
)

// Status qualifies a progress event.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusWarning   Status = "warning"
	StatusError     Status = "error"
)

// Progress is emitted at each phase transition for external progress UIs.
// The event shape is a stable contract.
type Progress struct {
	Phase  Phase  `json:"phase"`
	Status Status `json:"status"`
	Detail string `json:"detail,omitempty"`
}

// ProgressCallback receives progress events during a run.
type ProgressCallback func(Progress)

// Planner produces execution plans. Implemented by planner.Planner.
type Planner interface {
	Plan(ctx context.Context, question string, sample []record.Record, docs map[string]string, history []llm.Message, modelOverride string, retry *planner.RetryContext) planner.ExecutionPlan
}

// Validator gates generated code. Implemented by validator.Validator.
type Validator interface {
	Validate(ctx context.Context, code, description string) validator.Result
}

// Executor runs validated code in the sandbox. Implemented by
// sandbox.Executor.
type Executor interface {
	Execute(ctx context.Context, code string, records []record.Record) sandbox.Result
}

// Analyzer classifies dataset relationships. Implemented by joins.Analyzer.
type Analyzer interface {
	Analyze(ctx context.Context, question string, sample []record.Record, datasets []string) joins.Strategy
}

// Result is the complete outcome of one pipeline run.
type Result struct {
	Question string

	Plan       planner.ExecutionPlan
	Validation *validator.Result // nil when no code was generated
	Strategy   joins.Strategy

	Records     []record.Record // budgeted payload handed to synthesis
	TotalCount  int             // true pre-truncation record count
	SampleNote  string          // set when the payload was truncated
	Transformed bool            // whether sandbox output made it into Records

	Answer  string
	History []llm.Message // input history plus this request/response cycle
}
