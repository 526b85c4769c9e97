// Package planner turns a natural-language question into an execution plan:
// deterministic filters plus optional pandas transformation code.
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/planner/prompts"
	"github.com/jsperson/chathero/pkg/record"
)

// Filter operators understood by the data processor.
const (
	OpEquals      = "equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpBetween     = "between"
)

// Filter is a single deterministic predicate over a record field.
type Filter struct {
	Field    string `json:"field"`
	Operator string `json:"operator"`
	Value    any    `json:"value"`
}

// ExecutionPlan is the structured instruction set produced by the planner.
type ExecutionPlan struct {
	Filters         []Filter `json:"filters"`
	FieldsToInclude []string `json:"fieldsToInclude"`
	Limit           int      `json:"limit,omitempty"`
	GeneratedCode   string   `json:"generatedCode,omitempty"`
	CodeDescription string   `json:"codeDescription,omitempty"`
	Explanation     string   `json:"explanation"`
}

// RetryContext carries a previous failing attempt back into planning so the
// model can produce a correction instead of a repeat.
type RetryContext struct {
	PreviousCode string
	Error        string
	Attempt      int // 1 or 2
}

// Planner generates execution plans with an LLM.
type Planner struct {
	llm llm.Client
	log *slog.Logger

	planPrompt string
}

// New creates a Planner with the embedded plan prompt.
func New(log *slog.Logger, client llm.Client) (*Planner, error) {
	data, err := prompts.PromptsFS.ReadFile("PLAN.md")
	if err != nil {
		return nil, fmt.Errorf("failed to load PLAN prompt: %w", err)
	}
	return &Planner{
		llm:        client,
		log:        log,
		planPrompt: strings.TrimSpace(string(data)),
	}, nil
}

// Plan produces an execution plan for a question. It never returns an error
// for model or parse failures; those degrade to a fallback plan so the
// pipeline always has something deterministic to run.
func (p *Planner) Plan(ctx context.Context, question string, sample []record.Record, docs map[string]string, history []llm.Message, modelOverride string, retry *RetryContext) ExecutionPlan {
	userPrompt := p.buildUserPrompt(question, sample, docs, history, retry)

	opts := []llm.Option{llm.WithStructuredOutput()}
	if modelOverride != "" {
		opts = append(opts, llm.WithModel(modelOverride))
	}

	response, err := p.llm.Complete(ctx, p.planPrompt, userPrompt, opts...)
	if err != nil {
		p.log.Warn("planner: LLM call failed, using fallback plan", "error", err)
		return fallbackPlan(sample)
	}

	plan, err := parsePlanResponse(response)
	if err != nil {
		p.log.Warn("planner: unparsable plan, using fallback", "error", err)
		return fallbackPlan(sample)
	}

	repairFields(&plan, sample)
	return plan
}

func (p *Planner) buildUserPrompt(question string, sample []record.Record, docs map[string]string, history []llm.Message, retry *RetryContext) string {
	var sb strings.Builder

	for name, doc := range docs {
		if doc == "" {
			continue
		}
		sb.WriteString(fmt.Sprintf("## Dataset documentation: %s\n%s\n\n", name, doc))
	}

	sb.WriteString("## Sample records\n")
	if data, err := json.MarshalIndent(sample, "", "  "); err == nil {
		sb.Write(data)
	}
	sb.WriteString("\n\n")

	if len(history) > 0 {
		sb.WriteString("## Previous conversation\n")
		for _, msg := range history {
			if msg.Role == "user" {
				sb.WriteString(fmt.Sprintf("User: %s\n", msg.Content))
				continue
			}
			// Truncate long assistant responses to save context.
			content := msg.Content
			if len(content) > 500 {
				content = content[:500] + "..."
			}
			sb.WriteString(fmt.Sprintf("Assistant: %s\n", content))
		}
		sb.WriteString("\nThe current question may be a follow-up that modifies the previous intent.\n\n")
	}

	if retry != nil {
		sb.WriteString(fmt.Sprintf(`## Previous attempt failed (attempt %d)

The code below failed when executed. Generate a CORRECTED plan, not a repeat.

Failed code:
%s

Error:
%s

`, retry.Attempt, retry.PreviousCode, retry.Error))
	}

	sb.WriteString("## Question\n")
	sb.WriteString(question)
	return sb.String()
}

func parsePlanResponse(response string) (ExecutionPlan, error) {
	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return ExecutionPlan{}, fmt.Errorf("no JSON found in response")
	}
	var plan ExecutionPlan
	if err := json.Unmarshal([]byte(jsonStr), &plan); err != nil {
		return ExecutionPlan{}, fmt.Errorf("failed to parse plan: %w", err)
	}
	return plan, nil
}

// fallbackPlan is the conservative plan used when the model is unusable:
// no filters, no code, every sampled field included.
func fallbackPlan(sample []record.Record) ExecutionPlan {
	return ExecutionPlan{
		FieldsToInclude: record.Fields(sample),
		Explanation:     "Fallback plan: planning failed, returning unfiltered data",
	}
}

// repairFields enforces the plan invariant: fieldsToInclude is a superset of
// every field referenced by filters and by the generated code.
func repairFields(plan *ExecutionPlan, sample []record.Record) {
	if len(plan.FieldsToInclude) == 0 {
		plan.FieldsToInclude = record.Fields(sample)
	}

	have := make(map[string]bool, len(plan.FieldsToInclude))
	for _, f := range plan.FieldsToInclude {
		have[f] = true
	}
	add := func(f string) {
		if f != "" && !have[f] {
			have[f] = true
			plan.FieldsToInclude = append(plan.FieldsToInclude, f)
		}
	}

	for _, f := range plan.Filters {
		add(f.Field)
	}
	for _, f := range CodeFields(plan.GeneratedCode) {
		add(f)
	}
}
