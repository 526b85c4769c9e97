// Package pipeline orchestrates the multi-phase query flow: plan, validate,
// execute (with bounded retry), process, budget, synthesize. Every
// model-dependent phase has a deterministic fallback; only dataset problems
// and a synthesis-stage LLM outage are fatal.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jsperson/chathero/pkg/budget"
	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/metrics"
	"github.com/jsperson/chathero/pkg/planner"
	"github.com/jsperson/chathero/pkg/processor"
	"github.com/jsperson/chathero/pkg/record"
)

// MaxExecutionRetries bounds the back-edge from execution failure to
// planning: at most this many re-plans per request.
const MaxExecutionRetries = 2

// Config holds the pipeline's collaborators.
type Config struct {
	Logger     *slog.Logger
	LLM        llm.Client
	Planner    Planner
	Validator  Validator
	Executor   Executor
	Analyzer   Analyzer
	Processor  *processor.Processor
	Budget     *budget.Optimizer
	SampleSize int // records shown to the planner (default 10)
}

// Pipeline sequences one request through all phases.
type Pipeline struct {
	cfg *Config
	log *slog.Logger

	synthesizePrompt string
}

// New creates a Pipeline, validating required collaborators.
func New(cfg *Config) (*Pipeline, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM client is required")
	}
	if cfg.Planner == nil {
		return nil, fmt.Errorf("planner is required")
	}
	if cfg.Validator == nil {
		return nil, fmt.Errorf("validator is required")
	}
	if cfg.Executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Analyzer == nil {
		return nil, fmt.Errorf("analyzer is required")
	}
	if cfg.Processor == nil {
		return nil, fmt.Errorf("processor is required")
	}
	if cfg.Budget == nil {
		cfg.Budget = budget.NewOptimizer()
	}
	if cfg.SampleSize == 0 {
		cfg.SampleSize = 10
	}

	prompt, err := loadSynthesizePrompt()
	if err != nil {
		return nil, err
	}
	return &Pipeline{cfg: cfg, log: cfg.Logger, synthesizePrompt: prompt}, nil
}

// RunOptions carries per-request options.
type RunOptions struct {
	History       []llm.Message
	ModelOverride string
	OnProgress    ProgressCallback
}

// Run executes the full pipeline for one question over pre-loaded records.
// docs maps dataset name to its documentation text.
func (p *Pipeline) Run(ctx context.Context, question string, records []record.Record, docs map[string]string, opts RunOptions) (*Result, error) {
	notify := func(phase Phase, status Status, detail string) {
		if opts.OnProgress != nil {
			opts.OnProgress(Progress{Phase: phase, Status: status, Detail: detail})
		}
	}
	timed := func(phase Phase, start time.Time) {
		metrics.PhaseDuration.WithLabelValues(string(phase)).Observe(time.Since(start).Seconds())
	}

	result := &Result{Question: question}
	sample := record.Sample(records, p.cfg.SampleSize)

	// Planning. The planner owns its fallback, so this phase cannot fail.
	notify(PhasePlanning, StatusActive, "")
	planStart := time.Now()
	plan := p.cfg.Planner.Plan(ctx, question, sample, docs, opts.History, opts.ModelOverride, nil)
	timed(PhasePlanning, planStart)
	result.Plan = plan
	notify(PhasePlanning, StatusCompleted, plan.Explanation)
	p.log.Info("pipeline: plan ready",
		"filters", len(plan.Filters),
		"fields", len(plan.FieldsToInclude),
		"hasCode", plan.GeneratedCode != "")

	filtered := p.cfg.Processor.Filter(records, plan.Filters)
	p.log.Info("pipeline: filters applied", "in", len(records), "out", len(filtered))

	// Validation and execution, with the bounded retry back-edge into
	// planning. Skipped entirely when the plan carries no code.
	var transformed []record.Record
	if plan.GeneratedCode != "" {
		transformed = p.validateAndExecute(ctx, question, sample, docs, opts, &plan, filtered, result, notify)
		result.Plan = plan
	}

	// Processing: join resolution plus deterministic plan execution.
	notify(PhaseProcessing, StatusActive, "")
	processStart := time.Now()
	if ctx.Err() != nil {
		notify(PhaseFailed, StatusError, "request canceled")
		return nil, ctx.Err()
	}

	strategy := p.cfg.Analyzer.Analyze(ctx, question, sample, record.Datasets(records))
	result.Strategy = strategy

	var processed []record.Record
	switch {
	case strategy.NeedsJoin:
		processed = p.cfg.Processor.Join(strategy, filtered)
	case transformed != nil:
		processed = transformed
		result.Transformed = true
	default:
		processed = p.cfg.Processor.Limit(
			p.cfg.Processor.Project(filtered, plan.FieldsToInclude), plan.Limit)
	}
	groundingSample := record.Sample(records, processor.SampleSize)
	timed(PhaseProcessing, processStart)
	notify(PhaseProcessing, StatusCompleted, fmt.Sprintf("%d records", len(processed)))

	// Budgeting.
	notify(PhaseBudgeting, StatusActive, "")
	budgeted := p.cfg.Budget.Optimize(processed, len(record.Fields(record.Sample(processed, 1))))
	result.Records = budgeted.Records
	result.TotalCount = budgeted.TotalCount
	result.SampleNote = budgeted.Note
	notify(PhaseBudgeting, StatusCompleted, budgeted.Note)

	// Synthesis. An LLM outage here is fatal for the request.
	notify(PhaseSynthesizing, StatusActive, "")
	synthStart := time.Now()
	answer, err := p.synthesize(ctx, question, result, groundingSample, opts)
	timed(PhaseSynthesizing, synthStart)
	if err != nil {
		notify(PhaseFailed, StatusError, "answer synthesis unavailable")
		metrics.RequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	result.Answer = answer

	result.History = append(append([]llm.Message{}, opts.History...),
		llm.Message{Role: "user", Content: question},
		llm.Message{Role: "assistant", Content: answer},
	)

	notify(PhaseDone, StatusCompleted, "")
	metrics.RequestsTotal.WithLabelValues("done").Inc()
	return result, nil
}

// validateAndExecute runs the code path: safety validation, sandboxed
// execution, and up to MaxExecutionRetries re-plans on failure. Returns the
// transformed records, or nil when the pipeline should degrade to the
// filtered data.
func (p *Pipeline) validateAndExecute(ctx context.Context, question string, sample []record.Record, docs map[string]string, opts RunOptions, plan *planner.ExecutionPlan, filtered []record.Record, result *Result, notify func(Phase, Status, string)) []record.Record {
	code := plan.GeneratedCode
	description := plan.CodeDescription

	for attempt := 0; ; attempt++ {
		notify(PhaseValidating, StatusActive, "")
		v := p.cfg.Validator.Validate(ctx, code, description)
		if attempt == 0 {
			result.Validation = &v
		}
		if !v.Approved {
			metrics.ValidationRejections.Inc()
			p.log.Warn("pipeline: code rejected", "reason", v.Reason, "attempt", attempt)
			notify(PhaseValidating, StatusWarning, "generated code rejected, continuing without transformation")
			return nil
		}
		notify(PhaseValidating, StatusCompleted, "")

		notify(PhaseExecuting, StatusActive, "")
		execResult := p.cfg.Executor.Execute(ctx, code, filtered)
		if execResult.Success {
			notify(PhaseExecuting, StatusCompleted, fmt.Sprintf("%d records", len(execResult.Records)))
			return execResult.Records
		}

		p.log.Warn("pipeline: execution failed", "attempt", attempt, "error", truncate(execResult.Error, 200))
		if attempt >= MaxExecutionRetries || ctx.Err() != nil {
			notify(PhaseExecuting, StatusWarning, "transformation failed, continuing with filtered data")
			return nil
		}

		// Back-edge: re-plan with the failure context.
		metrics.ExecutionRetries.Inc()
		notify(PhasePlanning, StatusActive, "retrying after execution failure")
		retry := &planner.RetryContext{
			PreviousCode: code,
			Error:        execResult.Error,
			Attempt:      attempt + 1,
		}
		newPlan := p.cfg.Planner.Plan(ctx, question, sample, docs, opts.History, opts.ModelOverride, retry)
		notify(PhasePlanning, StatusCompleted, "revised plan")
		if newPlan.GeneratedCode == "" || newPlan.GeneratedCode == code {
			notify(PhaseExecuting, StatusWarning, "no corrected code produced, continuing with filtered data")
			return nil
		}
		*plan = newPlan
		code = newPlan.GeneratedCode
		description = newPlan.CodeDescription
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
