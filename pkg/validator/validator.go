// Package validator gates generated transformation code before execution.
// Stage 1 is a static denylist scan; stage 2 asks the model to confirm the
// code only performs allowed data-manipulation operations. Both stages fail
// closed.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/validator/prompts"
)

// Result is the outcome of a validation pass.
type Result struct {
	Approved bool     `json:"approved"`
	Reason   string   `json:"reason"`
	Risks    []string `json:"risks,omitempty"`
}

// denied is the static denylist. A single hit rejects the code without a
// model call; the model stage is defense in depth, not the security floor.
var denied = []struct {
	pattern *regexp.Regexp
	reason  string
}{
	{regexp.MustCompile(`\bopen\s*\(`), "file I/O (open)"},
	{regexp.MustCompile(`\b(?:read_csv|read_json|read_excel|read_sql|read_parquet|to_csv|to_json|to_excel|to_sql|to_parquet|to_pickle|read_pickle)\s*\(`), "file I/O (pandas readers/writers)"},
	{regexp.MustCompile(`\beval\s*\(`), "dynamic evaluation (eval)"},
	{regexp.MustCompile(`\bexec\s*\(`), "dynamic evaluation (exec)"},
	{regexp.MustCompile(`\bcompile\s*\(`), "dynamic evaluation (compile)"},
	{regexp.MustCompile(`__[A-Za-z]+__`), "dunder access"},
	{regexp.MustCompile(`\bglobals\s*\(|\blocals\s*\(`), "namespace access"},
	{regexp.MustCompile(`\binput\s*\(`), "stdin access"},
	{regexp.MustCompile(`\bos\s*\.`), "os module access"},
	{regexp.MustCompile(`\bsys\s*\.`), "sys module access"},
	{regexp.MustCompile(`\bsubprocess\b`), "process execution"},
	{regexp.MustCompile(`\bsocket\b|\brequests\b|\burllib\b|\bhttpx?\b|\bftplib\b`), "network access"},
	{regexp.MustCompile(`\bshutil\b|\bpathlib\b|\btempfile\b|\bglob\b`), "filesystem access"},
	{regexp.MustCompile(`\bpickle\b|\bmarshal\b|\bctypes\b`), "unsafe deserialization or FFI"},
}

// importRe matches import statements; only pandas and numpy are approved.
var importRe = regexp.MustCompile(`(?m)^\s*(?:import|from)\s+([A-Za-z_][A-Za-z0-9_.]*)`)

// Validator is the two-stage approval gate.
type Validator struct {
	llm          llm.Client
	log          *slog.Logger
	reviewPrompt string
}

// New creates a Validator with the embedded review prompt.
func New(log *slog.Logger, client llm.Client) (*Validator, error) {
	data, err := prompts.PromptsFS.ReadFile("REVIEW.md")
	if err != nil {
		return nil, fmt.Errorf("failed to load REVIEW prompt: %w", err)
	}
	return &Validator{
		llm:          client,
		log:          log,
		reviewPrompt: strings.TrimSpace(string(data)),
	}, nil
}

// Validate runs both stages against a candidate snippet. Any failure in
// either stage, including model errors, yields a rejection.
func (v *Validator) Validate(ctx context.Context, code, description string) Result {
	if r := ScanStatic(code); !r.Approved {
		v.log.Info("validator: static scan rejected code", "reason", r.Reason)
		return r
	}
	return v.review(ctx, code, description)
}

// ScanStatic is stage 1: the denylist scan. It never invokes the model.
func ScanStatic(code string) Result {
	for _, d := range denied {
		if d.pattern.MatchString(code) {
			return Result{
				Approved: false,
				Reason:   fmt.Sprintf("denied construct: %s", d.reason),
				Risks:    []string{d.reason},
			}
		}
	}
	for _, m := range importRe.FindAllStringSubmatch(code, -1) {
		mod := strings.SplitN(m[1], ".", 2)[0]
		if mod != "pandas" && mod != "numpy" {
			return Result{
				Approved: false,
				Reason:   fmt.Sprintf("import of unapproved module: %s", mod),
				Risks:    []string{"unapproved import"},
			}
		}
	}
	return Result{Approved: true, Reason: "static scan passed"}
}

// review is stage 2: model-assisted confirmation.
func (v *Validator) review(ctx context.Context, code, description string) Result {
	userPrompt := fmt.Sprintf("Description: %s\n\nCode:\n```python\n%s\n```", description, code)

	response, err := v.llm.Complete(ctx, v.reviewPrompt, userPrompt, llm.WithStructuredOutput())
	if err != nil {
		v.log.Warn("validator: review call failed, rejecting", "error", err)
		return Result{Approved: false, Reason: "code review unavailable"}
	}

	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return Result{Approved: false, Reason: "unparsable review response"}
	}
	var r Result
	if err := json.Unmarshal([]byte(jsonStr), &r); err != nil {
		return Result{Approved: false, Reason: "unparsable review response"}
	}
	if !r.Approved && r.Reason == "" {
		r.Reason = "rejected by code review"
	}
	return r
}
