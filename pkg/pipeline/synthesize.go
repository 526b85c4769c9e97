package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/pipeline/prompts"
	"github.com/jsperson/chathero/pkg/record"
)

func loadSynthesizePrompt() (string, error) {
	data, err := prompts.PromptsFS.ReadFile("SYNTHESIZE.md")
	if err != nil {
		return "", fmt.Errorf("failed to load SYNTHESIZE prompt: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}

// synthesize produces the final grounded answer from the budgeted payload.
// Unlike the other model calls, failures here are returned to the caller:
// there is nothing left to degrade to.
func (p *Pipeline) synthesize(ctx context.Context, question string, result *Result, groundingSample []record.Record, opts RunOptions) (string, error) {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("User question: %s\n\n", question))

	if len(opts.History) > 0 {
		sb.WriteString("Previous conversation:\n")
		for _, msg := range opts.History {
			content := msg.Content
			if msg.Role != "user" && len(content) > 500 {
				content = content[:500] + "..."
			}
			sb.WriteString(fmt.Sprintf("%s: %s\n", msg.Role, content))
		}
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("Plan: %s\n", result.Plan.Explanation))
	if result.Plan.CodeDescription != "" {
		sb.WriteString(fmt.Sprintf("Computation: %s\n", result.Plan.CodeDescription))
	}
	if result.Strategy.NeedsJoin {
		sb.WriteString(fmt.Sprintf("Join: %s (%s)\n", result.Strategy.JoinType, result.Strategy.Explanation))
	}
	sb.WriteString(fmt.Sprintf("\nTotal matching records: %d\n", result.TotalCount))
	if result.SampleNote != "" {
		sb.WriteString(fmt.Sprintf("Sampling notice: %s\n", result.SampleNote))
	}

	sb.WriteString("\nComputed results:\n")
	writeJSON(&sb, result.Records)

	sb.WriteString("\nUnmodified sample records (context only):\n")
	writeJSON(&sb, groundingSample)

	sb.WriteString("\nAnswer the user's question from the data above.")

	answerOpts := []llm.Option{}
	if opts.ModelOverride != "" {
		answerOpts = append(answerOpts, llm.WithModel(opts.ModelOverride))
	}
	response, err := p.cfg.LLM.Complete(ctx, p.synthesizePrompt, sb.String(), answerOpts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(response), nil
}

func writeJSON(sb *strings.Builder, records []record.Record) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		sb.WriteString("(unserializable)\n")
		return
	}
	sb.Write(data)
	sb.WriteString("\n")
}
