// Package joins classifies whether and how two datasets relate for a given
// question. Classification is model-assisted with a deterministic no-join
// fallback so the pipeline never blocks on it.
package joins

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsperson/chathero/pkg/joins/prompts"
	"github.com/jsperson/chathero/pkg/llm"
	"github.com/jsperson/chathero/pkg/record"
)

// Join types.
const (
	TypeTemporal          = "temporal"
	TypeKeyMatch          = "key_match"
	TypeNestedAggregation = "nested_aggregation"
	TypeNone              = "none"
)

// Temporal modes.
const (
	ModeDateOverlap = "date_overlap"
	ModeDateRange   = "date_range"
)

// Condition describes how records pair up. Date fields apply to temporal
// joins; MatchField applies to key_match.
type Condition struct {
	LeftDateField    string `json:"leftDateField,omitempty"`
	LeftEndDateField string `json:"leftEndDateField,omitempty"`
	RightDateField   string `json:"rightDateField,omitempty"`
	Mode             string `json:"mode,omitempty"`
	MatchField       string `json:"matchField,omitempty"`
}

// Strategy is the classification of how two datasets should be related.
type Strategy struct {
	NeedsJoin    bool       `json:"needsJoin"`
	JoinType     string     `json:"joinType"`
	LeftDataset  string     `json:"leftDataset,omitempty"`
	RightDataset string     `json:"rightDataset,omitempty"`
	Condition    *Condition `json:"joinCondition,omitempty"`
	Explanation  string     `json:"explanation"`
}

// Analyzer classifies dataset relationships with an LLM.
type Analyzer struct {
	llm           llm.Client
	log           *slog.Logger
	analyzePrompt string
}

// New creates an Analyzer with the embedded few-shot prompt.
func New(log *slog.Logger, client llm.Client) (*Analyzer, error) {
	data, err := prompts.PromptsFS.ReadFile("ANALYZE.md")
	if err != nil {
		return nil, fmt.Errorf("failed to load ANALYZE prompt: %w", err)
	}
	return &Analyzer{
		llm:           client,
		log:           log,
		analyzePrompt: strings.TrimSpace(string(data)),
	}, nil
}

// Analyze classifies the relationship between the datasets present in the
// sample. With a single dataset it returns no-join immediately, without a
// model call. Model failures degrade to no-join.
func (a *Analyzer) Analyze(ctx context.Context, question string, sample []record.Record, datasets []string) Strategy {
	if len(datasets) <= 1 {
		return Strategy{
			NeedsJoin:   false,
			JoinType:    TypeNone,
			Explanation: "single dataset, no join needed",
		}
	}

	sampleJSON, _ := json.MarshalIndent(sample, "", "  ")
	userPrompt := fmt.Sprintf(`Datasets present: %s

Sample records (tagged with %s):
%s

Question: %s`, strings.Join(datasets, ", "), record.SourceField, sampleJSON, question)

	response, err := a.llm.Complete(ctx, a.analyzePrompt, userPrompt, llm.WithStructuredOutput())
	if err != nil {
		a.log.Warn("joins: analysis call failed, defaulting to no join", "error", err)
		return noJoinFallback()
	}

	strategy, err := parseStrategy(response)
	if err != nil {
		a.log.Warn("joins: unparsable strategy, defaulting to no join", "error", err)
		return noJoinFallback()
	}
	return strategy
}

func noJoinFallback() Strategy {
	return Strategy{
		NeedsJoin:   false,
		JoinType:    TypeNone,
		Explanation: "join analysis failed, treating datasets independently",
	}
}

func parseStrategy(response string) (Strategy, error) {
	jsonStr := llm.ExtractJSON(response)
	if jsonStr == "" {
		return Strategy{}, fmt.Errorf("no JSON found in response")
	}
	var s Strategy
	if err := json.Unmarshal([]byte(jsonStr), &s); err != nil {
		return Strategy{}, fmt.Errorf("failed to parse strategy: %w", err)
	}
	switch s.JoinType {
	case TypeTemporal, TypeKeyMatch, TypeNestedAggregation, TypeNone:
	default:
		return Strategy{}, fmt.Errorf("invalid join type: %q", s.JoinType)
	}
	if s.JoinType == TypeTemporal {
		if s.Condition == nil || s.Condition.LeftDateField == "" || s.Condition.RightDateField == "" {
			return Strategy{}, fmt.Errorf("temporal join missing date fields")
		}
		if s.Condition.Mode != ModeDateOverlap && s.Condition.Mode != ModeDateRange {
			return Strategy{}, fmt.Errorf("invalid temporal mode: %q", s.Condition.Mode)
		}
	}
	if s.JoinType == TypeKeyMatch && (s.Condition == nil || s.Condition.MatchField == "") {
		return Strategy{}, fmt.Errorf("key_match join missing match field")
	}
	return s, nil
}
