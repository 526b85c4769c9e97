package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			"bare object",
			`{"a": 1}`,
			`{"a": 1}`,
		},
		{
			"json code fence",
			"Here's the plan:\n```json\n{\"a\": 1}\n```\nLet me know.",
			`{"a": 1}`,
		},
		{
			"generic code fence",
			"```\n{\"a\": 1}\n```",
			`{"a": 1}`,
		},
		{
			"surrounding prose",
			`Sure! The plan is {"filters": [], "limit": 5} as requested.`,
			`{"filters": [], "limit": 5}`,
		},
		{
			"nested objects",
			`{"outer": {"inner": {"deep": true}}}`,
			`{"outer": {"inner": {"deep": true}}}`,
		},
		{
			"braces inside strings",
			`{"code": "d = {'k': 1}", "note": "a \"quoted\" brace }"}`,
			`{"code": "d = {'k': 1}", "note": "a \"quoted\" brace }"}`,
		},
		{
			"unbalanced object",
			`{"a": 1`,
			"",
		},
		{
			"no json at all",
			"I cannot answer that.",
			"",
		},
		{
			"empty response",
			"",
			"",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractJSON(tt.response))
		})
	}
}
