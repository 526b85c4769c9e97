package validator

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsperson/chathero/pkg/llm"
)

type mockLLM struct {
	response string
	err      error
	calls    int
}

func (m *mockLLM) Complete(ctx context.Context, systemPrompt, userPrompt string, opts ...llm.Option) (string, error) {
	m.calls++
	return m.response, m.err
}

func newTestValidator(t *testing.T, mock *mockLLM) *Validator {
	t.Helper()
	v, err := New(slog.Default(), mock)
	require.NoError(t, err)
	return v
}

func TestStaticScanRejectsWithoutModelCall(t *testing.T) {
	cases := []struct {
		name string
		code string
	}{
		{"file open", `data = open('/etc/passwd').read()`},
		{"forbidden import", `import subprocess`},
		{"from import", `from os import path`},
		{"eval", `result = eval("1+1")`},
		{"exec", `exec("print(1)")`},
		{"dunder", `result = df.__class__`},
		{"os module", `result = os.environ`},
		{"network", `import requests`},
		{"pandas file io", `df2 = pd.read_csv('data.csv')`},
		{"pickle", `import pickle`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockLLM{response: `{"approved": true}`}
			v := newTestValidator(t, mock)

			result := v.Validate(context.Background(), tc.code, "test")

			assert.False(t, result.Approved)
			assert.NotEmpty(t, result.Reason)
			// Stage 1 must reject before any model call is made.
			assert.Zero(t, mock.calls)
		})
	}
}

func TestStaticScanAllowsPandasImports(t *testing.T) {
	result := ScanStatic("import pandas as pd\nimport numpy as np\nresult = len(df)")
	assert.True(t, result.Approved)
}

func TestValidateApprovesCleanCode(t *testing.T) {
	mock := &mockLLM{response: `{"approved": true, "reason": "pure dataframe aggregation"}`}
	v := newTestValidator(t, mock)

	result := v.Validate(context.Background(), "result = df.groupby('year').size().to_dict()", "count by year")

	assert.True(t, result.Approved)
	assert.Equal(t, 1, mock.calls)
}

func TestValidateStageTwoRejection(t *testing.T) {
	mock := &mockLLM{response: `{"approved": false, "reason": "mutates shared state", "risks": ["state mutation"]}`}
	v := newTestValidator(t, mock)

	result := v.Validate(context.Background(), "result = df", "noop")

	assert.False(t, result.Approved)
	assert.Equal(t, "mutates shared state", result.Reason)
	assert.Contains(t, result.Risks, "state mutation")
}

func TestValidateFailsClosedOnLLMError(t *testing.T) {
	mock := &mockLLM{err: assert.AnError}
	v := newTestValidator(t, mock)

	result := v.Validate(context.Background(), "result = len(df)", "count")
	assert.False(t, result.Approved)
}

func TestValidateFailsClosedOnGarbageResponse(t *testing.T) {
	mock := &mockLLM{response: "sure, looks fine to me"}
	v := newTestValidator(t, mock)

	result := v.Validate(context.Background(), "result = len(df)", "count")
	assert.False(t, result.Approved)
}
