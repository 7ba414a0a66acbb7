package jsonx

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    any
		wantErr bool
	}{
		{
			name:  "direct object",
			input: `{"a": 1}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:  "direct array",
			input: `[1, 2]`,
			want:  []any{float64(1), float64(2)},
		},
		{
			name:  "fenced json block",
			input: "Here you go:\n```json\n{\"intent_type\": \"plan\"}\n```\nDone.",
			want:  map[string]any{"intent_type": "plan"},
		},
		{
			name:  "fenced block without tag",
			input: "```\n{\"x\": true}\n```",
			want:  map[string]any{"x": true},
		},
		{
			name:  "trailing comma in fenced array",
			input: "```json\n[{\"question\": \"Q1?\", \"type\": \"basic\"},]\n```",
			want:  []any{map[string]any{"question": "Q1?", "type": "basic"}},
		},
		{
			name:  "object buried in prose",
			input: `Sure! The result is {"goal": "learn Go", "count": 3} as requested.`,
			want:  map[string]any{"goal": "learn Go", "count": float64(3)},
		},
		{
			name:  "braces inside string values",
			input: `prefix {"text": "a } tricky ] value", "n": 1} suffix`,
			want:  map[string]any{"text": "a } tricky ] value", "n": float64(1)},
		},
		{
			name:  "escaped quote inside string",
			input: `{"text": "she said \"hi}\"", "ok": true}`,
			want:  map[string]any{"text": `she said "hi}"`, "ok": true},
		},
		{
			name:  "trailing comma in bare object",
			input: `{"a": 1,}`,
			want:  map[string]any{"a": float64(1)},
		},
		{
			name:    "no json at all",
			input:   "I could not produce anything structured, sorry.",
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "   ",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"a": 1`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Extract(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrNoJSON), "error should wrap ErrNoJSON")
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFencedEqualsRepairedBare(t *testing.T) {
	bare := `{"items": [1, 2,], "done": true,}`
	fenced := "```json\n" + bare + "\n```"

	fromBare, err := Extract(bare)
	assert.NoError(t, err)
	fromFenced, err := Extract(fenced)
	assert.NoError(t, err)
	assert.Equal(t, fromBare, fromFenced)
}

func TestExtractInto(t *testing.T) {
	var out struct {
		Goal  string `json:"goal"`
		Count int    `json:"count"`
	}
	err := ExtractInto("```json\n{\"goal\": \"redis\", \"count\": 4,}\n```", &out)
	assert.NoError(t, err)
	assert.Equal(t, "redis", out.Goal)
	assert.Equal(t, 4, out.Count)
}

func TestRepairTrailingCommas(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, RepairTrailingCommas(`{"a": 1,}`))
	assert.Equal(t, `[1, 2]`, RepairTrailingCommas(`[1, 2, ]`))
	assert.Equal(t, `{"a": [1]}`, RepairTrailingCommas(`{"a": [1,],}`))
}
