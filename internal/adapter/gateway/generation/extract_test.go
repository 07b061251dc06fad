package generation

import (
	"testing"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{
			name:  "bare object",
			input: `{"name":"App"}`,
			want:  `{"name":"App"}`,
		},
		{
			name:  "fenced json block",
			input: "Here you go:\n```json\n{\"name\":\"App\"}\n```\nEnjoy!",
			want:  `{"name":"App"}`,
		},
		{
			name:  "fenced block without language tag",
			input: "```\n[1, 2, 3]\n```",
			want:  `[1, 2, 3]`,
		},
		{
			name:  "object with leading and trailing prose",
			input: `Sure! The spec is {"name":"App","nested":{"a":1}} — let me know.`,
			want:  `{"name":"App","nested":{"a":1}}`,
		},
		{
			name:  "first top-level value only",
			input: `{"first":true} {"second":true}`,
			want:  `{"first":true}`,
		},
		{
			name:  "array value",
			input: `files: [{"path":"a.ts"},{"path":"b.ts"}] done`,
			want:  `[{"path":"a.ts"},{"path":"b.ts"}]`,
		},
		{
			name:    "no json at all",
			input:   "I could not generate anything useful.",
			wantErr: true,
		},
		{
			name:    "unbalanced braces",
			input:   `{"name":"App", "screens":[`,
			wantErr: true,
		},
		{
			name:    "empty input",
			input:   "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractJSON(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ExtractJSON() = %q, want error", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ExtractJSON() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("abcdef", 3); got != "abc..." {
		t.Errorf("Truncate() = %q", got)
	}
	if got := Truncate("ab", 3); got != "ab" {
		t.Errorf("Truncate() = %q", got)
	}
}
