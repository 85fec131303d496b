package llmjson

import (
	"encoding/json"
	"testing"
)

func TestUnmarshal(t *testing.T) {
	type out struct {
		Category   string `json:"category"`
		Confidence Number `json:"confidence"`
	}

	tests := []struct {
		name         string
		raw          string
		wantCategory string
		wantConf     float64
		wantErr      bool
	}{
		{
			name:         "clean object",
			raw:          `{"category": "NEEDS_REPLY", "confidence": 0.85}`,
			wantCategory: "NEEDS_REPLY",
			wantConf:     0.85,
		},
		{
			name:         "surrounding prose",
			raw:          "Sure, here is my answer:\n{\"category\": \"FYI_ONLY\", \"confidence\": 0.9}\nHope that helps!",
			wantCategory: "FYI_ONLY",
			wantConf:     0.9,
		},
		{
			name:         "markdown fence",
			raw:          "```json\n{\"category\": \"TASK_ACTION\", \"confidence\": 0.7}\n```",
			wantCategory: "TASK_ACTION",
			wantConf:     0.7,
		},
		{
			name:         "confidence as string",
			raw:          `{"category": "MEETING_REQUEST", "confidence": "0.6"}`,
			wantCategory: "MEETING_REQUEST",
			wantConf:     0.6,
		},
		{
			name:         "braces inside string values",
			raw:          `{"category": "NEEDS_REPLY", "confidence": 0.8, "reasoning": "asks about {budget}"}`,
			wantCategory: "NEEDS_REPLY",
			wantConf:     0.8,
		},
		{
			name:    "no json at all",
			raw:     "I could not classify this email.",
			wantErr: true,
		},
		{
			name:    "unterminated object",
			raw:     `{"category": "NEEDS_REPLY", "confidence": 0.8`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got out
			err := Unmarshal(tt.raw, &got)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Unmarshal error = %v; want error? %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Category != tt.wantCategory {
				t.Errorf("category = %q; want %q", got.Category, tt.wantCategory)
			}
			if float64(got.Confidence) != tt.wantConf {
				t.Errorf("confidence = %v; want %v", got.Confidence, tt.wantConf)
			}
		})
	}
}

func TestStringList(t *testing.T) {
	var l StringList
	if err := json.Unmarshal([]byte(`["a@x.com","b@x.com"]`), &l); err != nil {
		t.Fatal(err)
	}
	if len(l) != 2 {
		t.Errorf("array form: len = %d; want 2", len(l))
	}

	l = nil
	if err := json.Unmarshal([]byte(`"a@x.com"`), &l); err != nil {
		t.Fatal(err)
	}
	if len(l) != 1 || l[0] != "a@x.com" {
		t.Errorf("single string form: %v", l)
	}

	l = nil
	if err := json.Unmarshal([]byte(`null`), &l); err != nil {
		t.Fatal(err)
	}
	if l != nil {
		t.Errorf("null form: %v", l)
	}
}
