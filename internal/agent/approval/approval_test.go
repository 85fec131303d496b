package approval

import (
	"testing"

	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

var (
	trusted  = []string{"alice@example.com", "Bob@Example.com"}
	keywords = []string{"urgent", "payment", "$", "confidential"}
)

func TestCheckFlags(t *testing.T) {
	tests := []struct {
		name       string
		sender     string
		content    string
		confidence float64
		want       []triage.Flag
	}{
		{
			name:       "trusted sender, clean content, confident",
			sender:     "alice@example.com",
			content:    "Lunch on Friday?",
			confidence: 0.95,
			want:       nil,
		},
		{
			name:       "unknown sender always flagged regardless of content",
			sender:     "mallory@evil.com",
			content:    "Hello",
			confidence: 0.99,
			want:       []triage.Flag{triage.FlagUnknownSender},
		},
		{
			name:       "trusted membership is case-insensitive",
			sender:     "BOB@example.COM",
			content:    "status update",
			confidence: 0.9,
			want:       nil,
		},
		{
			name:       "sensitive keyword substring match",
			sender:     "alice@example.com",
			content:    "The PAYMENT is due",
			confidence: 0.9,
			want:       []triage.Flag{triage.FlagSensitiveContent},
		},
		{
			name:       "dollar sign counts as a keyword",
			sender:     "alice@example.com",
			content:    "budget of $500",
			confidence: 0.9,
			want:       []triage.Flag{triage.FlagSensitiveContent},
		},
		{
			name:       "low confidence strictly below threshold",
			sender:     "alice@example.com",
			content:    "hello",
			confidence: 0.69,
			want:       []triage.Flag{triage.FlagLowConfidence},
		},
		{
			name:       "confidence exactly at threshold does not flag",
			sender:     "alice@example.com",
			content:    "hello",
			confidence: 0.7,
			want:       nil,
		},
		{
			name:       "flags accumulate",
			sender:     "mallory@evil.com",
			content:    "urgent payment required",
			confidence: 0.2,
			want:       []triage.Flag{triage.FlagUnknownSender, triage.FlagSensitiveContent, triage.FlagLowConfidence},
		},
		{
			name:       "empty sender is never trusted",
			sender:     "",
			content:    "hello",
			confidence: 0.9,
			want:       []triage.Flag{triage.FlagUnknownSender},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Check(tt.sender, tt.content, tt.confidence, trusted, keywords, 0.7)
			if len(got.Flags) != len(tt.want) {
				t.Fatalf("flags = %v; want %v", got.Flags, tt.want)
			}
			for i, f := range tt.want {
				if got.Flags[i] != f {
					t.Errorf("flags[%d] = %s; want %s", i, got.Flags[i], f)
				}
			}
			if got.RequiresReview() != (len(tt.want) > 0) {
				t.Errorf("RequiresReview = %v; want %v", got.RequiresReview(), len(tt.want) > 0)
			}
		})
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	first := Check("x@y.com", "urgent: send $100", 0.5, trusted, keywords, 0.7)
	second := Check("x@y.com", "urgent: send $100", 0.5, trusted, keywords, 0.7)
	if len(first.Flags) != len(second.Flags) {
		t.Fatalf("repeated check differs: %v vs %v", first.Flags, second.Flags)
	}
}

// Editing a draft to add a sensitive keyword must surface SENSITIVE_CONTENT
// on the next check even though the original content was clean.
func TestRecheckAfterEdit(t *testing.T) {
	before := Check("alice@example.com", "See you then.", 0.9, trusted, keywords, 0.7)
	if before.Has(triage.FlagSensitiveContent) {
		t.Fatal("clean content should not be flagged")
	}
	after := Check("alice@example.com", "See you then. The contract payment is attached.", 0.9, trusted, keywords, 0.7)
	if !after.Has(triage.FlagSensitiveContent) {
		t.Fatal("edited content with keyword must be flagged")
	}
}

func TestFindSensitiveKeywords(t *testing.T) {
	found := FindSensitiveKeywords("Urgent: invoice for PAYMENT", []string{"urgent", "invoice", "payment", "legal"})
	if len(found) != 3 {
		t.Errorf("found = %v; want 3 keywords", found)
	}
}
