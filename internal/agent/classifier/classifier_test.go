package classifier

import (
	"context"
	"testing"

	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
	"github.com/PierreExeter/gmail-agent/internal/domain/message"
	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

type stubClient struct {
	response string
	err      error
	calls    int
}

func (s *stubClient) Complete(ctx context.Context, req llm.Request) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func newStubFactory(client llm.Client) llm.Factory {
	return func(modelID string) llm.Client { return client }
}

func msgWith(subject, body string) *message.Message {
	return &message.Message{
		ID:        "m1",
		From:      "Alice <alice@example.com>",
		FromEmail: "alice@example.com",
		Subject:   subject,
		Body:      body,
	}
}

func TestClassifyModelPath(t *testing.T) {
	stub := &stubClient{response: `{"category": "needs_reply", "confidence": 0.85, "reasoning": "asks a question"}`}
	c := New("test-model", newStubFactory(stub))

	got := c.Classify(context.Background(), msgWith("Question", "Can you review this?"))

	if got.Category != triage.CategoryNeedsReply {
		t.Errorf("category = %s; want NEEDS_REPLY", got.Category)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %v; want 0.85", got.Confidence)
	}
	if got.Source != triage.SourceModel {
		t.Errorf("source = %s; want MODEL", got.Source)
	}
}

func TestClassifyClampsConfidence(t *testing.T) {
	stub := &stubClient{response: `{"category": "FYI_ONLY", "confidence": 1.7}`}
	c := New("test-model", newStubFactory(stub))

	got := c.Classify(context.Background(), msgWith("News", "weekly digest"))
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %v; want clamped to 1.0", got.Confidence)
	}
}

func TestClassifyGatewayFailureFallsBack(t *testing.T) {
	stub := &stubClient{err: &llm.GatewayError{Kind: llm.KindTimeout, Err: context.DeadlineExceeded}}
	c := New("test-model", newStubFactory(stub))

	got := c.Classify(context.Background(), msgWith("Sync", "Can we meet Tuesday at 3pm?"))

	if got.Source != triage.SourceFallback {
		t.Fatalf("source = %s; want FALLBACK", got.Source)
	}
	if got.Category != triage.CategoryMeetingRequest {
		t.Errorf("category = %s; want MEETING_REQUEST", got.Category)
	}
	if got.Confidence >= 0.7 {
		t.Errorf("fallback confidence %v must stay below default threshold", got.Confidence)
	}
}

func TestClassifyInvalidCategoryFallsBack(t *testing.T) {
	stub := &stubClient{response: `{"category": "SPAM", "confidence": 0.9}`}
	c := New("test-model", newStubFactory(stub))

	got := c.Classify(context.Background(), msgWith("Hi", "please respond"))
	if got.Source != triage.SourceFallback {
		t.Fatalf("source = %s; want FALLBACK for invalid category", got.Source)
	}
	if got.Category != triage.CategoryNeedsReply {
		t.Errorf("category = %s; want NEEDS_REPLY", got.Category)
	}
}

func TestClassifyUnparsableResponseFallsBack(t *testing.T) {
	stub := &stubClient{response: "I am not sure how to classify this."}
	c := New("test-model", newStubFactory(stub))

	got := c.Classify(context.Background(), msgWith("FYI", "newsletter content"))
	if got.Source != triage.SourceFallback {
		t.Fatalf("source = %s; want FALLBACK", got.Source)
	}
	if !got.Category.Valid() {
		t.Errorf("fallback leaked invalid category %q", got.Category)
	}
}

func TestFallbackTieBreak(t *testing.T) {
	tests := []struct {
		name string
		body string
		want triage.Category
	}{
		{"meeting wins over reply", "Can we schedule a call? Please confirm.", triage.CategoryMeetingRequest},
		{"reply wins over task", "Could you finish the task?", triage.CategoryNeedsReply},
		{"task alone", "New deadline for the report is Friday", triage.CategoryTaskAction},
		{"nothing actionable", "Monthly newsletter issue 42", triage.CategoryFYIOnly},
		{"question mark alone", "Did the deploy finish?", triage.CategoryNeedsReply},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Fallback(msgWith("", tt.body))
			if got.Category != tt.want {
				t.Errorf("category = %s; want %s", got.Category, tt.want)
			}
			if got.Source != triage.SourceFallback {
				t.Errorf("source = %s; want FALLBACK", got.Source)
			}
			if got.Confidence >= 0.7 {
				t.Errorf("fallback confidence %v must stay below default threshold", got.Confidence)
			}
		})
	}
}

func TestSetModelInvalidatesClient(t *testing.T) {
	built := 0
	factory := func(modelID string) llm.Client {
		built++
		return &stubClient{response: `{"category": "FYI_ONLY", "confidence": 0.8}`}
	}
	c := New("model-a", factory)

	c.Classify(context.Background(), msgWith("a", "b"))
	c.Classify(context.Background(), msgWith("a", "b"))
	if built != 1 {
		t.Fatalf("client built %d times; want 1 (cached)", built)
	}

	c.SetModel("model-b")
	c.Classify(context.Background(), msgWith("a", "b"))
	if built != 2 {
		t.Fatalf("client built %d times after swap; want 2", built)
	}
}
