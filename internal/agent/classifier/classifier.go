// Package classifier assigns a category and confidence to a message, using
// the inference gateway with a deterministic keyword fallback.
package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/PierreExeter/gmail-agent/internal/agent/llmjson"
	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
	"github.com/PierreExeter/gmail-agent/internal/domain/message"
	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

const maxBodyChars = 2000

// Fallback confidences sit strictly below the default review threshold so
// heuristic results are always flagged for manual review.
const (
	fallbackConfidence    = 0.6
	fallbackConfidenceFYI = 0.5
)

const classificationPrompt = `You are an email classification assistant. Classify the given email into exactly ONE category.

Categories:
- NEEDS_REPLY: Email requires a response from the recipient (questions, requests, invitations needing confirmation)
- FYI_ONLY: Informational email with no action needed (newsletters, notifications, receipts, confirmations)
- MEETING_REQUEST: Email explicitly about scheduling a meeting or call
- TASK_ACTION: Email contains specific tasks or action items to complete

Email to classify:
From: %s
Subject: %s
Body: %s

Respond with a JSON object containing:
- category: one of NEEDS_REPLY, FYI_ONLY, MEETING_REQUEST, TASK_ACTION
- confidence: a number between 0 and 1 indicating confidence
- reasoning: brief explanation for the classification

JSON response:`

// Fallback keyword sets, checked in most-actionable-first order:
// MEETING_REQUEST > NEEDS_REPLY > TASK_ACTION > FYI_ONLY.
var (
	// "meet" also matches "meeting"
	meetingKeywords = []string{"meet", "call", "schedule", "calendar", "invite"}
	replyKeywords   = []string{"?", "please", "could you", "can you", "would you"}
	taskKeywords    = []string{"todo", "task", "action", "deadline", "due"}
)

type Classifier struct {
	factory llm.Factory

	mu      sync.Mutex
	modelID string
	client  llm.Client
}

func New(modelID string, factory llm.Factory) *Classifier {
	return &Classifier{
		factory: factory,
		modelID: modelID,
	}
}

// SetModel swaps the model identifier and drops the cached client so the
// next call builds a fresh one. In-flight calls keep the client they hold.
func (c *Classifier) SetModel(modelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.modelID = modelID
	c.client = nil
}

func (c *Classifier) getClient() llm.Client {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.client == nil {
		c.client = c.factory(c.modelID)
	}
	return c.client
}

// Classify never fails past its boundary: a gateway or parse failure is
// logged and answered by the keyword fallback.
func (c *Classifier) Classify(ctx context.Context, msg *message.Message) triage.ClassificationResult {
	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	raw, err := c.getClient().Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(classificationPrompt, msg.From, msg.Subject, body),
		MaxTokens:   256,
		Temperature: 0.1,
		ExpectJSON:  true,
	})
	if err != nil {
		slog.Warn("classification call failed, using fallback",
			"message_id", msg.ID,
			"error", err,
		)
		return Fallback(msg)
	}

	result, err := parseResult(raw)
	if err != nil {
		slog.Warn("unparsable classification response, using fallback",
			"message_id", msg.ID,
			"error", err,
		)
		return Fallback(msg)
	}

	return result
}

type modelResponse struct {
	Category   string         `json:"category"`
	Confidence llmjson.Number `json:"confidence"`
	Reasoning  string         `json:"reasoning"`
}

func parseResult(raw string) (triage.ClassificationResult, error) {
	var resp modelResponse
	if err := llmjson.Unmarshal(raw, &resp); err != nil {
		return triage.ClassificationResult{}, err
	}

	category := triage.Category(strings.ToUpper(strings.TrimSpace(resp.Category)))
	if !category.Valid() {
		return triage.ClassificationResult{}, fmt.Errorf("model returned invalid category %q", resp.Category)
	}

	confidence := float64(resp.Confidence)
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}

	return triage.ClassificationResult{
		Category:   category,
		Confidence: confidence,
		Reasoning:  resp.Reasoning,
		Source:     triage.SourceModel,
	}, nil
}

// Fallback scans subject and body for category-indicative keywords. It always
// yields one of the four categories with a confidence below the default
// review threshold.
func Fallback(msg *message.Message) triage.ClassificationResult {
	combined := strings.ToLower(msg.Content())

	if containsAny(combined, meetingKeywords) {
		return fallbackResult(triage.CategoryMeetingRequest, fallbackConfidence, "Contains meeting-related keywords")
	}
	if containsAny(combined, replyKeywords) {
		return fallbackResult(triage.CategoryNeedsReply, fallbackConfidence, "Contains question or request patterns")
	}
	if containsAny(combined, taskKeywords) {
		return fallbackResult(triage.CategoryTaskAction, fallbackConfidence, "Contains task-related keywords")
	}
	return fallbackResult(triage.CategoryFYIOnly, fallbackConfidenceFYI, "No actionable patterns found")
}

func fallbackResult(category triage.Category, confidence float64, reasoning string) triage.ClassificationResult {
	return triage.ClassificationResult{
		Category:   category,
		Confidence: confidence,
		Reasoning:  reasoning,
		Source:     triage.SourceFallback,
	}
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}
