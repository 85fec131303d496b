// Package drafter produces reply drafts for messages that need a response.
// A draft always exists after a call: the gateway path is best-effort and a
// templated acknowledgment covers failures.
package drafter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
	"github.com/PierreExeter/gmail-agent/internal/domain/message"
	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

const maxBodyChars = 2000

const draftingPrompt = `You are an email assistant helping to draft replies.

Write a reply to the following email.

Original email:
From: %s
Subject: %s
Content: %s

Guidelines:
- Start with an appropriate greeting
- Address the main points of the email
- Be helpful
- End with an appropriate closing
- Do NOT include a subject line

Tone: %s

Draft reply:`

var toneInstructions = map[triage.Tone]string{
	triage.ToneFormal:   "formal and professional",
	triage.ToneCasual:   "casual and friendly",
	triage.ToneBrief:    "brief, a few sentences at most",
	triage.ToneDetailed: "detailed and thorough",
}

type Drafter struct {
	factory llm.Factory

	mu      sync.Mutex
	modelID string
	client  llm.Client
}

func New(modelID string, factory llm.Factory) *Drafter {
	return &Drafter{
		factory: factory,
		modelID: modelID,
	}
}

func (d *Drafter) SetModel(modelID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.modelID = modelID
	d.client = nil
}

func (d *Drafter) getClient() llm.Client {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.client == nil {
		d.client = d.factory(d.modelID)
	}
	return d.client
}

// Draft generates a reply for msg. Callers gate on category (NEEDS_REPLY,
// optionally MEETING_REQUEST confirmations); the drafter does not re-check.
// The returned draft is always PENDING, whatever its source.
func (d *Drafter) Draft(ctx context.Context, msg *message.Message, tone triage.Tone) (*triage.Draft, error) {
	if !tone.Valid() {
		return nil, fmt.Errorf("unrecognized tone %q", tone)
	}

	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	draft := &triage.Draft{
		ID:        uuid.New().String(),
		MessageID: msg.ID,
		Recipient: msg.FromEmail,
		Subject:   replySubject(msg.Subject),
		Status:    triage.DraftPending,
		CreatedAt: time.Now(),
	}

	raw, err := d.getClient().Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(draftingPrompt, msg.From, msg.Subject, body, toneInstructions[tone]),
		MaxTokens:   512,
		Temperature: 0.7,
	})
	if err != nil {
		slog.Warn("drafting call failed, using fallback template",
			"message_id", msg.ID,
			"error", err,
		)
		draft.Body = fallbackBody(msg)
		draft.Source = triage.SourceFallback
		return draft, nil
	}

	cleaned := cleanDraft(raw)
	if cleaned == "" {
		slog.Warn("drafting call returned empty text, using fallback template",
			"message_id", msg.ID,
		)
		draft.Body = fallbackBody(msg)
		draft.Source = triage.SourceFallback
		return draft, nil
	}

	draft.Body = cleaned
	draft.Source = triage.SourceModel
	return draft, nil
}

func replySubject(subject string) string {
	if strings.HasPrefix(strings.ToLower(subject), "re:") {
		return subject
	}
	return "Re: " + subject
}

// cleanDraft strips artifacts models commonly echo back: the prompt's
// trailing label and any subject line despite the instruction not to add one.
func cleanDraft(raw string) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	var kept []string
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(lower, "subject:") || strings.HasPrefix(lower, "draft reply:") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.TrimSpace(strings.Join(kept, "\n"))
}

func fallbackBody(msg *message.Message) string {
	greeting := "Hi there,"
	if name := firstName(msg.From); name != "" {
		greeting = "Hi " + name + ","
	}
	return fmt.Sprintf(`%s

Thank you for your email regarding "%s". I will follow up shortly.

Best regards`, greeting, msg.Subject)
}

func firstName(display string) string {
	display = strings.TrimSpace(display)
	if display == "" {
		return ""
	}
	// "Alice Smith <alice@example.com>" -> "Alice"
	if idx := strings.IndexByte(display, '<'); idx > 0 {
		display = strings.TrimSpace(display[:idx])
	}
	fields := strings.Fields(strings.Trim(display, `"`))
	if len(fields) == 0 || strings.ContainsRune(fields[0], '@') {
		return ""
	}
	return fields[0]
}
