// Package scheduler extracts meeting intent from messages and computes
// available calendar slots. Extraction has the usual model/fallback duality;
// slot search is pure interval math with no inference involved.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/agent/llmjson"
	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
	"github.com/PierreExeter/gmail-agent/internal/domain/llm"
	"github.com/PierreExeter/gmail-agent/internal/domain/message"
	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

const maxBodyChars = 2000

const defaultDuration = 60 * time.Minute

const extractionPrompt = `Extract meeting details from this email. Identify if a meeting is being requested.

Email:
From: %s
Subject: %s
Content: %s

Respond with a JSON object:
{
    "has_meeting_request": true/false,
    "title": "meeting title or subject",
    "proposed_times": ["any mentioned times/dates"],
    "duration_minutes": estimated duration (default 60),
    "attendees": ["email addresses if mentioned"],
    "location": "location if mentioned",
    "notes": "relevant details"
}

JSON:`

var meetingKeywords = []string{
	"meet", "call", "schedule", "calendar", "invite",
	"available", "discuss", "catch up", "sync",
}

type Scheduler struct {
	factory llm.Factory
	loc     *time.Location
	now     func() time.Time

	mu      sync.Mutex
	modelID string
	client  llm.Client
}

func New(modelID string, factory llm.Factory, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		factory: factory,
		loc:     loc,
		now:     time.Now,
		modelID: modelID,
	}
}

func (s *Scheduler) SetModel(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.modelID = modelID
	s.client = nil
}

func (s *Scheduler) getClient() llm.Client {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.client == nil {
		s.client = s.factory(s.modelID)
	}
	return s.client
}

// Extract pulls meeting intent from a message. It never fails outright:
// gateway or parse failures degrade to the pattern-matching fallback, and an
// unparseable time yields an empty ProposedTimes slice for the caller to
// handle.
func (s *Scheduler) Extract(ctx context.Context, msg *message.Message) triage.MeetingExtraction {
	body := msg.Body
	if body == "" {
		body = msg.Snippet
	}
	if len(body) > maxBodyChars {
		body = body[:maxBodyChars]
	}

	raw, err := s.getClient().Complete(ctx, llm.Request{
		Prompt:      fmt.Sprintf(extractionPrompt, msg.From, msg.Subject, body),
		MaxTokens:   256,
		Temperature: 0.1,
		ExpectJSON:  true,
	})
	if err != nil {
		slog.Warn("meeting extraction call failed, using fallback",
			"message_id", msg.ID,
			"error", err,
		)
		return s.FallbackExtract(msg)
	}

	extraction, err := s.parseExtraction(raw, msg)
	if err != nil {
		slog.Warn("unparsable extraction response, using fallback",
			"message_id", msg.ID,
			"error", err,
		)
		return s.FallbackExtract(msg)
	}
	return extraction
}

type extractionResponse struct {
	HasMeetingRequest any                `json:"has_meeting_request"`
	Title             string             `json:"title"`
	ProposedTimes     llmjson.StringList `json:"proposed_times"`
	DurationMinutes   llmjson.Number     `json:"duration_minutes"`
	Attendees         llmjson.StringList `json:"attendees"`
	Location          string             `json:"location"`
	Notes             string             `json:"notes"`
}

func (s *Scheduler) parseExtraction(raw string, msg *message.Message) (triage.MeetingExtraction, error) {
	var resp extractionResponse
	if err := llmjson.Unmarshal(raw, &resp); err != nil {
		return triage.MeetingExtraction{}, err
	}

	duration := time.Duration(resp.DurationMinutes) * time.Minute
	if duration <= 0 {
		duration = defaultDuration
	}

	var proposed []calendar.Interval
	for _, phrase := range resp.ProposedTimes {
		if iv, ok := s.parseTimePhrase(phrase, duration); ok {
			proposed = append(proposed, iv)
		}
	}

	attendees := []string(resp.Attendees)
	if len(attendees) == 0 && msg.FromEmail != "" {
		attendees = []string{msg.FromEmail}
	}

	title := strings.TrimSpace(resp.Title)
	if title == "" {
		title = msg.Subject
	}

	return triage.MeetingExtraction{
		HasMeetingRequest: parseBool(resp.HasMeetingRequest),
		Title:             title,
		ProposedTimes:     proposed,
		Duration:          duration,
		Attendees:         attendees,
		Location:          resp.Location,
		Notes:             resp.Notes,
		Source:            triage.SourceModel,
	}, nil
}

func parseBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true", "yes", "1":
			return true
		}
	case float64:
		return b != 0
	}
	return false
}

// FallbackExtract derives meeting intent from the message text alone:
// keyword presence, duration phrases, and weekday/clock patterns. Attendees
// default to the sender.
func (s *Scheduler) FallbackExtract(msg *message.Message) triage.MeetingExtraction {
	combined := strings.ToLower(msg.Content())

	hasMeeting := false
	for _, kw := range meetingKeywords {
		if strings.Contains(combined, kw) {
			hasMeeting = true
			break
		}
	}

	duration := defaultDuration
	switch {
	case strings.Contains(combined, "15 min"):
		duration = 15 * time.Minute
	case strings.Contains(combined, "30 min"), strings.Contains(combined, "half hour"):
		duration = 30 * time.Minute
	case strings.Contains(combined, "2 hour"):
		duration = 2 * time.Hour
	}

	var proposed []calendar.Interval
	if iv, ok := s.parseTimePhrase(combined, duration); ok {
		proposed = append(proposed, iv)
	}

	var attendees []string
	if msg.FromEmail != "" {
		attendees = []string{msg.FromEmail}
	}

	return triage.MeetingExtraction{
		HasMeetingRequest: hasMeeting,
		Title:             msg.Subject,
		ProposedTimes:     proposed,
		Duration:          duration,
		Attendees:         attendees,
		Source:            triage.SourceFallback,
	}
}

// Propose evaluates a chosen interval against the busy list and, when it
// conflicts, offers alternative slots from the same window.
func (s *Scheduler) Propose(interval calendar.Interval, busy []calendar.Interval, window calendar.Interval, hours calendar.WorkingHours, maxAlternatives int) (triage.SchedulingProposal, error) {
	conflicts, err := Conflicts(interval, busy)
	if err != nil {
		return triage.SchedulingProposal{}, err
	}

	proposal := triage.SchedulingProposal{
		Interval:    interval,
		HasConflict: len(conflicts) > 0,
		Conflicts:   conflicts,
	}

	if proposal.HasConflict {
		alts, err := FindSlots(busy, interval.Duration(), window, hours, maxAlternatives)
		if err != nil {
			return triage.SchedulingProposal{}, err
		}
		proposal.AvailableAlt = alts
	}

	return proposal, nil
}
