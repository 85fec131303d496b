// Package triage orchestrates the agent decision pipeline: classify an
// incoming message, compute review flags, draft a reply or extract meeting
// intent, persist the results, and notify the user when something needs
// their attention. External side effects (send, calendar create) only happen
// through the explicit approval methods.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/agent/approval"
	"github.com/PierreExeter/gmail-agent/internal/agent/classifier"
	"github.com/PierreExeter/gmail-agent/internal/agent/drafter"
	"github.com/PierreExeter/gmail-agent/internal/agent/scheduler"
	"github.com/PierreExeter/gmail-agent/internal/config"
	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
	"github.com/PierreExeter/gmail-agent/internal/domain/message"
	"github.com/PierreExeter/gmail-agent/internal/domain/notify"
	triagedomain "github.com/PierreExeter/gmail-agent/internal/domain/triage"
	"github.com/PierreExeter/gmail-agent/internal/model"
)

// Store is the persistence surface the service needs; *store.Store
// implements it.
type Store interface {
	SaveClassification(ctx context.Context, rec *model.ClassificationRecord) error
	CreateDraft(ctx context.Context, rec *model.DraftRecord) error
	GetDraft(ctx context.Context, id string) (*model.DraftRecord, error)
	ListDrafts(ctx context.Context, status string) ([]model.DraftRecord, error)
	TransitionDraft(ctx context.Context, id string, next triagedomain.DraftStatus, newBody string) (*model.DraftRecord, error)
	MarkDraftSent(ctx context.Context, id, sentMessageID string) error
	ListTrustedSenders(ctx context.Context) ([]string, error)
	AddTrustedSender(ctx context.Context, email, name string) error
}

type Service struct {
	messages   message.MessageRepo
	cal        calendar.CalendarRepo
	store      Store
	notifier   notify.Notifier
	classifier *classifier.Classifier
	drafter    *drafter.Drafter
	scheduler  *scheduler.Scheduler
	policy     config.Policy
	loc        *time.Location
	now        func() time.Time
}

func NewService(
	messages message.MessageRepo,
	cal calendar.CalendarRepo,
	st Store,
	notifier notify.Notifier,
	cls *classifier.Classifier,
	drf *drafter.Drafter,
	sch *scheduler.Scheduler,
	policy config.Policy,
	loc *time.Location,
) *Service {
	if notifier == nil {
		notifier = notify.Noop{}
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Service{
		messages:   messages,
		cal:        cal,
		store:      st,
		notifier:   notifier,
		classifier: cls,
		drafter:    drf,
		scheduler:  sch,
		policy:     policy,
		loc:        loc,
		now:        time.Now,
	}
}

// Result is everything one triage pass produced for a message.
type Result struct {
	Message        *message.Message                  `json:"message"`
	Classification triagedomain.ClassificationResult `json:"classification"`
	Approval       triagedomain.ApprovalCheck        `json:"approval"`
	Draft          *model.DraftRecord                `json:"draft,omitempty"`
	DraftApproval  *triagedomain.ApprovalCheck       `json:"draft_approval,omitempty"`
	Extraction     *triagedomain.MeetingExtraction   `json:"extraction,omitempty"`
	Proposal       *triagedomain.SchedulingProposal  `json:"proposal,omitempty"`
	Slots          []calendar.Interval               `json:"slots,omitempty"`
}

// TriageMessage runs the full pipeline for one message. It degrades rather
// than fails: classifier, drafter, and extractor all fall back internally,
// so an error here means a provider or storage problem, not a model one.
func (s *Service) TriageMessage(ctx context.Context, messageID string, tone triagedomain.Tone) (*Result, error) {
	msg, err := s.messages.GetMessage(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return s.triage(ctx, msg, tone)
}

// TriageLatest runs the pipeline over the most recent messages, one at a
// time. A failure on one message is logged and does not stop the batch.
func (s *Service) TriageLatest(ctx context.Context, maxResults int64, tone triagedomain.Tone) ([]*Result, error) {
	msgs, err := s.messages.GetLatestMessages(ctx, maxResults)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest messages: %w", err)
	}

	results := make([]*Result, 0, len(msgs))
	for _, msg := range msgs {
		res, err := s.triage(ctx, msg, tone)
		if err != nil {
			slog.Error("triage failed for message",
				"message_id", msg.ID,
				"error", err,
			)
			continue
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) triage(ctx context.Context, msg *message.Message, tone triagedomain.Tone) (*Result, error) {
	classification := s.classifier.Classify(ctx, msg)

	trusted, err := s.trustedSenders(ctx)
	if err != nil {
		return nil, err
	}

	check := approval.Check(
		msg.FromEmail,
		msg.Content(),
		classification.Confidence,
		trusted,
		s.policy.SensitiveKeywords,
		s.policy.ConfidenceThreshold,
	)

	rec := &model.ClassificationRecord{
		MessageID:      msg.ID,
		ThreadID:       msg.ThreadID,
		SenderEmail:    msg.FromEmail,
		Subject:        msg.Subject,
		Category:       string(classification.Category),
		Confidence:     classification.Confidence,
		Reasoning:      classification.Reasoning,
		Source:         string(classification.Source),
		Flags:          flagStrings(check),
		RequiresReview: check.RequiresReview(),
	}
	if err := s.store.SaveClassification(ctx, rec); err != nil {
		return nil, err
	}

	result := &Result{
		Message:        msg,
		Classification: classification,
		Approval:       check,
	}

	switch classification.Category {
	case triagedomain.CategoryNeedsReply:
		if err := s.draftReply(ctx, msg, tone, classification.Confidence, trusted, result); err != nil {
			return nil, err
		}
	case triagedomain.CategoryMeetingRequest:
		s.extractMeeting(ctx, msg, result)
	}

	s.notifyIfNeeded(ctx, msg, result)

	slog.Info("message triaged",
		"message_id", msg.ID,
		"category", classification.Category,
		"confidence", classification.Confidence,
		"source", classification.Source,
		"requires_review", check.RequiresReview(),
	)

	return result, nil
}

func (s *Service) draftReply(ctx context.Context, msg *message.Message, tone triagedomain.Tone, confidence float64, trusted []string, result *Result) error {
	draft, err := s.drafter.Draft(ctx, msg, tone)
	if err != nil {
		return fmt.Errorf("failed to draft reply: %w", err)
	}

	// the draft itself gets re-flagged: its body may introduce sensitive
	// content the original message lacked
	draftCheck := approval.Check(
		msg.FromEmail,
		draft.Body,
		confidence,
		trusted,
		s.policy.SensitiveKeywords,
		s.policy.ConfidenceThreshold,
	)

	rec := &model.DraftRecord{
		ID:        draft.ID,
		MessageID: msg.ID,
		ThreadID:  msg.ThreadID,
		Recipient: draft.Recipient,
		Subject:   draft.Subject,
		Body:      draft.Body,
		Status:    string(draft.Status),
		Source:    string(draft.Source),
	}
	if err := s.store.CreateDraft(ctx, rec); err != nil {
		return err
	}

	result.Draft = rec
	result.DraftApproval = &draftCheck
	return nil
}

func (s *Service) extractMeeting(ctx context.Context, msg *message.Message, result *Result) {
	extraction := s.scheduler.Extract(ctx, msg)
	result.Extraction = &extraction

	now := s.now().In(s.loc)
	window := calendar.Interval{
		Start: now,
		End:   now.AddDate(0, 0, s.policy.SearchWindowDays),
	}

	busy, err := s.cal.BusyIntervals(ctx, window.Start, window.End)
	if err != nil {
		// slot search is advisory at triage time; the extraction stands
		slog.Warn("failed to load busy intervals",
			"message_id", msg.ID,
			"error", err,
		)
		return
	}

	if len(extraction.ProposedTimes) > 0 {
		proposal, err := s.scheduler.Propose(
			extraction.ProposedTimes[0], busy, window, s.workingHours(), s.policy.MaxSlots)
		if err != nil {
			slog.Warn("failed to evaluate proposed time",
				"message_id", msg.ID,
				"error", err,
			)
		} else {
			result.Proposal = &proposal
		}
	}

	duration := extraction.Duration
	if duration <= 0 {
		duration = time.Duration(s.policy.DefaultDurationMin) * time.Minute
	}
	slots, err := scheduler.FindSlots(busy, duration, window, s.workingHours(), s.policy.MaxSlots)
	if err != nil {
		slog.Warn("failed to compute available slots",
			"message_id", msg.ID,
			"error", err,
		)
		return
	}
	result.Slots = slots
}

func (s *Service) notifyIfNeeded(ctx context.Context, msg *message.Message, result *Result) {
	if !result.Approval.RequiresReview() &&
		(result.DraftApproval == nil || !result.DraftApproval.RequiresReview()) {
		return
	}

	text := fmt.Sprintf("Needs review: %q from %s\nCategory: %s (%.2f)\nFlags: %s",
		msg.Subject,
		msg.FromEmail,
		result.Classification.Category,
		result.Classification.Confidence,
		strings.Join(flagStrings(result.Approval), ", "),
	)
	if err := s.notifier.Push(ctx, text); err != nil {
		slog.Warn("failed to push review notification",
			"message_id", msg.ID,
			"error", err,
		)
	}
}

// EditDraft replaces the draft body and recomputes its approval flags, since
// flags are a function of current content.
func (s *Service) EditDraft(ctx context.Context, id, body string) (*model.DraftRecord, triagedomain.ApprovalCheck, error) {
	rec, err := s.store.TransitionDraft(ctx, id, triagedomain.DraftEdited, body)
	if err != nil {
		return nil, triagedomain.ApprovalCheck{}, err
	}

	trusted, err := s.trustedSenders(ctx)
	if err != nil {
		return nil, triagedomain.ApprovalCheck{}, err
	}

	// content-only recheck: confidence equal to the threshold never flags
	check := approval.Check(
		rec.Recipient,
		rec.Body,
		s.policy.ConfidenceThreshold,
		trusted,
		s.policy.SensitiveKeywords,
		s.policy.ConfidenceThreshold,
	)
	return rec, check, nil
}

func (s *Service) ApproveDraft(ctx context.Context, id string) (*model.DraftRecord, error) {
	return s.store.TransitionDraft(ctx, id, triagedomain.DraftApproved, "")
}

func (s *Service) RejectDraft(ctx context.Context, id string) (*model.DraftRecord, error) {
	return s.store.TransitionDraft(ctx, id, triagedomain.DraftRejected, "")
}

// SendDraft hands an approved draft to the message provider. It refuses
// anything not explicitly approved by a human.
func (s *Service) SendDraft(ctx context.Context, id string) (string, error) {
	rec, err := s.store.GetDraft(ctx, id)
	if err != nil {
		return "", err
	}
	if triagedomain.DraftStatus(rec.Status) != triagedomain.DraftApproved {
		return "", fmt.Errorf("draft %s is %s, only approved drafts can be sent", id, rec.Status)
	}

	sentID, err := s.messages.SendReply(ctx, &message.OutgoingReply{
		To:       rec.Recipient,
		Subject:  rec.Subject,
		Body:     rec.Body,
		ThreadID: rec.ThreadID,
	})
	if err != nil {
		return "", fmt.Errorf("failed to send draft: %w", err)
	}

	if err := s.store.MarkDraftSent(ctx, id, sentID); err != nil {
		slog.Error("draft sent but not marked", "draft_id", id, "error", err)
	}

	slog.Info("draft sent", "draft_id", id, "sent_message_id", sentID)
	return sentID, nil
}

// ProposeSlots computes available meeting slots over the configured search
// window against the user's calendar.
func (s *Service) ProposeSlots(ctx context.Context, duration time.Duration) ([]calendar.Interval, error) {
	if duration <= 0 {
		duration = time.Duration(s.policy.DefaultDurationMin) * time.Minute
	}

	now := s.now().In(s.loc)
	window := calendar.Interval{
		Start: now,
		End:   now.AddDate(0, 0, s.policy.SearchWindowDays),
	}

	busy, err := s.cal.BusyIntervals(ctx, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}

	return scheduler.FindSlots(busy, duration, window, s.workingHours(), s.policy.MaxSlots)
}

// ScheduleMeeting creates the calendar event. It must only be called after
// the human confirmed the proposal; no automatic path reaches it.
func (s *Service) ScheduleMeeting(ctx context.Context, ev *calendar.NewEvent) (*calendar.Event, error) {
	busy, err := s.cal.BusyIntervals(ctx, ev.Interval.Start, ev.Interval.End)
	if err != nil {
		return nil, fmt.Errorf("failed to load busy intervals: %w", err)
	}
	conflicts, err := scheduler.Conflicts(ev.Interval, busy)
	if err != nil {
		return nil, err
	}
	if len(conflicts) > 0 {
		slog.Warn("scheduling over a conflict",
			"summary", ev.Summary,
			"conflicts", len(conflicts),
		)
	}

	created, err := s.cal.CreateEvent(ctx, ev)
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	slog.Info("event created", "event_id", created.ID, "summary", created.Summary)
	return created, nil
}

func (s *Service) ListDrafts(ctx context.Context, status string) ([]model.DraftRecord, error) {
	return s.store.ListDrafts(ctx, status)
}

func (s *Service) AddTrustedSender(ctx context.Context, email, name string) error {
	return s.store.AddTrustedSender(ctx, email, name)
}

// SetModel swaps the model identifier on every agent. Cached inference
// clients are dropped; in-flight calls finish on the old model.
func (s *Service) SetModel(modelID string) {
	s.classifier.SetModel(modelID)
	s.drafter.SetModel(modelID)
	s.scheduler.SetModel(modelID)
	slog.Info("model swapped", "model_id", modelID)
}

// trustedSenders combines the static policy list with senders the user
// added at runtime.
func (s *Service) trustedSenders(ctx context.Context) ([]string, error) {
	stored, err := s.store.ListTrustedSenders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load trusted senders: %w", err)
	}
	return append(append([]string{}, s.policy.TrustedSenders...), stored...), nil
}

func (s *Service) workingHours() calendar.WorkingHours {
	return calendar.WorkingHours{
		Start: time.Duration(s.policy.WorkingHourStart) * time.Hour,
		End:   time.Duration(s.policy.WorkingHourEnd) * time.Hour,
	}
}

func flagStrings(check triagedomain.ApprovalCheck) []string {
	out := make([]string, 0, len(check.Flags))
	for _, f := range check.Flags {
		out = append(out, string(f))
	}
	return out
}
