package triage

import (
	"fmt"
	"time"

	"github.com/PierreExeter/gmail-agent/internal/domain/calendar"
)

// Category is the classification assigned to a message. Exactly one of the
// four values; the fallback path always yields a concrete category, so no
// "unknown" ever leaves the classifier.
type Category string

const (
	CategoryNeedsReply     Category = "NEEDS_REPLY"
	CategoryFYIOnly        Category = "FYI_ONLY"
	CategoryMeetingRequest Category = "MEETING_REQUEST"
	CategoryTaskAction     Category = "TASK_ACTION"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryNeedsReply, CategoryFYIOnly, CategoryMeetingRequest, CategoryTaskAction:
		return true
	}
	return false
}

// Source tags a result as model-produced or heuristic fallback, so the
// degraded path is testable without triggering a network failure.
type Source string

const (
	SourceModel    Source = "MODEL"
	SourceFallback Source = "FALLBACK"
)

// ClassificationResult is created once per classify call and never mutated.
type ClassificationResult struct {
	Category   Category
	Confidence float64 // always in [0,1]
	Reasoning  string
	Source     Source
}

// Flag names a reason a message or draft is routed to manual review.
type Flag string

const (
	FlagUnknownSender    Flag = "UNKNOWN_SENDER"
	FlagSensitiveContent Flag = "SENSITIVE_CONTENT"
	FlagLowConfidence    Flag = "LOW_CONFIDENCE"
)

// ApprovalCheck is the accumulated flag set for one piece of content. It is
// recomputed from current content on every call and never persisted.
type ApprovalCheck struct {
	Flags []Flag
}

func (c ApprovalCheck) RequiresReview() bool {
	return len(c.Flags) > 0
}

func (c ApprovalCheck) Has(f Flag) bool {
	for _, flag := range c.Flags {
		if flag == f {
			return true
		}
	}
	return false
}

// Tone selects the register of a drafted reply.
type Tone string

const (
	ToneFormal   Tone = "FORMAL"
	ToneCasual   Tone = "CASUAL"
	ToneBrief    Tone = "BRIEF"
	ToneDetailed Tone = "DETAILED"
)

func (t Tone) Valid() bool {
	switch t {
	case ToneFormal, ToneCasual, ToneBrief, ToneDetailed:
		return true
	}
	return false
}

// DraftStatus is the lifecycle state of a draft reply.
type DraftStatus string

const (
	DraftPending  DraftStatus = "PENDING"
	DraftEdited   DraftStatus = "EDITED"
	DraftApproved DraftStatus = "APPROVED"
	DraftRejected DraftStatus = "REJECTED"
)

// CanTransition reports whether moving to next is a legal edge. Legal edges:
// PENDING -> EDITED|APPROVED|REJECTED, EDITED -> APPROVED|REJECTED.
// APPROVED and REJECTED are terminal.
func (s DraftStatus) CanTransition(next DraftStatus) bool {
	switch s {
	case DraftPending:
		return next == DraftEdited || next == DraftApproved || next == DraftRejected
	case DraftEdited:
		return next == DraftApproved || next == DraftRejected
	}
	return false
}

// Draft is a reply awaiting human decision. Status never auto-transitions.
type Draft struct {
	ID        string
	MessageID string
	Recipient string
	Subject   string
	Body      string
	Status    DraftStatus
	Source    Source
	CreatedAt time.Time
}

// Transition moves the draft to next, rejecting illegal edges.
func (d *Draft) Transition(next DraftStatus) error {
	if !d.Status.CanTransition(next) {
		return fmt.Errorf("illegal draft transition %s -> %s", d.Status, next)
	}
	d.Status = next
	return nil
}

// MeetingExtraction holds meeting intent pulled from a message. An empty
// ProposedTimes slice means the time could not be determined; callers must
// handle that rather than treating it as a failure.
type MeetingExtraction struct {
	HasMeetingRequest bool
	Title             string
	ProposedTimes     []calendar.Interval
	Duration          time.Duration
	Attendees         []string
	Location          string
	Notes             string
	Source            Source
}

// SchedulingProposal pairs a chosen interval with its conflict state against
// the caller-supplied busy list.
type SchedulingProposal struct {
	Interval     calendar.Interval
	HasConflict  bool
	Conflicts    []calendar.Interval
	AvailableAlt []calendar.Interval
}

// TrustedSender is a sender the user has marked as known. The address is the
// unique key; membership tests are case-insensitive.
type TrustedSender struct {
	Email string
	Name  string
}
