package triage

import "testing"

func TestDraftStatusTransitions(t *testing.T) {
	tests := []struct {
		from    DraftStatus
		to      DraftStatus
		allowed bool
	}{
		{DraftPending, DraftEdited, true},
		{DraftPending, DraftApproved, true},
		{DraftPending, DraftRejected, true},
		{DraftEdited, DraftApproved, true},
		{DraftEdited, DraftRejected, true},
		{DraftEdited, DraftPending, false},
		{DraftApproved, DraftRejected, false},
		{DraftApproved, DraftPending, false},
		{DraftRejected, DraftApproved, false},
		{DraftRejected, DraftEdited, false},
		{DraftPending, DraftPending, false},
		{DraftEdited, DraftEdited, false},
	}

	for _, tt := range tests {
		if got := tt.from.CanTransition(tt.to); got != tt.allowed {
			t.Errorf("CanTransition(%s -> %s) = %v; want %v", tt.from, tt.to, got, tt.allowed)
		}
	}
}

func TestDraftTransitionRejectsIllegalEdge(t *testing.T) {
	d := &Draft{Status: DraftApproved}
	if err := d.Transition(DraftRejected); err == nil {
		t.Fatal("expected error for APPROVED -> REJECTED, got nil")
	}
	if d.Status != DraftApproved {
		t.Errorf("status changed on rejected transition: %s", d.Status)
	}

	d = &Draft{Status: DraftPending}
	if err := d.Transition(DraftEdited); err != nil {
		t.Fatalf("PENDING -> EDITED: %v", err)
	}
	if err := d.Transition(DraftApproved); err != nil {
		t.Fatalf("EDITED -> APPROVED: %v", err)
	}
}

func TestCategoryValid(t *testing.T) {
	for _, c := range []Category{CategoryNeedsReply, CategoryFYIOnly, CategoryMeetingRequest, CategoryTaskAction} {
		if !c.Valid() {
			t.Errorf("%s should be valid", c)
		}
	}
	if Category("UNKNOWN").Valid() {
		t.Error("UNKNOWN should not be valid")
	}
}

func TestApprovalCheckRequiresReview(t *testing.T) {
	if (ApprovalCheck{}).RequiresReview() {
		t.Error("empty flag set should not require review")
	}
	c := ApprovalCheck{Flags: []Flag{FlagLowConfidence}}
	if !c.RequiresReview() {
		t.Error("non-empty flag set should require review")
	}
	if !c.Has(FlagLowConfidence) || c.Has(FlagUnknownSender) {
		t.Error("Has reported wrong membership")
	}
}
