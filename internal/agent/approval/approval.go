// Package approval computes review flags for messages and drafts. It is pure
// and deterministic: flags are a function of current content and policy, not
// of history, so it is always safe to recompute after an edit.
package approval

import (
	"strings"

	"github.com/PierreExeter/gmail-agent/internal/domain/triage"
)

// Check evaluates every rule independently and accumulates flags:
//
//   - UNKNOWN_SENDER when senderEmail is not in the trusted set
//     (case-insensitive exact match on the address)
//   - SENSITIVE_CONTENT when any keyword occurs in content
//     (case-insensitive substring)
//   - LOW_CONFIDENCE when confidence is strictly below threshold;
//     confidence exactly equal to the threshold does not flag
func Check(senderEmail, content string, confidence float64, trusted []string, keywords []string, threshold float64) triage.ApprovalCheck {
	var flags []triage.Flag

	if !isTrusted(senderEmail, trusted) {
		flags = append(flags, triage.FlagUnknownSender)
	}

	if len(FindSensitiveKeywords(content, keywords)) > 0 {
		flags = append(flags, triage.FlagSensitiveContent)
	}

	if confidence < threshold {
		flags = append(flags, triage.FlagLowConfidence)
	}

	return triage.ApprovalCheck{Flags: flags}
}

// FindSensitiveKeywords returns every configured keyword present in text.
func FindSensitiveKeywords(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			found = append(found, kw)
		}
	}
	return found
}

func isTrusted(senderEmail string, trusted []string) bool {
	if senderEmail == "" {
		return false
	}
	for _, addr := range trusted {
		if strings.EqualFold(addr, senderEmail) {
			return true
		}
	}
	return false
}
