package notify

import "context"

// Notifier pushes short review summaries to the user's messaging channel.
// It is advisory only; triage results never depend on delivery.
type Notifier interface {
	Push(ctx context.Context, text string) error
}

// Noop is used when no channel is configured.
type Noop struct{}

func (Noop) Push(ctx context.Context, text string) error { return nil }
