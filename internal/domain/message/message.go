package message

import (
	"context"
	"strings"
	"time"
)

// Message is an immutable email record supplied by the message provider.
type Message struct {
	ID         string
	ThreadID   string
	From       string // display name, may be empty
	FromEmail  string
	To         string
	Subject    string
	Body       string // plain text body
	Snippet    string
	ReceivedAt time.Time
}

// Content returns the text the pipeline inspects: subject plus body, with the
// snippet standing in when the body could not be decoded.
func (m *Message) Content() string {
	body := m.Body
	if body == "" {
		body = m.Snippet
	}
	return strings.TrimSpace(m.Subject + " " + body)
}

// OutgoingReply is a reply handed to the provider after human approval.
type OutgoingReply struct {
	To       string
	Subject  string
	Body     string
	ThreadID string
}

type MessageRepo interface {
	GetLatestMessages(ctx context.Context, maxResults int64) ([]*Message, error)
	GetUnreadMessages(ctx context.Context, maxResults int64) ([]*Message, error)
	GetMessage(ctx context.Context, messageID string) (*Message, error)
	SendReply(ctx context.Context, reply *OutgoingReply) (string, error)
}
