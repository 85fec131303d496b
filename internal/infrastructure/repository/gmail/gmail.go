package gmail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/mail"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	messagedomain "github.com/PierreExeter/gmail-agent/internal/domain/message"
)

const user = "me"

type gmailRepo struct {
	srv *gmail.Service
}

var _ messagedomain.MessageRepo = (*gmailRepo)(nil)

// NewMessageRepo builds a Gmail-backed message provider from an OAuth client
// credentials file and a previously saved token file.
func NewMessageRepo(ctx context.Context, credentialsPath, tokenPath string) (messagedomain.MessageRepo, error) {
	b, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope, gmail.GmailSendScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	token, err := tokenFromFile(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("unable to load oauth token (run the auth flow first): %w", err)
	}

	client := config.Client(ctx, token)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}

	return &gmailRepo{srv: srv}, nil
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, err
	}
	return tok, nil
}

func (r *gmailRepo) GetLatestMessages(ctx context.Context, maxResults int64) ([]*messagedomain.Message, error) {
	msgs, err := r.srv.Users.Messages.List(user).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %w", err)
	}
	return r.fetchAll(ctx, msgs.Messages)
}

func (r *gmailRepo) GetUnreadMessages(ctx context.Context, maxResults int64) ([]*messagedomain.Message, error) {
	msgs, err := r.srv.Users.Messages.List(user).LabelIds("UNREAD").MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve unread messages: %w", err)
	}
	return r.fetchAll(ctx, msgs.Messages)
}

func (r *gmailRepo) fetchAll(ctx context.Context, refs []*gmail.Message) ([]*messagedomain.Message, error) {
	var messages []*messagedomain.Message
	for _, m := range refs {
		msg, err := r.GetMessage(ctx, m.Id)
		if err != nil {
			continue // skip messages we can't retrieve
		}
		messages = append(messages, msg)
	}
	return messages, nil
}

func (r *gmailRepo) GetMessage(ctx context.Context, messageID string) (*messagedomain.Message, error) {
	msg, err := r.srv.Users.Messages.Get(user, messageID).Format("full").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %w", err)
	}

	out := &messagedomain.Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}

	for _, header := range msg.Payload.Headers {
		switch header.Name {
		case "From":
			out.From = header.Value
			if addr, err := mail.ParseAddress(header.Value); err == nil {
				out.FromEmail = strings.ToLower(addr.Address)
				if addr.Name != "" {
					out.From = addr.Name
				}
			} else {
				out.FromEmail = strings.ToLower(strings.Trim(header.Value, "<> "))
			}
		case "To":
			out.To = header.Value
		case "Subject":
			out.Subject = header.Value
		case "Date":
			out.ReceivedAt = parseDate(header.Value)
		}
	}
	if out.ReceivedAt.IsZero() {
		out.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}

	if msg.Payload != nil {
		out.Body = plainTextBody(msg.Payload)
	}

	return out, nil
}

// Gmail Date headers arrive in several RFC 2822 variants.
var dateLayouts = []string{
	time.RFC1123Z,
	time.RFC1123,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		decoded, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err != nil {
			return ""
		}
		return string(decoded)
	}
	for _, part := range payload.Parts {
		if body := plainTextBody(part); body != "" {
			return body
		}
	}
	return ""
}

// SendReply sends an approved draft as an RFC 822 message threaded onto the
// original conversation.
func (r *gmailRepo) SendReply(ctx context.Context, reply *messagedomain.OutgoingReply) (string, error) {
	var raw strings.Builder
	fmt.Fprintf(&raw, "To: %s\r\n", reply.To)
	fmt.Fprintf(&raw, "Subject: %s\r\n", reply.Subject)
	raw.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	raw.WriteString("\r\n")
	raw.WriteString(reply.Body)

	msg := &gmail.Message{
		Raw:      base64.URLEncoding.EncodeToString([]byte(raw.String())),
		ThreadId: reply.ThreadID,
	}

	sent, err := r.srv.Users.Messages.Send(user, msg).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("unable to send reply: %w", err)
	}
	return sent.Id, nil
}
