package line

import (
	"context"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	notifydomain "github.com/PierreExeter/gmail-agent/internal/domain/notify"
)

type lineNotifier struct {
	bot    *messaging_api.MessagingApiAPI
	userID string
}

var _ notifydomain.Notifier = (*lineNotifier)(nil)

// NewNotifier builds a LINE push channel for review notifications, bound to
// a single recipient.
func NewNotifier(channelToken, userID string) (notifydomain.Notifier, error) {
	if channelToken == "" {
		return nil, fmt.Errorf("line channel token is empty")
	}
	if userID == "" {
		return nil, fmt.Errorf("line user ID is empty")
	}

	bot, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging API: %w", err)
	}

	return &lineNotifier{bot: bot, userID: userID}, nil
}

func (n *lineNotifier) Push(ctx context.Context, text string) error {
	_, err := n.bot.PushMessage(
		&messaging_api.PushMessageRequest{
			To: n.userID,
			Messages: []messaging_api.MessageInterface{
				messaging_api.TextMessage{
					Text: text,
				},
			},
		},
		"",
	)
	if err != nil {
		return fmt.Errorf("failed to push notification: %w", err)
	}
	return nil
}
