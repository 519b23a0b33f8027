// Package slack delivers notifications as Slack direct messages.
package slack

import (
	"context"
	"errors"
	"fmt"
	"strings"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/taskhub/internal/messenger"
)

// SlackAPI is the subset of *slack.Client used by SlackMessenger.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// SlackMessenger implements messenger.Messenger for Slack.
type SlackMessenger struct {
	api SlackAPI
}

var _ messenger.Messenger = (*SlackMessenger)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlackMessenger creates a SlackMessenger with the given API client.
func NewSlackMessenger(api SlackAPI) *SlackMessenger {
	return &SlackMessenger{api: api}
}

// SendNotification posts text to the member's app DM. Posting to a member ID
// makes Slack route the message into the bot's direct conversation.
func (m *SlackMessenger) SendNotification(ctx context.Context, userExternalID, text string) error {
	if strings.TrimSpace(userExternalID) == "" {
		return errors.New("slack.SlackMessenger.SendNotification: empty member id")
	}

	_, _, err := m.api.PostMessageContext(ctx, userExternalID,
		slacklib.MsgOptionText(text, false),
		slacklib.MsgOptionBlocks(notificationBlock(text)),
	)
	if err != nil {
		return fmt.Errorf("slack.SlackMessenger.SendNotification: %w", err)
	}

	return nil
}

func (m *SlackMessenger) Platform() string {
	return "slack"
}

func notificationBlock(text string) slacklib.Block {
	return slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil, nil,
	)
}
