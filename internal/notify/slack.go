// Package notify pushes human-facing notifications about coordination
// activity. Notification is a side effect like persistence: failures are
// logged by the caller and never affect the pipeline.
package notify

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"
)

// SlackNotifier posts a short message to a Slack incoming webhook for
// every dispatched coordination command.
type SlackNotifier struct {
	webhookURL string
}

// NewSlackNotifier creates a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{webhookURL: webhookURL}
}

// CommandDispatched posts the dispatch notification.
func (n *SlackNotifier) CommandDispatched(ctx context.Context, sourceDistrict, targetDistrict, actionType, reason string) error {
	msg := &slack.WebhookMessage{
		Text: fmt.Sprintf(":rotating_light: coordination command `%s` → *%s* (escalated by %s, reason: %s)",
			actionType, targetDistrict, sourceDistrict, reason),
	}
	if err := slack.PostWebhookContext(ctx, n.webhookURL, msg); err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	return nil
}
