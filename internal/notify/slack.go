// Package notify delivers burn notices to the team's Slack channel through an
// incoming webhook.
package notify

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/taskboard/internal/domain"
)

// Webhook posts burn notices to a Slack incoming webhook.
// *Webhook satisfies taskstore.Notifier.
type Webhook struct {
	url     string
	channel string
}

// NewWebhook creates a Webhook. channel may be empty to use the webhook's default.
func NewWebhook(url, channel string) *Webhook {
	return &Webhook{url: url, channel: channel}
}

// TaskBurned announces that actorID dropped t into the burn barrel.
func (w *Webhook) TaskBurned(ctx context.Context, actorID uuid.UUID, t *domain.Task) error {
	msg := &slacklib.WebhookMessage{
		Channel: w.channel,
		Text:    fmt.Sprintf("Task burned: %s", t.Title),
		Blocks:  &slacklib.Blocks{BlockSet: BuildBurnBlocks(t, actorID)},
	}

	if err := slacklib.PostWebhookContext(ctx, w.url, msg); err != nil {
		return fmt.Errorf("notify.Webhook.TaskBurned: %w", err)
	}
	return nil
}

// BuildBurnBlocks builds Slack Block Kit blocks for a burn notice.
func BuildBurnBlocks(t *domain.Task, actorID uuid.UUID) []slacklib.Block {
	text := fmt.Sprintf(":fire: *%s* was burned from `%s`", t.Title, t.Status)
	section := slacklib.NewSectionBlock(
		slacklib.NewTextBlockObject(slacklib.MarkdownType, text, false, false),
		nil,
		nil,
	)

	footer := slacklib.NewContextBlock("",
		slacklib.NewTextBlockObject(slacklib.MarkdownType,
			fmt.Sprintf("task `%s` by `%s`", t.ID, actorID), false, false),
	)

	return []slacklib.Block{section, footer}
}
