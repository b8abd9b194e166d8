package reconcile

import (
	"context"
	"fmt"
	"strings"

	"guild-backup/core/guild"
	"guild-backup/core/snapshot"
)

// relayMessage renders a stored message for replay. Attachments are appended
// as links since they cannot be re-uploaded through a webhook.
func (e *engine) relayMessage(m snapshot.Message) guild.RelayMessage {
	content := m.SystemContent
	if content == "" {
		content = m.Content
	}
	content = e.sanitizer.Sanitize(content)
	if len(m.Attachments) > 0 {
		links := strings.Join(m.Attachments, "\n")
		if strings.TrimSpace(content) == "" {
			content = links
		} else {
			content += "\n" + links
		}
	}
	return guild.RelayMessage{
		Username:  m.Author.Name,
		AvatarURL: m.Author.Avatar,
		Content:   content,
		Embeds:    m.Embeds,
	}
}

// tail returns the last n messages, keeping their order.
func tail(msgs []snapshot.Message, n int) []snapshot.Message {
	if n <= 0 {
		return nil
	}
	if len(msgs) > n {
		return msgs[len(msgs)-n:]
	}
	return msgs
}

// replay sends msgs, oldest first, through a transient webhook on channelID
// and removes the webhook afterwards. Only aborting errors are returned.
func (e *engine) replay(ctx context.Context, r *run, channelID string, msgs []snapshot.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	hook, err := e.client.CreateWebhook(ctx, channelID, RelayName)
	if err != nil {
		return r.fail(KindMessage, "", channelID, fmt.Errorf("create relay: %w", err))
	}

	sendErr := e.relayAll(ctx, r, hook, channelID, msgs)

	// The relay is removed even when the run is being cancelled.
	if err := e.client.DeleteWebhook(context.WithoutCancel(ctx), hook.ID); err != nil {
		if ferr := r.fail(KindMessage, "", channelID, fmt.Errorf("remove relay: %w", err)); ferr != nil && sendErr == nil {
			return ferr
		}
	}
	return sendErr
}

func (e *engine) relayAll(ctx context.Context, r *run, hook *guild.Webhook, channelID string, msgs []snapshot.Message) error {
	for _, m := range msgs {
		relay := e.relayMessage(m)
		if strings.TrimSpace(relay.Content) == "" && len(relay.Embeds) == 0 {
			r.skip(KindMessage, m.ID, "empty message")
			continue
		}
		if err := e.client.ExecuteWebhook(ctx, hook, relay); err != nil {
			if err := r.fail(KindMessage, m.ID, channelID, err); err != nil {
				return err
			}
			continue
		}
		r.record(Outcome{Kind: KindMessage, SourceID: m.ID, TargetID: channelID, Action: ActionCreated})
	}
	return nil
}
