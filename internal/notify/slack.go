package notify

import (
	"context"

	"github.com/slack-go/slack"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

// slackMaxChars matches Slack's message text limit (§4.I supplemented
// provider, beyond the distilled spec's three named platforms — the
// teacher and pack both carry first-class Slack support and the
// Provider interface is explicitly open-ended).
const slackMaxChars = 4000

// SlackProvider sends via a bot token over the Web API, supporting
// Block Kit buttons and edit-in-place. Unlike Telegram's pollable
// getUpdates, Slack delivers block_actions callbacks to an HTTP
// Events/Interactivity endpoint; this module's Callback Poller (§4.L)
// is Telegram-only, so a Slack button click is rendered but not yet
// routed back to the approval manager (see DESIGN.md).
type SlackProvider struct{}

// NewSlackProvider constructs the Slack provider.
func NewSlackProvider() *SlackProvider { return &SlackProvider{} }

func (p *SlackProvider) Name() string { return "slack" }

func (p *SlackProvider) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		RequiredSecrets: []string{"bot_token"},
		RequiredConfig:  []string{"channel_id"},
	}
}

func (p *SlackProvider) FormatMessage(text string) string {
	if len(text) > slackMaxChars {
		return text[:slackMaxChars-len("\n[truncated]")] + "\n[truncated]"
	}
	return text
}

func (p *SlackProvider) ValidateConfig(cfg map[string]string) error { return nil }

func (p *SlackProvider) channelID(ch channels.Channel) string {
	if ch.Config == nil {
		return ""
	}
	return ch.Config["channel_id"]
}

func (p *SlackProvider) TestConnection(ctx context.Context, ch channels.Channel, secret string) (bool, string) {
	client := slack.New(secret)
	resp, err := client.AuthTestContext(ctx)
	if err != nil {
		return false, err.Error()
	}
	return true, "connected as " + resp.User
}

func (p *SlackProvider) Send(ctx context.Context, ch channels.Channel, secret, text string) (SendResult, error) {
	client := slack.New(secret)
	_, ts, err := client.PostMessageContext(ctx, p.channelID(ch), slack.MsgOptionText(p.FormatMessage(text), false))
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, MessageID: ts, ChatID: p.channelID(ch)}, nil
}

func (p *SlackProvider) SendInteractive(ctx context.Context, ch channels.Channel, secret string, m Message) (SendResult, error) {
	client := slack.New(secret)
	blocks := slack.MsgOptionBlocks(messageBlocks(p.FormatMessage(m.Text), m.Buttons)...)
	_, ts, err := client.PostMessageContext(ctx, p.channelID(ch), blocks)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, MessageID: ts, ChatID: p.channelID(ch)}, nil
}

func (p *SlackProvider) Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error {
	client := slack.New(secret)
	_, _, _, err := client.UpdateMessageContext(ctx, p.channelID(ch), messageID, slack.MsgOptionText(p.FormatMessage(text), false))
	return err
}

func (p *SlackProvider) RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error {
	client := slack.New(secret)
	_, _, _, err := client.UpdateMessageContext(ctx, p.channelID(ch), messageID,
		slack.MsgOptionBlocks(slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, p.FormatMessage(newText), false, false), nil, nil)))
	return err
}

func messageBlocks(text string, buttons []Button) []slack.Block {
	blocks := []slack.Block{
		slack.NewSectionBlock(slack.NewTextBlockObject(slack.MarkdownType, text, false, false), nil, nil),
	}
	if len(buttons) == 0 {
		return blocks
	}
	var elems []slack.BlockElement
	for _, b := range buttons {
		btn := slack.NewButtonBlockElement(b.CallbackData, b.CallbackData, slack.NewTextBlockObject(slack.PlainTextType, b.Label, false, false))
		if b.URL != "" {
			btn.URL = b.URL
		}
		elems = append(elems, btn)
	}
	blocks = append(blocks, slack.NewActionBlock("plan_approval", elems...))
	return blocks
}
