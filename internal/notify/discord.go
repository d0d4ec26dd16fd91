package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

// discordMaxChars is Discord's webhook message-content limit (§4.I).
const discordMaxChars = 2000

// DiscordProvider sends via an incoming webhook URL by default. A
// channel configured with config["mode"]="bot" and a bot-token secret
// instead goes through discordgo's REST client, which — unlike a plain
// webhook — supports editing a sent message and attaching interactive
// button components, so only bot-mode channels can participate in the
// plan-approval edit-in-place/button flow.
type DiscordProvider struct {
	httpClient *http.Client
}

// NewDiscordProvider constructs the Discord provider.
func NewDiscordProvider() *DiscordProvider {
	return &DiscordProvider{httpClient: http.DefaultClient}
}

func (p *DiscordProvider) Name() string { return "discord" }

func (p *DiscordProvider) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		RequiredSecrets: []string{"webhook_url"},
		OptionalConfig:  map[string]string{"mode": "webhook|bot", "channel_id": "required when mode=bot"},
	}
}

func isBotMode(ch channels.Channel) bool {
	return ch.Config != nil && ch.Config["mode"] == "bot"
}

func discordSession(token string) (*discordgo.Session, error) {
	return discordgo.New("Bot " + token)
}

func (p *DiscordProvider) FormatMessage(text string) string {
	if len(text) > discordMaxChars {
		return text[:discordMaxChars-len("\n[truncated]")] + "\n[truncated]"
	}
	return text
}

func (p *DiscordProvider) ValidateConfig(cfg map[string]string) error { return nil }

func (p *DiscordProvider) TestConnection(ctx context.Context, ch channels.Channel, secret string) (bool, string) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, secret, nil)
	if err != nil {
		return false, err.Error()
	}
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return false, err.Error()
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return false, fmt.Sprintf("webhook probe returned %d", resp.StatusCode)
	}
	return true, "webhook reachable"
}

func (p *DiscordProvider) Send(ctx context.Context, ch channels.Channel, secret, text string) (SendResult, error) {
	if isBotMode(ch) {
		sess, err := discordSession(secret)
		if err != nil {
			return SendResult{}, err
		}
		msg, err := sess.ChannelMessageSend(ch.Config["channel_id"], p.FormatMessage(text), discordgo.WithContext(ctx))
		if err != nil {
			return SendResult{}, err
		}
		return SendResult{Success: true, MessageID: msg.ID, ChatID: msg.ChannelID}, nil
	}

	body, err := json.Marshal(map[string]string{"content": p.FormatMessage(text)})
	if err != nil {
		return SendResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, secret, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return SendResult{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return SendResult{}, fmt.Errorf("notify/discord: webhook returned %d", resp.StatusCode)
	}
	return SendResult{Success: true}, nil
}

func (p *DiscordProvider) SendInteractive(ctx context.Context, ch channels.Channel, secret string, m Message) (SendResult, error) {
	if !isBotMode(ch) {
		return SendResult{}, ErrNotSupported
	}
	sess, err := discordSession(secret)
	if err != nil {
		return SendResult{}, err
	}
	msg, err := sess.ChannelMessageSendComplex(ch.Config["channel_id"], &discordgo.MessageSend{
		Content:    p.FormatMessage(m.Text),
		Components: discordButtons(m.Buttons),
	}, discordgo.WithContext(ctx))
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, MessageID: msg.ID, ChatID: msg.ChannelID}, nil
}

func (p *DiscordProvider) Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error {
	if !isBotMode(ch) {
		return ErrNotSupported
	}
	sess, err := discordSession(secret)
	if err != nil {
		return err
	}
	edit := discordgo.NewMessageEdit(ch.Config["channel_id"], messageID)
	content := p.FormatMessage(text)
	edit.Content = &content
	_, err = sess.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func (p *DiscordProvider) RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error {
	if !isBotMode(ch) {
		return ErrNotSupported
	}
	sess, err := discordSession(secret)
	if err != nil {
		return err
	}
	edit := discordgo.NewMessageEdit(ch.Config["channel_id"], messageID)
	content := p.FormatMessage(newText)
	edit.Content = &content
	empty := []discordgo.MessageComponent{}
	edit.Components = &empty
	_, err = sess.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return err
}

func discordButtons(buttons []Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		btn := discordgo.Button{Label: b.Label, Style: discordgo.PrimaryButton}
		if b.URL != "" {
			btn.Style = discordgo.LinkButton
			btn.URL = b.URL
		} else {
			btn.CustomID = b.CallbackData
		}
		row.Components = append(row.Components, btn)
	}
	return []discordgo.MessageComponent{row}
}
