package notify

import (
	"context"
	"fmt"
	"strconv"

	"github.com/mymmrac/telego"
	tu "github.com/mymmrac/telego/telegoutil"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

// telegramMaxChars is Telegram's message-length limit (§4.I), the same
// constant as internal/channels/telegram/stream.go's streamMaxChars.
const telegramMaxChars = 4096

// TelegramProvider sends via the Telegram Bot HTTP API, grounded on
// internal/channels/telegram/stream.go's DraftStream throttled-edit
// idiom (truncation, dedup, editMessageText).
type TelegramProvider struct{}

// NewTelegramProvider constructs the Telegram notification provider.
func NewTelegramProvider() *TelegramProvider { return &TelegramProvider{} }

func (p *TelegramProvider) Name() string { return "telegram" }

func (p *TelegramProvider) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		RequiredSecrets: []string{"bot_token"},
		RequiredConfig:  []string{"chat_id"},
	}
}

func (p *TelegramProvider) FormatMessage(text string) string {
	if len(text) > telegramMaxChars {
		return text[:telegramMaxChars-len(truncationNotice)] + truncationNotice
	}
	return text
}

func (p *TelegramProvider) ValidateConfig(cfg map[string]string) error {
	if cfg["chat_id"] == "" {
		return fmt.Errorf("notify/telegram: missing chat_id")
	}
	if _, err := strconv.ParseInt(cfg["chat_id"], 10, 64); err != nil {
		return fmt.Errorf("notify/telegram: chat_id must be numeric: %w", err)
	}
	return nil
}

func (p *TelegramProvider) bot(secret string) (*telego.Bot, error) {
	return telego.NewBot(secret)
}

func (p *TelegramProvider) chatID(ch channels.Channel) (int64, error) {
	return strconv.ParseInt(ch.Config["chat_id"], 10, 64)
}

func (p *TelegramProvider) TestConnection(ctx context.Context, ch channels.Channel, secret string) (bool, string) {
	bot, err := p.bot(secret)
	if err != nil {
		return false, err.Error()
	}
	me, err := bot.GetMe(ctx)
	if err != nil {
		return false, err.Error()
	}
	return true, fmt.Sprintf("connected as @%s", me.Username)
}

func (p *TelegramProvider) Send(ctx context.Context, ch channels.Channel, secret, text string) (SendResult, error) {
	bot, err := p.bot(secret)
	if err != nil {
		return SendResult{}, err
	}
	chatID, err := p.chatID(ch)
	if err != nil {
		return SendResult{}, err
	}
	msg, err := bot.SendMessage(ctx, tu.Message(tu.ID(chatID), p.FormatMessage(text)))
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, MessageID: strconv.Itoa(msg.MessageID), ChatID: ch.Config["chat_id"]}, nil
}

func (p *TelegramProvider) SendInteractive(ctx context.Context, ch channels.Channel, secret string, m Message) (SendResult, error) {
	bot, err := p.bot(secret)
	if err != nil {
		return SendResult{}, err
	}
	chatID, err := p.chatID(ch)
	if err != nil {
		return SendResult{}, err
	}
	params := tu.Message(tu.ID(chatID), p.FormatMessage(m.Text))
	params.ReplyMarkup = inlineKeyboard(m.Buttons)
	msg, err := bot.SendMessage(ctx, params)
	if err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true, MessageID: strconv.Itoa(msg.MessageID), ChatID: ch.Config["chat_id"]}, nil
}

func (p *TelegramProvider) Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error {
	bot, err := p.bot(secret)
	if err != nil {
		return err
	}
	chatID, err := p.chatID(ch)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return err
	}
	_, err = bot.EditMessageText(ctx, tu.EditMessageText(tu.ID(chatID), msgID, p.FormatMessage(text)))
	return err
}

func (p *TelegramProvider) RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error {
	bot, err := p.bot(secret)
	if err != nil {
		return err
	}
	chatID, err := p.chatID(ch)
	if err != nil {
		return err
	}
	msgID, err := strconv.Atoi(messageID)
	if err != nil {
		return err
	}
	if newText != "" {
		if _, err := bot.EditMessageText(ctx, tu.EditMessageText(tu.ID(chatID), msgID, p.FormatMessage(newText))); err != nil {
			return err
		}
	}
	_, err = bot.EditMessageReplyMarkup(ctx, &telego.EditMessageReplyMarkupParams{
		ChatID:      tu.ID(chatID),
		MessageID:   msgID,
		ReplyMarkup: nil,
	})
	return err
}

func inlineKeyboard(buttons []Button) *telego.InlineKeyboardMarkup {
	if len(buttons) == 0 {
		return nil
	}
	row := make([]telego.InlineKeyboardButton, 0, len(buttons))
	for _, b := range buttons {
		btn := telego.InlineKeyboardButton{Text: b.Label}
		if b.URL != "" {
			btn.URL = b.URL
		} else {
			btn.CallbackData = b.CallbackData
		}
		row = append(row, btn)
	}
	return &telego.InlineKeyboardMarkup{InlineKeyboard: [][]telego.InlineKeyboardButton{row}}
}

const truncationNotice = "\n[truncated]"
