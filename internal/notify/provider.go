// Package notify implements the Notification Provider Registry (§4.I):
// a polymorphic send/edit/interactive interface over chat platforms,
// with concrete Telegram, Discord, and Teams providers.
package notify

import (
	"context"
	"errors"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

// ErrNotSupported is returned by optional operations a provider does
// not implement (e.g. interactive buttons on a webhook-only provider).
var ErrNotSupported = errors.New("notify: operation not supported by this provider")

// Button is one inline action on an interactive message. CallbackData
// follows the "plan:<action>:<approval_id>" convention (§4.I); URL is
// used instead for providers that can only link out (Teams).
type Button struct {
	Label        string
	CallbackData string
	URL          string
}

// Message is an interactive send payload: text plus action buttons.
type Message struct {
	Text    string
	Buttons []Button
}

// SendResult identifies a sent message for later editing.
type SendResult struct {
	Success   bool
	MessageID string
	ChatID    string
}

// ConfigSchema documents what a provider needs to operate, surfaced to
// CLI/RPC config validation.
type ConfigSchema struct {
	RequiredSecrets []string
	RequiredConfig  []string
	OptionalConfig  map[string]string
}

// Provider is the common notification-channel interface (§4.I).
type Provider interface {
	Name() string
	ConfigSchema() ConfigSchema
	FormatMessage(text string) string
	ValidateConfig(cfg map[string]string) error
	TestConnection(ctx context.Context, ch channels.Channel, secret string) (bool, string)

	Send(ctx context.Context, ch channels.Channel, secret, text string) (SendResult, error)

	// SendInteractive, Edit, and RemoveButtons return ErrNotSupported
	// when the provider has no interactive/edit capability.
	SendInteractive(ctx context.Context, ch channels.Channel, secret string, msg Message) (SendResult, error)
	Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error
	RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error
}
