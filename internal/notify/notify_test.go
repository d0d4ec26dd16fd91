package notify

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

func TestDiscordFormatMessageTruncates(t *testing.T) {
	p := NewDiscordProvider()
	long := strings.Repeat("x", discordMaxChars+500)
	out := p.FormatMessage(long)
	if len(out) > discordMaxChars {
		t.Errorf("len(out) = %d, want <= %d", len(out), discordMaxChars)
	}
	if !strings.HasSuffix(out, "[truncated]") {
		t.Errorf("expected truncation notice, got suffix %q", out[len(out)-20:])
	}
}

func TestTeamsFormatMessageStripsHTML(t *testing.T) {
	p := NewTeamsProvider()
	out := p.FormatMessage("<b>bold</b> and <i>italic</i>")
	if strings.Contains(out, "<") {
		t.Errorf("expected HTML stripped, got %q", out)
	}
}

func TestTeamsBuildCardDegradesButtonsToLinks(t *testing.T) {
	p := NewTeamsProvider()
	card := p.buildCard("plan ready", []Button{{Label: "Approve", CallbackData: "plan:approve:abc"}})
	actions := card.Attachments[0].Content.Actions
	if len(actions) != 1 || actions[0].Type != "Action.OpenUrl" {
		t.Errorf("actions = %+v, want one Action.OpenUrl", actions)
	}
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"telegram", "discord", "teams", "slack"} {
		if _, err := r.Get(name); err != nil {
			t.Errorf("Get(%s): %v", name, err)
		}
	}
	if _, err := r.Get("nonexistent"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestSlackFormatMessageTruncates(t *testing.T) {
	p := NewSlackProvider()
	long := strings.Repeat("x", slackMaxChars+500)
	out := p.FormatMessage(long)
	if len(out) > slackMaxChars {
		t.Errorf("len(out) = %d, want <= %d", len(out), slackMaxChars)
	}
	if !strings.HasSuffix(out, "[truncated]") {
		t.Errorf("expected truncation notice, got suffix %q", out[len(out)-20:])
	}
}

func TestIsBotModeDetectsConfig(t *testing.T) {
	webhookChannel := channels.Channel{Config: map[string]string{"mode": "webhook"}}
	botChannel := channels.Channel{Config: map[string]string{"mode": "bot", "channel_id": "123"}}
	if isBotMode(webhookChannel) {
		t.Error("webhook channel should not be bot mode")
	}
	if !isBotMode(botChannel) {
		t.Error("bot channel should be bot mode")
	}
}

func TestSlackMessageBlocksDegradesNonURLButtonToActionBlock(t *testing.T) {
	blocks := messageBlocks("plan ready", []Button{{Label: "Approve", CallbackData: "plan:approve:abc"}})
	if len(blocks) != 2 {
		t.Fatalf("len(blocks) = %d, want 2 (section + action)", len(blocks))
	}
}
