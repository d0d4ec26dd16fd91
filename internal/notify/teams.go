package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"

	"github.com/nextlevelbuilder/goclaw/internal/channels"
)

// teamsMaxBytes is the Adaptive Card webhook payload size limit (§4.I).
const teamsMaxBytes = 28 * 1024

// htmlTagPattern strips markup before embedding text into a card,
// grounded on the regexp-based text-scrubbing idiom of
// internal/tools/scrub.go's credential patterns.
var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// TeamsProvider posts an Adaptive Card to an Incoming Webhook. No
// teacher dependency covers MS Teams, so the card payload is built by
// hand; webhooks cannot receive callbacks, so interactive buttons
// degrade to Action.OpenUrl links.
type TeamsProvider struct {
	httpClient *http.Client
}

// NewTeamsProvider constructs the Teams webhook provider.
func NewTeamsProvider() *TeamsProvider {
	return &TeamsProvider{httpClient: http.DefaultClient}
}

func (p *TeamsProvider) Name() string { return "teams" }

func (p *TeamsProvider) ConfigSchema() ConfigSchema {
	return ConfigSchema{
		RequiredSecrets: []string{"webhook_url"},
		OptionalConfig:  map[string]string{"dashboard_url": ""},
	}
}

func (p *TeamsProvider) FormatMessage(text string) string {
	stripped := htmlTagPattern.ReplaceAllString(text, "")
	if len(stripped) > teamsMaxBytes {
		stripped = stripped[:teamsMaxBytes-len("\n[truncated]")] + "\n[truncated]"
	}
	return stripped
}

func (p *TeamsProvider) ValidateConfig(cfg map[string]string) error { return nil }

func (p *TeamsProvider) TestConnection(ctx context.Context, ch channels.Channel, secret string) (bool, string) {
	res, err := p.Send(ctx, ch, secret, "connection test")
	if err != nil {
		return false, err.Error()
	}
	return res.Success, "webhook accepted test card"
}

type adaptiveCard struct {
	Type        string        `json:"type"`
	Attachments []cardPayload `json:"attachments"`
}

type cardPayload struct {
	ContentType string      `json:"contentType"`
	Content     cardContent `json:"content"`
}

type cardContent struct {
	Schema  string          `json:"$schema"`
	Type    string          `json:"type"`
	Version string          `json:"version"`
	Body    []cardTextBlock `json:"body"`
	Actions []cardAction    `json:"actions,omitempty"`
}

type cardTextBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
	Wrap bool   `json:"wrap"`
}

type cardAction struct {
	Type  string `json:"type"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

func (p *TeamsProvider) buildCard(text string, buttons []Button) adaptiveCard {
	actions := make([]cardAction, 0, len(buttons))
	for _, b := range buttons {
		url := b.URL
		if url == "" {
			// No callback channel on a webhook: degrade to a dashboard
			// link carrying the same callback data as a query string.
			url = fmt.Sprintf("about:blank#%s", b.CallbackData)
		}
		actions = append(actions, cardAction{Type: "Action.OpenUrl", Title: b.Label, URL: url})
	}
	return adaptiveCard{
		Type: "message",
		Attachments: []cardPayload{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: cardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.4",
				Body:    []cardTextBlock{{Type: "TextBlock", Text: p.FormatMessage(text), Wrap: true}},
				Actions: actions,
			},
		}},
	}
}

func (p *TeamsProvider) post(ctx context.Context, webhookURL string, card adaptiveCard) error {
	body, err := json.Marshal(card)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify/teams: webhook returned %d", resp.StatusCode)
	}
	return nil
}

func (p *TeamsProvider) Send(ctx context.Context, ch channels.Channel, secret, text string) (SendResult, error) {
	if err := p.post(ctx, secret, p.buildCard(text, nil)); err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true}, nil
}

func (p *TeamsProvider) SendInteractive(ctx context.Context, ch channels.Channel, secret string, m Message) (SendResult, error) {
	if err := p.post(ctx, secret, p.buildCard(m.Text, m.Buttons)); err != nil {
		return SendResult{}, err
	}
	return SendResult{Success: true}, nil
}

func (p *TeamsProvider) Edit(ctx context.Context, ch channels.Channel, secret, messageID, text string) error {
	return ErrNotSupported
}

func (p *TeamsProvider) RemoveButtons(ctx context.Context, ch channels.Channel, secret, messageID, newText string) error {
	return ErrNotSupported
}
