package agentprovider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// claudeMessage is a loosely-typed view over the Claude-style JSON-lines
// stream event shapes named in §4.F: "system" (carries session id),
// "assistant" (message.content[].text), "stream_event"
// (content_block_delta.delta.text), and terminal "result".
type claudeMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Message   *struct {
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"message"`
	Event *struct {
		Type  string `json:"type"`
		Delta *struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"delta"`
	} `json:"event"`
	Result string `json:"result"`
}

// ClaudeProvider supports the full capability set: plan mode, resume,
// streaming, and autonomous execution.
type ClaudeProvider struct {
	executable string // explicit override; empty means discover via PATH
}

// NewClaudeProvider constructs the Claude-style provider. executable may
// be empty to discover the binary via PATH at ExecutablePath time.
func NewClaudeProvider(executable string) *ClaudeProvider {
	return &ClaudeProvider{executable: executable}
}

func (p *ClaudeProvider) Name() string        { return "claude" }
func (p *ClaudeProvider) DisplayName() string { return "Claude Code" }

func (p *ClaudeProvider) Capabilities() Capabilities {
	return Capabilities{
		PlanMode:       true,
		Resume:         true,
		Streaming:      true,
		Autonomous:     true,
		AutonomousFlag: "--dangerously-skip-permissions",
		Models:         []string{"haiku", "sonnet", "opus"},
	}
}

func (p *ClaudeProvider) ExecutablePath() (string, error) {
	if p.executable != "" {
		return p.executable, nil
	}
	path, err := exec.LookPath("claude")
	if err != nil {
		return "", fmt.Errorf("agentprovider: claude executable not found on PATH: %w", err)
	}
	return path, nil
}

func (p *ClaudeProvider) MapModelTier(tier string) string {
	return mapTier(tier, "haiku", "sonnet", "opus")
}

func (p *ClaudeProvider) ValidateRequest(req Request) (bool, string) {
	return true, ""
}

// BuildCommand builds the base argv for a direct (non-strategy-specific)
// invocation. Strategies in internal/strategy layer additional flags
// (plan mode, resume, autonomous) on top of this base via their own
// BuildCommand, which is why this stays intentionally minimal — it is
// also what ProviderStrategy (§4.G) delegates to for a generic dispatch.
func (p *ClaudeProvider) BuildCommand(req Request) ([]string, error) {
	exe, err := p.ExecutablePath()
	if err != nil {
		return nil, err
	}
	argv := []string{exe, "-p", req.Prompt, "--output-format", "stream-json", "--verbose", "--include-partial-messages"}
	if req.SessionID != "" {
		argv = append(argv, "--resume", req.SessionID)
	}
	if req.Model != "" {
		argv = append(argv, "--model", req.Model)
	}
	if req.MaxTurns != nil {
		argv = append(argv, "--max-turns", strconv.Itoa(*req.MaxTurns))
	}
	for _, tool := range req.AllowedTools {
		argv = append(argv, "--allowedTools", tool)
	}
	if req.Autonomous {
		argv = append(argv, p.Capabilities().AutonomousFlag)
	}
	if req.PlanMode {
		argv = append(argv, "--permission-mode", "plan")
	}
	return argv, nil
}

// ParseOutput concatenates incremental text deltas if any were observed;
// otherwise falls back to the terminal "result" field. Session id is
// taken from the first message carrying one.
func (p *ClaudeProvider) ParseOutput(raw string) (string, string, error) {
	var deltaText strings.Builder
	var assistantText strings.Builder
	var resultText string
	var sessionID string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg claudeMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue // non-JSON noise lines are tolerated
		}
		if msg.SessionID != "" && sessionID == "" {
			sessionID = msg.SessionID
		}
		switch msg.Type {
		case "system":
			// session id already captured above, nothing else to extract.
		case "assistant":
			if msg.Message != nil {
				for _, c := range msg.Message.Content {
					if c.Type == "text" {
						assistantText.WriteString(c.Text)
					}
				}
			}
		case "stream_event":
			if msg.Event != nil && msg.Event.Type == "content_block_delta" && msg.Event.Delta != nil {
				deltaText.WriteString(msg.Event.Delta.Text)
			}
		case "result":
			resultText = msg.Result
		}
	}

	if deltaText.Len() > 0 {
		return deltaText.String(), sessionID, nil
	}
	if assistantText.Len() > 0 {
		return assistantText.String(), sessionID, nil
	}
	return resultText, sessionID, nil
}
