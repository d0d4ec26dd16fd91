package agentprovider

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
)

// codexMessage mirrors the Codex-style JSON-lines shape named in §4.F:
// type ∈ {message, result, error}, with concatenated content.
type codexMessage struct {
	Type      string `json:"type"`
	Content   string `json:"content"`
	SessionID string `json:"session_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

// CodexProvider has no plan mode and no resume; its autonomous flag is
// "--full-auto" rather than Claude's "--dangerously-skip-permissions".
type CodexProvider struct {
	executable string
}

func NewCodexProvider(executable string) *CodexProvider {
	return &CodexProvider{executable: executable}
}

func (p *CodexProvider) Name() string        { return "codex" }
func (p *CodexProvider) DisplayName() string { return "OpenAI Codex" }

func (p *CodexProvider) Capabilities() Capabilities {
	return Capabilities{
		PlanMode:       false,
		Resume:         false,
		Streaming:      true,
		Autonomous:     true,
		AutonomousFlag: "--full-auto",
		Models:         []string{"gpt-4o", "gpt-4o-mini", "o1", "o3-mini"},
	}
}

func (p *CodexProvider) ExecutablePath() (string, error) {
	if p.executable != "" {
		return p.executable, nil
	}
	path, err := exec.LookPath("codex")
	if err != nil {
		return "", fmt.Errorf("agentprovider: codex executable not found on PATH: %w", err)
	}
	return path, nil
}

func (p *CodexProvider) MapModelTier(tier string) string {
	return mapTier(tier, "gpt-4o-mini", "gpt-4o", "o1")
}

// ValidateRequest rejects plan_mode and non-empty session ids up front,
// since Codex supports neither (§4.F).
func (p *CodexProvider) ValidateRequest(req Request) (bool, string) {
	if req.PlanMode {
		return false, "codex does not support plan mode"
	}
	if req.SessionID != "" {
		return false, "codex does not support session resume"
	}
	return true, ""
}

func (p *CodexProvider) BuildCommand(req Request) ([]string, error) {
	if ok, reason := p.ValidateRequest(req); !ok {
		return nil, fmt.Errorf("agentprovider: %s", reason)
	}
	exe, err := p.ExecutablePath()
	if err != nil {
		return nil, err
	}
	argv := []string{exe, "exec", "--prompt", req.Prompt, "--json"}
	if req.Model != "" {
		argv = append(argv, "--model", req.Model)
	}
	if req.Autonomous {
		argv = append(argv, p.Capabilities().AutonomousFlag)
	}
	return argv, nil
}

func (p *CodexProvider) ParseOutput(raw string) (string, string, error) {
	var text strings.Builder
	var sessionID string

	scanner := bufio.NewScanner(strings.NewReader(raw))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var msg codexMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			continue
		}
		if msg.SessionID != "" && sessionID == "" {
			sessionID = msg.SessionID
		}
		switch msg.Type {
		case "message", "result":
			text.WriteString(msg.Content)
		case "error":
			return text.String(), sessionID, fmt.Errorf("agentprovider: codex error: %s", msg.Error)
		}
	}
	return text.String(), sessionID, nil
}
