// Package agentprovider implements the polymorphic agent-CLI provider
// registry (§4.F): capability discovery, command construction, and
// streaming-output parsing for different agent binaries.
//
// Modeled on the lazy, table-driven provider lookup in the wider example
// pack's LLM-provider registries, adapted here from LLM-API providers to
// subprocess-spawning agent-CLI providers.
package agentprovider

import "fmt"

// Capabilities is the capability set a provider declares.
type Capabilities struct {
	PlanMode       bool
	Resume         bool
	Streaming      bool
	Autonomous     bool
	AutonomousFlag string // e.g. "--dangerously-skip-permissions" or "--full-auto"
	Models         []string
}

// Request is the normalized request a strategy builds and a provider
// translates into argv (§4.G's ExecutionContext, provider-facing view).
type Request struct {
	Prompt      string
	WorkingDir  string
	Model       string // provider-mapped model name, not the task's tier
	TimeoutSecs int
	SessionID   string // non-empty implies a resume
	Autonomous  bool
	PlanMode    bool
	MaxTurns    *int
	AllowedTools []string
	Feedback    string // discuss-phase feedback text, if any
}

// Provider is the polymorphic interface over an agent CLI.
type Provider interface {
	Name() string
	DisplayName() string
	Capabilities() Capabilities
	ExecutablePath() (string, error)
	BuildCommand(req Request) ([]string, error)
	ParseOutput(raw string) (text string, sessionID string, err error)
	ValidateRequest(req Request) (ok bool, reason string)
	MapModelTier(tier string) string
}

// NotFoundError is returned by the registry on a lookup miss.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("agentprovider: provider not found: %s", e.Name)
}

// mapTier applies the spec's uniform tier mapping: small/medium/large to
// provider-specific model-equivalent names.
func mapTier(tier string, small, medium, large string) string {
	switch tier {
	case "small":
		return small
	case "large":
		return large
	default:
		return medium
	}
}
