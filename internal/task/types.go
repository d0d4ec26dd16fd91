// Package task implements the durable task repository (§4.B): a single
// YAML document of scheduled units, loaded and persisted with atomic
// write-temp-rename semantics.
package task

import "time"

// ModelTier is the abstract model size a task requests; providers map
// tiers to concrete model names (§4.F).
type ModelTier string

const (
	ModelSmall  ModelTier = "small"
	ModelMedium ModelTier = "medium"
	ModelLarge  ModelTier = "large"
)

// NotificationPolicy controls which channels are notified of which events
// for a task, and whether captured output is included in the message.
type NotificationPolicy struct {
	Channels      []string `yaml:"channels" json:"channels"`
	Events        []string `yaml:"events" json:"events"`
	IncludeOutput bool     `yaml:"include_output" json:"include_output"`
}

// Task is the scheduled unit of LLM-agent work.
type Task struct {
	ID         string    `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	Schedule   string    `yaml:"schedule" json:"schedule"` // five-field cron expression
	WorkingDir string    `yaml:"working_dir" json:"working_dir"`
	Skill      string    `yaml:"skill,omitempty" json:"skill,omitempty"`
	Prompt     string    `yaml:"prompt,omitempty" json:"prompt,omitempty"`
	AllowedTools []string `yaml:"allowed_tools,omitempty" json:"allowed_tools,omitempty"`
	// Provider selects the agent CLI from the provider registry (§4.F);
	// empty defaults to "claude".
	Provider   string    `yaml:"provider,omitempty" json:"provider,omitempty"`
	Model      ModelTier `yaml:"model" json:"model"`
	Autonomous bool      `yaml:"autonomous" json:"autonomous"`
	MaxTurns   *int      `yaml:"max_turns,omitempty" json:"max_turns,omitempty"`
	Timeout    int       `yaml:"timeout" json:"timeout"` // seconds, [30, 3600]
	Enabled    bool      `yaml:"enabled" json:"enabled"`
	Variables  map[string]string `yaml:"variables,omitempty" json:"variables,omitempty"`
	Notifications *NotificationPolicy `yaml:"notifications,omitempty" json:"notifications,omitempty"`
	LastRun    *time.Time `yaml:"last_run,omitempty" json:"last_run,omitempty"`
	LastStatus string     `yaml:"last_status,omitempty" json:"last_status,omitempty"`

	// PlanMode opts the task into the two-phase plan-approval protocol (§4.K)
	// in place of the normal Headless/Autonomous/Skill execution path.
	PlanMode bool `yaml:"plan_mode,omitempty" json:"plan_mode,omitempty"`
}

// HasSkill reports whether the task references a skill rather than an
// inline prompt (the two are mutually exclusive, enforced by Validate).
func (t *Task) HasSkill() bool { return t.Skill != "" }

// document is the on-disk YAML shape: {tasks: [...]}.
type document struct {
	Tasks []Task `yaml:"tasks"`
}
