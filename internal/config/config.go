// Config defines this module's top-level configuration document and its
// loader. The teacher's internal/config package ships hotreload.go (which
// calls Load) and normalize.go but never defines Config/Load themselves
// anywhere in the retrieved source — every other teacher package that
// references config.Config (internal/heartbeat, internal/tracing/otelexport)
// only consumes fields off it. This file supplies that missing definition,
// shaped around what this module's components actually need, using the
// same gopkg.in/yaml.v3 + atomic-save discipline as the task and channel
// repositories.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// ActiveHoursConfig restricts when the scheduler is allowed to fire tasks,
// referenced by the teacher's internal/heartbeat/service.go isInActiveHours.
// Carried forward unchanged since heartbeat remains wired against it.
type ActiveHoursConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
	Timezone  string `yaml:"timezone,omitempty"`
}

// Config is the top-level configuration document (a single YAML file).
type Config struct {
	// Storage paths (§6).
	TasksFile    string `yaml:"tasks_file"`
	ChannelsFile string `yaml:"channels_file"`
	LogsDir      string `yaml:"logs_dir"`
	SessionsDir  string `yaml:"sessions_dir"`

	// Skill discovery (§4.E): project-local shadows user-global.
	ProjectSkillsDir string `yaml:"project_skills_dir,omitempty"`
	GlobalSkillsDir  string `yaml:"global_skills_dir,omitempty"`

	// Scheduler Kernel (§4.M).
	MaxConcurrent int `yaml:"max_concurrent"`

	// Executor (§4.H) default execution timeout, seconds, used when a
	// task omits Timeout.
	DefaultTimeoutSeconds int `yaml:"default_timeout_seconds"`

	// Plan Approval State Machine (§4.K).
	ApprovalTTLHours float64 `yaml:"approval_ttl_hours"`

	// Agent Provider Registry (§4.F): provider name -> explicit
	// executable path override (empty means discover via PATH).
	ProviderExecutables map[string]string `yaml:"provider_executables,omitempty"`

	ActiveHours *ActiveHoursConfig `yaml:"active_hours,omitempty"`
}

// Defaults matches this module's stated defaults (§4.H timeout bounds,
// §4.K DefaultTTL, §4.M DefaultMaxConcurrent).
func Defaults() *Config {
	return &Config{
		TasksFile:             "tasks.yaml",
		ChannelsFile:          "channels.yaml",
		LogsDir:               "logs",
		SessionsDir:           "sessions",
		MaxConcurrent:         1,
		DefaultTimeoutSeconds: 300,
		ApprovalTTLHours:      24,
	}
}

// ApprovalTTL converts ApprovalTTLHours to a time.Duration.
func (c *Config) ApprovalTTL() time.Duration {
	if c.ApprovalTTLHours <= 0 {
		return 24 * time.Hour
	}
	return time.Duration(c.ApprovalTTLHours * float64(time.Hour))
}

// Load reads and parses the config file at path, filling any zero-valued
// field from Defaults(). A missing file is not an error: Defaults() alone
// is returned, matching the task/channel repositories' tolerate-missing-file
// convention.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	mergeDefaults(loaded, cfg)
	return loaded, nil
}

func mergeDefaults(dst, defaults *Config) {
	if dst.TasksFile == "" {
		dst.TasksFile = defaults.TasksFile
	}
	if dst.ChannelsFile == "" {
		dst.ChannelsFile = defaults.ChannelsFile
	}
	if dst.LogsDir == "" {
		dst.LogsDir = defaults.LogsDir
	}
	if dst.SessionsDir == "" {
		dst.SessionsDir = defaults.SessionsDir
	}
	if dst.MaxConcurrent <= 0 {
		dst.MaxConcurrent = defaults.MaxConcurrent
	}
	if dst.DefaultTimeoutSeconds <= 0 {
		dst.DefaultTimeoutSeconds = defaults.DefaultTimeoutSeconds
	}
	if dst.ApprovalTTLHours <= 0 {
		dst.ApprovalTTLHours = defaults.ApprovalTTLHours
	}
}

// ResolvePath joins a config-relative storage path against baseDir unless
// it is already absolute.
func ResolvePath(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(baseDir, p)
}
