package strategy

import (
	"strings"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

func baseTask() *task.Task {
	return &task.Task{ID: "t1", Name: "nightly", Model: task.ModelMedium, Timeout: 60}
}

func TestSelectPrefersSkillOverAutonomous(t *testing.T) {
	tk := baseTask()
	tk.Skill = "deploy"
	tk.Autonomous = true
	if _, ok := Select(tk).(Skill); !ok {
		t.Errorf("Select = %T, want Skill", Select(tk))
	}
}

func TestSelectAutonomous(t *testing.T) {
	tk := baseTask()
	tk.Autonomous = true
	if _, ok := Select(tk).(Autonomous); !ok {
		t.Errorf("Select = %T, want Autonomous", Select(tk))
	}
}

func TestSelectHeadlessDefault(t *testing.T) {
	tk := baseTask()
	if _, ok := Select(tk).(Headless); !ok {
		t.Errorf("Select = %T, want Headless", Select(tk))
	}
}

func TestHeadlessBuildCommand(t *testing.T) {
	ctx := Context{Task: baseTask(), Prompt: "do work", WorkingDir: "/tmp"}
	argv, err := Headless{}.BuildCommand(ctx, agentprovider.NewClaudeProvider("/bin/claude"))
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !contains(argv, "do work") {
		t.Errorf("argv = %v, missing prompt", argv)
	}
}

func TestSkillStrategyPrependsSlashName(t *testing.T) {
	ctx := Context{
		Task:   baseTask(),
		Skill:  &skills.Skill{Info: skills.Info{Name: "deploy"}},
		Prompt: "to staging",
	}
	argv, err := Skill{}.BuildCommand(ctx, agentprovider.NewClaudeProvider("/bin/claude"))
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !contains(argv, "/deploy to staging") {
		t.Errorf("argv = %v, missing rendered skill prompt", argv)
	}
}

func TestPlanModeRejectedByCodex(t *testing.T) {
	ctx := Context{Task: baseTask(), Prompt: "plan it"}
	_, err := PlanMode{}.BuildCommand(ctx, agentprovider.NewCodexProvider("/bin/codex"))
	if err == nil {
		t.Fatal("expected error: codex has no plan mode")
	}
}

func TestResumeWithApprovalRequiresSessionID(t *testing.T) {
	ctx := Context{Task: baseTask(), Prompt: "x"}
	_, err := ResumeWithApproval{}.BuildCommand(ctx, agentprovider.NewClaudeProvider("/bin/claude"))
	if err == nil {
		t.Fatal("expected error: missing session id")
	}
}

func TestResumeWithApprovalUsesApprovedPrompt(t *testing.T) {
	ctx := Context{Task: baseTask(), SessionID: "sid-1", Prompt: "ignored"}
	argv, err := ResumeWithApproval{}.BuildCommand(ctx, agentprovider.NewClaudeProvider("/bin/claude"))
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !contains(argv, ApprovedPrompt) {
		t.Errorf("argv = %v, missing approved prompt", argv)
	}
	if !contains(argv, "sid-1") {
		t.Errorf("argv = %v, missing resumed session id", argv)
	}
}

func TestResumeWithFeedbackUsesFeedbackAsPrompt(t *testing.T) {
	ctx := Context{Task: baseTask(), SessionID: "sid-1", Feedback: "use Python 3.12"}
	argv, err := ResumeWithFeedback{}.BuildCommand(ctx, agentprovider.NewClaudeProvider("/bin/claude"))
	if err != nil {
		t.Fatalf("BuildCommand: %v", err)
	}
	if !contains(argv, "use Python 3.12") {
		t.Errorf("argv = %v, missing feedback prompt", argv)
	}
}

func contains(argv []string, needle string) bool {
	return strings.Contains(strings.Join(argv, " "), needle)
}
