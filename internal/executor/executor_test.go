package executor

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/session"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// scriptProvider is a test-only agentprovider.Provider that shells out
// to a small script instead of a real agent CLI, so Execute can be
// exercised end to end without network access or a real provider binary.
type scriptProvider struct {
	path string
}

func (p *scriptProvider) Name() string        { return "script" }
func (p *scriptProvider) DisplayName() string { return "Script" }
func (p *scriptProvider) Capabilities() agentprovider.Capabilities {
	return agentprovider.Capabilities{Streaming: true}
}
func (p *scriptProvider) ExecutablePath() (string, error) { return p.path, nil }
func (p *scriptProvider) MapModelTier(tier string) string { return tier }
func (p *scriptProvider) ValidateRequest(req agentprovider.Request) (bool, string) {
	return true, ""
}
func (p *scriptProvider) BuildCommand(req agentprovider.Request) ([]string, error) {
	return []string{p.path, req.Prompt}, nil
}
func (p *scriptProvider) ParseOutput(raw string) (string, string, error) {
	return raw, "", nil
}

func newTestExecutor(t *testing.T, scriptBody string) (*Executor, *agentprovider.Registry, string) {
	t.Helper()
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "agent.sh")
	if err := os.WriteFile(scriptPath, []byte(scriptBody), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	sessions := session.NewManager(filepath.Join(dir, "sessions"))
	skillReg := skills.NewRegistry("", "")
	logs := execlog.NewRepository(filepath.Join(dir, "logs"))

	providers := agentprovider.NewRegistry()
	providers.Register("script", func(exe string) agentprovider.Provider { return &scriptProvider{path: scriptPath} })

	return New(sessions, skillReg, providers, logs), providers, dir
}

func workDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

func TestExecuteSuccess(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\necho \"did: $1\"\n")
	tk := &task.Task{
		ID: "t1", Name: "hello", WorkingDir: workDir(t),
		Prompt: "say hi", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}

	result, err := exec.Execute(context.Background(), tk, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != execlog.StatusSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}
	if result.ExitCode == nil || *result.ExitCode != 0 {
		t.Errorf("exit code = %v, want 0", result.ExitCode)
	}
}

func TestExecuteNonZeroExit(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\necho boom 1>&2\nexit 3\n")
	tk := &task.Task{
		ID: "t2", Name: "fails", WorkingDir: workDir(t),
		Prompt: "x", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}

	result, err := exec.Execute(context.Background(), tk, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != execlog.StatusFailure {
		t.Errorf("status = %s, want failure", result.Status)
	}
	if result.ExitCode == nil || *result.ExitCode != 3 {
		t.Errorf("exit code = %v, want 3", result.ExitCode)
	}
}

func TestExecuteTimeout(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\nsleep 5\necho never\n")
	tk := &task.Task{
		ID: "t3", Name: "slow", WorkingDir: workDir(t),
		Prompt: "x", Model: task.ModelSmall, Timeout: 1, Provider: "script", Enabled: true,
	}

	start := time.Now()
	result, err := exec.Execute(context.Background(), tk, false)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != execlog.StatusTimeout {
		t.Errorf("status = %s, want timeout", result.Status)
	}
	if !strings.Contains(result.Error, "timed out") {
		t.Errorf("Error = %q, want it to contain %q", result.Error, "timed out")
	}
	if time.Since(start) > 4*time.Second {
		t.Errorf("took too long to terminate: %v", time.Since(start))
	}
}

func TestExecuteDryRun(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\necho should_not_run\n")
	tk := &task.Task{
		ID: "t4", Name: "preview", WorkingDir: workDir(t),
		Prompt: "plan this", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}

	result, err := exec.Execute(context.Background(), tk, true)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result.Status != execlog.StatusSkipped {
		t.Errorf("status = %s, want skipped", result.Status)
	}
	if result.Output == "" {
		t.Error("expected dry-run output to contain the preview command")
	}
}

func TestExecuteBadWorkingDir(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\necho hi\n")
	tk := &task.Task{
		ID: "t5", Name: "nodir", WorkingDir: filepath.Join(workDir(t), "does-not-exist"),
		Prompt: "x", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}

	_, err := exec.Execute(context.Background(), tk, false)
	if err == nil {
		t.Fatal("expected error for missing working dir")
	}
	var execErr *ExecutionError
	if !asExecutionError(err, &execErr) || execErr.Kind != KindBadWorkingDir {
		t.Errorf("err = %v, want KindBadWorkingDir", err)
	}
}

func TestExecuteMissingSkill(t *testing.T) {
	exec, _, _ := newTestExecutor(t, "#!/bin/sh\necho hi\n")
	tk := &task.Task{
		ID: "t6", Name: "noskill", WorkingDir: workDir(t),
		Skill: "nonexistent", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}

	result, err := exec.Execute(context.Background(), tk, false)
	if err == nil {
		t.Fatal("expected error for missing skill")
	}
	if result == nil || result.Status != execlog.StatusFailure {
		t.Error("expected a persisted failure result even on skill-missing error")
	}
}

func asExecutionError(err error, target **ExecutionError) bool {
	if ee, ok := err.(*ExecutionError); ok {
		*target = ee
		return true
	}
	return false
}
