package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/executor"
	"github.com/nextlevelbuilder/goclaw/internal/session"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/task"
	"github.com/nextlevelbuilder/goclaw/internal/tracker"
)

func newTestKernel(t *testing.T) (*Kernel, *task.Repository, string) {
	t.Helper()
	dir := t.TempDir()

	scriptPath := filepath.Join(dir, "agent.sh")
	if err := os.WriteFile(scriptPath, []byte("#!/bin/sh\necho done\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}

	tasks := task.NewRepository(filepath.Join(dir, "tasks.yaml"))
	if err := tasks.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	sessions := session.NewManager(filepath.Join(dir, "sessions"))
	skillReg := skills.NewRegistry("", "")
	logs := execlog.NewRepository(filepath.Join(dir, "logs"))
	providers := agentprovider.NewRegistry()
	providers.Register("script", func(exe string) agentprovider.Provider {
		return testScriptProvider{path: scriptPath}
	})

	exec := executor.New(sessions, skillReg, providers, logs)
	trk := tracker.New()

	return New(tasks, exec, trk, nil, 2), tasks, dir
}

// testScriptProvider is a minimal agentprovider.Provider that shells
// out to a fixed test script.
type testScriptProvider struct{ path string }

func (p testScriptProvider) Name() string        { return "script" }
func (p testScriptProvider) DisplayName() string { return "Script" }
func (p testScriptProvider) Capabilities() agentprovider.Capabilities {
	return agentprovider.Capabilities{}
}
func (p testScriptProvider) ExecutablePath() (string, error) { return p.path, nil }
func (p testScriptProvider) MapModelTier(tier string) string { return tier }
func (p testScriptProvider) ValidateRequest(req agentprovider.Request) (bool, string) {
	return true, ""
}
func (p testScriptProvider) BuildCommand(req agentprovider.Request) ([]string, error) {
	return []string{p.path}, nil
}
func (p testScriptProvider) ParseOutput(raw string) (string, string, error) {
	return raw, "", nil
}

func mkTask(id, name, dir string) task.Task {
	return task.Task{
		ID: id, Name: name, Schedule: "*/5 * * * *", WorkingDir: dir,
		Prompt: "x", Model: task.ModelSmall, Timeout: 30, Provider: "script", Enabled: true,
	}
}

func TestRunTaskRecordsLastRun(t *testing.T) {
	k, tasks, dir := newTestKernel(t)
	saved, err := tasks.Save(mkTask("t1", "hello", dir))
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	result, err := k.RunTask(context.Background(), &saved, false)
	if err != nil {
		t.Fatalf("RunTask: %v", err)
	}
	if result.Status != execlog.StatusSuccess {
		t.Errorf("status = %s, want success", result.Status)
	}

	got, err := tasks.FindByID("t1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.LastRun == nil || got.LastStatus != string(execlog.StatusSuccess) {
		t.Errorf("task not updated: %+v", got)
	}
}

func TestRunTaskRejectsReentrant(t *testing.T) {
	k, tasks, dir := newTestKernel(t)
	saved, _ := tasks.Save(mkTask("t1", "hello", dir))

	if _, err := k.Tracker.Start(saved.ID, nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := k.RunTask(context.Background(), &saved, false)
	if _, ok := err.(*AlreadyRunningError); !ok {
		t.Fatalf("err = %v, want AlreadyRunningError", err)
	}
}

func TestStatusCounts(t *testing.T) {
	k, tasks, dir := newTestKernel(t)
	tasks.Save(mkTask("t1", "a", dir))
	disabled := mkTask("t2", "b", dir)
	disabled.Enabled = false
	tasks.Save(disabled)

	st, err := k.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Enabled != 1 || st.Disabled != 1 {
		t.Errorf("Status = %+v", st)
	}
}

func TestGetUpcomingSortedWithinWindow(t *testing.T) {
	k, tasks, dir := newTestKernel(t)
	tasks.Save(mkTask("t1", "a", dir))

	upcoming, err := k.GetUpcoming(1)
	if err != nil {
		t.Fatalf("GetUpcoming: %v", err)
	}
	if len(upcoming) == 0 {
		t.Fatal("expected at least one upcoming fire time within 1 hour")
	}
	for i := 1; i < len(upcoming); i++ {
		if upcoming[i].At.Before(upcoming[i-1].At) {
			t.Errorf("upcoming not sorted: %+v", upcoming)
		}
	}
}

func TestRunByNameNotFound(t *testing.T) {
	k, _, _ := newTestKernel(t)
	if _, err := k.RunByName(context.Background(), "nonexistent", false); err == nil {
		t.Fatal("expected error for unknown task name")
	}
}
