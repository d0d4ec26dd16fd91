// Package executor implements the Executor (§4.H): it resolves a task's
// strategy and provider, spawns the agent subprocess, streams its
// output, enforces the per-task timeout with a SIGTERM-then-SIGKILL
// watchdog, and persists the outcome before propagating any error.
//
// Grounded on original_source's execution/executor.py persist-before-
// propagate pattern (ported to Go via defer) and on the teacher's
// cron watchdog/retry idiom in cron/retry.go for the grace-period
// kill escalation.
package executor

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/agentprovider"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/session"
	"github.com/nextlevelbuilder/goclaw/internal/skills"
	"github.com/nextlevelbuilder/goclaw/internal/strategy"
	"github.com/nextlevelbuilder/goclaw/internal/task"
)

// DefaultProvider is used when a task does not name one explicitly.
const DefaultProvider = "claude"

// killGrace is how long a terminated subprocess gets to exit cleanly
// before the watchdog escalates to SIGKILL.
const killGrace = 5 * time.Second

// secretEnvVars are stripped from the subprocess environment so the
// agent CLI must authenticate via its own configured credential store
// rather than inherit ambient API keys (§4.H step 6).
var secretEnvVars = map[string]bool{
	"ANTHROPIC_API_KEY": true,
	"OPENAI_API_KEY":    true,
}

// Executor wires together the repositories and registries needed to
// run one task to completion.
type Executor struct {
	Sessions  *session.Manager
	Skills    *skills.Registry
	Providers *agentprovider.Registry
	Logs      *execlog.Repository
}

// New constructs an Executor from its dependencies.
func New(sessions *session.Manager, skillReg *skills.Registry, providers *agentprovider.Registry, logs *execlog.Repository) *Executor {
	return &Executor{Sessions: sessions, Skills: skillReg, Providers: providers, Logs: logs}
}

// Execute runs t to completion (or dryRun's command preview) and
// returns the recorded execlog.Result. The result is always persisted
// to Logs before this function returns, including on error paths, so a
// crash between execution and reporting never loses the outcome.
func (e *Executor) Execute(ctx context.Context, t *task.Task, dryRun bool) (result *execlog.Result, err error) {
	startedAt := time.Now()

	if err := checkWorkingDir(t.WorkingDir); err != nil {
		return nil, &ExecutionError{TaskID: t.ID, Kind: KindBadWorkingDir, Cause: err}
	}

	sess, err := e.Sessions.CreateSession(t.ID, map[string]interface{}{
		"task_name": t.Name,
		"dry_run":   dryRun,
	})
	if err != nil {
		return nil, fmt.Errorf("executor: create session: %w", err)
	}

	var sc strategy.Context
	sc.Task = t
	sc.WorkingDir = t.WorkingDir
	sc.Prompt = t.Prompt

	if t.HasSkill() {
		skill, ok := e.Skills.Get(t.Skill)
		if !ok {
			err := &ExecutionError{TaskID: t.ID, Kind: KindSkillMissing, Cause: fmt.Errorf("skill %q not found", t.Skill)}
			result = e.persistFailure(t, sess, startedAt, err)
			return result, err
		}
		rendered, rerr := e.Skills.Render(t.Skill, t.Prompt)
		if rerr != nil {
			result = e.persistFailure(t, sess, startedAt, rerr)
			return result, rerr
		}
		sc.Skill = skill
		sc.Prompt = rendered
	}

	providerName := t.Provider
	if providerName == "" {
		providerName = DefaultProvider
	}
	provider, err := e.Providers.Get(providerName)
	if err != nil {
		result = e.persistFailure(t, sess, startedAt, err)
		return result, err
	}

	strat := strategy.Select(t)
	argv, err := strat.BuildCommand(sc, provider)
	if err != nil {
		err = &ExecutionError{TaskID: t.ID, Kind: KindProviderError, Cause: err}
		result = e.persistFailure(t, sess, startedAt, err)
		return result, err
	}

	if dryRun {
		result = &execlog.Result{
			TaskID:     t.ID,
			SessionID:  sess.ID,
			Status:     execlog.StatusSkipped,
			Output:     strings.Join(argv, " "),
			StartedAt:  startedAt,
			FinishedAt: time.Now(),
		}
		_ = e.Sessions.CompleteSession(sess.ID, session.StatusCompleted, result.Output, "")
		e.save(result)
		return result, nil
	}

	result = e.run(ctx, t, sess, provider, argv, startedAt)
	e.save(result)
	return result, nil
}

func (e *Executor) persistFailure(t *task.Task, sess *session.Session, startedAt time.Time, cause error) *execlog.Result {
	finishedAt := time.Now()
	r := &execlog.Result{
		TaskID:     t.ID,
		SessionID:  sess.ID,
		Status:     execlog.StatusFailure,
		Error:      cause.Error(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
	}
	_ = e.Sessions.CompleteSession(sess.ID, session.StatusCompleted, "", cause.Error())
	e.save(r)
	return r
}

func (e *Executor) save(r *execlog.Result) {
	// Best-effort: a log write failure must not mask the execution
	// outcome already returned to the caller.
	_ = e.Logs.Save(*r)
}

func checkWorkingDir(dir string) error {
	info, err := os.Stat(dir)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", dir)
	}
	return nil
}

// run spawns the provider's argv[0] with argv[1:], streams its output,
// and enforces the task's timeout via a SIGTERM-then-SIGKILL watchdog.
func (e *Executor) run(parent context.Context, t *task.Task, sess *session.Session, provider agentprovider.Provider, argv []string, startedAt time.Time) *execlog.Result {
	timeout := time.Duration(t.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Dir = t.WorkingDir
	cmd.Env = filteredEnv()
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killGrace

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return e.persistFailure(t, sess, startedAt, &ExecutionError{TaskID: t.ID, Kind: KindSpawnFailed, Cause: err})
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return e.persistFailure(t, sess, startedAt, &ExecutionError{TaskID: t.ID, Kind: KindSpawnFailed, Cause: err})
	}

	if err := cmd.Start(); err != nil {
		return e.persistFailure(t, sess, startedAt, &ExecutionError{TaskID: t.ID, Kind: KindSpawnFailed, Cause: err})
	}

	var outBuf, errBuf strings.Builder
	var wg sync.WaitGroup
	wg.Add(2)
	go streamLines(&wg, stdout, &outBuf)
	go streamLines(&wg, stderr, &errBuf)
	wg.Wait()

	waitErr := cmd.Wait()
	finishedAt := time.Now()

	status := execlog.StatusSuccess
	var exitCode *int
	if ctx.Err() == context.DeadlineExceeded {
		status = execlog.StatusTimeout
		errBuf.WriteString(fmt.Sprintf("execution timed out after %ds", t.Timeout))
	} else if waitErr != nil {
		status = execlog.StatusFailure
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			exitCode = &code
		}
	} else {
		code := 0
		exitCode = &code
	}

	text, providerSessionID, perr := provider.ParseOutput(outBuf.String())
	if perr != nil {
		status = execlog.StatusFailure
		if errBuf.Len() == 0 {
			errBuf.WriteString(perr.Error())
		}
	}
	if text == "" {
		text = outBuf.String()
	}

	if providerSessionID != "" {
		_ = e.Sessions.SetProviderSessionID(sess.ID, providerSessionID)
	}
	completionStatus := session.StatusCompleted
	if status == execlog.StatusTimeout {
		completionStatus = session.StatusOrphaned
	}
	_ = e.Sessions.CompleteSession(sess.ID, completionStatus, text, errBuf.String())

	return &execlog.Result{
		TaskID:     t.ID,
		SessionID:  sess.ID,
		Status:     status,
		Output:     text,
		Error:      errBuf.String(),
		StartedAt:  startedAt,
		FinishedAt: finishedAt,
		ExitCode:   exitCode,
	}
}

func streamLines(wg *sync.WaitGroup, r io.Reader, dst *strings.Builder) {
	defer wg.Done()
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		dst.WriteString(scanner.Text())
		dst.WriteByte('\n')
	}
}

func filteredEnv() []string {
	env := os.Environ()
	out := make([]string, 0, len(env))
	for _, kv := range env {
		name := kv
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			name = kv[:idx]
		}
		if secretEnvVars[name] {
			continue
		}
		out = append(out, kv)
	}
	return out
}
