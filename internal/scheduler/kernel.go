// Kernel implements the Scheduler Kernel (§4.M): the public run/status
// surface over the task repository and executor, with a max_concurrent
// cap on in-flight executions.
//
// Adapted from the teacher's internal/cron/service.go runLoop/checkJobs
// (1s ticker, clear-before-execute under lock, reused here for the
// AlreadyRunning re-entrancy guarantee via the tracker) and from this
// same package's SessionQueue/QueueConfig buffered-channel idiom,
// generalized from per-session agent-run queuing to per-tick
// bounded-concurrency task queuing.
package scheduler

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
	"github.com/nextlevelbuilder/goclaw/internal/dispatch"
	"github.com/nextlevelbuilder/goclaw/internal/execlog"
	"github.com/nextlevelbuilder/goclaw/internal/executor"
	"github.com/nextlevelbuilder/goclaw/internal/task"
	"github.com/nextlevelbuilder/goclaw/internal/tracker"
)

// DefaultMaxConcurrent matches §4.M's stated default.
const DefaultMaxConcurrent = 1

// Callbacks are invoked around an execution, wired to the notification
// dispatcher and plan-approval state machine by the host.
type Callbacks struct {
	OnStart    func(t *task.Task)
	OnComplete func(t *task.Task, result *execlog.Result)
}

// Status summarizes the scheduler's current state (§4.M status()).
type Status struct {
	Enabled     int
	Disabled    int
	Due         []string
	NextRunAt   map[string]time.Time
}

// Upcoming is one future fire time for an enabled task (§4.M
// get_upcoming, supplemented from original_source's get_upcoming).
type Upcoming struct {
	TaskName string
	At       time.Time
}

// Kernel is the scheduler's run/status surface.
type Kernel struct {
	Tasks    *task.Repository
	Exec     *executor.Executor
	Tracker  *tracker.Tracker
	Dispatch *dispatch.Dispatcher

	maxConcurrent int
	tokens        chan struct{}

	mu        sync.Mutex
	callbacks Callbacks
}

// New constructs a Kernel; maxConcurrent <= 0 uses DefaultMaxConcurrent.
func New(tasks *task.Repository, exec *executor.Executor, trk *tracker.Tracker, disp *dispatch.Dispatcher, maxConcurrent int) *Kernel {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	return &Kernel{
		Tasks:         tasks,
		Exec:          exec,
		Tracker:       trk,
		Dispatch:      disp,
		maxConcurrent: maxConcurrent,
		tokens:        make(chan struct{}, maxConcurrent),
	}
}

// SetCallbacks registers the on-start/on-complete hooks.
func (k *Kernel) SetCallbacks(cb Callbacks) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.callbacks = cb
}

func (k *Kernel) callbacksSnapshot() Callbacks {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.callbacks
}

// FindDue returns enabled tasks whose schedule has a fire time within
// window of now.
func (k *Kernel) FindDue(window time.Duration) ([]task.Task, error) {
	return k.Tasks.FindDue(time.Now(), window)
}

// RunTask runs a single task to completion, acquiring a concurrency
// token and rejecting re-entrant invocations. It blocks until the
// execution finishes (or the context is cancelled while waiting for a
// token).
func (k *Kernel) RunTask(ctx context.Context, t *task.Task, dryRun bool) (*execlog.Result, error) {
	if _, running := k.Tracker.GetByTask(t.ID); running {
		return nil, &AlreadyRunningError{TaskID: t.ID}
	}
	execID, err := k.Tracker.Start(t.ID, nil)
	if err != nil {
		return nil, &AlreadyRunningError{TaskID: t.ID}
	}
	defer k.Tracker.Finish(execID)

	select {
	case k.tokens <- struct{}{}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	defer func() { <-k.tokens }()

	cb := k.callbacksSnapshot()
	if cb.OnStart != nil {
		cb.OnStart(t)
	}

	result, err := k.Exec.Execute(ctx, t, dryRun)
	if err != nil && result == nil {
		return nil, err
	}

	if rerr := k.Tasks.RecordRun(t.ID, result.FinishedAt, string(result.Status)); rerr != nil {
		slog.Warn("scheduler: record run failed", "task_id", t.ID, "error", rerr)
	}
	if cb.OnComplete != nil {
		cb.OnComplete(t, result)
	}
	return result, err
}

// RunDue executes every task due within window, sorted by name for a
// deterministic order among simultaneously-due tasks (§5).
func (k *Kernel) RunDue(ctx context.Context, window time.Duration, dryRun bool) ([]*execlog.Result, error) {
	due, err := k.FindDue(window)
	if err != nil {
		return nil, err
	}
	return k.runMany(ctx, due, dryRun)
}

// RunAll executes every enabled task regardless of schedule.
func (k *Kernel) RunAll(ctx context.Context, dryRun bool) ([]*execlog.Result, error) {
	return k.runMany(ctx, k.Tasks.FindEnabled(), dryRun)
}

// RunByName executes the named task once.
func (k *Kernel) RunByName(ctx context.Context, name string, dryRun bool) (*execlog.Result, error) {
	t, err := k.Tasks.FindByName(name)
	if err != nil {
		return nil, err
	}
	return k.RunTask(ctx, &t, dryRun)
}

func (k *Kernel) runMany(ctx context.Context, tasks []task.Task, dryRun bool) ([]*execlog.Result, error) {
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].Name < tasks[j].Name })

	results := make([]*execlog.Result, 0, len(tasks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := range tasks {
		t := tasks[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := k.RunTask(ctx, &t, dryRun)
			if err != nil {
				slog.Warn("scheduler: run_due skipped task", "task_id", t.ID, "error", err)
				return
			}
			mu.Lock()
			results = append(results, r)
			mu.Unlock()
		}()
	}
	wg.Wait()
	return results, nil
}

// Status reports enabled/disabled counts, currently due task names,
// and each enabled task's next fire time.
func (k *Kernel) Status() (Status, error) {
	all := k.Tasks.FindAll()
	st := Status{NextRunAt: make(map[string]time.Time)}
	now := time.Now()
	for _, t := range all {
		if !t.Enabled {
			st.Disabled++
			continue
		}
		st.Enabled++
		next, err := cron.NextAfter(t.Schedule, now)
		if err != nil {
			continue
		}
		st.NextRunAt[t.Name] = next
		if !next.After(now) {
			st.Due = append(st.Due, t.Name)
		}
	}
	return st, nil
}

// GetUpcoming returns every enabled task's fire times within the next
// hours, sorted by scheduled time (supplemented operation, §4.M).
func (k *Kernel) GetUpcoming(hours float64) ([]Upcoming, error) {
	all := k.Tasks.FindEnabled()
	cutoff := time.Now().Add(time.Duration(hours * float64(time.Hour)))
	now := time.Now()

	var out []Upcoming
	for _, t := range all {
		times, err := cron.NextN(t.Schedule, 32, now)
		if err != nil {
			continue
		}
		for _, at := range times {
			if at.After(cutoff) {
				break
			}
			out = append(out, Upcoming{TaskName: t.Name, At: at})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].At.Before(out[j].At) })
	return out, nil
}
