// Package tracker implements the Execution Tracker (§4.N): an
// in-memory registry of in-flight task executions, keyed by task id,
// used to reject re-entrant runs and to stop a running subprocess on
// demand.
package tracker

import (
	"fmt"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
)

// Status mirrors the subset of execlog.Status relevant to a live
// tracker entry.
type Status string

const (
	StatusRunning         Status = "running"
	StatusWaitingApproval Status = "waiting_approval"
)

// Entry is one tracked in-flight (or awaiting-approval) execution.
type Entry struct {
	ExecutionID string
	TaskID      string
	Status      Status
	ApprovalID  string // set only when Status == StatusWaitingApproval
	StartedAt   time.Time

	cmd *exec.Cmd
}

// Tracker is the in-memory task_id -> Entry registry.
type Tracker struct {
	mu      sync.Mutex
	byTask  map[string]*Entry
	byExec  map[string]*Entry
}

// New constructs an empty tracker.
func New() *Tracker {
	return &Tracker{
		byTask: make(map[string]*Entry),
		byExec: make(map[string]*Entry),
	}
}

// Start registers a new in-flight execution for taskID, minting a
// fresh execution id (execution ids are unconstrained by the spec,
// unlike session ids, so google/uuid is used directly).
func (t *Tracker) Start(taskID string, cmd *exec.Cmd) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, running := t.byTask[taskID]; running {
		return "", fmt.Errorf("tracker: task %s already has an in-flight execution", taskID)
	}

	execID := uuid.NewString()
	e := &Entry{
		ExecutionID: execID,
		TaskID:      taskID,
		Status:      StatusRunning,
		StartedAt:   time.Now(),
		cmd:         cmd,
	}
	t.byTask[taskID] = e
	t.byExec[execID] = e
	return execID, nil
}

// MarkWaitingApproval transitions an in-flight execution into the
// waiting_approval state once its plan-mode run has completed.
func (t *Tracker) MarkWaitingApproval(executionID, approvalID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.byExec[executionID]; ok {
		e.Status = StatusWaitingApproval
		e.ApprovalID = approvalID
	}
}

// Stop terminates the tracked subprocess (SIGTERM, matching the
// executor's own grace-period escalation) and removes the entry.
func (t *Tracker) Stop(executionID string) bool {
	t.mu.Lock()
	e, ok := t.byExec[executionID]
	t.mu.Unlock()
	if !ok {
		return false
	}
	if e.cmd != nil && e.cmd.Process != nil {
		_ = e.cmd.Process.Signal(syscall.SIGTERM)
	}
	t.remove(e)
	return true
}

// GetByTask returns the current entry for taskID, if any.
func (t *Tracker) GetByTask(taskID string) (Entry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.byTask[taskID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Finish removes the entry for an execution that has completed
// normally (success, failure, or timeout), making the task runnable
// again.
func (t *Tracker) Finish(executionID string) {
	t.mu.Lock()
	e, ok := t.byExec[executionID]
	t.mu.Unlock()
	if ok {
		t.remove(e)
	}
}

func (t *Tracker) remove(e *Entry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.byExec, e.ExecutionID)
	if cur, ok := t.byTask[e.TaskID]; ok && cur.ExecutionID == e.ExecutionID {
		delete(t.byTask, e.TaskID)
	}
}

// CleanupStale runs at startup: any entry left in waiting_approval
// whose approval id is not in validApprovalIDs is stale (the process
// crashed before the approval state machine could resolve it) and is
// removed.
func (t *Tracker) CleanupStale(validApprovalIDs map[string]bool) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	removed := 0
	for execID, e := range t.byExec {
		if e.Status != StatusWaitingApproval {
			continue
		}
		if !validApprovalIDs[e.ApprovalID] {
			delete(t.byExec, execID)
			if cur, ok := t.byTask[e.TaskID]; ok && cur.ExecutionID == execID {
				delete(t.byTask, e.TaskID)
			}
			removed++
		}
	}
	return removed
}
