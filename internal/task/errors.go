package task

import "fmt"

// ValidationError covers bad cron expressions, missing working directories,
// duplicate task names, and malformed skill references (§7).
type ValidationError struct {
	TaskID string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("task %s: validation failed: %s", e.TaskID, e.Reason)
}

// DuplicateNameError is returned by Save when a task name collides with an
// existing one.
type DuplicateNameError struct {
	Name string
}

func (e *DuplicateNameError) Error() string {
	return fmt.Sprintf("task: duplicate name %q", e.Name)
}

// NotFoundError is returned when a task id or name cannot be resolved.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("task: not found: %s", e.ID)
}
