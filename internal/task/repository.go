package task

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nextlevelbuilder/goclaw/internal/cron"
)

// Repository is the durable YAML-backed task store (§4.B). Writes are
// serialized behind an in-process mutex and persisted with a
// write-temp-rename so readers never observe a torn file.
type Repository struct {
	path string

	mu    sync.Mutex
	tasks map[string]*Task // id -> task, last-loaded snapshot
}

// NewRepository opens (but does not yet load) the task repository backed
// by the YAML document at path.
func NewRepository(path string) *Repository {
	return &Repository{path: path, tasks: make(map[string]*Task)}
}

// Load reads the backing document from disk. A missing file is treated as
// an empty repository.
func (r *Repository) Load() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loadUnsafe()
}

func (r *Repository) loadUnsafe() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.tasks = make(map[string]*Task)
			return nil
		}
		return fmt.Errorf("task: load %s: %w", r.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("task: parse %s: %w", r.path, err)
	}
	tasks := make(map[string]*Task, len(doc.Tasks))
	for i := range doc.Tasks {
		t := doc.Tasks[i]
		tasks[t.ID] = &t
	}
	r.tasks = tasks
	return nil
}

// saveUnsafe persists the current snapshot atomically: write to a temp
// file in the same directory, then rename over the destination.
func (r *Repository) saveUnsafe() error {
	doc := document{Tasks: make([]Task, 0, len(r.tasks))}
	for _, t := range r.tasks {
		doc.Tasks = append(doc.Tasks, *t)
	}
	sort.Slice(doc.Tasks, func(i, j int) bool { return doc.Tasks[i].Name < doc.Tasks[j].Name })

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return fmt.Errorf("task: marshal: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("task: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".task-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("task: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) // no-op once renamed

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("task: write temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("task: close temp: %w", err)
	}
	if err := os.Rename(tmpPath, r.path); err != nil {
		return fmt.Errorf("task: rename: %w", err)
	}
	return nil
}

// Validate checks the spec's task invariants: cron parseable, skill XOR
// prompt, timeout bounds. Working-directory existence is checked at
// execute time, not at save time (the directory may not yet exist for a
// task being authored ahead of its first run on a fresh checkout).
func Validate(t *Task) error {
	if t.Name == "" {
		return &ValidationError{TaskID: t.ID, Reason: "name is required"}
	}
	if !cron.Validate(t.Schedule) {
		return &ValidationError{TaskID: t.ID, Reason: fmt.Sprintf("invalid cron expression %q", t.Schedule)}
	}
	hasSkill := t.Skill != ""
	hasPrompt := t.Prompt != ""
	if hasSkill == hasPrompt {
		return &ValidationError{TaskID: t.ID, Reason: "exactly one of skill or prompt must be set"}
	}
	if t.Timeout < 30 || t.Timeout > 3600 {
		return &ValidationError{TaskID: t.ID, Reason: "timeout must be within [30, 3600] seconds"}
	}
	return nil
}

// FindAll returns every task, sorted by name.
func (r *Repository) FindAll() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotUnsafe(func(*Task) bool { return true })
}

// FindEnabled returns enabled tasks, sorted by name.
func (r *Repository) FindEnabled() []Task {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.snapshotUnsafe(func(t *Task) bool { return t.Enabled })
}

func (r *Repository) snapshotUnsafe(pred func(*Task) bool) []Task {
	out := make([]Task, 0, len(r.tasks))
	for _, t := range r.tasks {
		if pred(t) {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// FindByID returns the task with the given id.
func (r *Repository) FindByID(id string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return Task{}, &NotFoundError{ID: id}
	}
	return *t, nil
}

// FindByName returns the task with the given name.
func (r *Repository) FindByName(name string) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.tasks {
		if t.Name == name {
			return *t, nil
		}
	}
	return Task{}, &NotFoundError{ID: name}
}

// FindDue returns enabled tasks whose next fire time after (now - window)
// is at or before now.
func (r *Repository) FindDue(now time.Time, window time.Duration) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var due []Task
	for _, t := range r.tasks {
		if !t.Enabled {
			continue
		}
		next, err := cron.NextAfter(t.Schedule, now.Add(-window))
		if err != nil {
			continue // malformed schedules are skipped, not fatal to the scan
		}
		if !next.After(now) {
			due = append(due, *t)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].Name < due[j].Name })
	return due, nil
}

// Save inserts a new task. Fails with DuplicateNameError on a name
// collision, ValidationError on invariant violation.
func (r *Repository) Save(t Task) (Task, error) {
	if err := Validate(&t); err != nil {
		return Task{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.tasks {
		if existing.Name == t.Name && existing.ID != t.ID {
			return Task{}, &DuplicateNameError{Name: t.Name}
		}
	}
	r.tasks[t.ID] = &t
	if err := r.saveUnsafe(); err != nil {
		delete(r.tasks, t.ID)
		return Task{}, err
	}
	return t, nil
}

// Update mutates an existing task in place via fn and persists the result.
func (r *Repository) Update(id string, fn func(*Task)) (Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[id]
	if !ok {
		return Task{}, &NotFoundError{ID: id}
	}
	updated := *existing
	fn(&updated)
	if err := Validate(&updated); err != nil {
		return Task{}, err
	}
	for otherID, other := range r.tasks {
		if otherID != id && other.Name == updated.Name {
			return Task{}, &DuplicateNameError{Name: updated.Name}
		}
	}
	r.tasks[id] = &updated
	if err := r.saveUnsafe(); err != nil {
		r.tasks[id] = existing
		return Task{}, err
	}
	return updated, nil
}

// Delete removes a task by id. Execution log records are owned by the log
// repository and are never touched here, so they survive task deletion.
func (r *Repository) Delete(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.tasks[id]
	if !ok {
		return &NotFoundError{ID: id}
	}
	delete(r.tasks, id)
	if err := r.saveUnsafe(); err != nil {
		r.tasks[id] = existing
		return err
	}
	return nil
}

// RecordRun updates a task's last_run / last_status fields (step 10 of §4.H).
func (r *Repository) RecordRun(id string, at time.Time, status string) error {
	_, err := r.Update(id, func(t *Task) {
		t.LastRun = &at
		t.LastStatus = status
	})
	return err
}
