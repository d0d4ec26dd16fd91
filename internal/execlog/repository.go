package execlog

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// Repository is the append-only JSON-lines execution log, one file per
// task under dir. Appends are serialized per task file; a save failure
// never deletes prior lines.
type Repository struct {
	dir string

	mu       sync.Mutex
	fileLock map[string]*sync.Mutex
}

// NewRepository opens the log repository rooted at dir.
func NewRepository(dir string) *Repository {
	return &Repository{dir: dir, fileLock: make(map[string]*sync.Mutex)}
}

func (r *Repository) lockFor(taskID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.fileLock[taskID]
	if !ok {
		l = &sync.Mutex{}
		r.fileLock[taskID] = l
	}
	return l
}

func (r *Repository) pathFor(taskID string) string {
	return filepath.Join(r.dir, taskID+".jsonl")
}

// Save appends result to its task's log file.
func (r *Repository) Save(result Result) error {
	lock := r.lockFor(result.TaskID)
	lock.Lock()
	defer lock.Unlock()

	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return fmt.Errorf("execlog: mkdir: %w", err)
	}
	f, err := os.OpenFile(r.pathFor(result.TaskID), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("execlog: open: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(&result)
	if err != nil {
		return fmt.Errorf("execlog: marshal: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("execlog: write: %w", err)
	}
	return nil
}

// readAll reads every well-formed line in a task's log file, silently
// dropping any trailing line that fails to unmarshal (torn-write
// recovery — never fails the read).
func (r *Repository) readAll(taskID string) ([]Result, error) {
	f, err := os.Open(r.pathFor(taskID))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("execlog: open %s: %w", taskID, err)
	}
	defer f.Close()

	var out []Result
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var res Result
		if err := json.Unmarshal(line, &res); err != nil {
			continue // torn line, skip
		}
		out = append(out, res)
	}
	return out, nil
}

func sortByStartThenSession(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		if !results[i].StartedAt.Equal(results[j].StartedAt) {
			return results[i].StartedAt.Before(results[j].StartedAt)
		}
		return results[i].SessionID < results[j].SessionID
	})
}

// FindByTask returns up to limit most-recent results for a task (0 = all),
// ordered by start timestamp.
func (r *Repository) FindByTask(taskID string, limit int) ([]Result, error) {
	all, err := r.readAll(taskID)
	if err != nil {
		return nil, err
	}
	sortByStartThenSession(all)
	if limit > 0 && len(all) > limit {
		all = all[len(all)-limit:]
	}
	return all, nil
}

// FindLatest returns the most recent result for a task by start timestamp.
func (r *Repository) FindLatest(taskID string) (*Result, error) {
	all, err := r.readAll(taskID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, nil
	}
	sortByStartThenSession(all)
	last := all[len(all)-1]
	return &last, nil
}

// taskIDs lists every task that has a log file.
func (r *Repository) taskIDs() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if filepath.Ext(name) == ".jsonl" {
			ids = append(ids, name[:len(name)-len(".jsonl")])
		}
	}
	return ids, nil
}

// Find applies filter across all tasks' logs.
func (r *Repository) Find(filter Filter) ([]Result, error) {
	var ids []string
	if filter.TaskID != "" {
		ids = []string{filter.TaskID}
	} else {
		var err error
		ids, err = r.taskIDs()
		if err != nil {
			return nil, err
		}
	}

	var matched []Result
	for _, id := range ids {
		results, err := r.readAll(id)
		if err != nil {
			return nil, err
		}
		for _, res := range results {
			if filter.Status != "" && res.Status != filter.Status {
				continue
			}
			if !filter.From.IsZero() && res.StartedAt.Before(filter.From) {
				continue
			}
			if !filter.To.IsZero() && res.StartedAt.After(filter.To) {
				continue
			}
			matched = append(matched, res)
		}
	}
	sortByStartThenSession(matched)

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

// OverallStats summarizes every recorded execution across all tasks.
func (r *Repository) OverallStats() (Stats, error) {
	ids, err := r.taskIDs()
	if err != nil {
		return Stats{}, err
	}
	stats := Stats{ByStatus: make(map[Status]int), ByTask: make(map[string]int)}
	for _, id := range ids {
		results, err := r.readAll(id)
		if err != nil {
			return Stats{}, err
		}
		stats.Total += len(results)
		stats.ByTask[id] = len(results)
		for _, res := range results {
			stats.ByStatus[res.Status]++
		}
	}
	return stats, nil
}

// ClearTask removes a task's entire log file.
func (r *Repository) ClearTask(taskID string) error {
	lock := r.lockFor(taskID)
	lock.Lock()
	defer lock.Unlock()
	err := os.Remove(r.pathFor(taskID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("execlog: clear %s: %w", taskID, err)
	}
	return nil
}

// TruncateTornWrites rewrites every log file on disk, dropping any
// unparseable trailing line left by a mid-write crash. Intended to run
// once at startup.
func (r *Repository) TruncateTornWrites() error {
	ids, err := r.taskIDs()
	if err != nil {
		return err
	}
	for _, id := range ids {
		lock := r.lockFor(id)
		lock.Lock()
		results, err := r.readAll(id)
		if err != nil {
			lock.Unlock()
			return err
		}
		path := r.pathFor(id)
		tmp, err := os.CreateTemp(r.dir, ".execlog-*.jsonl.tmp")
		if err != nil {
			lock.Unlock()
			return err
		}
		w := bufio.NewWriter(tmp)
		for _, res := range results {
			data, _ := json.Marshal(&res)
			w.Write(data)
			w.WriteByte('\n')
		}
		if err := w.Flush(); err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
			lock.Unlock()
			return err
		}
		tmp.Close()
		if err := os.Rename(tmp.Name(), path); err != nil {
			os.Remove(tmp.Name())
			lock.Unlock()
			return err
		}
		lock.Unlock()
	}
	return nil
}
