// Package session implements the session manager (§4.D): it mints
// collision-resistant session ids and tracks per-execution start/end
// metadata, one JSON file per session under a sessions directory.
package session

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOrphaned  Status = "orphaned"
)

// Session is a correlation id shared between a task execution and its
// agent subprocess.
type Session struct {
	ID        string                 `json:"id"`
	TaskID    string                 `json:"task_id"`
	Status    Status                 `json:"status"`
	CreatedAt time.Time              `json:"created_at"`
	EndedAt   *time.Time             `json:"ended_at,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	// ProviderSessionID is set when the agent provider issues its own
	// session id, which then becomes authoritative (§4.H step 8); the
	// locally minted ID in ID remains a stable alias for lookups.
	ProviderSessionID string `json:"provider_session_id,omitempty"`
	OutputSummary     string `json:"output_summary,omitempty"`
	Error             string `json:"error,omitempty"`
}

// NewID mints a collision-resistant 128-bit session id encoded in base36,
// per §4.D verbatim.
func NewID() (string, error) {
	buf := make([]byte, 16) // 128 bits
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("session: rand: %w", err)
	}
	n := new(big.Int).SetBytes(buf)
	return n.Text(36), nil
}

// Manager tracks active and completed sessions as one JSON file per
// session under dir.
type Manager struct {
	dir string
	mu  sync.Mutex
}

// NewManager opens the session manager rooted at dir.
func NewManager(dir string) *Manager {
	return &Manager{dir: dir}
}

func (m *Manager) path(id string) string {
	return filepath.Join(m.dir, id+".json")
}

// CreateSession mints a new session for taskID and persists it in the
// active state.
func (m *Manager) CreateSession(taskID string, metadata map[string]interface{}) (*Session, error) {
	id, err := NewID()
	if err != nil {
		return nil, err
	}
	s := &Session{
		ID:        id,
		TaskID:    taskID,
		Status:    StatusActive,
		CreatedAt: time.Now(),
		Metadata:  metadata,
	}
	if err := m.write(s); err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) write(s *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("session: mkdir: %w", err)
	}
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("session: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(m.dir, ".session-*.json.tmp")
	if err != nil {
		return fmt.Errorf("session: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("session: write: %w", err)
	}
	tmp.Close()
	return os.Rename(tmpPath, m.path(s.ID))
}

// Get loads a session by locally minted id.
func (m *Manager) Get(id string) (*Session, error) {
	data, err := os.ReadFile(m.path(id))
	if err != nil {
		return nil, fmt.Errorf("session: get %s: %w", id, err)
	}
	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("session: parse %s: %w", id, err)
	}
	return &s, nil
}

// SetProviderSessionID records the provider-issued id as authoritative,
// keeping the locally minted id as an alias (§4.H step 8).
func (m *Manager) SetProviderSessionID(id, providerSessionID string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	s.ProviderSessionID = providerSessionID
	return m.write(s)
}

// CompleteSession marks a session completed with its final output/error.
func (m *Manager) CompleteSession(id string, status Status, output, errMsg string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	now := time.Now()
	s.Status = status
	s.EndedAt = &now
	s.OutputSummary = output
	s.Error = errMsg
	return m.write(s)
}

// ReconcileOrphans runs at startup: any session left in StatusActive from
// a previous process lifetime (the process crashed mid-execution) is
// marked orphaned rather than left dangling forever.
func (m *Manager) ReconcileOrphans() (int, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("session: reconcile: %w", err)
	}
	count := 0
	for _, e := range entries {
		if filepath.Ext(e.Name()) != ".json" {
			continue
		}
		id := e.Name()[:len(e.Name())-len(".json")]
		s, err := m.Get(id)
		if err != nil {
			continue
		}
		if s.Status == StatusActive {
			s.Status = StatusOrphaned
			now := time.Now()
			s.EndedAt = &now
			if err := m.write(s); err != nil {
				return count, err
			}
			count++
		}
	}
	return count, nil
}
