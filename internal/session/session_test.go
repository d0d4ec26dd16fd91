package session

import (
	"testing"
)

func TestNewIDCollisionResistant(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		id, err := NewID()
		if err != nil {
			t.Fatalf("NewID: %v", err)
		}
		if seen[id] {
			t.Fatalf("collision on id %s", id)
		}
		seen[id] = true
	}
}

func TestCreateCompleteLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	s, err := m.CreateSession("task-1", map[string]interface{}{"dry_run": false})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.Status != StatusActive {
		t.Errorf("Status = %s, want active", s.Status)
	}

	if err := m.SetProviderSessionID(s.ID, "provider-sid-123"); err != nil {
		t.Fatalf("SetProviderSessionID: %v", err)
	}

	if err := m.CompleteSession(s.ID, StatusCompleted, "ok output", ""); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	got, err := m.Get(s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusCompleted {
		t.Errorf("Status = %s, want completed", got.Status)
	}
	if got.ProviderSessionID != "provider-sid-123" {
		t.Errorf("ProviderSessionID = %q", got.ProviderSessionID)
	}
	if got.EndedAt == nil {
		t.Error("EndedAt is nil after completion")
	}
}

func TestReconcileOrphans(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)

	active, err := m.CreateSession("task-1", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	completed, err := m.CreateSession("task-2", nil)
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if err := m.CompleteSession(completed.ID, StatusCompleted, "done", ""); err != nil {
		t.Fatalf("CompleteSession: %v", err)
	}

	count, err := m.ReconcileOrphans()
	if err != nil {
		t.Fatalf("ReconcileOrphans: %v", err)
	}
	if count != 1 {
		t.Fatalf("ReconcileOrphans count = %d, want 1", count)
	}

	got, err := m.Get(active.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Status != StatusOrphaned {
		t.Errorf("Status = %s, want orphaned", got.Status)
	}
}
