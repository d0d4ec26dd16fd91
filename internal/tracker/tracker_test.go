package tracker

import "testing"

func TestStartRejectsReentrant(t *testing.T) {
	tr := New()
	if _, err := tr.Start("t1", nil); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := tr.Start("t1", nil); err == nil {
		t.Fatal("expected re-entrant Start to fail")
	}
}

func TestFinishAllowsRestart(t *testing.T) {
	tr := New()
	id, _ := tr.Start("t1", nil)
	tr.Finish(id)
	if _, err := tr.Start("t1", nil); err != nil {
		t.Fatalf("Start after Finish: %v", err)
	}
}

func TestGetByTask(t *testing.T) {
	tr := New()
	id, _ := tr.Start("t1", nil)
	e, ok := tr.GetByTask("t1")
	if !ok || e.ExecutionID != id {
		t.Fatalf("GetByTask = %+v, %v", e, ok)
	}
}

func TestCleanupStaleRemovesInvalidApprovals(t *testing.T) {
	tr := New()
	id, _ := tr.Start("t1", nil)
	tr.MarkWaitingApproval(id, "approval-missing")

	removed := tr.CleanupStale(map[string]bool{"approval-valid": true})
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, ok := tr.GetByTask("t1"); ok {
		t.Error("expected stale entry to be removed")
	}
}

func TestCleanupStaleKeepsValidApprovals(t *testing.T) {
	tr := New()
	id, _ := tr.Start("t1", nil)
	tr.MarkWaitingApproval(id, "approval-valid")

	removed := tr.CleanupStale(map[string]bool{"approval-valid": true})
	if removed != 0 {
		t.Fatalf("removed = %d, want 0", removed)
	}
}
