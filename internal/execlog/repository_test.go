package execlog

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndFindByTask(t *testing.T) {
	dir := t.TempDir()
	r := NewRepository(dir)

	base := time.Date(2026, 7, 29, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		res := Result{
			TaskID:     "t1",
			SessionID:  "s1",
			Status:     StatusSuccess,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
			FinishedAt: base.Add(time.Duration(i)*time.Minute + time.Second),
		}
		if err := r.Save(res); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	results, err := r.FindByTask("t1", 0)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
	for i := 1; i < len(results); i++ {
		if !results[i].StartedAt.After(results[i-1].StartedAt) {
			t.Fatalf("results not ordered by StartedAt")
		}
	}
}

func TestFindLatest(t *testing.T) {
	dir := t.TempDir()
	r := NewRepository(dir)
	base := time.Now()
	r.Save(Result{TaskID: "t1", SessionID: "a", StartedAt: base, Status: StatusFailure})
	r.Save(Result{TaskID: "t1", SessionID: "b", StartedAt: base.Add(time.Minute), Status: StatusSuccess})

	latest, err := r.FindLatest("t1")
	if err != nil {
		t.Fatalf("FindLatest: %v", err)
	}
	if latest == nil || latest.SessionID != "b" {
		t.Fatalf("FindLatest = %+v, want session b", latest)
	}
}

func TestTornWriteRecovery(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "t1.jsonl")
	good := `{"task_id":"t1","session_id":"s1","status":"success","started_at":"2026-07-29T12:00:00Z","finished_at":"2026-07-29T12:00:01Z"}` + "\n"
	torn := `{"task_id":"t1","session_id":"s2","status":"success"` // missing closing brace/newline
	if err := os.WriteFile(path, []byte(good+torn), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	r := NewRepository(dir)
	results, err := r.FindByTask("t1", 0)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if len(results) != 1 || results[0].SessionID != "s1" {
		t.Fatalf("results = %+v, want only well-formed line", results)
	}
}

func TestOverallStats(t *testing.T) {
	dir := t.TempDir()
	r := NewRepository(dir)
	r.Save(Result{TaskID: "t1", SessionID: "a", StartedAt: time.Now(), Status: StatusSuccess})
	r.Save(Result{TaskID: "t2", SessionID: "b", StartedAt: time.Now(), Status: StatusFailure})

	stats, err := r.OverallStats()
	if err != nil {
		t.Fatalf("OverallStats: %v", err)
	}
	if stats.Total != 2 {
		t.Errorf("Total = %d, want 2", stats.Total)
	}
	if stats.ByStatus[StatusSuccess] != 1 || stats.ByStatus[StatusFailure] != 1 {
		t.Errorf("ByStatus = %+v", stats.ByStatus)
	}
}

func TestClearTask(t *testing.T) {
	dir := t.TempDir()
	r := NewRepository(dir)
	r.Save(Result{TaskID: "t1", SessionID: "a", StartedAt: time.Now(), Status: StatusSuccess})
	if err := r.ClearTask("t1"); err != nil {
		t.Fatalf("ClearTask: %v", err)
	}
	results, err := r.FindByTask("t1", 0)
	if err != nil {
		t.Fatalf("FindByTask: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %+v, want empty after clear", results)
	}
}
