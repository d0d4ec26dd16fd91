package task

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	dir := t.TempDir()
	r := NewRepository(filepath.Join(dir, "tasks.yaml"))
	if err := r.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	return r
}

func validTask(id, name string) Task {
	return Task{
		ID:         id,
		Name:       name,
		Schedule:   "*/5 * * * *",
		WorkingDir: "/tmp",
		Prompt:     "do the thing",
		Model:      ModelMedium,
		Timeout:    60,
		Enabled:    true,
	}
}

func TestSaveAndFind(t *testing.T) {
	r := newTestRepo(t)
	tk := validTask("t1", "nightly-report")
	if _, err := r.Save(tk); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := r.FindByID("t1")
	if err != nil {
		t.Fatalf("FindByID: %v", err)
	}
	if got.Name != "nightly-report" {
		t.Errorf("Name = %q", got.Name)
	}

	byName, err := r.FindByName("nightly-report")
	if err != nil || byName.ID != "t1" {
		t.Errorf("FindByName: got %+v, err %v", byName, err)
	}
}

func TestSaveDuplicateName(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.Save(validTask("t1", "dup")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := r.Save(validTask("t2", "dup")); err == nil {
		t.Fatal("expected DuplicateNameError")
	} else if _, ok := err.(*DuplicateNameError); !ok {
		t.Errorf("got %T, want *DuplicateNameError", err)
	}
}

func TestSaveInvalidCron(t *testing.T) {
	r := newTestRepo(t)
	tk := validTask("t1", "bad-cron")
	tk.Schedule = "not a cron"
	if _, err := r.Save(tk); err == nil {
		t.Fatal("expected ValidationError")
	}
}

func TestSaveSkillXorPrompt(t *testing.T) {
	r := newTestRepo(t)
	tk := validTask("t1", "both")
	tk.Skill = "deploy"
	if _, err := r.Save(tk); err == nil {
		t.Fatal("expected ValidationError for skill+prompt both set")
	}

	tk2 := validTask("t2", "neither")
	tk2.Prompt = ""
	if _, err := r.Save(tk2); err == nil {
		t.Fatal("expected ValidationError for neither skill nor prompt set")
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")

	r1 := NewRepository(path)
	if err := r1.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if _, err := r1.Save(validTask("t1", "persisted")); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r2 := NewRepository(path)
	if err := r2.Load(); err != nil {
		t.Fatalf("reload Load: %v", err)
	}
	got, err := r2.FindByName("persisted")
	if err != nil {
		t.Fatalf("FindByName after reload: %v", err)
	}
	if got.ID != "t1" {
		t.Errorf("ID = %q after reload", got.ID)
	}
}

func TestFindDue(t *testing.T) {
	r := newTestRepo(t)
	tk := validTask("t1", "every-5-min")
	tk.Schedule = "*/5 * * * *"
	if _, err := r.Save(tk); err != nil {
		t.Fatalf("Save: %v", err)
	}

	now := time.Date(2026, 7, 29, 12, 0, 3, 0, time.UTC)
	due, err := r.FindDue(now, 60*time.Second)
	if err != nil {
		t.Fatalf("FindDue: %v", err)
	}
	if len(due) != 1 || due[0].ID != "t1" {
		t.Fatalf("FindDue = %+v, want [t1]", due)
	}
}

func TestDeleteSurvivesForLogs(t *testing.T) {
	r := newTestRepo(t)
	if _, err := r.Save(validTask("t1", "to-delete")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := r.Delete("t1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := r.FindByID("t1"); err == nil {
		t.Fatal("expected NotFoundError after delete")
	}
}
