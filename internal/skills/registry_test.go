package skills

import (
	"os"
	"path/filepath"
	"testing"
)

func writeSkill(t *testing.T, dir, name, frontmatter, body string) {
	t.Helper()
	skillDir := filepath.Join(dir, name)
	if err := os.MkdirAll(skillDir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	content := "---\n" + frontmatter + "---\n" + body
	if err := os.WriteFile(filepath.Join(skillDir, "SKILL.md"), []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
}

func TestRegistryReloadAndGet(t *testing.T) {
	global := t.TempDir()
	project := t.TempDir()

	writeSkill(t, global, "deploy", "name: deploy\ndescription: Deploys the app\n", "Run the deploy for $ARGUMENTS\n")

	r := NewRegistry(project, global)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	s, ok := r.Get("deploy")
	if !ok {
		t.Fatal("expected deploy skill to be found")
	}
	if s.Description != "Deploys the app" {
		t.Errorf("Description = %q", s.Description)
	}
	if s.Source != "global" {
		t.Errorf("Source = %q, want global", s.Source)
	}
}

func TestRegistryProjectShadowsGlobal(t *testing.T) {
	global := t.TempDir()
	project := t.TempDir()

	writeSkill(t, global, "deploy", "name: deploy\ndescription: Global version\n", "global body\n")
	writeSkill(t, project, "deploy", "name: deploy\ndescription: Project version\n", "project body\n")

	r := NewRegistry(project, global)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	s, ok := r.Get("deploy")
	if !ok {
		t.Fatal("expected deploy skill to be found")
	}
	if s.Source != "project" {
		t.Errorf("Source = %q, want project (shadowing global)", s.Source)
	}
	if s.Description != "Project version" {
		t.Errorf("Description = %q, want project version", s.Description)
	}
}

func TestRender(t *testing.T) {
	global := t.TempDir()
	writeSkill(t, global, "greet", "name: greet\ndescription: Greets someone\n", "Say hello to $ARGUMENTS please.\n")

	r := NewRegistry("", global)
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	rendered, err := r.Render("greet", "the team")
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	want := "Say hello to the team please.\n"
	if rendered != want {
		t.Errorf("Render = %q, want %q", rendered, want)
	}
}

func TestExistsAndMissing(t *testing.T) {
	r := NewRegistry("", t.TempDir())
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	if r.Exists("nope") {
		t.Error("Exists(nope) = true, want false")
	}
	if _, err := r.Render("nope", "x"); err == nil {
		t.Error("expected error rendering missing skill")
	}
}
