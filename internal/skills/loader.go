// Package skills implements the skill registry (§4.E): named prompt
// templates on disk, discovered from a project-local directory and a
// user-global directory, with the project directory shadowing the
// global one on a name collision. A skill file is YAML frontmatter
// (name, description, allowed_tools, model) followed by a body in which
// $ARGUMENTS is substituted with the caller's prompt text at render time.
package skills

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// Metadata holds parsed SKILL.md frontmatter.
type Metadata struct {
	Name         string   `yaml:"name" json:"name"`
	Description  string   `yaml:"description" json:"description"`
	AllowedTools []string `yaml:"allowed_tools,omitempty" json:"allowedTools,omitempty"`
	Model        string   `yaml:"model,omitempty" json:"model,omitempty"`
}

// Info describes a discovered skill (also consumed by the BM25 search
// index in search.go).
type Info struct {
	Name        string `json:"name"`
	Path        string `json:"path"`    // absolute path to SKILL.md
	BaseDir     string `json:"baseDir"` // skill directory (parent of SKILL.md)
	Source      string `json:"source"`  // "project" or "global"
	Description string `json:"description"`
}

// Skill is a fully loaded skill: its discovery Info, frontmatter, and
// template body (frontmatter stripped, $ARGUMENTS not yet substituted).
type Skill struct {
	Info
	AllowedTools []string
	Model        string
	Body         string
}

// Registry discovers skills from a project directory and a global
// directory; the project directory shadows the global one by name.
type Registry struct {
	projectDir string
	globalDir  string

	mu    sync.RWMutex
	cache map[string]*Skill

	// version is bumped by the fsnotify watcher on changes; consumers
	// compare it to their cached copy to detect staleness.
	version atomic.Int64
}

// NewRegistry creates a skill registry over a project directory (may be
// empty if there is no active workspace) and a global directory.
func NewRegistry(projectDir, globalDir string) *Registry {
	return &Registry{
		projectDir: projectDir,
		globalDir:  globalDir,
		cache:      make(map[string]*Skill),
	}
}

// Dirs returns the non-empty skill directories, for the fsnotify watcher
// to monitor.
func (r *Registry) Dirs() []string {
	var dirs []string
	if r.projectDir != "" {
		dirs = append(dirs, r.projectDir)
	}
	if r.globalDir != "" {
		dirs = append(dirs, r.globalDir)
	}
	return dirs
}

// Reload re-scans both directories, rebuilding the cache. Project skills
// shadow global skills of the same name.
func (r *Registry) Reload() error {
	cache := make(map[string]*Skill)

	// Global first, then project, so project overwrites on collision.
	for _, layer := range []struct {
		dir    string
		source string
	}{
		{r.globalDir, "global"},
		{r.projectDir, "project"},
	} {
		if layer.dir == "" {
			continue
		}
		entries, err := os.ReadDir(layer.dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return fmt.Errorf("skills: reload %s: %w", layer.dir, err)
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			path := filepath.Join(layer.dir, e.Name(), "SKILL.md")
			data, err := os.ReadFile(path)
			if err != nil {
				continue
			}
			skill, err := parseSkill(data, e.Name(), path, layer.source)
			if err != nil {
				continue
			}
			cache[skill.Name] = skill
		}
	}

	r.mu.Lock()
	r.cache = cache
	r.mu.Unlock()
	r.version.Store(time.Now().UnixMilli())
	return nil
}

// Get returns the named skill.
func (r *Registry) Get(name string) (*Skill, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.cache[name]
	return s, ok
}

// GetAll returns every discovered skill.
func (r *Registry) GetAll() []Skill {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Skill, 0, len(r.cache))
	for _, s := range r.cache {
		out = append(out, *s)
	}
	return out
}

// ListSkills returns discovery Info for every skill — used to feed the
// BM25 search index in search.go.
func (r *Registry) ListSkills() []Info {
	all := r.GetAll()
	out := make([]Info, len(all))
	for i, s := range all {
		out[i] = s.Info
	}
	return out
}

// Exists reports whether name resolves to a known skill.
func (r *Registry) Exists(name string) bool {
	_, ok := r.Get(name)
	return ok
}

// Render substitutes $ARGUMENTS in the named skill's body with arguments,
// preserving all surrounding content.
func (r *Registry) Render(name, arguments string) (string, error) {
	s, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("skills: skill not found: %s", name)
	}
	return strings.ReplaceAll(s.Body, "$ARGUMENTS", arguments), nil
}

// Version returns the current registry snapshot version.
func (r *Registry) Version() int64 {
	return r.version.Load()
}

// BumpVersion forces the version counter forward (called by the watcher
// after Reload on a detected filesystem change).
func (r *Registry) BumpVersion() {
	r.version.Store(time.Now().UnixMilli())
}

var frontmatterSeparator = []byte("---\n")

func parseSkill(data []byte, dirName, path, source string) (*Skill, error) {
	body := string(data)
	var meta Metadata

	if strings_hasFrontmatter(data) {
		rest := data[len(frontmatterSeparator):]
		end := indexOfSeparator(rest)
		if end >= 0 {
			fm := rest[:end]
			if err := yaml.Unmarshal(fm, &meta); err != nil {
				return nil, fmt.Errorf("skills: parse frontmatter %s: %w", path, err)
			}
			body = string(rest[end+len(frontmatterSeparator):])
		}
	}

	name := meta.Name
	if name == "" {
		name = dirName
	}

	return &Skill{
		Info: Info{
			Name:        name,
			Path:        path,
			BaseDir:     filepath.Dir(path),
			Source:      source,
			Description: meta.Description,
		},
		AllowedTools: meta.AllowedTools,
		Model:        meta.Model,
		Body:         strings.TrimLeft(body, "\n"),
	}, nil
}

func strings_hasFrontmatter(data []byte) bool {
	return len(data) >= len(frontmatterSeparator) && string(data[:len(frontmatterSeparator)]) == string(frontmatterSeparator)
}

func indexOfSeparator(data []byte) int {
	sep := "\n---\n"
	idx := strings.Index(string(data), sep)
	if idx < 0 {
		return -1
	}
	return idx + 1 // position right after the leading \n, start of "---\n"
}
