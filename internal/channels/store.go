// Channel configuration storage (§6 "Channels file"): a single YAML
// document listing notification destinations, loaded and persisted
// with the same atomic write-temp-rename discipline as the task
// repository (internal/task/repository.go).
package channels

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Channel is one configured notification destination.
type Channel struct {
	ID           string            `yaml:"id" json:"id"`
	Provider     string            `yaml:"provider" json:"provider"` // "telegram", "discord", "teams"
	Name         string            `yaml:"name" json:"name"`
	Enabled      bool              `yaml:"enabled" json:"enabled"`
	Config       map[string]string `yaml:"config,omitempty" json:"config,omitempty"`
	CredentialID string            `yaml:"credential_id,omitempty" json:"credential_id,omitempty"`
}

type document struct {
	Channels []Channel `yaml:"channels"`
}

// Store is the durable, atomically-persisted channel configuration
// repository.
type Store struct {
	path string
	mu   sync.Mutex
	data map[string]*Channel
}

// NewStore opens the channel store backed by path.
func NewStore(path string) *Store {
	return &Store{path: path, data: make(map[string]*Channel)}
}

// Load reads the channel file from disk, tolerating a missing file
// (an empty store).
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("channels: read %s: %w", s.path, err)
	}
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("channels: parse %s: %w", s.path, err)
	}
	data := make(map[string]*Channel, len(doc.Channels))
	for i := range doc.Channels {
		c := doc.Channels[i]
		data[c.ID] = &c
	}
	s.data = data
	return nil
}

func (s *Store) saveUnsafe() error {
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	doc := document{Channels: make([]Channel, 0, len(ids))}
	for _, id := range ids {
		doc.Channels = append(doc.Channels, *s.data[id])
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("channels: marshal: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".channels-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("channels: create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		return fmt.Errorf("channels: write: %w", err)
	}
	tmp.Close()
	return os.Rename(tmpPath, s.path)
}

// Upsert adds or replaces a channel and persists the result.
func (s *Store) Upsert(c Channel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, existed := s.data[c.ID]
	s.data[c.ID] = &c
	if err := s.saveUnsafe(); err != nil {
		if existed {
			s.data[c.ID] = prev
		} else {
			delete(s.data, c.ID)
		}
		return err
	}
	return nil
}

// Get returns the channel by id.
func (s *Store) Get(id string) (Channel, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.data[id]
	if !ok {
		return Channel{}, false
	}
	return *c, true
}

// All returns every configured channel, sorted by id.
func (s *Store) All() []Channel {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.data))
	for id := range s.data {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]Channel, len(ids))
	for i, id := range ids {
		out[i] = *s.data[id]
	}
	return out
}

// Enabled returns every enabled channel among ids.
func (s *Store) Enabled(ids []string) []Channel {
	var out []Channel
	for _, id := range ids {
		if c, ok := s.Get(id); ok && c.Enabled {
			out = append(out, c)
		}
	}
	return out
}
