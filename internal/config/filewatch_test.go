package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestFileWatcherFiresOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tasks.yaml")
	if err := os.WriteFile(path, []byte("tasks: []\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var calls int32
	fw, err := NewFileWatcher(path, func() { atomic.AddInt32(&calls, 1) })
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}
	defer fw.Stop()
	if err := fw.Start(dir); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := os.WriteFile(path, []byte("tasks: [{id: t1}]\n"), 0o644); err != nil {
		t.Fatalf("rewrite: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if atomic.LoadInt32(&calls) > 0 {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("onChange was never called after file write")
}
