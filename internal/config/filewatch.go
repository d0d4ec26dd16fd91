package config

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher generalizes Watcher's debounced fsnotify reload loop to an
// arbitrary file path and callback, so the task and channel repositories
// (§4.B, §6) can hot-reload on external edits the same way Config does.
type FileWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func()
	debounce time.Duration
	stopChan chan struct{}
	mu       sync.Mutex
}

// NewFileWatcher watches path, invoking onChange (debounced 300ms) after
// every write/create event.
func NewFileWatcher(path string, onChange func()) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &FileWatcher{
		path:     path,
		watcher:  w,
		onChange: onChange,
		debounce: 300 * time.Millisecond,
	}, nil
}

// Start begins watching the directory containing path (fsnotify cannot
// reliably watch a single not-yet-existing file, so the repositories'
// atomic write-temp-rename dance is observed via its parent directory).
func (fw *FileWatcher) Start(dir string) error {
	if err := fw.watcher.Add(dir); err != nil {
		return err
	}
	fw.stopChan = make(chan struct{})
	go fw.watchLoop()
	slog.Info("file watcher started", "path", fw.path)
	return nil
}

// Stop halts the watcher.
func (fw *FileWatcher) Stop() {
	fw.mu.Lock()
	if fw.stopChan != nil {
		close(fw.stopChan)
		fw.stopChan = nil
	}
	fw.mu.Unlock()
	fw.watcher.Close()
	slog.Info("file watcher stopped", "path", fw.path)
}

func (fw *FileWatcher) watchLoop() {
	var debounceTimer *time.Timer

	for {
		select {
		case <-fw.stopChan:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != fw.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(fw.debounce, func() {
				slog.Info("watched file changed, reloading", "path", fw.path)
				fw.onChange()
			})

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("file watcher error", "error", err, "path", fw.path)
		}
	}
}
