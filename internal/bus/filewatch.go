package bus

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/niloyhakimai/medistore-client/pkg/logger"
)

// FileOrigin marks notifications synthesized from filesystem events
const FileOrigin = "file"

// FileWatchBridge turns writes to a profile file into notifications.
// The write is the signal, so Publish is a no-op and the process that wrote
// the file also hears about it.
type FileWatchBridge struct {
	path     string
	debounce time.Duration
}

// NewFileWatchBridge watches the file at path
func NewFileWatchBridge(path string) *FileWatchBridge {
	return &FileWatchBridge{path: path, debounce: 50 * time.Millisecond}
}

// Publish does nothing
func (f *FileWatchBridge) Publish(context.Context, Notification) error {
	return nil
}

// Run watches the file's directory, since atomic replace swaps the inode
func (f *FileWatchBridge) Run(ctx context.Context, deliver func(Notification)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(f.path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	name := filepath.Clean(f.path)
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != name {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			fire = time.After(f.debounce)

		case <-fire:
			fire = nil
			deliver(Notification{Origin: FileOrigin, At: time.Now()})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Get().Warn("Profile watcher error", "path", f.path, "error", err)
		}
	}
}
