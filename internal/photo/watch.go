package photo

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// EventKind tells whether a photo appeared or went away.
type EventKind int

const (
	PhotoAdded EventKind = iota
	PhotoRemoved
)

// Event reports a change to the set of photos in a watched folder.
type Event struct {
	Path string
	Kind EventKind
}

// Watch reports JPEG files appearing in or disappearing from albumDirs until
// ctx is done. A replace-by-rename shows up as PhotoAdded.
func Watch(ctx context.Context, albumDirs []string, recursive bool, logger *zap.Logger) (<-chan Event, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	for _, dir := range albumDirs {
		if err := addDirs(w, dir, recursive); err != nil {
			w.Close()
			return nil, err
		}
	}

	events := make(chan Event, 16)
	go func() {
		defer close(events)
		defer w.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Warn("watch error", zap.Error(err))
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if recursive && ev.Has(fsnotify.Create) && !IsJPEG(ev.Name) {
					// New sub-folders join the watch; other files are ignored.
					if err := addDirs(w, ev.Name, true); err != nil {
						logger.Debug("not watching", zap.String("path", ev.Name), zap.Error(err))
					}
					continue
				}
				if !IsJPEG(ev.Name) {
					continue
				}
				var out Event
				switch {
				case ev.Has(fsnotify.Create):
					out = Event{Path: ev.Name, Kind: PhotoAdded}
				case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
					out = Event{Path: ev.Name, Kind: PhotoRemoved}
				default:
					continue
				}
				select {
				case events <- out:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events, nil
}

func addDirs(w *fsnotify.Watcher, root string, recursive bool) error {
	if !recursive {
		if err := w.Add(root); err != nil {
			return fmt.Errorf("watch %s: %w", root, err)
		}
		return nil
	}
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}
