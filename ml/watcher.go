package ml

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// ArtifactWatcher reports changes to the model artifact file after
// startup. The loaded model is never refreshed at runtime; the watcher
// only tells operators that a restart would pick up a different
// artifact.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchArtifact watches the directory containing path and invokes
// onChange with the event description whenever the artifact is
// created, rewritten, renamed or removed.
func WatchArtifact(path string, onChange func(event string)) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	base := filepath.Base(path)
	aw := &ArtifactWatcher{watcher: watcher, done: make(chan struct{})}

	go func() {
		defer close(aw.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != base {
					continue
				}
				if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) != 0 {
					onChange(event.Op.String())
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()

	return aw, nil
}

func (aw *ArtifactWatcher) Close() error {
	err := aw.watcher.Close()
	<-aw.done
	return err
}
