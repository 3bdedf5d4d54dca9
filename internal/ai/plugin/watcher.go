package plugin

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// Watcher reloads plugins when manifests in the plugin directory change.
// Every reload goes through Loader.LoadAll, so the registry swap stays
// atomic: readers see the old tool set until the new one is complete.
type Watcher struct {
	loader   *Loader
	watcher  *fsnotify.Watcher
	stopChan chan struct{}
}

// NewWatcher creates a watcher over the loader's plugin directory.
func NewWatcher(loader *Loader) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		loader:   loader,
		watcher:  fw,
		stopChan: make(chan struct{}),
	}, nil
}

// Start begins watching. The directory must exist; callers that allow a
// missing plugin directory skip the watcher entirely.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.loader.dir); err != nil {
		return err
	}
	go w.watchForChanges(ctx)
	log.Info().Str("dir", w.loader.dir).Msg("Watching plugin directory for changes")
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() {
	select {
	case <-w.stopChan:
		return
	default:
		close(w.stopChan)
	}
	w.watcher.Close()
}

func (w *Watcher) watchForChanges(ctx context.Context) {
	// Editors produce bursts of events per save; collapse them into one
	// reload per quiet period.
	const debounce = 500 * time.Millisecond
	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			ext := filepath.Ext(event.Name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(debounce)
				timerC = timer.C
			} else {
				timer.Reset(debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			log.Info().Msg("Plugin manifests changed, reloading")
			if err := w.loader.LoadAll(ctx); err != nil {
				log.Error().Err(err).Msg("Plugin reload failed, previous set kept")
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Plugin watcher error")

		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}
