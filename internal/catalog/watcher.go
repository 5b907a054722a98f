package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits after the last change to a
// file before reloading it.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads file-backed datasets when their files change. Parent
// directories are watched so editors that save by rename are picked up.
type Watcher struct {
	catalog  *Catalog
	logger   *slog.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
	reloads sync.WaitGroup
}

// NewWatcher creates a watcher for c. A non-positive debounce uses DefaultDebounce.
func NewWatcher(c *Catalog, debounce time.Duration, logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		catalog:  c,
		logger:   logger,
		debounce: debounce,
		timers:   make(map[string]*time.Timer),
	}
}

// Start begins watching. It returns the number of files watched; zero means
// the catalog has no file-backed datasets and nothing was started.
func (w *Watcher) Start() (int, error) {
	pathToNames := make(map[string][]string)
	for name, path := range w.catalog.FilePaths() {
		abs, err := filepath.Abs(path)
		if err != nil {
			w.logger.Warn("watcher: bad path", "dataset", name, "path", path, "err", err)
			continue
		}
		pathToNames[abs] = append(pathToNames[abs], name)
	}
	if len(pathToNames) == 0 {
		return 0, nil
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return 0, fmt.Errorf("create watcher: %w", err)
	}
	watchedDirs := make(map[string]bool)
	for path := range pathToNames {
		dir := filepath.Dir(path)
		if watchedDirs[dir] {
			continue
		}
		if err := fw.Add(dir); err != nil {
			fw.Close()
			return 0, fmt.Errorf("watch %s: %w", dir, err)
		}
		watchedDirs[dir] = true
	}
	w.watcher = fw

	ctx, cancel := context.WithCancel(context.Background())
	w.cancel = cancel

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx, pathToNames)
	}()

	w.logger.Info("watching dataset files", "files", len(pathToNames))
	return len(pathToNames), nil
}

func (w *Watcher) run(ctx context.Context, pathToNames map[string][]string) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, _ := filepath.Abs(event.Name)
			names, ok := pathToNames[abs]
			if !ok {
				continue
			}
			for _, name := range names {
				w.schedule(ctx, name)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watcher error", "err", err)
		}
	}
}

// schedule (re)arms the debounce timer for name.
func (w *Watcher) schedule(ctx context.Context, name string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if t, ok := w.timers[name]; ok {
		t.Stop()
	}
	w.timers[name] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		if w.stopped || ctx.Err() != nil {
			w.mu.Unlock()
			return
		}
		w.reloads.Add(1)
		w.mu.Unlock()
		defer w.reloads.Done()

		w.logger.Info("dataset file changed, reloading", "dataset", name)
		// Load logs and publishes its own failures.
		_, _ = w.catalog.Load(ctx, name)
	})
}

// Stop closes the underlying watcher, cancels pending reloads and waits for
// any reload already in progress to return.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	if w.watcher != nil {
		w.watcher.Close()
	}
	w.wg.Wait()

	w.mu.Lock()
	w.stopped = true
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	w.reloads.Wait()
}
