// Package watch monitors the resource library and package directory for
// out-of-band changes, so an editor session can resync its library
// fingerprint instead of overwriting files another tool rewrote.
package watch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// LibraryWatcher monitors the library and package roots and delivers
// debounced batches of changed file paths.
type LibraryWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	roots     []string
	onChange  func([]string) error
	logger    *zap.Logger
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewLibraryWatcher creates a watcher over the given root directories.
// onChange receives each coalesced batch of changed paths.
func NewLibraryWatcher(roots []string, debounce time.Duration, onChange func([]string) error, logger *zap.Logger) (*LibraryWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lw := &LibraryWatcher{
		watcher:   watcher,
		debouncer: NewDebouncer(debounce),
		roots:     roots,
		onChange:  onChange,
		logger:    logger,
		stopChan:  make(chan struct{}),
	}
	lw.debouncer.SetCallback(func(files []string) {
		if err := lw.onChange(files); err != nil {
			lw.logger.Error("change handler failed", zap.Error(err))
		}
	})
	return lw, nil
}

// Start registers every existing directory under the roots and begins
// watching. fsnotify is not recursive, so each subdirectory is added
// individually; directories created later are picked up from their create
// events.
func (lw *LibraryWatcher) Start() error {
	for _, root := range lw.roots {
		if err := lw.addRecursive(root); err != nil {
			return err
		}
	}

	lw.wg.Add(1)
	go lw.watch()
	return nil
}

// Stop stops the watcher. Safe to call more than once.
func (lw *LibraryWatcher) Stop() error {
	select {
	case <-lw.stopChan:
		return nil
	default:
		close(lw.stopChan)
	}
	lw.wg.Wait()
	lw.debouncer.Stop()
	return lw.watcher.Close()
}

func (lw *LibraryWatcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") && path != root {
			return filepath.SkipDir
		}
		if err := lw.watcher.Add(path); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", path, err)
		}
		return nil
	})
}

func (lw *LibraryWatcher) watch() {
	defer lw.wg.Done()

	for {
		select {
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if lw.shouldIgnore(event.Name) {
				continue
			}

			// A created directory must itself be watched.
			if event.Op&fsnotify.Create == fsnotify.Create {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := lw.addRecursive(event.Name); err != nil {
						lw.logger.Warn("failed to watch new directory",
							zap.String("path", event.Name),
							zap.Error(err))
					}
					continue
				}
			}

			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				if filepath.Ext(event.Name) == ".json" {
					lw.debouncer.Add(event.Name)
				}
			}

		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			lw.logger.Warn("watcher error", zap.Error(err))

		case <-lw.stopChan:
			return
		}
	}
}

// shouldIgnore filters hidden files and the store's temp files, whose rename
// already produces an event on the final path.
func (lw *LibraryWatcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	return strings.HasSuffix(base, ".tmp")
}

// Debouncer collects changed paths and delivers them in one batch after a
// quiet period.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// SetCallback sets the batch callback.
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Add records a changed path and re-arms the timer.
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}

	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

func (d *Debouncer) flush() {
	d.mutex.Lock()
	if len(d.files) == 0 || d.stopped {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	if callback != nil {
		callback(files)
	}
}

// Stop cancels any pending flush.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
