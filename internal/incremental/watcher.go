package incremental

import (
	"context"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher feeds filesystem change notifications into repeated Indexer.Detect
// calls, debounced so a burst of writes to the same tree collapses into one
// rescan. It only tells the caller "rescan now"; it never classifies
// individual fs events.
type Watcher struct {
	indexer  *Indexer
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu   sync.Mutex
	prev map[string]FileMetadata

	onChange func(ChangeSet, Stats)

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher over indexer's root. initial is the prior
// run's metadata map (may be nil for a first run).
func NewWatcher(indexer *Indexer, initial map[string]FileMetadata, debounce time.Duration, onChange func(ChangeSet, Stats)) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if initial == nil {
		initial = make(map[string]FileMetadata)
	}
	if debounce <= 0 {
		debounce = 300 * time.Millisecond
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		indexer:  indexer,
		watcher:  fw,
		debounce: debounce,
		prev:     initial,
		onChange: onChange,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Start adds recursive watches under the indexer's root and begins the
// debounced rescan loop.
func (w *Watcher) Start() error {
	if err := w.addWatches(w.indexer.Scanner.Root); err != nil {
		return err
	}
	w.wg.Add(1)
	go w.run()
	return nil
}

// Stop ends the watch loop and releases the underlying fsnotify watcher.
func (w *Watcher) Stop() error {
	w.cancel()
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}

func (w *Watcher) addWatches(root string) error {
	visited := make(map[string]bool)
	return filepath.Walk(root, func(path string, info os.FileInfo, walkErr error) error {
		if walkErr != nil || !info.IsDir() {
			return nil
		}
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			return nil
		}
		if visited[realPath] {
			return filepath.SkipDir
		}
		visited[realPath] = true

		relPath, err := filepath.Rel(root, path)
		if err == nil && w.indexer.Scanner.excluded(filepath.ToSlash(relPath)+"/") {
			return filepath.SkipDir
		}

		if err := w.watcher.Add(path); err != nil {
			log.Printf("incremental: failed to watch %s: %v", path, err)
		}
		return nil
	})
}

func (w *Watcher) run() {
	defer w.wg.Done()

	var timer *time.Timer
	pending := make(chan struct{}, 1)

	for {
		select {
		case <-w.ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.AfterFunc(w.debounce, func() {
					select {
					case pending <- struct{}{}:
					default:
					}
				})
			} else {
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("incremental: watch error: %v", err)
		case <-pending:
			w.rescan()
		}
	}
}

func (w *Watcher) rescan() {
	w.mu.Lock()
	cs, next, stats, err := w.indexer.Detect(w.prev)
	if err != nil {
		w.mu.Unlock()
		log.Printf("incremental: rescan failed: %v", err)
		return
	}
	w.prev = next
	w.mu.Unlock()

	if w.onChange != nil && !cs.Empty() {
		w.onChange(cs, stats)
	}
}
