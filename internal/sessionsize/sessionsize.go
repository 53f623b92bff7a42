// Package sessionsize tracks the total on-disk size of an active session
// directory for the status display. A filesystem watcher marks the cached
// total dirty when capture output grows; rescans are throttled so the
// tracker never hammers the disk while ffmpeg streams data.
package sessionsize

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/recapd/recap/internal/logging"
)

// rescanInterval throttles directory walks. Capture files grow
// continuously, so without throttling every write event would trigger a
// full rescan.
const rescanInterval = 10 * time.Second

// Tracker maintains a cached total size for one session directory.
type Tracker struct {
	logger  *logging.Logger
	dir     string
	watcher *fsnotify.Watcher

	mu       sync.Mutex
	size     int64
	scanned  time.Time
	dirty    bool
	stopped  bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewTracker starts watching dir. The initial size is computed
// synchronously so the first status render has a real value.
func NewTracker(dir string, logger *logging.Logger) (*Tracker, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}

	t := &Tracker{
		logger:  logger,
		dir:     dir,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	t.size = scanDir(dir)
	t.scanned = time.Now()

	go t.watch()
	return t, nil
}

// Size returns the cached total. When the watcher has seen writes since
// the last scan and the throttle window has passed, the directory is
// rescanned first.
func (t *Tracker) Size() int64 {
	t.mu.Lock()
	needScan := t.dirty && time.Since(t.scanned) >= rescanInterval && !t.stopped
	if needScan {
		t.dirty = false
		t.scanned = time.Now()
	}
	t.mu.Unlock()

	if needScan {
		size := scanDir(t.dir)
		t.mu.Lock()
		t.size = size
		t.mu.Unlock()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.size
}

// Close stops the watcher. Safe to call more than once.
func (t *Tracker) Close() {
	t.stopOnce.Do(func() {
		t.mu.Lock()
		t.stopped = true
		t.mu.Unlock()
		t.watcher.Close()
		<-t.done
	})
}

func (t *Tracker) watch() {
	defer close(t.done)
	for {
		select {
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove) != 0 {
				t.mu.Lock()
				t.dirty = true
				t.mu.Unlock()
			}
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			t.logger.Debug("size watcher error", "error", err.Error())
		}
	}
}

func scanDir(dir string) int64 {
	var total int64
	_ = filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if info, err := d.Info(); err == nil {
			total += info.Size()
		}
		return nil
	})
	return total
}

// Human formats a byte count for display.
func Human(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	suffixes := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.1f %s", float64(size)/float64(div), suffixes[exp])
}
