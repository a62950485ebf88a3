// Package watcher monitors a results directory and reports result files once
// they have stopped changing.
package watcher

import (
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/crypto/blake2b"
)

// Event is a result file that landed and settled.
type Event struct {
	Path      string
	Hash      [32]byte
	Size      int64
	Timestamp time.Time
}

// Options configure a Watcher.
type Options struct {
	// Match selects the file names to report. Nil reports every file.
	Match func(name string) bool

	// Debounce is how long a file must stay unchanged before it is reported.
	Debounce time.Duration

	// Tick is how often settled files are checked for. Defaults to Debounce/2.
	Tick time.Duration
}

// Watcher monitors one directory.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	dir       string
	opts      Options

	// path -> last change
	state   map[string]time.Time
	stateMu sync.RWMutex

	events chan Event
	errors chan error

	done chan struct{}
	wg   sync.WaitGroup
}

// New creates a watcher for dir. Files already present when Start is called
// are not reported.
func New(dir string, opts Options) (*Watcher, error) {
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.Tick <= 0 {
		opts.Tick = opts.Debounce / 2
	}
	if opts.Match == nil {
		opts.Match = func(string) bool { return true }
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	return &Watcher{
		fsWatcher: fsWatcher,
		dir:       dir,
		opts:      opts,
		state:     make(map[string]time.Time),
		events:    make(chan Event, 100),
		errors:    make(chan error, 10),
		done:      make(chan struct{}),
	}, nil
}

// Events returns the channel of settled result files.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Errors returns the channel of watch and hashing errors.
func (w *Watcher) Errors() <-chan error {
	return w.errors
}

// Dir returns the absolute watched directory once Start has run.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start begins watching.
func (w *Watcher) Start() error {
	abs, err := filepath.Abs(w.dir)
	if err != nil {
		return err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "watch", Path: abs, Err: os.ErrInvalid}
	}
	if err := w.fsWatcher.Add(abs); err != nil {
		return err
	}
	w.dir = abs

	w.wg.Add(2)
	go w.eventLoop()
	go w.debounceLoop()
	return nil
}

// Stop shuts the watcher down and closes its channels.
func (w *Watcher) Stop() error {
	close(w.done)
	w.wg.Wait()
	close(w.events)
	close(w.errors)
	return w.fsWatcher.Close()
}

func (w *Watcher) eventLoop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if !w.opts.Match(filepath.Base(event.Name)) {
				continue
			}
			info, err := os.Stat(event.Name)
			if err != nil || info.IsDir() {
				continue
			}

			w.stateMu.Lock()
			w.state[event.Name] = time.Now()
			w.stateMu.Unlock()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.sendErr(err)
		}
	}
}

func (w *Watcher) debounceLoop() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.opts.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-w.done:
			return
		case now := <-ticker.C:
			w.checkSettled(now)
		}
	}
}

// checkSettled reports files unchanged for the debounce interval. The lock
// is released while hashing.
func (w *Watcher) checkSettled(now time.Time) {
	threshold := now.Add(-w.opts.Debounce)

	settled := make(map[string]time.Time)
	w.stateMu.RLock()
	for path, changed := range w.state {
		if changed.Before(threshold) {
			settled[path] = changed
		}
	}
	w.stateMu.RUnlock()

	for path, changed := range settled {
		hash, size, err := HashFile(path)

		w.stateMu.Lock()
		current, tracked := w.state[path]
		if !tracked || current != changed {
			// Removed or written again while hashing.
			w.stateMu.Unlock()
			continue
		}
		if err != nil {
			delete(w.state, path)
			w.stateMu.Unlock()
			w.sendErr(err)
			continue
		}
		select {
		case w.events <- Event{Path: path, Hash: hash, Size: size, Timestamp: now}:
			delete(w.state, path)
		default:
			// Full; retry on the next tick.
		}
		w.stateMu.Unlock()
	}
}

func (w *Watcher) sendErr(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// HashFile returns the blake2b-256 digest and size of a file.
func HashFile(path string) ([32]byte, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return [32]byte{}, 0, err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return [32]byte{}, 0, err
	}
	size, err := io.Copy(h, f)
	if err != nil {
		return [32]byte{}, 0, err
	}

	var hash [32]byte
	copy(hash[:], h.Sum(nil))
	return hash, size, nil
}

// Pending returns the number of files waiting to settle.
func (w *Watcher) Pending() int {
	w.stateMu.RLock()
	defer w.stateMu.RUnlock()
	return len(w.state)
}
