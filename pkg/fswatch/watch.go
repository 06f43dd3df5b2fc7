package fswatch

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

var fs = afero.NewOsFs()

// The raw operations reported with events. They're informational only:
// consumers look at the current state of the path.
const (
	OpCreate = "create"
	OpWrite  = "write"
	OpRemove = "remove"
	OpRename = "rename"
)

// The supported backends.
const (
	BackendFsnotify = "fsnotify"
	BackendNotify   = "notify"
)

// Event is a change to a path under the watch root.
type Event struct {
	// Path is the absolute path that changed.
	Path string
	Op   string
}

// Watcher reports changes to every path under a directory, recursively.
type Watcher interface {
	Events() <-chan Event
	Errors() <-chan error
	Close() error
}

// Options configure a Watcher.
type Options struct {
	Backend string

	// StabilityThreshold is how long a path's size and modification time
	// must stay unchanged before its event is emitted. Zero disables the
	// check.
	StabilityThreshold time.Duration
	PollInterval       time.Duration

	// Clock defaults to the real clock.
	Clock clockwork.Clock
	Log   *logrus.Logger
}

// source is a watch backend. It sends raw events until `done` is closed.
type source interface {
	events() <-chan Event
	errors() <-chan error
	close() error
}

type watcher struct {
	// root is the directory the caller asked to watch, and realRoot is the
	// same directory with symlinks resolved. The backends watch realRoot.
	root, realRoot string

	source source
	stable *stabilizer
	clock  clockwork.Clock
	poll   time.Duration
	log    *logrus.Logger

	events chan Event
	done   chan struct{}

	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Watch starts watching `root` recursively. Events that exist when the
// watch starts aren't reported.
func Watch(root string, opts Options) (Watcher, error) {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 100 * time.Millisecond
	}

	root = filepath.Clean(root)
	realRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		if os.IsNotExist(err) {
			err = errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "start watch")
	}

	done := make(chan struct{})
	var src source
	switch opts.Backend {
	case "", BackendFsnotify:
		src, err = newFsnotifySource(realRoot, done, opts.Log)
	case BackendNotify:
		src, err = newNotifySource(realRoot, done)
	default:
		err = errors.New("unknown watch backend: " + opts.Backend)
	}
	if err != nil {
		return nil, errors.WithContext(err, "start watch")
	}

	w := &watcher{
		root:     root,
		realRoot: realRoot,
		source:   src,
		stable:   newStabilizer(opts.Clock, opts.StabilityThreshold),
		clock:    opts.Clock,
		poll:     opts.PollInterval,
		log:      opts.Log,
		events:   make(chan Event),
		done:     done,
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *watcher) Events() <-chan Event {
	return w.events
}

func (w *watcher) Errors() <-chan error {
	return w.source.errors()
}

// Close stops the watch. The events channel is closed once the watch has
// stopped.
func (w *watcher) Close() (err error) {
	w.closeOnce.Do(func() {
		close(w.done)
		err = w.source.close()
		w.wg.Wait()
	})
	return err
}

func (w *watcher) run() {
	defer w.wg.Done()
	defer close(w.events)

	ticker := w.clock.NewTicker(w.poll)
	defer ticker.Stop()

	for {
		var ready []Event
		select {
		case ev, ok := <-w.source.events():
			if !ok {
				return
			}
			ev.Path = w.underRoot(ev.Path)
			ready = w.stable.add(ev)
		case <-ticker.Chan():
			ready = w.stable.poll()
		case <-w.done:
			return
		}

		for _, ev := range ready {
			select {
			case w.events <- ev:
			case <-w.done:
				return
			}
		}
	}
}

// underRoot maps a path reported under realRoot onto the watch root, so that
// events for a symlinked root are reported through the link.
func (w *watcher) underRoot(path string) string {
	if w.root == w.realRoot {
		return path
	}

	rel, err := filepath.Rel(w.realRoot, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return path
	}
	return filepath.Join(w.root, rel)
}
