package fswatch

import (
	"fmt"
	"os"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/errors"
)

// fsnotifySource watches every directory under the root with fsnotify.
// fsnotify doesn't watch directories recursively, so directories created
// after the watch starts are added as they appear.
type fsnotifySource struct {
	watcher *fsnotify.Watcher
	done    <-chan struct{}
	log     *logrus.Logger

	eventsChan chan Event
	errorsChan chan error
}

func newFsnotifySource(root string, done <-chan struct{}, log *logrus.Logger) (*fsnotifySource, error) {
	dirs, err := getDirsToWatch(root)
	if err != nil {
		return nil, errors.WithContext(err, "get paths")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WithContext(err, "create watcher")
	}

	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			// Close the watcher so that we release the file handlers for the
			// previously added paths.
			if err := watcher.Close(); err != nil {
				log.WithError(err).Warn("Failed to close file watcher")
			}

			return nil, errors.WithContext(err, fmt.Sprintf("watch %q", dir))
		}
	}

	s := &fsnotifySource{
		watcher:    watcher,
		done:       done,
		log:        log,
		eventsChan: make(chan Event, 64),
		errorsChan: make(chan error, 16),
	}
	go s.run()
	return s, nil
}

func (s *fsnotifySource) events() <-chan Event {
	return s.eventsChan
}

func (s *fsnotifySource) errors() <-chan error {
	return s.errorsChan
}

func (s *fsnotifySource) close() error {
	return s.watcher.Close()
}

func (s *fsnotifySource) run() {
	defer close(s.eventsChan)

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}

			op, ok := translateOp(ev.Op)
			if !ok {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				s.watchNewDir(ev.Name)
			}

			select {
			case s.eventsChan <- Event{Path: ev.Name, Op: op}:
			case <-s.done:
				return
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}

			select {
			case s.errorsChan <- err:
			default:
				s.log.WithError(err).Warn("File watcher error")
			}
		case <-s.done:
			return
		}
	}
}

// watchNewDir starts watching `path` and its subdirectories if it's a
// directory.
func (s *fsnotifySource) watchNewDir(path string) {
	fi, err := fs.Stat(path)
	if err != nil || !fi.IsDir() {
		return
	}

	dirs, err := getDirsToWatch(path)
	if err != nil {
		s.log.WithError(err).WithField("path", path).Warn("Failed to watch new directory")
		return
	}

	for _, dir := range dirs {
		if err := s.watcher.Add(dir); err != nil {
			s.log.WithError(err).WithField("path", dir).Warn("Failed to watch new directory")
		}
	}
}

// translateOp returns the operation for an fsnotify event. Events that only
// change permissions are dropped.
func translateOp(op fsnotify.Op) (string, bool) {
	switch {
	case op&fsnotify.Remove != 0:
		return OpRemove, true
	case op&fsnotify.Rename != 0:
		return OpRename, true
	case op&fsnotify.Create != 0:
		return OpCreate, true
	case op&fsnotify.Write != 0:
		return OpWrite, true
	}
	return "", false
}

// getDirsToWatch returns `root` and every directory beneath it.
func getDirsToWatch(root string) (dirs []string, err error) {
	fi, err := fs.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.FileNotFound{Path: root}
		}
		return nil, errors.WithContext(err, "stat")
	}
	if !fi.IsDir() {
		return nil, errors.NewFriendlyError("%q is not a directory", root)
	}

	err = afero.Walk(fs, root, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			return errors.WithContext(err, "walk error")
		}

		if fi.IsDir() {
			dirs = append(dirs, path)
		}
		return nil
	})
	return dirs, err
}
