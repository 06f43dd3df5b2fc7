package fswatch

import (
	"path/filepath"

	"github.com/rjeczalik/notify"

	"github.com/sidkik/davsync/pkg/errors"
)

// notifySource watches the root with a native recursive watch where the OS
// supports one.
type notifySource struct {
	infos chan notify.EventInfo
	done  <-chan struct{}

	eventsChan chan Event
}

func newNotifySource(root string, done <-chan struct{}) (*notifySource, error) {
	if _, err := getDirsToWatch(root); err != nil {
		return nil, err
	}

	// notify drops events if the channel isn't ready, so it must be buffered.
	infos := make(chan notify.EventInfo, 1024)
	if err := notify.Watch(filepath.Join(root, "..."), infos, notify.All); err != nil {
		return nil, errors.WithContext(err, "watch")
	}

	s := &notifySource{
		infos:      infos,
		done:       done,
		eventsChan: make(chan Event, 64),
	}
	go s.run()
	return s, nil
}

func (s *notifySource) events() <-chan Event {
	return s.eventsChan
}

// errors returns a channel that never receives. notify doesn't report errors
// after the watch starts.
func (s *notifySource) errors() <-chan error {
	return nil
}

func (s *notifySource) close() error {
	notify.Stop(s.infos)
	return nil
}

func (s *notifySource) run() {
	for {
		select {
		case info := <-s.infos:
			select {
			case s.eventsChan <- Event{Path: info.Path(), Op: translateNotifyOp(info.Event())}:
			case <-s.done:
				return
			}
		case <-s.done:
			return
		}
	}
}

func translateNotifyOp(ev notify.Event) string {
	switch {
	case ev&notify.Remove != 0:
		return OpRemove
	case ev&notify.Rename != 0:
		return OpRename
	case ev&notify.Create != 0:
		return OpCreate
	}
	return OpWrite
}
