package fswatch

import (
	"os"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/afero"
)

// stabilizer holds back events until the path stops changing, so that files
// aren't synced while they're still being written.
type stabilizer struct {
	clock     clockwork.Clock
	threshold time.Duration
	pending   map[string]*pendingPath
}

type pendingPath struct {
	event Event
	state pathState
	since time.Time
}

type pathState struct {
	exists  bool
	size    int64
	modTime time.Time
}

func newStabilizer(clock clockwork.Clock, threshold time.Duration) *stabilizer {
	return &stabilizer{
		clock:     clock,
		threshold: threshold,
		pending:   map[string]*pendingPath{},
	}
}

// add records a raw event, and returns the events that are ready now.
// Removals are ready immediately.
func (s *stabilizer) add(ev Event) []Event {
	state := statPath(ev.Path)
	if s.threshold <= 0 || !state.exists {
		delete(s.pending, ev.Path)
		return []Event{ev}
	}

	if p, ok := s.pending[ev.Path]; ok {
		p.event = ev
		if p.state != state {
			p.state = state
			p.since = s.clock.Now()
		}
		return nil
	}

	s.pending[ev.Path] = &pendingPath{event: ev, state: state, since: s.clock.Now()}
	return nil
}

// poll checks every pending path, and returns the events for the paths that
// haven't changed for the threshold.
func (s *stabilizer) poll() []Event {
	now := s.clock.Now()

	var ready []Event
	for path, p := range s.pending {
		state := statPath(path)
		switch {
		case !state.exists:
			// Removed while it was being written.
			delete(s.pending, path)
			ready = append(ready, Event{Path: path, Op: OpRemove})
		case state != p.state:
			p.state = state
			p.since = now
		case now.Sub(p.since) >= s.threshold:
			delete(s.pending, path)
			ready = append(ready, p.event)
		}
	}
	return ready
}

func statPath(path string) pathState {
	fi, err := lstat(path)
	if err != nil {
		// Stat failures other than the path not existing are reported by
		// the sync.
		return pathState{exists: !os.IsNotExist(err)}
	}
	return pathState{exists: true, size: fi.Size(), modTime: fi.ModTime()}
}

func lstat(path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(path)
}
