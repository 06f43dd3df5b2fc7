package watch

import (
	"context"
	"fmt"
	"io"
	goSync "sync"
	"time"

	"github.com/buger/goterm"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/sidkik/davsync/pkg/config"
	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/fswatch"
	"github.com/sidkik/davsync/pkg/livereload"
	"github.com/sidkik/davsync/pkg/metrics"
	"github.com/sidkik/davsync/pkg/remote"
	"github.com/sidkik/davsync/pkg/sync"
	"github.com/sidkik/davsync/pkg/webdav"
)

// State is the state of a watch session.
type State int

// The states of a watch session. Filtering, Syncing and Notifying are the
// states of a single change, and are only logged.
const (
	Idle State = iota
	Resolving
	Watching
	Filtering
	Syncing
	Notifying
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Resolving:
		return "resolving"
	case Watching:
		return "watching"
	case Filtering:
		return "filtering"
	case Syncing:
		return "syncing"
	case Notifying:
		return "notifying"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// reloadServer is the transport that reload notifications are sent over.
type reloadServer interface {
	livereload.Notifier
	Listen(port int) error
	Close() error
}

// Supervisor runs a watch session: it resolves the remote folder, watches
// the local directory, and syncs every change.
type Supervisor struct {
	cfg config.Sync
	log *logrus.Logger
	out io.Writer

	// These are overridden in mock tests.
	fs        afero.Fs
	newClient func(baseURL string, timeout time.Duration) webdav.Client
	watch     func(root string, opts fswatch.Options) (fswatch.Watcher, error)
	reload    reloadServer

	lock  goSync.Mutex
	state State

	// inFlight tracks the changes that are being handled.
	inFlight goSync.WaitGroup
}

// NewSupervisor creates a Supervisor for the given configuration.
// Status lines meant for the user are printed to `out`.
func NewSupervisor(cfg config.Sync, log *logrus.Logger, out io.Writer) *Supervisor {
	return &Supervisor{
		cfg:       cfg,
		log:       log,
		out:       out,
		fs:        afero.NewOsFs(),
		newClient: webdav.New,
		watch:     fswatch.Watch,
		reload:    livereload.NewServer(log),
	}
}

// State returns the current state of the session.
func (s *Supervisor) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state
}

func (s *Supervisor) setState(state State) {
	s.lock.Lock()
	s.state = state
	s.lock.Unlock()
	s.log.WithField("state", state).Debug("Watch session state changed")
}

// Run runs the session until `ctx` is cancelled. Errors while resolving the
// remote folder or starting the watch are returned. Errors while syncing
// individual changes are logged, and the session continues.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(Stopped)

	s.setState(Resolving)
	target, err := s.resolve(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(s.out, goterm.Color("Folder found: "+target.Folder, goterm.GREEN))

	mapper := sync.NewMapper(s.cfg.LocalPath, target, s.cfg.Rewrites)
	engine := sync.NewEngine(s.fs, s.newClient(target.Root(), s.cfg.Timeout),
		mapper, s.cfg.Concurrency, s.log)
	gate := livereload.NewGate(s.reload, mapper.TargetRoot(), s.cfg.Reload, s.log)

	if err := s.reload.Listen(s.cfg.Port); err != nil {
		return errors.WithContext(err, "start livereload server")
	}
	defer func() {
		if err := s.reload.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to stop livereload server")
		}
	}()

	reloadFiles := s.cfg.Reload.Sorted()
	s.log.Infof("Found %d files to trigger livereload", len(reloadFiles))
	for _, file := range reloadFiles {
		s.log.WithField("path", file).Debug("Livereload file")
	}

	watcher, err := s.watch(mapper.WatchRoot(), fswatch.Options{
		Backend:            s.cfg.Watcher,
		StabilityThreshold: s.cfg.StabilityThreshold,
		PollInterval:       s.cfg.PollInterval,
		Log:                s.log,
	})
	if err != nil {
		return errors.WithContext(err, "watch files")
	}

	// Stop watching before waiting for the in-flight changes, so that no new
	// ones are started. The livereload server is closed afterwards, so that
	// every change can still notify.
	defer s.inFlight.Wait()
	defer func() {
		if err := watcher.Close(); err != nil {
			s.log.WithError(err).Warn("Failed to stop file watcher")
		}
	}()

	s.setState(Watching)
	fmt.Fprintf(s.out, "Watching %s for changes\n", mapper.WatchRoot())

	// Changes are synced to completion even after shutdown starts.
	syncCtx := context.Background()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("Shutting down")
			return nil
		case ev, ok := <-watcher.Events():
			if !ok {
				return errors.New("file watcher stopped unexpectedly")
			}

			s.inFlight.Add(1)
			go func() {
				defer s.inFlight.Done()
				s.handleChange(syncCtx, engine, gate, ev)
			}()
		case err := <-watcher.Errors():
			s.log.WithError(err).Warn("File watcher error")
		}
	}
}

func (s *Supervisor) resolve(ctx context.Context) (sync.Target, error) {
	target, err := sync.NewTarget(s.cfg.Host, sync.Credentials{
		User:     s.cfg.UserName,
		Password: s.cfg.Password,
	})
	if err != nil {
		return sync.Target{}, err
	}

	folder, err := remote.Resolve(ctx, s.newClient(target.ListingURL(), s.cfg.Timeout),
		s.cfg.Cartridge, s.cfg.IgnoreRemotes)
	if err != nil {
		return sync.Target{}, errors.WithContext(err, "resolve remote folder")
	}
	return target.WithFolder(folder), nil
}

// handleChange syncs a single change, and notifies the browsers if needed.
func (s *Supervisor) handleChange(ctx context.Context, engine *sync.Engine,
	gate livereload.Gate, ev fswatch.Event) {

	rel := engine.Mapper().ToRelative(ev.Path)
	log := s.log.WithField("path", rel)
	log.WithField("state", Filtering).WithField("op", ev.Op).Debug("Handling change")

	if rel == "" {
		// Syncing the root would re-upload the whole directory.
		log.Debug("Ignoring change to the watch root")
		metrics.RecordEvent("ignored")
		return
	}

	if s.cfg.Ignored.Contains(rel) {
		log.Info("Ignoring change to ignored file")
		metrics.RecordEvent("ignored")
		return
	}

	log.WithField("state", Syncing).Debug("Syncing change")
	synced, err := engine.Sync(ctx, rel)
	if err != nil {
		log.WithError(err).Warn("Failed to sync change")
		metrics.RecordEvent("failed")
		return
	}
	metrics.RecordEvent("synced")

	log.WithField("state", Notifying).Debug("Notifying browsers")
	for _, dest := range synced {
		gate.MaybeNotify(dest)
	}
}
