package livereload

import (
	"github.com/sirupsen/logrus"

	"github.com/sidkik/davsync/pkg/metrics"
	"github.com/sidkik/davsync/pkg/sync"
)

// PathSet is a set of paths relative to the watch root.
type PathSet interface {
	Contains(path string) bool
}

// Gate notifies the Notifier when a synced file is one of the files that
// should trigger a browser reload.
type Gate struct {
	notifier   Notifier
	targetRoot string
	reload     PathSet
	log        *logrus.Logger
}

// NewGate creates a Gate for files synced under targetRoot.
func NewGate(notifier Notifier, targetRoot string, reload PathSet, log *logrus.Logger) Gate {
	return Gate{
		notifier:   notifier,
		targetRoot: targetRoot,
		reload:     reload,
		log:        log,
	}
}

// MaybeNotify sends a notification for exactly the given remote path if its
// path relative to the target root is in the reload set. It returns whether
// a notification was sent.
func (g Gate) MaybeNotify(dest string) bool {
	rel, ok := sync.RelativeToRoot(dest, g.targetRoot)
	if !ok || rel == "" || !g.reload.Contains(rel) {
		return false
	}

	g.log.WithField("path", rel).Info("Reloading browsers")
	g.notifier.Changed([]string{rel})
	metrics.RecordReload()
	return true
}
