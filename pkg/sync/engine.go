package sync

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/metrics"
	"github.com/sidkik/davsync/pkg/webdav"
)

// DefaultConcurrency is the number of uploads that run in parallel when a
// directory is synced.
const DefaultConcurrency = 8

// Engine mirrors changes to local paths onto the remote target. It holds no
// state between calls to Sync, so concurrent syncs are independent.
type Engine struct {
	fs          afero.Fs
	client      webdav.Client
	mapper      Mapper
	concurrency int
	log         *logrus.Logger
}

// NewEngine returns an Engine that reads local files from fs.
func NewEngine(fs afero.Fs, client webdav.Client, mapper Mapper,
	concurrency int, log *logrus.Logger) *Engine {

	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Engine{
		fs:          fs,
		client:      client,
		mapper:      mapper,
		concurrency: concurrency,
		log:         log,
	}
}

// Mapper returns the path mapper used by the engine.
func (e *Engine) Mapper() Mapper {
	return e.mapper
}

// Sync makes the remote copy of `rel` match the local filesystem. It returns
// the destination URLs that were successfully acted upon: the destination of
// `rel` itself, followed by the destination of every descendant file that
// was uploaded if `rel` is a directory.
// Failures to sync descendants are logged, and don't fail the sync of the
// directory.
func (e *Engine) Sync(ctx context.Context, rel string) ([]string, error) {
	op, err := e.Plan(rel)
	if err != nil {
		return nil, err
	}

	if mkcol, ok := op.(CreateCollection); ok {
		return e.syncDirectory(ctx, mkcol), nil
	}

	if err := e.execute(ctx, op); err != nil {
		return nil, err
	}
	return []string{op.Destination()}, nil
}

// Plan decides which remote operation is needed for `rel` based on the
// current state of the local filesystem.
func (e *Engine) Plan(rel string) (Operation, error) {
	localPath := e.mapper.ToLocal(rel)
	dest := e.mapper.ToRemoteURL(rel)

	fi, err := lstat(e.fs, localPath)
	if err != nil {
		if os.IsNotExist(err) && dest != e.mapper.TargetRoot() {
			return Delete{RemotePath: dest}, nil
		}
		return nil, errors.StatError{Path: localPath, Err: err}
	}

	switch {
	case fi.IsDir():
		return CreateCollection{LocalPath: localPath, RemotePath: dest}, nil
	case fi.Mode().IsRegular():
		return Upload{LocalPath: localPath, RemotePath: dest}, nil
	case fi.Mode()&os.ModeSymlink != 0:
		// The contents of the symlink's target are uploaded.
		target, err := e.fs.Stat(localPath)
		if err != nil {
			return nil, errors.StatError{Path: localPath, Err: errors.WithContext(err, "follow symlink")}
		}
		if !target.Mode().IsRegular() {
			return nil, errors.StatError{
				Path: localPath,
				Err:  errors.New("symlink doesn't point to a regular file: " + target.Mode().String()),
			}
		}
		return Upload{LocalPath: localPath, RemotePath: dest}, nil
	default:
		return nil, errors.StatError{
			Path: localPath,
			Err:  errors.New("not a regular file or directory: " + fi.Mode().String()),
		}
	}
}

func (e *Engine) execute(ctx context.Context, op Operation) error {
	switch op := op.(type) {
	case Upload:
		return e.upload(ctx, op)
	case Delete:
		return e.delete(ctx, op)
	case CreateCollection:
		e.createCollection(ctx, op)
		return nil
	default:
		return errors.New("unknown operation")
	}
}

func (e *Engine) upload(ctx context.Context, op Upload) error {
	log := e.log.WithField("path", webdav.Redact(op.RemotePath))

	f, err := e.fs.Open(op.LocalPath)
	if err != nil {
		metrics.RecordOperation(op.Kind(), metrics.OutcomeFailed)
		return errors.StatError{Path: op.LocalPath, Err: err}
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		metrics.RecordOperation(op.Kind(), metrics.OutcomeFailed)
		return errors.StatError{Path: op.LocalPath, Err: err}
	}

	// The request's length is fixed before the body is read, so only the
	// bytes that existed at the stat are sent. Later writes trigger their own
	// sync.
	status, err := e.client.Put(ctx, op.RemotePath, io.LimitReader(f, fi.Size()), fi.Size())
	if err != nil {
		metrics.RecordOperation(op.Kind(), metrics.OutcomeFailed)
		if current, statErr := e.fs.Stat(op.LocalPath); statErr == nil && current.Size() != fi.Size() {
			log.WithFields(logrus.Fields{
				"size":        fi.Size(),
				"currentSize": current.Size(),
			}).Warn("File changed while it was being uploaded")
			return errors.WithContext(err, "file changed while it was being uploaded")
		}
		return err
	}

	if status < 200 || status >= 300 {
		metrics.RecordOperation(op.Kind(), metrics.OutcomeRejected)
		log.WithField("status", status).Warn("Server rejected the upload")
		return errors.RemoteRejection{
			Method:     "PUT",
			URL:        webdav.Redact(op.RemotePath),
			StatusCode: status,
		}
	}

	metrics.RecordOperation(op.Kind(), metrics.OutcomeSuccess)
	metrics.RecordUpload(fi.Size())
	log.WithField("status", status).Info("Uploaded file")
	return nil
}

// delete removes the remote entry. Any response counts as a success, since
// the local file is gone either way.
func (e *Engine) delete(ctx context.Context, op Delete) error {
	status, err := e.client.Delete(ctx, op.RemotePath)
	if err != nil {
		metrics.RecordOperation(op.Kind(), metrics.OutcomeFailed)
		return err
	}

	metrics.RecordOperation(op.Kind(), metrics.OutcomeSuccess)
	e.log.WithFields(logrus.Fields{
		"path":   webdav.Redact(op.RemotePath),
		"status": status,
	}).Info("Local path no longer exists. Deleted it from the server")
	return nil
}

// createCollection creates the remote directory. The directory commonly
// exists already, so failures are only logged.
func (e *Engine) createCollection(ctx context.Context, op CreateCollection) {
	log := e.log.WithField("path", webdav.Redact(op.RemotePath))

	status, err := e.client.Mkcol(ctx, op.RemotePath)
	switch {
	case err != nil:
		metrics.RecordOperation(op.Kind(), metrics.OutcomeFailed)
		log.WithError(err).Warn("Failed to create directory")
	case status == 200 || status == 201:
		metrics.RecordOperation(op.Kind(), metrics.OutcomeSuccess)
		log.Info("Created directory")
	default:
		metrics.RecordOperation(op.Kind(), metrics.OutcomeRejected)
		log.WithField("status", status).Debug("Directory was not created")
	}
}

// syncDirectory creates the remote directory and then syncs every entry under
// it. Subdirectories are created in walk order, so that parents always exist
// before their children. Files are then uploaded concurrently, and
// syncDirectory returns once all of them are done.
func (e *Engine) syncDirectory(ctx context.Context, op CreateCollection) []string {
	e.createCollection(ctx, op)

	var files []string
	walkErr := afero.Walk(e.fs, op.LocalPath, func(path string, fi os.FileInfo, err error) error {
		if err != nil {
			e.log.WithError(err).WithField("path", path).Warn("Failed to read local path")
			return nil
		}

		if path == op.LocalPath {
			return nil
		}

		rel := e.mapper.ToRelative(path)
		if fi.IsDir() {
			e.createCollection(ctx, CreateCollection{
				LocalPath:  path,
				RemotePath: e.mapper.ToRemoteURL(rel),
			})
			return nil
		}

		files = append(files, rel)
		return nil
	})
	if walkErr != nil {
		e.log.WithError(walkErr).WithField("path", op.LocalPath).Warn(
			"Failed to walk directory. Some files may not have been synced")
	}

	synced := make([]string, len(files))
	var group errgroup.Group
	group.SetLimit(e.concurrency)
	for i, rel := range files {
		i, rel := i, rel
		group.Go(func() error {
			dest, err := e.syncEntry(ctx, rel)
			if err != nil {
				e.log.WithError(err).WithField("path", rel).Warn("Failed to sync file")
				return nil
			}
			synced[i] = dest
			return nil
		})
	}
	group.Wait()

	result := []string{op.RemotePath}
	for _, dest := range synced {
		if dest != "" {
			result = append(result, dest)
		}
	}
	return result
}

// syncEntry syncs a single path found while walking a directory. The path is
// planned again since it may have changed since the walk.
func (e *Engine) syncEntry(ctx context.Context, rel string) (string, error) {
	op, err := e.Plan(rel)
	if err != nil {
		return "", err
	}

	if err := e.execute(ctx, op); err != nil {
		return "", err
	}
	return op.Destination(), nil
}

// lstat reads the metadata of the path without following symlinks, if the
// filesystem supports it.
func lstat(fs afero.Fs, path string) (os.FileInfo, error) {
	if lstater, ok := fs.(afero.Lstater); ok {
		fi, _, err := lstater.LstatIfPossible(path)
		return fi, err
	}
	return fs.Stat(filepath.Clean(path))
}
