package sync

import (
	"context"
	"io"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	goSync "sync"
	"testing"

	"github.com/sirupsen/logrus"
	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	davServer "golang.org/x/net/webdav"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/webdav"
	"github.com/sidkik/davsync/pkg/webdav/mocks"
)

var testTarget = Target{
	BaseURL:     "https://h",
	Credentials: Credentials{User: "u", Password: "p"},
	Folder:      "Cart",
}

func newTestEngine(fs afero.Fs, client webdav.Client) (*Engine, *logrusTest.Hook) {
	logger, hook := logrusTest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	mapper := NewMapper("/w", testTarget, nil)
	return NewEngine(fs, client, mapper, 2, logger), hook
}

func writeFile(t *testing.T, fs afero.Fs, path, contents string) {
	require.NoError(t, fs.MkdirAll(path[:strings.LastIndex(path, "/")], 0755))
	require.NoError(t, afero.WriteFile(fs, path, []byte(contents), 0644))
}

// readBody returns a mock Run function that stores the uploaded contents.
func readBody(t *testing.T, contents map[string]string) func(mock.Arguments) {
	var lock goSync.Mutex
	return func(args mock.Arguments) {
		body, err := ioutil.ReadAll(args.Get(2).(io.Reader))
		assert.NoError(t, err)

		lock.Lock()
		contents[args.String(1)] = string(body)
		lock.Unlock()
	}
}

func TestPlan(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/w/a.js", "a")
	require.NoError(t, fs.MkdirAll("/w/src", 0755))

	engine, _ := newTestEngine(fs, &mocks.Client{})

	op, err := engine.Plan("a.js")
	require.NoError(t, err)
	assert.Equal(t, Upload{LocalPath: "/w/a.js", RemotePath: "https://u:p@h/Cart/a.js"}, op)

	op, err = engine.Plan("src")
	require.NoError(t, err)
	assert.Equal(t, CreateCollection{LocalPath: "/w/src", RemotePath: "https://u:p@h/Cart/src"}, op)

	op, err = engine.Plan("b.js")
	require.NoError(t, err)
	assert.Equal(t, Delete{RemotePath: "https://u:p@h/Cart/b.js"}, op)
}

func TestPlanMissingRoot(t *testing.T) {
	engine, _ := newTestEngine(afero.NewMemMapFs(), &mocks.Client{})

	// The watch root itself disappearing must never delete the whole target.
	_, err := engine.Plan("")
	require.Error(t, err)
	statErr, ok := err.(errors.StatError)
	require.True(t, ok)
	assert.Equal(t, "/w", statErr.Path)
	assert.True(t, os.IsNotExist(statErr.Err))
}

func TestPlanSymlinks(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0755))
	require.NoError(t, ioutil.WriteFile(filepath.Join(root, "src", "a.js"), []byte("a"), 0644))
	require.NoError(t, os.Symlink(filepath.Join(root, "src", "a.js"), filepath.Join(root, "file-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "src"), filepath.Join(root, "dir-link")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	logger, _ := logrusTest.NewNullLogger()
	engine := NewEngine(afero.NewOsFs(), &mocks.Client{}, NewMapper(root, testTarget, nil), 2, logger)

	op, err := engine.Plan("file-link")
	require.NoError(t, err)
	assert.Equal(t, Upload{
		LocalPath:  filepath.Join(root, "file-link"),
		RemotePath: "https://u:p@h/Cart/file-link",
	}, op)

	for _, rel := range []string{"dir-link", "dangling"} {
		_, err := engine.Plan(rel)
		statErr, ok := err.(errors.StatError)
		require.True(t, ok, rel)
		assert.Equal(t, filepath.Join(root, rel), statErr.Path)
	}

	_, err = engine.Plan("dir-link")
	assert.Contains(t, err.Error(), "symlink doesn't point to a regular file")
}

func TestSyncUpload(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		putErr    error
		expSynced []string
		expErr    error
	}{
		{
			name:      "created",
			status:    http.StatusCreated,
			expSynced: []string{"https://u:p@h/Cart/a.js"},
		},
		{
			name:      "overwritten",
			status:    http.StatusNoContent,
			expSynced: []string{"https://u:p@h/Cart/a.js"},
		},
		{
			name:   "rejected",
			status: http.StatusConflict,
			expErr: errors.RemoteRejection{
				Method:     "PUT",
				URL:        "https://u:xxxxx@h/Cart/a.js",
				StatusCode: http.StatusConflict,
			},
		},
		{
			name:   "transport error",
			putErr: errors.TransportError{Method: "PUT", Err: assert.AnError},
			expErr: errors.TransportError{Method: "PUT", Err: assert.AnError},
		},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			fs := afero.NewMemMapFs()
			writeFile(t, fs, "/w/a.js", "console.log('a');")

			uploaded := map[string]string{}
			client := &mocks.Client{}
			client.On("Put", mock.Anything, "https://u:p@h/Cart/a.js", mock.Anything, int64(17)).
				Run(readBody(t, uploaded)).
				Return(test.status, test.putErr).Once()

			engine, _ := newTestEngine(fs, client)
			synced, err := engine.Sync(context.Background(), "a.js")
			assert.Equal(t, test.expErr, err)
			assert.Equal(t, test.expSynced, synced)
			assert.Equal(t, "console.log('a');", uploaded["https://u:p@h/Cart/a.js"])
			client.AssertExpectations(t)
		})
	}
}

func TestSyncUploadFileChanged(t *testing.T) {
	const original = "console.log('a');"

	t.Run("grown", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/w/a.js", original)

		uploaded := map[string]string{}
		client := &mocks.Client{}
		client.On("Put", mock.Anything, "https://u:p@h/Cart/a.js", mock.Anything, int64(len(original))).
			Run(func(args mock.Arguments) {
				writeFile(t, fs, "/w/a.js", original+"console.log('b');")
				readBody(t, uploaded)(args)
			}).
			Return(http.StatusCreated, nil).Once()

		engine, _ := newTestEngine(fs, client)
		_, err := engine.Sync(context.Background(), "a.js")
		assert.NoError(t, err)

		// Only the bytes that existed when the upload started are sent.
		assert.Equal(t, original, uploaded["https://u:p@h/Cart/a.js"])
	})

	t.Run("shrunk", func(t *testing.T) {
		fs := afero.NewMemMapFs()
		writeFile(t, fs, "/w/a.js", original)

		putErr := errors.TransportError{Method: "PUT", Err: assert.AnError}
		client := &mocks.Client{}
		client.On("Put", mock.Anything, "https://u:p@h/Cart/a.js", mock.Anything, int64(len(original))).
			Run(func(mock.Arguments) { writeFile(t, fs, "/w/a.js", "a") }).
			Return(0, putErr).Once()

		engine, hook := newTestEngine(fs, client)
		_, err := engine.Sync(context.Background(), "a.js")
		assert.Equal(t, errors.WithContext(putErr, "file changed while it was being uploaded"), err)

		var messages []string
		for _, entry := range hook.AllEntries() {
			messages = append(messages, entry.Message)
		}
		assert.Contains(t, messages, "File changed while it was being uploaded")
	})
}

func TestSyncDelete(t *testing.T) {
	// Deletions succeed whatever the server responds.
	for _, status := range []int{http.StatusNoContent, http.StatusNotFound, http.StatusInternalServerError} {
		client := &mocks.Client{}
		client.On("Delete", mock.Anything, "https://u:p@h/Cart/b.js").Return(status, nil).Once()

		engine, hook := newTestEngine(afero.NewMemMapFs(), client)
		synced, err := engine.Sync(context.Background(), "b.js")
		assert.NoError(t, err)
		assert.Equal(t, []string{"https://u:p@h/Cart/b.js"}, synced)
		client.AssertExpectations(t)

		entry := hook.LastEntry()
		require.NotNil(t, entry)
		assert.Equal(t, status, entry.Data["status"])
		assert.Equal(t, "https://u:xxxxx@h/Cart/b.js", entry.Data["path"])
	}
}

func TestSyncDeleteTransportError(t *testing.T) {
	client := &mocks.Client{}
	client.On("Delete", mock.Anything, "https://u:p@h/Cart/b.js").Return(0, assert.AnError).Once()

	engine, _ := newTestEngine(afero.NewMemMapFs(), client)
	synced, err := engine.Sync(context.Background(), "b.js")
	assert.Equal(t, assert.AnError, err)
	assert.Nil(t, synced)
}

func TestSyncDirectory(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/w/src/index.js", "index")
	writeFile(t, fs, "/w/src/app/app.js", "app")
	writeFile(t, fs, "/w/src/app/views/view.isml", "view")
	writeFile(t, fs, "/w/src/app/views/bad.isml", "bad")
	require.NoError(t, fs.MkdirAll("/w/src/empty", 0755))

	uploaded := map[string]string{}
	record := readBody(t, uploaded)
	client := &mocks.Client{}

	// MKCOL results never affect the sync.
	client.On("Mkcol", mock.Anything, "https://u:p@h/Cart/src").Return(http.StatusMethodNotAllowed, nil).Once()
	client.On("Mkcol", mock.Anything, "https://u:p@h/Cart/src/app").Return(http.StatusCreated, nil).Once()
	client.On("Mkcol", mock.Anything, "https://u:p@h/Cart/src/app/views").Return(0, assert.AnError).Once()
	client.On("Mkcol", mock.Anything, "https://u:p@h/Cart/src/empty").Return(http.StatusCreated, nil).Once()

	for _, path := range []string{"src/index.js", "src/app/app.js", "src/app/views/view.isml"} {
		client.On("Put", mock.Anything, "https://u:p@h/Cart/"+path, mock.Anything, mock.Anything).
			Run(record).Return(http.StatusCreated, nil).Once()
	}
	client.On("Put", mock.Anything, "https://u:p@h/Cart/src/app/views/bad.isml", mock.Anything, mock.Anything).
		Return(http.StatusForbidden, nil).Once()

	engine, hook := newTestEngine(fs, client)
	synced, err := engine.Sync(context.Background(), "src")
	require.NoError(t, err)

	// The directory comes first, followed by the files in walk order.
	assert.Equal(t, []string{
		"https://u:p@h/Cart/src",
		"https://u:p@h/Cart/src/app/app.js",
		"https://u:p@h/Cart/src/app/views/view.isml",
		"https://u:p@h/Cart/src/index.js",
	}, synced)
	assert.Equal(t, map[string]string{
		"https://u:p@h/Cart/src/index.js":            "index",
		"https://u:p@h/Cart/src/app/app.js":          "app",
		"https://u:p@h/Cart/src/app/views/view.isml": "view",
	}, uploaded)
	client.AssertExpectations(t)

	var warnings []string
	for _, entry := range hook.AllEntries() {
		if entry.Level == logrus.WarnLevel {
			warnings = append(warnings, entry.Message)
		}
	}
	sort.Strings(warnings)
	assert.Equal(t, []string{
		"Failed to create directory",
		"Failed to sync file",
		"Server rejected the upload",
	}, warnings)
}

func TestSyncAgainstWebDAVServer(t *testing.T) {
	davFs := davServer.NewMemFS()
	server := httptest.NewServer(&davServer.Handler{
		FileSystem: davFs,
		LockSystem: davServer.NewMemLS(),
	})
	defer server.Close()

	ctx := context.Background()
	require.NoError(t, davFs.Mkdir(ctx, "/Cart", 0755))

	fs := afero.NewMemMapFs()
	writeFile(t, fs, "/w/a.js", "first")
	writeFile(t, fs, "/w/src/app/b.js", "nested")

	logger, _ := logrusTest.NewNullLogger()
	target, err := NewTarget(server.URL, Credentials{User: "u", Password: "p"})
	require.NoError(t, err)
	target = target.WithFolder("Cart")
	engine := NewEngine(fs, webdav.New(target.Root(), 0), NewMapper("/w", target, nil), 0, logger)

	readRemote := func(path string) string {
		f, err := davFs.OpenFile(ctx, path, os.O_RDONLY, 0)
		require.NoError(t, err)
		defer f.Close()
		contents, err := ioutil.ReadAll(f)
		require.NoError(t, err)
		return string(contents)
	}

	_, err = engine.Sync(ctx, "a.js")
	require.NoError(t, err)
	assert.Equal(t, "first", readRemote("/Cart/a.js"))

	// Files are always overwritten completely.
	writeFile(t, fs, "/w/a.js", "second")
	_, err = engine.Sync(ctx, "a.js")
	require.NoError(t, err)
	assert.Equal(t, "second", readRemote("/Cart/a.js"))

	synced, err := engine.Sync(ctx, "src")
	require.NoError(t, err)
	assert.Len(t, synced, 2)
	assert.Equal(t, "nested", readRemote("/Cart/src/app/b.js"))

	require.NoError(t, fs.Remove("/w/a.js"))
	_, err = engine.Sync(ctx, "a.js")
	require.NoError(t, err)
	_, err = davFs.Stat(ctx, "/Cart/a.js")
	assert.True(t, os.IsNotExist(err))

	// A PUT into a missing collection is rejected by the server.
	writeFile(t, fs, "/w/missing/c.js", "c")
	_, err = engine.Sync(ctx, "missing/c.js")
	rejection, ok := err.(errors.RemoteRejection)
	require.True(t, ok)
	assert.Contains(t, []int{http.StatusConflict, http.StatusNotFound}, rejection.StatusCode)
}
