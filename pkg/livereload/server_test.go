package livereload

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	logrusTest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func connect(t *testing.T, addr string) *websocket.Conn {
	conn, err := websocket.Dial(fmt.Sprintf("ws://%s/livereload", addr), "", "http://localhost/")
	require.NoError(t, err)

	require.NoError(t, websocket.JSON.Send(conn, message{
		Command:   "hello",
		Protocols: []string{protocolV7},
	}))

	var hello message
	require.NoError(t, websocket.JSON.Receive(conn, &hello))
	assert.Equal(t, "hello", hello.Command)
	assert.Equal(t, []string{protocolV7}, hello.Protocols)
	return conn
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	log, _ := logrusTest.NewNullLogger()
	server := NewServer(log)
	httpServer := httptest.NewServer(server.Handler())
	t.Cleanup(func() {
		server.Close()
		httpServer.Close()
	})
	return server, httpServer
}

func TestReload(t *testing.T) {
	server, httpServer := newTestServer(t)
	conn := connect(t, httpServer.Listener.Addr().String())
	defer conn.Close()

	server.Changed([]string{"js/app.js"})

	var reload message
	require.NoError(t, websocket.JSON.Receive(conn, &reload))
	assert.Equal(t, message{
		Command: "reload",
		Path:    "js/app.js",
		LiveCSS: true,
		LiveImg: true,
	}, reload)
}

func TestChangedEndpoint(t *testing.T) {
	_, httpServer := newTestServer(t)
	conn := connect(t, httpServer.Listener.Addr().String())
	defer conn.Close()

	resp, err := http.Post(httpServer.URL+"/changed", "application/json",
		strings.NewReader(`{"files": ["a.css"]}`))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Clients int      `json:"clients"`
		Files   []string `json:"files"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Clients)
	assert.Equal(t, []string{"a.css"}, body.Files)

	var reload message
	require.NoError(t, websocket.JSON.Receive(conn, &reload))
	assert.Equal(t, "a.css", reload.Path)

	resp, err = http.Get(httpServer.URL + "/changed?files=b.js,c.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	for _, exp := range []string{"b.js", "c.js"} {
		require.NoError(t, websocket.JSON.Receive(conn, &reload))
		assert.Equal(t, exp, reload.Path)
	}

	resp, err = http.Post(httpServer.URL+"/changed", "application/json", strings.NewReader("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestWelcome(t *testing.T) {
	_, httpServer := newTestServer(t)

	resp, err := http.Get(httpServer.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "Welcome", body["tinylr"])
	assert.Equal(t, "development", body["version"])

	resp, err = http.Get(httpServer.URL + "/livereload.js")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListenAndClose(t *testing.T) {
	log, _ := logrusTest.NewNullLogger()
	server := NewServer(log)
	assert.Equal(t, 0, server.Port())

	require.NoError(t, server.Listen(0))
	port := server.Port()
	assert.NotZero(t, port)

	conn := connect(t, fmt.Sprintf("127.0.0.1:%d", port))
	defer conn.Close()

	require.NoError(t, server.Close())

	// Closing the server disconnects the browsers.
	var msg message
	assert.Error(t, websocket.JSON.Receive(conn, &msg))

	_, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/", port))
	assert.Error(t, err)
}

func TestListenPortInUse(t *testing.T) {
	log, _ := logrusTest.NewNullLogger()
	first := NewServer(log)
	require.NoError(t, first.Listen(0))
	defer first.Close()

	second := NewServer(log)
	assert.Error(t, second.Listen(first.Port()))
}
