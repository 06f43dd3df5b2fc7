package livereload

//go:generate mockery -name Notifier

import (
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/websocket"

	"github.com/sidkik/davsync/pkg/errors"
	"github.com/sidkik/davsync/pkg/metrics"
	"github.com/sidkik/davsync/pkg/version"
)

// DefaultPort is the port livereload browser extensions connect to.
const DefaultPort = 35729

// protocolV7 is the livereload protocol version spoken by the server.
const protocolV7 = "http://livereload.com/protocols/official-7"

// Notifier is the sink for reload notifications.
type Notifier interface {
	// Changed tells connected browsers that the given files changed.
	Changed(files []string)
}

// message is a livereload protocol message.
type message struct {
	Command   string   `json:"command"`
	Protocols []string `json:"protocols,omitempty"`
	Path      string   `json:"path,omitempty"`
	LiveCSS   bool     `json:"liveCSS,omitempty"`
	LiveImg   bool     `json:"liveImg,omitempty"`
	URL       string   `json:"url,omitempty"`

	ServerName string `json:"serverName,omitempty"`
}

type client struct {
	conn *websocket.Conn
	lock sync.Mutex
}

func (c *client) send(msg message) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	return websocket.JSON.Send(c.conn, msg)
}

// Server is a livereload server compatible with tiny-lr. Browsers connect to
// it over a websocket, and are told to reload whenever Changed is called.
type Server struct {
	log *logrus.Logger

	httpServer *http.Server
	listener   net.Listener

	lock    sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

// NewServer creates a Server. It doesn't listen until Listen is called.
func NewServer(log *logrus.Logger) *Server {
	s := &Server{
		log:     log,
		clients: map[*client]struct{}{},
	}
	s.httpServer = &http.Server{Handler: s.Handler()}
	return s
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleWelcome)
	mux.HandleFunc("/changed", s.handleChanged)
	mux.Handle("/livereload", websocket.Server{
		// Pages from any origin may connect.
		Handshake: func(*websocket.Config, *http.Request) error { return nil },
		Handler:   s.handleWebsocket,
	})
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

// Listen starts serving on the given port. A port of 0 picks a free port.
func (s *Server) Listen(port int) error {
	listener, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return errors.WithContext(err, "listen")
	}
	s.listener = listener

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("Livereload server stopped")
		}
	}()
	s.log.WithField("port", s.Port()).Info("Livereload server started")
	return nil
}

// Port returns the port the server is listening on, or 0 if it isn't
// listening.
func (s *Server) Port() int {
	if s.listener == nil {
		return 0
	}
	return s.listener.Addr().(*net.TCPAddr).Port
}

// Changed sends a reload command for each file to every connected browser.
func (s *Server) Changed(files []string) {
	for _, c := range s.getClients() {
		for _, file := range files {
			msg := message{Command: "reload", Path: file, LiveCSS: true, LiveImg: true}
			if err := c.send(msg); err != nil {
				s.log.WithError(err).Debug("Failed to send reload to livereload client")
			}
		}
	}
}

// Close stops the server and disconnects every browser.
func (s *Server) Close() error {
	s.lock.Lock()
	s.closed = true
	clients := s.clients
	s.clients = map[*client]struct{}{}
	s.lock.Unlock()

	err := s.httpServer.Close()

	// Hijacked websocket connections aren't closed by the HTTP server.
	for c := range clients {
		c.conn.Close()
	}
	metrics.SetReloadClients(0)
	return err
}

func (s *Server) getClients() []*client {
	s.lock.Lock()
	defer s.lock.Unlock()

	var clients []*client
	for c := range s.clients {
		clients = append(clients, c)
	}
	return clients
}

func (s *Server) addClient(c *client) bool {
	s.lock.Lock()
	defer s.lock.Unlock()

	if s.closed {
		return false
	}
	s.clients[c] = struct{}{}
	metrics.SetReloadClients(len(s.clients))
	return true
}

func (s *Server) removeClient(c *client) {
	s.lock.Lock()
	defer s.lock.Unlock()

	delete(s.clients, c)
	metrics.SetReloadClients(len(s.clients))
}

func (s *Server) handleWebsocket(conn *websocket.Conn) {
	defer conn.Close()

	c := &client{conn: conn}
	if !s.addClient(c) {
		return
	}
	defer s.removeClient(c)

	for {
		var msg message
		if err := websocket.JSON.Receive(conn, &msg); err != nil {
			return
		}

		switch msg.Command {
		case "hello":
			reply := message{
				Command:    "hello",
				Protocols:  []string{protocolV7},
				ServerName: "davsync",
			}
			if err := c.send(reply); err != nil {
				return
			}
		case "info", "url":
			s.log.WithField("url", msg.URL).Debug("Livereload client connected")
		}
	}
}

func (s *Server) handleWelcome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	writeJSON(w, map[string]string{
		"tinylr":  "Welcome",
		"version": version.String(),
	})
}

// handleChanged triggers a reload from an HTTP request. Files are read from
// a JSON body of the form `{"files": [...]}`, or from the comma separated
// `files` query parameter.
func (s *Server) handleChanged(w http.ResponseWriter, r *http.Request) {
	var files []string
	switch r.Method {
	case http.MethodPost:
		var body struct {
			Files []string `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		files = body.Files
	case http.MethodGet:
		for _, file := range strings.Split(r.URL.Query().Get("files"), ",") {
			if file != "" {
				files = append(files, file)
			}
		}
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.Changed(files)
	writeJSON(w, map[string]interface{}{
		"clients": len(s.getClients()),
		"files":   files,
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
