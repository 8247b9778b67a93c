// Package devserver serves a topicmap file to the browser canvas and
// reloads connected pages when the file changes on disk.
package devserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gorilla/websocket"

	"github.com/recera/tmcanvas/internal/cache"
	"github.com/recera/tmcanvas/pkg/export"
	"github.com/recera/tmcanvas/pkg/topicmap"
)

// debounceDelay collapses the burst of events editors emit on save.
const debounceDelay = 100 * time.Millisecond

// Options configures a Server.
type Options struct {
	Host string
	Port int

	// TopicmapPath is the snapshot file that is served and watched.
	TopicmapPath string
	// WasmPath is the compiled browser client.
	WasmPath string

	// Export configures the /snapshot.* renderings.
	Export export.Options
	Cache  *cache.Cache
	Logger *slog.Logger
}

// Server is the development server. Create it with New.
type Server struct {
	opts     Options
	log      *slog.Logger
	cache    *cache.Cache
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	tm      *topicmap.Topicmap
	version int

	wsMutex   sync.RWMutex
	wsClients map[*websocket.Conn]bool
}

// New loads the topicmap file. A missing file is an error.
func New(opts Options) (*Server, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Cache == nil {
		opts.Cache = cache.New(cache.DefaultConfig())
	}
	if opts.Host == "" {
		opts.Host = "localhost"
	}
	s := &Server{
		opts:      opts,
		log:       opts.Logger,
		cache:     opts.Cache,
		wsClients: make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			// The page and the socket are both local during development.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Topicmap returns the current snapshot and its version, which grows with
// every reload.
func (s *Server) Topicmap() (*topicmap.Topicmap, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tm, s.version
}

// Reload rereads the topicmap file, drops cached renderings and tells the
// connected pages to reload. On a parse error the previous snapshot stays.
func (s *Server) Reload() error {
	tm, err := topicmap.LoadFile(s.opts.TopicmapPath)
	if err == nil {
		err = tm.Validate()
	}
	if err != nil {
		return fmt.Errorf("load %s: %w", s.opts.TopicmapPath, err)
	}

	s.mu.Lock()
	s.tm = tm
	s.version++
	version := s.version
	s.mu.Unlock()

	dropped := s.cache.InvalidateByDependency(s.opts.TopicmapPath)
	s.log.Info("topicmap loaded", "path", s.opts.TopicmapPath, "version", version,
		"topics", len(tm.Topics), "associations", len(tm.Associations), "evicted", dropped)
	s.notifyClients("reload", map[string]any{"version": version})
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.serveIndex)
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/tmcanvas.wasm", s.serveWASM)
	mux.HandleFunc("/wasm_exec.js", s.serveWasmExec)
	mux.HandleFunc("/topicmap.json", s.serveTopicmap)
	for _, f := range export.Formats {
		mux.HandleFunc("/snapshot."+string(f), s.serveSnapshot)
	}
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// ListenAndServe watches the topicmap and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(s.opts.TopicmapPath)); err != nil {
		return fmt.Errorf("watch %s: %w", s.opts.TopicmapPath, err)
	}
	go s.Watch(ctx, watcher)

	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.closeClients()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("dev server running", "url", "http://"+addr)
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Watch reloads the topicmap after changes to its file settle. The
// watcher must cover the file's directory; editors often replace the file
// instead of writing it in place.
func (s *Server) Watch(ctx context.Context, watcher *fsnotify.Watcher) {
	debounce := time.NewTimer(debounceDelay)
	if !debounce.Stop() {
		<-debounce.C
	}
	pending := false
	target := filepath.Clean(s.opts.TopicmapPath)

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || event.Op == fsnotify.Chmod {
				continue
			}
			pending = true
			debounce.Reset(debounceDelay)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", "err", err)

		case <-debounce.C:
			if !pending {
				continue
			}
			pending = false
			if err := s.Reload(); err != nil {
				s.log.Error("reload failed", "err", err)
				s.notifyClients("error", map[string]any{"message": err.Error()})
			}
		}
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()
	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]any
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				s.log.Warn("websocket error", "err", err)
			}
			return
		}
		switch msg["type"] {
		case "HELLO":
			_, version := s.Topicmap()
			s.write(conn, map[string]any{"type": "ACK", "version": version})
		default:
			s.log.Debug("unknown websocket message", "type", msg["type"])
		}
	}
}

// write serializes writes; gorilla connections allow one writer at a time.
func (s *Server) write(conn *websocket.Conn, msg map[string]any) {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	if err := conn.WriteJSON(msg); err != nil {
		s.log.Warn("failed to send message to client", "err", err)
	}
}

func (s *Server) notifyClients(msgType string, data map[string]any) {
	message := map[string]any{"type": strings.ToUpper(msgType)}
	for k, v := range data {
		message[k] = v
	}

	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			s.log.Warn("failed to send message to client", "err", err)
		}
	}
}

func (s *Server) closeClients() {
	s.wsMutex.Lock()
	defer s.wsMutex.Unlock()
	for client := range s.wsClients {
		client.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		client.Close()
	}
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	tm, _ := s.Topicmap()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := indexTemplate.Execute(w, indexData{Title: tm.Name}); err != nil {
		s.log.Error("render index", "err", err)
	}
}

func (s *Server) serveTopicmap(w http.ResponseWriter, r *http.Request) {
	tm, version := s.Topicmap()
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Topicmap-Version", strconv.Itoa(version))
	if err := json.NewEncoder(w).Encode(tm); err != nil {
		s.log.Error("encode topicmap", "err", err)
	}
}

func (s *Server) serveWASM(w http.ResponseWriter, r *http.Request) {
	if _, err := os.Stat(s.opts.WasmPath); err != nil {
		http.Error(w, "browser client not built: "+s.opts.WasmPath, http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "application/wasm")
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeFile(w, r, s.opts.WasmPath)
}

// serveWasmExec serves the loader shipped with the Go toolchain. Its
// location moved from misc/wasm to lib/wasm in Go 1.24.
func (s *Server) serveWasmExec(w http.ResponseWriter, r *http.Request) {
	root := runtime.GOROOT()
	for _, dir := range []string{"lib/wasm", "misc/wasm"} {
		path := filepath.Join(root, dir, "wasm_exec.js")
		if _, err := os.Stat(path); err == nil {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			http.ServeFile(w, r, path)
			return
		}
	}
	http.Error(w, "wasm_exec.js not found in "+root, http.StatusInternalServerError)
}

// serveSnapshot renders /snapshot.{png,svg,txt}. The optional w and h
// query parameters set the size.
func (s *Server) serveSnapshot(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(strings.TrimPrefix(r.URL.Path, "/snapshot."))
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	opts := s.opts.Export
	for _, q := range []struct {
		name string
		dst  *int
	}{{"w", &opts.Width}, {"h", &opts.Height}} {
		v := r.URL.Query().Get(q.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 8192 {
			http.Error(w, fmt.Sprintf("invalid %s %q", q.name, v), http.StatusBadRequest)
			return
		}
		*q.dst = n
	}

	tm, version := s.Topicmap()
	key := cache.Key(s.opts.TopicmapPath, strconv.Itoa(version), string(format),
		strconv.Itoa(opts.Width), strconv.Itoa(opts.Height))

	data, ok := s.cache.Get(key)
	if !ok {
		var buf bytes.Buffer
		if err := export.Render(&buf, format, tm, opts); err != nil {
			s.log.Error("render snapshot", "format", format, "err", err)
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		data = buf.Bytes()
		s.cache.Put(key, data, s.opts.TopicmapPath)
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
