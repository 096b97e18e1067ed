package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"advent/calendar"
	appLog "advent/log"
	"advent/server/fastview"
	"advent/server/root_view"
	"advent/server/session"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// clickMessage is what the page sends when an overlay is clicked.
type clickMessage struct {
	Day int `json:"day"`
}

// openResponse is the JSON response of the open endpoint.
type openResponse struct {
	Day     int  `json:"day"`
	Open    bool `json:"open"`
	Drawn   int  `json:"drawn"`
	Skipped bool `json:"skipped"`
}

// Server serves one calendar page per session: the page itself, a websocket pushing the
// session's element updates and taking its clicks, and the cells' surfaces as images.
// A session lives from page render until it has had no websocket attached for the
// configured idle timeout.
type Server struct {
	addr     string
	registry *session.Registry
	router   *mux.Router
}

// NewServer returns a server for the sessions of registry.
func NewServer(addr string, registry *session.Registry) *Server {
	server := &Server{
		addr:     addr,
		registry: registry,
		router:   mux.NewRouter(),
	}
	server.registerRoutes()
	return server
}

func (server *Server) registerRoutes() {
	r := server.router
	r.HandleFunc("/", server.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/healthz", server.serveHealth).Methods(http.MethodGet)
	r.HandleFunc("/ws/{session}", server.serveWebsocket).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/cells/{day:[0-9]+}.png", server.serveSurface).Methods(http.MethodGet)
	r.HandleFunc("/sessions/{session}/cells/{day:[0-9]+}/open", server.serveOpen).Methods(http.MethodPost)
}

// Handler returns the server's routes.
func (server *Server) Handler() http.Handler {
	return server.router
}

// Serve listens until ctx is cancelled, then shuts down gracefully.
func (server *Server) Serve(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:    server.addr,
		Handler: server.router,
		// Requests, websockets included, end with ctx.
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 5 * time.Second,
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		appLog.Info("starting HTTP server", "listen", "http://"+server.addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-groupCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		appLog.Info("HTTP server stopped")
		return nil
	})
	return group.Wait()
}

// serveIndex creates a session and serves its page.
func (server *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	sess, err := server.registry.Create()
	if err != nil {
		appLog.Error("create session", err)
		http.Error(w, "failed to create session", http.StatusInternalServerError)
		return
	}

	// The page's views are only parsed here; their updates are served by the websocket.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	rootView, err := root_view.NewRootView(ctx, sess.ID(), make(chan []calendar.Cell))
	if err != nil {
		server.registry.Remove(sess.ID())
		appLog.Error("build page", err, "session", sess.ID())
		http.Error(w, "failed to build page", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderTemplate(w, rootView, rootView.Data(sess.Cells())); err != nil {
		appLog.Error("render page", err, "session", sess.ID())
	}
}

func renderTemplate(
	w io.Writer,
	vc fastview.ViewComponent,
	data interface{},
) (err error) {
	t := template.New("index.html")
	var tname string
	if tname, err = vc.Parse(t); err != nil {
		return
	}
	if _, err = t.Parse(`{{ template "` + tname + `" . }}`); err != nil {
		return
	}

	err = t.Execute(w, data)
	return
}

// serveWebsocket publishes a session's updates to its page and queues the page's clicks.
// The session is removed when the websocket disconnects.
func (server *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	sess, ok := server.lookup(w, r)
	if !ok {
		return
	}
	if !sess.Attach() {
		http.Error(w, "session already connected", http.StatusConflict)
		return
	}
	// The session outlives its websocket so the page's POST fallback and a reconnect
	// keep working; the sweeper evicts it once it has been detached for idleTimeout.
	defer sess.Detach()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	rootView, err := root_view.NewRootView(ctx, sess.ID(), sess.Snapshots())
	if err != nil {
		appLog.Error("build views", err, "session", sess.ID())
		http.Error(w, "failed to build views", http.StatusInternalServerError)
		return
	}

	cli, err := fastview.NewClient[[]fastview.EleUpdate, clickMessage](rootView.Updates(), w, r)
	if err != nil {
		appLog.Error("websocket upgrade", err, "session", sess.ID())
		return
	}
	appLog.Debug("client connected", "session", sess.ID())

	go func() {
		for msg := range cli.Messages() {
			if err := sess.Click(msg.Day); err != nil {
				appLog.Error("queue click", err, "session", sess.ID(), "day", msg.Day)
			}
		}
	}()

	// A reloaded page starts from the current state.
	sess.Resync()
	if err := cli.Sync(); err != nil {
		appLog.Error("websocket sync", err, "session", sess.ID())
	}
	appLog.Debug("client disconnected", "session", sess.ID())
}

// serveSurface serves the PNG of a cell's drawing surface.
func (server *Server) serveSurface(w http.ResponseWriter, r *http.Request) {
	sess, ok := server.lookup(w, r)
	if !ok {
		return
	}
	day, _ := strconv.Atoi(mux.Vars(r)["day"])
	surface, ok := sess.Canvas(day)
	if !ok {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	if err := surface.EncodePNG(w); err != nil {
		appLog.Error("encode surface", err, "session", sess.ID(), "day", day)
	}
}

// serveOpen clicks a cell and waits for the outcome. It serves pages without a websocket.
func (server *Server) serveOpen(w http.ResponseWriter, r *http.Request) {
	sess, ok := server.lookup(w, r)
	if !ok {
		return
	}
	day, _ := strconv.Atoi(mux.Vars(r)["day"])

	click, err := sess.Open(r.Context(), day)
	switch {
	case errors.Is(err, calendar.ErrNoSuchCell):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, err.Error())
		return
	case err != nil:
		appLog.Error("open cell", err, "session", sess.ID(), "day", day)
		writeError(w, http.StatusInternalServerError, "failed to open cell")
		return
	}

	writeJSON(w, http.StatusOK, openResponse{
		Day:     day,
		Open:    click.Opened || click.AlreadyOpen,
		Drawn:   len(click.Drawn),
		Skipped: click.Skipped(),
	})
}

func (server *Server) serveHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// lookup returns the session named by the route, replying 404 when there is none.
func (server *Server) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, err := server.registry.Get(mux.Vars(r)["session"])
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return nil, false
	}
	return sess, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("encode response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
