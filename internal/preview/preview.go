// Package preview serves a live browser preview of one Markdown file.
//
// Every request re-reads the file from disk and renders it, so the page is
// always current. With live reload enabled, the browser is told to refresh
// whenever something under the file's directory changes.
package preview

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aarol/reload"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/alnah/markforge"
)

// Sentinel errors.
var (
	ErrEmptyPath = errors.New("preview path cannot be empty")
	ErrListen    = errors.New("failed to listen")
	ErrServe     = errors.New("preview server failed")
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 5 * time.Second
)

// Pages builds the full preview page for a document.
type Pages interface {
	PreviewPage(ctx context.Context, in markforge.Input) (string, error)
}

// Renderer builds the sanitized body fragment.
type Renderer interface {
	Render(ctx context.Context, text string) (string, error)
}

var (
	_ Pages    = (*markforge.Exporter)(nil)
	_ Renderer = (*markforge.Renderer)(nil)
)

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger used for requests and server events.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithLiveReload watches the document directory and refreshes open pages.
func WithLiveReload(enabled bool) Option {
	return func(s *Server) { s.liveReload = enabled }
}

// Server previews a single file.
type Server struct {
	path       string
	dir        string
	pages      Pages
	renderer   Renderer
	logger     *slog.Logger
	liveReload bool
	handler    http.Handler
}

// New creates a preview server for the Markdown file at path.
func New(path string, pages Pages, renderer Renderer, opts ...Option) (*Server, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}

	s := &Server{
		path:     abs,
		dir:      filepath.Dir(abs),
		pages:    pages,
		renderer: renderer,
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.handler = s.routes()
	return s, nil
}

// Handler returns the HTTP handler, live reload included when enabled.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Path returns the absolute path of the previewed file.
func (s *Server) Path() string {
	return s.path
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(s.logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.NoCache)

	r.Get("/", s.handlePage)
	r.Get("/fragment", s.handleFragment)
	r.Get("/healthz", handleHealth)
	r.Get("/*", s.handleStatic)

	var handler http.Handler = r
	if s.liveReload {
		reloader := reload.New(s.dir)
		reloader.OnReload = func() {
			s.logger.Debug("preview reload", "dir", s.dir)
		}
		handler = reloader.Handle(handler)
	}
	return handler
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	text, ok := s.read(w)
	if !ok {
		return
	}
	page, err := s.pages.PreviewPage(r.Context(), markforge.Input{Text: text, Path: s.path})
	if err != nil {
		s.fail(w, "building preview page", err)
		return
	}
	writeHTML(w, page)
}

func (s *Server) handleFragment(w http.ResponseWriter, r *http.Request) {
	text, ok := s.read(w)
	if !ok {
		return
	}
	body, err := s.renderer.Render(r.Context(), text)
	if err != nil {
		s.fail(w, "rendering preview", err)
		return
	}
	writeHTML(w, body)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

// handleStatic serves images and other files referenced relative to the
// document. Dot files and dot directories are never served.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	for _, seg := range strings.Split(r.URL.Path, "/") {
		if strings.HasPrefix(seg, ".") {
			http.NotFound(w, r)
			return
		}
	}
	http.FileServer(http.Dir(s.dir)).ServeHTTP(w, r)
}

func (s *Server) read(w http.ResponseWriter) (string, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		s.logger.Warn("reading preview source", "path", s.path, "error", err)
		status := http.StatusInternalServerError
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		http.Error(w, "cannot read "+filepath.Base(s.path), status)
		return "", false
	}
	return string(data), true
}

func (s *Server) fail(w http.ResponseWriter, msg string, err error) {
	s.logger.Error(msg, "path", s.path, "error", err)
	http.Error(w, msg, http.StatusInternalServerError)
}

func writeHTML(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(body))
}

// ---------------------------------------------------------------------------
// Serving
// ---------------------------------------------------------------------------

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := Listen(ctx, addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Listen binds a TCP listener on addr, for callers that need the bound
// address before serving.
func Listen(ctx context.Context, addr string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrListen, err)
	}
	return ln, nil
}

// Serve accepts connections on ln until ctx is done, then shuts down
// gracefully. It returns nil after a clean shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	s.logger.Info("preview server started", "url", "http://"+ln.Addr().String(), "path", s.path)

	select {
	case err := <-errCh:
		return fmt.Errorf("%w: %v", ErrServe, err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("%w: %v", ErrServe, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%w: %v", ErrServe, err)
	}
	s.logger.Info("preview server stopped")
	return nil
}
