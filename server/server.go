package server

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"path"
	"time"

	"github.com/bingLAN/table_view/auth"
	"github.com/bingLAN/table_view/common"
	"github.com/bingLAN/table_view/resource"
	"go.uber.org/zap"
)

//go:embed public
var publicFS embed.FS

// DefaultSessionCookie names the cookie that carries the session id.
const DefaultSessionCookie = "session"

// Tables is the part of the table driver the api needs.
type Tables interface {
	GetResource(name string) (*resource.Resource, error)
	GetRows(ctx context.Context, name string) (common.Dataset, error)
}

// Authenticator checks login credentials.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (common.SessionUser, error)
}

// Server is the json api plus the static pages.
type Server struct {
	tables   Tables
	users    Authenticator
	sessions *auth.Sessions
	logger   *zap.Logger
	cookie   string
	static   fs.FS
}

// Option configures New.
type Option func(*Server)

// WithLogger sets the request and login logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionCookie renames the session cookie; empty keeps the default.
func WithSessionCookie(name string) Option {
	return func(s *Server) {
		if name != "" {
			s.cookie = name
		}
	}
}

// WithStatic serves pages from fsys instead of the embedded ones.
func WithStatic(fsys fs.FS) Option {
	return func(s *Server) {
		s.static = fsys
	}
}

// New wires the api to its table source, credential check and session store.
func New(tables Tables, users Authenticator, sessions *auth.Sessions, opts ...Option) *Server {
	static, _ := fs.Sub(publicFS, "public")
	s := &Server{
		tables:   tables,
		users:    users,
		sessions: sessions,
		logger:   zap.NewNop(),
		cookie:   DefaultSessionCookie,
		static:   static,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler routes the api and static pages and logs every request.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/login", s.handleLogin)
	mux.HandleFunc("POST /api/logout", s.handleLogout)
	mux.HandleFunc("GET /api/current-user", s.handleCurrentUser)
	mux.HandleFunc("GET /api/{table}", s.handleTable)
	mux.HandleFunc("GET /", s.handleStatic)
	return s.logRequests(mux)
}

// ListenAndServe runs until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("api listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// writeJSON encodes v before any header goes out, so an encode failure can
// still answer 500 instead of a truncated body.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		status = http.StatusInternalServerError
		buf.Reset()
		buf.WriteString(`{"error":"encode response failed"}` + "\n")
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func (s *Server) currentUser(r *http.Request) (common.SessionUser, bool) {
	c, err := r.Cookie(s.cookie)
	if err != nil {
		return common.SessionUser{}, false
	}
	return s.sessions.Get(c.Value)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("table")

	res, err := s.tables.GetResource(name)
	if errors.Is(err, resource.ErrResourceNotFound) {
		writeError(w, http.StatusNotFound, "Not found")
		return
	}
	if err != nil {
		s.logger.Error("lookup resource", zap.String("resource", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	if !res.Public() {
		user, ok := s.currentUser(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Not logged in")
			return
		}
		if user.Role != common.RoleManager {
			writeError(w, http.StatusForbidden, "Forbidden")
			return
		}
	}

	rows, err := s.tables.GetRows(r.Context(), name)
	if err != nil {
		s.logger.Error("read resource", zap.String("resource", name), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	// an unreadable body counts as missing fields
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	user, err := s.users.Authenticate(r.Context(), req.Username, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		s.logger.Info("login rejected", zap.String("username", req.Username))
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		s.logger.Error("login lookup", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error")
		return
	}

	id := s.sessions.Create(user)
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.logger.Info("login", zap.String("username", user.Username), zap.String("role", user.Role))
	writeJSON(w, http.StatusOK, map[string]interface{}{"role": user.Role, "id": user.Id})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.cookie); err == nil {
		s.sessions.Delete(c.Value)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := s.currentUser(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not logged in")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleStatic serves a page when it exists and index.html otherwise.
func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	name := path.Clean(r.URL.Path)[1:]
	if name == "" {
		name = "index.html"
	}
	if st, err := fs.Stat(s.static, name); err != nil || st.IsDir() {
		name = "index.html"
	}
	http.ServeFileFS(w, r, s.static, name)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", rec.status),
			zap.Duration("elapsed", time.Since(start)))
	})
}
