// Package api exposes the sharing service over HTTP: the public resolver,
// the API key protected upload endpoint and the session protected
// management pages.
package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"github.com/tendant/simple-share/pkg/simpleshare"
	"github.com/tendant/simple-share/pkg/simpleshare/assets"
	"github.com/tendant/simple-share/pkg/simpleshare/auth"
	"github.com/tendant/simple-share/pkg/simpleshare/session"
)

// DefaultCookieName is used when Config.CookieName is empty.
const DefaultCookieName = "simpleshare_session"

// Config holds the dependencies of a Server.
type Config struct {
	Service  simpleshare.Service
	Sessions session.Store
	Users    []auth.User
	APIKeys  []auth.APIKey

	// Renderer defaults to the embedded templates.
	Renderer *assets.Renderer

	CookieName   string
	CookieSecure bool

	// MaxUploadBytes limits upload bodies; zero means unlimited.
	MaxUploadBytes int64

	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler

	Logger *slog.Logger
}

// Server serves the HTTP interface.
type Server struct {
	service        simpleshare.Service
	sessions       session.Store
	users          []auth.User
	apiKeys        []auth.APIKey
	renderer       *assets.Renderer
	cookieName     string
	cookieSecure   bool
	maxUploadBytes int64
	metrics        http.Handler
	logger         *slog.Logger
	assetHandler   http.Handler
}

// NewServer validates cfg and builds a Server.
func NewServer(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("service is required")
	}
	if cfg.Sessions == nil {
		return nil, errors.New("session store is required")
	}

	s := &Server{
		service:        cfg.Service,
		sessions:       cfg.Sessions,
		users:          cfg.Users,
		apiKeys:        cfg.APIKeys,
		renderer:       cfg.Renderer,
		cookieName:     cfg.CookieName,
		cookieSecure:   cfg.CookieSecure,
		maxUploadBytes: cfg.MaxUploadBytes,
		metrics:        cfg.Metrics,
		logger:         cfg.Logger,
	}
	if s.renderer == nil {
		renderer, err := assets.NewRenderer()
		if err != nil {
			return nil, err
		}
		s.renderer = renderer
	}
	if s.cookieName == "" {
		s.cookieName = DefaultCookieName
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.assetHandler = gzhttp.GzipHandler(http.HandlerFunc(s.serveAsset))

	return s, nil
}

// Routes returns the router for every endpoint.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware(s.logger))
	r.Use(RecoveryMiddleware)

	r.Get("/", s.Index)
	r.Post("/login", s.Login)
	r.Get("/logout", s.Logout)
	r.Get("/healthz", s.Healthz)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(s.RequireSession)
		r.Get("/manage", s.Manage)
		r.Get("/delete/{id}", s.Delete)
		r.Get("/rename/{source}/{target}", s.Rename)
	})

	r.With(APIKeyMiddleware(s.apiKeys), RequestSizeLimitMiddleware(s.maxUploadBytes)).
		Post("/upload/{kind}", s.Upload)

	r.Get("/*", s.Serve)

	return r
}

// reservedNames are top level paths that an item may not be renamed to,
// since the router would never reach the resolver for them.
var reservedNames = map[string]bool{
	"login":   true,
	"logout":  true,
	"manage":  true,
	"delete":  true,
	"rename":  true,
	"upload":  true,
	"healthz": true,
	"metrics": true,
	"css":     true,
	"js":      true,
}

// pathParam returns the unescaped URL parameter name.
func pathParam(r *http.Request, name string) (string, error) {
	raw := chi.URLParam(r, name)
	value, err := url.PathUnescape(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %q", simpleshare.ErrInvalidName, raw)
	}
	return value, nil
}

// currentSession returns the session named by the request cookie, or nil
// when there is none. Errors are only returned for store failures.
func (s *Server) currentSession(r *http.Request) (*session.Session, error) {
	cookie, err := r.Cookie(s.cookieName)
	if err != nil || cookie.Value == "" {
		return nil, nil
	}
	sess, err := s.sessions.Lookup(r.Context(), cookie.Value)
	if errors.Is(err, session.ErrNoSession) {
		return nil, nil
	} else if err != nil {
		s.logger.Error("Failed to look up session", "error", err)
		return nil, err
	}
	return sess, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.cookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

// redirect answers 302 with location written verbatim. http.Redirect would
// rewrite relative targets such as ".?error=invalid-login".
func redirect(w http.ResponseWriter, location string) {
	w.Header().Set("Location", location)
	w.WriteHeader(http.StatusFound)
}
