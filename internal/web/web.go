// ABOUTME: Web UI package for the todo list
// ABOUTME: Provides routing, session cookies, CSRF protection and auth guards

package web

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/yuin/goldmark"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/todo"
)

const (
	// SessionCookieName is the name of the session cookie
	SessionCookieName = "todo_session"

	// CSRFCookieName is the name of the CSRF token cookie
	CSRFCookieName = "todo_csrf"

	// DefaultBasePath is where the UI is mounted when Config.BasePath is empty
	DefaultBasePath = "/todos"
)

// contextKey is a custom type for context keys to avoid collisions
type contextKey string

const csrfContextKey contextKey = "csrf_token"

// Config holds web UI configuration
type Config struct {
	// BasePath is the URL prefix for every page, e.g. "/todos"
	BasePath string
}

// Handler serves the todo web UI.
type Handler struct {
	todos    *todo.Service
	accounts *auth.Accounts
	sessions *auth.Sessions
	basePath string
	pages    map[string]*template.Template
	markdown goldmark.Markdown
	logger   *slog.Logger
}

// New creates a Handler. Templates are parsed here so a broken template
// fails at startup.
func New(todos *todo.Service, accounts *auth.Accounts, sessions *auth.Sessions, cfg Config) (*Handler, error) {
	basePath := strings.TrimRight(cfg.BasePath, "/")
	if basePath == "" {
		if cfg.BasePath != "" {
			return nil, fmt.Errorf("base path %q: the UI cannot be mounted at the site root", cfg.BasePath)
		}
		basePath = DefaultBasePath
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}

	pages, err := parseTemplates(basePath)
	if err != nil {
		return nil, err
	}

	return &Handler{
		todos:    todos,
		accounts: accounts,
		sessions: sessions,
		basePath: basePath,
		pages:    pages,
		markdown: newMarkdown(),
		logger:   slog.Default().With("component", "web"),
	}, nil
}

// BasePath returns the URL prefix the UI is mounted under.
func (h *Handler) BasePath() string {
	return h.basePath
}

// RegisterRoutes registers all UI routes on r. Every page path ends in a
// slash; if r has no NotFoundHandler, one is installed that redirects
// slashless paths to their slashed route, using 308 for non-GET methods so
// form posts keep their method and body.
func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.Handle("/", http.RedirectHandler(h.basePath+"/", http.StatusFound)).Methods(http.MethodGet)
	if r.NotFoundHandler == nil {
		r.NotFoundHandler = addTrailingSlash(r)
	}

	ui := r.PathPrefix(h.basePath).Subrouter().StrictSlash(false)
	ui.Use(h.loadIdentity, h.csrfProtect)

	ui.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)

	ui.HandleFunc("/sign_up/", h.handleSignUpPage).Methods(http.MethodGet)
	ui.HandleFunc("/sign_up/", h.handleSignUp).Methods(http.MethodPost)
	ui.HandleFunc("/sign_in/", h.handleSignInPage).Methods(http.MethodGet)
	ui.HandleFunc("/sign_in/", h.handleSignIn).Methods(http.MethodPost)
	ui.HandleFunc("/sign_out/", h.handleSignOut).Methods(http.MethodPost)

	ui.HandleFunc("/current/", h.requireAuth(h.handleCurrent)).Methods(http.MethodGet)
	ui.HandleFunc("/completed/", h.requireAuth(h.handleCompleted)).Methods(http.MethodGet)
	ui.HandleFunc("/new/", h.requireAuth(h.handleNewPage)).Methods(http.MethodGet)
	ui.HandleFunc("/new/", h.requireAuth(h.handleCreate)).Methods(http.MethodPost)
	ui.HandleFunc("/{id:[0-9]+}/", h.requireAuth(h.handleView)).Methods(http.MethodGet)
	ui.HandleFunc("/{id:[0-9]+}/edit/", h.requireAuth(h.handleEditPage)).Methods(http.MethodGet)
	ui.HandleFunc("/{id:[0-9]+}/edit/", h.requireAuth(h.handleEdit)).Methods(http.MethodPost)
	ui.HandleFunc("/{id:[0-9]+}/complete/", h.requireAuth(h.handleComplete)).Methods(http.MethodPost)
	ui.HandleFunc("/{id:[0-9]+}/delete/", h.requireAuth(h.handleDelete)).Methods(http.MethodPost)

	h.logger.Info("web routes registered", "base_path", h.basePath)
}

// Router returns a standalone router with the UI mounted.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

// addTrailingSlash redirects a request to path+"/" when router has a route
// for it, and answers 404 otherwise.
func addTrailingSlash(router *mux.Router) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/") {
			slashed := r.Clone(r.Context())
			slashed.URL.Path += "/"
			if slashed.URL.RawPath != "" {
				slashed.URL.RawPath += "/"
			}

			var match mux.RouteMatch
			if router.Match(slashed, &match) && match.MatchErr == nil {
				status := http.StatusMovedPermanently
				if r.Method != http.MethodGet && r.Method != http.MethodHead {
					status = http.StatusPermanentRedirect
				}
				http.Redirect(w, r, slashed.URL.RequestURI(), status)
				return
			}
		}
		http.NotFound(w, r)
	})
}

// loadIdentity resolves the session cookie, if any, into the request context.
func (h *Handler) loadIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(SessionCookieName)
		if err != nil || cookie.Value == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := h.sessions.Resolve(r.Context(), cookie.Value)
		if err != nil {
			if !errors.Is(err, auth.ErrNoSession) {
				h.logger.Error("failed to resolve session", "error", err)
			}
			h.clearSessionCookie(w, r)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
	})
}

// requireAuth wraps a handler to require a signed-in caller
func (h *Handler) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if auth.FromContext(r.Context()) == nil {
			http.Redirect(w, r, h.signInURL(r.URL.Path), http.StatusFound)
			return
		}
		next(w, r)
	}
}

// signInURL builds the sign-in redirect carrying the original path in next.
func (h *Handler) signInURL(next string) string {
	escaped := strings.ReplaceAll(url.QueryEscape(next), "%2F", "/")
	return h.basePath + "/sign_in/?next=" + escaped
}

// safeNext returns next when it is a local path, else the open items page.
func (h *Handler) safeNext(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return h.basePath + "/current/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return h.basePath + "/current/"
	}
	return next
}

// csrfProtect issues a CSRF cookie on every request and rejects POSTs
// whose form token doesn't match it.
func (h *Handler) csrfProtect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			if err := r.ParseForm(); err != nil {
				http.Error(w, "Bad Request", http.StatusBadRequest)
				return
			}
			if !h.validateCSRF(r) {
				h.logger.Warn("rejected request with invalid CSRF token", "path", r.URL.Path)
				http.Error(w, "Forbidden", http.StatusForbidden)
				return
			}
		}

		r, _ = h.ensureCSRFToken(w, r)
		next.ServeHTTP(w, r)
	})
}

// getCSRFToken retrieves the CSRF token from the request context
func getCSRFToken(r *http.Request) string {
	token, _ := r.Context().Value(csrfContextKey).(string)
	return token
}

// ensureCSRFToken generates a CSRF token if not present and adds it to context
func (h *Handler) ensureCSRFToken(w http.ResponseWriter, r *http.Request) (*http.Request, string) {
	cookie, err := r.Cookie(CSRFCookieName)
	if err == nil && cookie.Value != "" {
		ctx := context.WithValue(r.Context(), csrfContextKey, cookie.Value)
		return r.WithContext(ctx), cookie.Value
	}

	token, err := generateSecureToken(32)
	if err != nil {
		h.logger.Error("failed to generate CSRF token", "error", err)
		token = "" // Will fail validation, but won't crash
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CSRFCookieName,
		Value:    token,
		Path:     h.basePath,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteStrictMode,
	})

	ctx := context.WithValue(r.Context(), csrfContextKey, token)
	return r.WithContext(ctx), token
}

// validateCSRF checks the CSRF token from form against cookie
func (h *Handler) validateCSRF(r *http.Request) bool {
	cookie, err := r.Cookie(CSRFCookieName)
	if err != nil || cookie.Value == "" {
		return false
	}

	formToken := r.FormValue("csrf_token")
	if formToken == "" {
		formToken = r.Header.Get("X-CSRF-Token")
	}

	return formToken != "" && formToken == cookie.Value
}

func (h *Handler) setSessionCookie(w http.ResponseWriter, r *http.Request, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     h.basePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *Handler) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     h.basePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   r.TLS != nil,
	})
}

// serverError logs err and writes a 500.
func (h *Handler) serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(msg, "error", err, "path", r.URL.Path)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

func (h *Handler) url(format string, args ...any) string {
	return h.basePath + fmt.Sprintf(format, args...)
}
