// ABOUTME: Template loading and rendering for the todo web UI
// ABOUTME: Pages are parsed once from the embedded filesystem and rendered into base.html

package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/store"
	"github.com/2389/todo-list/internal/todo"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageIndex          = "index.html"
	pageSignIn         = "sign_in.html"
	pageSignUp         = "sign_up.html"
	pageCurrentTodos   = "current_todos.html"
	pageCompletedTodos = "completed_todos.html"
	pageViewTodo       = "view_todo.html"
	pageInputTodo      = "input_todo.html"
)

var pageNames = []string{
	pageIndex,
	pageSignIn,
	pageSignUp,
	pageCurrentTodos,
	pageCompletedTodos,
	pageViewTodo,
	pageInputTodo,
}

// Template data types
type pageData struct {
	Title     string
	User      *auth.Identity
	CSRFToken string
}

type signInData struct {
	pageData
	Error    string
	Username string
	Next     string
}

type signUpData struct {
	pageData
	Error    string
	Username string
}

type listData struct {
	pageData
	Items []*store.Item
}

type viewTodoData struct {
	pageData
	Item        *store.Item
	Description template.HTML
}

type inputTodoData struct {
	pageData
	Action string
	Error  string
	Form   todo.Input
}

// parseTemplates builds one template set per page, each with base.html.
func parseTemplates(basePath string) (map[string]*template.Template, error) {
	funcs := template.FuncMap{
		"base":    func() string { return basePath },
		"fmtTime": formatTime,
	}

	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New("base.html").Funcs(funcs).ParseFS(templateFS, "templates/base.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", name, err)
		}
		pages[name] = tmpl
	}
	return pages, nil
}

func formatTime(v any) string {
	switch t := v.(type) {
	case time.Time:
		return t.Local().Format("Jan 2, 2006 15:04")
	case *time.Time:
		if t == nil {
			return ""
		}
		return t.Local().Format("Jan 2, 2006 15:04")
	default:
		return ""
	}
}

func newMarkdown() goldmark.Markdown {
	// Raw HTML in descriptions is dropped since no html.WithUnsafe option is set
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// renderMarkdown converts an item description to HTML.
func (h *Handler) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := h.markdown.Convert([]byte(src), &buf); err != nil {
		h.logger.Warn("failed to render markdown", "error", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// render buffers the page so a template error can still become a 500.
func (h *Handler) render(w http.ResponseWriter, name string, status int, data any) {
	tmpl, ok := h.pages[name]
	if !ok {
		h.logger.Error("unknown template", "name", name)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		h.logger.Error("failed to render page", "name", name, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) page(r *http.Request, title string) pageData {
	return pageData{
		Title:     title,
		User:      auth.FromContext(r.Context()),
		CSRFToken: getCSRFToken(r),
	}
}
