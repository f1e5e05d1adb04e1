// ABOUTME: Handlers for listing, viewing, creating, editing, completing and deleting todos
// ABOUTME: Every handler acts on behalf of the signed-in caller only

package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/todo"
)

// badDataMessage is shown when a todo form fails validation.
const badDataMessage = "Bad data passed in. Try again."

// handleIndex shows the landing page to guests and sends signed-in users to
// their open todos.
func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	if auth.FromContext(r.Context()) != nil {
		http.Redirect(w, r, h.url("/current/"), http.StatusFound)
		return
	}
	h.render(w, pageIndex, http.StatusOK, h.page(r, "Welcome"))
}

func (h *Handler) handleCurrent(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	items, err := h.todos.ListOpen(r.Context(), id.AccountID)
	if err != nil {
		h.serverError(w, r, "failed to list open todos", err)
		return
	}
	h.render(w, pageCurrentTodos, http.StatusOK, listData{pageData: h.page(r, "Current todos"), Items: items})
}

func (h *Handler) handleCompleted(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	items, err := h.todos.ListCompleted(r.Context(), id.AccountID)
	if err != nil {
		h.serverError(w, r, "failed to list completed todos", err)
		return
	}
	h.render(w, pageCompletedTodos, http.StatusOK, listData{pageData: h.page(r, "Completed todos"), Items: items})
}

func (h *Handler) handleView(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	itemID, ok := itemIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.todos.Get(r.Context(), id.AccountID, itemID)
	if err != nil {
		h.todoError(w, r, err)
		return
	}

	h.render(w, pageViewTodo, http.StatusOK, viewTodoData{
		pageData:    h.page(r, item.Title),
		Item:        item,
		Description: h.renderMarkdown(item.Description),
	})
}

func (h *Handler) handleNewPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageInputTodo, http.StatusOK, inputTodoData{
		pageData: h.page(r, "New todo"),
		Action:   h.url("/new/"),
	})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	in := formInput(r)

	if _, err := h.todos.Create(r.Context(), id.AccountID, in); err != nil {
		if errors.Is(err, todo.ErrInvalid) {
			h.render(w, pageInputTodo, http.StatusOK, inputTodoData{
				pageData: h.page(r, "New todo"),
				Action:   h.url("/new/"),
				Error:    badDataMessage,
				Form:     in,
			})
			return
		}
		h.serverError(w, r, "failed to create todo", err)
		return
	}

	http.Redirect(w, r, h.url("/current/"), http.StatusSeeOther)
}

func (h *Handler) handleEditPage(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	itemID, ok := itemIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	item, err := h.todos.Get(r.Context(), id.AccountID, itemID)
	if err != nil {
		h.todoError(w, r, err)
		return
	}

	h.render(w, pageInputTodo, http.StatusOK, inputTodoData{
		pageData: h.page(r, "Edit todo"),
		Action:   h.url("/%d/edit/", item.ID),
		Form:     todo.Input{Title: item.Title, Description: item.Description},
	})
}

func (h *Handler) handleEdit(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	itemID, ok := itemIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}
	in := formInput(r)

	if _, err := h.todos.Update(r.Context(), id.AccountID, itemID, in); err != nil {
		if errors.Is(err, todo.ErrInvalid) {
			h.render(w, pageInputTodo, http.StatusOK, inputTodoData{
				pageData: h.page(r, "Edit todo"),
				Action:   h.url("/%d/edit/", itemID),
				Error:    badDataMessage,
				Form:     in,
			})
			return
		}
		h.todoError(w, r, err)
		return
	}

	http.Redirect(w, r, h.url("/current/"), http.StatusSeeOther)
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	itemID, ok := itemIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if _, err := h.todos.Complete(r.Context(), id.AccountID, itemID); err != nil {
		h.todoError(w, r, err)
		return
	}

	http.Redirect(w, r, h.url("/current/"), http.StatusSeeOther)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	itemID, ok := itemIDFromPath(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := h.todos.Delete(r.Context(), id.AccountID, itemID); err != nil {
		h.todoError(w, r, err)
		return
	}

	http.Redirect(w, r, h.url("/current/"), http.StatusSeeOther)
}

// todoError maps NotFound to 404 and everything else to 500.
func (h *Handler) todoError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, todo.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	h.serverError(w, r, "todo operation failed", err)
}

func itemIDFromPath(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func formInput(r *http.Request) todo.Input {
	return todo.Input{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
	}
}
