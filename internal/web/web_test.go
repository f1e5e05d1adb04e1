// ABOUTME: Tests for the todo web UI handlers
// ABOUTME: Drives the full router with httptest against an in-memory store

package web

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/store"
	"github.com/2389/todo-list/internal/todo"
)

const testCSRF = "test-csrf-token"

type testApp struct {
	handler  *Handler
	router   *mux.Router
	store    *store.MockStore
	accounts *auth.Accounts
	sessions *auth.Sessions
	todos    *todo.Service
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	s := store.NewMockStore()
	accounts := auth.NewAccounts(s, bcrypt.MinCost)
	sessions := auth.NewSessions(s, s, auth.NewCookieSigner([]byte("web-test-secret")), time.Hour)
	todos := todo.NewService(s)

	h, err := New(todos, accounts, sessions, Config{})
	require.NoError(t, err)

	return &testApp{
		handler:  h,
		router:   h.Router(),
		store:    s,
		accounts: accounts,
		sessions: sessions,
		todos:    todos,
	}
}

// signIn creates an account and returns a live session cookie for it.
func (a *testApp) signIn(t *testing.T, username string) (*store.Account, *http.Cookie) {
	t.Helper()
	account, err := a.accounts.CreateAccount(context.Background(), username, "pw", "pw")
	require.NoError(t, err)

	value, expires, err := a.sessions.Start(context.Background(), account)
	require.NoError(t, err)
	return account, &http.Cookie{Name: SessionCookieName, Value: value, Expires: expires}
}

func (a *testApp) get(t *testing.T, path string, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func (a *testApp) post(t *testing.T, path string, form url.Values, session *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	if form == nil {
		form = url.Values{}
	}
	if form.Get("csrf_token") == "" {
		form.Set("csrf_token", testCSRF)
	}
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.AddCookie(&http.Cookie{Name: CSRFCookieName, Value: testCSRF})
	if session != nil {
		req.AddCookie(session)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestRootRedirectsToBasePath(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos/", rec.Header().Get("Location"))
}

func TestGuestPages(t *testing.T) {
	app := newTestApp(t)

	for _, page := range []string{"/todos/", "/todos/sign_up/", "/todos/sign_in/"} {
		t.Run(page, func(t *testing.T) {
			rec := app.get(t, page, nil)
			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
		})
	}
}

func TestGuestRedirectsToSignIn(t *testing.T) {
	app := newTestApp(t)
	owner, _ := app.signIn(t, "owner")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "Test title"})
	require.NoError(t, err)

	pages := map[string]string{
		"/todos/new/":       "/todos/sign_in/?next=/todos/new/",
		"/todos/current/":   "/todos/sign_in/?next=/todos/current/",
		"/todos/completed/": "/todos/sign_in/?next=/todos/completed/",
		fmt.Sprintf("/todos/%d/", item.ID):      fmt.Sprintf("/todos/sign_in/?next=/todos/%d/", item.ID),
		fmt.Sprintf("/todos/%d/edit/", item.ID): fmt.Sprintf("/todos/sign_in/?next=/todos/%d/edit/", item.ID),
	}

	for page, want := range pages {
		t.Run(page, func(t *testing.T) {
			rec := app.get(t, page, nil)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, want, rec.Header().Get("Location"))
		})
	}
}

func TestGuestPostRedirectsToSignIn(t *testing.T) {
	app := newTestApp(t)

	rec := app.post(t, "/todos/new/", url.Values{"title": {"sneaky"}}, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos/sign_in/?next=/todos/new/", rec.Header().Get("Location"))
}

func TestAuthorizedPages(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "user1")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "Test title", Description: "Test description"})
	require.NoError(t, err)

	pages := []string{
		"/todos/new/",
		"/todos/current/",
		"/todos/completed/",
		fmt.Sprintf("/todos/%d/", item.ID),
		fmt.Sprintf("/todos/%d/edit/", item.ID),
		"/todos/sign_up/",
		"/todos/sign_in/",
	}
	for _, page := range pages {
		t.Run(page, func(t *testing.T) {
			rec := app.get(t, page, session)
			assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		})
	}
}

func TestAuthorizedRedirects(t *testing.T) {
	app := newTestApp(t)
	_, session := app.signIn(t, "user1")

	rec := app.get(t, "/todos/", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))

	rec = app.post(t, "/todos/sign_out/", nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/", rec.Header().Get("Location"))

	// The session is gone after signing out
	rec = app.get(t, "/todos/current/", session)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Location"), "/todos/sign_in/")
}

func TestCurrentListsOnlyOwnItems(t *testing.T) {
	app := newTestApp(t)
	alice, aliceSession := app.signIn(t, "alice")
	bob, _ := app.signIn(t, "bob")

	_, err := app.todos.Create(context.Background(), alice.ID, todo.Input{Title: "alice task"})
	require.NoError(t, err)
	_, err = app.todos.Create(context.Background(), bob.ID, todo.Input{Title: "bob task"})
	require.NoError(t, err)

	rec := app.get(t, "/todos/current/", aliceSession)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "alice task")
	assert.NotContains(t, rec.Body.String(), "bob task")
}

func TestViewTodo_RendersMarkdown(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{
		Title:       "Shopping",
		Description: "**milk** and <script>alert(1)</script>",
	})
	require.NoError(t, err)

	rec := app.get(t, fmt.Sprintf("/todos/%d/", item.ID), session)
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<strong>milk</strong>")
	assert.NotContains(t, body, "<script>alert(1)</script>")
}

func TestViewTodo_OtherOwnerIs404(t *testing.T) {
	app := newTestApp(t)
	alice, _ := app.signIn(t, "alice")
	_, bobSession := app.signIn(t, "bob")

	item, err := app.todos.Create(context.Background(), alice.ID, todo.Input{Title: "private"})
	require.NoError(t, err)

	for _, path := range []string{
		fmt.Sprintf("/todos/%d/", item.ID),
		fmt.Sprintf("/todos/%d/edit/", item.ID),
	} {
		rec := app.get(t, path, bobSession)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	for _, path := range []string{
		fmt.Sprintf("/todos/%d/edit/", item.ID),
		fmt.Sprintf("/todos/%d/complete/", item.ID),
		fmt.Sprintf("/todos/%d/delete/", item.ID),
	} {
		rec := app.post(t, path, url.Values{"title": {"hijacked"}}, bobSession)
		assert.Equal(t, http.StatusNotFound, rec.Code, path)
	}

	got, err := app.todos.Get(context.Background(), alice.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Title)
	assert.Nil(t, got.CompletedAt)
}

func TestCreateTodo(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")

	rec := app.post(t, "/todos/new/", url.Values{"title": {"Buy milk"}, "description": {"2%"}}, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))

	items, err := app.todos.ListOpen(context.Background(), owner.ID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Buy milk", items[0].Title)
	assert.Equal(t, "2%", items[0].Description)
}

func TestCreateTodo_InvalidRerendersForm(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")

	rec := app.post(t, "/todos/new/", url.Values{"title": {strings.Repeat("A", 200)}, "description": {"kept"}}, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bad data passed in. Try again.")
	assert.Contains(t, rec.Body.String(), "kept")

	items, err := app.todos.ListOpen(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestEditTodo(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "Test title", Description: "Test description"})
	require.NoError(t, err)

	rec := app.post(t, fmt.Sprintf("/todos/%d/edit/", item.ID), url.Values{"title": {"Changed title"}, "description": {"Changed text"}}, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))

	got, err := app.todos.Get(context.Background(), owner.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Changed title", got.Title)
	assert.Equal(t, "Changed text", got.Description)
}

func TestEditTodo_InvalidLeavesItemUnchanged(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "Test title", Description: "Test description"})
	require.NoError(t, err)

	rec := app.post(t, fmt.Sprintf("/todos/%d/edit/", item.ID), url.Values{"title": {strings.Repeat("A", 200)}, "description": {"Changed text"}}, session)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Bad data passed in. Try again.")

	got, err := app.todos.Get(context.Background(), owner.ID, item.ID)
	require.NoError(t, err)
	assert.Equal(t, "Test title", got.Title)
	assert.Equal(t, "Test description", got.Description)
}

func TestEditPage_PrefillsForm(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "Prefilled", Description: "body text"})
	require.NoError(t, err)

	rec := app.get(t, fmt.Sprintf("/todos/%d/edit/", item.ID), session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `value="Prefilled"`)
	assert.Contains(t, rec.Body.String(), "body text")
}

func TestCompleteTodo(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "finish me"})
	require.NoError(t, err)

	rec := app.post(t, fmt.Sprintf("/todos/%d/complete/", item.ID), nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))

	got, err := app.todos.Get(context.Background(), owner.ID, item.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.CompletedAt)

	rec = app.get(t, "/todos/completed/", session)
	assert.Contains(t, rec.Body.String(), "finish me")
	rec = app.get(t, "/todos/current/", session)
	assert.NotContains(t, rec.Body.String(), "finish me")
}

func TestCompleteTodo_MissingIs404(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "only one"})
	require.NoError(t, err)

	rec := app.post(t, fmt.Sprintf("/todos/%d/complete/", item.ID+1), nil, session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDeleteTodo(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "delete me"})
	require.NoError(t, err)

	rec := app.post(t, fmt.Sprintf("/todos/%d/delete/", item.ID), nil, session)
	assert.Equal(t, http.StatusSeeOther, rec.Code)

	_, err = app.todos.Get(context.Background(), owner.ID, item.ID)
	assert.ErrorIs(t, err, todo.ErrNotFound)
}

func TestCompleteAndDelete_RejectGet(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")
	item, err := app.todos.Create(context.Background(), owner.ID, todo.Input{Title: "stay"})
	require.NoError(t, err)

	rec := app.get(t, fmt.Sprintf("/todos/%d/delete/", item.ID), session)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	_, err = app.todos.Get(context.Background(), owner.ID, item.ID)
	assert.NoError(t, err)
}

func TestSignOut_RequiresPost(t *testing.T) {
	app := newTestApp(t)
	_, session := app.signIn(t, "alice")

	rec := app.get(t, "/todos/sign_out/", session)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	// A cross-site link cannot end the session
	rec = app.get(t, "/todos/current/", session)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = app.post(t, "/todos/sign_out/", url.Values{"csrf_token": {"forged"}}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = app.get(t, "/todos/current/", session)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignOut_Guest(t *testing.T) {
	app := newTestApp(t)

	rec := app.post(t, "/todos/sign_out/", nil, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/", rec.Header().Get("Location"))
}

func TestSignOutForm_InLayout(t *testing.T) {
	app := newTestApp(t)
	_, session := app.signIn(t, "alice")

	rec := app.get(t, "/todos/current/", session)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `<form method="post" action="/todos/sign_out/">`)
}

func TestSlashlessPaths(t *testing.T) {
	app := newTestApp(t)
	_, session := app.signIn(t, "alice")

	rec := app.get(t, "/todos/current?x=1", session)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/todos/current/?x=1", rec.Header().Get("Location"))

	rec = app.get(t, "/todos", nil)
	assert.Equal(t, http.StatusMovedPermanently, rec.Code)
	assert.Equal(t, "/todos/", rec.Header().Get("Location"))

	// Posts keep their method and body across the redirect
	rec = app.post(t, "/todos/new", url.Values{"title": {"no slash"}}, session)
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "/todos/new/", rec.Header().Get("Location"))

	rec = app.get(t, "/todos/nowhere", session)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCSRF_RejectsMismatch(t *testing.T) {
	app := newTestApp(t)
	owner, session := app.signIn(t, "alice")

	rec := app.post(t, "/todos/new/", url.Values{"title": {"forged"}, "csrf_token": {"wrong"}}, session)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	items, err := app.todos.ListOpen(context.Background(), owner.ID)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCSRF_CookieIssuedOnGet(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/todos/sign_in/", nil)
	c := findCookie(rec, CSRFCookieName)
	require.NotNil(t, c)
	assert.NotEmpty(t, c.Value)
	assert.Contains(t, rec.Body.String(), c.Value)
}

func TestSignUp(t *testing.T) {
	app := newTestApp(t)

	rec := app.post(t, "/todos/sign_up/", url.Values{
		"username":  {"newuser"},
		"password1": {"Str0ngPass!"},
		"password2": {"Str0ngPass!"},
	}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))

	session := findCookie(rec, SessionCookieName)
	require.NotNil(t, session)

	// The new session works
	rec = app.get(t, "/todos/current/", session)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSignUp_PasswordMismatch(t *testing.T) {
	app := newTestApp(t)

	rec := app.post(t, "/todos/sign_up/", url.Values{
		"username":  {"newuser"},
		"password1": {"one"},
		"password2": {"two"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Passwords do not match")

	_, err := app.store.GetAccountByUsername(context.Background(), "newuser")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSignUp_LoginTaken(t *testing.T) {
	app := newTestApp(t)
	existing, _ := app.signIn(t, "taken")

	rec := app.post(t, "/todos/sign_up/", url.Values{
		"username":  {"taken"},
		"password1": {"other"},
		"password2": {"other"},
	}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Login is already taken")

	stored, err := app.store.GetAccountByUsername(context.Background(), "taken")
	require.NoError(t, err)
	assert.Equal(t, existing.PasswordHash, stored.PasswordHash)
}

func TestSignIn(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "alice")

	rec := app.post(t, "/todos/sign_in/", url.Values{"username": {"alice"}, "password": {"pw"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/current/", rec.Header().Get("Location"))
	assert.NotNil(t, findCookie(rec, SessionCookieName))
}

func TestSignIn_HonorsNext(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "alice")

	rec := app.post(t, "/todos/sign_in/", url.Values{"username": {"alice"}, "password": {"pw"}, "next": {"/todos/completed/"}}, nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/todos/completed/", rec.Header().Get("Location"))
}

func TestSignIn_IgnoresExternalNext(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "alice")

	for _, next := range []string{"https://evil.example/", "//evil.example/", "/\\evil.example"} {
		rec := app.post(t, "/todos/sign_in/", url.Values{"username": {"alice"}, "password": {"pw"}, "next": {next}}, nil)
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/todos/current/", rec.Header().Get("Location"), next)
	}
}

func TestSignIn_BadCredentials(t *testing.T) {
	app := newTestApp(t)
	app.signIn(t, "alice")

	rec := app.post(t, "/todos/sign_in/", url.Values{"username": {"alice"}, "password": {"nope"}}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Incorrect username and/or password")
	assert.Nil(t, findCookie(rec, SessionCookieName))
}

func TestSignInPage_CarriesNext(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/todos/sign_in/?next=/todos/new/", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="next" value="/todos/new/"`)
}

func TestInvalidSessionCookieIsCleared(t *testing.T) {
	app := newTestApp(t)

	rec := app.get(t, "/todos/", &http.Cookie{Name: SessionCookieName, Value: "garbage"})
	assert.Equal(t, http.StatusOK, rec.Code)
	c := findCookie(rec, SessionCookieName)
	require.NotNil(t, c)
	assert.Equal(t, -1, c.MaxAge)
}

func TestCustomBasePath(t *testing.T) {
	s := store.NewMockStore()
	sessions := auth.NewSessions(s, s, auth.NewCookieSigner([]byte("x")), time.Hour)
	h, err := New(todo.NewService(s), auth.NewAccounts(s, bcrypt.MinCost), sessions, Config{BasePath: "tasks/"})
	require.NoError(t, err)
	assert.Equal(t, "/tasks", h.BasePath())

	rec := httptest.NewRecorder()
	h.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/tasks/current/", nil))
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/tasks/sign_in/?next=/tasks/current/", rec.Header().Get("Location"))
}

func TestRootBasePathRejected(t *testing.T) {
	s := store.NewMockStore()
	sessions := auth.NewSessions(s, s, auth.NewCookieSigner([]byte("x")), time.Hour)

	_, err := New(todo.NewService(s), auth.NewAccounts(s, bcrypt.MinCost), sessions, Config{BasePath: "/"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site root")
}

func TestSignInURL_EscapesQuery(t *testing.T) {
	app := newTestApp(t)
	assert.Equal(t, "/todos/sign_in/?next=/todos/a%26b/", app.handler.signInURL("/todos/a&b/"))
}
