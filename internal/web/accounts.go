// ABOUTME: Sign-up, sign-in and sign-out handlers
// ABOUTME: Successful sign-up and sign-in start a session and set the session cookie

package web

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/2389/todo-list/internal/auth"
	"github.com/2389/todo-list/internal/store"
)

// User-facing account messages
const (
	msgLoginTaken       = "Login is already taken"
	msgPasswordMismatch = "Passwords do not match"
	msgBadCredentials   = "Incorrect username and/or password"
	msgInvalidUsername  = "Enter a valid username. It may contain only letters, digits and @/./+/-/_ characters."
	msgPasswordRequired = "Password is required"
	msgGenericError     = "An error occurred"
)

func (h *Handler) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageSignUp, http.StatusOK, signUpData{pageData: h.page(r, "Sign up")})
}

func (h *Handler) handleSignUp(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password1")
	confirm := r.FormValue("password2")

	renderError := func(msg string) {
		h.render(w, pageSignUp, http.StatusOK, signUpData{
			pageData: h.page(r, "Sign up"),
			Error:    msg,
			Username: username,
		})
	}

	account, err := h.accounts.CreateAccount(r.Context(), username, password, confirm)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrPasswordMismatch):
			renderError(msgPasswordMismatch)
		case errors.Is(err, auth.ErrUsernameTaken):
			renderError(msgLoginTaken)
		case errors.Is(err, auth.ErrInvalidUsername):
			renderError(msgInvalidUsername)
		case errors.Is(err, auth.ErrPasswordRequired):
			renderError(msgPasswordRequired)
		default:
			h.logger.Error("failed to create account", "error", err)
			renderError(msgGenericError)
		}
		return
	}

	if err := h.startSession(w, r, account); err != nil {
		h.logger.Error("failed to create session", "error", err)
		// Account exists, so let them sign in by hand
		http.Redirect(w, r, h.url("/sign_in/"), http.StatusSeeOther)
		return
	}

	h.logger.Info("account signed up", "username", account.Username)
	http.Redirect(w, r, h.url("/current/"), http.StatusSeeOther)
}

func (h *Handler) handleSignInPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, pageSignIn, http.StatusOK, signInData{
		pageData: h.page(r, "Sign in"),
		Next:     r.URL.Query().Get("next"),
	})
}

func (h *Handler) handleSignIn(w http.ResponseWriter, r *http.Request) {
	username := r.FormValue("username")
	password := r.FormValue("password")
	next := r.FormValue("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}

	renderError := func(msg string) {
		h.render(w, pageSignIn, http.StatusOK, signInData{
			pageData: h.page(r, "Sign in"),
			Error:    msg,
			Username: username,
			Next:     next,
		})
	}

	account, err := h.accounts.Authenticate(r.Context(), username, password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			renderError(msgBadCredentials)
			return
		}
		h.logger.Error("failed to authenticate", "error", err)
		renderError(msgGenericError)
		return
	}

	if err := h.startSession(w, r, account); err != nil {
		h.logger.Error("failed to create session", "error", err)
		renderError(msgGenericError)
		return
	}

	h.logger.Info("sign in successful", "username", username)
	http.Redirect(w, r, h.safeNext(next), http.StatusSeeOther)
}

// handleSignOut ends the session and returns to the landing page.
func (h *Handler) handleSignOut(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		if err := h.sessions.End(r.Context(), cookie.Value); err != nil {
			h.logger.Warn("failed to delete session", "error", err)
		}
	}
	h.clearSessionCookie(w, r)
	http.Redirect(w, r, h.url("/"), http.StatusSeeOther)
}

func (h *Handler) startSession(w http.ResponseWriter, r *http.Request, account *store.Account) error {
	value, expires, err := h.sessions.Start(r.Context(), account)
	if err != nil {
		return err
	}
	h.setSessionCookie(w, r, value, expires)
	return nil
}

// generateSecureToken generates a cryptographically secure random token
func generateSecureToken(bytes int) (string, error) {
	b := make([]byte, bytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
