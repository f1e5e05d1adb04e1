// Package web provides the HTML interface for todo-list.
//
// # Routes
//
// All pages live under Config.BasePath (default "/todos"):
//
//	GET  /                      redirect to the base path
//	GET  /todos/                landing page, or redirect to current/ when signed in
//	GET  /todos/current/        open items
//	GET  /todos/completed/      completed items
//	GET  /todos/{id}/           item detail, description rendered as Markdown
//	GET  /todos/new/            new item form
//	POST /todos/new/
//	GET  /todos/{id}/edit/      edit form
//	POST /todos/{id}/edit/
//	POST /todos/{id}/complete/
//	POST /todos/{id}/delete/
//	GET  /todos/sign_up/        registration
//	POST /todos/sign_up/
//	GET  /todos/sign_in/        password sign-in, honors ?next=
//	POST /todos/sign_in/
//	POST /todos/sign_out/       end the session
//
// Item pages redirect guests to sign_in/?next=<path>. Paths without the
// trailing slash redirect to the slashed route with 301, or 308 for
// non-GET requests so a form post keeps its body.
//
// # Security
//
// Sessions are HttpOnly cookies holding a signed token (see package auth).
// Every POST must carry a csrf_token form field (or X-CSRF-Token header)
// equal to the CSRF cookie; otherwise the request is rejected with 403.
//
// Templates are embedded and use html/template, so all user content is
// escaped. Markdown rendering drops raw HTML.
package web
