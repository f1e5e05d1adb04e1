// Package auth provides account registration, password sign-in and browser
// sessions for todo-list.
//
// # Accounts
//
// Accounts are created with a username, a password and its confirmation.
// Passwords are hashed with bcrypt. Authenticate performs a bcrypt
// comparison even for unknown usernames so response time does not reveal
// which usernames exist.
//
// # Sessions
//
// Signing in creates a server-side session record and hands the browser an
// HS256 JWT naming the account (sub) and session (sid). A cookie is honored
// only while:
//
//   - its signature verifies with the configured secret
//   - its exp claim is in the future
//   - the session it names still exists in the SessionStore
//
// Signing out deletes the session, so a copied cookie stops working at once.
//
// # Identity
//
// Handlers receive the caller as an *Identity stored in the request context:
//
//	id := auth.FromContext(r.Context())
//	items, err := svc.ListOpen(ctx, id.AccountID)
package auth
