// Package server wires the todo-list process together.
//
// New opens the configured backend (SQLite, PostgreSQL or MongoDB), the
// session store (the same backend or Redis), builds the todo service and
// the web UI, and mounts them on one router next to the health endpoints:
//
//	GET /health        liveness, always 200
//	GET /health/ready  200 when the store (and Redis, if used) answers a ping
//
// Every request gets an X-Request-Id (taken from the request or generated)
// and one access log line.
//
// Run listens on server.http_addr, or on a Tailscale node when
// tailscale.enabled is set, and blocks until the context is canceled.
// Expired sessions are purged at startup and then hourly while running.
package server
