// Package httpserver wraps net/http with graceful shutdown, sane timeout
// defaults, and environment-driven configuration. It is transport plumbing
// only; routing lives with the caller.
package httpserver
