// Package logger provides slog construction helpers and typed attribute
// constructors for the identifiers this service logs most: users, providers,
// subscriptions, and lifecycle events.
//
// Services receive a *slog.Logger through their options and never construct
// one themselves; cmd/server builds the process logger from environment
// configuration and hands it down.
package logger
