// Package handler exposes the HTTP API: registration, login, profile, and
// the subscription lifecycle endpoints. Responses share one JSON envelope,
// and every error is rendered as {"error": {"code", "message"}} with a
// stable machine-readable code.
package handler
