// Package validator provides rule-based request validation. Handlers build a
// slice of rules with the field constructors and run them through Apply; the
// resulting ValidationErrors carry per-field messages the HTTP layer renders
// into the error envelope.
package validator
