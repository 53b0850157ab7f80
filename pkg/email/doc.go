// Package email sends transactional mail through Postmark, with a
// log-only sender for development. Callers depend on the Sender interface;
// which implementation they get is a deployment decision made at startup.
package email
