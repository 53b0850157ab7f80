// Package notification turns subscription lifecycle events into
// transactional emails for members and their guardians. Delivery is
// asynchronous: a dispatch call validates the message and returns, and the
// actual send happens on a background goroutine so a slow mail provider
// never delays a payment response.
package notification
