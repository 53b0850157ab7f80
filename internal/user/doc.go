// Package user defines the member account entity and its MongoDB storage.
// The subscription record lives embedded in the account document so the
// lifecycle's compare-and-swap is a single-document conditional update, which
// MongoDB guarantees to be atomic.
package user
