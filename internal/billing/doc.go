// Package billing owns the membership subscription lifecycle. It reconciles
// the locally stored subscription record against two payment providers: a
// direct-charge processor that settles synchronously and a recurring
// provider whose subscriptions activate only after the member approves them
// on the provider's site.
//
// All state transitions go through a compare-and-swap on the stored record,
// so two concurrent requests for the same member cannot both win; the loser
// gets ErrStateConflict and any provider-side resource it created is
// cancelled best effort.
package billing
