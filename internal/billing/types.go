package billing

import "time"

// Interval is the fixed length of both the free trial and one paid billing
// period. Plans are monthly only, counted as 30 calendar days.
const Interval = 30 * 24 * time.Hour

// Status represents the current state of a member's subscription record.
type Status string

const (
	StatusTrial               Status = "trial"
	StatusActive              Status = "active"
	StatusPendingCancellation Status = "pending_cancellation"
	StatusInactive            Status = "inactive"
)

// RefKind distinguishes which provider object a reference points at. A record
// holds at most one reference, never both kinds.
type RefKind string

const (
	// RefCharge is a one-time charge settled by the direct-charge provider.
	RefCharge RefKind = "charge"
	// RefSubscription is a recurring subscription managed provider-side.
	RefSubscription RefKind = "subscription"
)

// ProviderReference identifies the provider-side object backing a
// subscription record.
type ProviderReference struct {
	Kind RefKind `bson:"kind" json:"kind"`
	ID   string  `bson:"id" json:"id"`
}

// IsZero reports whether the reference points at nothing.
func (r ProviderReference) IsZero() bool {
	return r.Kind == "" && r.ID == ""
}

// Record is the stored subscription state for one member. It is embedded in
// the member's account document and updated only via compare-and-swap.
type Record struct {
	Status    Status             `bson:"status" json:"status"`
	Reference *ProviderReference `bson:"reference,omitempty" json:"reference,omitempty"`

	TrialStartedAt *time.Time `bson:"trialStartedAt,omitempty" json:"trialStartedAt,omitempty"`
	TrialEndsAt    *time.Time `bson:"trialEndsAt,omitempty" json:"trialEndsAt,omitempty"`

	StartedAt     *time.Time `bson:"startedAt,omitempty" json:"startedAt,omitempty"`
	NextBillingAt *time.Time `bson:"nextBillingAt,omitempty" json:"nextBillingAt,omitempty"`
	CanceledAt    *time.Time `bson:"canceledAt,omitempty" json:"canceledAt,omitempty"`

	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// NewTrialRecord returns the record every member starts with at
// registration: a free trial running one full interval from now.
func NewTrialRecord(now time.Time) Record {
	now = now.UTC()
	ends := now.Add(Interval)
	return Record{
		Status:         StatusTrial,
		TrialStartedAt: &now,
		TrialEndsAt:    &ends,
		UpdatedAt:      now,
	}
}

// IsTrialing reports whether the record is a trial that has not run out yet.
func (r Record) IsTrialing(now time.Time) bool {
	return r.Status == StatusTrial && r.TrialEndsAt != nil && now.Before(*r.TrialEndsAt)
}

// IsActive reports whether the member holds a paid, non-cancelled
// subscription.
func (r Record) IsActive() bool {
	return r.Status == StatusActive
}

// Entitled reports whether the member currently gets member features. Paid
// members and members inside their trial window qualify; a pending
// cancellation drops entitlement immediately.
func (r Record) Entitled(now time.Time) bool {
	return r.IsActive() || r.IsTrialing(now)
}

// AwaitingApproval reports whether a recurring subscription was created
// provider-side but the member has not approved it yet. The phase is derived
// from the reference, never stored as its own status: the record keeps its
// previous status (and any remaining trial) until confirmation lands, so a
// member who abandons the approval redirect loses nothing.
func (r Record) AwaitingApproval() bool {
	return r.Reference != nil && r.Reference.Kind == RefSubscription &&
		r.StartedAt == nil && r.CanceledAt == nil
}

// EffectiveStatus normalizes a run-out trial to inactive without writing
// anything. Trial expiry is lazy: nothing rewrites the record at the moment
// the trial ends, so reads apply the downgrade on the fly.
func (r Record) EffectiveStatus(now time.Time) Status {
	if r.Status == StatusTrial && !r.IsTrialing(now) {
		return StatusInactive
	}
	return r.Status
}
