package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/misqat/backend/pkg/logger"
)

// Plan describes the single paid plan the service sells. Loaded from the
// environment so price changes do not need a deploy of new code.
type Plan struct {
	PriceCents  int64  `env:"PLAN_PRICE_CENTS" envDefault:"2900"`
	Currency    string `env:"PLAN_CURRENCY" envDefault:"usd"`
	Description string `env:"PLAN_DESCRIPTION" envDefault:"Misqat monthly membership"`
}

// SubscribeResult is what a successful Subscribe returns. ApprovalURL is set
// only for the recurring method, where the member still has to approve the
// subscription on the provider's site.
type SubscribeResult struct {
	Record      Record
	ApprovalURL string
}

// Service defines the public interface for subscription lifecycle
// management.
type Service interface {
	// Subscribe starts a paid subscription for the member using the given
	// payment method. Direct charge settles synchronously and activates the
	// subscription; recurring leaves it pending until Confirm observes the
	// member's approval.
	Subscribe(ctx context.Context, userID string, method Method, paymentToken string) (*SubscribeResult, error)

	// Confirm polls the recurring provider for the member's in-flight
	// subscription and activates it once approved. The subscription id the
	// client got back from Subscribe must match the stored reference, so a
	// retry with a stale id is detected instead of silently confirming a
	// different subscription. Idempotent: confirming an already-active
	// subscription with the same id is a no-op success.
	Confirm(ctx context.Context, userID, subscriptionID string) (*Record, error)

	// Cancel ends the member's subscription. Idempotent: cancelling an
	// already-cancelled or inactive subscription is a no-op success.
	Cancel(ctx context.Context, userID string) (*Record, error)

	// Current returns the member's subscription record with a run-out
	// trial already normalized to inactive.
	Current(ctx context.Context, userID string) (*Record, error)
}

type service struct {
	store     Store
	direct    Provider // one-time charges
	recurring Provider // provider-managed subscriptions
	notifier  Notifier
	plan      Plan
	log       *slog.Logger
	now       func() time.Time
}

// NewService creates a new Service. Panics if store or either provider is
// nil to fail fast during initialization.
func NewService(store Store, direct, recurring Provider, opts ...ServiceOption) Service {
	if store == nil {
		panic("billing: Store is required")
	}
	if direct == nil {
		panic("billing: direct-charge Provider is required")
	}
	if recurring == nil {
		panic("billing: recurring Provider is required")
	}

	s := &service{
		store:     store,
		direct:    direct,
		recurring: recurring,
		plan: Plan{
			PriceCents:  2900,
			Currency:    "usd",
			Description: "Misqat monthly membership",
		},
		log: slog.New(slog.DiscardHandler),
		now: func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *service) Subscribe(ctx context.Context, userID string, method Method, paymentToken string) (*SubscribeResult, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := acct.Subscription
	if rec.AwaitingApproval() {
		return nil, ErrApprovalPending
	}
	switch rec.EffectiveStatus(s.now()) {
	case StatusActive:
		return nil, ErrAlreadySubscribed
	case StatusPendingCancellation:
		return nil, fmt.Errorf("%w: cancellation in progress", ErrStateConflict)
	}

	switch method {
	case MethodDirectCharge:
		return s.subscribeDirect(ctx, acct, paymentToken)
	case MethodRecurring:
		return s.subscribeRecurring(ctx, acct)
	default:
		return nil, ErrUnknownMethod
	}
}

// subscribeDirect charges the member once and activates the subscription in
// the same request. The charge happens before the CAS write, so a losing
// race leaves a settled charge behind; that is logged loudly because it
// needs a manual refund.
func (s *service) subscribeDirect(ctx context.Context, acct *Account, paymentToken string) (*SubscribeResult, error) {
	if paymentToken == "" {
		return nil, ErrMissingPaymentToken
	}

	res, err := s.direct.Charge(ctx, ChargeRequest{
		UserID:       acct.ID,
		Email:        acct.Email,
		PaymentToken: paymentToken,
		Amount:       s.plan.PriceCents,
		Currency:     s.plan.Currency,
		Description:  s.plan.Description,
	})
	if err != nil {
		s.notify(ctx, *acct, acct.Subscription, EventPaymentFailed)
		return nil, err
	}
	if res.Status != ProviderApproved {
		// A direct charge either settles now or it doesn't; anything the
		// provider left unsettled is treated as a decline.
		s.notify(ctx, *acct, acct.Subscription, EventPaymentFailed)
		return nil, fmt.Errorf("%w: charge ended in state %s", ErrProviderRejected, res.Status)
	}

	newRec := s.activeRecord(acct.Subscription, res.Reference)
	if err := s.store.UpdateRecord(ctx, acct.ID, acct.Subscription, newRec); err != nil {
		if errors.Is(err, ErrStateConflict) {
			s.log.ErrorContext(ctx, "settled charge lost subscription race, manual refund needed",
				logger.UserID(acct.ID),
				logger.Provider(string(MethodDirectCharge)),
				slog.String("charge_id", res.Reference.ID),
			)
		}
		return nil, err
	}

	s.notify(ctx, *acct, newRec, EventActivated)
	return &SubscribeResult{Record: newRec}, nil
}

// subscribeRecurring creates the provider-side subscription and records its
// reference while the member goes off to approve it. The stored status does
// not change: a trialing member keeps their trial until Confirm observes the
// approval, so abandoning the redirect costs nothing. If the CAS write loses,
// the fresh provider subscription is cancelled best effort so it cannot
// activate later.
func (s *service) subscribeRecurring(ctx context.Context, acct *Account) (*SubscribeResult, error) {
	handle, err := s.recurring.CreateSubscription(ctx, SubscriptionRequest{
		UserID: acct.ID,
		Email:  acct.Email,
		Name:   acct.Name,
	})
	if err != nil {
		s.notify(ctx, *acct, acct.Subscription, EventPaymentFailed)
		return nil, err
	}

	newRec := s.pendingRecord(acct.Subscription, handle.Reference)
	if err := s.store.UpdateRecord(ctx, acct.ID, acct.Subscription, newRec); err != nil {
		if errors.Is(err, ErrStateConflict) {
			s.compensateSubscription(ctx, acct.ID, handle.Reference)
		}
		return nil, err
	}

	return &SubscribeResult{Record: newRec, ApprovalURL: handle.ApprovalURL}, nil
}

func (s *service) Confirm(ctx context.Context, userID, subscriptionID string) (*Record, error) {
	if subscriptionID == "" {
		return nil, ErrMissingSubscriptionID
	}

	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := acct.Subscription
	if rec.Status == StatusActive && rec.Reference != nil && rec.Reference.Kind == RefSubscription {
		// Confirmation already happened, possibly via a concurrent poll.
		if rec.Reference.ID != subscriptionID {
			return nil, ErrSubscriptionMismatch
		}
		return &rec, nil
	}
	if !rec.AwaitingApproval() {
		return nil, ErrNothingToConfirm
	}
	if rec.Reference.ID != subscriptionID {
		return nil, ErrSubscriptionMismatch
	}

	status, err := s.subscriptionStatus(ctx, *rec.Reference)
	if err != nil {
		s.notify(ctx, *acct, rec, EventPaymentFailed)
		return nil, err
	}

	switch status {
	case ProviderApproved:
		newRec := s.activeRecord(rec, *rec.Reference)
		if err := s.store.UpdateRecord(ctx, acct.ID, rec, newRec); err != nil {
			if errors.Is(err, ErrStateConflict) {
				// The other poll won; report its outcome instead of failing.
				return s.Current(ctx, userID)
			}
			return nil, err
		}
		s.notify(ctx, *acct, newRec, EventActivated)
		return &newRec, nil

	case ProviderPending:
		return nil, ErrApprovalPending

	case ProviderRejected, ProviderCanceled:
		// Retire the dead reference but keep the status and any remaining
		// trial untouched: a failed approval must not cost the member
		// anything they had before subscribing.
		newRec := s.clearedPendingRecord(rec)
		if err := s.store.UpdateRecord(ctx, acct.ID, rec, newRec); err != nil && !errors.Is(err, ErrStateConflict) {
			return nil, err
		}
		s.notify(ctx, *acct, newRec, EventPaymentFailed)
		return nil, fmt.Errorf("%w: provider reported %s", ErrProviderRejected, status)

	default:
		s.notify(ctx, *acct, rec, EventPaymentFailed)
		return nil, fmt.Errorf("%w: provider reported state %s", ErrProviderUnavailable, status)
	}
}

func (s *service) Cancel(ctx context.Context, userID string) (*Record, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := acct.Subscription
	switch rec.Status {
	case StatusInactive, StatusPendingCancellation:
		// Already over, unless a fresh unapproved subscription sits on an
		// otherwise inactive record; that one still needs tearing down.
		if !rec.AwaitingApproval() {
			return &rec, nil
		}
	}

	// A provider-managed subscription must be stopped provider-side before
	// the local record changes, otherwise the provider keeps billing.
	recurring := rec.Reference != nil && rec.Reference.Kind == RefSubscription
	if recurring {
		if err := s.cancelSubscription(ctx, *rec.Reference); err != nil {
			return nil, err
		}
	}

	var newRec Record
	if recurring && rec.Status == StatusActive {
		newRec = s.pendingCancellationRecord(rec)
	} else {
		// Trials, unapproved subscriptions and one-time charges have no
		// remaining provider obligation; they end right away.
		newRec = s.inactiveRecord(rec)
	}

	if err := s.store.UpdateRecord(ctx, acct.ID, rec, newRec); err != nil {
		return nil, err
	}

	s.notify(ctx, *acct, newRec, EventCanceled)
	return &newRec, nil
}

func (s *service) Current(ctx context.Context, userID string) (*Record, error) {
	acct, err := s.store.Account(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := acct.Subscription
	rec.Status = rec.EffectiveStatus(s.now())
	return &rec, nil
}

// subscriptionStatus polls the recurring provider, retrying transient
// failures. Safe because the status read is idempotent.
func (s *service) subscriptionStatus(ctx context.Context, ref ProviderReference) (ProviderStatus, error) {
	var status ProviderStatus
	err := retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond)), func(ctx context.Context) error {
		var err error
		status, err = s.recurring.SubscriptionStatus(ctx, ref)
		if errors.Is(err, ErrProviderUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
	return status, err
}

// cancelSubscription cancels provider-side with retries; adapters treat an
// already-cancelled subscription as success, so retrying is safe.
func (s *service) cancelSubscription(ctx context.Context, ref ProviderReference) error {
	return retry.Do(ctx, retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond)), func(ctx context.Context) error {
		err := s.recurring.CancelSubscription(ctx, ref)
		if errors.Is(err, ErrProviderUnavailable) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// compensateSubscription tears down a provider subscription created by a
// request that lost the CAS race. Best effort: the subscription is still
// unapproved, so even a failed teardown cannot charge anyone.
func (s *service) compensateSubscription(ctx context.Context, userID string, ref ProviderReference) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()

	if err := s.recurring.CancelSubscription(ctx, ref); err != nil {
		s.log.WarnContext(ctx, "failed to cancel orphaned provider subscription",
			logger.Error(err),
			logger.UserID(userID),
			slog.String("subscription_id", ref.ID),
		)
	}
}

// notify fans a lifecycle event out to the member and, when the account
// carries one, their guardian. Failures are logged and swallowed so
// notifications can never fail a payment flow.
func (s *service) notify(ctx context.Context, acct Account, rec Record, ev Event) {
	if s.notifier == nil {
		return
	}

	acct.Subscription = rec
	if err := s.notifier.NotifyUser(ctx, acct, ev); err != nil {
		s.log.ErrorContext(ctx, "failed to notify member",
			logger.Error(err), logger.UserID(acct.ID), logger.Event(string(ev)))
	}
	if acct.GuardianEmail == "" {
		return
	}
	if err := s.notifier.NotifyGuardian(ctx, acct, ev); err != nil {
		s.log.ErrorContext(ctx, "failed to notify guardian",
			logger.Error(err), logger.UserID(acct.ID), logger.Event(string(ev)))
	}
}

// activeRecord builds the record for a freshly settled payment. Trial dates
// ride along untouched; only cancellation clears them.
func (s *service) activeRecord(prev Record, ref ProviderReference) Record {
	now := s.now()
	next := now.Add(Interval)
	return Record{
		Status:         StatusActive,
		Reference:      &ref,
		TrialStartedAt: prev.TrialStartedAt,
		TrialEndsAt:    prev.TrialEndsAt,
		StartedAt:      &now,
		NextBillingAt:  &next,
		UpdatedAt:      now,
	}
}

// pendingRecord attaches a freshly created, still-unapproved subscription
// reference to the record the member already has. Status and trial dates
// stay as they were; any retired reference from an earlier attempt is
// replaced.
func (s *service) pendingRecord(prev Record, ref ProviderReference) Record {
	return Record{
		Status:         prev.Status,
		Reference:      &ref,
		TrialStartedAt: prev.TrialStartedAt,
		TrialEndsAt:    prev.TrialEndsAt,
		UpdatedAt:      s.now(),
	}
}

// clearedPendingRecord drops a rejected unapproved reference, restoring the
// record the member had before they tried to subscribe.
func (s *service) clearedPendingRecord(prev Record) Record {
	return Record{
		Status:         prev.Status,
		TrialStartedAt: prev.TrialStartedAt,
		TrialEndsAt:    prev.TrialEndsAt,
		UpdatedAt:      s.now(),
	}
}

func (s *service) inactiveRecord(prev Record) Record {
	now := s.now()
	return Record{
		Status:     StatusInactive,
		Reference:  prev.Reference,
		StartedAt:  prev.StartedAt,
		CanceledAt: &now,
		UpdatedAt:  now,
	}
}

func (s *service) pendingCancellationRecord(prev Record) Record {
	now := s.now()
	return Record{
		Status:     StatusPendingCancellation,
		Reference:  prev.Reference,
		StartedAt:  prev.StartedAt,
		CanceledAt: &now,
		UpdatedAt:  now,
	}
}
