package notification

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/pkg/email"
	"github.com/misqat/backend/pkg/logger"
)

// Service implements billing.Notifier over an email sender.
type Service struct {
	sender  email.Sender
	log     *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

// Option configures the notification service.
type Option func(*Service)

// WithLogger sets the structured logger for delivery failures.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithSendTimeout bounds each background delivery attempt.
func WithSendTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates the notification service. Panics on a nil sender to
// fail fast during initialization.
func NewService(sender email.Sender, opts ...Option) *Service {
	if sender == nil {
		panic("notification: email sender is required")
	}

	s := &Service{
		sender:  sender,
		log:     slog.New(slog.DiscardHandler),
		timeout: 15 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// NotifyUser emails the member about a transition on their subscription.
func (s *Service) NotifyUser(ctx context.Context, acct billing.Account, ev billing.Event) error {
	msg, err := memberMessage(acct, ev)
	if err != nil {
		return err
	}
	s.dispatch(ctx, acct.ID, msg)
	return nil
}

// NotifyGuardian emails the member's guardian about the same transition.
func (s *Service) NotifyGuardian(ctx context.Context, acct billing.Account, ev billing.Event) error {
	if acct.GuardianEmail == "" {
		return fmt.Errorf("notification: account %s has no guardian email", acct.ID)
	}
	msg, err := guardianMessage(acct, ev)
	if err != nil {
		return err
	}
	s.dispatch(ctx, acct.ID, msg)
	return nil
}

// Wait blocks until all in-flight deliveries finish. Call on shutdown so
// accepted notifications are not dropped.
func (s *Service) Wait() {
	s.wg.Wait()
}

// dispatch hands the message to a background goroutine. The context is
// detached from the request so an already-sent HTTP response cannot cancel
// the delivery.
func (s *Service) dispatch(ctx context.Context, userID string, msg email.Message) {
	ctx = context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		if err := s.sender.Send(ctx, msg); err != nil {
			s.log.ErrorContext(ctx, "failed to deliver notification email",
				logger.Error(err),
				logger.UserID(userID),
				slog.String("tag", msg.Tag),
			)
		}
	}()
}
