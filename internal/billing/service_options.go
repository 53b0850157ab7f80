package billing

import (
	"log/slog"
	"time"
)

// ServiceOption configures a Service instance.
type ServiceOption func(*service)

// WithNotifier wires lifecycle notifications. Without it transitions happen
// silently, which is what most tests want.
func WithNotifier(n Notifier) ServiceOption {
	return func(s *service) {
		s.notifier = n
	}
}

// WithLogger sets the structured logger used for conflict and notification
// failures.
func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *service) {
		if log != nil {
			s.log = log
		}
	}
}

// WithPlan overrides the default plan pricing.
func WithPlan(plan Plan) ServiceOption {
	return func(s *service) {
		if plan.PriceCents > 0 && plan.Currency != "" {
			s.plan = plan
		}
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) ServiceOption {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}
