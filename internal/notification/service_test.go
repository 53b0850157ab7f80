package notification_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/internal/notification"
	"github.com/misqat/backend/pkg/email"
)

type captureSender struct {
	mu   sync.Mutex
	sent []email.Message
}

func (c *captureSender) Send(_ context.Context, msg email.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func (c *captureSender) messages() []email.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]email.Message(nil), c.sent...)
}

func testAccount() billing.Account {
	return billing.Account{
		ID:            "user-1",
		Email:         "member@example.com",
		Name:          "Amina",
		Gender:        "female",
		GuardianEmail: "guardian@example.com",
	}
}

func TestNotifyUser(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	svc := notification.NewService(sender)

	require.NoError(t, svc.NotifyUser(context.Background(), testAccount(), billing.EventActivated))
	svc.Wait()

	msgs := sender.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "member@example.com", msgs[0].To)
	assert.Equal(t, "subscription-activated", msgs[0].Tag)
	assert.Contains(t, msgs[0].BodyHTML, "Amina")
}

func TestNotifyGuardian(t *testing.T) {
	t.Parallel()

	t.Run("delivers to guardian", func(t *testing.T) {
		t.Parallel()

		sender := &captureSender{}
		svc := notification.NewService(sender)

		require.NoError(t, svc.NotifyGuardian(context.Background(), testAccount(), billing.EventCanceled))
		svc.Wait()

		msgs := sender.messages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "guardian@example.com", msgs[0].To)
		assert.Equal(t, "guardian-subscription-canceled", msgs[0].Tag)
	})

	t.Run("fails without guardian email", func(t *testing.T) {
		t.Parallel()

		svc := notification.NewService(&captureSender{})

		acct := testAccount()
		acct.GuardianEmail = ""
		assert.Error(t, svc.NotifyGuardian(context.Background(), acct, billing.EventCanceled))
	})
}

func TestPaymentFailedTemplates(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	svc := notification.NewService(sender)

	require.NoError(t, svc.NotifyUser(context.Background(), testAccount(), billing.EventPaymentFailed))
	require.NoError(t, svc.NotifyGuardian(context.Background(), testAccount(), billing.EventPaymentFailed))
	svc.Wait()

	msgs := sender.messages()
	require.Len(t, msgs, 2)
	tags := []string{msgs[0].Tag, msgs[1].Tag}
	assert.ElementsMatch(t, []string{"payment-failed", "guardian-payment-failed"}, tags)
	for _, msg := range msgs {
		assert.Contains(t, msg.BodyHTML, "could not")
	}
}

func TestUnknownEvent(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	svc := notification.NewService(sender)

	assert.Error(t, svc.NotifyUser(context.Background(), testAccount(), billing.Event("mystery")))
	svc.Wait()
	assert.Empty(t, sender.messages())
}

func TestDispatchSurvivesCancelledRequest(t *testing.T) {
	t.Parallel()

	sender := &captureSender{}
	svc := notification.NewService(sender)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, svc.NotifyUser(ctx, testAccount(), billing.EventActivated))
	cancel()
	svc.Wait()

	assert.Len(t, sender.messages(), 1)
}
