package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/billing"
	"github.com/misqat/backend/internal/handler"
	"github.com/misqat/backend/internal/user"
)

// Mock implementations
type mockAuthService struct {
	mock.Mock
}

func (m *mockAuthService) Register(ctx context.Context, params auth.RegisterParams) (*auth.Session, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *mockAuthService) Login(ctx context.Context, email, password string) (*auth.Session, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*auth.Session), args.Error(1)
}

func (m *mockAuthService) Verify(token string) (string, error) {
	args := m.Called(token)
	return args.String(0), args.Error(1)
}

type mockBillingService struct {
	mock.Mock
}

func (m *mockBillingService) Subscribe(ctx context.Context, userID string, method billing.Method, paymentToken string) (*billing.SubscribeResult, error) {
	args := m.Called(ctx, userID, method, paymentToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.SubscribeResult), args.Error(1)
}

func (m *mockBillingService) Confirm(ctx context.Context, userID, subscriptionID string) (*billing.Record, error) {
	args := m.Called(ctx, userID, subscriptionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Record), args.Error(1)
}

func (m *mockBillingService) Cancel(ctx context.Context, userID string) (*billing.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Record), args.Error(1)
}

func (m *mockBillingService) Current(ctx context.Context, userID string) (*billing.Record, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Record), args.Error(1)
}

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) Create(ctx context.Context, u *user.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserStore) ByID(ctx context.Context, id string) (*user.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

func (m *mockUserStore) ByEmail(ctx context.Context, email string) (*user.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*user.User), args.Error(1)
}

// Test helpers

type testDeps struct {
	auth    *mockAuthService
	billing *mockBillingService
	users   *mockUserStore
	router  http.Handler
}

func newTestRouter(t *testing.T) *testDeps {
	t.Helper()
	d := &testDeps{
		auth:    new(mockAuthService),
		billing: new(mockBillingService),
		users:   new(mockUserStore),
	}
	d.router = handler.NewRouter(handler.RouterConfig{
		Auth:    d.auth,
		Billing: d.billing,
		Users:   d.users,
	})
	return d
}

func (d *testDeps) authenticated(userID string) {
	d.auth.On("Verify", "valid-token").Return(userID, nil)
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeBody(t, rec)
	errObj, ok := body["error"].(map[string]any)
	require.True(t, ok, "response has no error envelope: %s", rec.Body.String())
	code, _ := errObj["code"].(string)
	return code
}

func testSession() *auth.Session {
	u := user.New("amina@example.com", "hash", "Amina", user.GenderFemale, "guardian@example.com")
	return &auth.Session{
		Token:     "issued-token",
		ExpiresAt: time.Now().Add(time.Hour),
		User:      u,
	}
}

func TestRegisterEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.auth.On("Register", mock.Anything, mock.MatchedBy(func(p auth.RegisterParams) bool {
			return p.Email == "amina@example.com" && p.Gender == user.GenderFemale
		})).Return(testSession(), nil)

		rec := doJSON(t, d.router, http.MethodPost, "/auth/register", "", map[string]string{
			"email":         "amina@example.com",
			"password":      "passw0rd123",
			"name":          "Amina",
			"gender":        "female",
			"guardianEmail": "guardian@example.com",
		})

		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "issued-token", data["token"])
		assert.NotNil(t, data["user"])
	})

	t.Run("validation failure maps to 422", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		svc, err := auth.NewService(d.users, auth.Config{TokenSecret: "test-secret-key-0123456789abcdef"})
		require.NoError(t, err)
		router := handler.NewRouter(handler.RouterConfig{Auth: svc, Billing: d.billing, Users: d.users})

		rec := doJSON(t, router, http.MethodPost, "/auth/register", "", map[string]string{
			"email":    "not-an-email",
			"password": "short",
			"name":     "A",
			"gender":   "female",
		})

		require.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())
		assert.Equal(t, "validation_error", errorCode(t, rec))
	})

	t.Run("malformed body", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString("{broken"))
		rec := httptest.NewRecorder()
		d.router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", errorCode(t, rec))
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.auth.On("Register", mock.Anything, mock.Anything).Return(nil, auth.ErrEmailTaken)

		rec := doJSON(t, d.router, http.MethodPost, "/auth/register", "", map[string]string{
			"email": "amina@example.com", "password": "passw0rd123", "name": "Amina", "gender": "female",
			"guardianEmail": "guardian@example.com",
		})

		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "email_taken", errorCode(t, rec))
	})
}

func TestLoginEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("success", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.auth.On("Login", mock.Anything, "amina@example.com", "passw0rd123").Return(testSession(), nil)

		rec := doJSON(t, d.router, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "amina@example.com", "password": "passw0rd123",
		})

		require.Equal(t, http.StatusOK, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "issued-token", data["token"])

		profile := data["user"].(map[string]any)
		assert.Equal(t, "trial", profile["subscriptionStatus"])
		assert.NotEmpty(t, profile["trialEndDate"])
	})

	t.Run("bad credentials", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.auth.On("Login", mock.Anything, mock.Anything, mock.Anything).Return(nil, auth.ErrInvalidCredentials)

		rec := doJSON(t, d.router, http.MethodPost, "/auth/login", "", map[string]string{
			"email": "amina@example.com", "password": "wrong",
		})

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "invalid_credentials", errorCode(t, rec))
	})
}

func TestAuthMiddleware(t *testing.T) {
	t.Parallel()

	t.Run("missing token", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		rec := doJSON(t, d.router, http.MethodGet, "/me", "", nil)

		require.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", errorCode(t, rec))
	})

	t.Run("rejected token", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.auth.On("Verify", "bad-token").Return("", auth.ErrInvalidToken)

		rec := doJSON(t, d.router, http.MethodGet, "/me", "bad-token", nil)
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches profile", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		u := user.New("amina@example.com", "hash", "Amina", user.GenderFemale, "guardian@example.com")
		d.auth.On("Verify", "valid-token").Return(u.ID, nil)
		d.users.On("ByID", mock.Anything, u.ID).Return(u, nil)

		rec := doJSON(t, d.router, http.MethodGet, "/me", "valid-token", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "amina@example.com", data["email"])
		assert.Equal(t, true, data["hasActiveSubscription"])
	})
}

func TestSubscribeEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("direct charge activates immediately", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Subscribe", mock.Anything, "user-1", billing.MethodDirectCharge, "pm_123").
			Return(&billing.SubscribeResult{Record: billing.Record{Status: billing.StatusActive}}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/subscribe", "valid-token", map[string]string{
			"method": "stripe", "paymentToken": "pm_123",
		})

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		data := decodeBody(t, rec)["data"].(map[string]any)
		sub := data["subscription"].(map[string]any)
		assert.Equal(t, "active", sub["status"])
	})

	t.Run("recurring returns approval URL with 202", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Subscribe", mock.Anything, "user-1", billing.MethodRecurring, "").
			Return(&billing.SubscribeResult{
				Record: billing.Record{
					Status:    billing.StatusTrial,
					Reference: &billing.ProviderReference{Kind: billing.RefSubscription, ID: "I-SUB1"},
				},
				ApprovalURL: "https://paypal.example/approve/I-SUB1",
			}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/subscribe", "valid-token", map[string]string{
			"method": "paypal",
		})

		require.Equal(t, http.StatusAccepted, rec.Code)
		data := decodeBody(t, rec)["data"].(map[string]any)
		assert.Equal(t, "https://paypal.example/approve/I-SUB1", data["approvalUrl"])
		sub := data["subscription"].(map[string]any)
		assert.Equal(t, "trial", sub["status"])
	})

	t.Run("unknown method", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/subscribe", "valid-token", map[string]string{
			"method": "cash",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unknown_payment_method", errorCode(t, rec))
	})

	t.Run("declined payment maps to 400", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Subscribe", mock.Anything, "user-1", billing.MethodDirectCharge, "pm_bad").
			Return(nil, billing.ErrProviderRejected)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/subscribe", "valid-token", map[string]string{
			"method": "stripe", "paymentToken": "pm_bad",
		})

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "payment_rejected", errorCode(t, rec))
	})

	t.Run("provider outage maps to 502", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Subscribe", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return(nil, billing.ErrProviderUnavailable)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/subscribe", "valid-token", map[string]string{
			"method": "paypal",
		})

		require.Equal(t, http.StatusBadGateway, rec.Code)
		assert.Equal(t, "provider_unavailable", errorCode(t, rec))
	})
}

func TestConfirmEndpoint(t *testing.T) {
	t.Parallel()

	t.Run("activated", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Confirm", mock.Anything, "user-1", "I-SUB1").
			Return(&billing.Record{Status: billing.StatusActive}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/confirm", "valid-token", map[string]string{
			"subscriptionId": "I-SUB1",
		})
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("still pending maps to 409", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Confirm", mock.Anything, "user-1", "I-SUB1").Return(nil, billing.ErrApprovalPending)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/confirm", "valid-token", map[string]string{
			"subscriptionId": "I-SUB1",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "approval_pending", errorCode(t, rec))
	})

	t.Run("missing subscription id maps to 400", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Confirm", mock.Anything, "user-1", "").Return(nil, billing.ErrMissingSubscriptionID)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/confirm", "valid-token", map[string]string{})
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "missing_subscription_id", errorCode(t, rec))
	})

	t.Run("stale subscription id maps to 409", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Confirm", mock.Anything, "user-1", "I-OLD").Return(nil, billing.ErrSubscriptionMismatch)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/confirm", "valid-token", map[string]string{
			"subscriptionId": "I-OLD",
		})
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "subscription_mismatch", errorCode(t, rec))
	})
}

func TestCancelAndCurrentEndpoints(t *testing.T) {
	t.Parallel()

	t.Run("cancel", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Cancel", mock.Anything, "user-1").
			Return(&billing.Record{Status: billing.StatusInactive}, nil)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/cancel", "valid-token", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		data := decodeBody(t, rec)["data"].(map[string]any)
		sub := data["subscription"].(map[string]any)
		assert.Equal(t, "inactive", sub["status"])
	})

	t.Run("current", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Current", mock.Anything, "user-1").
			Return(&billing.Record{Status: billing.StatusTrial}, nil)

		rec := doJSON(t, d.router, http.MethodGet, "/subscription", "valid-token", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("state conflict maps to 409", func(t *testing.T) {
		t.Parallel()

		d := newTestRouter(t)
		d.authenticated("user-1")
		d.billing.On("Cancel", mock.Anything, "user-1").Return(nil, billing.ErrStateConflict)

		rec := doJSON(t, d.router, http.MethodPost, "/subscription/cancel", "valid-token", nil)
		require.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, "state_conflict", errorCode(t, rec))
	})
}

func TestHealthEndpoint(t *testing.T) {
	t.Parallel()

	d := newTestRouter(t)
	rec := doJSON(t, d.router, http.MethodGet, "/health", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ALIVE", rec.Body.String())
}
