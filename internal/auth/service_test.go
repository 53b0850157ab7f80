package auth_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/user"
	"github.com/misqat/backend/pkg/validator"
)

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

func newTestService(t *testing.T, store user.Store) auth.Service {
	t.Helper()
	svc, err := auth.NewService(store, auth.Config{TokenSecret: "test-secret-key-0123456789abcdef"},
		auth.WithBcryptCost(bcrypt.MinCost))
	require.NoError(t, err)
	return svc
}

func registerParams() auth.RegisterParams {
	return auth.RegisterParams{
		Email:    "amina@example.com",
		Password: "passw0rd123",
		Name:     "Amina",
		Gender:   user.GenderFemale,

		GuardianEmail: "guardian@example.com",
	}
}

func TestRegister(t *testing.T) {
	t.Parallel()

	t.Run("creates trial member and returns session", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
			return u.Email == "amina@example.com" &&
				u.GuardianEmail == "guardian@example.com" &&
				u.PasswordHash != "" && u.PasswordHash != "passw0rd123"
		})).Return(nil)

		svc := newTestService(t, store)
		sess, err := svc.Register(context.Background(), registerParams())
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)
		assert.True(t, sess.User.HasActiveSubscription)

		id, err := svc.Verify(sess.Token)
		require.NoError(t, err)
		assert.Equal(t, sess.User.ID, id)

		store.AssertExpectations(t)
	})

	t.Run("female member without guardian fails validation", func(t *testing.T) {
		t.Parallel()

		params := registerParams()
		params.GuardianEmail = ""

		svc := newTestService(t, new(mockUserStore))
		_, err := svc.Register(context.Background(), params)
		require.Error(t, err)
		assert.Contains(t, validator.Extract(err).Fields(), "guardianEmail")
	})

	t.Run("male member guardian email is dropped", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("Create", mock.Anything, mock.MatchedBy(func(u *user.User) bool {
			return u.Gender == user.GenderMale && u.GuardianEmail == ""
		})).Return(nil)

		params := registerParams()
		params.Gender = user.GenderMale
		params.GuardianEmail = "sneaky@example.com"

		svc := newTestService(t, store)
		_, err := svc.Register(context.Background(), params)
		require.NoError(t, err)

		store.AssertExpectations(t)
	})

	t.Run("duplicate email", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("Create", mock.Anything, mock.Anything).Return(user.ErrEmailTaken)

		svc := newTestService(t, store)
		_, err := svc.Register(context.Background(), registerParams())
		assert.ErrorIs(t, err, auth.ErrEmailTaken)
	})

	t.Run("weak password", func(t *testing.T) {
		t.Parallel()

		params := registerParams()
		params.Password = "short"

		svc := newTestService(t, new(mockUserStore))
		_, err := svc.Register(context.Background(), params)
		require.Error(t, err)
		assert.Contains(t, validator.Extract(err).Fields(), "password")
	})
}

func TestLogin(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("passw0rd123"), bcrypt.MinCost)
	require.NoError(t, err)
	member := user.New("amina@example.com", string(hash), "Amina", user.GenderFemale, "guardian@example.com")

	t.Run("valid credentials", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("ByEmail", mock.Anything, "amina@example.com").Return(member, nil)

		svc := newTestService(t, store)
		sess, err := svc.Login(context.Background(), "amina@example.com", "passw0rd123")
		require.NoError(t, err)
		assert.NotEmpty(t, sess.Token)

		id, err := svc.Verify(sess.Token)
		require.NoError(t, err)
		assert.Equal(t, member.ID, id)
	})

	t.Run("wrong password", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("ByEmail", mock.Anything, "amina@example.com").Return(member, nil)

		svc := newTestService(t, store)
		_, err := svc.Login(context.Background(), "amina@example.com", "wrong-pass1")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})

	t.Run("unknown email yields same error", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("ByEmail", mock.Anything, "ghost@example.com").Return(nil, user.ErrNotFound)

		svc := newTestService(t, store)
		_, err := svc.Login(context.Background(), "ghost@example.com", "passw0rd123")
		assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	svc := newTestService(t, new(mockUserStore))

	t.Run("garbage token", func(t *testing.T) {
		t.Parallel()
		_, err := svc.Verify("not.a.token")
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})

	t.Run("token signed with another key", func(t *testing.T) {
		t.Parallel()

		store := new(mockUserStore)
		store.On("Create", mock.Anything, mock.Anything).Return(nil)
		other, err := auth.NewService(store, auth.Config{TokenSecret: "another-secret-key-fedcba98765432"},
			auth.WithBcryptCost(bcrypt.MinCost))
		require.NoError(t, err)

		sess, err := other.Register(context.Background(), registerParams())
		require.NoError(t, err)

		_, err = svc.Verify(sess.Token)
		assert.ErrorIs(t, err, auth.ErrInvalidToken)
	})
}
