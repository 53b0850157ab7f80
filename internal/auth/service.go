package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/misqat/backend/internal/user"
	"github.com/misqat/backend/pkg/jwt"
	"github.com/misqat/backend/pkg/validator"
)

const tokenIssuer = "misqat"

// Config holds token issuance settings.
type Config struct {
	TokenSecret string        `env:"JWT_SECRET,required"`
	TokenTTL    time.Duration `env:"JWT_TTL" envDefault:"72h"`
}

// RegisterParams is the profile a new member submits.
type RegisterParams struct {
	Email         string
	Password      string
	Name          string
	Gender        user.Gender
	GuardianEmail string
}

// Validate enforces the registration profile rules, including the guardian
// requirement for female members.
func (p RegisterParams) Validate() error {
	rules := []validator.Rule{
		validator.ValidEmail("email", p.Email),
		validator.StrongPassword("password", p.Password),
		validator.Required("name", p.Name),
		validator.MinLen("name", p.Name, 2),
		validator.OneOf("gender", string(p.Gender), string(user.GenderMale), string(user.GenderFemale)),
	}
	if p.Gender == user.GenderFemale {
		rules = append(rules, validator.ValidEmail("guardianEmail", p.GuardianEmail))
	}
	return validator.Apply(rules...)
}

// Session is an authenticated member plus their bearer token.
type Session struct {
	Token     string
	ExpiresAt time.Time
	User      *user.User
}

// Service defines password authentication and token verification.
type Service interface {
	// Register creates a member account starting its free trial and logs
	// the member in.
	Register(ctx context.Context, params RegisterParams) (*Session, error)

	// Login verifies credentials. Returns the generic ErrInvalidCredentials
	// on any failure so callers cannot enumerate registered emails.
	Login(ctx context.Context, email, password string) (*Session, error)

	// Verify checks a bearer token and returns the member ID it names.
	Verify(token string) (string, error)
}

type service struct {
	store      user.Store
	tokens     *jwt.Service
	tokenTTL   time.Duration
	bcryptCost int
	now        func() time.Time
}

// Option configures the auth service.
type Option func(*service)

// WithBcryptCost sets the bcrypt cost for password hashing. Tests lower it
// to keep hashing fast.
func WithBcryptCost(cost int) Option {
	return func(s *service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithClock injects a time source for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates the auth service. Panics on a nil store or empty token
// secret to fail fast during initialization.
func NewService(store user.Store, cfg Config, opts ...Option) (Service, error) {
	if store == nil {
		panic("auth: user store is required")
	}

	tokens, err := jwt.New(cfg.TokenSecret)
	if err != nil {
		return nil, err
	}
	if cfg.TokenTTL <= 0 {
		cfg.TokenTTL = 72 * time.Hour
	}

	s := &service{
		store:      store,
		tokens:     tokens,
		tokenTTL:   cfg.TokenTTL,
		bcryptCost: bcrypt.DefaultCost,
		now:        func() time.Time { return time.Now().UTC() },
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *service) Register(ctx context.Context, params RegisterParams) (*Session, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	guardian := params.GuardianEmail
	if params.Gender != user.GenderFemale {
		guardian = ""
	}

	u := user.New(params.Email, string(hash), params.Name, params.Gender, guardian)
	if err := s.store.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("auth: failed to create user: %w", err)
	}

	return s.newSession(u)
}

func (s *service) Login(ctx context.Context, email, password string) (*Session, error) {
	u, err := s.store.ByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return s.newSession(u)
}

func (s *service) Verify(token string) (string, error) {
	var claims jwt.StandardClaims
	if err := s.tokens.Parse(token, &claims); err != nil {
		return "", errors.Join(ErrInvalidToken, err)
	}
	if claims.Subject == "" || claims.Issuer != tokenIssuer {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (s *service) newSession(u *user.User) (*Session, error) {
	now := s.now()
	expires := now.Add(s.tokenTTL)

	token, err := s.tokens.Generate(jwt.StandardClaims{
		Subject:   u.ID,
		Issuer:    tokenIssuer,
		ExpiresAt: expires.Unix(),
		IssuedAt:  now.Unix(),
	})
	if err != nil {
		return nil, fmt.Errorf("auth: failed to sign token: %w", err)
	}

	return &Session{Token: token, ExpiresAt: expires, User: u}, nil
}
