package handler

import (
	"net/http"
	"time"

	"github.com/misqat/backend/internal/auth"
	"github.com/misqat/backend/internal/user"
)

// AuthHandler serves registration, login and the member profile.
type AuthHandler struct {
	auth  auth.Service
	users user.Store
}

// NewAuthHandler creates the auth endpoints handler.
func NewAuthHandler(authSvc auth.Service, users user.Store) *AuthHandler {
	if authSvc == nil {
		panic("handler: auth service is required")
	}
	if users == nil {
		panic("handler: user store is required")
	}
	return &AuthHandler{auth: authSvc, users: users}
}

type registerRequest struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	Name          string `json:"name"`
	Gender        string `json:"gender"`
	GuardianEmail string `json:"guardianEmail"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *profileBody `json:"user"`
}

type profileBody struct {
	ID                    string     `json:"id"`
	Email                 string     `json:"email"`
	Name                  string     `json:"name"`
	Gender                string     `json:"gender"`
	GuardianEmail         string     `json:"guardianEmail,omitempty"`
	HasActiveSubscription bool       `json:"hasActiveSubscription"`
	SubscriptionStatus    string     `json:"subscriptionStatus"`
	TrialEndDate          *time.Time `json:"trialEndDate,omitempty"`
}

func profile(u *user.User) *profileBody {
	return &profileBody{
		ID:                    u.ID,
		Email:                 u.Email,
		Name:                  u.Name,
		Gender:                string(u.Gender),
		GuardianEmail:         u.GuardianEmail,
		HasActiveSubscription: u.HasActiveSubscription,
		SubscriptionStatus:    string(u.Subscription.EffectiveStatus(time.Now().UTC())),
		TrialEndDate:          u.Subscription.TrialEndsAt,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	sess, err := h.auth.Register(r.Context(), auth.RegisterParams{
		Email:         req.Email,
		Password:      req.Password,
		Name:          req.Name,
		Gender:        user.Gender(req.Gender),
		GuardianEmail: req.GuardianEmail,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusCreated, sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      profile(sess.User),
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondBadRequest(w, "invalid request body")
		return
	}

	sess, err := h.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		respondError(w, r, err)
		return
	}

	respond(w, http.StatusOK, sessionResponse{
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      profile(sess.User),
	})
}

// Me handles GET /me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, err := h.users.ByID(r.Context(), userIDFromContext(r.Context()))
	if err != nil {
		respondError(w, r, err)
		return
	}
	respond(w, http.StatusOK, profile(u))
}
