package user

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/misqat/backend/internal/billing"
)

// Gender is part of the registration profile. Female members must register a
// guardian who is copied on subscription notifications.
type Gender string

const (
	GenderMale   Gender = "male"
	GenderFemale Gender = "female"
)

// User is one member account. The subscription record is embedded, and
// HasActiveSubscription denormalizes the record's entitlement so profile
// reads don't recompute it.
type User struct {
	ID           string `bson:"_id" json:"id"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"passwordHash" json:"-"`

	Name          string `bson:"name" json:"name"`
	Gender        Gender `bson:"gender" json:"gender"`
	GuardianEmail string `bson:"guardianEmail,omitempty" json:"guardianEmail,omitempty"`

	HasActiveSubscription bool           `bson:"hasActiveSubscription" json:"hasActiveSubscription"`
	Subscription          billing.Record `bson:"subscription" json:"subscription"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// New builds a member account starting its free trial now.
func New(email, passwordHash, name string, gender Gender, guardianEmail string) *User {
	now := time.Now().UTC()
	rec := billing.NewTrialRecord(now)
	return &User{
		ID:                    uuid.NewString(),
		Email:                 strings.ToLower(strings.TrimSpace(email)),
		PasswordHash:          passwordHash,
		Name:                  name,
		Gender:                gender,
		GuardianEmail:         guardianEmail,
		HasActiveSubscription: rec.Entitled(now),
		Subscription:          rec,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
}

// RequiresGuardian reports whether this profile must carry a guardian email.
func (u *User) RequiresGuardian() bool {
	return u.Gender == GenderFemale
}

// BillingAccount returns the billing view of this account.
func (u *User) BillingAccount() billing.Account {
	return billing.Account{
		ID:            u.ID,
		Email:         u.Email,
		Name:          u.Name,
		Gender:        string(u.Gender),
		GuardianEmail: u.GuardianEmail,
		Subscription:  u.Subscription,
	}
}
