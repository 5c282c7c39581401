package apartments

import (
	"strings"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/credentials"
	"github.com/khaledahmed0918-sys/Apartments/session"
)

// Account is the public view of a registered account. It never carries the
// password hash.
type Account struct {
	ID       string    `json:"id"`
	Name     []string  `json:"name"`
	Email    string    `json:"email"`
	JoinedAt time.Time `json:"joined_at"`
}

// SessionUser is the identity held by the current client session.
type SessionUser struct {
	ID       string    `json:"id"`
	Name     []string  `json:"name"`
	Email    string    `json:"email"`
	Verified bool      `json:"verified"`
	JoinedAt time.Time `json:"joined_at"`
}

// FullName joins the name parts with single spaces.
func (u SessionUser) FullName() string {
	return strings.Join(u.Name, " ")
}

// RegistrationRequest carries the fields submitted by the sign-up form. Every
// name part, the email and the password must be non-empty. No format or
// strength rules are applied.
type RegistrationRequest struct {
	Name     []string `json:"name" validate:"required,min=1,max=16,dive,required"`
	Email    string   `json:"email" validate:"required"`
	Password string   `json:"password" validate:"required"`
}

// Purpose tags what a pending verification authorizes.
type Purpose string

const (
	PurposeRegistration  Purpose = "registration"
	PurposePasswordReset Purpose = "password-reset"
)

// Pending is the caller-held handle for an in-flight verification. It
// identifies the stored record and never contains the code.
type Pending struct {
	ID        string    `json:"id"`
	Purpose   Purpose   `json:"purpose"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsZero reports whether p was never issued.
func (p Pending) IsZero() bool {
	return p.ID == ""
}

func accountFromRecord(rec credentials.Record) Account {
	return Account{
		ID:       rec.ID,
		Name:     cloneName(rec.Name),
		Email:    rec.Email,
		JoinedAt: rec.JoinedAt,
	}
}

func sessionUserFrom(u *session.User) SessionUser {
	if u == nil {
		return SessionUser{}
	}
	return SessionUser{
		ID:       u.ID,
		Name:     cloneName(u.Name),
		Email:    u.Email,
		Verified: u.Verified,
		JoinedAt: time.UnixMilli(u.JoinedAt).UTC(),
	}
}

func cloneName(parts []string) []string {
	if parts == nil {
		return nil
	}
	out := make([]string, len(parts))
	copy(out, parts)
	return out
}
