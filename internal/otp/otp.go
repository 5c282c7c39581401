// Package otp issues and verifies short numeric one-time codes.
//
// Codes are handed out once, at issuance, for delivery. Only their SHA-256
// digest is kept for verification.
package otp

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"github.com/khaledahmed0918-sys/Apartments/internal"
)

// Outcome is the result of checking a submitted code.
type Outcome uint8

const (
	Valid Outcome = iota
	Expired
	Mismatch
)

func (o Outcome) String() string {
	switch o {
	case Valid:
		return "valid"
	case Expired:
		return "expired"
	case Mismatch:
		return "mismatch"
	default:
		return "unknown"
	}
}

// Config controls code shape and lifetime.
type Config struct {
	Digits int
	TTL    time.Duration
	// FullRange allows a leading zero. When false, codes are drawn from
	// [10^(Digits-1), 10^Digits).
	FullRange bool
}

// Code is a freshly issued code. Value must only be handed to the delivery
// collaborator.
type Code struct {
	Value     string
	Hash      [32]byte
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Issuer creates codes against an injected clock.
type Issuer struct {
	cfg Config
	now func() time.Time
}

func NewIssuer(cfg Config, now func() time.Time) (*Issuer, error) {
	if cfg.Digits < 4 || cfg.Digits > 10 {
		return nil, errors.New("otp digits must be in [4,10]")
	}
	if cfg.TTL <= 0 {
		return nil, errors.New("otp ttl must be > 0")
	}
	if now == nil {
		now = time.Now
	}
	return &Issuer{cfg: cfg, now: now}, nil
}

func (i *Issuer) Issue() (Code, error) {
	value, err := internal.NewNumericCode(i.cfg.Digits, !i.cfg.FullRange)
	if err != nil {
		return Code{}, err
	}
	issued := i.now()
	return Code{
		Value:     value,
		Hash:      HashCode(value),
		IssuedAt:  issued,
		ExpiresAt: issued.Add(i.cfg.TTL),
	}, nil
}

// Verify checks submitted against the stored digest using the issuer's clock.
func (i *Issuer) Verify(expiresAt time.Time, hash [32]byte, submitted string) Outcome {
	return Verify(expiresAt, hash, submitted, i.now())
}

// Remaining is the display countdown for a code. It never decides validity.
func (i *Issuer) Remaining(expiresAt time.Time) time.Duration {
	left := expiresAt.Sub(i.now())
	if left < 0 {
		return 0
	}
	return left
}

func HashCode(code string) [32]byte {
	return sha256.Sum256([]byte(code))
}

// Verify reports Expired strictly after expiresAt; at or before it the
// submitted string must equal the issued code exactly.
func Verify(expiresAt time.Time, hash [32]byte, submitted string, now time.Time) Outcome {
	if now.After(expiresAt) {
		return Expired
	}
	got := HashCode(submitted)
	if subtle.ConstantTimeCompare(got[:], hash[:]) != 1 {
		return Mismatch
	}
	return Valid
}
