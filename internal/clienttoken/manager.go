// Package clienttoken issues and checks the signed tokens that identify an
// HTTP client. The subject is the client id, which selects the session slot.
package clienttoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid client token")
	ErrMissingKey   = errors.New("signing key required")
)

const minKeyBytes = 32

type Config struct {
	TTL      time.Duration
	Key      []byte
	Issuer   string
	Audience string
	Leeway   time.Duration
	// KeyID is written to new tokens. VerifyKeys, when set, maps every kid
	// still accepted to its key, so keys can be rotated.
	KeyID      string
	VerifyKeys map[string][]byte
}

type Claims struct {
	jwt.RegisteredClaims
}

type Manager struct {
	config Config
	now    func() time.Time
}

func NewManager(cfg Config, now func() time.Time) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("client token ttl must be > 0")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("client token leeway must be in [0,2m]")
	}
	if len(cfg.Key) == 0 {
		return nil, ErrMissingKey
	}
	if len(cfg.Key) < minKeyBytes {
		return nil, fmt.Errorf("client token key must be at least %d bytes", minKeyBytes)
	}
	cfg.KeyID = strings.TrimSpace(cfg.KeyID)
	for kid := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
	}
	if len(cfg.VerifyKeys) > 0 {
		if cfg.KeyID == "" {
			return nil, errors.New("KeyID required with VerifyKeys")
		}
		if _, ok := cfg.VerifyKeys[cfg.KeyID]; !ok {
			return nil, errors.New("KeyID is not present in VerifyKeys")
		}
	}
	if now == nil {
		now = time.Now
	}
	return &Manager{config: cfg, now: now}, nil
}

// Issue signs a token for clientID and returns it with its expiry.
func (m *Manager) Issue(clientID string) (string, time.Time, error) {
	if clientID == "" {
		return "", time.Time{}, errors.New("client id required")
	}

	now := m.now()
	exp := now.Add(m.config.TTL)
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   clientID,
			Issuer:    m.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	if m.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{m.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	if m.config.KeyID != "" {
		token.Header["kid"] = m.config.KeyID
	}

	signed, err := token.SignedString(m.config.Key)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// Parse returns the client id carried by a valid token. Every failure wraps
// ErrInvalidToken.
func (m *Manager) Parse(tokenStr string) (string, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuedAt(),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}
	if m.config.Audience != "" {
		options = append(options, jwt.WithAudience(m.config.Audience))
	}

	var claims Claims
	token, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, &claims, m.verifyKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func (m *Manager) verifyKey(t *jwt.Token) (any, error) {
	if len(m.config.VerifyKeys) == 0 && m.config.KeyID == "" {
		return m.config.Key, nil
	}

	kid, _ := t.Header["kid"].(string)
	if kid == "" {
		return nil, errors.New("missing kid")
	}
	if len(m.config.VerifyKeys) > 0 {
		key, ok := m.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	}
	if kid != m.config.KeyID {
		return nil, errors.New("unknown kid")
	}
	return m.config.Key, nil
}
