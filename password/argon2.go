package password

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

const (
	minMemoryKB    uint32 = 8 * 1024
	minTimeCost    uint32 = 1
	minParallelism uint8  = 1
	minSaltLength  uint32 = 16
	minKeyLength   uint32 = 16
	algorithmID           = "argon2id"

	// DefaultMaxPasswordBytes caps input size when Config.MaxPasswordBytes is zero.
	DefaultMaxPasswordBytes = 1024
)

var (
	// ErrPasswordEmpty is returned for a zero-length password.
	ErrPasswordEmpty = errors.New("password is empty")
	// ErrPasswordTooShort is returned when the password is below Config.MinPasswordBytes.
	ErrPasswordTooShort = errors.New("password too short")
	// ErrPasswordTooLong is returned when the password exceeds the byte cap.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrMalformedHash is returned when a stored hash is not a supported PHC string.
	ErrMalformedHash = errors.New("malformed password hash")
)

// Config holds Argon2id cost parameters and the accepted password size range.
type Config struct {
	Memory      uint32
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32

	// MinPasswordBytes is the shortest accepted password. Zero means any
	// non-empty password is accepted.
	MinPasswordBytes int
	// MaxPasswordBytes bounds hashing cost for hostile input. Zero selects
	// DefaultMaxPasswordBytes.
	MaxPasswordBytes int
}

// DefaultConfig returns interactive-login parameters.
func DefaultConfig() Config {
	return Config{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 2,
		SaltLength:  16,
		KeyLength:   32,
	}
}

// Argon2 hashes and verifies passwords. It is safe for concurrent use.
type Argon2 struct {
	config Config
}

type phc struct {
	memory      uint32
	time        uint32
	parallelism uint8
	salt        []byte
	hash        []byte
}

// NewArgon2 validates cfg and returns a hasher.
func NewArgon2(cfg Config) (*Argon2, error) {
	if cfg.MaxPasswordBytes == 0 {
		cfg.MaxPasswordBytes = DefaultMaxPasswordBytes
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return &Argon2{config: cfg}, nil
}

// CheckLength reports whether password fits the configured size range.
func (a *Argon2) CheckLength(password string) error {
	// Raw bytes, no Unicode normalization.
	switch {
	case len(password) == 0:
		return ErrPasswordEmpty
	case len(password) < a.config.MinPasswordBytes:
		return ErrPasswordTooShort
	case len(password) > a.config.MaxPasswordBytes:
		return ErrPasswordTooLong
	}
	return nil
}

// Hash returns a PHC-encoded Argon2id hash of password with a fresh salt.
func (a *Argon2) Hash(password string) (string, error) {
	if err := a.CheckLength(password); err != nil {
		return "", err
	}

	salt := make([]byte, a.config.SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", err
	}

	key := argon2.IDKey([]byte(password), salt, a.config.Time, a.config.Memory, a.config.Parallelism, a.config.KeyLength)

	return fmt.Sprintf(
		"$%s$v=%d$m=%d,t=%d,p=%d$%s$%s",
		algorithmID,
		argon2.Version,
		a.config.Memory,
		a.config.Time,
		a.config.Parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(key),
	), nil
}

// Verify reports whether password matches encodedHash. The hash's own
// parameters are used, so hashes made under older settings still verify.
func (a *Argon2) Verify(password string, encodedHash string) (bool, error) {
	if len(password) > a.config.MaxPasswordBytes {
		return false, ErrPasswordTooLong
	}

	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	computed := argon2.IDKey([]byte(password), parsed.salt, parsed.time, parsed.memory, parsed.parallelism, uint32(len(parsed.hash)))
	return subtle.ConstantTimeCompare(computed, parsed.hash) == 1, nil
}

// NeedsUpgrade reports whether encodedHash was produced with weaker
// parameters than the hasher's current ones.
func (a *Argon2) NeedsUpgrade(encodedHash string) (bool, error) {
	parsed, err := parsePHC(encodedHash)
	if err != nil {
		return false, err
	}

	return a.config.Memory > parsed.memory ||
		a.config.Time > parsed.time ||
		a.config.Parallelism > parsed.parallelism ||
		a.config.KeyLength != uint32(len(parsed.hash)), nil
}

func parsePHC(encoded string) (*phc, error) {
	fields := strings.Split(encoded, "$")
	if len(fields) != 6 || fields[0] != "" || fields[1] != algorithmID {
		return nil, fmt.Errorf("%w: expected $argon2id$ prefix", ErrMalformedHash)
	}

	version, ok := strings.CutPrefix(fields[2], "v=")
	if !ok || version != strconv.Itoa(argon2.Version) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrMalformedHash, fields[2])
	}

	out := &phc{}
	if err := parseParams(fields[3], out); err != nil {
		return nil, err
	}

	var err error
	if out.salt, err = decodeB64(fields[4]); err != nil || len(out.salt) < int(minSaltLength) {
		return nil, fmt.Errorf("%w: bad salt", ErrMalformedHash)
	}
	if out.hash, err = decodeB64(fields[5]); err != nil || len(out.hash) == 0 {
		return nil, fmt.Errorf("%w: bad key", ErrMalformedHash)
	}
	return out, nil
}

// decodeB64 accepts padded and unpadded standard base64.
func decodeB64(s string) ([]byte, error) {
	if strings.HasSuffix(s, "=") {
		return base64.StdEncoding.DecodeString(s)
	}
	return base64.RawStdEncoding.DecodeString(s)
}

func parseParams(part string, out *phc) error {
	seen := map[string]bool{}
	for _, pair := range strings.Split(part, ",") {
		name, raw, ok := strings.Cut(pair, "=")
		if !ok || seen[name] {
			return fmt.Errorf("%w: bad parameter %q", ErrMalformedHash, pair)
		}
		seen[name] = true

		switch name {
		case "m":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minMemoryKB {
				return fmt.Errorf("%w: bad memory", ErrMalformedHash)
			}
			out.memory = uint32(v)
		case "t":
			v, err := strconv.ParseUint(raw, 10, 32)
			if err != nil || uint32(v) < minTimeCost {
				return fmt.Errorf("%w: bad time", ErrMalformedHash)
			}
			out.time = uint32(v)
		case "p":
			v, err := strconv.ParseUint(raw, 10, 8)
			if err != nil || uint8(v) < minParallelism {
				return fmt.Errorf("%w: bad parallelism", ErrMalformedHash)
			}
			out.parallelism = uint8(v)
		default:
			return fmt.Errorf("%w: unknown parameter %q", ErrMalformedHash, name)
		}
	}
	if len(seen) != 3 {
		return fmt.Errorf("%w: missing parameters", ErrMalformedHash)
	}
	return nil
}

func validateConfig(cfg Config) error {
	switch {
	case cfg.Memory < minMemoryKB:
		return errors.New("password memory must be >= 8192 KB")
	case cfg.Time < minTimeCost:
		return errors.New("password time must be >= 1")
	case cfg.Parallelism < minParallelism:
		return errors.New("password parallelism must be >= 1")
	case cfg.SaltLength < minSaltLength:
		return errors.New("password salt length must be >= 16")
	case cfg.KeyLength < minKeyLength:
		return errors.New("password key length must be >= 16")
	case cfg.MinPasswordBytes < 0:
		return errors.New("password min bytes must be >= 0")
	case cfg.MaxPasswordBytes < cfg.MinPasswordBytes || cfg.MaxPasswordBytes < 1:
		return errors.New("password max bytes must be >= max(1, min bytes)")
	}
	return nil
}
