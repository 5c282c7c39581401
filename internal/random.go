package internal

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"math/big"
	"strings"
)

// HandleID identifies a pending verification record.
type HandleID [16]byte

// Reader is the entropy source. Tests may swap it.
var Reader io.Reader = rand.Reader

func NewHandleID() (HandleID, error) {
	var id HandleID
	_, err := io.ReadFull(Reader, id[:])
	return id, err
}

func (h HandleID) String() string {
	// base64url, no padding, compact
	return base64.RawURLEncoding.EncodeToString(h[:])
}

func ParseHandleID(s string) (HandleID, error) {
	var id HandleID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid handle id size")
	}

	copy(id[:], raw)
	return id, nil
}

// NewNumericCode returns a uniformly random decimal string of exactly digits
// characters. With leadingNonZero the value is drawn from [10^(d-1), 10^d),
// otherwise from [0, 10^d) zero-padded.
func NewNumericCode(digits int, leadingNonZero bool) (string, error) {
	if digits < 4 || digits > 10 {
		return "", errors.New("invalid code digits")
	}

	upper := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	lower := big.NewInt(0)
	if leadingNonZero {
		lower = new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits-1)), nil)
	}

	n, err := rand.Int(Reader, new(big.Int).Sub(upper, lower))
	if err != nil {
		return "", err
	}
	n.Add(n, lower)

	code := n.String()
	if len(code) < digits {
		code = strings.Repeat("0", digits-len(code)) + code
	}
	return code, nil
}
