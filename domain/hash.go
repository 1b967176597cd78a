// Package domain holds the value types shared by the rendering
// store, the payload index and the HTTP layer
package domain

import (
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
)

// ErrInvalidHash is returned when a string is not a valid content hash
var ErrInvalidHash = errors.New("invalid hash")

var hashPattern = regexp.MustCompile(`^[a-f0-9]{32}$`)

// Hash identifies an immutable blueprint payload by its content.
// The zero value is the empty hash and never matches a payload.
type Hash struct {
	value string
}

// ParseHash validates s as 32 lowercase hex characters
func ParseHash(s string) (Hash, error) {
	if !hashPattern.MatchString(s) {
		return Hash{}, fmt.Errorf("%w: %q", ErrInvalidHash, s)
	}

	return Hash{value: s}, nil
}

// MustParseHash is ParseHash for constants and tests
func MustParseHash(s string) Hash {
	h, err := ParseHash(s)
	if err != nil {
		panic(err)
	}

	return h
}

// ComputeHash returns the MD5 digest of an encoded blueprint string
func ComputeHash(encoded string) Hash {
	sum := md5.Sum([]byte(encoded))
	return Hash{value: hex.EncodeToString(sum[:])}
}

func (h Hash) String() string {
	return h.value
}

// IsEmpty reports whether h is the zero value
func (h Hash) IsEmpty() bool {
	return h.value == ""
}

// MarshalText implements encoding.TextMarshaler
func (h Hash) MarshalText() ([]byte, error) {
	return []byte(h.value), nil
}

// UnmarshalText implements encoding.TextUnmarshaler and validates the input
func (h *Hash) UnmarshalText(text []byte) error {
	parsed, err := ParseHash(string(text))
	if err != nil {
		return err
	}

	*h = parsed
	return nil
}
