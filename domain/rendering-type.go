package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRenderingType is returned for unknown rendering variants
var ErrInvalidRenderingType = errors.New("invalid rendering type")

// RenderingType selects one rendered representation of a payload
type RenderingType int

const (
	// RenderingFull is the full size rendering
	RenderingFull RenderingType = iota + 1
	// RenderingThumb is the downscaled rendering used in listings
	RenderingThumb
)

var renderingTypeNames = map[RenderingType]string{
	RenderingFull:  "Full",
	RenderingThumb: "Thumb",
}

// RenderingTypes lists every known rendering type
func RenderingTypes() []RenderingType {
	return []RenderingType{RenderingFull, RenderingThumb}
}

// ParseRenderingType accepts the canonical names case-insensitively,
// plus "Thumbnail" as an alias of Thumb
func ParseRenderingType(s string) (RenderingType, error) {
	name := strings.TrimSpace(s)

	if strings.EqualFold(name, "thumbnail") {
		return RenderingThumb, nil
	}

	for t, canonical := range renderingTypeNames {
		if strings.EqualFold(name, canonical) {
			return t, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrInvalidRenderingType, s)
}

func (t RenderingType) String() string {
	if name, ok := renderingTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("RenderingType(%d)", int(t))
}

// Slug is the lowercase name used as a storage path segment
func (t RenderingType) Slug() string {
	return strings.ToLower(t.String())
}

// Valid reports whether t is a known rendering type
func (t RenderingType) Valid() bool {
	_, ok := renderingTypeNames[t]
	return ok
}

// MarshalText implements encoding.TextMarshaler
func (t RenderingType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRenderingType, int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (t *RenderingType) UnmarshalText(text []byte) error {
	parsed, err := ParseRenderingType(string(text))
	if err != nil {
		return err
	}

	*t = parsed
	return nil
}
