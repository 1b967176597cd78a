package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRenderingType(t *testing.T) {
	cases := map[string]RenderingType{
		"Full":      RenderingFull,
		"full":      RenderingFull,
		"FULL":      RenderingFull,
		"Thumb":     RenderingThumb,
		"thumb":     RenderingThumb,
		"Thumbnail": RenderingThumb,
		"thumbnail": RenderingThumb,
	}

	for input, expected := range cases {
		got, err := ParseRenderingType(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}
}

func TestParseRenderingTypeRejectsUnknown(t *testing.T) {
	for _, input := range []string{"", "Preview", "1", "full.png"} {
		_, err := ParseRenderingType(input)
		assert.ErrorIs(t, err, ErrInvalidRenderingType, input)
	}
}

func TestRenderingTypeNames(t *testing.T) {
	assert.Equal(t, "Full", RenderingFull.String())
	assert.Equal(t, "full", RenderingFull.Slug())
	assert.Equal(t, "thumb", RenderingThumb.Slug())
	assert.False(t, RenderingType(0).Valid())
	assert.Len(t, RenderingTypes(), 2)

	_, err := RenderingType(7).MarshalText()
	assert.ErrorIs(t, err, ErrInvalidRenderingType)
}
