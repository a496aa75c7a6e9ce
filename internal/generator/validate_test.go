package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/gnemet/DeckForge/internal/apperr"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate(Input{Topic: "Go", Credential: "sk"}))

	for name, in := range map[string]Input{
		"empty topic":      {Credential: "sk"},
		"blank topic":      {Topic: " \n\t", Credential: "sk"},
		"empty credential": {Topic: "Go"},
		"both empty":       {},
	} {
		t.Run(name, func(t *testing.T) {
			err := Validate(in)
			require.Error(t, err)
			appErr := apperr.As(err)
			assert.Equal(t, apperr.CodeValidation, appErr.Code)
			assert.Equal(t, "Missing Information", appErr.Message)
			assert.Equal(t, "Please fill in all required fields", appErr.Detail)
		})
	}
}

func TestClampSlideCount(t *testing.T) {
	assert.Equal(t, 1, ClampSlideCount(0))
	assert.Equal(t, 1, ClampSlideCount(-3))
	assert.Equal(t, 7, ClampSlideCount(7))
	assert.Equal(t, 20, ClampSlideCount(21))

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.Int().Draw(t, "n")
		got := ClampSlideCount(n)
		if got < MinSlides || got > MaxSlides {
			t.Fatalf("ClampSlideCount(%d) = %d", n, got)
		}
		if n >= MinSlides && n <= MaxSlides && got != n {
			t.Fatalf("ClampSlideCount(%d) changed an in-range value to %d", n, got)
		}
	})
}

func TestParseSlideCount(t *testing.T) {
	for in, want := range map[string]int{"": 5, "3": 3, " 12 ": 12, "0": 1, "99": 20, "-4": 1} {
		got, err := ParseSlideCount(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, in := range []string{"five", "3.5", "1e2", "0x10"} {
		_, err := ParseSlideCount(in)
		require.Error(t, err, in)
		assert.True(t, apperr.HasCode(err, apperr.CodeValidation), in)
	}
}
