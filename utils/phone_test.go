package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizePhone(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain digits", "31612345678", "31612345678"},
		{"keeps leading plus", "+31612345678", "+31612345678"},
		{"strips spaces", " +31 6 1234 5678 ", "+31612345678"},
		{"strips dashes and parens", "(06) 12-34-56-78", "0612345678"},
		{"double zero becomes plus", "0031612345678", "+31612345678"},
		{"strips backslashes", `+316\12345678`, "+31612345678"},
		{"strips zero width space", "+3161\u200B2345678", "+31612345678"},
		{"strips bidi controls", "\u200E+31612345678\u200F", "+31612345678"},
		{"strips byte order mark", "\uFEFF+31612345678", "+31612345678"},
		{"inner plus dropped", "+316+12345678", "+31612345678"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizePhone(tt.input))
		})
	}
}

func TestNormalizePhone(t *testing.T) {
	t.Run("empty phone is valid without canonical value", func(t *testing.T) {
		res := NormalizePhone("", "", "NL")
		require.True(t, res.Valid)
		assert.Empty(t, res.Canonical)
		assert.NoError(t, res.Err)
	})

	t.Run("whitespace only is treated as empty", func(t *testing.T) {
		res := NormalizePhone("   ", "", "NL")
		require.True(t, res.Valid)
		assert.Empty(t, res.Canonical)
	})

	t.Run("international format canonicalizes to E164", func(t *testing.T) {
		res := NormalizePhone("+31 6 1234 5678", "", "")
		require.NoError(t, res.Err)
		require.True(t, res.Valid)
		assert.Equal(t, "+31612345678", res.Canonical)
		assert.Equal(t, "NL", res.DetectedCountry)
	})

	t.Run("local format uses country hint", func(t *testing.T) {
		res := NormalizePhone("0612345678", "NL", "")
		require.NoError(t, res.Err)
		assert.Equal(t, "+31612345678", res.Canonical)
	})

	t.Run("local format falls back to default region", func(t *testing.T) {
		res := NormalizePhone("0612345678", "", "NL")
		require.NoError(t, res.Err)
		assert.Equal(t, "+31612345678", res.Canonical)
	})

	t.Run("normalization is idempotent", func(t *testing.T) {
		first := NormalizePhone("00 31 6 1234-5678", "", "NL")
		require.NoError(t, first.Err)
		second := NormalizePhone(first.Canonical, "", "NL")
		require.NoError(t, second.Err)
		assert.Equal(t, first.Canonical, second.Canonical)
	})

	t.Run("letters are rejected", func(t *testing.T) {
		res := NormalizePhone("06-CALL-ME", "NL", "")
		assert.ErrorIs(t, res.Err, ErrPhoneContainsLetters)
	})

	t.Run("too short is rejected", func(t *testing.T) {
		res := NormalizePhone("+3161", "", "")
		assert.ErrorIs(t, res.Err, ErrPhoneTooShort)
	})

	t.Run("too long is rejected", func(t *testing.T) {
		res := NormalizePhone("+31612345678901", "", "")
		assert.ErrorIs(t, res.Err, ErrPhoneTooLong)
	})

	t.Run("local format without any region is rejected", func(t *testing.T) {
		res := NormalizePhone("0612345678", "", "")
		assert.ErrorIs(t, res.Err, ErrPhoneNoCountry)
	})
}

func TestNormalizePhoneWithCountry(t *testing.T) {
	t.Run("matching country passes", func(t *testing.T) {
		res := NormalizePhoneWithCountry("+31612345678", "NL")
		require.NoError(t, res.Err)
		assert.Equal(t, "+31612345678", res.Canonical)
	})

	t.Run("mismatched country is rejected", func(t *testing.T) {
		res := NormalizePhoneWithCountry("+4915123456789", "NL")
		assert.ErrorIs(t, res.Err, ErrPhoneCountryMismatch)
	})

	t.Run("missing country is rejected", func(t *testing.T) {
		res := NormalizePhoneWithCountry("+31612345678", "")
		assert.ErrorIs(t, res.Err, ErrPhoneNoCountry)
	})
}

func TestDefaultRegionFor(t *testing.T) {
	assert.Equal(t, "NL", DefaultRegionFor([]string{"NL", "DE"}, "KW"))
	assert.Equal(t, "DE", DefaultRegionFor([]string{" ", "*", "de"}, "KW"))
	assert.Equal(t, "KW", DefaultRegionFor([]string{"*"}, "KW"))
	assert.Equal(t, FallbackPhoneRegion, DefaultRegionFor(nil, ""))
}

func TestCountryAllowed(t *testing.T) {
	t.Run("unrestricted list allows everything", func(t *testing.T) {
		assert.True(t, CountryAllowed(nil, "NL"))
		assert.True(t, CountryAllowed([]string{"*"}, "JP"))
	})

	t.Run("restricted list never silently admits other countries", func(t *testing.T) {
		allowed := []string{"NL", "DE"}
		assert.True(t, CountryAllowed(allowed, "nl"))
		assert.True(t, CountryAllowed(allowed, "DE"))
		assert.False(t, CountryAllowed(allowed, "FR"))
		assert.False(t, CountryAllowed(allowed, ""))
	})
}

func TestDialCodeTable(t *testing.T) {
	table := BuildDialCodeTable([]string{"NL", "DE", "US", "*", ""})

	t.Run("detects country from international prefix", func(t *testing.T) {
		assert.Equal(t, "NL", table.DetectCountry("+31612345678"))
		assert.Equal(t, "DE", table.DetectCountry("0049151234567"))
		assert.Equal(t, "US", table.DetectCountry("+12125551234"))
	})

	t.Run("local format is never guessed", func(t *testing.T) {
		assert.Empty(t, table.DetectCountry("0612345678"))
	})

	t.Run("unknown prefix returns empty", func(t *testing.T) {
		assert.Empty(t, table.DetectCountry("+81312345678"))
	})
}
