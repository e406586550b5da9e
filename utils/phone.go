package utils

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/nyaruka/phonenumbers"
)

// FallbackPhoneRegion is used when no country hint is available and the
// channel does not restrict allowed countries.
const FallbackPhoneRegion = "KW"

// PhoneResult is the outcome of normalizing one raw phone value.
type PhoneResult struct {
	Valid           bool
	Canonical       string
	DetectedCountry string
	Err             error
}

// Phone normalization failure reasons.
var (
	ErrPhoneContainsLetters   = fmt.Errorf("phone contains letters")
	ErrPhoneTooShort          = fmt.Errorf("phone number too short")
	ErrPhoneTooLong           = fmt.Errorf("phone number too long")
	ErrPhoneBadCountryCode    = fmt.Errorf("invalid country code")
	ErrPhoneInvalidForRegion  = fmt.Errorf("phone invalid for region")
	ErrPhoneCountryMismatch   = fmt.Errorf("phone country does not match requested country")
	ErrPhoneNoCountry         = fmt.Errorf("no phone country configured")
	ErrPhoneCountryNotAllowed = fmt.Errorf("phone country not allowed")
	ErrPhoneUnparseable       = fmt.Errorf("phone not parseable")
)

// SanitizePhone strips whitespace, zero-width and bidi control characters and
// backslashes, preserves one leading "+", converts a leading "00"
// international prefix to "+", and drops all remaining non-digit characters.
func SanitizePhone(raw string) string {
	var b strings.Builder
	for _, r := range raw {
		switch {
		case unicode.IsSpace(r):
		case r == '\\':
		case r == '\u200B' || r == '\u200C' || r == '\u200D' || r == '\uFEFF':
		case r == '\u200E' || r == '\u200F' || (r >= '\u202A' && r <= '\u202E'):
		default:
			b.WriteRune(r)
		}
	}
	s := b.String()
	plus := strings.HasPrefix(s, "+")
	if strings.HasPrefix(s, "00") {
		plus = true
		s = s[2:]
	}
	var digits strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	if plus {
		return "+" + digits.String()
	}
	return digits.String()
}

func containsLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// NormalizePhone validates and formats a raw phone value into canonical E.164
// form. An empty input is valid with an empty canonical value since phone is
// optional on a recipient. countryHint is an ISO 3166-1 alpha-2 region and may
// be empty, in which case defaultRegion is used.
func NormalizePhone(raw, countryHint, defaultRegion string) PhoneResult {
	if strings.TrimSpace(raw) == "" {
		return PhoneResult{Valid: true}
	}
	if containsLetter(raw) {
		return PhoneResult{Err: ErrPhoneContainsLetters}
	}
	sanitized := SanitizePhone(raw)
	if sanitized == "" || sanitized == "+" {
		return PhoneResult{Err: ErrPhoneUnparseable}
	}

	region := strings.ToUpper(strings.TrimSpace(countryHint))
	if region == "" {
		region = strings.ToUpper(strings.TrimSpace(defaultRegion))
	}
	if region == "" && !strings.HasPrefix(sanitized, "+") {
		return PhoneResult{Err: ErrPhoneNoCountry}
	}

	num, err := phonenumbers.Parse(sanitized, region)
	if err != nil {
		if err == phonenumbers.ErrInvalidCountryCode {
			return PhoneResult{Err: ErrPhoneBadCountryCode}
		}
		return PhoneResult{Err: ErrPhoneUnparseable}
	}

	switch phonenumbers.IsPossibleNumberWithReason(num) {
	case phonenumbers.TOO_SHORT:
		return PhoneResult{Err: ErrPhoneTooShort}
	case phonenumbers.TOO_LONG:
		return PhoneResult{Err: ErrPhoneTooLong}
	case phonenumbers.INVALID_COUNTRY_CODE:
		return PhoneResult{Err: ErrPhoneBadCountryCode}
	}
	if !phonenumbers.IsValidNumber(num) {
		return PhoneResult{Err: ErrPhoneInvalidForRegion}
	}

	return PhoneResult{
		Valid:           true,
		Canonical:       phonenumbers.Format(num, phonenumbers.E164),
		DetectedCountry: phonenumbers.GetRegionCodeForNumber(num),
	}
}

// NormalizePhoneWithCountry normalizes against an explicit ISO country and
// additionally fails when the parsed number belongs to a different region, so
// a number for the wrong market is never silently accepted.
func NormalizePhoneWithCountry(raw, country string) PhoneResult {
	country = strings.ToUpper(strings.TrimSpace(country))
	if country == "" {
		return PhoneResult{Err: ErrPhoneNoCountry}
	}
	res := NormalizePhone(raw, country, "")
	if res.Err != nil || !res.Valid || res.Canonical == "" {
		return res
	}
	if res.DetectedCountry != country {
		return PhoneResult{Err: ErrPhoneCountryMismatch}
	}
	return res
}

// DefaultRegionFor resolves the default parse region from a channel's
// allowed-country list. A restricted list yields its first entry; an
// unrestricted list ("*" or empty) falls back to the configured region.
func DefaultRegionFor(allowedCountries []string, fallback string) string {
	for _, c := range allowedCountries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c != "" && c != "*" {
			return c
		}
	}
	if fallback == "" {
		return FallbackPhoneRegion
	}
	return strings.ToUpper(fallback)
}

// CountryRestricted reports whether an allowed-country list actually
// restricts countries, i.e. it is non-empty and not the "*" wildcard.
func CountryRestricted(allowed []string) bool {
	for _, c := range allowed {
		c = strings.TrimSpace(c)
		if c != "" && c != "*" {
			return true
		}
	}
	return false
}

// CountryAllowed reports whether iso is permitted by the allowed list. An
// unrestricted list permits everything.
func CountryAllowed(allowed []string, iso string) bool {
	if !CountryRestricted(allowed) {
		return true
	}
	iso = strings.ToUpper(strings.TrimSpace(iso))
	for _, c := range allowed {
		if strings.ToUpper(strings.TrimSpace(c)) == iso {
			return true
		}
	}
	return false
}

type dialCodeEntry struct {
	prefix  string
	country string
}

// DialCodeTable maps international dial-code prefixes to ISO countries for a
// fixed allowed-country list, ordered longest prefix first so overlapping
// codes resolve to the most specific match.
type DialCodeTable struct {
	entries []dialCodeEntry
}

// BuildDialCodeTable derives a dial-code table from allowed ISO countries.
// Unknown or wildcard entries are skipped.
func BuildDialCodeTable(allowedCountries []string) *DialCodeTable {
	t := &DialCodeTable{}
	for _, c := range allowedCountries {
		c = strings.ToUpper(strings.TrimSpace(c))
		if c == "" || c == "*" {
			continue
		}
		code := phonenumbers.GetCountryCodeForRegion(c)
		if code == 0 {
			continue
		}
		t.entries = append(t.entries, dialCodeEntry{prefix: strconv.Itoa(code), country: c})
	}
	sort.SliceStable(t.entries, func(i, j int) bool {
		return len(t.entries[i].prefix) > len(t.entries[j].prefix)
	})
	return t
}

// DetectCountry matches a sanitized phone value against the table. Only
// internationally prefixed values ("+..." after sanitization) are matched;
// local-format values return empty.
func (t *DialCodeTable) DetectCountry(raw string) string {
	s := SanitizePhone(raw)
	if !strings.HasPrefix(s, "+") {
		return ""
	}
	s = s[1:]
	for _, e := range t.entries {
		if strings.HasPrefix(s, e.prefix) {
			return e.country
		}
	}
	return ""
}
