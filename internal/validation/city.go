package validation

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// MaxCityRunes bounds accepted place names; matches the stored column width.
const MaxCityRunes = 100

// ErrCityEmpty is returned when the input is empty or whitespace-only after trim.
var ErrCityEmpty = errors.New("city name is required")

// ErrCityNumeric is returned when the input consists entirely of digits.
var ErrCityNumeric = errors.New("city name cannot be only numbers")

// ErrCityTooLong is returned when the input exceeds MaxCityRunes.
var ErrCityTooLong = errors.New("city name is too long")

// NormalizeCity trims the input, rejects empty, purely-numeric and over-long
// values, and returns the title-cased place name. No transliteration or
// geocoding happens here; resolution ambiguity is the upstream provider's
// concern.
func NormalizeCity(raw string) (string, error) {
	city := strings.TrimSpace(raw)
	if city == "" {
		return "", ErrCityEmpty
	}
	if isAllDigits(city) {
		return "", ErrCityNumeric
	}
	if len([]rune(city)) > MaxCityRunes {
		return "", ErrCityTooLong
	}
	return cases.Title(language.Und).String(city), nil
}

func isAllDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}
