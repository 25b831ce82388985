package parser

import (
	"strconv"
	"strings"
	"unicode"
)

// RatingToNumeric converts the textual star rating to a numeric scale.
// Unknown tokens, including case variants, map to 0.
func RatingToNumeric(rating string) int {
	switch rating {
	case "One":
		return 1
	case "Two":
		return 2
	case "Three":
		return 3
	case "Four":
		return 4
	case "Five":
		return 5
	default:
		return 0
	}
}

// RatingToken returns the second class of a star-rating class attribute,
// e.g. "star-rating Three" -> "Three".
func RatingToken(class string) (string, bool) {
	parts := strings.Fields(class)
	if len(parts) < 2 {
		return "", false
	}
	return parts[1], true
}

// NormalizeAvailability trims spacing from the availability text.
func NormalizeAvailability(text string) string {
	return strings.TrimSpace(text)
}

// PriceValue parses a stored price such as "£51.77" into a number. Currency
// symbols and thousands separators are dropped; unparseable input yields 0.
func PriceValue(price string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '£', '$', '€', ',', 'Â':
			return -1
		}
		return r
	}, price)
	v, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0
	}
	return v
}

// InStock reports whether an availability text announces stock.
func InStock(availability string) bool {
	return strings.Contains(strings.ToLower(availability), "in stock")
}

// SanitizeTitle replaces every rune that is not a letter or digit with an
// underscore. Distinct titles may sanitize to the same stem.
func SanitizeTitle(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range title {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
			continue
		}
		b.WriteByte('_')
	}
	return b.String()
}
