package validators

import (
	"strings"
	"unicode"
)

// SanitizeString trims, drops control characters other than newline and
// tab, then keeps at most maxRunes runes. maxRunes <= 0 means no cap.
func SanitizeString(input string, maxRunes int) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && r != '\n' && r != '\t' {
			return -1
		}
		return r
	}, strings.TrimSpace(input))

	if maxRunes > 0 {
		if runes := []rune(clean); len(runes) > maxRunes {
			clean = strings.TrimRightFunc(string(runes[:maxRunes]), unicode.IsSpace)
		}
	}
	return clean
}

// SanitizeOptional is SanitizeString for optional fields; blank becomes nil.
func SanitizeOptional(input *string, maxRunes int) *string {
	if input == nil {
		return nil
	}
	if clean := SanitizeString(*input, maxRunes); clean != "" {
		return &clean
	}
	return nil
}
