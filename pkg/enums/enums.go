// Package enums holds the string-backed enums persisted in Postgres enum
// columns and echoed on the wire.
package enums

import (
	"fmt"
	"slices"
	"strings"
)

type stringEnum interface{ ~string }

func oneOf[T stringEnum](v T, set []T) bool {
	return slices.Contains(set, v)
}

// parse trims and lowercases raw before matching it against set.
func parse[T stringEnum](kind, raw string, set []T) (T, error) {
	v := T(strings.ToLower(strings.TrimSpace(raw)))
	if oneOf(v, set) {
		return v, nil
	}
	return "", fmt.Errorf("invalid %s %q", kind, raw)
}
