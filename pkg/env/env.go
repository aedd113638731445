// Package env reads the few settings consulted before config.Load runs.
package env

import (
	"cmp"
	"os"
	"strings"
)

// Get is os.Getenv with whitespace trimmed and blank treated as unset.
func Get(key, fallback string) string {
	return cmp.Or(strings.TrimSpace(os.Getenv(key)), fallback)
}

// First walks keys in order and falls back when every one is blank.
func First(fallback string, keys ...string) string {
	for _, key := range keys {
		if v := Get(key, ""); v != "" {
			return v
		}
	}
	return fallback
}
