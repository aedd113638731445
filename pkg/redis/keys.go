package redis

import "strings"

// Keyspace prefixes every key this service writes so several apps can share
// one Redis. Blank parts are skipped.
type Keyspace string

const defaultKeyspace Keyspace = "sx"

func (k Keyspace) Key(parts ...string) string {
	var b strings.Builder
	b.WriteString(string(k))
	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			b.WriteByte(':')
			b.WriteString(part)
		}
	}
	return b.String()
}
