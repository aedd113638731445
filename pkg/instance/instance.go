package instance

import (
	"os"
	"strings"
)

// Lookup order for the process identifier. DYNO is set by Heroku-style
// runtimes, K_REVISION by Cloud Run.
var idEnvKeys = []string{"SURPLUSX_INSTANCE_ID", "DYNO", "K_REVISION"}

// GetID returns an identifier for this process, used to tag logs and
// lock ownership. It falls back to the hostname and then "local".
func GetID() string {
	for _, key := range idEnvKeys {
		if id := strings.TrimSpace(os.Getenv(key)); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "local"
}
