package metrics

// normalizeLabel keeps blank label values from creating an empty series.
func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
