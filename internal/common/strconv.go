package common

import "strconv"

// AtoiDefault converts the provided string to an integer falling back to the default when parsing fails.
func AtoiDefault(value string, def int) int {
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

// FormatInt64 renders an int64 in base 10, for count headers and the like.
func FormatInt64(v int64) string {
	return strconv.FormatInt(v, 10)
}
