package rules

import "strings"

const (
	DefaultUIDMinLength = 6
	DefaultUIDMaxLength = 20
)

// ValidUID reports whether a broker account identifier looks plausible:
// alphanumeric and within the configured length bounds. Brokers issue
// digit-only UIDs today, but letters appeared in older accounts.
func ValidUID(uid string, minLen, maxLen int) bool {
	if minLen <= 0 {
		minLen = DefaultUIDMinLength
	}
	if maxLen < minLen {
		maxLen = DefaultUIDMaxLength
	}

	uid = strings.TrimSpace(uid)
	if len(uid) < minLen || len(uid) > maxLen {
		return false
	}
	for _, r := range uid {
		switch {
		case r >= '0' && r <= '9':
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		default:
			return false
		}
	}
	return true
}
