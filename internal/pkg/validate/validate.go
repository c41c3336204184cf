package validate

import (
	"strings"
	"unicode/utf8"
)

func Required(value string) bool {
	return strings.TrimSpace(value) != ""
}

// MaxLen counts runes, not bytes. Telegram limits apply to characters.
func MaxLen(value string, limit int) bool {
	return utf8.RuneCountInString(value) <= limit
}
