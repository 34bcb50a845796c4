// Package email holds the address helpers shared by the registration flow.
package email

import (
	"strings"
)

// Normalize trims surrounding whitespace and lowercases the whole address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// Mask hides the local part of an address for logs, keeping its first rune and
// the domain: "alice@x.com" becomes "a***@x.com". Values without an "@" are
// masked entirely.
func Mask(address string) string {
	at := strings.LastIndexByte(address, '@')
	if at <= 0 {
		return "***"
	}

	local := []rune(address[:at])
	return string(local[0]) + "***" + address[at:]
}
